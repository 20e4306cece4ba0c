package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/voicecall/internal/app/orch"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalls struct {
	mu       sync.Mutex
	calls    []string
	err      error
	active   *domain.CallSession
	states   chan orch.StateUpdate
	incoming chan domain.CallSession
}

func newFakeCalls() *fakeCalls {
	return &fakeCalls{states: make(chan orch.StateUpdate, 4), incoming: make(chan domain.CallSession, 4)}
}

func (f *fakeCalls) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeCalls) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCalls) CreateCall(_ context.Context, roomID domain.RoomID, calleeID domain.UserID, isVideo bool) (domain.CallSession, error) {
	if err := f.record("create %s %s %v", roomID, calleeID, isVideo); err != nil {
		return domain.CallSession{}, err
	}
	return domain.CallSession{CallID: "c1", RoomID: roomID, CalleeID: calleeID, IsVideo: isVideo}, nil
}

func (f *fakeCalls) AnswerCall(_ context.Context, id domain.CallID, roomID domain.RoomID) error {
	return f.record("answer %s %s", id, roomID)
}

func (f *fakeCalls) RejectCall(_ context.Context, id domain.CallID, roomID domain.RoomID) error {
	return f.record("reject %s %s", id, roomID)
}

func (f *fakeCalls) HangupCall(_ context.Context, id domain.CallID, roomID domain.RoomID, reason string) error {
	return f.record("hangup %s %s %s", id, roomID, reason)
}

func (f *fakeCalls) SendIceCandidates(_ context.Context, id domain.CallID, _ domain.RoomID, c []domain.IceCandidate) error {
	return f.record("candidates %s %d", id, len(c))
}

func (f *fakeCalls) ToggleMute(id domain.CallID, muted bool) error {
	return f.record("mute %s %v", id, muted)
}

func (f *fakeCalls) ToggleCamera(id domain.CallID, enabled bool) error {
	return f.record("camera %s %v", id, enabled)
}

func (f *fakeCalls) ToggleSpeaker(id domain.CallID, enabled bool) error {
	return f.record("speaker %s %v", id, enabled)
}

func (f *fakeCalls) SwitchCamera(_ context.Context, id domain.CallID) error {
	return f.record("switch %s", id)
}

func (f *fakeCalls) GetActiveCall() (domain.CallSession, bool) {
	if f.active == nil {
		return domain.CallSession{}, false
	}
	return *f.active, true
}

func (f *fakeCalls) CallStateUpdates(ctx context.Context) <-chan orch.StateUpdate {
	out := make(chan orch.StateUpdate)
	go func() {
		defer close(out)
		for {
			select {
			case u := <-f.states:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (f *fakeCalls) IncomingCalls(context.Context) <-chan domain.CallSession { return f.incoming }

type fakeRooms struct{ joined []domain.RoomID }

func (r *fakeRooms) Join(_ context.Context, id domain.RoomID) error {
	if err := domain.ValidateRoomID(id); err != nil {
		return err
	}
	r.joined = append(r.joined, id)
	return nil
}

func (r *fakeRooms) Leave(context.Context, domain.RoomID) error { return nil }
func (r *fakeRooms) Rooms() []domain.RoomID                     { return r.joined }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestControlCallOperations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := newFakeCalls()
	r := SetupControlRouter("test", calls, &fakeRooms{})

	w := do(t, r, http.MethodPost, "/api/calls", `{"room_id":"!r:s","callee_id":"@bob:s","video":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var session domain.CallSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, domain.CallID("c1"), session.CallID)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/answer", `{"room_id":"!r:s"}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/reject", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/hangup", `{"reason":"busy"}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/mute", `{"muted":true}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/camera", `{"enabled":false}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/speaker", `{"enabled":true}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/switch-camera", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/calls/c1/candidates",
		`{"candidates":[{"candidate":"x","sdpMid":"0","sdpMLineIndex":0}]}`).Code)

	assert.Equal(t, []string{
		"create !r:s @bob:s true",
		"answer c1 !r:s",
		"reject c1 ",
		"hangup c1  busy",
		"mute c1 true",
		"camera c1 false",
		"speaker c1 true",
		"switch c1",
		"candidates c1 1",
	}, calls.recorded())
}

func TestControlBadRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupControlRouter("test", newFakeCalls(), &fakeRooms{})

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/calls", `{"room_id":"!r:s"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/calls", `{"room_id":"!r:s","callee_id":"bob"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/calls/c1/mute", `{"enabled":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/rooms/lobby/join", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/rooms/!a:s/join", "").Code)
}

func TestControlErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrConcurrentCall, http.StatusConflict},
		{domain.ErrAuth, http.StatusUnauthorized},
		{fmt.Errorf("%w: denied", domain.ErrMediaFailure), http.StatusFailedDependency},
		{domain.ErrSignalingFailure, http.StatusBadGateway},
		{domain.ErrTransportFailure, http.StatusBadGateway},
		{domain.ErrTimeout, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			calls := newFakeCalls()
			calls.err = tt.err
			r := SetupControlRouter("test", calls, &fakeRooms{})
			w := do(t, r, http.MethodPost, "/api/calls", `{"room_id":"!r:s","callee_id":"@bob:s"}`)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.err.Error())
		})
	}
}

func TestControlActiveCall(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := newFakeCalls()
	r := SetupControlRouter("test", calls, &fakeRooms{})

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/calls/active", "").Code)

	calls.active = &domain.CallSession{CallID: "c1", State: domain.CallActive}
	w := do(t, r, http.MethodGet, "/api/calls/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"active"`)
}

func TestControlStateStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := newFakeCalls()
	srv := httptest.NewServer(SetupControlRouter("test", calls, &fakeRooms{}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/calls/events", nil)
	require.NoError(t, err)
	defer ws.Close()

	calls.states <- orch.StateUpdate{}
	calls.states <- orch.StateUpdate{Call: &domain.CallSession{CallID: "c1", State: domain.CallIncoming}}

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second map[string]any
	require.NoError(t, ws.ReadJSON(&first))
	require.NoError(t, ws.ReadJSON(&second))
	assert.Nil(t, first["call"])
	call, ok := second["call"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "c1", call["call_id"])
	assert.Equal(t, "incoming", call["state"])
}

func TestControlIncomingStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := newFakeCalls()
	srv := httptest.NewServer(SetupControlRouter("test", calls, &fakeRooms{}))
	defer srv.Close()

	calls.incoming <- domain.CallSession{CallID: "c7", CallerID: "@bob:s"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/calls/incoming", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if strings.HasPrefix(sc.Text(), "data:") {
			break
		}
	}
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "event:incoming", lines[len(lines)-2])
	assert.Contains(t, lines[len(lines)-1], `"call_id":"c7"`)
}
