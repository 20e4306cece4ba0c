package orch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/core/mocks"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	room   domain.RoomID = "!r:s"
	alice  domain.UserID = "@a:s"
	bob    domain.UserID = "@b:s"
	callID domain.CallID = "c1"

	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var (
	offer  = domain.SessionDescription{Type: domain.SDPOffer, SDP: "v=0 offer"}
	answer = domain.SessionDescription{Type: domain.SDPAnswer, SDP: "v=0 answer"}
	local  = domain.MediaHandle{StreamID: "local", Kinds: []domain.MediaKind{domain.MediaAudio}}
	epoch  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	t *testing.T

	media    *mocks.MockMediaTransport
	conn     *mocks.MockMediaConnection
	signal   *mocks.MockSignalingChannel
	identity *mocks.MockIdentityProvider

	invites    chan domain.Invite
	answers    chan domain.Answer
	hangups    chan domain.Hangup
	candidates chan domain.Candidates

	localCands chan domain.IceCandidate
	tracks     chan domain.MediaHandle
	states     chan core.ConnectionState

	signedIn atomic.Bool
	closes   atomic.Int32

	mu          sync.Mutex
	sentHangups []domain.Hangup
	sentCands   []domain.Candidates
	added       []domain.IceCandidate

	o *Orchestrator
}

func testConfig() domain.CallConfig {
	cfg := domain.DefaultCallConfig()
	cfg.SignalTimeout = time.Second
	return cfg
}

func newHarness(t *testing.T, cfg domain.CallConfig) *harness {
	ctrl := gomock.NewController(t)
	h := &harness{
		t:          t,
		media:      mocks.NewMockMediaTransport(ctrl),
		conn:       mocks.NewMockMediaConnection(ctrl),
		signal:     mocks.NewMockSignalingChannel(ctrl),
		identity:   mocks.NewMockIdentityProvider(ctrl),
		invites:    make(chan domain.Invite, 4),
		answers:    make(chan domain.Answer, 4),
		hangups:    make(chan domain.Hangup, 4),
		candidates: make(chan domain.Candidates, 4),
		localCands: make(chan domain.IceCandidate, 4),
		tracks:     make(chan domain.MediaHandle, 1),
		states:     make(chan core.ConnectionState, 4),
	}
	h.signedIn.Store(true)

	var (
		invites    <-chan domain.Invite        = h.invites
		answers    <-chan domain.Answer        = h.answers
		hangups    <-chan domain.Hangup        = h.hangups
		candidates <-chan domain.Candidates    = h.candidates
		localCands <-chan domain.IceCandidate  = h.localCands
		tracks     <-chan domain.MediaHandle   = h.tracks
		states     <-chan core.ConnectionState = h.states
	)
	h.signal.EXPECT().Invites().Return(invites).AnyTimes()
	h.signal.EXPECT().Answers().Return(answers).AnyTimes()
	h.signal.EXPECT().Hangups().Return(hangups).AnyTimes()
	h.signal.EXPECT().Candidates().Return(candidates).AnyTimes()
	h.signal.EXPECT().SendHangup(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev domain.Hangup) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.sentHangups = append(h.sentHangups, ev)
		return nil
	}).AnyTimes()
	h.signal.EXPECT().SendIceCandidates(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev domain.Candidates) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.sentCands = append(h.sentCands, ev)
		return nil
	}).AnyTimes()

	h.conn.EXPECT().Candidates().Return(localCands).AnyTimes()
	h.conn.EXPECT().Tracks().Return(tracks).AnyTimes()
	h.conn.EXPECT().States().Return(states).AnyTimes()
	h.conn.EXPECT().Close().DoAndReturn(func() error {
		h.closes.Add(1)
		return nil
	}).AnyTimes()
	h.conn.EXPECT().AddICECandidate(gomock.Any()).DoAndReturn(func(c domain.IceCandidate) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.added = append(h.added, c)
		return nil
	}).AnyTimes()

	h.identity.EXPECT().Identity().DoAndReturn(func() (domain.Identity, bool) {
		return domain.Identity{UserID: alice, DisplayName: "Alice"}, h.signedIn.Load()
	}).AnyTimes()

	h.o = New(h.media, h.signal, h.identity, cfg,
		WithCallIDGenerator(func() domain.CallID { return callID }),
		WithClock(func() time.Time { return epoch }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) hangupsSent() []domain.Hangup {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Hangup(nil), h.sentHangups...)
}

func (h *harness) candidatesAdded() []domain.IceCandidate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.IceCandidate(nil), h.added...)
}

func (h *harness) candidatesSent() []domain.IceCandidate {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.IceCandidate
	for _, ev := range h.sentCands {
		out = append(out, ev.Candidates...)
	}
	return out
}

func (h *harness) expectOutgoingSetup() {
	h.media.EXPECT().Open(gomock.Any(), gomock.Any()).Return(h.conn, nil)
	h.conn.EXPECT().AcquireLocalMedia(gomock.Any(), true, false).Return(local, nil)
	h.conn.EXPECT().CreateOffer(gomock.Any()).Return(offer, nil)
	h.conn.EXPECT().SetLocalDescription(offer).Return(nil)
}

// outgoing places a call that is left in Outgoing.
func (h *harness) outgoing() domain.CallSession {
	h.expectOutgoingSetup()
	h.signal.EXPECT().SendInvite(gomock.Any(), gomock.Any()).Return(nil)
	sess, err := h.o.CreateCall(context.Background(), room, bob, false)
	require.NoError(h.t, err)
	return sess
}

// active places a call and lets the peer answer it.
func (h *harness) active() {
	h.outgoing()
	h.conn.EXPECT().SetRemoteDescription(answer).Return(nil)
	h.answers <- domain.Answer{CallID: callID, RoomID: room, Sender: bob, Answer: answer}
	h.waitState(domain.CallActive)
}

// incoming delivers an invite and waits until it is announced.
func (h *harness) incoming() {
	h.media.EXPECT().Open(gomock.Any(), gomock.Any()).Return(h.conn, nil)
	h.conn.EXPECT().AcquireLocalMedia(gomock.Any(), true, false).Return(local, nil)
	h.conn.EXPECT().SetRemoteDescription(offer).Return(nil)
	h.invites <- domain.Invite{CallID: callID, RoomID: room, Sender: bob, SenderName: "Bob", Offer: offer}
	h.waitState(domain.CallIncoming)
}

func (h *harness) waitState(state domain.CallState) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		sess, ok := h.o.GetActiveCall()
		return ok && sess.State == state
	}, waitFor, tick, "call never reached %s", state)
}

func (h *harness) waitNoCall() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		_, ok := h.o.GetActiveCall()
		return !ok
	}, waitFor, tick)
}

func TestOfferAnswerRoundTrip(t *testing.T) {
	h := newHarness(t, testConfig())

	h.expectOutgoingSetup()
	h.signal.EXPECT().SendInvite(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev domain.Invite) error {
		assert.Equal(t, callID, ev.CallID)
		assert.Equal(t, room, ev.RoomID)
		assert.Equal(t, offer, ev.Offer)
		assert.Equal(t, domain.DefaultInviteTimeout, ev.Timeout)
		assert.Equal(t, bob, ev.Invitee)
		return nil
	})
	sess, err := h.o.CreateCall(context.Background(), room, bob, false)
	require.NoError(t, err)
	assert.Equal(t, domain.CallOutgoing, sess.State)
	assert.Equal(t, alice, sess.CallerID)
	assert.Equal(t, bob, sess.CalleeID)
	assert.Equal(t, epoch, sess.CreatedAt)
	require.NotNil(t, sess.LocalMedia)

	h.conn.EXPECT().SetRemoteDescription(answer).Return(nil).Times(1)
	h.answers <- domain.Answer{CallID: callID, RoomID: room, Sender: bob, Answer: answer}
	h.waitState(domain.CallActive)

	// a repeated answer is discarded, not reapplied
	h.answers <- domain.Answer{CallID: callID, RoomID: room, Sender: bob, Answer: answer}
	time.Sleep(20 * time.Millisecond)
	h.waitState(domain.CallActive)
}

func TestCreateCallWithoutIdentity(t *testing.T) {
	h := newHarness(t, testConfig())
	h.signedIn.Store(false)

	_, err := h.o.CreateCall(context.Background(), room, bob, false)
	require.ErrorIs(t, err, domain.ErrAuth)
	_, ok := h.o.GetActiveCall()
	assert.False(t, ok)
}

func TestCreateCallWhileCallExists(t *testing.T) {
	h := newHarness(t, testConfig())
	first := h.outgoing()

	_, err := h.o.CreateCall(context.Background(), "!other:s", "@c:s", true)
	require.ErrorIs(t, err, domain.ErrConcurrentCall)

	cur, ok := h.o.GetActiveCall()
	require.True(t, ok)
	assert.Equal(t, first.CallID, cur.CallID)
	assert.Equal(t, domain.CallOutgoing, cur.State)
	assert.Equal(t, room, cur.RoomID)
}

func TestCreateCallMediaFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.media.EXPECT().Open(gomock.Any(), gomock.Any()).Return(h.conn, nil)
	h.conn.EXPECT().AcquireLocalMedia(gomock.Any(), true, true).Return(domain.MediaHandle{}, errors.New("camera busy"))

	_, err := h.o.CreateCall(context.Background(), room, bob, true)
	require.ErrorIs(t, err, domain.ErrMediaFailure)
	_, ok := h.o.GetActiveCall()
	assert.False(t, ok)
	assert.EqualValues(t, 1, h.closes.Load())
	assert.Empty(t, h.hangupsSent())
}

func TestCreateCallInviteFailureReleasesTransport(t *testing.T) {
	h := newHarness(t, testConfig())
	updates := h.o.CallStateUpdates(t.Context())
	first := <-updates
	require.Nil(t, first.Call)

	h.expectOutgoingSetup()
	h.signal.EXPECT().SendInvite(gomock.Any(), gomock.Any()).Return(errors.New("hub unreachable"))

	_, err := h.o.CreateCall(context.Background(), room, bob, false)
	require.ErrorIs(t, err, domain.ErrSignalingFailure)
	assert.EqualValues(t, 1, h.closes.Load())
	_, ok := h.o.GetActiveCall()
	assert.False(t, ok)

	select {
	case u := <-updates:
		t.Fatalf("unexpected state update %+v", u)
	default:
	}

	// the device is free for the next call
	h.outgoing()
}

func TestRemoteHangupEndsCallInAnyState(t *testing.T) {
	cases := []struct {
		name  string
		setup func(h *harness)
	}{
		{"outgoing", func(h *harness) { h.outgoing() }},
		{"incoming", func(h *harness) { h.incoming() }},
		{"active", func(h *harness) { h.active() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			tc.setup(h)
			updates := h.o.CallStateUpdates(t.Context())

			h.hangups <- domain.Hangup{CallID: callID, RoomID: room, Sender: bob, Reason: "user_hangup"}
			h.waitNoCall()

			var last *domain.CallSession
			require.Eventually(t, func() bool {
				for {
					select {
					case u := <-updates:
						if u.Call != nil {
							last = u.Call
						} else if last != nil {
							return true
						}
					default:
						return false
					}
				}
			}, waitFor, tick)
			assert.Equal(t, domain.CallEnded, last.State)
			assert.EqualValues(t, 1, h.closes.Load())
			assert.Empty(t, h.hangupsSent())
		})
	}
}

func TestHangupIsIdempotent(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	require.NoError(t, h.o.HangupCall(context.Background(), callID, room, ""))
	require.NoError(t, h.o.HangupCall(context.Background(), callID, room, ""))

	assert.EqualValues(t, 1, h.closes.Load())
	sent := h.hangupsSent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.ReasonUserHangup, sent[0].Reason)
	assert.Equal(t, alice, sent[0].Sender)

	// without any call at all
	require.NoError(t, h.o.HangupCall(context.Background(), "never", room, ""))
}

func TestRejectSendsRejectReason(t *testing.T) {
	h := newHarness(t, testConfig())
	h.incoming()

	require.NoError(t, h.o.RejectCall(context.Background(), callID, room))
	h.waitNoCall()
	sent := h.hangupsSent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.ReasonReject, sent[0].Reason)
	assert.EqualValues(t, 1, h.closes.Load())
}

func TestHangupBeforeAnswerClearsInvite(t *testing.T) {
	h := newHarness(t, testConfig())
	h.incoming()

	h.hangups <- domain.Hangup{CallID: callID, RoomID: room, Sender: bob}
	h.waitNoCall()

	err := h.o.AnswerCall(context.Background(), callID, room)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnswerIncomingCall(t *testing.T) {
	h := newHarness(t, testConfig())
	incoming := h.o.IncomingCalls(t.Context())
	h.incoming()

	select {
	case sess := <-incoming:
		assert.Equal(t, callID, sess.CallID)
		assert.Equal(t, bob, sess.CallerID)
		assert.Equal(t, "Bob", sess.CallerName)
		assert.Equal(t, domain.DirectionIncoming, sess.Direction)
	case <-time.After(waitFor):
		t.Fatal("incoming call not announced")
	}

	h.conn.EXPECT().CreateAnswer(gomock.Any()).Return(answer, nil)
	h.conn.EXPECT().SetLocalDescription(answer).Return(nil)
	h.signal.EXPECT().SendAnswer(gomock.Any(), domain.Answer{CallID: callID, RoomID: room, Sender: alice, Answer: answer}).Return(nil)

	require.NoError(t, h.o.AnswerCall(context.Background(), callID, room))
	h.waitState(domain.CallActive)

	// answering twice is reported, not applied
	require.ErrorIs(t, h.o.AnswerCall(context.Background(), callID, room), domain.ErrNotFound)
}

func TestAnswerRetryResendsCachedAnswer(t *testing.T) {
	h := newHarness(t, testConfig())
	h.incoming()

	h.conn.EXPECT().CreateAnswer(gomock.Any()).Return(answer, nil).Times(1)
	h.conn.EXPECT().SetLocalDescription(answer).Return(nil).Times(1)
	gomock.InOrder(
		h.signal.EXPECT().SendAnswer(gomock.Any(), gomock.Any()).Return(errors.New("timeout")),
		h.signal.EXPECT().SendAnswer(gomock.Any(), gomock.Any()).Return(nil),
	)

	err := h.o.AnswerCall(context.Background(), callID, room)
	require.ErrorIs(t, err, domain.ErrSignalingFailure)
	h.waitState(domain.CallIncoming)

	require.NoError(t, h.o.AnswerCall(context.Background(), callID, room))
	h.waitState(domain.CallActive)
}

func TestRemoteCandidatesForwardedInOrder(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	c1 := domain.IceCandidate{Candidate: "candidate:1", SDPMid: "0"}
	c2 := domain.IceCandidate{Candidate: "candidate:2", SDPMid: "0"}
	h.candidates <- domain.Candidates{CallID: callID, RoomID: room, Sender: bob, Candidates: []domain.IceCandidate{c1}}
	h.candidates <- domain.Candidates{CallID: callID, RoomID: room, Sender: bob, Candidates: []domain.IceCandidate{c2}}

	require.Eventually(t, func() bool { return len(h.candidatesAdded()) == 2 }, waitFor, tick)
	assert.Equal(t, []domain.IceCandidate{c1, c2}, h.candidatesAdded())
}

func TestEventsForOtherCallsAreIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()
	before, _ := h.o.GetActiveCall()

	h.answers <- domain.Answer{CallID: "other", RoomID: room, Answer: answer}
	h.candidates <- domain.Candidates{CallID: "other", RoomID: room, Candidates: []domain.IceCandidate{{Candidate: "x"}}}
	h.hangups <- domain.Hangup{CallID: "other", RoomID: room}
	time.Sleep(50 * time.Millisecond)

	after, ok := h.o.GetActiveCall()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Empty(t, h.candidatesAdded())
	assert.Zero(t, h.closes.Load())
}

func TestInviteTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.InviteTimeout = 50 * time.Millisecond
	h := newHarness(t, cfg)
	updates := h.o.CallStateUpdates(t.Context())
	h.outgoing()

	var final *domain.CallSession
	require.Eventually(t, func() bool {
		for {
			select {
			case u := <-updates:
				if u.Call != nil && !u.Call.State.Live() {
					final = u.Call
				}
			default:
				return final != nil
			}
		}
	}, waitFor, tick)

	assert.Equal(t, domain.CallFailed, final.State)
	assert.Equal(t, domain.ReasonInviteTimeout, final.EndReason)
	assert.ErrorIs(t, final.Err, domain.ErrTimeout)
	h.waitNoCall()

	require.Eventually(t, func() bool { return len(h.hangupsSent()) > 0 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	sent := h.hangupsSent()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.ReasonInviteTimeout, sent[0].Reason)
	assert.EqualValues(t, 1, h.closes.Load())
}

func TestBusyInviteIsDeclined(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	h.invites <- domain.Invite{CallID: "c2", RoomID: "!x:s", Sender: "@c:s", Offer: offer}
	require.Eventually(t, func() bool { return len(h.hangupsSent()) == 1 }, waitFor, tick)

	sent := h.hangupsSent()[0]
	assert.Equal(t, domain.CallID("c2"), sent.CallID)
	assert.Equal(t, domain.ReasonBusy, sent.Reason)
	h.waitState(domain.CallActive)
}

func TestDuplicateInviteIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	h.incoming()

	h.invites <- domain.Invite{CallID: callID, RoomID: room, Sender: bob, Offer: offer}
	time.Sleep(20 * time.Millisecond)
	h.waitState(domain.CallIncoming)
	assert.Empty(t, h.hangupsSent())
}

func TestLocalCandidatesSentAfterInvite(t *testing.T) {
	h := newHarness(t, testConfig())
	h.outgoing()

	c := domain.IceCandidate{Candidate: "candidate:local", SDPMid: "0"}
	h.localCands <- c
	require.Eventually(t, func() bool { return len(h.candidatesSent()) == 1 }, waitFor, tick)
	assert.Equal(t, c, h.candidatesSent()[0])
}

func TestConnectionFailureFailsCall(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	h.states <- core.ConnectionFailed
	h.waitNoCall()
	require.Eventually(t, func() bool { return len(h.hangupsSent()) == 1 }, waitFor, tick)
	assert.Equal(t, domain.ReasonICEFailed, h.hangupsSent()[0].Reason)
	assert.EqualValues(t, 1, h.closes.Load())
}

func TestICETimeoutCancelledByConnect(t *testing.T) {
	cfg := testConfig()
	cfg.ICETimeout = 80 * time.Millisecond
	h := newHarness(t, cfg)
	h.active()

	h.states <- core.ConnectionConnected
	require.Eventually(t, func() bool {
		sess, ok := h.o.GetActiveCall()
		return ok && sess.ConnectedAt.Equal(epoch)
	}, waitFor, tick)

	time.Sleep(150 * time.Millisecond)
	h.waitState(domain.CallActive)
}

func TestICETimeoutFailsCall(t *testing.T) {
	cfg := testConfig()
	cfg.ICETimeout = 100 * time.Millisecond
	h := newHarness(t, cfg)
	h.active()

	h.waitNoCall()
	require.Eventually(t, func() bool { return len(h.hangupsSent()) == 1 }, waitFor, tick)
	assert.Equal(t, domain.ReasonICETimeout, h.hangupsSent()[0].Reason)
}

func TestHangupWhileInviteInFlight(t *testing.T) {
	h := newHarness(t, testConfig())
	h.expectOutgoingSetup()

	sending := make(chan struct{})
	h.signal.EXPECT().SendInvite(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ domain.Invite) error {
		close(sending)
		<-ctx.Done()
		return ctx.Err()
	})

	errc := make(chan error, 1)
	go func() {
		_, err := h.o.CreateCall(context.Background(), room, bob, false)
		errc <- err
	}()

	<-sending
	require.NoError(t, h.o.HangupCall(context.Background(), callID, room, ""))

	select {
	case err := <-errc:
		require.ErrorIs(t, err, domain.ErrNotFound)
	case <-time.After(waitFor):
		t.Fatal("CreateCall did not return")
	}
	assert.EqualValues(t, 1, h.closes.Load())
	_, ok := h.o.GetActiveCall()
	assert.False(t, ok)
}

func TestTogglesWithoutCall(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.ErrorIs(t, h.o.ToggleMute(callID, true), domain.ErrNotFound)
	assert.ErrorIs(t, h.o.ToggleCamera(callID, false), domain.ErrNotFound)
	assert.ErrorIs(t, h.o.ToggleSpeaker(callID, false), domain.ErrNotFound)
	assert.ErrorIs(t, h.o.SwitchCamera(context.Background(), callID), domain.ErrNotFound)
	assert.ErrorIs(t, h.o.SendIceCandidates(context.Background(), callID, room, nil), domain.ErrNotFound)
}

func TestTogglesDelegateToConnection(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	h.conn.EXPECT().ToggleAudio(false).Return(nil)
	h.conn.EXPECT().ToggleSpeaker(false).Return(nil)
	h.conn.EXPECT().SwitchCamera(gomock.Any()).Return(nil)
	h.conn.EXPECT().ToggleVideo(true).Return(errors.New("no video track"))

	require.NoError(t, h.o.ToggleMute(callID, true))
	require.NoError(t, h.o.ToggleSpeaker(callID, false))
	require.NoError(t, h.o.SwitchCamera(context.Background(), callID))
	require.ErrorIs(t, h.o.ToggleCamera(callID, true), domain.ErrMediaFailure)

	sess, ok := h.o.GetActiveCall()
	require.True(t, ok)
	assert.True(t, sess.IsMuted)
	assert.False(t, sess.IsSpeakerEnabled)
	assert.False(t, sess.IsCameraEnabled)
	assert.Equal(t, domain.CallActive, sess.State)
}

func TestRemoteTrackRecorded(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	h.tracks <- domain.MediaHandle{StreamID: "remote", Kinds: []domain.MediaKind{domain.MediaAudio}}
	require.Eventually(t, func() bool {
		sess, ok := h.o.GetActiveCall()
		return ok && sess.RemoteMedia != nil && sess.RemoteMedia.StreamID == "remote"
	}, waitFor, tick)
}

func TestEventsFromNonParticipantIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	h.outgoing()
	carol := domain.UserID("@carol:s")

	h.hangups <- domain.Hangup{CallID: callID, RoomID: room, Sender: carol, Reason: domain.ReasonBusy}
	h.answers <- domain.Answer{CallID: callID, RoomID: room, Sender: carol, Answer: answer}
	h.candidates <- domain.Candidates{CallID: callID, RoomID: room, Sender: carol, Candidates: []domain.IceCandidate{{Candidate: "x"}}}
	time.Sleep(50 * time.Millisecond)

	h.waitState(domain.CallOutgoing)
	assert.Zero(t, h.closes.Load())
	assert.Empty(t, h.candidatesAdded())

	h.conn.EXPECT().SetRemoteDescription(answer).Return(nil).Times(1)
	h.answers <- domain.Answer{CallID: callID, RoomID: room, Sender: bob, Answer: answer}
	h.waitState(domain.CallActive)
}

func TestInviteForAnotherMemberIgnored(t *testing.T) {
	h := newHarness(t, testConfig())

	h.invites <- domain.Invite{CallID: "c2", RoomID: room, Sender: bob, Invitee: "@carol:s", Offer: offer}
	time.Sleep(50 * time.Millisecond)
	h.o.mu.Lock()
	assert.Nil(t, h.o.slot)
	h.o.mu.Unlock()

	// a busy device does not decline calls meant for someone else
	h.active()
	h.invites <- domain.Invite{CallID: "c3", RoomID: room, Sender: "@dave:s", Invitee: "@carol:s", Offer: offer}
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, h.hangupsSent())
	h.waitState(domain.CallActive)
}

func TestAnswerBeforeInviteReturned(t *testing.T) {
	h := newHarness(t, testConfig())
	h.expectOutgoingSetup()
	h.conn.EXPECT().SetRemoteDescription(answer).Return(nil).Times(1)
	h.signal.EXPECT().SendInvite(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, domain.Invite) error {
		h.answers <- domain.Answer{CallID: callID, RoomID: room, Sender: bob, Answer: answer}
		require.Eventually(t, func() bool {
			h.o.mu.Lock()
			defer h.o.mu.Unlock()
			return h.o.slot != nil && h.o.slot.earlyAnswer != nil
		}, waitFor, tick)
		return nil
	})

	sess, err := h.o.CreateCall(context.Background(), room, bob, false)
	require.NoError(t, err)
	assert.Equal(t, domain.CallActive, sess.State)
	h.waitState(domain.CallActive)
}

func TestHangupWhileIncomingConnectionOpens(t *testing.T) {
	h := newHarness(t, testConfig())

	opening := make(chan struct{})
	release := make(chan struct{})
	h.media.EXPECT().Open(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, domain.CallConfig) (core.MediaConnection, error) {
		close(opening)
		<-release
		return h.conn, nil
	})

	h.invites <- domain.Invite{CallID: callID, RoomID: room, Sender: bob, Offer: offer}
	select {
	case <-opening:
	case <-time.After(waitFor):
		t.Fatal("connection never opened")
	}

	h.hangups <- domain.Hangup{CallID: callID, RoomID: room, Sender: bob}
	require.Eventually(t, func() bool {
		h.o.mu.Lock()
		defer h.o.mu.Unlock()
		return h.o.slot == nil
	}, waitFor, tick)

	close(release)
	require.Eventually(t, func() bool { return h.closes.Load() == 1 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, h.closes.Load())
	assert.Empty(t, h.hangupsSent())
	_, ok := h.o.GetActiveCall()
	assert.False(t, ok)
}

func TestLocalAndRemoteHangupRace(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, h.o.HangupCall(context.Background(), callID, room, ""))
	}()
	h.hangups <- domain.Hangup{CallID: callID, RoomID: room, Sender: bob, Reason: domain.ReasonUserHangup}
	wg.Wait()

	h.waitNoCall()
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, h.closes.Load())
	assert.LessOrEqual(t, len(h.hangupsSent()), 1)
}

func TestHangupIgnoresRoom(t *testing.T) {
	h := newHarness(t, testConfig())
	h.active()

	require.NoError(t, h.o.HangupCall(context.Background(), callID, "!elsewhere:s", ""))
	h.waitNoCall()
	assert.EqualValues(t, 1, h.closes.Load())
	sent := h.hangupsSent()
	require.Len(t, sent, 1)
	assert.Equal(t, room, sent[0].RoomID)
}
