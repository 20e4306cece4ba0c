package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/voicecall/internal/adapters/signal"
	"github.com/dkeye/voicecall/internal/app/orch"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CallService is the call surface the control API drives.
type CallService interface {
	CreateCall(ctx context.Context, roomID domain.RoomID, calleeID domain.UserID, isVideo bool) (domain.CallSession, error)
	AnswerCall(ctx context.Context, callID domain.CallID, roomID domain.RoomID) error
	RejectCall(ctx context.Context, callID domain.CallID, roomID domain.RoomID) error
	HangupCall(ctx context.Context, callID domain.CallID, roomID domain.RoomID, reason string) error
	SendIceCandidates(ctx context.Context, callID domain.CallID, roomID domain.RoomID, candidates []domain.IceCandidate) error
	ToggleMute(callID domain.CallID, muted bool) error
	ToggleCamera(callID domain.CallID, enabled bool) error
	ToggleSpeaker(callID domain.CallID, enabled bool) error
	SwitchCamera(ctx context.Context, callID domain.CallID) error
	GetActiveCall() (domain.CallSession, bool)
	CallStateUpdates(ctx context.Context) <-chan orch.StateUpdate
	IncomingCalls(ctx context.Context) <-chan domain.CallSession
}

// RoomMembership is the room side of the signaling client.
type RoomMembership interface {
	Join(ctx context.Context, roomID domain.RoomID) error
	Leave(ctx context.Context, roomID domain.RoomID) error
	Rooms() []domain.RoomID
}

type createCallRequest struct {
	RoomID   domain.RoomID `json:"room_id" binding:"required"`
	CalleeID domain.UserID `json:"callee_id" binding:"required"`
	Video    bool          `json:"video"`
}

type callRequest struct {
	RoomID domain.RoomID `json:"room_id"`
	Reason string        `json:"reason"`
}

type candidatesRequest struct {
	RoomID     domain.RoomID         `json:"room_id"`
	Candidates []domain.IceCandidate `json:"candidates" binding:"required"`
}

// statusFor maps the call error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrentCall):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMediaFailure):
		return http.StatusFailedDependency
	case errors.Is(err, domain.ErrSignalingFailure), errors.Is(err, domain.ErrTransportFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrRoomIDInvalid), errors.Is(err, domain.ErrUserIDInvalid):
		return http.StatusBadRequest
	case errors.Is(err, signal.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, signal.ErrRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("control request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// bindOptional decodes a JSON body when there is one.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// SetupControlRouter builds the client's local control API.
func SetupControlRouter(mode string, calls CallService, rooms RoomMembership) *gin.Engine {
	r := newEngine(mode)
	api := r.Group("/api")

	api.POST("/calls", func(c *gin.Context) {
		var req createCallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := domain.ValidateUserID(req.CalleeID); err != nil {
			fail(c, err)
			return
		}
		session, err := calls.CreateCall(c.Request.Context(), req.RoomID, req.CalleeID, req.Video)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	})

	api.GET("/calls/active", func(c *gin.Context) {
		session, ok := calls.GetActiveCall()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, session)
	})

	call := func(op func(ctx context.Context, id domain.CallID, req callRequest) error) gin.HandlerFunc {
		return func(c *gin.Context) {
			var req callRequest
			if !bindOptional(c, &req) {
				return
			}
			if err := op(c.Request.Context(), domain.CallID(c.Param("id")), req); err != nil {
				fail(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		}
	}
	api.POST("/calls/:id/answer", call(func(ctx context.Context, id domain.CallID, req callRequest) error {
		return calls.AnswerCall(ctx, id, req.RoomID)
	}))
	api.POST("/calls/:id/reject", call(func(ctx context.Context, id domain.CallID, req callRequest) error {
		return calls.RejectCall(ctx, id, req.RoomID)
	}))
	api.POST("/calls/:id/hangup", call(func(ctx context.Context, id domain.CallID, req callRequest) error {
		return calls.HangupCall(ctx, id, req.RoomID, req.Reason)
	}))
	api.POST("/calls/:id/switch-camera", call(func(ctx context.Context, id domain.CallID, _ callRequest) error {
		return calls.SwitchCamera(ctx, id)
	}))

	toggle := func(field string, op func(id domain.CallID, on bool) error) gin.HandlerFunc {
		return func(c *gin.Context) {
			var body map[string]bool
			if err := c.ShouldBindJSON(&body); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			on, ok := body[field]
			if !ok {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + field})
				return
			}
			if err := op(domain.CallID(c.Param("id")), on); err != nil {
				fail(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		}
	}
	api.POST("/calls/:id/mute", toggle("muted", calls.ToggleMute))
	api.POST("/calls/:id/camera", toggle("enabled", calls.ToggleCamera))
	api.POST("/calls/:id/speaker", toggle("enabled", calls.ToggleSpeaker))

	api.POST("/calls/:id/candidates", func(c *gin.Context) {
		var req candidatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := calls.SendIceCandidates(c.Request.Context(), domain.CallID(c.Param("id")), req.RoomID, req.Candidates); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.GET("/calls/events", func(c *gin.Context) { streamStates(c, calls) })
	api.GET("/calls/incoming", func(c *gin.Context) { streamIncoming(c, calls) })

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": rooms.Rooms()})
	})
	api.POST("/rooms/:id/join", func(c *gin.Context) {
		if err := rooms.Join(c.Request.Context(), domain.RoomID(c.Param("id"))); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.POST("/rooms/:id/leave", func(c *gin.Context) {
		if err := rooms.Leave(c.Request.Context(), domain.RoomID(c.Param("id"))); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	return r
}

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamStates pushes every call state update over a websocket until the
// peer goes away.
func streamStates(c *gin.Context, calls CallService) {
	ws, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("ws upgrade")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for update := range calls.CallStateUpdates(ctx) {
		if err := ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		if err := ws.WriteJSON(update); err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Msg("state stream closed")
			return
		}
	}
}

// streamIncoming sends each new incoming call as a server-sent event.
func streamIncoming(c *gin.Context, calls CallService) {
	ctx := c.Request.Context()
	incoming := calls.IncomingCalls(ctx)
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case session, ok := <-incoming:
			if !ok {
				return false
			}
			c.SSEvent("incoming", session)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
