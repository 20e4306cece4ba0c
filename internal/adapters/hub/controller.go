// Package hub is the websocket side of the room hub: members join rooms and
// exchange call events through it.
package hub

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/voicecall/internal/app"
	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
	Limiter    *RateLimiter
}

type SignalWSController struct {
	Hub  *app.Hub
	opts Options
}

func NewSignalWSController(h *app.Hub, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	return &SignalWSController{Hub: h, opts: opts}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// BroadcastRoom sends v to every member of room except sid.
func (ctl *SignalWSController) BroadcastRoom(sid core.SessionID, room domain.RoomID, v any) {
	for _, snap := range ctl.Hub.Registry.MembersOfRoom(room) {
		if snap.SID == sid {
			continue
		}
		if sc := snap.Session.Signal(); sc != nil {
			ctl.sendJSON(sc, v)
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request. The user is taken from the user_id and
// name query parameters; the session id is the client token cookie.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	user, err := domain.NewUser(domain.UserID(c.Query("user_id")), c.Query("name"))
	if err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("sid", string(sid)).Msg("rejecting connection")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sid == "" {
		sid = core.SessionID(uuid.NewString())
	} else if _, ok := ctl.Hub.Registry.GetSession(sid); ok {
		// second connection with the same cookie
		sid = core.SessionID(string(sid) + "/" + uuid.NewString())
	}
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	ctl.Hub.Registry.SetUser(sid, user)
	sess := core.NewMemberSession(domain.NewMember(user)).UpdateSignal(conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Registry.BindSignal(sid, sess, cancel)

	ctl.handleWhoAmI(sid, conn, "")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
