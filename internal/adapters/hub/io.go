package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/voicecall/internal/adapters/signal"
	"github.com/dkeye/voicecall/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ping := time.NewTicker(ctl.opts.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "hub").Msg("writePump ctx done")
			c.Close()
			return
		case <-ping.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "hub").Msg("writePump ping")
				c.Close()
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "hub").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "hub").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "hub").Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "hub").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.disconnect(sid)
	}()

	// a silent peer misses two pings before it is dropped
	wait := 2*ctl.opts.PingPeriod + 5*time.Second
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Info().Err(err).Str("module", "hub").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		ctl.handleSignal(sid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env signal.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad json")
		ctl.sendError(c, "", "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(sid, c, env)
	case "leave":
		ctl.handleLeave(sid, c, env)
	case "ping":
		ctl.handlePing(c, env.TxnID)
	case "rename":
		ctl.handleRename(sid, c, data)
	case "whoami":
		ctl.handleWhoAmI(sid, c, env.TxnID)
	case signal.TypeInvite, signal.TypeAnswer, signal.TypeCandidates, signal.TypeHangup:
		ctl.handleCallEvent(sid, c, env)
	default:
		log.Warn().Str("module", "hub").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, env.TxnID, "unknown_type")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, txn, msg string) {
	ctl.sendJSON(c, signal.Envelope{Type: "error", TxnID: txn, Error: msg})
}

// disconnect leaves every room of sid and tells the remaining members.
func (ctl *SignalWSController) disconnect(sid core.SessionID) {
	user, ok := ctl.Hub.Registry.User(sid)
	rooms := ctl.Hub.OnDisconnect(sid)
	if !ok {
		return
	}
	for _, room := range rooms {
		ctl.BroadcastRoom(sid, room, memberEvent{Type: "member_left", RoomID: room, User: *user})
	}
}
