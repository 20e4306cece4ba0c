package hub

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/voicecall/internal/adapters/signal"
	"github.com/dkeye/voicecall/internal/app"
	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// handleCallEvent stamps a call event with the authenticated sender and a
// fresh event id, acks it and relays it to the rest of the room. Content is
// forwarded byte for byte.
func (ctl *SignalWSController) handleCallEvent(
	sid core.SessionID,
	conn *WsSignalConn,
	env signal.Envelope,
) {
	l := log.With().Str("module", "hub").Str("sid", string(sid)).Str("type", env.Type).Str("room_id", string(env.RoomID)).Logger()

	user, ok := ctl.Hub.Registry.User(sid)
	if !ok {
		ctl.sendError(conn, env.TxnID, "unknown_session")
		return
	}
	if len(env.Content) == 0 || !json.Valid(env.Content) {
		ctl.sendError(conn, env.TxnID, "bad_payload")
		return
	}
	if ctl.opts.Limiter != nil && !ctl.opts.Limiter.Allow(user.ID) {
		l.Warn().Str("user", string(user.ID)).Msg("rate limited")
		ctl.sendError(conn, env.TxnID, "rate_limited")
		return
	}

	out := signal.Envelope{
		Type:       env.Type,
		RoomID:     env.RoomID,
		Sender:     user.ID,
		SenderName: user.Username,
		EventID:    "$" + uuid.NewString(),
		Content:    env.Content,
	}
	frame, err := json.Marshal(out)
	if err != nil {
		l.Error().Err(err).Msg("marshal relay")
		ctl.sendError(conn, env.TxnID, "internal")
		return
	}

	res, err := ctl.Hub.Relay(sid, env.RoomID, frame)
	if errors.Is(err, app.ErrNotMember) {
		ctl.sendError(conn, env.TxnID, "not_in_room")
		return
	}
	if err != nil {
		l.Error().Err(err).Msg("relay")
		ctl.sendError(conn, env.TxnID, "internal")
		return
	}
	metrics.HubRelayed.WithLabelValues(env.Type).Inc()
	l.Debug().Str("event_id", out.EventID).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("relayed")

	ctl.sendJSON(conn, signal.Envelope{Type: "sent", TxnID: env.TxnID, EventID: out.EventID, RoomID: env.RoomID})
}
