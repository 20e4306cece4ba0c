package hub

import (
	"github.com/dkeye/voicecall/internal/adapters/signal"
	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room_id"`
	User   domain.User   `json:"user"`
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	env signal.Envelope,
) {
	if err := domain.ValidateRoomID(env.RoomID); err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("room_id", string(env.RoomID)).Msg("bad join")
		ctl.sendError(conn, env.TxnID, "invalid_room")
		return
	}
	room, err := ctl.Hub.Join(sid, env.RoomID)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("sid", string(sid)).Msg("join")
		ctl.sendError(conn, env.TxnID, err.Error())
		return
	}
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("room_id", string(env.RoomID)).Msg("join")

	clientResp := struct {
		Type    string           `json:"type"`
		TxnID   string           `json:"txn_id,omitempty"`
		RoomID  domain.RoomID    `json:"room_id"`
		Members []core.MemberDTO `json:"members"`
		Count   int              `json:"count"`
	}{
		Type:    "room_state",
		TxnID:   env.TxnID,
		RoomID:  env.RoomID,
		Members: room.MembersSnapshot(),
		Count:   room.MemberCount(),
	}
	ctl.sendJSON(conn, clientResp)

	if user, ok := ctl.Hub.Registry.User(sid); ok {
		ctl.BroadcastRoom(sid, env.RoomID, memberEvent{Type: "member_joined", RoomID: env.RoomID, User: *user})
	}
}

// handleLeave leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
	env signal.Envelope,
) {
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("room_id", string(env.RoomID)).Msg("leave")
	left := ctl.Hub.Leave(sid, env.RoomID)
	ctl.sendJSON(conn, signal.Envelope{Type: "left", TxnID: env.TxnID, RoomID: env.RoomID})

	if !left {
		return
	}
	if user, ok := ctl.Hub.Registry.User(sid); ok {
		ctl.BroadcastRoom(sid, env.RoomID, memberEvent{Type: "member_left", RoomID: env.RoomID, User: *user})
	}
}
