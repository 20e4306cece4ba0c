package hub

import (
	"encoding/json"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type renamePayload struct {
		TxnID string `json:"txn_id"`
		Name  string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad rename payload")
		ctl.sendError(conn, "", "bad_payload")
		return
	}

	if err := ctl.Hub.Registry.UpdateUsername(sid, p.Name); err != nil {
		ctl.sendError(conn, p.TxnID, "invalid_name")
		return
	}
	log.Info().Str("module", "hub").Str("sid", string(sid)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(sid, conn, p.TxnID)

	user, ok := ctl.Hub.Registry.User(sid)
	if !ok {
		return
	}
	for _, room := range ctl.Hub.Registry.RoomsOf(sid) {
		ctl.BroadcastRoom(sid, room, memberEvent{Type: "member_updated", RoomID: room, User: *user})
	}
}

func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
	txn string,
) {
	user, ok := ctl.Hub.Registry.User(sid)
	if !ok {
		ctl.sendError(conn, txn, "unknown_session")
		return
	}

	resp := struct {
		Type     string          `json:"type"`
		TxnID    string          `json:"txn_id,omitempty"`
		UserID   domain.UserID   `json:"user_id"`
		Username string          `json:"username"`
		Rooms    []domain.RoomID `json:"rooms,omitempty"`
	}{
		Type:     "whoami",
		TxnID:    txn,
		UserID:   user.ID,
		Username: user.Username,
		Rooms:    ctl.Hub.Registry.RoomsOf(sid),
	}
	ctl.sendJSON(conn, resp)
}
