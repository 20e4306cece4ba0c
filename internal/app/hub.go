// Package app holds the room hub that relays call events between members.
package app

import (
	"errors"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/dkeye/voicecall/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotMember = errors.New("not a member of the room")
	ErrNoSession = errors.New("unknown session")
)

type Hub struct {
	Registry *Registry
	Rooms    core.RoomManager
	Policy   Policy
}

func NewHub(policy Policy) *Hub {
	return &Hub{Registry: NewRegistry(), Rooms: NewRoomManager(), Policy: policy}
}

// Join adds sid to room, creating the room on first use. Joining twice is a
// no-op.
func (h *Hub) Join(sid core.SessionID, id domain.RoomID) (core.RoomService, error) {
	session, ok := h.Registry.GetSession(sid)
	if !ok {
		return nil, ErrNoSession
	}
	room := h.Rooms.GetOrCreate(id)
	if h.Registry.InRoom(sid, id) {
		return room, nil
	}
	room.AddMember(sid, session)
	h.Registry.AddRoom(sid, id)
	metrics.HubMembers.Inc()
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Str("room_id", string(id)).Msg("joined")
	return room, nil
}

// Leave removes sid from room and drops the room once it is empty.
func (h *Hub) Leave(sid core.SessionID, id domain.RoomID) bool {
	if !h.Registry.InRoom(sid, id) {
		return false
	}
	h.Registry.RemoveRoom(sid, id)
	metrics.HubMembers.Dec()
	if room, ok := h.Rooms.GetRoom(id); ok {
		room.RemoveMember(sid)
		if room.MemberCount() == 0 {
			h.Rooms.StopRoom(id)
		}
	}
	return true
}

// Relay sends frame to every other member of room. Members that cannot keep
// up are handled by the policy.
func (h *Hub) Relay(sid core.SessionID, id domain.RoomID, frame core.Frame) (core.PublishResult, error) {
	if !h.Registry.InRoom(sid, id) {
		return core.PublishResult{}, ErrNotMember
	}
	room, ok := h.Rooms.GetRoom(id)
	if !ok {
		return core.PublishResult{}, ErrNotMember
	}
	res := room.Broadcast(sid, frame)
	if h.Policy == nil {
		return res, nil
	}
	for _, slow := range res.Dropped {
		action := h.Policy.OnBackPressure(room, slow)
		log.Warn().Str("module", "app.hub").Str("room_id", string(id)).Str("user", string(slow.Meta().User.ID)).Stringer("action", action).Msg("slow member")
		switch action {
		case KickMember:
			for _, snap := range h.Registry.MembersOfRoom(id) {
				if snap.Session == slow {
					h.Leave(snap.SID, id)
				}
			}
		case MarkSlow, DropFrame, NoAction:
		}
	}
	return res, nil
}

// OnDisconnect leaves every room of sid and forgets it. It returns the rooms
// that were left.
func (h *Hub) OnDisconnect(sid core.SessionID) []domain.RoomID {
	rooms := h.Registry.RoomsOf(sid)
	for _, id := range rooms {
		h.Leave(sid, id)
	}
	h.Registry.Unbind(sid)
	return rooms
}

// EvictRoom removes every member of id and drops the room.
func (h *Hub) EvictRoom(id domain.RoomID) {
	for _, snap := range h.Registry.MembersOfRoom(id) {
		h.Leave(snap.SID, id)
	}
	h.Rooms.StopRoom(id)
}
