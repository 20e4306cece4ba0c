package domain

import "time"

// CallID correlates the signaling events of one call. It is only compared
// against the single locally tracked session, never treated as globally unique.
type CallID string

type CallState int

const (
	CallOutgoing CallState = iota
	CallIncoming
	CallActive
	CallEnded
	CallFailed
)

func (s CallState) String() string {
	switch s {
	case CallOutgoing:
		return "outgoing"
	case CallIncoming:
		return "incoming"
	case CallActive:
		return "active"
	case CallEnded:
		return "ended"
	case CallFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Live reports whether the state still owns transport resources.
func (s CallState) Live() bool {
	return s == CallOutgoing || s == CallIncoming || s == CallActive
}

func (s CallState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
)

func (d Direction) String() string {
	if d == DirectionIncoming {
		return "incoming"
	}
	return "outgoing"
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// MediaHandle identifies a media stream owned by the transport. The session
// only carries the handle; the transport keeps the tracks themselves.
type MediaHandle struct {
	StreamID string      `json:"stream_id"`
	Kinds    []MediaKind `json:"kinds"`
}

func (h MediaHandle) Has(kind MediaKind) bool {
	for _, k := range h.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CallSession is a value snapshot of the one call a device may have.
// LocalMedia and RemoteMedia are nil until the transport produced them.
type CallSession struct {
	CallID           CallID        `json:"call_id"`
	RoomID           RoomID        `json:"room_id"`
	CallerID         UserID        `json:"caller_id"`
	CallerName       string        `json:"caller_name"`
	CalleeID         UserID        `json:"callee_id"`
	CalleeName       string        `json:"callee_name"`
	IsVideo          bool          `json:"is_video"`
	Direction        Direction     `json:"direction"`
	State            CallState     `json:"state"`
	IsMuted          bool          `json:"is_muted"`
	IsCameraEnabled  bool          `json:"is_camera_enabled"`
	IsSpeakerEnabled bool          `json:"is_speaker_enabled"`
	LocalMedia       *MediaHandle  `json:"local_media,omitempty"`
	RemoteMedia      *MediaHandle  `json:"remote_media,omitempty"`
	InviteTimeout    time.Duration `json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	ConnectedAt      time.Time     `json:"connected_at,omitzero"`
	EndReason        string        `json:"end_reason,omitempty"`
	Err              error         `json:"-"`
}

// Peer returns the other party of the call as seen from this device.
func (s CallSession) Peer() (UserID, string) {
	if s.Direction == DirectionIncoming {
		return s.CallerID, s.CallerName
	}
	return s.CalleeID, s.CalleeName
}

// Clone returns a snapshot that shares no pointers with s.
func (s CallSession) Clone() CallSession {
	if s.LocalMedia != nil {
		h := cloneHandle(*s.LocalMedia)
		s.LocalMedia = &h
	}
	if s.RemoteMedia != nil {
		h := cloneHandle(*s.RemoteMedia)
		s.RemoteMedia = &h
	}
	return s
}

func cloneHandle(h MediaHandle) MediaHandle {
	h.Kinds = append([]MediaKind(nil), h.Kinds...)
	return h
}

// Identity is the signed-in user of this device.
type Identity struct {
	UserID      UserID
	DisplayName string
}
