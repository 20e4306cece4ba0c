package domain

import "time"

// DefaultInviteTimeout applies when an invite carries no timeout.
const DefaultInviteTimeout = 30 * time.Second

// Hangup reasons understood by both ends of a call.
const (
	ReasonUserHangup      = "user_hangup"
	ReasonReject          = "reject"
	ReasonBusy            = "busy"
	ReasonInviteTimeout   = "invite_timeout"
	ReasonICETimeout      = "ice_timeout"
	ReasonICEFailed       = "ice_failed"
	ReasonUserMediaFailed = "user_media_failed"
)

type SDPType string

const (
	SDPOffer  SDPType = "offer"
	SDPAnswer SDPType = "answer"
)

type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

// IceCandidate is exchanged in both directions and carries no transport types.
type IceCandidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex int    `json:"sdpMLineIndex"`
}

// SignalingEvent is one of Invite, Answer, Candidates or Hangup.
type SignalingEvent interface {
	EventCallID() CallID
	EventRoomID() RoomID
	isSignalingEvent()
}

type Invite struct {
	CallID     CallID
	RoomID     RoomID
	Sender     UserID
	SenderName string
	Offer      SessionDescription
	IsVideo    bool
	Timeout    time.Duration
	Invitee    UserID // empty rings every member of the room
}

type Answer struct {
	CallID CallID
	RoomID RoomID
	Sender UserID
	Answer SessionDescription
}

type Candidates struct {
	CallID     CallID
	RoomID     RoomID
	Sender     UserID
	Candidates []IceCandidate
}

type Hangup struct {
	CallID CallID
	RoomID RoomID
	Sender UserID
	Reason string
}

func (e Invite) EventCallID() CallID     { return e.CallID }
func (e Answer) EventCallID() CallID     { return e.CallID }
func (e Candidates) EventCallID() CallID { return e.CallID }
func (e Hangup) EventCallID() CallID     { return e.CallID }

func (e Invite) EventRoomID() RoomID     { return e.RoomID }
func (e Answer) EventRoomID() RoomID     { return e.RoomID }
func (e Candidates) EventRoomID() RoomID { return e.RoomID }
func (e Hangup) EventRoomID() RoomID     { return e.RoomID }

func (Invite) isSignalingEvent()     {}
func (Answer) isSignalingEvent()     {}
func (Candidates) isSignalingEvent() {}
func (Hangup) isSignalingEvent()     {}

// EffectiveTimeout returns the invite lifetime, falling back to the default.
func (e Invite) EffectiveTimeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultInviteTimeout
	}
	return e.Timeout
}
