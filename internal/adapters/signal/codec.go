// Package signal carries call events between this device and the room hub.
package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/voicecall/internal/domain"
	"github.com/pion/sdp/v3"
)

// Call event types as they appear on the wire.
const (
	TypeInvite     = "m.call.invite"
	TypeAnswer     = "m.call.answer"
	TypeCandidates = "m.call.candidates"
	TypeHangup     = "m.call.hangup"
)

// IsCallEvent reports whether t names one of the four call events.
func IsCallEvent(t string) bool {
	switch t {
	case TypeInvite, TypeAnswer, TypeCandidates, TypeHangup:
		return true
	}
	return false
}

var ErrBadEvent = errors.New("malformed call event")

// Envelope is one room-scoped hub message. Content is kept raw so the hub
// relays it untouched.
type Envelope struct {
	Type       string          `json:"type"`
	RoomID     domain.RoomID   `json:"room_id,omitempty"`
	Sender     domain.UserID   `json:"sender,omitempty"`
	SenderName string          `json:"sender_name,omitempty"`
	TxnID      string          `json:"txn_id,omitempty"`
	EventID    string          `json:"event_id,omitempty"`
	Error      string          `json:"error,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
}

type inviteContent struct {
	CallID  domain.CallID             `json:"call_id"`
	Sender  domain.UserID             `json:"sender"`
	Offer   domain.SessionDescription `json:"offer"`
	Timeout *int64                    `json:"timeout,omitempty"`
	Invitee domain.UserID             `json:"invitee,omitempty"`
}

type answerContent struct {
	CallID domain.CallID             `json:"call_id"`
	Answer domain.SessionDescription `json:"answer"`
}

type candidatesContent struct {
	CallID     domain.CallID         `json:"call_id"`
	Candidates []domain.IceCandidate `json:"candidates"`
}

type hangupContent struct {
	CallID domain.CallID `json:"call_id"`
	Reason string        `json:"reason"`
}

// Encode builds the envelope for ev. The hub fills in event_id and restamps
// the sender.
func Encode(ev domain.SignalingEvent) (Envelope, error) {
	env := Envelope{RoomID: ev.EventRoomID()}
	var content any
	switch e := ev.(type) {
	case domain.Invite:
		timeout := e.EffectiveTimeout().Milliseconds()
		env.Type, env.Sender, env.SenderName = TypeInvite, e.Sender, e.SenderName
		content = inviteContent{
			CallID:  e.CallID,
			Sender:  e.Sender,
			Offer:   domain.SessionDescription{Type: domain.SDPOffer, SDP: e.Offer.SDP},
			Timeout: &timeout,
			Invitee: e.Invitee,
		}
	case domain.Answer:
		env.Type, env.Sender = TypeAnswer, e.Sender
		content = answerContent{
			CallID: e.CallID,
			Answer: domain.SessionDescription{Type: domain.SDPAnswer, SDP: e.Answer.SDP},
		}
	case domain.Candidates:
		env.Type, env.Sender = TypeCandidates, e.Sender
		cands := e.Candidates
		if cands == nil {
			cands = []domain.IceCandidate{}
		}
		content = candidatesContent{CallID: e.CallID, Candidates: cands}
	case domain.Hangup:
		env.Type, env.Sender = TypeHangup, e.Sender
		content = hangupContent{CallID: e.CallID, Reason: e.Reason}
	default:
		return Envelope{}, fmt.Errorf("%w: unsupported event %T", ErrBadEvent, ev)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", env.Type, err)
	}
	env.Content = raw
	return env, nil
}

// Decode turns a relayed envelope back into a call event. The sender is the
// one the hub stamped on the envelope.
func Decode(env Envelope) (domain.SignalingEvent, error) {
	if len(env.Content) == 0 {
		return nil, fmt.Errorf("%w: %s without content", ErrBadEvent, env.Type)
	}
	switch env.Type {
	case TypeInvite:
		var c inviteContent
		if err := unmarshal(env, &c); err != nil {
			return nil, err
		}
		if c.Offer.SDP == "" {
			return nil, fmt.Errorf("%w: invite %s without offer", ErrBadEvent, c.CallID)
		}
		timeout := domain.DefaultInviteTimeout
		if c.Timeout != nil && *c.Timeout > 0 {
			timeout = time.Duration(*c.Timeout) * time.Millisecond
		}
		sender := env.Sender
		if sender == "" {
			sender = c.Sender
		}
		return domain.Invite{
			CallID:     c.CallID,
			RoomID:     env.RoomID,
			Sender:     sender,
			SenderName: env.SenderName,
			Invitee:    c.Invitee,
			Offer:      domain.SessionDescription{Type: domain.SDPOffer, SDP: c.Offer.SDP},
			IsVideo:    HasVideo(c.Offer.SDP),
			Timeout:    timeout,
		}, nil
	case TypeAnswer:
		var c answerContent
		if err := unmarshal(env, &c); err != nil {
			return nil, err
		}
		return domain.Answer{
			CallID: c.CallID,
			RoomID: env.RoomID,
			Sender: env.Sender,
			Answer: domain.SessionDescription{Type: domain.SDPAnswer, SDP: c.Answer.SDP},
		}, nil
	case TypeCandidates:
		var c candidatesContent
		if err := unmarshal(env, &c); err != nil {
			return nil, err
		}
		return domain.Candidates{CallID: c.CallID, RoomID: env.RoomID, Sender: env.Sender, Candidates: c.Candidates}, nil
	case TypeHangup:
		var c hangupContent
		if err := unmarshal(env, &c); err != nil {
			return nil, err
		}
		return domain.Hangup{CallID: c.CallID, RoomID: env.RoomID, Sender: env.Sender, Reason: c.Reason}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrBadEvent, env.Type)
	}
}

func unmarshal(env Envelope, v any) error {
	if err := json.Unmarshal(env.Content, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadEvent, env.Type, err)
	}
	return nil
}

// HasVideo reports whether the offer negotiates an active video section.
func HasVideo(offer string) bool {
	var desc sdp.SessionDescription
	if err := desc.UnmarshalString(offer); err != nil {
		return strings.Contains(offer, "\nm=video ")
	}
	for _, m := range desc.MediaDescriptions {
		if m.MediaName.Media == "video" && m.MediaName.Port.Value != 0 {
			return true
		}
	}
	return false
}
