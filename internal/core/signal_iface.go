package core

import (
	"context"

	"github.com/dkeye/voicecall/internal/domain"
)

// SignalingChannel carries the four call events over a room-scoped transport.
// The inbound channels are independent: no causal order holds across them.
type SignalingChannel interface {
	SendInvite(ctx context.Context, ev domain.Invite) error
	SendAnswer(ctx context.Context, ev domain.Answer) error
	SendHangup(ctx context.Context, ev domain.Hangup) error
	SendIceCandidates(ctx context.Context, ev domain.Candidates) error

	Invites() <-chan domain.Invite
	Answers() <-chan domain.Answer
	Hangups() <-chan domain.Hangup
	Candidates() <-chan domain.Candidates
}

// Frame is a raw payload queued towards a hub member.
type Frame []byte

// SignalConnection abstracts a hub member's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
