package orch

import (
	"context"
	"time"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/rs/zerolog/log"
)

// callSlot owns everything belonging to the one call of this device. All
// fields are guarded by Orchestrator.mu except ctx, announced and wake.
type callSlot struct {
	session domain.CallSession

	// published is set once the call was announced on the state feed.
	published bool
	answering bool
	connected bool
	closed    bool

	conn core.MediaConnection

	ctx    context.Context
	cancel context.CancelFunc

	inviteTimer *time.Timer
	iceTimer    *time.Timer

	// remote candidates that arrived before the connection was opened
	pendingRemote []domain.IceCandidate

	// local candidates waiting for the sender
	outbox []domain.IceCandidate
	wake   chan struct{}

	// announced is closed once the peer knows the call id.
	announced   chan struct{}
	isAnnounced bool

	localAnswer *domain.SessionDescription
	earlyAnswer *domain.Answer
}

func newSlot(session domain.CallSession) *callSlot {
	ctx, cancel := context.WithCancel(context.Background())
	return &callSlot{
		session:   session,
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		announced: make(chan struct{}),
	}
}

// matches reports whether the ids name this call. An empty room id matches
// any room.
func (s *callSlot) matches(callID domain.CallID, roomID domain.RoomID) bool {
	if s.session.CallID != callID {
		return false
	}
	return roomID == "" || roomID == s.session.RoomID
}

func (s *callSlot) announce() {
	if !s.isAnnounced {
		s.isAnnounced = true
		close(s.announced)
	}
}

func (s *callSlot) queueLocal(c domain.IceCandidate) {
	s.outbox = append(s.outbox, c)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *callSlot) stopTimers() {
	if s.inviteTimer != nil {
		s.inviteTimer.Stop()
		s.inviteTimer = nil
	}
	if s.iceTimer != nil {
		s.iceTimer.Stop()
		s.iceTimer = nil
	}
}

// closeConn closes the connection at most once. A connection attached after
// the slot was closed is closed by attach instead.
func (s *callSlot) closeConn() {
	if s.closed {
		return
	}
	s.closed = true
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("call_id", string(s.session.CallID)).Msg("close connection")
	}
}

// bind derives a context from ctx that is also cancelled when the call ends.
func (s *callSlot) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *callSlot) snapshot() domain.CallSession {
	return s.session.Clone()
}

// self is the local party of the call.
func (s *callSlot) self() domain.UserID {
	if s.session.Direction == domain.DirectionIncoming {
		return s.session.CalleeID
	}
	return s.session.CallerID
}

// peer is the remote party of the call.
func (s *callSlot) peer() domain.UserID {
	if s.session.Direction == domain.DirectionIncoming {
		return s.session.CallerID
	}
	return s.session.CalleeID
}

func (s *callSlot) hangupEvent(reason string) domain.Hangup {
	return domain.Hangup{
		CallID: s.session.CallID,
		RoomID: s.session.RoomID,
		Sender: s.self(),
		Reason: reason,
	}
}
