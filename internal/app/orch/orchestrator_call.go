package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/dkeye/voicecall/internal/metrics"
	"github.com/rs/zerolog/log"
)

// CreateCall places a call to calleeID in roomID. It returns once the invite
// was sent; the call is then Outgoing until answered, hung up or timed out.
func (o *Orchestrator) CreateCall(ctx context.Context, roomID domain.RoomID, calleeID domain.UserID, isVideo bool) (domain.CallSession, error) {
	me, ok := o.identity.Identity()
	if !ok {
		return domain.CallSession{}, domain.ErrAuth
	}

	o.mu.Lock()
	if cur := o.slot; cur != nil {
		o.mu.Unlock()
		return domain.CallSession{}, fmt.Errorf("%w: call %s is in progress", domain.ErrConcurrentCall, cur.session.CallID)
	}
	s := newSlot(domain.CallSession{
		CallID:           o.newCallID(),
		RoomID:           roomID,
		CallerID:         me.UserID,
		CallerName:       me.DisplayName,
		CalleeID:         calleeID,
		IsVideo:          isVideo,
		Direction:        domain.DirectionOutgoing,
		State:            domain.CallOutgoing,
		IsCameraEnabled:  isVideo,
		IsSpeakerEnabled: true,
		InviteTimeout:    o.cfg.InviteTimeout,
		CreatedAt:        o.now(),
	})
	o.slot = s
	o.spawn(func() { o.sendLocalCandidates(s) })
	o.mu.Unlock()

	id := s.session.CallID
	l := log.With().Str("module", "orch").Str("call_id", string(id)).Str("room_id", string(roomID)).Logger()

	opCtx, done := s.bind(ctx)
	defer done()

	conn, err := o.media.Open(opCtx, o.cfg)
	if err != nil {
		if !o.abandon(s) {
			return domain.CallSession{}, staleErr(id)
		}
		return domain.CallSession{}, fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)
	}
	if !o.attach(s, conn) {
		return domain.CallSession{}, staleErr(id)
	}

	handle, err := conn.AcquireLocalMedia(opCtx, true, isVideo)
	if err != nil {
		if !o.abandon(s) {
			return domain.CallSession{}, staleErr(id)
		}
		return domain.CallSession{}, fmt.Errorf("%w: %w", domain.ErrMediaFailure, err)
	}

	offer, err := conn.CreateOffer(opCtx)
	if err == nil {
		err = conn.SetLocalDescription(offer)
	}
	if err != nil {
		if !o.abandon(s) {
			return domain.CallSession{}, staleErr(id)
		}
		return domain.CallSession{}, fmt.Errorf("%w: create offer: %w", domain.ErrTransportFailure, err)
	}

	invite := domain.Invite{
		CallID:     id,
		RoomID:     roomID,
		Sender:     me.UserID,
		SenderName: me.DisplayName,
		Offer:      offer,
		IsVideo:    isVideo,
		Timeout:    o.cfg.InviteTimeout,
		Invitee:    calleeID,
	}
	sendCtx, cancel := context.WithTimeout(opCtx, o.cfg.SignalTimeout)
	err = o.signal.SendInvite(sendCtx, invite)
	cancel()
	if err != nil {
		if !o.abandon(s) {
			return domain.CallSession{}, staleErr(id)
		}
		return domain.CallSession{}, fmt.Errorf("%w: send invite: %w", domain.ErrSignalingFailure, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.slot != s {
		l.Info().Msg("call ended before the invite completed")
		return domain.CallSession{}, staleErr(id)
	}
	s.session.LocalMedia = &handle
	s.published = true
	s.announce()
	o.armInviteTimer(s, o.cfg.InviteTimeout)
	o.publishLocked(s)
	metrics.CallsStarted.WithLabelValues(domain.DirectionOutgoing.String()).Inc()
	l.Info().Str("callee", string(calleeID)).Bool("video", isVideo).Msg("invite sent")

	if early := s.earlyAnswer; early != nil {
		s.earlyAnswer = nil
		o.applyAnswerLocked(s, *early)
		if o.slot != s {
			return domain.CallSession{}, fmt.Errorf("%w: apply answer", domain.ErrTransportFailure)
		}
	}
	return s.snapshot(), nil
}

// AnswerCall accepts the incoming call callID. A failed answer send leaves
// the call Incoming and a retry resends the same answer.
func (o *Orchestrator) AnswerCall(ctx context.Context, callID domain.CallID, roomID domain.RoomID) error {
	o.mu.Lock()
	s := o.slot
	if s == nil || !s.matches(callID, roomID) || !s.published ||
		s.session.State != domain.CallIncoming || s.answering {
		o.mu.Unlock()
		return fmt.Errorf("%w: no incoming call %s", domain.ErrNotFound, callID)
	}
	s.answering = true
	conn := s.conn
	cached := s.localAnswer
	answer := domain.Answer{CallID: callID, RoomID: s.session.RoomID, Sender: s.self()}
	o.mu.Unlock()

	opCtx, done := s.bind(ctx)
	defer done()

	if cached == nil {
		desc, err := conn.CreateAnswer(opCtx)
		if err == nil {
			err = conn.SetLocalDescription(desc)
		}
		if err != nil {
			o.mu.Lock()
			if o.slot != s {
				o.mu.Unlock()
				return staleErr(callID)
			}
			ev := o.failLocked(s, domain.ReasonICEFailed, fmt.Errorf("%w: create answer: %w", domain.ErrTransportFailure, err))
			o.mu.Unlock()
			o.sendHangupAsync(ev)
			return fmt.Errorf("%w: create answer: %w", domain.ErrTransportFailure, err)
		}
		cached = &desc
		o.mu.Lock()
		s.localAnswer = cached
		o.mu.Unlock()
	}
	answer.Answer = *cached

	sendCtx, cancel := context.WithTimeout(opCtx, o.cfg.SignalTimeout)
	err := o.signal.SendAnswer(sendCtx, answer)
	cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.slot != s {
		return staleErr(callID)
	}
	s.answering = false
	if err != nil {
		return fmt.Errorf("%w: send answer: %w", domain.ErrSignalingFailure, err)
	}
	o.activateLocked(s)
	log.Info().Str("module", "orch").Str("call_id", string(callID)).Msg("call answered")
	return nil
}

// RejectCall declines callID with reason "reject". Like HangupCall it
// succeeds without effect when callID is not the current call.
func (o *Orchestrator) RejectCall(ctx context.Context, callID domain.CallID, roomID domain.RoomID) error {
	return o.hangup(ctx, callID, roomID, domain.ReasonReject)
}

// HangupCall ends callID in whatever room it lives. An empty reason means
// "user_hangup". Hanging up a call that already ended succeeds without
// effect. The call is torn down even when the hangup could not be
// delivered; the error then wraps ErrSignalingFailure.
func (o *Orchestrator) HangupCall(ctx context.Context, callID domain.CallID, roomID domain.RoomID, reason string) error {
	if reason == "" {
		reason = domain.ReasonUserHangup
	}
	return o.hangup(ctx, callID, roomID, reason)
}

func (o *Orchestrator) hangup(ctx context.Context, callID domain.CallID, roomID domain.RoomID, reason string) error {
	o.mu.Lock()
	s := o.slot
	if s == nil || s.session.CallID != callID {
		o.mu.Unlock()
		log.Debug().Str("module", "orch").Str("call_id", string(callID)).Str("room_id", string(roomID)).Msg("hangup for no current call")
		return nil
	}
	ev := s.hangupEvent(reason)
	o.endLocked(s, domain.CallEnded, reason, nil)
	o.mu.Unlock()

	if err := o.sendHangup(ctx, ev); err != nil {
		return fmt.Errorf("%w: send hangup: %w", domain.ErrSignalingFailure, err)
	}
	return nil
}

// attach binds conn to s and starts forwarding its events. It reports false
// and closes conn when the call ended while the connection was opening.
func (o *Orchestrator) attach(s *callSlot, conn core.MediaConnection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.closed || o.slot != s {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Str("module", "orch").Msg("close stale connection")
		}
		return false
	}
	s.conn = conn
	for _, c := range s.pendingRemote {
		if err := conn.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("call_id", string(s.session.CallID)).Msg("add buffered candidate")
		}
	}
	s.pendingRemote = nil
	o.spawn(func() { o.pumpMedia(s, conn) })
	return true
}

// abandon releases a call whose setup failed before it was announced. It
// reports false when the call had already been ended by someone else.
func (o *Orchestrator) abandon(s *callSlot) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	current := o.slot == s
	if current {
		o.slot = nil
	}
	s.stopTimers()
	s.cancel()
	s.closeConn()
	return current
}

// activateLocked moves the call to Active and swaps the invite timer for the
// ICE connect timer.
func (o *Orchestrator) activateLocked(s *callSlot) {
	if s.inviteTimer != nil {
		s.inviteTimer.Stop()
		s.inviteTimer = nil
	}
	s.session.State = domain.CallActive
	s.localAnswer = nil
	o.armICETimer(s)
	o.publishLocked(s)
}
