package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/voicecall/internal/domain"
	"github.com/dkeye/voicecall/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	kindInvite     = "invite"
	kindAnswer     = "answer"
	kindHangup     = "hangup"
	kindCandidates = "candidates"
)

func (o *Orchestrator) handleIncomingInvite(ev domain.Invite) {
	l := log.With().Str("module", "orch").Str("call_id", string(ev.CallID)).Str("room_id", string(ev.RoomID)).Logger()

	me, ok := o.identity.Identity()
	if !ok {
		l.Warn().Msg("invite dropped: no identity")
		metrics.SignalingEvents.WithLabelValues(kindInvite, metrics.ResultDropped).Inc()
		return
	}

	if ev.Invitee != "" && ev.Invitee != me.UserID {
		l.Debug().Str("invitee", string(ev.Invitee)).Msg("invite for another member ignored")
		metrics.SignalingEvents.WithLabelValues(kindInvite, metrics.ResultDropped).Inc()
		return
	}

	o.mu.Lock()
	if cur := o.slot; cur != nil {
		o.mu.Unlock()
		if cur.session.CallID == ev.CallID {
			l.Debug().Msg("duplicate invite ignored")
			metrics.SignalingEvents.WithLabelValues(kindInvite, metrics.ResultDropped).Inc()
			return
		}
		l.Info().Str("active_call", string(cur.session.CallID)).Msg("busy, declining invite")
		metrics.SignalingEvents.WithLabelValues(kindInvite, metrics.ResultBusy).Inc()
		o.sendHangupAsync(domain.Hangup{
			CallID: ev.CallID,
			RoomID: ev.RoomID,
			Sender: me.UserID,
			Reason: domain.ReasonBusy,
		})
		return
	}

	timeout := ev.EffectiveTimeout()
	s := newSlot(domain.CallSession{
		CallID:           ev.CallID,
		RoomID:           ev.RoomID,
		CallerID:         ev.Sender,
		CallerName:       ev.SenderName,
		CalleeID:         me.UserID,
		CalleeName:       me.DisplayName,
		IsVideo:          ev.IsVideo,
		Direction:        domain.DirectionIncoming,
		State:            domain.CallIncoming,
		IsCameraEnabled:  ev.IsVideo,
		IsSpeakerEnabled: true,
		InviteTimeout:    timeout,
		CreatedAt:        o.now(),
	})
	s.announce()
	o.slot = s
	o.armInviteTimer(s, timeout)
	o.spawn(func() { o.sendLocalCandidates(s) })
	o.spawn(func() { o.setupIncoming(s, ev) })
	o.mu.Unlock()

	metrics.SignalingEvents.WithLabelValues(kindInvite, metrics.ResultApplied).Inc()
	l.Info().Str("caller", string(ev.Sender)).Bool("video", ev.IsVideo).Msg("incoming invite")
}

// setupIncoming prepares the connection of an incoming call and announces it
// once the remote offer is in place.
func (o *Orchestrator) setupIncoming(s *callSlot, ev domain.Invite) {
	conn, err := o.media.Open(s.ctx, o.cfg)
	if err != nil {
		o.abortIncoming(s, domain.ReasonICEFailed, fmt.Errorf("%w: %w", domain.ErrTransportFailure, err))
		return
	}
	if !o.attach(s, conn) {
		return
	}

	handle, err := conn.AcquireLocalMedia(s.ctx, true, ev.IsVideo)
	if err != nil {
		o.abortIncoming(s, domain.ReasonUserMediaFailed, fmt.Errorf("%w: %w", domain.ErrMediaFailure, err))
		return
	}
	if err := conn.SetRemoteDescription(ev.Offer); err != nil {
		o.abortIncoming(s, domain.ReasonICEFailed, fmt.Errorf("%w: set offer: %w", domain.ErrTransportFailure, err))
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.slot != s {
		return
	}
	s.session.LocalMedia = &handle
	s.published = true
	o.publishLocked(s)
	o.incoming.Publish(s.snapshot())
	metrics.CallsStarted.WithLabelValues(domain.DirectionIncoming.String()).Inc()
}

func (o *Orchestrator) abortIncoming(s *callSlot, reason string, cause error) {
	o.mu.Lock()
	if o.slot != s {
		o.mu.Unlock()
		return
	}
	ev := o.failLocked(s, reason, cause)
	o.mu.Unlock()
	_ = o.sendHangup(context.Background(), ev)
}

func (o *Orchestrator) handleRemoteAnswer(ev domain.Answer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	l := log.With().Str("module", "orch").Str("call_id", string(ev.CallID)).Logger()
	s := o.slot
	if s == nil || s.session.CallID != ev.CallID {
		l.Debug().Msg("answer for unknown call dropped")
		metrics.SignalingEvents.WithLabelValues(kindAnswer, metrics.ResultDropped).Inc()
		return
	}
	if ev.Sender != s.peer() {
		l.Info().Str("sender", string(ev.Sender)).Msg("answer from a non-participant dropped")
		metrics.SignalingEvents.WithLabelValues(kindAnswer, metrics.ResultDropped).Inc()
		return
	}
	if s.session.Direction != domain.DirectionOutgoing || s.session.State != domain.CallOutgoing {
		l.Info().Str("state", s.session.State.String()).Msg("answer discarded")
		metrics.SignalingEvents.WithLabelValues(kindAnswer, metrics.ResultDropped).Inc()
		return
	}
	if !s.published {
		// The invite send has not returned yet.
		if s.earlyAnswer == nil {
			s.earlyAnswer = &ev
		}
		return
	}
	o.applyAnswerLocked(s, ev)
}

func (o *Orchestrator) applyAnswerLocked(s *callSlot, ev domain.Answer) {
	if err := s.conn.SetRemoteDescription(ev.Answer); err != nil {
		hangup := o.failLocked(s, domain.ReasonICEFailed, fmt.Errorf("%w: set answer: %w", domain.ErrTransportFailure, err))
		o.sendHangupAsync(hangup)
		metrics.SignalingEvents.WithLabelValues(kindAnswer, metrics.ResultDropped).Inc()
		return
	}
	o.activateLocked(s)
	metrics.SignalingEvents.WithLabelValues(kindAnswer, metrics.ResultApplied).Inc()
	log.Info().Str("module", "orch").Str("call_id", string(ev.CallID)).Msg("call answered by peer")
}

// handleRemoteHangup ends the matching call whatever state it is in. Only
// the peer can end it; no hangup is sent back.
func (o *Orchestrator) handleRemoteHangup(ev domain.Hangup) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.slot
	if s == nil || s.session.CallID != ev.CallID {
		log.Debug().Str("module", "orch").Str("call_id", string(ev.CallID)).Msg("hangup for unknown call dropped")
		metrics.SignalingEvents.WithLabelValues(kindHangup, metrics.ResultDropped).Inc()
		return
	}
	if ev.Sender != s.peer() {
		log.Info().Str("module", "orch").Str("call_id", string(ev.CallID)).Str("sender", string(ev.Sender)).
			Msg("hangup from a non-participant dropped")
		metrics.SignalingEvents.WithLabelValues(kindHangup, metrics.ResultDropped).Inc()
		return
	}
	reason := ev.Reason
	if reason == "" {
		reason = domain.ReasonUserHangup
	}
	o.endLocked(s, domain.CallEnded, reason, nil)
	metrics.SignalingEvents.WithLabelValues(kindHangup, metrics.ResultApplied).Inc()
}

// handleRemoteCandidates hands the candidates of the current call to its
// connection in arrival order.
func (o *Orchestrator) handleRemoteCandidates(ev domain.Candidates) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.slot
	if s == nil || s.session.CallID != ev.CallID || ev.Sender != s.peer() {
		metrics.SignalingEvents.WithLabelValues(kindCandidates, metrics.ResultDropped).Inc()
		return
	}
	metrics.SignalingEvents.WithLabelValues(kindCandidates, metrics.ResultApplied).Inc()
	if s.conn == nil {
		s.pendingRemote = append(s.pendingRemote, ev.Candidates...)
		return
	}
	for _, c := range ev.Candidates {
		if err := s.conn.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("call_id", string(ev.CallID)).Msg("add remote candidate")
		}
	}
}
