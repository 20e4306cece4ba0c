package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/rs/zerolog/log"
)

// mediaEvent is one output of a call's connection. Exactly one of the
// pointers is set.
type mediaEvent struct {
	slot      *callSlot
	candidate *domain.IceCandidate
	track     *domain.MediaHandle
	state     *core.ConnectionState
}

// ToggleMute mutes or unmutes the local microphone of callID.
func (o *Orchestrator) ToggleMute(callID domain.CallID, muted bool) error {
	return o.toggle(callID, "mute", func(s *callSlot) error {
		if err := s.conn.ToggleAudio(!muted); err != nil {
			return err
		}
		s.session.IsMuted = muted
		return nil
	})
}

func (o *Orchestrator) ToggleCamera(callID domain.CallID, enabled bool) error {
	return o.toggle(callID, "camera", func(s *callSlot) error {
		if err := s.conn.ToggleVideo(enabled); err != nil {
			return err
		}
		s.session.IsCameraEnabled = enabled
		return nil
	})
}

func (o *Orchestrator) ToggleSpeaker(callID domain.CallID, enabled bool) error {
	return o.toggle(callID, "speaker", func(s *callSlot) error {
		if err := s.conn.ToggleSpeaker(enabled); err != nil {
			return err
		}
		s.session.IsSpeakerEnabled = enabled
		return nil
	})
}

// SwitchCamera flips between the front and back camera. The device is
// reopened outside the lock.
func (o *Orchestrator) SwitchCamera(ctx context.Context, callID domain.CallID) error {
	o.mu.Lock()
	s, err := o.liveLocked(callID)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	conn := s.conn
	o.mu.Unlock()

	opCtx, done := s.bind(ctx)
	defer done()
	if err := conn.SwitchCamera(opCtx); err != nil {
		return fmt.Errorf("%w: switch camera: %w", domain.ErrMediaFailure, err)
	}
	return nil
}

func (o *Orchestrator) toggle(callID domain.CallID, what string, apply func(*callSlot) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, err := o.liveLocked(callID)
	if err != nil {
		return err
	}
	if err := apply(s); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrMediaFailure, what, err)
	}
	o.publishLocked(s)
	return nil
}

// liveLocked returns the announced call callID with an open connection.
func (o *Orchestrator) liveLocked(callID domain.CallID) (*callSlot, error) {
	s := o.slot
	if s == nil || s.session.CallID != callID || !s.published || s.conn == nil {
		return nil, fmt.Errorf("%w: no active call %s", domain.ErrNotFound, callID)
	}
	return s, nil
}

// SendIceCandidates sends candidates for callID to the peer right away,
// bypassing the queue of gathered candidates.
func (o *Orchestrator) SendIceCandidates(ctx context.Context, callID domain.CallID, roomID domain.RoomID, candidates []domain.IceCandidate) error {
	o.mu.Lock()
	s := o.slot
	if s == nil || !s.matches(callID, roomID) {
		o.mu.Unlock()
		return fmt.Errorf("%w: no call %s", domain.ErrNotFound, callID)
	}
	ev := domain.Candidates{
		CallID:     callID,
		RoomID:     s.session.RoomID,
		Sender:     s.self(),
		Candidates: append([]domain.IceCandidate(nil), candidates...),
	}
	o.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(ctx, o.cfg.SignalTimeout)
	defer cancel()
	if err := o.signal.SendIceCandidates(sendCtx, ev); err != nil {
		return fmt.Errorf("%w: send candidates: %w", domain.ErrSignalingFailure, err)
	}
	return nil
}

// pumpMedia forwards the outputs of conn to the dispatcher until the call
// ends.
func (o *Orchestrator) pumpMedia(s *callSlot, conn core.MediaConnection) {
	candidates, tracks, states := conn.Candidates(), conn.Tracks(), conn.States()
	for candidates != nil || tracks != nil || states != nil {
		ev := mediaEvent{slot: s}
		select {
		case <-s.ctx.Done():
			return
		case c, ok := <-candidates:
			if !ok {
				candidates = nil
				continue
			}
			ev.candidate = &c
		case h, ok := <-tracks:
			if !ok {
				tracks = nil
				continue
			}
			ev.track = &h
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			ev.state = &st
		}
		select {
		case o.mediaEvents <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) handleMediaEvent(ev mediaEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := ev.slot
	if o.slot != s {
		return
	}
	l := log.With().Str("module", "orch").Str("call_id", string(s.session.CallID)).Logger()

	switch {
	case ev.candidate != nil:
		s.queueLocal(*ev.candidate)
	case ev.track != nil:
		h := *ev.track
		s.session.RemoteMedia = &h
		l.Info().Str("stream", h.StreamID).Msg("remote media")
		o.publishLocked(s)
	case ev.state != nil:
		l.Debug().Str("connection", ev.state.String()).Msg("connection state")
		switch *ev.state {
		case core.ConnectionConnected:
			if s.connected {
				return
			}
			s.connected = true
			s.session.ConnectedAt = o.now()
			if s.iceTimer != nil {
				s.iceTimer.Stop()
				s.iceTimer = nil
			}
			o.publishLocked(s)
		case core.ConnectionFailed, core.ConnectionClosed:
			hangup := o.failLocked(s, domain.ReasonICEFailed,
				fmt.Errorf("%w: connection %s", domain.ErrTransportFailure, ev.state))
			o.sendHangupAsync(hangup)
		}
	}
}

// sendLocalCandidates sends gathered candidates in batches, in the order they
// were gathered, once the peer knows the call.
func (o *Orchestrator) sendLocalCandidates(s *callSlot) {
	select {
	case <-s.announced:
	case <-s.ctx.Done():
		return
	}
	for {
		o.mu.Lock()
		batch := s.outbox
		s.outbox = nil
		ev := domain.Candidates{CallID: s.session.CallID, RoomID: s.session.RoomID, Sender: s.self()}
		o.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-s.wake:
				continue
			case <-s.ctx.Done():
				return
			}
		}

		ev.Candidates = batch
		ctx, cancel := context.WithTimeout(s.ctx, o.cfg.SignalTimeout)
		err := o.signal.SendIceCandidates(ctx, ev)
		cancel()
		if err != nil && s.ctx.Err() == nil {
			log.Warn().Err(err).Str("module", "orch").Str("call_id", string(ev.CallID)).Int("count", len(batch)).Msg("send local candidates")
		}
	}
}
