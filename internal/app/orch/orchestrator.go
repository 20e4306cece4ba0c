// Package orch owns the single call of a device. Local operations and the
// asynchronous signaling and media events are serialized through one mutex;
// long running collaborator calls happen outside of it and are checked
// against the current call when they complete.
package orch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/dkeye/voicecall/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// StateUpdate is one value of the call state stream. Call is nil when the
// device has no call.
type StateUpdate struct {
	Call *domain.CallSession `json:"call"`
}

type Orchestrator struct {
	media    core.MediaTransport
	signal   core.SignalingChannel
	identity core.IdentityProvider
	cfg      domain.CallConfig

	newCallID func() domain.CallID
	now       func() time.Time

	mu   sync.Mutex
	slot *callSlot

	states   *feed[StateUpdate]
	incoming *feed[domain.CallSession]

	mediaEvents chan mediaEvent
	workers     conc.WaitGroup
}

type Option func(*Orchestrator)

// WithCallIDGenerator replaces the uuid based call id generator.
func WithCallIDGenerator(fn func() domain.CallID) Option {
	return func(o *Orchestrator) { o.newCallID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(media core.MediaTransport, signal core.SignalingChannel, identity core.IdentityProvider, cfg domain.CallConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		media:       media,
		signal:      signal,
		identity:    identity,
		cfg:         cfg,
		newCallID:   func() domain.CallID { return domain.CallID(uuid.NewString()) },
		now:         time.Now,
		states:      newFeed[StateUpdate](8, true),
		incoming:    newFeed[domain.CallSession](4, false),
		mediaEvents: make(chan mediaEvent, 64),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.states.Publish(StateUpdate{})
	return o
}

// Run merges the inbound signaling streams and the media events of the
// current call and applies them one at a time. A pending hangup is always
// applied before anything else. On return the active call, if any, has been
// hung up and every worker has finished.
func (o *Orchestrator) Run(ctx context.Context) error {
	invites := o.signal.Invites()
	answers := o.signal.Answers()
	hangups := o.signal.Hangups()
	candidates := o.signal.Candidates()

	defer o.shutdown()

	drainHangups := func() {
		for hangups != nil {
			select {
			case ev, ok := <-hangups:
				if !ok {
					hangups = nil
					continue
				}
				o.handleRemoteHangup(ev)
			default:
				return
			}
		}
	}

	for {
		drainHangups()

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-hangups:
			if !ok {
				hangups = nil
				continue
			}
			o.handleRemoteHangup(ev)
		case ev, ok := <-invites:
			if !ok {
				invites = nil
				continue
			}
			drainHangups()
			o.handleIncomingInvite(ev)
		case ev, ok := <-answers:
			if !ok {
				answers = nil
				continue
			}
			drainHangups()
			o.handleRemoteAnswer(ev)
		case ev, ok := <-candidates:
			if !ok {
				candidates = nil
				continue
			}
			drainHangups()
			o.handleRemoteCandidates(ev)
		case ev := <-o.mediaEvents:
			drainHangups()
			o.handleMediaEvent(ev)
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.mu.Lock()
	s := o.slot
	var ev domain.Hangup
	if s != nil {
		ev = s.hangupEvent(domain.ReasonUserHangup)
		o.endLocked(s, domain.CallEnded, domain.ReasonUserHangup, nil)
	}
	o.mu.Unlock()

	if s != nil {
		_ = o.sendHangup(context.Background(), ev)
	}
	o.workers.Wait()
	log.Info().Str("module", "orch").Msg("orchestrator stopped")
}

// GetActiveCall returns the announced call of this device, if any.
func (o *Orchestrator) GetActiveCall() (domain.CallSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.slot == nil || !o.slot.published {
		return domain.CallSession{}, false
	}
	return o.slot.snapshot(), true
}

// CallStateUpdates emits the current call, or its absence, on every change.
// The current value is delivered right away; intermediate values may be
// skipped for a slow reader but the latest one is always delivered.
func (o *Orchestrator) CallStateUpdates(ctx context.Context) <-chan StateUpdate {
	return o.states.Subscribe(ctx)
}

// IncomingCalls emits each new unanswered inbound call once.
func (o *Orchestrator) IncomingCalls(ctx context.Context) <-chan domain.CallSession {
	return o.incoming.Subscribe(ctx)
}

func (o *Orchestrator) spawn(fn func()) {
	o.workers.Go(fn)
}

func (o *Orchestrator) publishLocked(s *callSlot) {
	if !s.published {
		return
	}
	snap := s.snapshot()
	o.states.Publish(StateUpdate{Call: &snap})
}

// endLocked tears the call down: timers, workers and the connection are
// released and an announced call publishes its final state followed by the
// absence of a call. The caller sends any hangup after unlocking.
func (o *Orchestrator) endLocked(s *callSlot, state domain.CallState, reason string, cause error) {
	if o.slot != s {
		return
	}
	o.slot = nil
	s.stopTimers()
	s.cancel()
	s.closeConn()

	s.session.State = state
	s.session.EndReason = reason
	s.session.Err = cause
	if s.published {
		o.publishLocked(s)
		o.states.Publish(StateUpdate{})
	}

	metrics.CallsEnded.WithLabelValues(state.String(), reason).Inc()
	ev := log.Info()
	if cause != nil {
		ev = log.Warn().Err(cause)
	}
	ev.Str("module", "orch").
		Str("call_id", string(s.session.CallID)).
		Str("room_id", string(s.session.RoomID)).
		Str("state", state.String()).
		Str("reason", reason).
		Msg("call ended")
}

// failLocked ends the call as Failed and returns the hangup to send.
func (o *Orchestrator) failLocked(s *callSlot, reason string, cause error) domain.Hangup {
	ev := s.hangupEvent(reason)
	o.endLocked(s, domain.CallFailed, reason, cause)
	return ev
}

// sendHangup sends ev with its own deadline; ctx only contributes values.
// Failures are logged and returned.
func (o *Orchestrator) sendHangup(ctx context.Context, ev domain.Hangup) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.SignalTimeout)
	defer cancel()
	if err := o.signal.SendHangup(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("module", "orch").
			Str("call_id", string(ev.CallID)).
			Str("reason", ev.Reason).
			Msg("hangup not delivered")
		return err
	}
	return nil
}

// sendHangupAsync is the best-effort hangup of failure paths.
func (o *Orchestrator) sendHangupAsync(ev domain.Hangup) {
	o.spawn(func() { _ = o.sendHangup(context.Background(), ev) })
}

// armInviteTimer fails the call if it has not become active within d.
func (o *Orchestrator) armInviteTimer(s *callSlot, d time.Duration) {
	s.inviteTimer = time.AfterFunc(d, func() {
		o.mu.Lock()
		if o.slot != s || s.session.State == domain.CallActive {
			o.mu.Unlock()
			return
		}
		ev := o.failLocked(s, domain.ReasonInviteTimeout,
			fmt.Errorf("%w: no answer within %s", domain.ErrTimeout, d))
		o.mu.Unlock()
		_ = o.sendHangup(context.Background(), ev)
	})
}

// armICETimer fails an active call whose transport never connects.
func (o *Orchestrator) armICETimer(s *callSlot) {
	d := o.cfg.ICETimeout
	if s.connected || d <= 0 {
		return
	}
	s.iceTimer = time.AfterFunc(d, func() {
		o.mu.Lock()
		if o.slot != s || s.connected {
			o.mu.Unlock()
			return
		}
		ev := o.failLocked(s, domain.ReasonICETimeout,
			fmt.Errorf("%w: ice not connected within %s", domain.ErrTimeout, d))
		o.mu.Unlock()
		_ = o.sendHangup(context.Background(), ev)
	})
}

func staleErr(id domain.CallID) error {
	return fmt.Errorf("%w: call %s ended while in progress", domain.ErrNotFound, id)
}
