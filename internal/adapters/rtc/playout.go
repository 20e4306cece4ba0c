package rtc

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

type SinkState int32

const (
	SinkActive SinkState = iota
	SinkMuted
	SinkDelete
)

// Sink consumes the RTP packets of one remote track.
type Sink interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// outSink is a sink together with its delivery state.
type outSink struct {
	sink  Sink
	state atomic.Int32
}

func (o *outSink) State() SinkState { return SinkState(o.state.Load()) }
func (o *outSink) Mark(s SinkState) { o.state.Store(int32(s)) }

// packetReader is the read side of a remote track.
type packetReader func() (*rtp.Packet, error)

// Playout fans the packets of one remote track out to its sinks.
type Playout struct {
	read packetReader
	kind string

	mu    sync.RWMutex
	sinks map[string]*outSink
}

func newPlayout(kind string, read packetReader) *Playout {
	return &Playout{read: read, kind: kind, sinks: make(map[string]*outSink)}
}

func (p *Playout) AddSink(name string, s Sink, state SinkState) {
	o := &outSink{sink: s}
	o.Mark(state)
	p.mu.Lock()
	old := p.sinks[name]
	p.sinks[name] = o
	p.mu.Unlock()
	if old != nil {
		_ = old.sink.Close()
	}
}

// Mute toggles every sink between active and muted.
func (p *Playout) Mute(muted bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, o := range p.sinks {
		switch {
		case muted && o.State() == SinkActive:
			o.Mark(SinkMuted)
		case !muted && o.State() == SinkMuted:
			o.Mark(SinkActive)
		}
	}
}

// loop reads packets until the track ends or ctx is done, then closes every
// sink.
func (p *Playout) loop(ctx context.Context, logger *zerolog.Logger) {
	defer p.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		pkt, err := p.read()
		if err != nil {
			logger.Debug().Err(err).Msg("playout read stopped")
			return
		}
		p.forward(pkt, logger)
	}
}

func (p *Playout) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	snapshot := make(map[string]*outSink, len(p.sinks))
	p.mu.RLock()
	maps.Copy(snapshot, p.sinks)
	p.mu.RUnlock()

	var dirty []string
	for name, o := range snapshot {
		switch o.State() {
		case SinkDelete:
			dirty = append(dirty, name)
		case SinkMuted:
		case SinkActive:
			if err := o.sink.WriteRTP(pkt); err != nil {
				logger.Error().Err(err).Str("sink", name).Msg("sink write failed, removing")
				o.Mark(SinkDelete)
				dirty = append(dirty, name)
			}
		}
	}
	if len(dirty) > 0 {
		p.cleanup(dirty)
	}
}

func (p *Playout) cleanup(dirty []string) {
	p.mu.Lock()
	removed := make([]*outSink, 0, len(dirty))
	for _, name := range dirty {
		if o, ok := p.sinks[name]; ok {
			removed = append(removed, o)
			delete(p.sinks, name)
		}
	}
	p.mu.Unlock()
	for _, o := range removed {
		_ = o.sink.Close()
	}
}

func (p *Playout) closeAll() {
	p.mu.Lock()
	sinks := p.sinks
	p.sinks = make(map[string]*outSink)
	p.mu.Unlock()
	for _, o := range sinks {
		_ = o.sink.Close()
	}
}

// meterSink stands in for the speaker: it only counts what it is given.
type meterSink struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func (m *meterSink) WriteRTP(pkt *rtp.Packet) error {
	m.packets.Add(1)
	m.bytes.Add(uint64(len(pkt.Payload)))
	return nil
}

func (m *meterSink) Close() error { return nil }
