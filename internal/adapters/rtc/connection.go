package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var (
	ErrNoTrack = errors.New("no such local track")
	ErrClosed  = errors.New("connection closed")
)

// localTrack is one captured source feeding a local track.
type localTrack struct {
	track  *webrtc.TrackLocalStaticSample
	sender *webrtc.RTPSender
	src    Source
	stop   context.CancelFunc
}

// Connection is the pion peer connection of one call.
type Connection struct {
	pc        *webrtc.PeerConnection
	id        string
	devices   Devices
	recordDir string
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu        sync.Mutex
	closed    bool
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	audio     *localTrack
	video     *localTrack
	facing    Facing
	speaker   bool
	playouts  []*Playout
	remote    domain.MediaHandle

	candidates chan domain.IceCandidate
	tracks     chan domain.MediaHandle
	states     chan core.ConnectionState
}

func newConnection(pc *webrtc.PeerConnection, devices Devices, recordDir string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	c := &Connection{
		pc:         pc,
		id:         id,
		devices:    devices,
		recordDir:  recordDir,
		logger:     log.With().Str("module", "webrtc").Str("conn", id).Logger(),
		ctx:        ctx,
		cancel:     cancel,
		facing:     FacingUser,
		speaker:    true,
		candidates: make(chan domain.IceCandidate, 64),
		tracks:     make(chan domain.MediaHandle, 4),
		states:     make(chan core.ConnectionState, 16),
	}
	c.bind()
	return c
}

func (c *Connection) bind() {
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("peer state")
		select {
		case c.states <- connectionState(s):
		case <-c.ctx.Done():
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		init := cand.ToJSON()
		out := domain.IceCandidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			out.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			out.SDPMLineIndex = int(*init.SDPMLineIndex)
		}
		select {
		case c.candidates <- out:
		case <-c.ctx.Done():
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		c.startPlayout(track)
	})
}

func connectionState(s webrtc.PeerConnectionState) core.ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return core.ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return core.ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return core.ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return core.ConnectionFailed
	case webrtc.PeerConnectionStateClosed:
		return core.ConnectionClosed
	default:
		return core.ConnectionNew
	}
}

func (c *Connection) startPlayout(track *webrtc.TrackRemote) {
	read := func() (*rtp.Packet, error) {
		pkt, _, err := track.ReadRTP()
		return pkt, err
	}
	c.playRemote(track.Kind(), track.StreamID(), track.ID(), read, func() Sink { return c.recorder(track) })
}

// playRemote starts the playout loop of one remote track and publishes the
// grown remote handle. It reports false once the connection is closed.
func (c *Connection) playRemote(kind webrtc.RTPCodecType, streamID, trackID string, read packetReader, record func() Sink) bool {
	p := newPlayout(kind.String(), read)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	state := SinkActive
	if !c.speaker {
		state = SinkMuted
	}
	if kind == webrtc.RTPCodecTypeAudio {
		p.AddSink("speaker", &meterSink{}, state)
		if w := record(); w != nil {
			p.AddSink("record", w, SinkActive)
		}
	} else {
		p.AddSink("display", &meterSink{}, SinkActive)
	}
	c.playouts = append(c.playouts, p)
	c.remote.StreamID = streamID
	c.remote.Kinds = append(c.remote.Kinds, domain.MediaKind(kind.String()))
	handle := domain.MediaHandle{StreamID: c.remote.StreamID, Kinds: append([]domain.MediaKind(nil), c.remote.Kinds...)}
	// Close waits on wg only after it saw closed, so the loop must start under mu.
	logger := c.logger.With().Str("track_id", trackID).Logger()
	c.wg.Go(func() { p.loop(c.ctx, &logger) })
	c.mu.Unlock()

	select {
	case c.tracks <- handle:
	case <-c.ctx.Done():
	}
	return true
}

// recorder opens an Ogg file for remote Opus audio when recording is on.
func (c *Connection) recorder(track *webrtc.TrackRemote) Sink {
	if c.recordDir == "" || track.Codec().MimeType != webrtc.MimeTypeOpus {
		return nil
	}
	if err := os.MkdirAll(c.recordDir, 0o755); err != nil {
		c.logger.Warn().Err(err).Msg("record dir")
		return nil
	}
	name := filepath.Join(c.recordDir, fmt.Sprintf("%s-%s.ogg", time.Now().UTC().Format("20060102T150405"), c.id))
	w, err := oggwriter.New(name, 48000, 2)
	if err != nil {
		c.logger.Warn().Err(err).Str("file", name).Msg("open recording")
		return nil
	}
	c.logger.Info().Str("file", name).Msg("recording remote audio")
	return w
}

func (c *Connection) AcquireLocalMedia(ctx context.Context, audio, video bool) (domain.MediaHandle, error) {
	stream := uuid.NewString()
	handle := domain.MediaHandle{StreamID: stream}

	if audio {
		src, err := c.devices.OpenAudio(ctx)
		if err != nil {
			return handle, fmt.Errorf("microphone: %w", err)
		}
		codec := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
		if err := c.addLocal(&c.audio, codec, "audio", stream, src); err != nil {
			return handle, err
		}
		handle.Kinds = append(handle.Kinds, domain.MediaAudio)
	}
	if video {
		c.mu.Lock()
		facing := c.facing
		c.mu.Unlock()
		src, err := c.devices.OpenVideo(ctx, facing)
		if err != nil {
			return handle, fmt.Errorf("camera: %w", err)
		}
		codec := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
		if err := c.addLocal(&c.video, codec, "video", stream, src); err != nil {
			return handle, err
		}
		handle.Kinds = append(handle.Kinds, domain.MediaVideo)
	}
	return handle, nil
}

func (c *Connection) addLocal(slot **localTrack, codec webrtc.RTPCodecCapability, id, stream string, src Source) error {
	track, err := webrtc.NewTrackLocalStaticSample(codec, id, stream)
	if err != nil {
		_ = src.Close()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = src.Close()
		return ErrClosed
	}
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("add %s track: %w", id, err)
	}
	lt := &localTrack{track: track, sender: sender, src: src}
	c.startCapture(lt)
	*slot = lt

	// RTCP has to be read for interceptors to run.
	c.wg.Go(func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	})
	return nil
}

// startCapture pumps lt.src into its track until stopped.
func (c *Connection) startCapture(lt *localTrack) {
	ctx, stop := context.WithCancel(c.ctx)
	lt.stop = stop
	src, track := lt.src, lt.track
	logger := c.logger.With().Str("track", track.ID()).Logger()
	c.wg.Go(func() {
		for {
			sample, err := src.NextSample()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Msg("capture stopped")
				}
				return
			}
			if err := track.WriteSample(sample); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				logger.Debug().Err(err).Msg("write sample")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(sample.Duration):
			}
		}
	})
}

func (c *Connection) CreateOffer(context.Context) (domain.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return fromPionSDP(offer), nil
}

func (c *Connection) CreateAnswer(context.Context) (domain.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return fromPionSDP(answer), nil
}

func (c *Connection) SetLocalDescription(desc domain.SessionDescription) error {
	return c.pc.SetLocalDescription(toPionSDP(desc))
}

// SetRemoteDescription applies desc and then the candidates that arrived
// before it, in arrival order.
func (c *Connection) SetRemoteDescription(desc domain.SessionDescription) error {
	if err := c.pc.SetRemoteDescription(toPionSDP(desc)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteSet = true
	for _, cand := range c.pending {
		if err := c.pc.AddICECandidate(cand); err != nil {
			c.logger.Warn().Err(err).Msg("add buffered candidate")
		}
	}
	c.pending = nil
	return nil
}

func (c *Connection) AddICECandidate(cand domain.IceCandidate) error {
	mid := cand.SDPMid
	idx := uint16(cand.SDPMLineIndex)
	init := webrtc.ICECandidateInit{Candidate: cand.Candidate, SDPMid: &mid, SDPMLineIndex: &idx}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.remoteSet {
		c.pending = append(c.pending, init)
		return nil
	}
	return c.pc.AddICECandidate(init)
}

func (c *Connection) ToggleAudio(enabled bool) error {
	c.mu.Lock()
	lt := c.audio
	c.mu.Unlock()
	return toggle(lt, "audio", enabled)
}

func (c *Connection) ToggleVideo(enabled bool) error {
	c.mu.Lock()
	lt := c.video
	c.mu.Unlock()
	return toggle(lt, "video", enabled)
}

// toggle mutes a local track by detaching it from its sender.
func toggle(lt *localTrack, kind string, enabled bool) error {
	if lt == nil {
		return fmt.Errorf("%w: %s", ErrNoTrack, kind)
	}
	if enabled {
		return lt.sender.ReplaceTrack(lt.track)
	}
	return lt.sender.ReplaceTrack(nil)
}

func (c *Connection) ToggleSpeaker(enabled bool) error {
	c.mu.Lock()
	c.speaker = enabled
	playouts := append([]*Playout(nil), c.playouts...)
	c.mu.Unlock()
	for _, p := range playouts {
		if p.kind == webrtc.RTPCodecTypeAudio.String() {
			p.Mute(!enabled)
		}
	}
	return nil
}

// SwitchCamera reopens the camera facing the other way and feeds it into
// the existing video track.
func (c *Connection) SwitchCamera(ctx context.Context) error {
	c.mu.Lock()
	lt := c.video
	facing := c.facing.Flip()
	c.mu.Unlock()
	if lt == nil {
		return fmt.Errorf("%w: video", ErrNoTrack)
	}

	src, err := c.devices.OpenVideo(ctx, facing)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = src.Close()
		return ErrClosed
	}
	lt.stop()
	_ = lt.src.Close()
	lt.src = src
	c.startCapture(lt)
	c.facing = facing
	c.logger.Info().Str("facing", string(facing)).Msg("camera switched")
	return nil
}

func (c *Connection) Candidates() <-chan domain.IceCandidate { return c.candidates }
func (c *Connection) Tracks() <-chan domain.MediaHandle      { return c.tracks }
func (c *Connection) States() <-chan core.ConnectionState    { return c.states }

// Close stops capture and playout and closes the peer connection. Later
// calls return nil.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	locals := []*localTrack{c.audio, c.video}
	c.mu.Unlock()

	err := c.pc.Close()
	for _, lt := range locals {
		if lt != nil {
			lt.stop()
			_ = lt.src.Close()
		}
	}
	c.wg.Wait()
	if err != nil {
		c.logger.Error().Err(err).Msg("close error")
		return err
	}
	c.logger.Info().Msg("closed")
	return nil
}
