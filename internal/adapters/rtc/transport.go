package rtc

import (
	"context"
	"fmt"

	"github.com/dkeye/voicecall/internal/core"
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Transport opens pion peer connections sharing one API instance.
type Transport struct {
	api       *webrtc.API
	devices   Devices
	recordDir string
}

var _ core.MediaTransport = (*Transport)(nil)

type Options struct {
	Devices Devices
	// RecordDir enables recording of remote audio when set.
	RecordDir string
}

func NewTransport(opts Options) (*Transport, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	se := webrtc.SettingEngine{LoggerFactory: NewLoggerFactory()}

	devices := opts.Devices
	if devices == nil {
		devices = FileDevices{}
	}
	return &Transport{
		api:       webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithSettingEngine(se)),
		devices:   devices,
		recordDir: opts.RecordDir,
	}, nil
}

func (t *Transport) Open(ctx context.Context, cfg domain.CallConfig) (core.MediaConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pc, err := t.api.NewPeerConnection(webrtcConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c := newConnection(pc, t.devices, t.recordDir)
	log.Debug().Str("module", "webrtc").Str("conn", c.id).Msg("peer connection opened")
	return c, nil
}
