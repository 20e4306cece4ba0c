package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// Facing selects the camera.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

func (f Facing) Flip() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

var ErrNoDevice = errors.New("device not available")

// Source produces media samples. NextSample returns the next sample and the
// caller paces writes by Sample.Duration.
type Source interface {
	NextSample() (media.Sample, error)
	Close() error
}

// Devices opens the local capture sources of a call.
type Devices interface {
	OpenAudio(ctx context.Context) (Source, error)
	OpenVideo(ctx context.Context, facing Facing) (Source, error)
}

// FileDevices plays looping files instead of capturing. AudioFile is
// Ogg/Opus; video files are IVF/VP8. Without an audio file the microphone
// produces Opus silence; without a video file there is no camera.
type FileDevices struct {
	AudioFile     string
	VideoFile     string
	BackVideoFile string
}

func (d FileDevices) OpenAudio(context.Context) (Source, error) {
	if d.AudioFile == "" {
		return &silenceSource{}, nil
	}
	return openOgg(d.AudioFile)
}

func (d FileDevices) OpenVideo(_ context.Context, facing Facing) (Source, error) {
	path := d.VideoFile
	if facing == FacingEnvironment && d.BackVideoFile != "" {
		path = d.BackVideoFile
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no camera configured", ErrNoDevice)
	}
	return openIVF(path)
}

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

type silenceSource struct{}

func (*silenceSource) NextSample() (media.Sample, error) {
	return media.Sample{Data: opusSilence, Duration: 20 * time.Millisecond}, nil
}

func (*silenceSource) Close() error { return nil }

type oggSource struct {
	mu          sync.Mutex
	f           *os.File
	r           *oggreader.OggReader
	lastGranule uint64
}

func openOgg(path string) (*oggSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	r, _, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ogg %s: %w", path, err)
	}
	return &oggSource{f: f, r: r}, nil
}

func (s *oggSource) NextSample() (media.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for rewound := false; ; {
		page, header, err := s.r.ParseNextPage()
		if errors.Is(err, io.EOF) && !rewound {
			if err := s.rewind(); err != nil {
				return media.Sample{}, err
			}
			rewound = true
			continue
		}
		if err != nil {
			return media.Sample{}, err
		}
		// header pages carry no audio
		if header.GranulePosition == 0 {
			continue
		}
		samples := header.GranulePosition - s.lastGranule
		s.lastGranule = header.GranulePosition
		return media.Sample{
			Data:     page,
			Duration: time.Duration(float64(samples)/48000*1000) * time.Millisecond,
		}, nil
	}
}

func (s *oggSource) rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r, _, err := oggreader.NewWith(s.f)
	if err != nil {
		return err
	}
	s.r = r
	s.lastGranule = 0
	return nil
}

func (s *oggSource) Close() error { return s.f.Close() }

type ivfSource struct {
	mu    sync.Mutex
	f     *os.File
	r     *ivfreader.IVFReader
	frame time.Duration
}

func openIVF(path string) (*ivfSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	r, header, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("ivf %s: %w", path, err)
	}
	frame := 33 * time.Millisecond
	if header.TimebaseDenominator != 0 {
		frame = time.Duration(float64(header.TimebaseNumerator)/float64(header.TimebaseDenominator)*1000) * time.Millisecond
	}
	return &ivfSource{f: f, r: r, frame: frame}, nil
}

func (s *ivfSource) NextSample() (media.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _, err := s.r.ParseNextFrame()
	if errors.Is(err, io.EOF) {
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return media.Sample{}, err
		}
		if s.r, _, err = ivfreader.NewWith(s.f); err != nil {
			return media.Sample{}, err
		}
		data, _, err = s.r.ParseNextFrame()
	}
	if err != nil {
		return media.Sample{}, err
	}
	return media.Sample{Data: data, Duration: s.frame}, nil
}

func (s *ivfSource) Close() error { return s.f.Close() }
