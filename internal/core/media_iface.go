package core

import (
	"context"

	"github.com/dkeye/voicecall/internal/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . MediaTransport,MediaConnection,SignalingChannel,IdentityProvider

type ConnectionState int

const (
	ConnectionNew ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
	ConnectionDisconnected
	ConnectionFailed
	ConnectionClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionNew:
		return "new"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionConnected:
		return "connected"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionFailed:
		return "failed"
	case ConnectionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MediaTransport opens one peer connection per call.
type MediaTransport interface {
	Open(ctx context.Context, cfg domain.CallConfig) (MediaConnection, error)
}

// MediaConnection is the peer connection of a single call together with its
// local media. It is owned by exactly one call session.
type MediaConnection interface {
	// AcquireLocalMedia opens the local devices and attaches their tracks.
	AcquireLocalMedia(ctx context.Context, audio, video bool) (domain.MediaHandle, error)
	CreateOffer(ctx context.Context) (domain.SessionDescription, error)
	CreateAnswer(ctx context.Context) (domain.SessionDescription, error)
	SetLocalDescription(desc domain.SessionDescription) error
	// SetRemoteDescription also flushes candidates buffered by AddICECandidate.
	SetRemoteDescription(desc domain.SessionDescription) error
	// AddICECandidate buffers the candidate while no remote description exists.
	AddICECandidate(c domain.IceCandidate) error

	ToggleAudio(enabled bool) error
	ToggleVideo(enabled bool) error
	ToggleSpeaker(enabled bool) error
	SwitchCamera(ctx context.Context) error

	// Candidates delivers locally gathered ICE candidates.
	Candidates() <-chan domain.IceCandidate
	// Tracks delivers remote media as it arrives.
	Tracks() <-chan domain.MediaHandle
	States() <-chan ConnectionState

	// Close releases the connection and its devices. Safe to call twice.
	Close() error
}
