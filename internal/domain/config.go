package domain

import (
	"errors"
	"fmt"
	"time"
)

type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

// CallConfig is injected once and never mutated afterwards.
type CallConfig struct {
	ICEServers           []ICEServer
	ICETransportPolicy   string
	BundlePolicy         string
	RTCPMuxPolicy        string
	ICECandidatePoolSize uint8

	InviteTimeout time.Duration
	ICETimeout    time.Duration
	SignalTimeout time.Duration
}

func DefaultCallConfig() CallConfig {
	return CallConfig{
		ICEServers: []ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		ICETransportPolicy:   "all",
		BundlePolicy:         "max-bundle",
		RTCPMuxPolicy:        "require",
		ICECandidatePoolSize: 10,
		InviteTimeout:        DefaultInviteTimeout,
		ICETimeout:           30 * time.Second,
		SignalTimeout:        10 * time.Second,
	}
}

var ErrInvalidCallConfig = errors.New("invalid call config")

func (c CallConfig) Validate() error {
	if len(c.ICEServers) == 0 {
		return fmt.Errorf("%w: at least one ice server is required", ErrInvalidCallConfig)
	}
	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("%w: ice server %d has no urls", ErrInvalidCallConfig, i)
		}
	}
	switch c.ICETransportPolicy {
	case "all", "relay":
	default:
		return fmt.Errorf("%w: ice transport policy %q", ErrInvalidCallConfig, c.ICETransportPolicy)
	}
	switch c.BundlePolicy {
	case "balanced", "max-compat", "max-bundle":
	default:
		return fmt.Errorf("%w: bundle policy %q", ErrInvalidCallConfig, c.BundlePolicy)
	}
	switch c.RTCPMuxPolicy {
	case "negotiate", "require":
	default:
		return fmt.Errorf("%w: rtcp mux policy %q", ErrInvalidCallConfig, c.RTCPMuxPolicy)
	}
	if c.InviteTimeout <= 0 || c.ICETimeout <= 0 || c.SignalTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidCallConfig)
	}
	return nil
}
