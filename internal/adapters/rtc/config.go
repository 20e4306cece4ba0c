package rtc

import (
	"github.com/dkeye/voicecall/internal/domain"
	"github.com/pion/webrtc/v4"
)

// webrtcConfig maps the validated call configuration onto pion's.
func webrtcConfig(cfg domain.CallConfig) webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		srv := webrtc.ICEServer{
			URLs:     append([]string(nil), s.URLs...),
			Username: s.Username,
		}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		servers = append(servers, srv)
	}

	out := webrtc.Configuration{
		ICEServers:           servers,
		ICECandidatePoolSize: cfg.ICECandidatePoolSize,
	}

	switch cfg.ICETransportPolicy {
	case "relay":
		out.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	default:
		out.ICETransportPolicy = webrtc.ICETransportPolicyAll
	}

	switch cfg.BundlePolicy {
	case "balanced":
		out.BundlePolicy = webrtc.BundlePolicyBalanced
	case "max-compat":
		out.BundlePolicy = webrtc.BundlePolicyMaxCompat
	default:
		out.BundlePolicy = webrtc.BundlePolicyMaxBundle
	}

	switch cfg.RTCPMuxPolicy {
	case "negotiate":
		out.RTCPMuxPolicy = webrtc.RTCPMuxPolicyNegotiate
	default:
		out.RTCPMuxPolicy = webrtc.RTCPMuxPolicyRequire
	}
	return out
}

func toPionSDP(desc domain.SessionDescription) webrtc.SessionDescription {
	t := webrtc.SDPTypeOffer
	if desc.Type == domain.SDPAnswer {
		t = webrtc.SDPTypeAnswer
	}
	return webrtc.SessionDescription{Type: t, SDP: desc.SDP}
}

func fromPionSDP(desc webrtc.SessionDescription) domain.SessionDescription {
	t := domain.SDPOffer
	if desc.Type == webrtc.SDPTypeAnswer {
		t = domain.SDPAnswer
	}
	return domain.SessionDescription{Type: t, SDP: desc.SDP}
}
