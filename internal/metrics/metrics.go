// Package metrics holds the prometheus collectors of both binaries.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CallsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecall_calls_started_total",
		Help: "Calls that reached Outgoing or Incoming",
	}, []string{"direction"})

	CallsEnded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecall_calls_ended_total",
		Help: "Calls torn down, by final state and reason",
	}, []string{"state", "reason"})

	SignalingEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecall_signaling_events_total",
		Help: "Inbound signaling events by kind and outcome",
	}, []string{"kind", "result"})

	HubRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "voicecall_hub_relayed_total",
		Help: "Call events relayed by the hub",
	}, []string{"kind"})

	HubMembers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "voicecall_hub_members",
		Help: "Room members currently connected to the hub",
	})
)

// Signaling event outcomes.
const (
	ResultApplied = "applied"
	ResultDropped = "dropped"
	ResultBusy    = "busy"
)

// Register adds every collector to reg. Collectors already present are
// tolerated so that tests can register against the default registry twice.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{CallsStarted, CallsEnded, SignalingEvents, HubRelayed, HubMembers} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
