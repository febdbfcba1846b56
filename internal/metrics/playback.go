// SPDX-License-Identifier: MIT

// Package metrics exposes prometheus collectors for the playback daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rundownd_ticks_total",
		Help: "Total number of playback engine ticks",
	})

	TickDrift = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rundownd_tick_drift_seconds",
		Help:    "Observed drift between scheduled and actual tick time",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	PlaybackState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rundownd_playback_state",
		Help: "Current playback state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_command_total",
		Help: "Total number of operator commands by operation and result",
	}, []string{"op", "result"})
)

// IncCommand records an operator command outcome.
func IncCommand(op string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	CommandsTotal.WithLabelValues(op, result).Inc()
}

// SetPlaybackState flips the state gauge to the given state.
func SetPlaybackState(state string) {
	for _, s := range []string{"stop", "armed", "play", "pause", "roll"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		PlaybackState.WithLabelValues(s).Set(v)
	}
}
