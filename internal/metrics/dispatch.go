// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutomationFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_automation_fired_total",
		Help: "Total number of automation target invocations by cycle and kind",
	}, []string{"cycle", "kind"})

	AutomationFailTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_automation_fail_total",
		Help: "Total number of failed automation dispatches by kind and reason",
	}, []string{"kind", "reason"})

	BroadcastClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rundownd_broadcast_clients",
		Help: "Number of connected view clients",
	})

	BroadcastDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rundownd_broadcast_dropped_total",
		Help: "Total number of view clients dropped by reason",
	}, []string{"reason"})

	BroadcastRevision = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rundownd_broadcast_revision",
		Help: "Latest published snapshot revision",
	})
)

// IncAutomationFired records one automation target invocation.
func IncAutomationFired(cycle, kind string) {
	AutomationFiredTotal.WithLabelValues(cycle, kind).Inc()
}

// IncAutomationFailure records a failed automation dispatch.
func IncAutomationFailure(kind, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	AutomationFailTotal.WithLabelValues(kind, reason).Inc()
}

// SetBroadcastClients updates the connected client gauge.
func SetBroadcastClients(n int) {
	BroadcastClients.Set(float64(n))
}

// IncBroadcastDropped records a dropped view client.
func IncBroadcastDropped(reason string) {
	BroadcastDroppedTotal.WithLabelValues(reason).Inc()
}

// SetBroadcastRevision publishes the latest revision number.
func SetBroadcastRevision(rev uint64) {
	BroadcastRevision.Set(float64(rev))
}
