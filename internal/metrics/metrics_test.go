// SPDX-License-Identifier: MIT

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncCommand(t *testing.T) {
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("load", "rejected"))
	IncCommand("load", errors.New("nope"))
	IncCommand("start", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(CommandsTotal.WithLabelValues("load", "rejected")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(CommandsTotal.WithLabelValues("start", "ok")), 1.0)
}

func TestSetPlaybackState(t *testing.T) {
	SetPlaybackState("play")
	assert.Equal(t, 1.0, testutil.ToFloat64(PlaybackState.WithLabelValues("play")))
	assert.Equal(t, 0.0, testutil.ToFloat64(PlaybackState.WithLabelValues("stop")))

	SetPlaybackState("stop")
	assert.Equal(t, 0.0, testutil.ToFloat64(PlaybackState.WithLabelValues("play")))
}

func TestAutomationFailureRegistered(t *testing.T) {
	IncAutomationFailure("osc", "")
	IncAutomationFailure("http", "timeout")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var fam *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "rundownd_automation_fail_total" {
			fam = f
			break
		}
	}
	require.NotNil(t, fam, "failure counter must be registered with the default registry")
	assert.Equal(t, dto.MetricType_COUNTER, fam.GetType())

	labels := make(map[string]bool)
	for _, m := range fam.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "reason" {
				labels[l.GetValue()] = true
			}
		}
	}
	assert.True(t, labels["unknown"], "empty reason collapses to unknown")
	assert.True(t, labels["timeout"])
}
