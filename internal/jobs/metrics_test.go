package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("ledger:verify").End(nil))
	boom := errors.New("boom")
	assert.Same(t, boom, m.Track("ledger:verify").End(boom))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:verify", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:verify", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:verify")))
}

func TestObserveDriftSetsGaugeAndCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveDrift(map[string]int{"car_balance": 2, "customer_balance": 1})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.driftGauge))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.drift.WithLabelValues("car_balance")))

	m.ObserveDrift(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.driftGauge))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.drift.WithLabelValues("car_balance")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveDrift(map[string]int{"car_left": 1})
	assert.NoError(t, m.Track("x").End(nil))
}
