package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAndRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe(ResultSuccess)
	m.Observe(ResultSuccess)
	m.Observe(ResultFull)
	m.Registered("Keynote", "Workshop", "Keynote")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Total.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Total.WithLabelValues(ResultFull)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("Keynote")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Total))
}

func TestNilSubmissionsIsNoop(t *testing.T) {
	var m *Submissions
	assert.NotPanics(t, func() {
		m.Observe(ResultFailed)
		m.Registered("x")
	})
}
