package pipeline

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prometheusRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	return prometheus.NewRegistry()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewMetrics(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Registering the same counters twice must fail, not panic.
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
