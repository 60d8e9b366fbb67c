package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DecodeCalls.WithLabelValues("rollup").Inc()
	m.MigrationApplied.WithLabelValues("writer.most_recent_write_token").Inc()
	m.DecodeCacheHits.Inc()
	m.GCIndexSize.Set(3)

	require.Equal(t, float64(1), testutil.ToFloat64(m.DecodeCalls.WithLabelValues("rollup")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.DecodeCacheHits))
	require.Equal(t, float64(3), testutil.ToFloat64(m.GCIndexSize))
}

func TestNewUnregisteredDoesNotPanic(t *testing.T) {
	m := NewUnregistered()
	m.EncodeCalls.WithLabelValues("diff").Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(m.EncodeCalls.WithLabelValues("diff")))
}
