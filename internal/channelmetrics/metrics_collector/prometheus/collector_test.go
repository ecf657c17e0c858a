package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsCollector_ReturnsSameInstanceForSameKey(t *testing.T) {
	a := NewMetricsCollector("chan-a", "test_ns", "test_sub")
	b := NewMetricsCollector("chan-a", "test_ns", "test_sub")
	assert.Same(t, a, b, "collectors with the same namespace/subsystem/chanName must be cached and reused")
}

func TestNewMetricsCollector_DistinctChannelsGetDistinctInstances(t *testing.T) {
	a := NewMetricsCollector("chan-b", "test_ns", "test_sub")
	b := NewMetricsCollector("chan-c", "test_ns", "test_sub")
	assert.NotSame(t, a, b)
}

func TestMetricsCollector_RecordChannelLenAndCap(t *testing.T) {
	c := NewMetricsCollector("chan-d", "test_ns", "test_sub")

	c.RecordChannelCap(16)
	c.RecordChannelLen(4)

	require.Equal(t, float64(16), testutil.ToFloat64(c.channelCap))
	require.Equal(t, float64(4), testutil.ToFloat64(c.channelLen))

	c.RecordChannelLen(9)
	require.Equal(t, float64(9), testutil.ToFloat64(c.channelLen))
}

func TestMetricsCollector_RecordDurationsObserveSamples(t *testing.T) {
	c := NewMetricsCollector("chan-e", "test_ns", "test_sub")

	c.RecordProduceDuration(5 * time.Microsecond)
	c.RecordProduceDuration(7 * time.Microsecond)
	assert.Equal(t, uint64(2), sampleCount(t, c.produceDuration))

	c.RecordConsumeDuration(3 * time.Microsecond)
	assert.Equal(t, uint64(1), sampleCount(t, c.consumeDuration))
}

// sampleCount reads a histogram's cumulative observation count straight off
// its protobuf representation, since testutil.ToFloat64 only supports
// Gauge/Counter-like collectors.
func sampleCount(t *testing.T, h interface{ Write(*dto.Metric) error }) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}
