package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/e2b-dev/infra/packages/blockfile/internal/metrics"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]map[attribute.Distinct]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))

	out := make(map[string]map[attribute.Distinct]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			points := make(map[attribute.Distinct]int64)
			for _, dp := range sum.DataPoints {
				points[dp.Attributes.Equivalent()] = dp.Value
			}
			out[m.Name] = points
		}
	}

	return out
}

func key(kv ...attribute.KeyValue) attribute.Distinct {
	set := attribute.NewSet(kv...)

	return set.Equivalent()
}

func TestMetered_CountsOpsAndBytes(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mock := NewMock(32, 4)
	mock.FailOn(OpErase, 3, errors.New("worn out"))

	d, err := NewMetered(mock, provider)
	require.NoError(t, err)
	assert.Same(t, mock, d.Unwrap())

	buf := make([]byte, 32)
	require.NoError(t, d.ReadBlock(0, buf))
	require.NoError(t, d.ReadBlock(1, buf))
	require.NoError(t, d.EraseBlock(0))
	require.NoError(t, d.ProgramBlock(0, buf))
	require.Error(t, d.EraseBlock(3))

	sums := collectSums(t, reader)

	ops := sums[metrics.OpsMetricName]
	assert.Equal(t, int64(2), ops[key(attribute.String("op", "read"), attribute.String("result", "ok"))])
	assert.Equal(t, int64(1), ops[key(attribute.String("op", "erase"), attribute.String("result", "ok"))])
	assert.Equal(t, int64(1), ops[key(attribute.String("op", "erase"), attribute.String("result", "error"))])
	assert.Equal(t, int64(1), ops[key(attribute.String("op", "program"), attribute.String("result", "ok"))])

	transferred := sums[metrics.BytesMetricName]
	assert.Equal(t, int64(64), transferred[key(attribute.String("op", "read"))])
	assert.Equal(t, int64(32), transferred[key(attribute.String("op", "program"))])
	assert.NotContains(t, transferred, key(attribute.String("op", "erase")))
}
