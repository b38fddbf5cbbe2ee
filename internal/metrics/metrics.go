package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	OpsMetricName      = "blockfile.device.ops"
	BytesMetricName    = "blockfile.device.bytes"
	DurationMetricName = "blockfile.device.duration"
)

type Metrics struct {
	OpsMetric      metric.Int64Counter
	BytesMetric    metric.Int64Counter
	DurationMetric metric.Int64Histogram
}

func NewMetrics(meterProvider metric.MeterProvider) (Metrics, error) {
	deviceMeter := meterProvider.Meter("pkg.device.metrics")

	ops, err := deviceMeter.Int64Counter(OpsMetricName,
		metric.WithDescription("Block device operations issued"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get ops metric: %w", err)
	}

	transferred, err := deviceMeter.Int64Counter(BytesMetricName,
		metric.WithDescription("Bytes transferred to and from the block device"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get bytes metric: %w", err)
	}

	duration, err := deviceMeter.Int64Histogram(DurationMetricName,
		metric.WithDescription("Block device operation latency"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get duration metric: %w", err)
	}

	return Metrics{
		OpsMetric:      ops,
		BytesMetric:    transferred,
		DurationMetric: duration,
	}, nil
}

func (c Metrics) Begin(metric metric.Int64Histogram) Stopwatch {
	return Stopwatch{metric: metric, start: time.Now()}
}

func KV[T ~string](key string, value T) attribute.KeyValue {
	return attribute.String(key, string(value))
}

type Stopwatch struct {
	metric metric.Int64Histogram
	start  time.Time
}

func (t Stopwatch) End(ctx context.Context, kv ...attribute.KeyValue) {
	amount := time.Since(t.start).Microseconds()
	t.metric.Record(ctx, amount, metric.WithAttributes(kv...))
}
