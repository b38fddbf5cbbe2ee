package device

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/e2b-dev/infra/packages/blockfile/internal/metrics"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Metered records count, bytes and latency of every call to the wrapped device.
type Metered struct {
	dev     Device
	metrics metrics.Metrics
}

var _ Device = (*Metered)(nil)

func NewMetered(dev Device, meterProvider metric.MeterProvider) (*Metered, error) {
	m, err := metrics.NewMetrics(meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create device metrics: %w", err)
	}

	return &Metered{dev: dev, metrics: m}, nil
}

func (m *Metered) observe(op Op, size int, call func() error) error {
	ctx := context.Background()
	timer := m.metrics.Begin(m.metrics.DurationMetric)

	err := call()

	result := resultOK
	if err != nil {
		result = resultError
	}

	attrs := []attribute.KeyValue{
		metrics.KV("op", op),
		metrics.KV("result", result),
	}

	timer.End(ctx, attrs...)
	m.metrics.OpsMetric.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err == nil && size > 0 {
		m.metrics.BytesMetric.Add(ctx, int64(size), metric.WithAttributes(metrics.KV("op", op)))
	}

	return err
}

func (m *Metered) ReadBlock(block int64, buf []byte) error {
	return m.observe(OpRead, len(buf), func() error {
		return m.dev.ReadBlock(block, buf)
	})
}

func (m *Metered) ProgramBlock(block int64, buf []byte) error {
	return m.observe(OpProgram, len(buf), func() error {
		return m.dev.ProgramBlock(block, buf)
	})
}

func (m *Metered) EraseBlock(block int64) error {
	return m.observe(OpErase, 0, func() error {
		return m.dev.EraseBlock(block)
	})
}

func (m *Metered) Unwrap() Device {
	return m.dev
}
