package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/blockfile/internal/cfg"
	"github.com/e2b-dev/infra/packages/blockfile/internal/logger"
	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

// openDevice returns the configured device wrapped with metrics, and a
// function releasing it.
func openDevice(ctx context.Context, config cfg.Config, l *zap.Logger) (device.Device, func() error, error) {
	var (
		dev     device.Device
		release = func() error { return nil }
	)

	switch config.Device.Kind {
	case cfg.DeviceMemory:
		m, err := device.NewMemory(config.BlockSize, config.BlockCount)
		if err != nil {
			return nil, nil, err
		}

		dev = m
	case cfg.DeviceFile:
		f, err := device.OpenFile(config.Device.Path, config.BlockSize, config.BlockCount)
		if err != nil {
			return nil, nil, err
		}

		dev = f
		release = func() error {
			if err := f.Sync(); err != nil {
				return err
			}

			return f.Close()
		}
	case cfg.DeviceMmap:
		m, err := device.OpenMmap(config.Device.Path, config.BlockSize, config.BlockCount)
		if err != nil {
			return nil, nil, err
		}

		dev = m
		release = m.Close
	case cfg.DeviceGCS:
		g, err := device.NewGCS(ctx, config.Device.GCSBucket, config.Device.GCSPrefix, config.BlockSize, config.BlockCount)
		if err != nil {
			return nil, nil, err
		}

		dev = g
		release = g.Close
	default:
		return nil, nil, fmt.Errorf("unknown device kind %q", config.Device.Kind)
	}

	l.Debug("device opened",
		logger.WithDeviceKind(string(config.Device.Kind)),
		zap.Int64("block_size", config.BlockSize),
		zap.Int64("block_count", config.BlockCount),
	)

	metered, err := device.NewMetered(dev, otel.GetMeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap device: %w", err)
	}

	return metered, release, nil
}
