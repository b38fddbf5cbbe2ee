package cfg

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/e2b-dev/infra/packages/blockfile/pkg/blockfs"
)

type DeviceKind string

const (
	DeviceMemory DeviceKind = "memory"
	DeviceFile   DeviceKind = "file"
	DeviceMmap   DeviceKind = "mmap"
	DeviceGCS    DeviceKind = "gcs"
)

type Config struct {
	BlockSize  int64          `env:"BLOCK_SIZE"  envDefault:"4096"`
	BlockCount int64          `env:"BLOCK_COUNT" envDefault:"256"`
	Bounds     blockfs.Bounds `env:"BOUNDS"      envDefault:"inclusive"`
	Debug      bool           `env:"DEBUG"`
	ExportOtel bool           `env:"EXPORT_OTEL"`

	Device DeviceConfig `envPrefix:"DEVICE_"`
}

type DeviceConfig struct {
	Kind      DeviceKind `env:"KIND"       envDefault:"file"`
	Path      string     `env:"PATH"       envDefault:"flash.img"`
	GCSBucket string     `env:"GCS_BUCKET"`
	GCSPrefix string     `env:"GCS_PREFIX" envDefault:"blocks"`
}

func Parse() (Config, error) {
	config, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix: "BLOCKFILE_",
	})
	if err != nil {
		return Config{}, err
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockCount <= 0 {
		return fmt.Errorf("invalid geometry: block size %d, block count %d", c.BlockSize, c.BlockCount)
	}

	switch c.Device.Kind {
	case DeviceMemory:
	case DeviceFile, DeviceMmap:
		if c.Device.Path == "" {
			return fmt.Errorf("device path is required for %s devices", c.Device.Kind)
		}
	case DeviceGCS:
		if c.Device.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs devices")
		}
	default:
		return fmt.Errorf("unknown device kind %q", c.Device.Kind)
	}

	return nil
}
