package blockfs

import (
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures an FS at construction.
type Option func(*FS)

// WithLocker guards the FS with l instead of an internal mutex, e.g. to share
// one lock with other users of the same device.
func WithLocker(l sync.Locker) Option {
	return func(fs *FS) {
		if l != nil {
			fs.mu = l
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(fs *FS) {
		if logger != nil {
			fs.logger = logger
		}
	}
}

// WithTracerProvider traces block loads and flushes with tp instead of the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(fs *FS) {
		if tp != nil {
			fs.tracer = tp.Tracer("github.com/e2b-dev/infra/packages/blockfile/pkg/blockfs")
		}
	}
}

func WithBounds(b Bounds) Option {
	return func(fs *FS) {
		fs.bounds = b
	}
}
