package blockfs

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

// FS serves file windows from a block device through a single cache line.
// Every file opened from one FS shares that line and its lock.
var tracer = otel.Tracer("github.com/e2b-dev/infra/packages/blockfile/pkg/blockfs")

type FS struct {
	mu     sync.Locker
	dev    device.Device
	logger *zap.Logger
	tracer trace.Tracer
	bounds Bounds

	blockSize  int64
	blockCount int64

	line cacheLine
}

// New binds buf as the cache line of a device with blockCount blocks of
// blockSize bytes. buf stays owned by the caller and must be exactly one
// block long; a nil buf is allocated here.
func New(buf []byte, dev device.Device, blockSize, blockCount int64, opts ...Option) (*FS, error) {
	if dev == nil {
		return nil, fmt.Errorf("device is required")
	}

	if blockSize <= 0 || blockCount <= 0 {
		return nil, fmt.Errorf("invalid geometry: block size %d, block count %d", blockSize, blockCount)
	}

	if buf == nil {
		buf = make([]byte, blockSize)
	}

	if int64(len(buf)) != blockSize {
		return nil, fmt.Errorf("cache buffer is %d bytes, block size is %d", len(buf), blockSize)
	}

	fs := &FS{
		mu:         &sync.Mutex{},
		dev:        dev,
		logger:     zap.NewNop(),
		tracer:     tracer,
		bounds:     BoundsInclusive,
		blockSize:  blockSize,
		blockCount: blockCount,
		line:       cacheLine{buf: buf},
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs, nil
}

func (fs *FS) withLock(fn func() error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fn()
}

// Sync writes the cache line back if it is dirty.
func (fs *FS) Sync() error {
	return fs.withLock(fs.syncLine)
}

// Open returns a window of maxSize bytes starting at device address start.
// The window is not checked against the device size; accesses past the
// last block fail with ErrOutOfRange.
func (fs *FS) Open(start, maxSize int64) *File {
	return &File{
		fs:      fs,
		start:   start,
		maxSize: maxSize,
	}
}

func (fs *FS) BlockSize() int64 {
	return fs.blockSize
}

func (fs *FS) BlockCount() int64 {
	return fs.blockCount
}

// Size is the size of the flat device address space in bytes.
func (fs *FS) Size() int64 {
	return fs.blockSize * fs.blockCount
}

func (fs *FS) Bounds() Bounds {
	return fs.bounds
}

type Stat struct {
	BlockSize  int64
	BlockCount int64
	Bounds     Bounds

	// Resident is false when no block is cached; Block is then meaningless.
	Resident bool
	Block    int64
	Dirty    bool
}

func (fs *FS) Stat() Stat {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return Stat{
		BlockSize:  fs.blockSize,
		BlockCount: fs.blockCount,
		Bounds:     fs.bounds,
		Resident:   fs.line.resident,
		Block:      fs.line.block,
		Dirty:      fs.line.dirty,
	}
}
