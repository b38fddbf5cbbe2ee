package blockfs

import (
	"bytes"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/e2b-dev/infra/packages/blockfile/internal/logger"
	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

// cacheLine mirrors at most one device block. dirty means buf differs from
// the device content of block.
type cacheLine struct {
	buf      []byte
	block    int64
	resident bool
	dirty    bool
}

func (l *cacheLine) invalidate() {
	l.block = 0
	l.resident = false
	l.dirty = false
}

func (l *cacheLine) holds(block int64) bool {
	return l.resident && l.block == block
}

// The methods below expect fs.mu to be held by the caller.

// ensureResident loads block into the line, writing the previous block back
// first if it is dirty. A failed write-back leaves the line untouched. A
// failed load leaves no block resident, since buf may be partially
// overwritten.
func (fs *FS) ensureResident(block int64) error {
	if fs.line.holds(block) {
		return nil
	}

	if block < 0 || block >= fs.blockCount {
		return fmt.Errorf("block %d of %d: %w", block, fs.blockCount, ErrOutOfRange)
	}

	if err := fs.syncLine(); err != nil {
		return err
	}

	fs.logger.Debug("loading block", logger.WithBlock(block))

	span := fs.startSpan("load-block", block)
	defer span.End()

	if err := fs.dev.ReadBlock(block, fs.line.buf); err != nil {
		fs.line.invalidate()
		fs.logger.Warn("failed to load block", logger.WithBlock(block), zap.Error(err))

		return failSpan(span, &DeviceError{Op: device.OpRead, Block: block, Err: err})
	}

	fs.line.block = block
	fs.line.resident = true
	fs.line.dirty = false

	return nil
}

// syncLine erases and programs the resident block if it is dirty. It is the
// only path that modifies the device.
func (fs *FS) syncLine() error {
	if !fs.line.dirty {
		return nil
	}

	block := fs.line.block

	fs.logger.Debug("flushing block", logger.WithBlock(block))

	span := fs.startSpan("flush-block", block)
	defer span.End()

	if err := fs.dev.EraseBlock(block); err != nil {
		fs.logger.Warn("failed to erase block", logger.WithBlock(block), zap.Error(err))

		return failSpan(span, &DeviceError{Op: device.OpErase, Block: block, Err: err})
	}

	if err := fs.dev.ProgramBlock(block, fs.line.buf); err != nil {
		fs.logger.Warn("failed to program block", logger.WithBlock(block), zap.Error(err))

		return failSpan(span, &DeviceError{Op: device.OpProgram, Block: block, Err: err})
	}

	fs.line.dirty = false

	return nil
}

// Device calls take no context, so spans start from the background context.
func (fs *FS) startSpan(name string, block int64) trace.Span {
	_, span := fs.tracer.Start(context.Background(), name,
		trace.WithAttributes(attribute.Int64("block", block)),
	)

	return span
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

// copyOut reads len(p) bytes at addr. Bytes copied before a failure stay in p.
func (fs *FS) copyOut(addr int64, p []byte) error {
	if addr < 0 {
		return fmt.Errorf("address %d: %w", addr, ErrOutOfRange)
	}

	for c := range chunks(addr, int64(len(p)), fs.blockSize) {
		if err := fs.ensureResident(c.Block); err != nil {
			return err
		}

		copy(p[c.Pos:c.Pos+c.Len], fs.line.buf[c.Off:c.Off+c.Len])
	}

	return nil
}

// copyIn writes p at addr. A chunk only dirties the line when its bytes
// differ from what is cached, so rewriting unchanged data never costs an
// erase cycle. Chunks written before a failure are not rolled back.
func (fs *FS) copyIn(addr int64, p []byte) error {
	if addr < 0 {
		return fmt.Errorf("address %d: %w", addr, ErrOutOfRange)
	}

	for c := range chunks(addr, int64(len(p)), fs.blockSize) {
		if err := fs.ensureResident(c.Block); err != nil {
			return err
		}

		dst := fs.line.buf[c.Off : c.Off+c.Len]
		src := p[c.Pos : c.Pos+c.Len]

		if !bytes.Equal(dst, src) {
			copy(dst, src)
			fs.line.dirty = true
		}
	}

	return nil
}
