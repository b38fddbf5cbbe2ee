package blockfs

import (
	"fmt"
	"io"

	"github.com/e2b-dev/infra/packages/blockfile/internal/logger"
)

// File is a cursor over a fixed window [start, start+maxSize) of the device
// address space. A File is not safe for concurrent use; goroutines sharing
// a device should open their own windows.
//
// Reads and writes are all-or-nothing with respect to the window bounds: a
// transfer that does not fit fails before any device I/O and leaves the
// cursor in place. A transfer that fails midway on a device error leaves the
// cursor in place too, but blocks already handled keep their new content.
type File struct {
	fs      *FS
	start   int64
	maxSize int64
	offset  int64
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.ReaderAt        = (*File)(nil)
	_ io.WriterAt        = (*File)(nil)
)

func (f *File) rangeError(op string, off int64, length int) error {
	f.fs.logger.Debug("transfer outside of window",
		logger.WithWindow(f.start, f.maxSize),
		logger.WithAddress(f.start+off),
		logger.WithLength(length),
	)

	return fmt.Errorf("%s of %d bytes at offset %d in window of %d bytes (%s bounds): %w",
		op, length, off, f.maxSize, f.fs.bounds, ErrOutOfRange)
}

// Write writes all of p at the cursor and advances it.
func (f *File) Write(p []byte) (int, error) {
	if err := f.writeAt(p, f.offset); err != nil {
		return 0, err
	}

	f.offset += int64(len(p))

	return len(p), nil
}

// Read fills all of p from the cursor and advances it. It never returns a
// short read.
func (f *File) Read(p []byte) (int, error) {
	if err := f.readAt(p, f.offset); err != nil {
		return 0, err
	}

	f.offset += int64(len(p))

	return len(p), nil
}

// WriteAt writes p at off inside the window without moving the cursor.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if err := f.writeAt(p, off); err != nil {
		return 0, err
	}

	return len(p), nil
}

// ReadAt reads p at off inside the window without moving the cursor.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.readAt(p, off); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (f *File) writeAt(p []byte, off int64) error {
	if !f.fs.bounds.fits(off, int64(len(p)), f.maxSize) {
		return f.rangeError("write", off, len(p))
	}

	err := f.fs.withLock(func() error {
		return f.fs.copyIn(f.start+off, p)
	})
	if err != nil {
		return fmt.Errorf("write at offset %d: %w", off, err)
	}

	return nil
}

func (f *File) readAt(p []byte, off int64) error {
	if !f.fs.bounds.fits(off, int64(len(p)), f.maxSize) {
		return f.rangeError("read", off, len(p))
	}

	err := f.fs.withLock(func() error {
		return f.fs.copyOut(f.start+off, p)
	})
	if err != nil {
		return fmt.Errorf("read at offset %d: %w", off, err)
	}

	return nil
}

// Seek moves the cursor. io.SeekEnd is relative to the window size.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var target int64

	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.offset + offset
	case io.SeekEnd:
		target = f.maxSize + offset
	default:
		return f.offset, fmt.Errorf("invalid whence %d", whence)
	}

	if !f.fs.bounds.canSeek(target, f.maxSize) {
		return f.offset, fmt.Errorf("seek to %d in window of %d bytes (%s bounds): %w",
			target, f.maxSize, f.fs.bounds, ErrOutOfRange)
	}

	f.offset = target

	return target, nil
}

// Flush syncs the shared cache line. Whatever block is resident gets
// written back, which may belong to another window.
func (f *File) Flush() error {
	return f.fs.Sync()
}

func (f *File) Offset() int64 {
	return f.offset
}

func (f *File) MaxSize() int64 {
	return f.maxSize
}

func (f *File) Start() int64 {
	return f.start
}

func (f *File) FS() *FS {
	return f.fs
}
