package device

import (
	"errors"
	"fmt"
	"os"
)

// File emulates a flash chip in a regular file of blockSize*count bytes.
type File struct {
	f         *os.File
	blank     []byte
	blockSize int64
	count     int64
	tracker   *eraseTracker
}

var _ Device = (*File)(nil)

// OpenFile opens the image at path, creating it when missing. A new image
// is preallocated and fully erased; an existing one must have the exact
// size of the geometry.
func OpenFile(path string, blockSize, count int64) (*File, error) {
	if blockSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("invalid geometry: block size %d, block count %d", blockSize, count)
	}

	size := blockSize * count

	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		created = true
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}

	d := &File{
		f:         f,
		blank:     blankBlock(blockSize),
		blockSize: blockSize,
		count:     count,
		tracker:   newEraseTracker(count),
	}

	if created {
		err = d.format(size)
	} else {
		err = d.attach(size)
	}

	if err != nil {
		return nil, discardImage(f, created, err)
	}

	return d, nil
}

// discardImage closes an image that failed to open and removes it when this
// call created it, so a retry starts from scratch.
func discardImage(f *os.File, created bool, cause error) error {
	errs := []error{cause, f.Close()}
	if created {
		errs = append(errs, os.Remove(f.Name()))
	}

	return errors.Join(errs...)
}

func (d *File) format(size int64) error {
	if err := fallocate(size, d.f); err != nil {
		return fmt.Errorf("failed to preallocate image file: %w", err)
	}

	for i := int64(0); i < d.count; i++ {
		if _, err := d.f.WriteAt(d.blank, i*d.blockSize); err != nil {
			return fmt.Errorf("failed to erase block %d: %w", i, err)
		}

		d.tracker.markBlank(i, d.blank, d.blank)
	}

	return nil
}

func (d *File) attach(size int64) error {
	info, err := d.f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat image file: %w", err)
	}

	if info.Size() != size {
		return fmt.Errorf("image file is %d bytes, geometry needs %d", info.Size(), size)
	}

	buf := make([]byte, d.blockSize)
	for i := int64(0); i < d.count; i++ {
		if _, err := d.f.ReadAt(buf, i*d.blockSize); err != nil {
			return fmt.Errorf("failed to scan block %d: %w", i, err)
		}

		d.tracker.markBlank(i, buf, d.blank)
	}

	return nil
}

func (d *File) ReadBlock(block int64, buf []byte) error {
	if err := checkAccess(block, d.count, buf, d.blockSize); err != nil {
		return err
	}

	if _, err := d.f.ReadAt(buf, block*d.blockSize); err != nil {
		return fmt.Errorf("disk read error: %w", err)
	}

	return nil
}

func (d *File) ProgramBlock(block int64, buf []byte) error {
	if err := checkAccess(block, d.count, buf, d.blockSize); err != nil {
		return err
	}

	err := d.tracker.program(block, func() error {
		if _, err := d.f.WriteAt(buf, block*d.blockSize); err != nil {
			return fmt.Errorf("disk write error: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("program block %d: %w", block, err)
	}

	return nil
}

func (d *File) EraseBlock(block int64) error {
	if err := checkAccess(block, d.count, nil, d.blockSize); err != nil {
		return err
	}

	if _, err := d.f.WriteAt(d.blank, block*d.blockSize); err != nil {
		return fmt.Errorf("disk erase error: %w", err)
	}

	d.tracker.markErased(block)

	return nil
}

func (d *File) EraseCount(block int64) uint64 {
	return d.tracker.eraseCount(block)
}

func (d *File) ErasedBlocks() uint {
	return d.tracker.erasedBlocks()
}

func (d *File) Sync() error {
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("disk sync error: %w", err)
	}

	return nil
}

func (d *File) Close() error {
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("disk close error: %w", err)
	}

	return nil
}
