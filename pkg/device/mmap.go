package device

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// Mmap emulates a flash chip in a memory-mapped image file.
type Mmap struct {
	mu        sync.RWMutex
	file      *os.File
	mmap      mmap.MMap
	blank     []byte
	blockSize int64
	count     int64
	tracker   *eraseTracker
}

var _ Device = (*Mmap)(nil)

func OpenMmap(path string, blockSize, count int64) (*Mmap, error) {
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
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	if created {
		err = f.Truncate(size)
		if err != nil {
			return nil, discardImage(f, created, fmt.Errorf("error allocating file: %w", err))
		}
	} else {
		info, err := f.Stat()
		if err != nil {
			return nil, discardImage(f, created, fmt.Errorf("error reading file size: %w", err))
		}

		if info.Size() != size {
			return nil, discardImage(f, created, fmt.Errorf("image file is %d bytes, geometry needs %d", info.Size(), size))
		}
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, discardImage(f, created, fmt.Errorf("error mapping file: %w", err))
	}

	m := &Mmap{
		file:      f,
		mmap:      mm,
		blank:     blankBlock(blockSize),
		blockSize: blockSize,
		count:     count,
		tracker:   newEraseTracker(count),
	}

	for i := int64(0); i < count; i++ {
		region := m.region(i)
		if created {
			copy(region, m.blank)
		}

		m.tracker.markBlank(i, region, m.blank)
	}

	return m, nil
}

func (m *Mmap) region(block int64) []byte {
	return m.mmap[block*m.blockSize : (block+1)*m.blockSize]
}

func (m *Mmap) ReadBlock(block int64, buf []byte) error {
	if err := checkAccess(block, m.count, buf, m.blockSize); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	copy(buf, m.region(block))

	return nil
}

func (m *Mmap) ProgramBlock(block int64, buf []byte) error {
	if err := checkAccess(block, m.count, buf, m.blockSize); err != nil {
		return err
	}

	err := m.tracker.program(block, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		copy(m.region(block), buf)

		return nil
	})
	if err != nil {
		return fmt.Errorf("program block %d: %w", block, err)
	}

	return nil
}

func (m *Mmap) EraseBlock(block int64) error {
	if err := checkAccess(block, m.count, nil, m.blockSize); err != nil {
		return err
	}

	m.mu.Lock()
	copy(m.region(block), m.blank)
	m.mu.Unlock()

	m.tracker.markErased(block)

	return nil
}

func (m *Mmap) EraseCount(block int64) uint64 {
	return m.tracker.eraseCount(block)
}

func (m *Mmap) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mmap.Flush(); err != nil {
		return fmt.Errorf("error syncing mmap: %w", err)
	}

	return nil
}

func (m *Mmap) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	flushErr := m.mmap.Flush()
	mmapErr := m.mmap.Unmap()
	closeErr := m.file.Close()

	return errors.Join(flushErr, mmapErr, closeErr)
}
