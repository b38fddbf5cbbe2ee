package device

import (
	"fmt"
	"sync"
)

// Memory emulates a flash chip in a byte slice. Used by tests and by the CLI
// when no image path is configured.
type Memory struct {
	mu        sync.RWMutex
	data      []byte
	blank     []byte
	blockSize int64
	count     int64
	tracker   *eraseTracker
}

var _ Device = (*Memory)(nil)

// NewMemory returns a fully erased chip of count blocks.
func NewMemory(blockSize, count int64) (*Memory, error) {
	if blockSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("invalid geometry: block size %d, block count %d", blockSize, count)
	}

	m := &Memory{
		data:      make([]byte, blockSize*count),
		blank:     blankBlock(blockSize),
		blockSize: blockSize,
		count:     count,
		tracker:   newEraseTracker(count),
	}

	for i := int64(0); i < count; i++ {
		copy(m.data[i*blockSize:], m.blank)
		m.tracker.markBlank(i, m.blank, m.blank)
	}

	return m, nil
}

func (m *Memory) ReadBlock(block int64, buf []byte) error {
	if err := checkAccess(block, m.count, buf, m.blockSize); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	copy(buf, m.data[block*m.blockSize:(block+1)*m.blockSize])

	return nil
}

func (m *Memory) ProgramBlock(block int64, buf []byte) error {
	if err := checkAccess(block, m.count, buf, m.blockSize); err != nil {
		return err
	}

	err := m.tracker.program(block, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		copy(m.data[block*m.blockSize:], buf)

		return nil
	})
	if err != nil {
		return fmt.Errorf("program block %d: %w", block, err)
	}

	return nil
}

func (m *Memory) EraseBlock(block int64) error {
	if err := checkAccess(block, m.count, nil, m.blockSize); err != nil {
		return err
	}

	m.mu.Lock()
	copy(m.data[block*m.blockSize:], m.blank)
	m.mu.Unlock()

	m.tracker.markErased(block)

	return nil
}

func (m *Memory) BlockSize() int64 {
	return m.blockSize
}

func (m *Memory) BlockCount() int64 {
	return m.count
}

// EraseCount returns how many times the block has been erased.
func (m *Memory) EraseCount(block int64) uint64 {
	return m.tracker.eraseCount(block)
}

// IsErased reports whether the block can be programmed without an erase.
func (m *Memory) IsErased(block int64) bool {
	return m.tracker.isErased(block)
}

// Bytes returns a copy of the whole chip content.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]byte, len(m.data))
	copy(out, m.data)

	return out
}
