package device

import (
	"bytes"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// eraseTracker keeps the NOR/NAND rule that a block is programmed at most
// once between two erases, and counts erases per block.
type eraseTracker struct {
	mu     sync.RWMutex
	erased *bitset.BitSet
	erases []uint64
}

func newEraseTracker(count int64) *eraseTracker {
	return &eraseTracker{
		erased: bitset.New(uint(count)),
		erases: make([]uint64, count),
	}
}

func (t *eraseTracker) markErased(block int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.erased.Set(uint(block))
	t.erases[block]++
}

// program runs write only when block is erased and consumes the erased
// state once write succeeds. A failed write leaves the block erased.
func (t *eraseTracker) program(block int64, write func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.erased.Test(uint(block)) {
		return ErrNotErased
	}

	if err := write(); err != nil {
		return err
	}

	t.erased.Clear(uint(block))

	return nil
}

func (t *eraseTracker) isErased(block int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.erased.Test(uint(block))
}

func (t *eraseTracker) eraseCount(block int64) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.erases[block]
}

func (t *eraseTracker) erasedBlocks() uint {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.erased.Count()
}

// markBlank sets the erased bit, without counting an erase, for blocks whose
// content already reads as erased. Used when attaching to an existing image.
func (t *eraseTracker) markBlank(block int64, content, blank []byte) {
	if !bytes.Equal(content, blank) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.erased.Set(uint(block))
}
