package blockfs

import "iter"

// Locate maps a linear device address to the block holding it and the
// offset inside that block.
func Locate(addr, blockSize int64) (block, off int64) {
	return addr / blockSize, addr % blockSize
}

// ChunkLen clips a transfer of remaining bytes starting at off so it stays
// inside one block.
func ChunkLen(off, remaining, blockSize int64) int64 {
	return min(blockSize-off, remaining)
}

// chunk is one single-block step of a transfer. Pos is the position of the
// step inside the caller's buffer.
type chunk struct {
	Block int64
	Off   int64
	Len   int64
	Pos   int64
}

// chunks splits [addr, addr+length) into block-aligned steps.
func chunks(addr, length, blockSize int64) iter.Seq[chunk] {
	return func(yield func(chunk) bool) {
		block, off := Locate(addr, blockSize)

		for pos := int64(0); pos < length; {
			n := ChunkLen(off, length-pos, blockSize)
			if !yield(chunk{Block: block, Off: off, Len: n, Pos: pos}) {
				return
			}

			pos += n
			off = 0
			block++
		}
	}
}
