package device

import (
	"errors"
	"fmt"
)

// ErasedByte is the value every byte of a freshly erased flash block reads as.
const ErasedByte byte = 0xFF

var ErrNotErased = errors.New("block must be erased before it is programmed")

// Device is a raw block device that only supports whole-block operations.
// The buffer passed to every call is exactly one block long.
type Device interface {
	ReadBlock(block int64, buf []byte) error
	ProgramBlock(block int64, buf []byte) error
	EraseBlock(block int64) error
}

type BlockOutOfRangeError struct {
	Block int64
	Count int64
}

func (e BlockOutOfRangeError) Error() string {
	return fmt.Sprintf("block %d out of range (device has %d blocks)", e.Block, e.Count)
}

type BufferSizeError struct {
	Got  int
	Want int64
}

func (e BufferSizeError) Error() string {
	return fmt.Sprintf("buffer is %d bytes, block size is %d", e.Got, e.Want)
}

// Funcs adapts three plain functions to Device. This is the shape the
// firmware drivers expose.
type Funcs struct {
	Read    func(block int64, buf []byte) error
	Program func(block int64, buf []byte) error
	Erase   func(block int64) error
}

var _ Device = Funcs{}

func (f Funcs) ReadBlock(block int64, buf []byte) error {
	return f.Read(block, buf)
}

func (f Funcs) ProgramBlock(block int64, buf []byte) error {
	return f.Program(block, buf)
}

func (f Funcs) EraseBlock(block int64) error {
	return f.Erase(block)
}

func checkAccess(block, count int64, buf []byte, blockSize int64) error {
	if block < 0 || block >= count {
		return BlockOutOfRangeError{Block: block, Count: count}
	}

	if buf != nil && int64(len(buf)) != blockSize {
		return BufferSizeError{Got: len(buf), Want: blockSize}
	}

	return nil
}

func blankBlock(blockSize int64) []byte {
	b := make([]byte, blockSize)
	for i := range b {
		b[i] = ErasedByte
	}

	return b
}
