package device

import (
	"fmt"
	"sync"
)

type Op string

const (
	OpRead    Op = "read"
	OpProgram Op = "program"
	OpErase   Op = "erase"
)

type Call struct {
	Op    Op
	Block int64
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d)", c.Op, c.Block)
}

// Mock is an in-memory device that records every call in order and can be
// told to fail specific operations. It does not enforce erase-before-program.
type Mock struct {
	mu        sync.Mutex
	data      []byte
	blockSize int64
	count     int64

	calls  []Call
	faults map[Call]error
}

var _ Device = (*Mock)(nil)

// NewMock creates an erased mock device. It cannot be resized.
func NewMock(blockSize, count int64) *Mock {
	data := make([]byte, blockSize*count)
	for i := range data {
		data[i] = ErasedByte
	}

	return &Mock{
		data:      data,
		blockSize: blockSize,
		count:     count,
		faults:    make(map[Call]error),
	}
}

func (m *Mock) record(op Op, block int64, buf []byte) error {
	c := Call{Op: op, Block: block}
	m.calls = append(m.calls, c)

	if err, ok := m.faults[c]; ok {
		return err
	}

	return checkAccess(block, m.count, buf, m.blockSize)
}

func (m *Mock) ReadBlock(block int64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpRead, block, buf); err != nil {
		return err
	}

	copy(buf, m.data[block*m.blockSize:(block+1)*m.blockSize])

	return nil
}

func (m *Mock) ProgramBlock(block int64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpProgram, block, buf); err != nil {
		return err
	}

	copy(m.data[block*m.blockSize:], buf)

	return nil
}

func (m *Mock) EraseBlock(block int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpErase, block, nil); err != nil {
		return err
	}

	region := m.data[block*m.blockSize : (block+1)*m.blockSize]
	for i := range region {
		region[i] = ErasedByte
	}

	return nil
}

// FailOn makes every following op on block return err until ClearFaults.
func (m *Mock) FailOn(op Op, block int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.faults[Call{Op: op, Block: block}] = err
}

func (m *Mock) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.faults = make(map[Call]error)
}

// Calls returns a copy of the call log.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Call, len(m.calls))
	copy(out, m.calls)

	return out
}

func (m *Mock) Count(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}

	return n
}

// ResetCalls clears the call log but keeps the content.
func (m *Mock) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = nil
}

// Block returns a copy of the stored content of a block.
func (m *Mock) Block(block int64) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]byte, m.blockSize)
	copy(out, m.data[block*m.blockSize:(block+1)*m.blockSize])

	return out
}

// Fill overwrites the stored content of a block without recording a call.
func (m *Mock) Fill(block int64, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.data[block*m.blockSize:(block+1)*m.blockSize], content)
}
