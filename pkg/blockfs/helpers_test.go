package blockfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

func newTestFS(t *testing.T, blockSize, blockCount int64, opts ...Option) (*FS, *device.Mock) {
	t.Helper()

	dev := device.NewMock(blockSize, blockCount)

	fs, err := New(make([]byte, blockSize), dev, blockSize, blockCount, opts...)
	require.NoError(t, err)

	return fs, dev
}

func calls(ops ...any) []device.Call {
	out := make([]device.Call, 0, len(ops)/2)
	for i := 0; i+1 < len(ops); i += 2 {
		out = append(out, device.Call{Op: ops[i].(device.Op), Block: int64(ops[i+1].(int))})
	}

	return out
}

func pattern(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func erased(n int) []byte {
	return pattern(device.ErasedByte, n)
}
