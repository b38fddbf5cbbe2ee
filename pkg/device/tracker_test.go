package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEraseTracker_Program(t *testing.T) {
	t.Parallel()

	tr := newEraseTracker(2)
	tr.markErased(0)

	writes := 0
	write := func() error {
		writes++

		return nil
	}

	require.NoError(t, tr.program(0, write))
	assert.False(t, tr.isErased(0))

	require.ErrorIs(t, tr.program(0, write), ErrNotErased)
	require.ErrorIs(t, tr.program(1, write), ErrNotErased)
	assert.Equal(t, 1, writes, "writes only run on erased blocks")
}

func TestEraseTracker_FailedWriteKeepsErased(t *testing.T) {
	t.Parallel()

	tr := newEraseTracker(1)
	tr.markErased(0)

	failure := errors.New("short write")
	require.ErrorIs(t, tr.program(0, func() error { return failure }), failure)

	assert.True(t, tr.isErased(0))
	assert.Equal(t, uint(1), tr.erasedBlocks())
	require.NoError(t, tr.program(0, func() error { return nil }))
}
