package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_StartsErased(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(64, 4)
	require.NoError(t, err)

	assert.Equal(t, bytes.Repeat([]byte{ErasedByte}, 256), m.Bytes())
	for i := range int64(4) {
		assert.True(t, m.IsErased(i))
		assert.Zero(t, m.EraseCount(i))
	}
}

func TestMemory_EraseBeforeProgram(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(64, 4)
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0x5A}, 64)

	require.NoError(t, m.ProgramBlock(1, data))
	assert.False(t, m.IsErased(1))

	err = m.ProgramBlock(1, data)
	require.ErrorIs(t, err, ErrNotErased)

	require.NoError(t, m.EraseBlock(1))
	assert.Equal(t, uint64(1), m.EraseCount(1))
	assert.True(t, m.IsErased(1))

	require.NoError(t, m.ProgramBlock(1, data))

	got := make([]byte, 64)
	require.NoError(t, m.ReadBlock(1, got))
	assert.Equal(t, data, got)
}

func TestMemory_AccessChecks(t *testing.T) {
	t.Parallel()

	m, err := NewMemory(64, 4)
	require.NoError(t, err)

	var rangeErr BlockOutOfRangeError
	require.ErrorAs(t, m.ReadBlock(4, make([]byte, 64)), &rangeErr)
	assert.Equal(t, int64(4), rangeErr.Block)
	assert.Equal(t, int64(4), rangeErr.Count)

	require.ErrorAs(t, m.EraseBlock(-1), &rangeErr)

	var sizeErr BufferSizeError
	require.ErrorAs(t, m.ProgramBlock(0, make([]byte, 63)), &sizeErr)
	assert.Equal(t, 63, sizeErr.Got)
	assert.True(t, m.IsErased(0), "a rejected program must not consume the erase")

	_, err = NewMemory(0, 4)
	require.Error(t, err)
}
