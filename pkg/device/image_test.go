package device

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageDevice interface {
	Device
	EraseCount(block int64) uint64
	Sync() error
	Close() error
}

func TestImageDevices(t *testing.T) {
	t.Parallel()

	openers := map[string]func(path string, blockSize, count int64) (imageDevice, error){
		"file": func(path string, blockSize, count int64) (imageDevice, error) {
			return OpenFile(path, blockSize, count)
		},
		"mmap": func(path string, blockSize, count int64) (imageDevice, error) {
			return OpenMmap(path, blockSize, count)
		},
	}

	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			const (
				blockSize = 128
				count     = 8
			)

			path := filepath.Join(t.TempDir(), "flash.img")

			t.Run("new image is erased", func(t *testing.T) {
				d, err := open(path, blockSize, count)
				require.NoError(t, err)

				got := make([]byte, blockSize)
				for i := range int64(count) {
					require.NoError(t, d.ReadBlock(i, got))
					assert.Equal(t, bytes.Repeat([]byte{ErasedByte}, blockSize), got)
				}

				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, int64(blockSize*count), info.Size())

				data := bytes.Repeat([]byte{0x11}, blockSize)
				require.NoError(t, d.ProgramBlock(3, data))
				require.ErrorIs(t, d.ProgramBlock(3, data), ErrNotErased)

				require.NoError(t, d.EraseBlock(5))
				assert.Equal(t, uint64(1), d.EraseCount(5))

				require.NoError(t, d.Sync())
				require.NoError(t, d.Close())
			})

			t.Run("reopened image keeps content", func(t *testing.T) {
				d, err := open(path, blockSize, count)
				require.NoError(t, err)
				t.Cleanup(func() { _ = d.Close() })

				got := make([]byte, blockSize)
				require.NoError(t, d.ReadBlock(3, got))
				assert.Equal(t, bytes.Repeat([]byte{0x11}, blockSize), got)

				require.ErrorIs(t, d.ProgramBlock(3, got), ErrNotErased, "programmed blocks stay programmed")
				require.NoError(t, d.ProgramBlock(4, got), "blank blocks are programmable")
			})

			t.Run("geometry mismatch", func(t *testing.T) {
				_, err := open(path, blockSize, count*2)
				require.Error(t, err)
			})
		})
	}
}

func TestFile_ErasedBlocks(t *testing.T) {
	t.Parallel()

	d, err := OpenFile(filepath.Join(t.TempDir(), "flash.img"), 64, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Equal(t, uint(4), d.ErasedBlocks())

	require.NoError(t, d.ProgramBlock(0, make([]byte, 64)))
	assert.Equal(t, uint(3), d.ErasedBlocks())
}

func TestFile_FailedProgramKeepsBlockErased(t *testing.T) {
	t.Parallel()

	d, err := OpenFile(filepath.Join(t.TempDir(), "flash.img"), 64, 4)
	require.NoError(t, err)

	require.NoError(t, d.f.Close())

	require.Error(t, d.ProgramBlock(2, make([]byte, 64)))
	assert.Equal(t, uint(4), d.ErasedBlocks())
}

func TestDiscardImage(t *testing.T) {
	t.Parallel()

	cause := errors.New("map failed")

	t.Run("created image is removed", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "flash.img")
		f, err := os.Create(path)
		require.NoError(t, err)

		require.ErrorIs(t, discardImage(f, true, cause), cause)
		assert.NoFileExists(t, path)
	})

	t.Run("existing image is kept", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "flash.img")
		f, err := os.Create(path)
		require.NoError(t, err)

		require.ErrorIs(t, discardImage(f, false, cause), cause)
		assert.FileExists(t, path)
	})
}
