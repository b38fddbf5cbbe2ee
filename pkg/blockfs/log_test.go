package blockfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

func TestFS_LogsDeviceFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	fs, dev := newTestFS(t, 64, 4, WithLogger(zap.New(core)))
	f := fs.Open(0, 256)

	_, err := f.Write([]byte{1})
	require.NoError(t, err)

	dev.FailOn(device.OpProgram, 0, errInjected)
	require.ErrorIs(t, fs.Sync(), ErrDevice)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "failed to program block", warnings[0].Message)
	assert.Equal(t, int64(0), warnings[0].ContextMap()["block"])

	assert.Equal(t, 1, logs.FilterMessage("loading block").Len())
	assert.Equal(t, 1, logs.FilterMessage("flushing block").Len())
}

func TestFS_LogsRejectedTransfers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	fs, _ := newTestFS(t, 64, 4, WithLogger(zap.New(core)))
	f := fs.Open(64, 10)

	_, err := f.Write(make([]byte, 11))
	require.ErrorIs(t, err, ErrOutOfRange)

	entries := logs.FilterMessage("transfer outside of window").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(64), entries[0].ContextMap()["address"])
	assert.Equal(t, int64(11), entries[0].ContextMap()["length"])
}
