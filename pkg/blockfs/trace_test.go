package blockfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

func TestFS_TracesLoadsAndFlushes(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	fs, dev := newTestFS(t, 64, 4, WithTracerProvider(tp))
	f := fs.Open(0, 256)

	_, err := f.WriteAt([]byte{1}, 0)
	require.NoError(t, err)

	_, err = f.ReadAt(make([]byte, 1), 64)
	require.NoError(t, err)

	dev.FailOn(device.OpRead, 2, errInjected)
	_, err = f.ReadAt(make([]byte, 1), 128)
	require.ErrorIs(t, err, ErrDevice)

	spans := recorder.Ended()
	require.Len(t, spans, 4)

	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"load-block", "flush-block", "load-block", "load-block"}, names)

	assert.Contains(t, spans[1].Attributes(), attribute.Int64("block", 0))
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	assert.Contains(t, spans[3].Attributes(), attribute.Int64("block", 2))
	assert.Equal(t, codes.Error, spans[3].Status().Code)
}
