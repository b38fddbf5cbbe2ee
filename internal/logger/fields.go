package logger

import (
	"go.uber.org/zap"
)

func WithBlock(block int64) zap.Field {
	return zap.Int64("block", block)
}

func WithAddress(addr int64) zap.Field {
	return zap.Int64("address", addr)
}

func WithLength(length int) zap.Field {
	return zap.Int("length", length)
}

func WithDeviceKind(kind string) zap.Field {
	return zap.String("device.kind", kind)
}

func WithWindow(start, maxSize int64) zap.Field {
	return zap.Dict("window", zap.Int64("start", start), zap.Int64("max_size", maxSize))
}
