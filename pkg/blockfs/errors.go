package blockfs

import (
	"errors"
	"fmt"

	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

var (
	// ErrOutOfRange is returned for accesses beyond the device, beyond the
	// file window, and for seeks outside the window.
	ErrOutOfRange = errors.New("out of range")

	// ErrDevice matches every DeviceError.
	ErrDevice = errors.New("device failure")
)

type DeviceError struct {
	Op    device.Op
	Block int64
	Err   error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s of block %d failed: %v", e.Op, e.Block, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}
