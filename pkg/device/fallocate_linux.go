//go:build linux

package device

import (
	"os"

	"golang.org/x/sys/unix"
)

func fallocate(size int64, out *os.File) error {
	return unix.Fallocate(int(out.Fd()), 0, 0, size)
}
