package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/e2b-dev/infra/packages/blockfile/internal/cfg"
	"github.com/e2b-dev/infra/packages/blockfile/internal/logger"
	"github.com/e2b-dev/infra/packages/blockfile/pkg/blockfs"
	"github.com/e2b-dev/infra/packages/blockfile/pkg/device"
)

func main() {
	op := flag.String("op", "stat", "'stat', 'read', 'write', 'fill' or 'inspect'")
	start := flag.Int64("start", 0, "window start address")
	size := flag.Int64("size", 0, "window size in bytes (0 means up to the end of the device)")
	offset := flag.Int64("offset", 0, "offset inside the window")
	length := flag.Int64("length", 0, "bytes to read (0 means the rest of the window)")
	data := flag.String("data", "", "string to write; reads stdin when empty")
	value := flag.Uint("value", uint(device.ErasedByte), "byte value for fill")
	workers := flag.Int("workers", 4, "concurrent writers for fill")
	raw := flag.Bool("raw", false, "print read data without a hex dump")

	flag.Parse()

	config, err := cfg.Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %s", err)
	}

	ctx := context.Background()

	l, err := logger.NewLogger(ctx, logger.LoggerConfig{
		ServiceName: "blockfile",
		IsDebug:     config.Debug,
		ExportOtel:  config.ExportOtel,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %s", err)
	}
	defer func() { _ = l.Sync() }()

	dev, release, err := openDevice(ctx, config, l)
	if err != nil {
		l.Fatal("failed to open device", zap.Error(err))
	}

	fs, err := blockfs.New(nil, dev, config.BlockSize, config.BlockCount,
		blockfs.WithLogger(l),
		blockfs.WithBounds(config.Bounds),
	)
	if err != nil {
		l.Fatal("failed to create filesystem", zap.Error(err))
	}

	if *size == 0 {
		*size = fs.Size() - *start
	}

	if *start < 0 || *size <= 0 || *start+*size > fs.Size() {
		l.Fatal("window does not fit the device", logger.WithWindow(*start, *size), zap.Int64("device_size", fs.Size()))
	}

	switch *op {
	case "stat":
		err = stat(fs, config)
	case "read":
		err = read(os.Stdout, fs, *start, *size, *offset, *length, *raw)
	case "write":
		err = write(os.Stdout, os.Stdin, fs, *start, *size, *offset, *data)
	case "fill":
		err = fill(fs, *start, *size, byte(*value), *workers)
	case "inspect":
		err = inspect(fs, *start, *size)
	default:
		err = fmt.Errorf("invalid op: %s", *op)
	}

	if err == nil {
		err = fs.Sync()
	}

	if releaseErr := release(); err == nil {
		err = releaseErr
	}

	if err != nil {
		l.Fatal("operation failed", zap.String("op", *op), zap.Error(err))
	}
}

func stat(fs *blockfs.FS, config cfg.Config) error {
	st := fs.Stat()

	fmt.Printf("\nGEOMETRY\n")
	fmt.Printf("========\n")
	fmt.Printf("Device             %s\n", config.Device.Kind)
	fmt.Printf("Block size         %s\n", humanize.IBytes(uint64(st.BlockSize)))
	fmt.Printf("Block count        %d\n", st.BlockCount)
	fmt.Printf("Size               %s\n", humanize.IBytes(uint64(fs.Size())))
	fmt.Printf("Bounds             %s\n", st.Bounds)

	return nil
}

// slack is the extra window size needed so that a transfer can reach the
// end of a region. Strict bounds never allow the last byte of a window.
func slack(fs *blockfs.FS) int64 {
	if fs.Bounds() == blockfs.BoundsStrict {
		return 1
	}

	return 0
}

func read(out io.Writer, fs *blockfs.FS, start, size, offset, length int64, raw bool) error {
	if length < 0 {
		return fmt.Errorf("invalid length %d", length)
	}

	if length == 0 {
		length = size - offset
	}

	if offset < 0 || length < 0 || offset+length > size {
		return fmt.Errorf("read of %d bytes at offset %d does not fit %d bytes: %w",
			length, offset, size, blockfs.ErrOutOfRange)
	}

	f := fs.Open(start, size+slack(fs))
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return err
	}

	if raw {
		_, err := out.Write(buf)

		return err
	}

	_, err := io.WriteString(out, hex.Dump(buf))

	return err
}

func write(out io.Writer, in io.Reader, fs *blockfs.FS, start, size, offset int64, data string) error {
	content := []byte(data)
	if data == "" {
		var err error
		if content, err = io.ReadAll(in); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	f := fs.Open(start, size+slack(fs))
	if offset < 0 || offset+int64(len(content)) > size {
		return fmt.Errorf("write of %d bytes at offset %d does not fit %d bytes: %w",
			len(content), offset, size, blockfs.ErrOutOfRange)
	}

	if _, err := f.WriteAt(content, offset); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "wrote %s at %d\n", humanize.IBytes(uint64(len(content))), start+offset)

	return err
}

// fill writes value over the window from several goroutines, each through
// its own window over a disjoint part.
func fill(fs *blockfs.FS, start, size int64, value byte, workers int) error {
	if workers < 1 {
		workers = 1
	}

	part := (size + int64(workers) - 1) / int64(workers)

	var g errgroup.Group
	for from := int64(0); from < size; from += part {
		n := min(part, size-from)

		g.Go(func() error {
			f := fs.Open(start+from, n+slack(fs))
			_, err := f.Write(bytes.Repeat([]byte{value}, int(n)))

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("filled %s with 0x%02x\n", humanize.IBytes(uint64(size)), value)

	return nil
}

func inspect(fs *blockfs.FS, start, size int64) error {
	blockSize := fs.BlockSize()
	f := fs.Open(start, size+slack(fs))
	buf := make([]byte, blockSize)

	fmt.Printf("\nDATA\n")
	fmt.Printf("====\n")

	erasedCount := 0
	usedCount := 0

	for off := int64(0); off < size; off += blockSize {
		chunk := buf[:min(blockSize, size-off)]
		if _, err := f.ReadAt(chunk, off); err != nil {
			return err
		}

		addr := start + off
		programmed := len(chunk) - bytes.Count(chunk, []byte{device.ErasedByte})

		if programmed > 0 {
			usedCount++
			fmt.Printf("%-10d [%11d,%11d) %d programmed bytes\n", addr/blockSize, addr, addr+int64(len(chunk)), programmed)
		} else {
			erasedCount++
			fmt.Printf("%-10d [%11d,%11d) ERASED\n", addr/blockSize, addr, addr+int64(len(chunk)))
		}
	}

	fmt.Printf("\nSUMMARY\n")
	fmt.Printf("=======\n")
	fmt.Printf("Erased chunks: %d\n", erasedCount)
	fmt.Printf("Programmed chunks: %d\n", usedCount)
	fmt.Printf("Inspected size: %s\n", humanize.IBytes(uint64(size)))

	return nil
}
