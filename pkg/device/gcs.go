package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	gcsReadTimeout      = 10 * time.Second
	gcsOperationTimeout = 5 * time.Second
)

// GCS stores every block as its own object under a prefix of a bucket.
// A block whose object does not exist reads as erased.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	ctx    context.Context

	blank     []byte
	blockSize int64
	count     int64
}

var _ Device = (*GCS)(nil)

func NewGCS(ctx context.Context, bucket, prefix string, blockSize, count int64, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	g, err := NewGCSFromBucket(ctx, client.Bucket(bucket), prefix, blockSize, count)
	if err != nil {
		return nil, errors.Join(err, client.Close())
	}

	g.client = client

	return g, nil
}

// NewGCSFromBucket uses a bucket handle owned by the caller; Close is then a no-op.
func NewGCSFromBucket(ctx context.Context, bucket *storage.BucketHandle, prefix string, blockSize, count int64) (*GCS, error) {
	if blockSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("invalid geometry: block size %d, block count %d", blockSize, count)
	}

	return &GCS{
		bucket:    bucket,
		prefix:    prefix,
		ctx:       ctx,
		blank:     blankBlock(blockSize),
		blockSize: blockSize,
		count:     count,
	}, nil
}

func (g *GCS) objectName(block int64) string {
	return path.Join(g.prefix, fmt.Sprintf("%08d", block))
}

func (g *GCS) ReadBlock(block int64, buf []byte) error {
	if err := checkAccess(block, g.count, buf, g.blockSize); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(g.ctx, gcsReadTimeout)
	defer cancel()

	reader, err := g.bucket.Object(g.objectName(block)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		copy(buf, g.blank)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to create GCS reader for block %d: %w", block, err)
	}

	defer reader.Close()

	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("failed to read block %d from GCS: %w", block, err)
	}

	return nil
}

func (g *GCS) ProgramBlock(block int64, buf []byte) error {
	if err := checkAccess(block, g.count, buf, g.blockSize); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(g.ctx, gcsOperationTimeout)
	defer cancel()

	w := g.bucket.Object(g.objectName(block)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"

	if _, err := w.Write(buf); err != nil {
		w.Close()

		return fmt.Errorf("failed to write block %d to GCS: %w", block, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize block %d in GCS: %w", block, err)
	}

	return nil
}

func (g *GCS) EraseBlock(block int64) error {
	if err := checkAccess(block, g.count, nil, g.blockSize); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(g.ctx, gcsOperationTimeout)
	defer cancel()

	err := g.bucket.Object(g.objectName(block)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to erase block %d in GCS: %w", block, err)
	}

	return nil
}

func (g *GCS) Close() error {
	if g.client == nil {
		return nil
	}

	return g.client.Close()
}
