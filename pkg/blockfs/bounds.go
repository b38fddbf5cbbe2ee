package blockfs

import "fmt"

// Bounds decides whether a transfer or seek may touch the last byte
// position of a file window.
type Bounds int

const (
	// BoundsInclusive allows offset+len == maxSize and seeking to maxSize.
	BoundsInclusive Bounds = iota
	// BoundsStrict rejects offset+len == maxSize and seeking to maxSize,
	// as the shipped firmware does. The last byte of a window is unusable.
	BoundsStrict
)

func (b Bounds) String() string {
	switch b {
	case BoundsInclusive:
		return "inclusive"
	case BoundsStrict:
		return "strict"
	default:
		return fmt.Sprintf("bounds(%d)", int(b))
	}
}

func (b *Bounds) UnmarshalText(text []byte) error {
	switch string(text) {
	case "inclusive", "":
		*b = BoundsInclusive
	case "strict":
		*b = BoundsStrict
	default:
		return fmt.Errorf("unknown bounds policy %q", text)
	}

	return nil
}

func (b Bounds) fits(offset, length, maxSize int64) bool {
	if offset < 0 || length < 0 || offset > maxSize {
		return false
	}

	remaining := maxSize - offset
	if b == BoundsStrict {
		return length < remaining
	}

	return length <= remaining
}

func (b Bounds) canSeek(target, maxSize int64) bool {
	if target < 0 {
		return false
	}

	if b == BoundsStrict {
		return target < maxSize
	}

	return target <= maxSize
}
