// Package buf contains overflow-safe size arithmetic and bounds helpers for
// carving typed ranges out of page buffers.
package buf

import (
	"math"

	"github.com/pkg/errors"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// the result would overflow int or either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// ByteSize returns count*elemSize, the number of bytes needed to hold count
// elements of elemSize bytes each.
//
//	n, err := buf.ByteSize(numVertices, int(unsafe.Sizeof(Vertex{})))
//	if err != nil {
//	    return err
//	}
func ByteSize(count, elemSize int) (int, error) {
	if count < 0 {
		return 0, errors.Errorf("negative count: %d", count)
	}
	if elemSize < 0 {
		return 0, errors.Errorf("negative element size: %d", elemSize)
	}
	total, ok := MulOverflowSafe(count, elemSize)
	if !ok {
		return 0, errors.Errorf("overflow: count=%d * elemSize=%d", count, elemSize)
	}
	return total, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
// The capacity of the result is clipped to n so appends never spill into a
// neighbouring range.
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
