// Package store provides the byte stores that back arena pages.
//
// A Store hands out fixed-size buffers whose base address is aligned to
// format.PageSize and takes them back when the owning pool is closed. Buffers
// are never resized or moved while reserved.
package store

import (
	"strings"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/framealloc/internal/format"
)

var (
	// ErrExhausted indicates the store could not provide another buffer.
	// This is the only allocation failure a pool reports to its caller.
	ErrExhausted = errors.New("store: exhausted")

	// ErrBadSize indicates a reservation of zero or negative size.
	ErrBadSize = errors.New("store: size must be positive")

	// ErrUnknownKind indicates New was called with an unsupported store kind.
	ErrUnknownKind = errors.New("store: unknown kind")
)

// Store reserves and releases page buffers.
type Store interface {
	// Reserve returns a zeroed buffer of exactly size bytes whose base address
	// is aligned to format.PageSize.
	Reserve(size int) ([]byte, error)

	// Release returns a buffer obtained from Reserve. The buffer must not be
	// used afterwards.
	Release(b []byte) error
}

// Kind names a store implementation in configuration.
type Kind string

const (
	KindHeap Kind = "heap"
	KindMmap Kind = "mmap"
)

// New returns the store registered under kind. An empty kind selects the heap.
func New(kind string) (Store, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", KindHeap:
		return Heap{}, nil
	case KindMmap:
		return Mmap{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
}

// Heap reserves buffers from the Go heap. The Go runtime aborts the process on
// true out-of-memory, so Reserve only fails on bad input.
type Heap struct {
	// Align is the base alignment of returned buffers (default format.PageSize).
	Align int
}

// Reserve over-allocates by Align-1 bytes and trims the front so the returned
// slice starts on an aligned address.
func (h Heap) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrBadSize, "reserve %d", size)
	}
	align := h.Align
	if align == 0 {
		align = format.PageSize
	}
	if !format.IsPowerOfTwo(align) {
		return nil, errors.Errorf("store: alignment %d is not a power of two", align)
	}

	raw := make([]byte, size+align-1)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int(format.AlignUp(base, uintptr(align)) - base)
	return raw[off : off+size : off+size], nil
}

// Release is a no-op; the garbage collector reclaims the buffer once the page
// drops it.
func (Heap) Release([]byte) error { return nil }

// Limited caps the total number of bytes reserved through Store. It is used to
// bound memory use and to exercise the exhaustion path.
type Limited struct {
	Store Store
	Limit int

	reserved int
}

// NewLimited wraps s so that at most limit bytes are reserved at once.
func NewLimited(s Store, limit int) *Limited {
	return &Limited{Store: s, Limit: limit}
}

// Reserve fails with ErrExhausted when size would push the reserved total past
// the limit.
func (l *Limited) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrBadSize, "reserve %d", size)
	}
	if l.reserved+size > l.Limit {
		return nil, errors.Wrapf(ErrExhausted, "reserve %d bytes: %d of %d in use",
			size, l.reserved, l.Limit)
	}
	b, err := l.Store.Reserve(size)
	if err != nil {
		return nil, err
	}
	l.reserved += len(b)
	return b, nil
}

// Release forwards to the wrapped store and gives the bytes back to the budget.
func (l *Limited) Release(b []byte) error {
	if err := l.Store.Release(b); err != nil {
		return err
	}
	l.reserved -= len(b)
	return nil
}

// Reserved returns the number of bytes currently reserved.
func (l *Limited) Reserved() int {
	return l.reserved
}
