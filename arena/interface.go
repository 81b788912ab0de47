package arena

import (
	"strings"

	"github.com/pkg/errors"
)

// Arena is a fixed-capacity byte arena that serves aligned byte ranges.
//
// Implementations:
//   - Page: free-list arena with perfect/greater fit search, per-chunk
//     deallocation and defragmentation
//   - BumpPage: single-cursor arena, reset in O(1), no per-chunk deallocation
//
// Offsets returned by Allocate stay valid until the matching Deallocate or the
// next DeallocateAll. The backing buffer never moves.
type Arena interface {
	// Allocate reserves n bytes whose address is a multiple of align.
	// ok is false when the arena cannot serve the request; the caller is
	// expected to obtain another arena.
	Allocate(n, align int) (off int, ok bool)

	// Deallocate releases the n bytes at off. Passing an offset or size that
	// does not match a live allocation is a programming error and panics.
	Deallocate(off, n int)

	// DeallocateAll returns the arena to its empty state.
	DeallocateAll()

	// Bytes returns the backing buffer.
	Bytes() []byte

	// Cap returns the capacity in bytes.
	Cap() int

	// Used returns the number of bytes currently handed out.
	Used() int

	// Usage returns Used()/Cap().
	Usage() float64

	// Stats returns allocation counters.
	Stats() Stats
}

// Factory builds an arena over a reserved buffer. Pools take a Factory so the
// arena implementation can be swapped without touching pool code.
type Factory func(buf []byte) Arena

// FreeList returns a Factory producing free-list pages.
func FreeList(opts ...PageOption) Factory {
	return func(buf []byte) Arena {
		return NewPageOn(buf, opts...)
	}
}

// Bump returns a Factory producing bump pages.
func Bump() Factory {
	return func(buf []byte) Arena {
		return NewBumpPageOn(buf)
	}
}

// Kind names an arena implementation in configuration.
type Kind string

const (
	// KindFreeList selects Page. Use it when individual allocations are
	// released mid-frame.
	KindFreeList Kind = "freelist"

	// KindBump selects BumpPage. Use it when everything in a page shares one
	// frame lifetime.
	KindBump Kind = "bump"
)

// ParseKind parses an arena kind name. An empty name selects KindFreeList.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindFreeList, nil
	case KindFreeList, KindBump:
		return k, nil
	default:
		return "", errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// Factory returns the Factory for k. opts apply to free-list pages only.
func (k Kind) Factory(opts ...PageOption) Factory {
	if k == KindBump {
		return Bump()
	}
	return FreeList(opts...)
}
