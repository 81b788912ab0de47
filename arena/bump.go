package arena

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/joshuapare/framealloc/internal/buf"
	"github.com/joshuapare/framealloc/internal/format"
	"github.com/joshuapare/framealloc/internal/store"
)

// BumpPage is an append-only arena over one fixed buffer. It uses a single
// cursor for O(1) allocation and O(1) reset.
//
// Key characteristics:
//   - Allocate aligns the cursor and advances it; no free lists, no maps
//   - Deallocate is a no-op; bytes come back only through DeallocateAll
//   - DeallocateAll moves the cursor back to zero
//
// Use it where everything allocated from the page shares one frame lifetime.
type BumpPage struct {
	buf  []byte
	base uintptr

	// cursor is the offset where the next allocation starts looking.
	cursor int

	stats Stats
}

// NewBumpPage creates a bump page with a heap buffer of RoundSize(size) bytes.
func NewBumpPage(size int) *BumpPage {
	buf, err := store.Heap{}.Reserve(RoundSize(size))
	if err != nil {
		panic(errors.Wrap(err, "arena: reserve page buffer"))
	}
	return NewBumpPageOn(buf)
}

// NewBumpPageOn creates a bump page over buf.
func NewBumpPageOn(buf []byte) *BumpPage {
	if len(buf) == 0 {
		panic(errors.Wrap(ErrBadSize, "page buffer is empty"))
	}
	return &BumpPage{
		buf:  buf,
		base: uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
	}
}

// Allocate advances the cursor to the next aligned address and reserves n
// bytes there. ok is false when the range would run past the buffer.
func (b *BumpPage) Allocate(n, align int) (int, bool) {
	checkRequest(n, align)
	b.stats.AllocCalls++

	addr := b.base + uintptr(b.cursor)
	at := b.cursor + int(format.AlignUp(addr, uintptr(align))-addr)
	if at > len(b.buf)-n {
		b.stats.Misses++
		return 0, false
	}

	b.cursor = at + n
	return at, true
}

// Deallocate checks that [off, off+n) was handed out and otherwise does
// nothing.
func (b *BumpPage) Deallocate(off, n int) {
	if n <= 0 || !buf.Has(b.buf[:b.cursor], off, n) {
		panic(errors.Wrapf(ErrBadRef, "deallocate %d bytes at offset %d (cursor %d)", n, off, b.cursor))
	}
	b.stats.FreeCalls++
}

// DeallocateAll resets the cursor.
func (b *BumpPage) DeallocateAll() {
	b.cursor = 0
	b.stats.Resets++
}

// Bytes returns the backing buffer.
func (b *BumpPage) Bytes() []byte { return b.buf }

// Cap returns the page capacity in bytes.
func (b *BumpPage) Cap() int { return len(b.buf) }

// Used returns the cursor position, alignment padding included.
func (b *BumpPage) Used() int { return b.cursor }

// Usage returns the consumed fraction of the page.
func (b *BumpPage) Usage() float64 { return float64(b.cursor) / float64(len(b.buf)) }

// Stats returns allocation counters.
func (b *BumpPage) Stats() Stats { return b.stats }

var _ Arena = (*BumpPage)(nil)
