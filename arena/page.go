package arena

import (
	"cmp"
	"slices"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/joshuapare/framealloc/internal/format"
	"github.com/joshuapare/framealloc/internal/store"
)

const (
	// PageSize is the granularity page capacities are rounded up to.
	PageSize = format.PageSize

	// DefaultDefragThreshold is the usage fraction below which a failed
	// greater-fit search triggers a defragmentation pass and one retry.
	DefaultDefragThreshold = 0.80
)

// RoundSize returns the capacity of a page able to hold n bytes: n rounded up
// to PageSize, with a minimum of one PageSize.
func RoundSize(n int) int {
	if n < 1 {
		n = 1
	}
	return format.AlignPage(n)
}

// Page is a free-list arena over one fixed buffer.
//
// Free chunks are kept ordered by size so allocation is a best-fit search:
//
//  1. perfect fit: an exact-size free chunk whose address is already aligned
//  2. greater fit: the smallest larger chunk that can hold an aligned range,
//     split into pad / payload / remainder
//  3. if that fails while usage is below the defrag threshold, coalesce
//     neighbouring free chunks and retry step 2 once
//
// Deallocation returns a chunk to the free set without merging it; merging
// only happens in Defrag. A free chunk of exactly the requested size at a
// misaligned address is therefore not reused until it has been coalesced with
// a neighbour.
//
// Page is not safe for concurrent use.
type Page struct {
	buf  []byte
	base uintptr

	free      freeSet
	used      map[int]Chunk // offset -> chunk
	usedBytes int

	defragThreshold float64

	stats Stats
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithDefragThreshold sets the usage fraction below which Allocate may run
// Defrag. Zero disables automatic defragmentation.
func WithDefragThreshold(f float64) PageOption {
	return func(p *Page) {
		p.defragThreshold = f
	}
}

// NewPage creates a page with a heap buffer of RoundSize(size) bytes.
func NewPage(size int, opts ...PageOption) *Page {
	buf, err := store.Heap{}.Reserve(RoundSize(size))
	if err != nil {
		panic(errors.Wrap(err, "arena: reserve page buffer"))
	}
	return NewPageOn(buf, opts...)
}

// NewPageOn creates a page over buf. The page takes exclusive use of buf; its
// capacity is len(buf).
func NewPageOn(buf []byte, opts ...PageOption) *Page {
	if len(buf) == 0 {
		panic(errors.Wrap(ErrBadSize, "page buffer is empty"))
	}
	p := &Page{
		buf:             buf,
		base:            uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
		used:            make(map[int]Chunk),
		defragThreshold: DefaultDefragThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.free.insert(Chunk{Off: 0, Len: len(buf)})
	return p
}

// Allocate reserves n bytes aligned to align and returns their offset in
// Bytes(). ok is false when no free chunk can serve the request.
func (p *Page) Allocate(n, align int) (int, bool) {
	checkRequest(n, align)
	p.stats.AllocCalls++

	if off, ok := p.findPerfect(n, align); ok {
		return off, true
	}
	if off, ok := p.findGreater(n, align); ok {
		return off, true
	}
	if float64(p.usedBytes) < p.defragThreshold*float64(len(p.buf)) {
		p.Defrag()
		if off, ok := p.findGreater(n, align); ok {
			return off, true
		}
	}

	p.stats.Misses++
	return 0, false
}

// Deallocate returns the n bytes at off to the free set. off must be the
// offset of a live allocation of exactly n bytes.
func (p *Page) Deallocate(off, n int) {
	c, ok := p.used[off]
	if !ok {
		panic(errors.Wrapf(ErrBadRef, "deallocate %d bytes at offset %d", n, off))
	}
	if c.Len != n {
		panic(errors.Wrapf(ErrSizeMismatch, "offset %d: allocated %d bytes, deallocating %d", off, c.Len, n))
	}

	delete(p.used, off)
	p.free.insert(c)
	p.usedBytes -= c.Len
	p.stats.FreeCalls++
}

// DeallocateAll releases every allocation at once, leaving a single free
// chunk that spans the buffer.
func (p *Page) DeallocateAll() {
	clear(p.used)
	p.free.reset(Chunk{Off: 0, Len: len(p.buf)})
	p.usedBytes = 0
	p.stats.Resets++
}

// findPerfect takes the first exact-size free chunk whose address satisfies align.
// Exact-size chunks at misaligned addresses are left in place.
func (p *Page) findPerfect(n, align int) (int, bool) {
	lo, hi := p.free.equalRange(n)
	for i := lo; i < hi; i++ {
		c := p.free.chunks[i]
		if !p.aligned(c.Off, align) {
			continue
		}
		p.free.removeAt(i)
		p.markUsed(c)
		p.stats.PerfectFits++
		return c.Off, true
	}
	return 0, false
}

// findGreater scans free chunks strictly larger than n, smallest first, and
// carves an aligned n-byte range out of the first one that can hold it.
func (p *Page) findGreater(n, align int) (int, bool) {
	for i := p.free.upperBound(n); i < p.free.len(); i++ {
		c := p.free.chunks[i]
		at := p.alignOffset(c.Off, align)
		if at+n > c.End() {
			continue
		}

		p.free.removeAt(i)
		if pad := at - c.Off; pad > 0 {
			p.free.insert(Chunk{Off: c.Off, Len: pad})
			p.stats.Splits++
		}
		if rest := c.End() - (at + n); rest > 0 {
			p.free.insert(Chunk{Off: at + n, Len: rest})
			p.stats.Splits++
		}
		p.markUsed(Chunk{Off: at, Len: n})
		p.stats.GreaterFits++
		return at, true
	}
	return 0, false
}

func (p *Page) markUsed(c Chunk) {
	if p.usedBytes > len(p.buf)-c.Len {
		panic(errors.Errorf("arena: used bytes %d + %d exceed capacity %d", p.usedBytes, c.Len, len(p.buf)))
	}
	p.used[c.Off] = c
	p.usedBytes += c.Len
}

// aligned reports whether the byte at off sits on an align boundary in memory.
func (p *Page) aligned(off, align int) bool {
	return format.IsAligned(p.base+uintptr(off), uintptr(align))
}

// alignOffset returns the smallest offset >= off whose address is aligned.
func (p *Page) alignOffset(off, align int) int {
	addr := p.base + uintptr(off)
	return off + int(format.AlignUp(addr, uintptr(align))-addr)
}

// Bytes returns the backing buffer.
func (p *Page) Bytes() []byte { return p.buf }

// Cap returns the page capacity in bytes.
func (p *Page) Cap() int { return len(p.buf) }

// Used returns the number of allocated bytes.
func (p *Page) Used() int { return p.usedBytes }

// Free returns the number of unallocated bytes.
func (p *Page) Free() int { return len(p.buf) - p.usedBytes }

// Usage returns the allocated fraction of the page.
func (p *Page) Usage() float64 { return float64(p.usedBytes) / float64(len(p.buf)) }

// LargestFree returns the length of the largest free chunk.
func (p *Page) LargestFree() int { return p.free.largest() }

// Stats returns allocation counters.
func (p *Page) Stats() Stats { return p.stats }

// FreeChunks returns a snapshot of the free chunks ordered by offset.
func (p *Page) FreeChunks() []Chunk {
	out := slices.Clone(p.free.chunks)
	slices.SortFunc(out, byOffset)
	return out
}

// UsedChunks returns a snapshot of the allocated chunks ordered by offset.
func (p *Page) UsedChunks() []Chunk {
	out := make([]Chunk, 0, len(p.used))
	for _, c := range p.used {
		out = append(out, c)
	}
	slices.SortFunc(out, byOffset)
	return out
}

// Check verifies that free and used chunks tile the buffer exactly and that
// the used-byte counter matches. It returns every violation found.
func (p *Page) Check() error {
	var result *multierror.Error

	if got := p.free.total() + p.usedBytes; got != len(p.buf) {
		result = multierror.Append(result, errors.Errorf("free %d + used %d != capacity %d",
			p.free.total(), p.usedBytes, len(p.buf)))
	}

	sum := 0
	for off, c := range p.used {
		if off != c.Off {
			result = multierror.Append(result, errors.Errorf("used chunk %v keyed at %d", c, off))
		}
		sum += c.Len
	}
	if sum != p.usedBytes {
		result = multierror.Append(result, errors.Errorf("used chunks sum to %d, counter says %d", sum, p.usedBytes))
	}

	for i := 1; i < p.free.len(); i++ {
		if p.free.chunks[i-1].Len > p.free.chunks[i].Len {
			result = multierror.Append(result, errors.Errorf("free set out of order at %d", i))
		}
	}

	all := append(p.FreeChunks(), p.UsedChunks()...)
	slices.SortFunc(all, byOffset)
	next := 0
	for _, c := range all {
		switch {
		case c.Len <= 0:
			result = multierror.Append(result, errors.Errorf("chunk %v has non-positive length", c))
		case c.Off < next:
			result = multierror.Append(result, errors.Errorf("chunk %v overlaps previous chunk ending at %d", c, next))
		case c.Off > next:
			result = multierror.Append(result, errors.Errorf("gap [%d,%d) not tracked", next, c.Off))
		}
		next = max(next, c.End())
	}
	if next != len(p.buf) {
		result = multierror.Append(result, errors.Errorf("chunks end at %d, capacity %d", next, len(p.buf)))
	}

	return result.ErrorOrNil()
}

func byOffset(a, b Chunk) int { return cmp.Compare(a.Off, b.Off) }

func checkRequest(n, align int) {
	if n <= 0 {
		panic(errors.Wrapf(ErrBadSize, "allocate %d bytes", n))
	}
	if !format.IsPowerOfTwo(align) {
		panic(errors.Wrapf(ErrBadAlign, "align %d", align))
	}
}

var _ Arena = (*Page)(nil)
