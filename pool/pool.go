package pool

import (
	"cmp"
	"slices"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/joshuapare/framealloc/arena"
	"github.com/joshuapare/framealloc/internal/buf"
	"github.com/joshuapare/framealloc/internal/store"
)

// Pool is a typed allocator for short-lived arrays of T.
//
// Requests are routed to a tier by byte size. Each tier owns a list of pages
// created on demand; a request is served by the first page of its tier that
// can hold it, and a new page is reserved from the store when none can. Pages
// are kept until Close, so steady-state frames reuse the same memory.
//
// T must be pointer-free (see New). Pool is not safe for concurrent use.
type Pool[T any] struct {
	tiers  []tier
	routes []Tier

	table map[Ref]ChunkMeta

	elemSize  int
	elemAlign int

	store   store.Store
	factory arena.Factory
	log     logrus.FieldLogger

	destroy func([]T)

	stats  counters
	closed bool
}

type tier struct {
	Tier
	pages []arena.Arena
}

// New creates an empty pool for elements of type T. It fails with
// ErrPointerType when T contains pointers, strings, slices, maps, channels,
// funcs or interfaces, with ErrZeroSize for zero-size types and with
// ErrBadTiers when opts.Tiers is invalid.
func New[T any](opts *Options) (*Pool[T], error) {
	size, align, err := elemLayout[T]()
	if err != nil {
		return nil, err
	}

	o := opts.withDefaults()
	if err := ValidateTiers(o.Tiers); err != nil {
		return nil, err
	}

	tiers := make([]tier, len(o.Tiers))
	for i, t := range o.Tiers {
		tiers[i] = tier{Tier: t}
	}

	return &Pool[T]{
		tiers:     tiers,
		routes:    o.Tiers,
		table:     make(map[Ref]ChunkMeta),
		elemSize:  size,
		elemAlign: align,
		store:     o.Store,
		factory:   o.Arena,
		log:       o.Logger,
	}, nil
}

// SetDestructor registers fn to run over an allocation's elements just before
// its memory is released by Deallocate or DeallocateAll. A nil fn removes it.
func (p *Pool[T]) SetDestructor(fn func([]T)) {
	p.destroy = fn
}

// Allocate reserves n zeroed elements and returns their Ref and a view of
// them. The only runtime failure is store exhaustion; the error then wraps
// store.ErrExhausted.
func (p *Pool[T]) Allocate(n int) (Ref, []T, error) {
	if p.closed {
		return Nil, nil, ErrClosed
	}
	if n <= 0 {
		return Nil, nil, errors.Wrapf(ErrInvalidCount, "allocate %d elements", n)
	}
	bytes, err := buf.ByteSize(n, p.elemSize)
	if err != nil {
		return Nil, nil, errors.Wrap(ErrTooLarge, err.Error())
	}
	ti, ok := selectTier(p.routes, bytes)
	if !ok {
		return Nil, nil, errors.Wrapf(ErrTooLarge, "%d bytes exceeds every tier", bytes)
	}

	t := &p.tiers[ti]
	for pi, a := range t.pages {
		if off, ok := a.Allocate(bytes, p.elemAlign); ok {
			return p.commit(Ref{PageIndex: PageIndex{Tier: ti, Page: pi}, Off: off}, n, bytes)
		}
	}

	pi, err := p.addPage(ti, bytes)
	if err != nil {
		return Nil, nil, err
	}
	off, ok := t.pages[pi].Allocate(bytes, p.elemAlign)
	if !ok {
		panic(errors.Errorf("pool: fresh %d-byte page in tier %s cannot hold %d bytes",
			t.pages[pi].Cap(), t.Name, bytes))
	}
	return p.commit(Ref{PageIndex: PageIndex{Tier: ti, Page: pi}, Off: off}, n, bytes)
}

// commit records a successful page allocation and returns its zeroed view.
func (p *Pool[T]) commit(ref Ref, n, bytes int) (Ref, []T, error) {
	meta := ChunkMeta{Page: ref.PageIndex, Count: n, Bytes: bytes}
	p.table[ref] = meta
	p.stats.allocations++

	view := p.view(ref, meta)
	clear(view)
	return ref, view, nil
}

// addPage reserves a page able to hold bytes in tier ti and returns its index.
func (p *Pool[T]) addPage(ti, bytes int) (int, error) {
	t := &p.tiers[ti]
	size := arena.RoundSize(max(bytes, t.PageSize))

	b, err := p.store.Reserve(size)
	if err != nil {
		p.stats.storeFailures++
		p.log.WithError(err).WithFields(logrus.Fields{
			"tier":  t.Name,
			"size":  size,
			"pages": len(t.pages),
		}).Warn("page reservation failed")
		return 0, errors.Wrapf(err, "pool: reserve %d-byte page in tier %s", size, t.Name)
	}

	t.pages = append(t.pages, p.factory(b))
	p.stats.pagesCreated++
	p.log.WithFields(logrus.Fields{
		"tier":  t.Name,
		"size":  size,
		"page":  len(t.pages) - 1,
		"bytes": bytes,
	}).Debug("page created")
	return len(t.pages) - 1, nil
}

// Deallocate releases the allocation at ref. n must equal the count it was
// allocated with; a mismatch is a programming error and panics. Unknown refs,
// including refs already released, are ignored.
func (p *Pool[T]) Deallocate(ref Ref, n int) {
	meta, ok := p.table[ref]
	if !ok {
		return
	}
	if meta.Count != n {
		panic(errors.Wrapf(ErrCountMismatch, "ref %v: allocated %d elements, deallocating %d", ref, meta.Count, n))
	}

	if p.destroy != nil {
		p.destroy(p.view(ref, meta))
	}
	p.page(ref.PageIndex).Deallocate(ref.Off, meta.Bytes)
	delete(p.table, ref)
	p.stats.deallocations++
}

// DeallocateAll releases every live allocation and resets every page to its
// empty state. Pages stay reserved for reuse.
func (p *Pool[T]) DeallocateAll() {
	live := len(p.table)
	if p.destroy != nil {
		refs := lo.Keys(p.table)
		slices.SortFunc(refs, compareRefs)
		for _, ref := range refs {
			p.destroy(p.view(ref, p.table[ref]))
		}
	}
	clear(p.table)

	for i := range p.tiers {
		for _, a := range p.tiers[i].pages {
			a.DeallocateAll()
		}
	}
	p.stats.resets++
	p.log.WithField("released", live).Debug("pool reset")
}

// View returns the elements of a live allocation, or nil for an unknown ref.
func (p *Pool[T]) View(ref Ref) []T {
	meta, ok := p.table[ref]
	if !ok {
		return nil
	}
	return p.view(ref, meta)
}

// Meta returns the side-table entry of a live allocation.
func (p *Pool[T]) Meta(ref Ref) (ChunkMeta, bool) {
	meta, ok := p.table[ref]
	return meta, ok
}

func (p *Pool[T]) view(ref Ref, meta ChunkMeta) []T {
	b, ok := buf.Slice(p.page(ref.PageIndex).Bytes(), ref.Off, meta.Bytes)
	if !ok {
		panic(errors.Errorf("pool: ref %v with %d bytes outside its page", ref, meta.Bytes))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), meta.Count)
}

func (p *Pool[T]) page(idx PageIndex) arena.Arena {
	return p.tiers[idx.Tier].pages[idx.Page]
}

// Len returns the number of live allocations.
func (p *Pool[T]) Len() int { return len(p.table) }

// ElemSize returns the size of T in bytes.
func (p *Pool[T]) ElemSize() int { return p.elemSize }

// ElemAlign returns the alignment of T in bytes.
func (p *Pool[T]) ElemAlign() int { return p.elemAlign }

// Stats returns a snapshot of the pool's pages and counters.
func (p *Pool[T]) Stats() Stats {
	s := Stats{
		Tiers:         make([]TierStats, len(p.tiers)),
		Live:          len(p.table),
		PagesCreated:  p.stats.pagesCreated,
		Allocations:   p.stats.allocations,
		Deallocations: p.stats.deallocations,
		Resets:        p.stats.resets,
		StoreFailures: p.stats.storeFailures,
	}
	for _, meta := range p.table {
		s.LiveBytes += meta.Bytes
	}
	for i, t := range p.tiers {
		ts := TierStats{Name: t.Name, Pages: len(t.pages)}
		for _, a := range t.pages {
			ts.Capacity += a.Cap()
			ts.Used += a.Used()
			s.Arena.Add(a.Stats())
		}
		s.Tiers[i] = ts
	}
	return s
}

// Close releases every page buffer to the store. Live allocations become
// invalid; destructors are not run. Close is idempotent.
func (p *Pool[T]) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var result *multierror.Error
	for i := range p.tiers {
		t := &p.tiers[i]
		for pi, a := range t.pages {
			if err := p.store.Release(a.Bytes()); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "release page %d of tier %s", pi, t.Name))
			}
		}
		t.pages = nil
	}
	clear(p.table)
	return result.ErrorOrNil()
}

func compareRefs(a, b Ref) int {
	if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Page, b.Page); c != 0 {
		return c
	}
	return cmp.Compare(a.Off, b.Off)
}
