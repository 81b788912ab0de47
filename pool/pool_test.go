package pool

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/framealloc/arena"
	"github.com/joshuapare/framealloc/internal/store"
)

func TestNew_RejectsPointerTypes(t *testing.T) {
	tests := []struct {
		name string
		new  func() error
	}{
		{"pointer", func() error { _, err := New[*int](nil); return err }},
		{"string", func() error { _, err := New[string](nil); return err }},
		{"slice", func() error { _, err := New[[]byte](nil); return err }},
		{"map", func() error { _, err := New[map[int]int](nil); return err }},
		{"interface", func() error { _, err := New[any](nil); return err }},
		{"func", func() error { _, err := New[func()](nil); return err }},
		{"struct with pointer", func() error { _, err := New[struct{ P *int }](nil); return err }},
		{"array of strings", func() error { _, err := New[[2]string](nil); return err }},
		{"unsafe pointer", func() error { _, err := New[unsafe.Pointer](nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.new(), ErrPointerType)
		})
	}
}

func TestNew_AcceptsPlainTypes(t *testing.T) {
	p8, err := New[uint8](nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p8.ElemSize())
	assert.Equal(t, 1, p8.ElemAlign())

	pv, err := New[vec3](nil)
	require.NoError(t, err)
	assert.Equal(t, 16, pv.ElemSize())
	assert.Equal(t, 4, pv.ElemAlign())

	pw, err := New[wide](nil)
	require.NoError(t, err)
	assert.Equal(t, int(unsafe.Sizeof(wide{})), pw.ElemSize())
	assert.Equal(t, int(unsafe.Alignof(wide{})), pw.ElemAlign())

	_, err = New[[4][4]float32](nil)
	require.NoError(t, err)
	_, err = New[struct {
		On  bool
		Pos [2]float64
		Z   complex64
	}](nil)
	require.NoError(t, err)
}

func TestNew_RejectsZeroSize(t *testing.T) {
	_, err := New[struct{}](nil)
	require.ErrorIs(t, err, ErrZeroSize)

	_, err = New[[0]int64](nil)
	require.ErrorIs(t, err, ErrZeroSize)
}

func TestNew_RejectsBadTiers(t *testing.T) {
	_, err := New[byte](&Options{Tiers: []Tier{{Name: "a", Limit: 0}, {Name: "b", Limit: 100}}})
	require.ErrorIs(t, err, ErrBadTiers)
}

func TestAllocate_InvalidCount(t *testing.T) {
	p := newTestPool[vec3](t, nil)

	for _, n := range []int{0, -1} {
		ref, view, err := p.Allocate(n)
		require.ErrorIs(t, err, ErrInvalidCount)
		assert.True(t, ref.IsNil())
		assert.Nil(t, view)
	}
	assert.Zero(t, p.Len())
}

func TestAllocate_Overflow(t *testing.T) {
	p := newTestPool[wide](t, nil)

	_, _, err := p.Allocate(int(^uint(0) >> 2))
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, p.Stats().PagesCreated)
}

func TestAllocate_NoTierCovers(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Tiers = []Tier{{Name: "only", Limit: 1024, PageSize: 4096}}
	p := newTestPool[byte](t, opts)

	_, _, err := p.Allocate(1025)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestAllocate_ViewIsTypedAndAligned(t *testing.T) {
	p := newTestPool[wide](t, nil)

	ref, view, err := p.Allocate(10)
	require.NoError(t, err)
	require.Len(t, view, 10)
	require.Equal(t, 10, cap(view))

	addr := uintptr(unsafe.Pointer(&view[0]))
	assert.Zero(t, addr%unsafe.Alignof(wide{}))

	for i := range view {
		view[i] = wide{A: int64(i), B: uint8(i)}
	}
	again := p.View(ref)
	require.Len(t, again, 10)
	assert.Equal(t, wide{A: 9, B: 9}, again[9])

	meta, ok := p.Meta(ref)
	require.True(t, ok)
	assert.Equal(t, ChunkMeta{Page: ref.PageIndex, Count: 10, Bytes: 10 * int(unsafe.Sizeof(wide{}))}, meta)
}

func TestAllocate_ElementsAreZeroed(t *testing.T) {
	p := newTestPool[vec3](t, nil)

	ref, view, err := p.Allocate(32)
	require.NoError(t, err)
	for i := range view {
		view[i] = vec3{X: 1, Y: 2, Z: 3, Color: 0xFFFFFFFF}
	}
	p.Deallocate(ref, 32)

	again, view, err := p.Allocate(32)
	require.NoError(t, err)
	require.Equal(t, ref, again, "freed chunk should be reused")
	for i := range view {
		require.Equal(t, vec3{}, view[i])
	}
}

// TestAllocate_TierRouting sends one request to each default tier.
func TestAllocate_TierRouting(t *testing.T) {
	opts, _ := testOptions(t)
	p := newTestPool[byte](t, opts)

	small, _, err := p.Allocate(100)
	require.NoError(t, err)
	assert.Equal(t, PageIndex{Tier: 0, Page: 0}, small.PageIndex)

	large, _, err := p.Allocate(8 * 1024)
	require.NoError(t, err)
	assert.Equal(t, PageIndex{Tier: 1, Page: 0}, large.PageIndex)

	huge, view, err := p.Allocate(5 * 1024 * 1024)
	require.NoError(t, err)
	assert.Equal(t, PageIndex{Tier: 2, Page: 0}, huge.PageIndex)
	assert.Equal(t, 0, huge.Off)
	assert.Len(t, view, 5*1024*1024)

	st := p.Stats()
	require.Len(t, st.Tiers, 3)
	assert.Equal(t, TierStats{Name: "small", Pages: 1, Capacity: SmallPageSize, Used: 100}, st.Tiers[0])
	assert.Equal(t, TierStats{Name: "large", Pages: 1, Capacity: LargePageSize, Used: 8 * 1024}, st.Tiers[1])
	assert.Equal(t, TierStats{Name: "huge", Pages: 1, Capacity: 5 * 1024 * 1024, Used: 5 * 1024 * 1024}, st.Tiers[2])
	assert.Equal(t, 3, st.PagesCreated)
	assert.Equal(t, 3, st.Pages())
}

func TestAllocate_HugeRequestsGetDedicatedPages(t *testing.T) {
	opts, _ := testOptions(t)
	p := newTestPool[byte](t, opts)

	a, _, err := p.Allocate(5*1024*1024 + 1)
	require.NoError(t, err)
	b, _, err := p.Allocate(5 * 1024 * 1024)
	require.NoError(t, err)

	assert.Equal(t, PageIndex{Tier: 2, Page: 0}, a.PageIndex)
	assert.Equal(t, PageIndex{Tier: 2, Page: 1}, b.PageIndex)
	assert.Equal(t, 2*5*1024*1024+arena.PageSize, p.Stats().Tiers[2].Capacity)
}

func TestAllocate_NewPageWhenFull(t *testing.T) {
	opts, hook := testOptions(t)
	opts.Tiers = []Tier{{Name: "tiny", Limit: 0, PageSize: 4096}}
	p := newTestPool[byte](t, opts)

	first, _, err := p.Allocate(3000)
	require.NoError(t, err)
	second, _, err := p.Allocate(3000)
	require.NoError(t, err)
	third, _, err := p.Allocate(1000)
	require.NoError(t, err)

	assert.Equal(t, PageIndex{Tier: 0, Page: 0}, first.PageIndex)
	assert.Equal(t, PageIndex{Tier: 0, Page: 1}, second.PageIndex)
	assert.Equal(t, PageIndex{Tier: 0, Page: 0}, third.PageIndex, "earlier pages are tried first")
	assert.Equal(t, 3000, third.Off)

	created := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "page created" {
			created++
			assert.Equal(t, logrus.DebugLevel, e.Level)
			assert.Equal(t, "tiny", e.Data["tier"])
		}
	}
	assert.Equal(t, 2, created)
}

func TestAllocate_StoreExhausted(t *testing.T) {
	opts, hook := testOptions(t)
	limited := store.NewLimited(store.Heap{}, SmallPageSize)
	opts.Store = limited
	p := newTestPool[byte](t, opts)

	_, _, err := p.Allocate(100)
	require.NoError(t, err)

	ref, view, err := p.Allocate(5000)
	require.ErrorIs(t, err, store.ErrExhausted)
	assert.True(t, ref.IsNil())
	assert.Nil(t, view)
	assert.Equal(t, 1, p.Stats().StoreFailures)
	assert.Equal(t, 1, p.Len())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "large", entry.Data["tier"])

	// The small tier still has room.
	_, _, err = p.Allocate(100)
	require.NoError(t, err)
	assert.Equal(t, SmallPageSize, limited.Reserved())
}

func TestDeallocate_UnknownRefIsNoop(t *testing.T) {
	p := newTestPool[vec3](t, nil)

	ref, _, err := p.Allocate(4)
	require.NoError(t, err)

	p.Deallocate(Nil, 4)
	p.Deallocate(Ref{PageIndex: ref.PageIndex, Off: ref.Off + 16}, 4)
	assert.Equal(t, 1, p.Len())

	p.Deallocate(ref, 4)
	p.Deallocate(ref, 4)
	assert.Zero(t, p.Len())
	assert.Equal(t, 1, p.Stats().Deallocations)
	assert.Nil(t, p.View(ref))
}

func TestDeallocate_CountMismatchPanics(t *testing.T) {
	p := newTestPool[vec3](t, nil)

	ref, _, err := p.Allocate(4)
	require.NoError(t, err)

	requirePanicsWith(t, ErrCountMismatch, func() { p.Deallocate(ref, 3) })
	assert.Equal(t, 1, p.Len(), "failed deallocation must not release")
}

func TestDeallocate_RunsDestructor(t *testing.T) {
	p := newTestPool[uint32](t, nil)

	var seen [][]uint32
	p.SetDestructor(func(v []uint32) {
		seen = append(seen, append([]uint32(nil), v...))
	})

	ref, view, err := p.Allocate(3)
	require.NoError(t, err)
	copy(view, []uint32{7, 8, 9})

	p.Deallocate(ref, 3)
	assert.Equal(t, [][]uint32{{7, 8, 9}}, seen)

	p.SetDestructor(nil)
	ref, _, err = p.Allocate(3)
	require.NoError(t, err)
	p.Deallocate(ref, 3)
	assert.Len(t, seen, 1)
}

func TestDeallocateAll_KeepsPagesAndRunsDestructors(t *testing.T) {
	opts, _ := testOptions(t)
	p := newTestPool[uint16](t, opts)

	var destroyed []uint16
	p.SetDestructor(func(v []uint16) { destroyed = append(destroyed, v[0]) })

	refs := make([]Ref, 0, 50)
	for i := range 50 {
		ref, view, err := p.Allocate(100 + i)
		require.NoError(t, err)
		view[0] = uint16(i)
		refs = append(refs, ref)
	}
	pages := p.Stats().PagesCreated

	p.DeallocateAll()
	assert.Zero(t, p.Len())
	require.Len(t, destroyed, 50)
	for i, v := range destroyed {
		assert.Equal(t, uint16(i), v, "destructors run in ref order")
	}
	for _, ref := range refs {
		assert.Nil(t, p.View(ref))
	}

	st := p.Stats()
	assert.Equal(t, 1, st.Resets)
	for _, ts := range st.Tiers {
		assert.Zero(t, ts.Used)
	}

	// A second identical frame fits in the pages already reserved.
	for i := range 50 {
		ref, _, err := p.Allocate(100 + i)
		require.NoError(t, err)
		assert.Equal(t, refs[i], ref)
	}
	assert.Equal(t, pages, p.Stats().PagesCreated)
}

func TestPool_BumpArena(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Arena = arena.Bump()
	p := newTestPool[vec3](t, opts)

	a, _, err := p.Allocate(10)
	require.NoError(t, err)
	b, _, err := p.Allocate(10)
	require.NoError(t, err)
	assert.Equal(t, 160, b.Off-a.Off)

	// Bump pages do not reuse individually freed space.
	p.Deallocate(a, 10)
	c, _, err := p.Allocate(10)
	require.NoError(t, err)
	assert.Greater(t, c.Off, b.Off)

	p.DeallocateAll()
	d, _, err := p.Allocate(10)
	require.NoError(t, err)
	assert.Equal(t, a, d)
}

func TestPool_MmapStore(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Store = store.Mmap{}
	p := newTestPool[uint64](t, opts)

	ref, view, err := p.Allocate(1000)
	require.NoError(t, err)
	for i := range view {
		view[i] = uint64(i) * 3
	}
	assert.Equal(t, uint64(2997), p.View(ref)[999])
}

func TestClose(t *testing.T) {
	opts, _ := testOptions(t)
	limited := store.NewLimited(store.Heap{}, 16*1024*1024)
	opts.Store = limited

	p, err := New[byte](opts)
	require.NoError(t, err)

	_, _, err = p.Allocate(10)
	require.NoError(t, err)
	_, _, err = p.Allocate(10 * 1024)
	require.NoError(t, err)
	require.Equal(t, SmallPageSize+LargePageSize, limited.Reserved())

	require.NoError(t, p.Close())
	assert.Zero(t, limited.Reserved())
	assert.Zero(t, p.Len())
	assert.Zero(t, p.Stats().Pages())

	_, _, err = p.Allocate(1)
	require.ErrorIs(t, err, ErrClosed)

	require.NoError(t, p.Close(), "Close is idempotent")
}

func TestClose_AggregatesReleaseErrors(t *testing.T) {
	opts, _ := testOptions(t)
	opts.Store = releaseFailStore{err: errors.New("boom")}
	opts.Tiers = []Tier{{Name: "tiny", Limit: 0, PageSize: 4096}}

	p, err := New[byte](opts)
	require.NoError(t, err)
	for range 3 {
		_, _, err := p.Allocate(4096)
		require.NoError(t, err)
	}

	err = p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred")
	assert.Contains(t, err.Error(), "release page 2 of tier tiny")
}

func TestStats_AggregatesArenaCounters(t *testing.T) {
	p := newTestPool[byte](t, nil)

	ref, _, err := p.Allocate(64)
	require.NoError(t, err)
	_, _, err = p.Allocate(32)
	require.NoError(t, err)
	p.Deallocate(ref, 64)

	st := p.Stats()
	assert.Equal(t, 1, st.Live)
	assert.Equal(t, 32, st.LiveBytes)
	assert.Equal(t, 2, st.Allocations)
	assert.Equal(t, 1, st.Deallocations)
	assert.Equal(t, 2, st.Arena.AllocCalls)
	assert.Equal(t, 1, st.Arena.FreeCalls)
	assert.Equal(t, SmallPageSize, st.Capacity())
	assert.InDelta(t, 32.0/float64(SmallPageSize), st.Tiers[0].Usage(), 1e-9)
	assert.Zero(t, st.Tiers[1].Usage())
}

func TestRef(t *testing.T) {
	assert.True(t, Nil.IsNil())
	assert.Equal(t, "nil", Nil.String())

	r := Ref{PageIndex: PageIndex{Tier: 1, Page: 2}, Off: 64}
	assert.False(t, r.IsNil())
	assert.Equal(t, "1/2+64", r.String())
	assert.False(t, Ref{}.IsNil(), "the zero Ref is a valid location")
}

// TestPool_RandomWorkload mixes allocations of many sizes with frees and
// frame resets and checks that live allocations are never overwritten.
func TestPool_RandomWorkload(t *testing.T) {
	type live struct {
		ref Ref
		n   int
		tag uint32
	}

	opts, _ := testOptions(t)
	p := newTestPool[uint32](t, opts)
	rng := rand.New(rand.NewSource(1234))

	var allocs []live
	var tag uint32
	for step := range 3000 {
		switch {
		case step%500 == 499:
			p.DeallocateAll()
			allocs = allocs[:0]

		case len(allocs) == 0 || rng.Intn(100) < 60:
			n := 1 + rng.Intn(2000)
			ref, view, err := p.Allocate(n)
			require.NoError(t, err)
			tag++
			for i := range view {
				view[i] = tag
			}
			allocs = append(allocs, live{ref: ref, n: n, tag: tag})

		default:
			i := rng.Intn(len(allocs))
			a := allocs[i]
			view := p.View(a.ref)
			require.Len(t, view, a.n)
			for _, v := range view {
				require.Equal(t, a.tag, v, "step %d: allocation %v overwritten", step, a.ref)
			}
			p.Deallocate(a.ref, a.n)
			allocs[i] = allocs[len(allocs)-1]
			allocs = allocs[:len(allocs)-1]
		}
		require.Equal(t, len(allocs), p.Len())
	}
}
