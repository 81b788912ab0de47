package arena

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// requireTiled fails the test if the page's chunks do not tile its buffer.
func requireTiled(t testing.TB, p *Page) {
	t.Helper()
	require.NoError(t, p.Check())
}

// requirePanicsWith runs fn and requires it to panic with an error wrapping target.
func requirePanicsWith(t testing.TB, target error, fn func()) {
	t.Helper()

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()

	require.NotNil(t, recovered, "expected panic wrapping %v", target)
	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	require.True(t, errors.Is(err, target), "panic %v does not wrap %v", err, target)
}

// fillPage allocates count chunks of size bytes with alignment 1 and returns
// their offsets.
func fillPage(t testing.TB, p *Page, count, size int) []int {
	t.Helper()

	offs := make([]int, 0, count)
	for i := range count {
		off, ok := p.Allocate(size, 1)
		require.True(t, ok, "allocation %d of %d bytes", i, size)
		offs = append(offs, off)
	}
	return offs
}

// fragmentWithMisalignedHole builds a full 4096-byte page whose only free
// space is an 8-byte chunk at offset 3, with allocations on both sides.
// It returns the offsets of the allocations on either side of the hole.
func fragmentWithMisalignedHole(t testing.TB, p *Page) (left, right int) {
	t.Helper()

	left, ok := p.Allocate(3, 1)
	require.True(t, ok)
	hole, ok := p.Allocate(8, 1)
	require.True(t, ok)
	right, ok = p.Allocate(p.Cap()-11, 1)
	require.True(t, ok)

	require.Equal(t, 0, left)
	require.Equal(t, 3, hole)
	require.Equal(t, 11, right)

	p.Deallocate(hole, 8)
	return left, right
}
