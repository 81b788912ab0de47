package store

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/framealloc/internal/format"
)

func baseAddr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func TestHeap_ReserveAligned(t *testing.T) {
	for _, size := range []int{1, 100, 4096, 10000} {
		b, err := Heap{}.Reserve(size)
		require.NoError(t, err)
		assert.Len(t, b, size)
		assert.Equal(t, size, cap(b), "capacity must not extend past the reservation")
		assert.True(t, format.IsAligned(baseAddr(b), format.PageSize), "size %d base not page-aligned", size)
		require.NoError(t, Heap{}.Release(b))
	}
}

func TestHeap_CustomAlign(t *testing.T) {
	b, err := Heap{Align: 64}.Reserve(10)
	require.NoError(t, err)
	assert.True(t, format.IsAligned(baseAddr(b), 64))

	_, err = Heap{Align: 48}.Reserve(10)
	require.Error(t, err)
}

func TestHeap_BadSize(t *testing.T) {
	_, err := Heap{}.Reserve(0)
	require.ErrorIs(t, err, ErrBadSize)
}

func TestMmap_ReserveRelease(t *testing.T) {
	b, err := Mmap{}.Reserve(3 * format.PageSize)
	require.NoError(t, err)
	require.Len(t, b, 3*format.PageSize)
	assert.True(t, format.IsAligned(baseAddr(b), format.PageSize))

	// Memory is writable and zeroed.
	assert.Equal(t, byte(0), b[len(b)-1])
	b[0], b[len(b)-1] = 0xAB, 0xCD
	assert.Equal(t, byte(0xCD), b[len(b)-1])

	require.NoError(t, Mmap{}.Release(b))
}

func TestLimited_Exhaustion(t *testing.T) {
	l := NewLimited(Heap{}, 8192)

	a, err := l.Reserve(4096)
	require.NoError(t, err)
	_, err = l.Reserve(4096)
	require.NoError(t, err)
	assert.Equal(t, 8192, l.Reserved())

	_, err = l.Reserve(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))

	require.NoError(t, l.Release(a))
	assert.Equal(t, 4096, l.Reserved())

	_, err = l.Reserve(4096)
	require.NoError(t, err, "released bytes return to the budget")
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    string
		want    Store
		wantErr bool
	}{
		{"", Heap{}, false},
		{"heap", Heap{}, false},
		{" MMAP ", Mmap{}, false},
		{"disk", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s, err := New(tt.kind)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}
