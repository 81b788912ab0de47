package pool

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/framealloc/internal/store"
)

type vec3 struct {
	X, Y, Z float32
	Color   uint32
}

type wide struct {
	A int64
	B uint8
}

// testOptions returns options with a null logger whose entries land in hook.
func testOptions(t testing.TB) (*Options, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return &Options{Logger: log}, hook
}

// newTestPool creates a pool that is closed when the test ends.
func newTestPool[T any](t testing.TB, opts *Options) *Pool[T] {
	t.Helper()
	p, err := New[T](opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
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
	require.ErrorIs(t, err, target)
}

// releaseFailStore reserves from the heap and fails every release.
type releaseFailStore struct {
	store.Heap
	err error
}

func (s releaseFailStore) Release([]byte) error { return s.err }
