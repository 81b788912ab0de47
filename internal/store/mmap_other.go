//go:build !unix

package store

// Mmap falls back to heap buffers where anonymous mappings are not available.
type Mmap struct{}

// Reserve returns a page-aligned heap buffer.
func (Mmap) Reserve(size int) ([]byte, error) {
	return Heap{}.Reserve(size)
}

// Release is a no-op.
func (Mmap) Release([]byte) error { return nil }
