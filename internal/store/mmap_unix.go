//go:build unix

package store

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap reserves buffers as anonymous private mappings outside the Go heap.
// Mappings are page-aligned by the kernel and zero-filled on first touch.
type Mmap struct{}

// Reserve maps size bytes of anonymous memory.
func (Mmap) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrBadSize, "reserve %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, errors.Wrapf(ErrExhausted, "mmap %d bytes", size)
		}
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	return data, nil
}

// Release unmaps a buffer returned by Reserve.
func (Mmap) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return errors.Wrap(err, "munmap")
}
