package pool

import "github.com/pkg/errors"

var (
	// ErrInvalidCount indicates an allocation of zero or fewer elements.
	ErrInvalidCount = errors.New("pool: element count must be positive")

	// ErrPointerType indicates an element type that contains Go pointers.
	// Arena memory is not scanned by the garbage collector.
	ErrPointerType = errors.New("pool: element type contains pointers")

	// ErrZeroSize indicates a zero-size element type.
	ErrZeroSize = errors.New("pool: element type has zero size")

	// ErrBadTiers indicates an invalid tier configuration.
	ErrBadTiers = errors.New("pool: invalid tiers")

	// ErrTooLarge indicates a request no tier can serve, or whose byte size overflows.
	ErrTooLarge = errors.New("pool: request too large")

	// ErrCountMismatch indicates a deallocation whose element count differs
	// from the allocation.
	ErrCountMismatch = errors.New("pool: deallocation count does not match allocation")

	// ErrClosed indicates use of a pool after Close.
	ErrClosed = errors.New("pool: closed")
)
