package arena

import "github.com/pkg/errors"

var (
	// ErrBadRef indicates a deallocation at an offset the page does not track as used.
	ErrBadRef = errors.New("arena: offset is not an allocated chunk")

	// ErrSizeMismatch indicates a deallocation whose size differs from the recorded allocation.
	ErrSizeMismatch = errors.New("arena: deallocation size does not match allocation")

	// ErrBadAlign indicates an alignment that is not a positive power of two.
	ErrBadAlign = errors.New("arena: alignment must be a positive power of two")

	// ErrBadSize indicates a request for zero or negative bytes.
	ErrBadSize = errors.New("arena: size must be positive")

	// ErrUnknownKind indicates ParseKind was given an unsupported arena name.
	ErrUnknownKind = errors.New("arena: unknown kind")
)
