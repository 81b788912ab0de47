package format

import "golang.org/x/exp/constraints"

// Alignment utilities shared by the arena and pool packages.
// Every alignment passed to these helpers must be a power of two.

// PageSize is the granularity that page capacities are rounded up to.
const PageSize = 4 * 1024

// PageSizeMask is the bitmask used for aligning to PageSize boundaries (PageSize - 1).
const PageSizeMask = PageSize - 1

// IsPowerOfTwo reports whether a is a positive power of two.
func IsPowerOfTwo[T constraints.Integer](a T) bool {
	return a > 0 && a&(a-1) == 0
}

// AlignUp returns n aligned up to the next multiple of a.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 8)  = 16
func AlignUp[T constraints.Integer](n, a T) T {
	return (n + (a - 1)) &^ (a - 1)
}

// IsAligned reports whether n is a multiple of a.
func IsAligned[T constraints.Integer](n, a T) bool {
	return n&(a-1) == 0
}

// AlignPage returns n aligned up to the next PageSize boundary.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n int) int {
	return (n + PageSizeMask) &^ PageSizeMask
}
