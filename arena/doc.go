// Package arena provides fixed-capacity byte arenas for transient, per-frame
// allocations.
//
// # Overview
//
// An arena owns one backing buffer that is reserved once and never resized
// or moved. It hands out aligned byte ranges identified by their offset in
// that buffer. Callers that need more room create another arena; the pool
// package does this automatically.
//
// # Arena Interface
//
// The core abstraction is the Arena interface:
//
//   - Allocate(n, align): reserve n bytes at an aligned address, or report a miss
//   - Deallocate(off, n): release one allocation
//   - DeallocateAll(): return the arena to its empty state
//   - Usage(): fraction of the capacity handed out
//
// # Implementations
//
// Page: free-list arena
//
//   - Free chunks ordered by size, used chunks indexed by offset
//   - Perfect fit, then greater fit with pad/remainder splitting
//   - Defrag coalesces address-adjacent free chunks; it runs automatically
//     (once per request) when a greater-fit search fails below 80% usage
//   - Per-allocation Deallocate
//
// BumpPage: bump arena
//
//   - Single cursor, O(1) Allocate and DeallocateAll
//   - Deallocate is a no-op
//
// Both are selected through a Factory, so the pool code is the same for either.
//
// # Usage Example
//
//	p := arena.NewPage(4096)
//
//	off, ok := p.Allocate(100, 4)
//	if !ok {
//	    // page is full: obtain another one
//	}
//	copy(p.Bytes()[off:off+100], payload)
//
//	p.Deallocate(off, 100)
//
// # Page Granularity
//
// NewPage and NewBumpPage round capacities up to PageSize (4096 bytes). Buffer
// base addresses are page-aligned, so an offset is aligned exactly when its
// address is, for any alignment up to PageSize.
//
// # Misaligned Exact-Size Chunks
//
// A free chunk whose size equals the request but whose address is misaligned
// is skipped by the perfect-fit search, and the greater-fit search only looks
// at strictly larger chunks. Such a chunk is unusable for that request until
// Defrag merges it with a free neighbour, even if it is the only free space
// left. This is long-standing behaviour that callers may rely on for
// deterministic placement; it is kept as is.
//
// # Errors
//
// Arenas do not return errors. A miss is reported through the ok result.
// Contract violations (deallocating an unknown offset or with the wrong size,
// zero-size requests, non power-of-two alignment) panic with an error wrapping
// ErrBadRef, ErrSizeMismatch, ErrBadSize or ErrBadAlign.
//
// # Thread Safety
//
// Arenas are not thread-safe. They are meant to be driven from one render or
// update goroutine between frame boundaries.
package arena
