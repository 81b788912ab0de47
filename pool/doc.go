// Package pool provides Pool, a typed, tiered allocator for transient
// per-frame arrays built on arena pages.
//
// # Overview
//
// A Pool[T] hands out arrays of T backed by arena memory. Each allocation is
// identified by a Ref (tier, page index, byte offset) and accessed through a
// []T view. Refs are plain values and can be stored in other pool-allocated
// records; the view is rebuilt with View.
//
//	p, err := pool.New[Vertex](nil)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	ref, verts, err := p.Allocate(4)
//	if err != nil {
//	    return err // store exhausted
//	}
//	verts[0] = Vertex{...}
//	...
//	p.Deallocate(ref, 4)   // or p.DeallocateAll() at the frame boundary
//
// # Tiers
//
// Requests are routed by byte size to the first tier whose Limit covers them:
//
//	small  <= 4 KiB   64 KiB pages
//	large  <= 4 MiB   4 MiB pages
//	huge   unbounded  one page per request
//
// Within a tier pages are scanned in creation order. When none can serve the
// request a page of RoundSize(max(bytes, PageSize)) bytes is reserved from the
// store, so a new page always fits the request that caused it.
//
// # Element Types
//
// Arena buffers are not scanned by the garbage collector, so T must not hold
// Go pointers: numbers, bools, and arrays or structs of those are accepted.
// New rejects anything else with ErrPointerType.
//
// # Lifetimes
//
// Allocated elements are zeroed. An optional destructor set with
// SetDestructor runs over the elements before their memory is released by
// Deallocate or DeallocateAll. DeallocateAll keeps the pages; Close returns
// them to the store.
package pool
