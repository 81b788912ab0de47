package pool

import "fmt"

// PageIndex identifies one page of a pool: the tier it belongs to and its
// position in that tier's creation order.
type PageIndex struct {
	Tier int
	Page int
}

// Ref identifies a live allocation: the page holding it and the byte offset
// of its first element in that page's buffer. Refs are plain values; they stay
// meaningful until the allocation is released.
type Ref struct {
	PageIndex
	Off int
}

// Nil is the Ref of no allocation. Allocate returns it on error.
var Nil = Ref{PageIndex: PageIndex{Tier: -1, Page: -1}, Off: -1}

// IsNil reports whether r is Nil.
func (r Ref) IsNil() bool { return r == Nil }

func (r Ref) String() string {
	if r.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d/%d+%d", r.Tier, r.Page, r.Off)
}

// ChunkMeta is the side-table entry kept for every live allocation.
type ChunkMeta struct {
	Page  PageIndex
	Count int // elements constructed
	Bytes int // bytes reserved in the page
}
