package arena

import (
	"slices"
	"sort"

	"github.com/samber/lo"
)

// freeSet holds a page's free chunks ordered by length, ascending. Chunks of
// equal length keep their insertion order: a new chunk goes after every chunk
// of the same length already present.
type freeSet struct {
	chunks []Chunk
}

func (s *freeSet) len() int { return len(s.chunks) }

// lowerBound returns the index of the first chunk with Len >= n.
func (s *freeSet) lowerBound(n int) int {
	return sort.Search(len(s.chunks), func(i int) bool { return s.chunks[i].Len >= n })
}

// upperBound returns the index of the first chunk with Len > n.
func (s *freeSet) upperBound(n int) int {
	return sort.Search(len(s.chunks), func(i int) bool { return s.chunks[i].Len > n })
}

// equalRange returns the half-open index range of chunks with Len == n.
func (s *freeSet) equalRange(n int) (int, int) {
	return s.lowerBound(n), s.upperBound(n)
}

func (s *freeSet) insert(c Chunk) {
	s.chunks = slices.Insert(s.chunks, s.upperBound(c.Len), c)
}

func (s *freeSet) removeAt(i int) Chunk {
	c := s.chunks[i]
	s.chunks = slices.Delete(s.chunks, i, i+1)
	return c
}

// reset replaces the contents with the single chunk c.
func (s *freeSet) reset(c Chunk) {
	s.chunks = append(s.chunks[:0], c)
}

func (s *freeSet) total() int {
	return lo.SumBy(s.chunks, func(c Chunk) int { return c.Len })
}

// largest returns the length of the biggest free chunk, or 0 when empty.
func (s *freeSet) largest() int {
	if len(s.chunks) == 0 {
		return 0
	}
	return s.chunks[len(s.chunks)-1].Len
}
