package arena

import "fmt"

// Chunk describes the byte range [Off, Off+Len) inside one page buffer.
// It does not own the bytes and is meaningless once its page is gone.
type Chunk struct {
	Off int
	Len int
}

// End returns the offset one past the last byte of the chunk.
func (c Chunk) End() int { return c.Off + c.Len }

// Adjacent reports whether next starts exactly where c ends.
func (c Chunk) Adjacent(next Chunk) bool { return c.End() == next.Off }

func (c Chunk) String() string {
	return fmt.Sprintf("[%d,%d)", c.Off, c.End())
}

// Stats holds per-page allocation counters.
type Stats struct {
	AllocCalls  int // Total Allocate() calls
	PerfectFits int // Served by an exact-size aligned free chunk
	GreaterFits int // Served by splitting a larger free chunk
	Splits      int // Pad or remainder chunks created by greater fits
	Misses      int // Allocate() calls that returned ok == false
	DefragRuns  int // Defrag passes, automatic or explicit
	Coalesced   int // Free chunks absorbed into a neighbour by Defrag
	FreeCalls   int // Deallocate() calls
	Resets      int // DeallocateAll() calls
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.AllocCalls += o.AllocCalls
	s.PerfectFits += o.PerfectFits
	s.GreaterFits += o.GreaterFits
	s.Splits += o.Splits
	s.Misses += o.Misses
	s.DefragRuns += o.DefragRuns
	s.Coalesced += o.Coalesced
	s.FreeCalls += o.FreeCalls
	s.Resets += o.Resets
}
