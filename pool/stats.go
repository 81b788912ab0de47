package pool

import (
	"github.com/samber/lo"

	"github.com/joshuapare/framealloc/arena"
)

// TierStats describes the pages of one tier.
type TierStats struct {
	Name     string
	Pages    int
	Capacity int // bytes across all pages
	Used     int // bytes handed out, as reported by the pages
}

// Usage returns Used/Capacity, or 0 for a tier without pages.
func (t TierStats) Usage() float64 {
	if t.Capacity == 0 {
		return 0
	}
	return float64(t.Used) / float64(t.Capacity)
}

// Stats is a snapshot of a pool.
type Stats struct {
	Tiers []TierStats

	Live      int // allocations currently in the side table
	LiveBytes int // bytes reserved by live allocations

	PagesCreated  int
	Allocations   int
	Deallocations int
	Resets        int
	StoreFailures int

	// Arena aggregates the counters of every page.
	Arena arena.Stats
}

// Pages returns the total page count across tiers.
func (s Stats) Pages() int {
	return lo.SumBy(s.Tiers, func(t TierStats) int { return t.Pages })
}

// Capacity returns the total page capacity across tiers.
func (s Stats) Capacity() int {
	return lo.SumBy(s.Tiers, func(t TierStats) int { return t.Capacity })
}

// counters are the running totals behind Stats.
type counters struct {
	pagesCreated  int
	allocations   int
	deallocations int
	resets        int
	storeFailures int
}
