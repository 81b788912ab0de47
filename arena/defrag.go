package arena

import (
	"cmp"
	"slices"
)

// Defrag merges free chunks that touch in memory into single larger chunks.
//
// The surviving chunk of each merged run is re-inserted under its new size;
// every other free chunk keeps its place in the free set. Running Defrag twice
// in a row leaves the free set unchanged the second time.
func (p *Page) Defrag() {
	p.stats.DefragRuns++

	n := p.free.len()
	if n <= 1 {
		return
	}

	// Free-set indices ordered by address.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Compare(p.free.chunks[a].Off, p.free.chunks[b].Off)
	})

	// Each run collapses into its highest-address chunk.
	absorbed := make([]bool, n)
	merged := make(map[int]Chunk)
	prev := order[0]
	run := p.free.chunks[prev]
	for _, idx := range order[1:] {
		next := p.free.chunks[idx]
		if run.Adjacent(next) {
			absorbed[prev] = true
			delete(merged, prev)
			run = Chunk{Off: run.Off, Len: run.Len + next.Len}
			merged[idx] = run
			p.stats.Coalesced++
		} else {
			run = next
		}
		prev = idx
	}

	if len(merged) == 0 {
		return
	}

	kept := make([]Chunk, 0, n-len(merged))
	regrown := make([]Chunk, 0, len(merged))
	for i, c := range p.free.chunks {
		if absorbed[i] {
			continue
		}
		if m, ok := merged[i]; ok {
			regrown = append(regrown, m)
			continue
		}
		kept = append(kept, c)
	}

	p.free.chunks = kept
	for _, c := range regrown {
		p.free.insert(c)
	}
}
