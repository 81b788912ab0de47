package arena

import "testing"

// BenchmarkPage_FrameCycle allocates a frame's worth of small chunks, frees
// half of them, then resets.
func BenchmarkPage_FrameCycle(b *testing.B) {
	p := NewPage(64 * 1024)
	offs := make([]int, 0, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		offs = offs[:0]
		for i := range 256 {
			off, ok := p.Allocate(32+i%96, 4)
			if !ok {
				break
			}
			offs = append(offs, off)
		}
		for i := 0; i < len(offs); i += 2 {
			p.Deallocate(offs[i], 32+i%96)
		}
		p.DeallocateAll()
	}
}

// BenchmarkPage_PerfectFitChurn measures allocate/free of a single size.
func BenchmarkPage_PerfectFitChurn(b *testing.B) {
	p := NewPage(64 * 1024)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		off, ok := p.Allocate(128, 16)
		if !ok {
			b.Fatal("allocation failed")
		}
		p.Deallocate(off, 128)
	}
}

func BenchmarkBumpPage_FrameCycle(b *testing.B) {
	p := NewBumpPage(64 * 1024)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		for i := range 256 {
			if _, ok := p.Allocate(32+i%96, 4); !ok {
				break
			}
		}
		p.DeallocateAll()
	}
}
