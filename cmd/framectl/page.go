package main

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/framealloc/arena"
	"github.com/joshuapare/framealloc/internal/logger"
	"github.com/joshuapare/framealloc/internal/store"
)

var (
	pageSize     int
	pageOps      int
	pageMaxAlloc int
	pageKind     string
	pageSeed     int64
	pageChunks   bool
)

func init() {
	cmd := newPageCmd()
	cmd.Flags().IntVar(&pageSize, "size", arena.PageSize, "Page capacity in bytes (rounded up to 4096)")
	cmd.Flags().IntVar(&pageOps, "ops", 500, "Number of random allocate/deallocate operations")
	cmd.Flags().IntVar(&pageMaxAlloc, "max-alloc", 256, "Largest allocation in bytes")
	cmd.Flags().StringVar(&pageKind, "kind", "", "Arena kind: freelist or bump (default from config)")
	cmd.Flags().Int64Var(&pageSeed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&pageChunks, "chunks", false, "List free and used chunks (free-list pages)")
	rootCmd.AddCommand(cmd)
}

func newPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Run a random workload against a single page",
		Long: `The page command allocates and releases random byte ranges on one arena
page and prints its final layout and counters. Free-list pages also report
their free chunks and run a closing defragmentation pass.

Example:
  framectl page --size 16384 --ops 2000
  framectl page --kind bump --json
  framectl page --chunks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage()
		},
	}
	return cmd
}

// PageReport is the outcome of a page workload.
type PageReport struct {
	Kind        string        `json:"kind"`
	Capacity    int           `json:"capacity"`
	Used        int           `json:"used"`
	Usage       float64       `json:"usage"`
	Live        int           `json:"live_allocations"`
	Stats       arena.Stats   `json:"stats"`
	FreeChunks  []arena.Chunk `json:"free_chunks,omitempty"`
	UsedChunks  []arena.Chunk `json:"used_chunks,omitempty"`
	LargestFree int           `json:"largest_free,omitempty"`
	AfterDefrag int           `json:"largest_free_after_defrag,omitempty"`
}

func runPage() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if pageOps < 0 || pageMaxAlloc <= 0 {
		return errors.Errorf("ops must be non-negative and max-alloc positive")
	}

	name := pageKind
	if name == "" {
		name = c.Arena
	}
	kind, err := arena.ParseKind(name)
	if err != nil {
		return err
	}

	s, err := store.New(c.Store)
	if err != nil {
		return err
	}
	buf, err := s.Reserve(arena.RoundSize(pageSize))
	if err != nil {
		return err
	}
	defer releasePage(s, buf)

	a := kind.Factory(arena.WithDefragThreshold(c.DefragThreshold))(buf)
	printVerbose("Running %d operations on a %d-byte %s page\n", pageOps, a.Cap(), kind)

	live := runPageWorkload(a, pageOps, pageMaxAlloc, pageSeed)
	report := buildPageReport(a, kind, live)

	if jsonOut {
		return printJSON(report)
	}
	printPageReport(report)
	return nil
}

// releasePage returns the workload buffer to its store. The report is already
// written by then, so a failure is only logged.
func releasePage(s store.Store, b []byte) {
	if err := s.Release(b); err != nil {
		logger.L.WithError(err).WithField("size", len(b)).Warn("page release failed")
	}
}

// runPageWorkload performs ops random allocations and deallocations and
// returns the number of allocations left live.
func runPageWorkload(a arena.Arena, ops, maxAlloc int, seed int64) int {
	type allocation struct{ off, n int }

	rng := rand.New(rand.NewSource(seed))
	var live []allocation
	for i := 0; i < ops; i++ {
		if len(live) > 0 && rng.Intn(100) < 40 {
			j := rng.Intn(len(live))
			a.Deallocate(live[j].off, live[j].n)
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		n := 1 + rng.Intn(maxAlloc)
		align := 1 << rng.Intn(5)
		if off, ok := a.Allocate(n, align); ok {
			live = append(live, allocation{off: off, n: n})
		}
	}
	return len(live)
}

func buildPageReport(a arena.Arena, kind arena.Kind, live int) PageReport {
	report := PageReport{
		Kind:     string(kind),
		Capacity: a.Cap(),
		Used:     a.Used(),
		Usage:    a.Usage(),
		Live:     live,
		Stats:    a.Stats(),
	}
	if p, ok := a.(*arena.Page); ok {
		if pageChunks {
			report.FreeChunks = p.FreeChunks()
			report.UsedChunks = p.UsedChunks()
		}
		report.LargestFree = p.LargestFree()
		p.Defrag()
		report.AfterDefrag = p.LargestFree()
	}
	return report
}

func printPageReport(r PageReport) {
	p := message.NewPrinter(language.English)

	printInfo("%s", p.Sprintf("%s page: %d of %d bytes used (%.1f%%), %d live allocations\n",
		r.Kind, r.Used, r.Capacity, r.Usage*100, r.Live))
	printInfo("%s", p.Sprintf("  allocate calls: %d (%d perfect fit, %d greater fit, %d misses)\n",
		r.Stats.AllocCalls, r.Stats.PerfectFits, r.Stats.GreaterFits, r.Stats.Misses))
	printInfo("%s", p.Sprintf("  deallocations:  %d\n", r.Stats.FreeCalls))
	if r.Kind == string(arena.KindFreeList) {
		printInfo("%s", p.Sprintf("  defrag runs:    %d (%d chunks coalesced)\n", r.Stats.DefragRuns, r.Stats.Coalesced))
		printInfo("%s", p.Sprintf("  largest free:   %d bytes, %d after defrag\n", r.LargestFree, r.AfterDefrag))
	}

	if len(r.FreeChunks) > 0 || len(r.UsedChunks) > 0 {
		printInfo("\nfree chunks:\n")
		for _, c := range r.FreeChunks {
			printInfo("  %v\n", c)
		}
		printInfo("used chunks:\n")
		for _, c := range r.UsedChunks {
			printInfo("  %v\n", c)
		}
	}
}
