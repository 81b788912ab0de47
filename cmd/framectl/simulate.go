package main

import (
	"math/rand"
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/framealloc/frame"
	"github.com/joshuapare/framealloc/internal/logger"
	"github.com/joshuapare/framealloc/pool"
)

var (
	simFrames      int
	simCommands    int
	simMaxVertices int
	simFreeRatio   float64
	simSeed        int64
	simTwoColor    bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().IntVarP(&simFrames, "frames", "n", 120, "Number of frames to simulate")
	cmd.Flags().IntVar(&simCommands, "commands", 200, "Draw commands per frame")
	cmd.Flags().IntVar(&simMaxVertices, "max-vertices", 64, "Maximum vertices per draw command")
	cmd.Flags().Float64Var(&simFreeRatio, "free-ratio", 0.1, "Fraction of geometry released mid-frame instead of drawn")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&simTwoColor, "two-color", false, "Use two-color vertices")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run synthetic frames through a draw batch",
		Long: `The simulate command fills a frame batch with randomly sized triangle fans,
releases some of them mid-frame, ends every frame with AfterDraw and reports
the pool statistics.

Example:
  framectl simulate
  framectl simulate --frames 1000 --commands 500 --json
  FRAMEALLOC_ARENA=bump framectl simulate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	return cmd
}

// SimParams are the inputs of one simulation.
type SimParams struct {
	Frames      int     `json:"frames"`
	Commands    int     `json:"commands_per_frame"`
	MaxVertices int     `json:"max_vertices"`
	FreeRatio   float64 `json:"free_ratio"`
	Seed        int64   `json:"seed"`
}

// PoolSummary condenses pool.Stats for output.
type PoolSummary struct {
	Pages         int     `json:"pages"`
	Capacity      int     `json:"capacity_bytes"`
	Allocations   int     `json:"allocations"`
	Deallocations int     `json:"deallocations"`
	Resets        int     `json:"resets"`
	PerfectFits   int     `json:"perfect_fits"`
	GreaterFits   int     `json:"greater_fits"`
	DefragRuns    int     `json:"defrag_runs"`
	Misses        int     `json:"page_misses"`
	PeakUsage     float64 `json:"peak_usage"`
}

// SimResult is the outcome of a simulation.
type SimResult struct {
	Params       SimParams   `json:"params"`
	VertexSize   int         `json:"vertex_size"`
	Submitted    int         `json:"commands_submitted"`
	Released     int         `json:"commands_released"`
	Vertices     int         `json:"vertices"`
	Indices      int         `json:"indices"`
	Elapsed      string      `json:"elapsed"`
	FramesPerSec int64       `json:"frames_per_sec"`
	VertexPool   PoolSummary `json:"vertex_pool"`
	IndexPool    PoolSummary `json:"index_pool"`
	CommandPool  PoolSummary `json:"command_pool"`
}

func runSimulate() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	params := SimParams{
		Frames:      simFrames,
		Commands:    simCommands,
		MaxVertices: simMaxVertices,
		FreeRatio:   simFreeRatio,
		Seed:        simSeed,
	}
	if err := params.validate(); err != nil {
		return err
	}

	opts, err := c.PoolOptions(logger.L)
	if err != nil {
		return err
	}

	printVerbose("Simulating %d frames with %s arena on %s store\n", params.Frames, c.Arena, c.Store)

	var res *SimResult
	if simTwoColor {
		res, err = simulate[frame.TwoColorVertex](opts, params)
	} else {
		res, err = simulate[frame.Vertex](opts, params)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(res)
	}
	printSimResult(res)
	return nil
}

func (p SimParams) validate() error {
	switch {
	case p.Frames <= 0:
		return errors.Errorf("frames must be positive, got %d", p.Frames)
	case p.Commands <= 0:
		return errors.Errorf("commands must be positive, got %d", p.Commands)
	case p.MaxVertices < 3:
		return errors.Errorf("max-vertices must be at least 3, got %d", p.MaxVertices)
	case p.MaxVertices > 1<<16:
		return errors.Errorf("max-vertices must fit 16-bit indices, got %d", p.MaxVertices)
	case p.FreeRatio < 0 || p.FreeRatio > 1:
		return errors.Errorf("free-ratio must be within [0, 1], got %v", p.FreeRatio)
	}
	return nil
}

// countingRenderer stands in for a real renderer and only counts submissions.
type countingRenderer struct {
	commands int
}

func (r *countingRenderer) Submit(*frame.DrawCommand) { r.commands++ }

func simulate[V any](opts *pool.Options, p SimParams) (*SimResult, error) {
	batch, err := frame.NewBatch[V](opts)
	if err != nil {
		return nil, err
	}
	defer batch.Close()

	rng := rand.New(rand.NewSource(p.Seed))
	fps := ratecounter.NewRateCounter(time.Second)
	renderer := &countingRenderer{}

	res := &SimResult{Params: p}
	var peakVerts, peakIdx, peakCmds float64

	start := time.Now()
	for f := 0; f < p.Frames; f++ {
		for i := 0; i < p.Commands; i++ {
			nv := 3 + rng.Intn(p.MaxVertices-2)
			ni := (nv - 2) * 3

			vref, _, err := batch.AllocateVertices(nv)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d", f)
			}
			iref, idx, err := batch.AllocateIndices(ni)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d", f)
			}
			fanIndices(idx, nv)

			if rng.Float64() < p.FreeRatio {
				batch.DeallocateIndices(iref, ni)
				batch.DeallocateVertices(vref, nv)
				res.Released++
				continue
			}

			_, err = batch.AddCommand(renderer, frame.DrawCommand{
				GlobalOrder: float32(i),
				Texture:     uint32(rng.Intn(8)),
				Blend:       frame.BlendAlphaPremultiplied,
				Vertices:    vref,
				Indices:     iref,
				VertexCount: int32(nv),
				IndexCount:  int32(ni),
				Transform:   frame.Identity,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d", f)
			}
			res.Vertices += nv
			res.Indices += ni
		}

		st := batch.Stats()
		peakVerts = max(peakVerts, usage(st.VertexPool))
		peakIdx = max(peakIdx, usage(st.IndexPool))
		peakCmds = max(peakCmds, usage(st.CommandPool))

		batch.AfterDraw()
		fps.Incr(1)
	}
	elapsed := time.Since(start)

	st := batch.Stats()
	res.Submitted = renderer.commands
	res.Elapsed = elapsed.Round(time.Microsecond).String()
	res.FramesPerSec = fps.Rate()
	if elapsed > 0 && elapsed < time.Second {
		// The counter window is one second; extrapolate short runs.
		res.FramesPerSec = int64(float64(p.Frames) / elapsed.Seconds())
	}
	res.VertexSize = batch.VertexSize()
	res.VertexPool = summarize(st.VertexPool, peakVerts)
	res.IndexPool = summarize(st.IndexPool, peakIdx)
	res.CommandPool = summarize(st.CommandPool, peakCmds)
	return res, nil
}

// fanIndices writes a triangle fan over nv vertices into idx.
func fanIndices(idx []uint16, nv int) {
	for t := 0; t < nv-2; t++ {
		idx[3*t] = 0
		idx[3*t+1] = uint16(t + 1)
		idx[3*t+2] = uint16(t + 2)
	}
}

func usage(s pool.Stats) float64 {
	capacity := s.Capacity()
	if capacity == 0 {
		return 0
	}
	used := 0
	for _, t := range s.Tiers {
		used += t.Used
	}
	return float64(used) / float64(capacity)
}

func summarize(s pool.Stats, peak float64) PoolSummary {
	return PoolSummary{
		Pages:         s.Pages(),
		Capacity:      s.Capacity(),
		Allocations:   s.Allocations,
		Deallocations: s.Deallocations,
		Resets:        s.Resets,
		PerfectFits:   s.Arena.PerfectFits,
		GreaterFits:   s.Arena.GreaterFits,
		DefragRuns:    s.Arena.DefragRuns,
		Misses:        s.Arena.Misses,
		PeakUsage:     peak,
	}
}

func printSimResult(res *SimResult) {
	p := message.NewPrinter(language.English)

	printInfo("%s", p.Sprintf("Simulated %d frames in %s (%d frames/sec)\n",
		res.Params.Frames, res.Elapsed, res.FramesPerSec))
	printInfo("%s", p.Sprintf("  commands submitted: %d\n", res.Submitted))
	printInfo("%s", p.Sprintf("  commands released:  %d\n", res.Released))
	printInfo("%s", p.Sprintf("  vertices:           %d (%d bytes each)\n", res.Vertices, res.VertexSize))
	printInfo("%s", p.Sprintf("  indices:            %d\n", res.Indices))

	for _, row := range []struct {
		name string
		s    PoolSummary
	}{
		{"vertex", res.VertexPool},
		{"index", res.IndexPool},
		{"command", res.CommandPool},
	} {
		printInfo("\n%s pool:\n", row.name)
		printInfo("%s", p.Sprintf("  pages:        %d (%d bytes)\n", row.s.Pages, row.s.Capacity))
		printInfo("%s", p.Sprintf("  allocations:  %d (%d perfect fit, %d greater fit)\n",
			row.s.Allocations, row.s.PerfectFits, row.s.GreaterFits))
		printInfo("%s", p.Sprintf("  released:     %d mid-frame, %d resets\n", row.s.Deallocations, row.s.Resets))
		printInfo("%s", p.Sprintf("  defrag runs:  %d, page misses: %d\n", row.s.DefragRuns, row.s.Misses))
		printInfo("  peak usage:   %.1f%%\n", row.s.PeakUsage*100)
	}
}
