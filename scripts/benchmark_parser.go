package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string
	Arena       string // "freelist", "bump" or "" when the benchmark has no arena split
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs the free-list and bump results of one operation.
type ComparisonResult struct {
	Operation      string
	FreeListNs     float64
	BumpNs         float64
	Ratio          float64 // FreeListNs / BumpNs
	FreeListAllocs int64
	BumpAllocs     int64
	Single         *BenchmarkResult
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

// Usage:
//
//	go test -bench . -benchmem ./arena ./pool | go run ./scripts -output bench.md
func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	comparisons := generateComparisons(results)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results, %d comparisons\n", len(results), len(comparisons))
	}

	report := generateMarkdownReport(comparisons, time.Now())
	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// BenchmarkPool_Frame/freelist-8    50000    23450 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+(\d+)\s+B/op)?(?:\s+(\d+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Lines from go test -json carry the text in Output.
		var event map[string]any
		if err := json.Unmarshal([]byte(line), &event); err == nil {
			if output, ok := event["Output"].(string); ok {
				line = output
			}
		}

		m := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		r := BenchmarkResult{Name: m[1]}
		r.Iterations, _ = strconv.Atoi(m[2])
		r.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		}
		if m[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}
		r.Operation, r.Arena = splitName(m[1])
		results = append(results, r)
	}

	return results
}

// splitName turns "BenchmarkPool_Frame/bump-8" into ("Pool_Frame", "bump").
// Names without an arena sub-benchmark keep their whole path as the operation.
func splitName(name string) (operation, arenaKind string) {
	name = strings.TrimPrefix(name, "Benchmark")
	if dash := strings.LastIndex(name, "-"); dash > 0 {
		if _, err := strconv.Atoi(name[dash+1:]); err == nil {
			name = name[:dash]
		}
	}

	if slash := strings.LastIndex(name, "/"); slash > 0 {
		switch sub := name[slash+1:]; sub {
		case "freelist", "bump":
			return name[:slash], sub
		}
	}
	return name, ""
}

func generateComparisons(results []BenchmarkResult) []ComparisonResult {
	grouped := make(map[string]map[string]BenchmarkResult)
	for _, r := range results {
		if grouped[r.Operation] == nil {
			grouped[r.Operation] = make(map[string]BenchmarkResult)
		}
		grouped[r.Operation][r.Arena] = r
	}

	var comparisons []ComparisonResult
	for op, byArena := range grouped {
		fl, hasFL := byArena["freelist"]
		bump, hasBump := byArena["bump"]

		switch {
		case hasFL && hasBump:
			comparisons = append(comparisons, ComparisonResult{
				Operation:      op,
				FreeListNs:     fl.NsPerOp,
				BumpNs:         bump.NsPerOp,
				Ratio:          fl.NsPerOp / bump.NsPerOp,
				FreeListAllocs: fl.AllocsPerOp,
				BumpAllocs:     bump.AllocsPerOp,
			})
		default:
			for _, r := range byArena {
				r := r
				comparisons = append(comparisons, ComparisonResult{Operation: op, Single: &r})
			}
		}
	}

	sort.Slice(comparisons, func(i, j int) bool {
		return comparisons[i].Operation < comparisons[j].Operation
	})
	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format("2006-01-02 15:04:05")))

	sb.WriteString("## Free-list vs bump\n\n")
	sb.WriteString("| Operation | freelist (ns/op) | bump (ns/op) | freelist / bump | Allocs |\n")
	sb.WriteString("|-----------|------------------|--------------|-----------------|--------|\n")
	paired := 0
	for _, c := range comparisons {
		if c.Single != nil {
			continue
		}
		paired++
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2fx | %s vs %s |\n",
			c.Operation,
			formatNumber(c.FreeListNs),
			formatNumber(c.BumpNs),
			c.Ratio,
			formatNumber(float64(c.FreeListAllocs)),
			formatNumber(float64(c.BumpAllocs)),
		))
	}
	if paired == 0 {
		sb.WriteString("| *none* | | | | |\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Other benchmarks\n\n")
	sb.WriteString("| Benchmark | ns/op | Memory | Allocs |\n")
	sb.WriteString("|-----------|-------|--------|--------|\n")
	for _, c := range comparisons {
		if c.Single == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			c.Single.Name,
			formatNumber(c.Single.NsPerOp),
			formatBytes(c.Single.BytesPerOp),
			formatNumber(float64(c.Single.AllocsPerOp)),
		))
	}
	sb.WriteString("\n")

	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **freelist / bump > 1.0**: the bump arena is faster for that workload\n")
	sb.WriteString("- Allocations are Go heap allocations per op; page memory is reserved up front\n")

	return sb.String()
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
