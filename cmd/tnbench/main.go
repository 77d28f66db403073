// tnbench measures iteration throughput of the data-loading pipeline:
// one serial pass as a baseline, then parallel passes at the requested
// worker counts, with a configurable synthetic per-sample preprocessing
// cost.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/facebookarchive/torchnet/dataset"
	"github.com/facebookarchive/torchnet/iterator"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

type passResult struct {
	mode    string
	workers int
	total   time.Duration
	samples int
}

func main() {
	var (
		numSamples = flag.Int("n", 100_000, "dataset size")
		batchSize  = flag.Int("batch", 0, "batch size (0 disables batching)")
		workers    = flag.String("workers", "1,2,4,8", "comma-separated worker counts for the parallel passes")
		ordered    = flag.Bool("ordered", false, "deliver samples in original index order")
		cost       = flag.Duration("cost", 50*time.Microsecond, "synthetic per-sample preprocessing cost")
	)
	flag.Parse()

	counts, err := parseWorkerCounts(*workers)
	if err != nil {
		red.Fprintf(os.Stderr, "invalid -workers: %v\n", err)
		os.Exit(1)
	}

	bold.Printf("tnbench: %s samples, per-sample cost %v", formatNumber(*numSamples), *cost)
	if *batchSize > 0 {
		fmt.Printf(", batch size %d", *batchSize)
	}
	if *ordered {
		fmt.Print(", ordered")
	}
	fmt.Println()
	fmt.Println()

	bar := progressbar.NewOptions(1+len(counts),
		progressbar.OptionSetDescription("Running passes"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
	)

	results := make([]passResult, 0, 1+len(counts))

	bar.Describe("Serial pass")
	serial, err := runSerial(*numSamples, *batchSize, *cost)
	if err != nil {
		red.Fprintf(os.Stderr, "serial pass failed: %v\n", err)
		os.Exit(1)
	}
	results = append(results, serial)
	_ = bar.Add(1)

	for _, w := range counts {
		bar.Describe(fmt.Sprintf("Parallel pass: %d workers", w))
		res, err := runParallel(*numSamples, *batchSize, w, *ordered, *cost)
		if err != nil {
			red.Fprintf(os.Stderr, "parallel pass (%d workers) failed: %v\n", w, err)
			os.Exit(1)
		}
		results = append(results, res)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()
	fmt.Println()

	renderResults(results)
}

// benchDataset builds the synthetic dataset: integer samples whose fetch
// burns the configured preprocessing cost.
func benchDataset(n int, cost time.Duration) dataset.Dataset {
	values := make([]int, n)
	for i := range values {
		values[i] = i
	}
	ds := dataset.FromValues("input", values)
	return dataset.NewTransformDataset(ds, func(s dataset.Sample) (dataset.Sample, error) {
		spin(cost)
		return s, nil
	})
}

// spin busy-waits to emulate CPU-bound preprocessing; sleeping would let
// the scheduler hide the cost and overstate parallel speedup.
func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

func maybeBatch(ds dataset.Dataset, batchSize int) (dataset.Dataset, error) {
	if batchSize <= 0 {
		return ds, nil
	}
	return dataset.NewBatchDataset(ds, batchSize)
}

func runSerial(n, batchSize int, cost time.Duration) (passResult, error) {
	ds, err := maybeBatch(benchDataset(n, cost), batchSize)
	if err != nil {
		return passResult{}, err
	}

	count := 0
	start := time.Now()
	for _, err := range iterator.New(ds).Run() {
		if err != nil {
			return passResult{}, err
		}
		count++
	}
	return passResult{mode: "serial", workers: 1, total: time.Since(start), samples: count}, nil
}

func runParallel(n, batchSize, workers int, ordered bool, cost time.Duration) (passResult, error) {
	opts := []iterator.ParallelOption{iterator.WithWorkers(workers)}
	if ordered {
		opts = append(opts, iterator.WithOrdered())
	}
	pi := iterator.NewParallel(func(int) (dataset.Dataset, error) {
		return maybeBatch(benchDataset(n, cost), batchSize)
	}, opts...)

	if err := pi.Start(context.Background()); err != nil {
		return passResult{}, err
	}
	defer pi.Shutdown(10 * time.Second)

	mode := "parallel"
	if ordered {
		mode = "parallel/ordered"
	}

	count := 0
	start := time.Now()
	for _, err := range pi.Run() {
		if err != nil {
			return passResult{}, err
		}
		count++
	}
	return passResult{mode: mode, workers: workers, total: time.Since(start), samples: count}, nil
}

func renderResults(results []passResult) {
	bold.Println("THROUGHPUT")

	baseline := results[0].total
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Mode", "Workers", "Total Time", "Items/sec", "vs Serial")

	for _, r := range results {
		perSec := 0.0
		if r.total > 0 {
			perSec = float64(r.samples) / r.total.Seconds()
		}
		speedup := "1.00x"
		if r.total > 0 && r.mode != "serial" {
			speedup = fmt.Sprintf("%.2fx", baseline.Seconds()/r.total.Seconds())
		}
		_ = table.Append(
			r.mode,
			strconv.Itoa(r.workers),
			r.total.Round(time.Millisecond).String(),
			formatNumber(int(perSec)),
			speedup,
		)
	}

	if err := table.Render(); err != nil {
		red.Println("Error rendering results table")
		return
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.total < best.total {
			best = r
		}
	}
	fmt.Println()
	green.Printf("Fastest: %s with %d workers (%v)\n", best.mode, best.workers, best.total.Round(time.Millisecond))
}

func parseWorkerCounts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	counts := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("worker count must be positive, got %d", n)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
