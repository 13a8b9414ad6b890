package main

import (
	"math/rand"
	"sync"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/cmd/poolbench/logger"
	"github.com/joshuapare/poolkit/pool"
)

var (
	benchThreads int
	benchOps     int
	benchMin     int
	benchMax     int
	benchCompare bool
)

func init() {
	rootCmd.AddCommand(newBenchCmd())
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the pool against the built-in allocator",
		Long: `The bench command warms both allocators up, then runs the configured
number of random-size allocate/write/deallocate operations per worker and
reports wall time and throughput.

Example:
  poolbench bench --threads 4 --ops 100000
  poolbench bench --min 8 --max 4096 --compare=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	cmd.Flags().IntVar(&benchThreads, "threads", 4, "Concurrent workers")
	cmd.Flags().IntVar(&benchOps, "ops", 100000, "Operations per worker")
	cmd.Flags().IntVar(&benchMin, "min", 8, "Minimum request size in bytes")
	cmd.Flags().IntVar(&benchMax, "max", 256, "Maximum request size in bytes")
	cmd.Flags().BoolVar(&benchCompare, "compare", true, "Also time make([]byte) for comparison")
	return cmd
}

type benchResult struct {
	Name      string  `json:"name"`
	Threads   int     `json:"threads"`
	Ops       int     `json:"ops_per_thread"`
	Millis    float64 `json:"millis"`
	OpsPerSec float64 `json:"ops_per_sec"`
}

func runBench() error {
	printVerbose("Warming up allocators...\n")
	warmup()

	results := []benchResult{timed("pool", poolWorker)}
	if benchCompare {
		results = append(results, timed("make", makeWorker))
	}

	if jsonOut {
		return printJSON(results)
	}
	for _, r := range results {
		printInfo("%-6s %d threads x %d ops: %8.2f ms  (%.0f ops/s)\n",
			r.Name, r.Threads, r.Ops, r.Millis, r.OpsPerSec)
	}
	if len(results) == 2 && results[1].Millis > 0 {
		printInfo("speedup: %.2fx\n", results[1].Millis/results[0].Millis)
	}
	return nil
}

// warmup touches the hot size classes so neither side pays first-use costs
// inside the timed region.
func warmup() {
	var ptrs []unsafe.Pointer
	var sizes []int
	var bufs [][]byte
	for i := 0; i < 1000; i++ {
		for _, n := range []int{32, 64, 128, 256, 512} {
			if p := pool.Allocate(n); p != nil {
				ptrs = append(ptrs, p)
				sizes = append(sizes, n)
			}
			bufs = append(bufs, make([]byte, n))
		}
	}
	for i, p := range ptrs {
		pool.Deallocate(p, sizes[i])
	}
	_ = bufs
}

func timed(name string, worker func(seed int64)) benchResult {
	logger.L.Info("bench start", "allocator", name, "threads", benchThreads, "ops", benchOps)
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < benchThreads; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker(seed)
		}(int64(w) + 1)
	}
	wg.Wait()

	elapsed := time.Since(start)
	total := float64(benchThreads * benchOps)
	logger.L.Info("bench done", "allocator", name, "elapsed", elapsed)
	return benchResult{
		Name:      name,
		Threads:   benchThreads,
		Ops:       benchOps,
		Millis:    float64(elapsed.Microseconds()) / 1000.0,
		OpsPerSec: total / elapsed.Seconds(),
	}
}

// poolWorker mirrors the unit-test churn pattern: half the blocks release
// immediately, the rest retire at the end.
func poolWorker(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	type alloc struct {
		p unsafe.Pointer
		n int
	}
	var kept []alloc

	for i := 0; i < benchOps; i++ {
		n := benchMin + rng.Intn(benchMax-benchMin+1)
		p := pool.Allocate(n)
		if p == nil {
			continue
		}
		*(*byte)(p) = byte(i)
		if rng.Intn(2) == 0 {
			pool.Deallocate(p, n)
		} else {
			kept = append(kept, alloc{p, n})
		}
	}
	for _, a := range kept {
		pool.Deallocate(a.p, a.n)
	}
}

func makeWorker(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	var kept [][]byte

	for i := 0; i < benchOps; i++ {
		n := benchMin + rng.Intn(benchMax-benchMin+1)
		b := make([]byte, n)
		b[0] = byte(i)
		if rng.Intn(2) == 0 {
			continue
		}
		kept = append(kept, b)
	}
	_ = kept
}
