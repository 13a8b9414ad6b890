package main

import (
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/pool"
)

type allocRec struct {
	p unsafe.Pointer
	n int
}

var statsOps int

func init() {
	rootCmd.AddCommand(newStatsCmd())
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Run a standard workload and dump the layer counters",
		Long: `The stats command churns the pool through a fixed workload and prints
the central- and page-layer counters, showing refill batching and span
reuse at work.

Example:
  poolbench stats
  poolbench stats --ops 50000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	cmd.Flags().IntVar(&statsOps, "ops", 10000, "Allocations per size class in the workload")
	return cmd
}

func runStats() error {
	for _, n := range []int{16, 64, 256, 1024, 8192} {
		printVerbose("Churning %d x %d bytes\n", statsOps, n)
		ptrs := make([]allocRec, 0, statsOps)
		for i := 0; i < statsOps; i++ {
			if p := pool.Allocate(n); p != nil {
				ptrs = append(ptrs, allocRec{p: p, n: n})
			}
		}
		for _, pr := range ptrs {
			pool.Deallocate(pr.p, pr.n)
		}
	}

	st := pool.GetStats()
	if jsonOut {
		return printJSON(st)
	}

	printInfo("Central layer:\n")
	printInfo("  Fetches:     %d\n", st.Central.Fetches)
	printInfo("  Refills:     %d\n", st.Central.Refills)
	printInfo("  Returns:     %d\n", st.Central.Returns)
	printInfo("  Blocks out:  %d\n", st.Central.BlocksOut)
	printInfo("  Blocks back: %d\n", st.Central.BlocksBack)
	printInfo("Page layer:\n")
	printInfo("  OS reservations: %d (%d pages)\n", st.Pages.SysAllocs, st.Pages.SysPages)
	printInfo("  Spans split:     %d\n", st.Pages.SpansSplit)
	printInfo("  Spans merged:    %d\n", st.Pages.SpansMerged)
	printInfo("  Spans released:  %d (%d pages)\n", st.Pages.SpansReleased, st.Pages.ReleasedPages)
	return nil
}
