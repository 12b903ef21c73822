package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/scenario"
)

var (
	flagBatchCount    int
	flagBatchParallel int
	flagBatchSave     bool
	flagBatchWatch    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <scenario>",
	Short: "Run a scenario over consecutive seeds and tally the winners",
	Long: `Run the same scenario many times with seeds base, base+1, ... and
report how often each faction won. With --watch, edits to the config file
apply to battles started after the change.

Examples:
  battlesim batch skirmish --count 100
  battlesim batch river_ford --count 20 --parallel 4 --save
  battlesim batch skirmish --count 500 --config ./config.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&flagBatchCount, "count", 10, "Number of battles")
	batchCmd.Flags().IntVar(&flagBatchParallel, "parallel", 1, "Battles simulated at once")
	batchCmd.Flags().BoolVar(&flagBatchSave, "save", false, "Store every outcome in the history database")
	batchCmd.Flags().BoolVar(&flagBatchWatch, "watch", false, "Reload the config file when it changes")
}

type batchResult struct {
	seed    int64
	outcome *battle.Outcome
	err     error
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flagBatchCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	f, err := scenario.Resolve(args[0])
	if err != nil {
		return err
	}

	var current atomic.Pointer[config.Config]
	current.Store(config.Get())
	if flagBatchWatch {
		config.WatchConfig(func(c *config.Config) {
			current.Store(c)
			log.Info().Str("file", config.ConfigFilePath()).Msg("Config reloaded; applies to the next battle")
		}, func(err error) {
			log.Warn().Err(err).Msg("Config reload rejected")
		})
	}

	base := resolveSeed(flagSeed, f, current.Load())
	if base == 0 {
		base = 1
	}

	results := runSeeds(ctx, f, &current, base, flagBatchCount, max(flagBatchParallel, 1))

	out := cmd.OutOrStdout()
	var outcomes []*battle.Outcome
	wins := make(map[core.Faction]int)
	draws := 0
	for _, r := range results {
		if r.err != nil {
			return fmt.Errorf("seed %d: %w", r.seed, r.err)
		}
		if r.outcome == nil {
			continue
		}
		outcomes = append(outcomes, r.outcome)
		if r.outcome.Decisive() {
			wins[r.outcome.Winner]++
		} else {
			draws++
		}
	}

	factions := make([]core.Faction, 0, len(f.Armies))
	for _, a := range f.Armies {
		factions = append(factions, core.Faction(a.Faction))
	}
	sort.Slice(factions, func(i, j int) bool { return factions[i] < factions[j] })

	fmt.Fprintf(out, "%s: %d battles, seeds %d..%d\n\n", f.ID, len(results), base, base+int64(len(results))-1)
	fmt.Fprintf(out, "  %-12s  %-6s  %s\n", "Faction", "Wins", "Rate")
	fmt.Fprintf(out, "  %-12s  %-6s  %s\n", "-------", "----", "----")
	for _, fac := range factions {
		fmt.Fprintf(out, "  %-12s  %-6d  %.1f%%\n", fac, wins[fac], 100*float64(wins[fac])/float64(len(results)))
	}
	fmt.Fprintf(out, "  %-12s  %-6d  %.1f%%\n", "(no winner)", draws, 100*float64(draws)/float64(len(results)))

	if flagBatchSave || current.Load().Storage.Enabled {
		return saveOutcome(ctx, f.ID, outcomes...)
	}
	return nil
}

// runSeeds simulates count battles on a pool of workers. Results come back
// in seed order; each battle reads the config current when it starts.
func runSeeds(ctx context.Context, f *scenario.File, current *atomic.Pointer[config.Config], base int64, count, workers int) []batchResult {
	results := make([]batchResult, count)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				seed := base + int64(i)
				results[i] = batchResult{seed: seed}
				b, err := newBattle(ctx, f, current.Load(), seed)
				if err != nil {
					results[i].err = err
					continue
				}
				results[i].outcome, results[i].err = b.Run(ctx, 0)
				log.Debug().Int64("seed", seed).Int("ticks", b.CurrentTick()).Msg("Batch battle finished")
			}
		}()
	}

feed:
	for i := 0; i < count; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < count; j++ {
				results[j] = batchResult{seed: base + int64(j), err: ctx.Err()}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
