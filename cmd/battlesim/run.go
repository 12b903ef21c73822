package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/events/subscribers"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/monitoring"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/scenario"
)

var (
	flagRunMaxTicks int
	flagRunRender   int
	flagRunEvents   bool
	flagRunSave     bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run one battle and print the outcome",
	Long: `Run a battle to its conclusion (or --max-ticks) and print casualties.

Examples:
  battlesim run skirmish
  battlesim run river_ford --render 50 --events
  battlesim run ./my.yaml --seed 7 --save`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&flagRunMaxTicks, "max-ticks", 0, "Stop after this many ticks (0 = run to conclusion)")
	runCmd.Flags().IntVar(&flagRunRender, "render", 0, "Print the battlefield every N ticks (0 = only start and end)")
	runCmd.Flags().BoolVar(&flagRunEvents, "events", false, "Log every battle event")
	runCmd.Flags().BoolVar(&flagRunSave, "save", false, "Store the outcome in the history database")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()
	f, err := scenario.Resolve(args[0])
	if err != nil {
		return err
	}

	b, err := newBattle(ctx, f, cfg, resolveSeed(flagSeed, f, cfg))
	if err != nil {
		return err
	}

	monitor := monitoring.NewTickMonitor(b.ID(), b.Settings().TickRate, log.Logger)
	b.Events().Subscribe(monitor)
	monitor.Start(10 * time.Second)
	defer monitor.Stop()

	if flagRunEvents {
		b.Events().Subscribe(subscribers.NewLoggerSubscriber("cli-events", log.Logger, zerolog.InfoLevel))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", f.ID, f.Name)
	fmt.Fprint(out, renderASCII(b.Terrain(), b.Snapshot()))

	for {
		if _, done := b.Outcome(); done {
			break
		}
		if flagRunMaxTicks > 0 && b.CurrentTick() >= flagRunMaxTicks {
			break
		}
		if err := b.Tick(ctx); err != nil {
			return err
		}
		if flagRunRender > 0 && b.CurrentTick()%flagRunRender == 0 {
			fmt.Fprintln(out)
			fmt.Fprint(out, renderASCII(b.Terrain(), b.Snapshot()))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, renderASCII(b.Terrain(), b.Snapshot()))
	fmt.Fprintln(out)

	o, done := b.Outcome()
	if !done {
		fmt.Fprintf(out, "Undecided after %d ticks (seed %d)\n", b.CurrentTick(), b.Seed())
		return nil
	}
	printOutcome(out, o, monitor.GetMetrics())

	if flagRunSave || cfg.Storage.Enabled {
		return saveOutcome(ctx, f.ID, o)
	}
	return nil
}
