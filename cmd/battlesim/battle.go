package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/monitoring"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/scenario"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/storage"
)

// resolveSeed picks the flag seed, then the scenario's, then the config's.
// Zero leaves seeding to the battle clock.
func resolveSeed(flag int64, f *scenario.File, cfg *config.Config) int64 {
	switch {
	case flag != 0:
		return flag
	case f.Seed != 0:
		return f.Seed
	default:
		return cfg.Battle.Seed
	}
}

// newBattle builds a battle from a scenario with the given seed. Each battle
// gets a fresh id; the scenario id goes to history separately.
func newBattle(ctx context.Context, f *scenario.File, cfg *config.Config, seed int64) (*battle.Battle, error) {
	file := *f
	file.Seed = seed
	setup, err := file.Build(cfg.Mapgen)
	if err != nil {
		return nil, fmt.Errorf("build scenario %s: %w", f.ID, err)
	}
	setup.ID = ""
	settings := battle.SettingsFromConfig(cfg)
	return battle.New(ctx, setup, settings, log.Logger)
}

func printOutcome(w io.Writer, o *battle.Outcome, m monitoring.TickMetrics) {
	switch {
	case o.Decisive():
		fmt.Fprintf(w, "Winner: %s (%s) after %d ticks\n", o.Winner, o.Reason, o.Ticks)
	case o.Stalemate:
		fmt.Fprintf(w, "Stalemate (%s) after %d ticks\n", o.Reason, o.Ticks)
	default:
		fmt.Fprintf(w, "No winner (%s) after %d ticks\n", o.Reason, o.Ticks)
	}

	factions := make([]core.Faction, 0, len(o.Casualties))
	for f := range o.Casualties {
		factions = append(factions, f)
	}
	sort.Slice(factions, func(i, j int) bool { return factions[i] < factions[j] })

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-12s  %-10s  %s\n", "Faction", "Casualties", "Survivors")
	fmt.Fprintf(w, "  %-12s  %-10s  %s\n", "-------", "----------", "---------")
	for _, f := range factions {
		fmt.Fprintf(w, "  %-12s  %-10d  %d\n", f, o.Casualties[f], len(o.SurvivorsOf(f)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Seed %d, simulated in %s (mean tick %s, p95 %s, %d over budget)\n",
		o.Seed, o.Duration.Round(time.Millisecond), m.Mean, m.P95, m.Slow)
}

func saveOutcome(ctx context.Context, scenarioID string, outcomes ...*battle.Outcome) error {
	store, err := storage.Open(dbPath())
	if err != nil {
		return err
	}
	defer store.Close()

	for _, o := range outcomes {
		rec, err := store.SaveOutcome(ctx, scenarioID, o)
		if err != nil {
			return err
		}
		log.Debug().Str("record_id", rec.ID).Str("battle_id", o.BattleID).Msg("Saved battle outcome")
	}
	return nil
}
