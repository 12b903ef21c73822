package rules

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Reason says why a battle concluded.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonDecisive
	ReasonMutualDestruction
	ReasonTickLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonDecisive:
		return "last faction standing"
	case ReasonMutualDestruction:
		return "mutual destruction"
	case ReasonTickLimit:
		return "tick limit"
	default:
		return "none"
	}
}

// Verdict is the result of a terminal check.
type Verdict struct {
	Concluded bool
	Winner    core.Faction // empty unless Reason is ReasonDecisive
	Stalemate bool
	Reason    Reason
}

// TerminalChecker handles battle-over detection and winner determination
type TerminalChecker struct {
	logger   zerolog.Logger
	maxTicks int
}

// NewTerminalChecker creates a checker that declares a stalemate once
// maxTicks ticks have run. maxTicks <= 0 disables the tick limit.
func NewTerminalChecker(logger zerolog.Logger, maxTicks int) *TerminalChecker {
	return &TerminalChecker{
		logger:   logger.With().Str("component", "TerminalChecker").Logger(),
		maxTicks: maxTicks,
	}
}

func (tc *TerminalChecker) MaxTicks() int { return tc.maxTicks }

// Check decides whether the battle is over after tick. fighting maps each
// faction to its number of living, non-routed units. A battle ends when at
// most one faction can still fight; otherwise it ends in a stalemate once
// the tick limit is reached.
func (tc *TerminalChecker) Check(tick int, fighting map[core.Faction]int) Verdict {
	factions := make([]core.Faction, 0, len(fighting))
	for f := range fighting {
		factions = append(factions, f)
	}
	sort.Slice(factions, func(i, j int) bool { return factions[i] < factions[j] })

	var standing []core.Faction
	for _, f := range factions {
		if fighting[f] > 0 {
			standing = append(standing, f)
		}
	}

	var v Verdict
	switch {
	case len(standing) == 1:
		v = Verdict{Concluded: true, Winner: standing[0], Reason: ReasonDecisive}
		tc.logger.Info().Str("winner", string(v.Winner)).Int("tick", tick).Msg("Winner determined")
	case len(standing) == 0:
		v = Verdict{Concluded: true, Reason: ReasonMutualDestruction}
		tc.logger.Info().Int("tick", tick).Msg("No faction left standing")
	case tc.maxTicks > 0 && tick >= tc.maxTicks:
		v = Verdict{Concluded: true, Stalemate: true, Reason: ReasonTickLimit}
		tc.logger.Info().Int("tick", tick).Int("standing", len(standing)).Msg("Tick limit reached, stalemate")
	}

	tc.logger.Debug().
		Int("tick", tick).
		Bool("concluded", v.Concluded).
		Int("standing", len(standing)).
		Msg("Terminal check complete")
	return v
}
