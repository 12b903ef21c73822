package battle

import (
	"time"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/rules"
)

// Survivor is a unit alive when the battle concluded.
type Survivor struct {
	ID      core.UnitID
	Faction core.Faction
	Type    core.UnitType
	Health  float64
	Routed  bool
}

// Outcome summarises a concluded battle.
type Outcome struct {
	BattleID   string
	Seed       int64
	Winner     core.Faction // empty on stalemate or mutual destruction
	Stalemate  bool
	Reason     rules.Reason
	Ticks      int
	Casualties map[core.Faction]int
	Survivors  []Survivor // in unit id order
	Duration   time.Duration
}

// Decisive reports whether a single faction won.
func (o *Outcome) Decisive() bool {
	return o.Winner != ""
}

// SurvivorsOf returns the survivors of faction.
func (o *Outcome) SurvivorsOf(faction core.Faction) []Survivor {
	var out []Survivor
	for _, s := range o.Survivors {
		if s.Faction == faction {
			out = append(out, s)
		}
	}
	return out
}

func (b *Battle) buildOutcome(v rules.Verdict) *Outcome {
	out := &Outcome{
		BattleID:   b.id,
		Seed:       b.seed,
		Winner:     v.Winner,
		Stalemate:  v.Stalemate,
		Reason:     v.Reason,
		Ticks:      b.tick,
		Casualties: make(map[core.Faction]int),
		Duration:   b.stateMachine.GetContext().GetElapsedTime(),
	}
	for _, f := range b.armies.Factions() {
		out.Casualties[f] = b.armies.Casualties(f)
	}
	for _, u := range b.soldiers.Units() {
		if !u.Alive() {
			continue
		}
		out.Survivors = append(out.Survivors, Survivor{
			ID:      u.ID,
			Faction: u.Faction,
			Type:    u.Type,
			Health:  u.Health,
			Routed:  u.State == core.StateRouting,
		})
	}
	return out
}
