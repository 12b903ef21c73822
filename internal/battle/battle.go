// Package battle runs a real-time tactical battle as a fixed-timestep,
// single-threaded tick loop. Each tick runs AI, orders, formations,
// pathfinding, movement, collision, combat, projectiles, morale and the
// terminal check in that order.
package battle

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/ai"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/army"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/events"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/formation"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/pathfind"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/projectile"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/rules"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/soldier"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/states"
)

// Battle owns every piece of state of one engagement. Only the command
// queue, the snapshot buffer and phase queries may be used from other
// goroutines; everything else belongs to the goroutine calling Tick.
type Battle struct {
	id       string
	seed     int64
	settings Settings
	logger   zerolog.Logger
	rng      *rand.Rand

	grid        *core.TerrainGrid
	unitTable   core.UnitTable
	paths       *pathfind.Pathfinder
	collisions  *collision.System
	calc        *combat.Calculator
	projectiles *projectile.System
	soldiers    *soldier.Manager
	registry    *formation.Registry
	armies      *army.Manager
	controllers []*ai.Controller
	terminal    *rules.TerminalChecker

	eventBus      *events.EventBus
	stateMachine  *states.StateMachine
	commands      *CommandQueue
	snapshots     *SnapshotBuffer
	tickProcessor *TickProcessor

	tick    int
	outcome *Outcome
}

// New validates setup and settings, deploys the armies and returns a
// running battle. Configuration problems match core.ErrConfiguration.
func New(ctx context.Context, setup Setup, settings Settings, logger zerolog.Logger) (*Battle, error) {
	return NewInitializer(setup, settings, logger).Initialize(ctx)
}

func (b *Battle) ID() string { return b.id }

func (b *Battle) Seed() int64 { return b.seed }

// CurrentTick returns the number of ticks processed so far.
func (b *Battle) CurrentTick() int { return b.tick }

func (b *Battle) Phase() states.BattlePhase { return b.stateMachine.CurrentPhase() }

func (b *Battle) Terrain() *core.TerrainGrid { return b.grid }

func (b *Battle) Settings() Settings { return b.settings }

// Events returns the battle's event bus for subscribers.
func (b *Battle) Events() events.Bus { return b.eventBus }

// Snapshots returns the ring of recent render snapshots.
func (b *Battle) Snapshots() *SnapshotBuffer { return b.snapshots }

// History returns the phase transitions so far.
func (b *Battle) History() []states.Transition { return b.stateMachine.GetHistory() }

// Factions returns the deployed factions in sorted order.
func (b *Battle) Factions() []core.Faction { return b.armies.Factions() }

// Unit returns a copy of a unit's current state.
func (b *Battle) Unit(id core.UnitID) (core.Unit, bool) {
	u, ok := b.soldiers.Unit(id)
	if !ok {
		return core.Unit{}, false
	}
	return *u, true
}

// Army returns a copy of a side's army-level state.
func (b *Battle) Army(faction core.Faction) (army.Army, bool) {
	a, ok := b.armies.Army(faction)
	if !ok {
		return army.Army{}, false
	}
	return *a, true
}

// Formations returns a faction's formations in id order.
func (b *Battle) Formations(faction core.Faction) []*formation.Formation {
	return b.registry.ByFaction(faction)
}

// Submit queues a command for the next tick.
func (b *Battle) Submit(cmd Command) error {
	phase := b.stateMachine.CurrentPhase()
	if phase == states.PhaseConcluded {
		return fmt.Errorf("submit command: %w", core.ErrBattleConcluded)
	}
	if !phase.CanReceiveCommands() {
		return fmt.Errorf("submit command in %s phase: %w", phase, core.ErrInvalidPhase)
	}
	b.commands.Push(cmd)
	return nil
}

// Tick advances the battle by one fixed timestep. After the battle has
// concluded it does nothing and returns nil; while paused it returns an
// error matching core.ErrInvalidPhase.
func (b *Battle) Tick(ctx context.Context) error {
	return b.tickProcessor.ProcessTick(ctx)
}

// Run ticks until the battle concludes, maxTicks ticks have run (0 means
// no limit beyond the stalemate limit), or ctx is done. The outcome is nil
// when the battle is still undecided.
func (b *Battle) Run(ctx context.Context, maxTicks int) (*Outcome, error) {
	for i := 0; maxTicks <= 0 || i < maxTicks; i++ {
		if b.outcome != nil {
			break
		}
		if err := b.Tick(ctx); err != nil {
			return b.outcome, err
		}
	}
	return b.outcome, nil
}

// Outcome returns the summary once the battle has concluded.
func (b *Battle) Outcome() (*Outcome, bool) {
	return b.outcome, b.outcome != nil
}

// Pause stops the battle between ticks.
func (b *Battle) Pause() error {
	return b.stateMachine.TransitionTo(states.PhasePaused, "paused")
}

// Resume continues a paused battle.
func (b *Battle) Resume() error {
	return b.stateMachine.TransitionTo(states.PhaseRunning, "resumed")
}

// Snapshot builds the render view of the current state.
func (b *Battle) Snapshot() RenderSnapshot {
	s := RenderSnapshot{
		BattleID: b.id,
		Tick:     b.tick,
		Phase:    b.stateMachine.CurrentPhase(),
		Morale:   make(map[core.Faction]float64),
	}
	for _, u := range b.soldiers.Units() {
		if !u.Alive() {
			continue
		}
		s.Units = append(s.Units, UnitSnapshot{
			ID:        u.ID,
			Faction:   u.Faction,
			Type:      u.Type,
			Position:  u.Position,
			Heading:   u.Heading,
			State:     u.State,
			Health:    u.HealthFraction(),
			Formation: u.FormationID,
		})
	}
	for _, p := range b.projectiles.Active() {
		s.Projectiles = append(s.Projectiles, ProjectileSnapshot{
			ID:       p.ID,
			Position: p.Position,
			Heading:  p.Heading(),
		})
	}
	for _, f := range b.armies.Factions() {
		if a, ok := b.armies.Army(f); ok {
			s.Morale[f] = a.Morale
		}
	}
	return s
}

// spawnProjectile launches a ranged attack from shooter at target.
func (b *Battle) spawnProjectile(shooter, target *core.Unit) {
	b.projectiles.Spawn(b.grid, shooter.Position, target.Position, shooter.Stats.ProjectileSpeed, projectile.Payload{
		Source:        shooter.ID,
		SourceFaction: shooter.Faction,
		Attacker:      combat.FromUnit(shooter),
		Target:        target.ID,
		SplashRadius:  shooter.Stats.SplashRadius,
	})
}

// viewFor builds the AI's picture of the field for faction.
func (b *Battle) viewFor(faction core.Faction) ai.View {
	view := ai.View{Self: faction, OwnStrength: b.armies.Strength(faction)}
	if a, ok := b.armies.Army(faction); ok {
		view.Routed = a.Routed
		view.Fallback = a.Fallback
	}
	for _, other := range b.armies.Factions() {
		if other != faction {
			view.EnemyStrength += b.armies.Strength(other)
		}
	}
	for _, f := range b.registry.All() {
		fv, ok := b.formationView(f)
		if !ok {
			continue
		}
		if f.Faction == faction {
			view.Own = append(view.Own, fv)
		} else {
			view.Enemies = append(view.Enemies, fv)
		}
	}
	return view
}

func (b *Battle) formationView(f *formation.Formation) (ai.FormationView, bool) {
	var sum core.Vec2
	var health float64
	living := 0
	for _, id := range f.Members() {
		u, ok := b.soldiers.Unit(id)
		if !ok || !u.CanFight() {
			continue
		}
		sum = sum.Add(u.Position)
		health += u.Health
		living++
	}
	if living == 0 {
		return ai.FormationView{}, false
	}
	return ai.FormationView{
		ID:       f.ID,
		Faction:  f.Faction,
		Centroid: sum.Scale(1 / float64(living)),
		Strength: b.armies.FormationStrength(f),
		Health:   health,
		Living:   living,
	}, true
}
