package battle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/army"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/events"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/rules"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/states"
)

// TickProcessor handles the orchestration of a single tick
type TickProcessor struct {
	battle *Battle
	logger zerolog.Logger
}

// NewTickProcessor creates a new tick processor
func NewTickProcessor(b *Battle) *TickProcessor {
	return &TickProcessor{
		battle: b,
		logger: b.logger,
	}
}

// ProcessTick executes one fixed timestep. The stage order is part of the
// contract: collision sees this tick's movement, combat sees this tick's
// contacts, and morale sees this tick's casualties. Cancellation is only
// honoured before the first stage.
func (tp *TickProcessor) ProcessTick(ctx context.Context) error {
	// Check context at start
	if err := tp.checkContext(ctx, "before starting"); err != nil {
		return err
	}

	phase := tp.battle.stateMachine.CurrentPhase()
	if phase == states.PhaseConcluded {
		return nil
	}
	if err := tp.validateBattleState(phase); err != nil {
		return err
	}

	b := tp.battle
	tickStart := time.Now()
	tp.initializeTick()

	// Create tick-scoped logger
	tickLogger := tp.logger.With().Int("tick", b.tick).Logger()
	tickLogger.Debug().Msg("Starting battle tick")

	tp.publishTickStarted()

	tp.processAIPhase(tickLogger)
	tp.processCommandPhase(tickLogger)
	tp.processMovementPhase()
	contacts := tp.processCollisionPhase()
	tp.processCombatPhase(contacts)
	tp.processProjectilePhase()
	tp.processMoralePhase(tickLogger)

	b.stateMachine.GetContext().Tick = b.tick
	if err := tp.processTerminalPhase(tickLogger); err != nil {
		return err
	}

	b.snapshots.Push(b.Snapshot())
	tp.publishTickEnded(tickStart)

	tickLogger.Debug().Msg("Battle tick finished")
	return nil
}

// checkContext checks if the context is cancelled
func (tp *TickProcessor) checkContext(ctx context.Context, phase string) error {
	select {
	case <-ctx.Done():
		tp.logger.Warn().
			Err(ctx.Err()).
			Int("tick", tp.battle.tick).
			Str("phase", phase).
			Msg("Battle tick cancelled or timed out")
		return ctx.Err()
	default:
		return nil
	}
}

// validateBattleState ensures the battle may advance
func (tp *TickProcessor) validateBattleState(phase states.BattlePhase) error {
	if !phase.CanTick() {
		tp.logger.Warn().
			Str("current_phase", phase.String()).
			Int("tick", tp.battle.tick).
			Msg("Attempted to tick battle in phase that cannot advance")
		return core.WrapTickError(tp.battle.tick+1, "start", fmt.Errorf("battle is in %s phase: %w", phase, core.ErrInvalidPhase))
	}
	return nil
}

// initializeTick advances the tick counter and stamps every component
func (tp *TickProcessor) initializeTick() {
	b := tp.battle
	b.tick++
	b.soldiers.BeginTick(b.tick)
	b.armies.BeginTick(b.tick)
}

func (tp *TickProcessor) publishTickStarted() {
	b := tp.battle
	b.eventBus.Publish(events.NewTickStartedEvent(b.id, b.tick, b.commands.Len()))
}

// processAIPhase lets each AI controller decide on its interval. The first
// decision is taken on the first tick.
func (tp *TickProcessor) processAIPhase(tickLogger zerolog.Logger) {
	b := tp.battle
	for _, c := range b.controllers {
		if !c.Due(b.tick - 1) {
			continue
		}
		commands := c.Decide(b.tick, b.viewFor(c.Faction()))
		for _, cmd := range commands {
			if err := b.armies.IssueOrder(c.Faction(), army.Group{Formation: cmd.Formation}, cmd.Order); err != nil {
				c.Forget(cmd.Formation)
			}
		}
		if len(commands) > 0 {
			tickLogger.Debug().
				Str("faction", string(c.Faction())).
				Int("orders", len(commands)).
				Msg("AI issued orders")
		}
	}
}

// processCommandPhase drains externally submitted commands in submission
// order. Rejections are logged and published by the army manager.
func (tp *TickProcessor) processCommandPhase(tickLogger zerolog.Logger) {
	b := tp.battle
	commands := b.commands.Drain()
	if len(commands) == 0 {
		return
	}
	rejected := 0
	for _, cmd := range commands {
		if err := b.armies.IssueOrder(cmd.Faction, cmd.Group, cmd.Order); err != nil {
			rejected++
		}
	}
	tickLogger.Debug().
		Int("commands", len(commands)).
		Int("rejected", rejected).
		Msg("Processed queued commands")
}

// processMovementPhase keeps formations together, refreshes routes and
// moves every unit.
func (tp *TickProcessor) processMovementPhase() {
	b := tp.battle
	dt := b.settings.Dt()
	b.armies.UpdateFormations(dt)
	b.soldiers.RefreshRoutes(b.tick)
	b.soldiers.Advance(dt)
}

// processCollisionPhase separates overlapping bodies and returns the
// enemy contacts found. The index is rebuilt after the pushes so later
// queries see final positions.
func (tp *TickProcessor) processCollisionPhase() collision.Resolution {
	b := tp.battle
	b.collisions.Rebuild(b.soldiers.Bodies())
	res := b.collisions.Resolve(b.collisions.OverlappingPairs())
	b.soldiers.ApplyPushes(res.Pushes)
	b.collisions.Rebuild(b.soldiers.Bodies())
	return res
}

// processCombatPhase picks targets and resolves melee blows; ranged units
// out of contact launch projectiles instead.
func (tp *TickProcessor) processCombatPhase(res collision.Resolution) {
	b := tp.battle
	b.soldiers.AcquireTargets(res.Engagements, b.collisions)
	for _, a := range b.soldiers.ResolveAttacks(b.settings.Dt(), b.rng, b.spawnProjectile) {
		b.eventBus.Publish(events.NewCombatResolvedEvent(
			b.id,
			b.tick,
			int(a.Attacker),
			int(a.Defender),
			a.Result.IsHit,
			a.Result.Damage,
			a.Result.HitChance,
			a.Result.Multiplier,
		))
	}
}

func (tp *TickProcessor) processProjectilePhase() {
	b := tp.battle
	for _, imp := range b.projectiles.Advance(b.settings.Dt(), world{b: b}, b.rng) {
		b.eventBus.Publish(events.NewProjectileImpactEvent(
			b.id,
			b.tick,
			imp.ProjectileID,
			imp.Kind.String(),
			int(imp.Source),
			int(imp.Target),
			imp.Point.X,
			imp.Point.Y,
			imp.Hit,
			imp.Damage,
			len(imp.Splash),
		))
	}
}

// processMoralePhase routs shaken units, then breaks armies whose
// aggregate morale collapsed, and reports the tick's casualties.
func (tp *TickProcessor) processMoralePhase(tickLogger zerolog.Logger) {
	b := tp.battle
	shaken := b.soldiers.CheckMorale()
	forced := b.armies.UpdateMorale()

	deaths := b.soldiers.DrainDeaths()
	for _, d := range deaths {
		b.eventBus.Publish(events.NewUnitKilledEvent(b.id, b.tick, int(d.Unit), string(d.Faction), int(d.Killer), d.Position.X, d.Position.Y))
	}
	tp.publishRouts(shaken, false)
	tp.publishRouts(forced, true)

	if len(deaths) > 0 || len(shaken) > 0 || len(forced) > 0 {
		tickLogger.Debug().
			Int("killed", len(deaths)).
			Int("routed", len(shaken)).
			Int("forced_routs", len(forced)).
			Msg("Casualties this tick")
	}
}

func (tp *TickProcessor) publishRouts(ids []core.UnitID, forced bool) {
	b := tp.battle
	for _, id := range ids {
		u, ok := b.soldiers.Unit(id)
		if !ok {
			continue
		}
		b.eventBus.Publish(events.NewUnitRoutedEvent(b.id, b.tick, int(id), string(u.Faction), u.Morale, forced))
	}
}

// processTerminalPhase concludes the battle once at most one side can
// fight or the tick limit is reached.
func (tp *TickProcessor) processTerminalPhase(tickLogger zerolog.Logger) error {
	b := tp.battle
	verdict := b.terminal.Check(b.tick, b.armies.FightingByFaction())
	if !verdict.Concluded {
		return nil
	}
	return tp.conclude(verdict, tickLogger)
}

func (tp *TickProcessor) conclude(verdict rules.Verdict, tickLogger zerolog.Logger) error {
	b := tp.battle
	battleContext := b.stateMachine.GetContext()
	battleContext.Winner = string(verdict.Winner)
	battleContext.Reason = verdict.Reason.String()

	if err := b.stateMachine.TransitionTo(states.PhaseConcluded, verdict.Reason.String()); err != nil {
		tickLogger.Error().Err(err).Msg("Failed to transition to Concluded state")
		return core.WrapTickError(b.tick, "conclude", err)
	}

	b.outcome = b.buildOutcome(verdict)
	casualties := make(map[string]int, len(b.outcome.Casualties))
	for f, n := range b.outcome.Casualties {
		casualties[string(f)] = n
	}
	b.eventBus.Publish(events.NewBattleConcludedEvent(
		b.id,
		b.tick,
		string(verdict.Winner),
		verdict.Stalemate,
		verdict.Reason.String(),
		casualties,
		b.outcome.Duration,
	))

	tickLogger.Info().
		Str("winner", string(verdict.Winner)).
		Bool("stalemate", verdict.Stalemate).
		Str("reason", verdict.Reason.String()).
		Int("survivors", len(b.outcome.Survivors)).
		Msg("Battle concluded")
	return nil
}

func (tp *TickProcessor) publishTickEnded(tickStart time.Time) {
	b := tp.battle
	living := len(b.soldiers.Units()) - b.soldiers.DeadCount()
	b.eventBus.Publish(events.NewTickEndedEvent(
		b.id,
		b.tick,
		living,
		b.soldiers.DeadCount(),
		b.projectiles.Len(),
		time.Since(tickStart),
	))
}
