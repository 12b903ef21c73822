package battle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
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

// placementRadius is how far, in cells, a unit whose slot falls on
// impassable ground may be moved to find footing.
const placementRadius = 3

// Initializer handles the Setup phase of a battle
type Initializer struct {
	setup    Setup
	settings Settings
	logger   zerolog.Logger
	base     zerolog.Logger
}

// NewInitializer creates a new battle initializer
func NewInitializer(setup Setup, settings Settings, logger zerolog.Logger) *Initializer {
	return &Initializer{
		setup:    setup,
		settings: settings,
		base:     logger,
		logger:   logger.With().Str("component", "Battle").Logger(),
	}
}

// Initialize validates the configuration, deploys the armies and moves the
// battle to Running. Nothing is simulated before it returns.
func (bi *Initializer) Initialize(ctx context.Context) (*Battle, error) {
	// Check context early
	select {
	case <-ctx.Done():
		bi.logger.Error().Err(ctx.Err()).Msg("Battle creation cancelled or timed out during setup")
		return nil, ctx.Err()
	default:
	}

	// Setup configuration defaults
	bi.setupDefaults()

	if err := bi.settings.Validate(); err != nil {
		bi.logger.Error().Err(err).Msg("Invalid battle settings")
		return nil, err
	}
	if err := bi.setup.Validate(); err != nil {
		bi.logger.Error().Err(err).Msg("Invalid battle setup")
		return nil, err
	}

	// Create battle components
	b := bi.createBattle()

	// Place armies in their starting formations
	if err := bi.deployArmies(b); err != nil {
		bi.logger.Error().Err(err).Msg("Army deployment failed")
		return nil, err
	}

	bi.createControllers(b)

	// Initialize state machine
	if err := bi.initializeStateMachine(b); err != nil {
		return nil, fmt.Errorf("state machine initialization failed: %w", err)
	}

	b.snapshots.Push(b.Snapshot())

	factions := make([]string, 0, len(bi.setup.Armies))
	for _, f := range b.armies.Factions() {
		factions = append(factions, string(f))
	}
	b.eventBus.Publish(events.NewBattleStartedEvent(
		b.id,
		factions,
		bi.setup.TotalUnits(),
		b.grid.W,
		b.grid.H,
		b.seed,
	))

	b.logger.Info().
		Int("width", b.grid.W).
		Int("height", b.grid.H).
		Strs("factions", factions).
		Int("units", bi.setup.TotalUnits()).
		Int64("seed", b.seed).
		Int("ai_controllers", len(b.controllers)).
		Msg("Battle created successfully")

	return b, nil
}

// setupDefaults sets up default values for missing configuration
func (bi *Initializer) setupDefaults() {
	if bi.setup.ID == "" {
		bi.setup.ID = uuid.NewString()
	}
	if bi.setup.Seed == 0 {
		bi.setup.Seed = time.Now().UnixNano()
		bi.logger.Debug().Int64("seed", bi.setup.Seed).Msg("No seed provided, using clock")
	}
	if bi.setup.Units == nil {
		bi.setup.Units = core.DefaultUnitTable()
	}
	bi.base = bi.base.With().Str("battle_id", bi.setup.ID).Logger()
	bi.logger = bi.logger.With().Str("battle_id", bi.setup.ID).Logger()
}

// createBattle creates the battle with all its components
func (bi *Initializer) createBattle() *Battle {
	s := bi.settings
	grid := bi.setup.Terrain
	base := bi.base

	calc := combat.NewCalculator(s.Combat)
	paths := pathfind.New(grid, s.Pathfinding, base)
	soldiers := soldier.NewManager(s.Soldier, grid, paths, calc, base)
	registry := formation.NewRegistry(s.Formation, base)

	eventBus := events.NewEventBus(base)
	battleContext := states.NewBattleContext(bi.setup.ID, base)

	b := &Battle{
		id:           bi.setup.ID,
		seed:         bi.setup.Seed,
		settings:     s,
		logger:       bi.logger,
		rng:          rand.New(rand.NewSource(bi.setup.Seed)),
		grid:         grid,
		unitTable:    bi.setup.Units,
		paths:        paths,
		collisions:   collision.New(s.Collision, base),
		calc:         calc,
		projectiles:  projectile.New(s.Projectile, calc, base),
		soldiers:     soldiers,
		registry:     registry,
		armies:       army.NewManager(s.Army, soldiers, registry, eventBus, bi.setup.ID, base),
		terminal:     rules.NewTerminalChecker(base, s.MaxTicks),
		eventBus:     eventBus,
		stateMachine: states.NewStateMachine(battleContext, eventBus),
		commands:     NewCommandQueue(),
		snapshots:    NewSnapshotBuffer(s.SnapshotBuffer),
	}
	b.tickProcessor = NewTickProcessor(b)
	return b
}

// deployArmies creates every unit at its formation slot. Unit ids are
// assigned in setup order starting at 1.
func (bi *Initializer) deployArmies(b *Battle) error {
	nextID := core.UnitID(1)
	for i, as := range bi.setup.Armies {
		var ids []core.UnitID
		for j, fs := range as.Formations {
			field := fmt.Sprintf("armies[%d].formations[%d]", i, j)

			type recruit struct {
				ut    core.UnitType
				stats core.UnitStats
			}
			var members []core.UnitID
			var recruits []recruit
			for _, line := range fs.Roster {
				ut, stats, err := b.unitTable.Lookup(line.Type)
				if err != nil {
					return core.WrapConfigError(field, err)
				}
				for k := 0; k < line.Count; k++ {
					members = append(members, nextID)
					recruits = append(recruits, recruit{ut: ut, stats: stats})
					nextID++
				}
			}

			f, err := b.registry.Create(as.Faction, fs.Shape, members, fs.Anchor, fs.Facing)
			if err != nil {
				return core.WrapConfigError(field, err)
			}
			for slot, id := range members {
				target, _ := f.TargetOf(id)
				pos, err := bi.placement(b.grid, target)
				if err != nil {
					return core.WrapConfigError(fmt.Sprintf("%s.slot[%d]", field, slot), err)
				}
				u := core.NewUnit(id, as.Faction, recruits[slot].ut, recruits[slot].stats, pos, fs.Facing)
				u.FormationID, u.Slot = f.ID, slot
				if err := b.soldiers.Add(u); err != nil {
					return err
				}
			}
			ids = append(ids, members...)
		}
		if _, err := b.armies.AddArmy(as.Faction, as.Fallback, ids); err != nil {
			return core.WrapConfigError(fmt.Sprintf("armies[%d]", i), err)
		}
	}
	return nil
}

// placement moves a slot position that falls off the map or on impassable
// ground to the nearest passable cell.
func (bi *Initializer) placement(grid *core.TerrainGrid, p core.Vec2) (core.Vec2, error) {
	if grid.PassableAt(p) {
		return p, nil
	}
	cell := grid.CellAt(grid.ClampPoint(p))
	c, ok := grid.NearestPassable(cell, placementRadius)
	if !ok {
		return core.Vec2{}, fmt.Errorf("no passable ground within %d cells of %s", placementRadius, p)
	}
	return grid.Center(c), nil
}

// createControllers attaches an AI to every AI-controlled side
func (bi *Initializer) createControllers(b *Battle) {
	if !bi.settings.AIEnabled {
		bi.logger.Debug().Msg("AI disabled, every side takes orders from the command queue")
		return
	}
	for _, as := range bi.setup.Armies {
		if as.AI {
			b.controllers = append(b.controllers, ai.NewController(as.Faction, bi.settings.AI, bi.base))
		}
	}
}

// initializeStateMachine moves the battle from Setup to Running
func (bi *Initializer) initializeStateMachine(b *Battle) error {
	battleContext := b.stateMachine.GetContext()
	battleContext.Factions = len(bi.setup.Armies)

	if err := b.stateMachine.TransitionTo(states.PhaseRunning, "armies deployed"); err != nil {
		bi.logger.Error().Err(err).Msg("Failed to transition to Running state")
		return err
	}
	return nil
}
