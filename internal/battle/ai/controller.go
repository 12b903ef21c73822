// Package ai drives one side of a battle: it looks at a View of the field on
// a coarse interval and returns formation orders.
package ai

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Tuning holds the decision thresholds.
type Tuning struct {
	DecisionInterval int     // ticks between decisions
	SafetyMargin     float64 // own strength must exceed enemy strength × margin to attack
	EngageRange      float64 // centroid distance at which an enemy formation counts as adjacent
	OutnumberedRatio float64 // own/enemy strength below which the side falls back
	ReissueDistance  float64 // a standing order is not repeated unless its target moved this far
}

func DefaultTuning() Tuning {
	return Tuning{
		DecisionInterval: 10,
		SafetyMargin:     1.2,
		EngageRange:      12,
		OutnumberedRatio: 0.4,
		ReissueDistance:  2,
	}
}

// FormationView is what the AI knows about one formation.
type FormationView struct {
	ID       core.FormationID
	Faction  core.Faction
	Centroid core.Vec2
	Strength float64
	Health   float64 // summed remaining health of living members
	Living   int
}

// View is the AI's picture of the battle on a decision tick. Fog of war is
// not modelled, so every enemy formation is visible.
type View struct {
	Self          core.Faction
	Routed        bool
	OwnStrength   float64
	EnemyStrength float64
	Own           []FormationView
	Enemies       []FormationView
	Fallback      core.Vec2
}

// Command is one order for one of the side's formations.
type Command struct {
	Formation core.FormationID
	Order     core.Order
}

// Controller decides for a single faction.
type Controller struct {
	faction core.Faction
	tuning  Tuning
	logger  zerolog.Logger
	issued  map[core.FormationID]core.Order
}

func NewController(faction core.Faction, tuning Tuning, logger zerolog.Logger) *Controller {
	if tuning.DecisionInterval < 1 {
		tuning.DecisionInterval = 1
	}
	return &Controller{
		faction: faction,
		tuning:  tuning,
		logger:  logger.With().Str("component", "AIController").Str("faction", string(faction)).Logger(),
		issued:  make(map[core.FormationID]core.Order),
	}
}

func (c *Controller) Faction() core.Faction { return c.faction }

// Due reports whether tick is a decision tick.
func (c *Controller) Due(tick int) bool {
	return tick%c.tuning.DecisionInterval == 0
}

// Decide applies the policy, in priority order: a routed side gives no
// orders; a heavily outnumbered side retreats to its fallback point; a side
// with an enemy formation in range and a safe strength margin attacks the
// weakest such formation; otherwise every formation advances on the nearest
// enemy formation. Orders equal to the last one given are not repeated.
func (c *Controller) Decide(tick int, view View) []Command {
	if view.Routed || len(view.Own) == 0 {
		return nil
	}
	if len(view.Enemies) == 0 {
		return nil
	}

	var cmds []Command
	switch {
	case view.EnemyStrength > 0 && view.OwnStrength < view.EnemyStrength*c.tuning.OutnumberedRatio:
		for _, f := range view.Own {
			cmds = c.give(cmds, f.ID, core.Order{
				Kind:   core.OrderRetreat,
				Target: view.Fallback,
				Facing: view.Fallback.Sub(f.Centroid).Angle() + math.Pi,
			})
		}
		c.logger.Debug().
			Int("tick", tick).
			Float64("own_strength", view.OwnStrength).
			Float64("enemy_strength", view.EnemyStrength).
			Msg("Outnumbered, falling back")

	case view.OwnStrength > view.EnemyStrength*c.tuning.SafetyMargin:
		target, ok := c.focusTarget(view)
		if !ok {
			return c.advance(view)
		}
		for _, f := range view.Own {
			cmds = c.give(cmds, f.ID, core.Order{
				Kind:            core.OrderAttack,
				Target:          target.Centroid,
				Facing:          target.Centroid.Sub(f.Centroid).Angle(),
				TargetFormation: target.ID,
			})
		}
		c.logger.Debug().
			Int("tick", tick).
			Int("target_formation", int(target.ID)).
			Float64("target_strength", target.Strength).
			Msg("Focusing attack")

	default:
		return c.advance(view)
	}
	return cmds
}

// advance moves every formation toward the nearest enemy formation.
func (c *Controller) advance(view View) []Command {
	var cmds []Command
	for _, f := range view.Own {
		target := c.nearest(f, view.Enemies)
		cmds = c.give(cmds, f.ID, core.Order{
			Kind:   core.OrderMoveTo,
			Target: target.Centroid,
			Facing: target.Centroid.Sub(f.Centroid).Angle(),
		})
	}
	return cmds
}

// give appends an order unless the formation already carries an equivalent one.
func (c *Controller) give(cmds []Command, id core.FormationID, order core.Order) []Command {
	if prev, ok := c.issued[id]; ok && prev.Kind == order.Kind &&
		prev.TargetFormation == order.TargetFormation &&
		prev.Target.Dist(order.Target) < c.tuning.ReissueDistance {
		return cmds
	}
	c.issued[id] = order
	return append(cmds, Command{Formation: id, Order: order})
}

// Forget drops the memory of the last order given to a formation, so the
// next decision issues a fresh one. Used when an order was rejected.
func (c *Controller) Forget(id core.FormationID) {
	delete(c.issued, id)
}

// focusTarget picks the weakest enemy formation within EngageRange of any
// own formation. Ties go to the nearer (closest to any own formation), then
// the lower remaining health, then the lower id.
func (c *Controller) focusTarget(view View) (FormationView, bool) {
	var (
		best     FormationView
		bestDist float64
		found    bool
	)
	for _, e := range view.Enemies {
		d := math.Inf(1)
		for _, f := range view.Own {
			d = math.Min(d, f.Centroid.Dist(e.Centroid))
		}
		if d > c.tuning.EngageRange {
			continue
		}
		if !found || weaker(e, d, best, bestDist) {
			best, bestDist, found = e, d, true
		}
	}
	return best, found
}

func weaker(a FormationView, da float64, b FormationView, db float64) bool {
	if a.Strength != b.Strength {
		return a.Strength < b.Strength
	}
	if da != db {
		return da < db
	}
	if a.Health != b.Health {
		return a.Health < b.Health
	}
	return a.ID < b.ID
}

// nearest picks the closest enemy formation, ties by lower health then id.
func (c *Controller) nearest(f FormationView, enemies []FormationView) FormationView {
	best := enemies[0]
	bestDist := f.Centroid.Dist(best.Centroid)
	for _, e := range enemies[1:] {
		d := f.Centroid.Dist(e.Centroid)
		if d < bestDist || (d == bestDist && (e.Health < best.Health || (e.Health == best.Health && e.ID < best.ID))) {
			best, bestDist = e, d
		}
	}
	return best
}
