package formation

import (
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// PositionFunc looks up a living unit's position.
type PositionFunc func(core.UnitID) (core.Vec2, bool)

// CohesionTracker flags units that stay outside their formation's cohesion
// radius for longer than a grace period.
type CohesionTracker struct {
	graceTicks int
	outside    map[core.UnitID]int
	straggling map[core.UnitID]bool
}

func NewCohesionTracker(graceTicks int) *CohesionTracker {
	return &CohesionTracker{
		graceTicks: graceTicks,
		outside:    make(map[core.UnitID]int),
		straggling: make(map[core.UnitID]bool),
	}
}

// Update checks every member of f. It returns units that became stragglers
// this call and units that rejoined.
func (c *CohesionTracker) Update(f *Formation, position PositionFunc) (flagged, rejoined []core.UnitID) {
	for slot, id := range f.members {
		pos, ok := position(id)
		if !ok {
			continue
		}
		target, _ := f.SlotTarget(slot)
		if pos.Dist(target) <= f.CohesionRadius {
			delete(c.outside, id)
			if c.straggling[id] {
				delete(c.straggling, id)
				rejoined = append(rejoined, id)
			}
			continue
		}
		c.outside[id]++
		if c.outside[id] > c.graceTicks && !c.straggling[id] {
			c.straggling[id] = true
			flagged = append(flagged, id)
		}
	}
	return flagged, rejoined
}

func (c *CohesionTracker) IsStraggling(id core.UnitID) bool { return c.straggling[id] }

// Forget drops tracking for a unit that left its formation or died.
func (c *CohesionTracker) Forget(id core.UnitID) {
	delete(c.outside, id)
	delete(c.straggling, id)
}
