package battle

import (
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// world exposes the battle to the projectile system.
type world struct {
	b *Battle
}

func (w world) Terrain() *core.TerrainGrid { return w.b.grid }

func (w world) SweptHits(from, to core.Vec2, radius float64) []collision.SweptHit {
	return w.b.collisions.SweptHits(from, to, radius)
}

func (w world) QueryRadius(center core.Vec2, r float64) []collision.Neighbor {
	return w.b.collisions.QueryRadius(center, r)
}

// Combatant resolves living units only; the dead are never struck.
func (w world) Combatant(id core.UnitID) (combat.Combatant, core.Faction, bool) {
	u, ok := w.b.soldiers.Unit(id)
	if !ok || !u.Alive() {
		return combat.Combatant{}, "", false
	}
	return combat.FromUnit(u), u.Faction, true
}

func (w world) ApplyDamage(target, source core.UnitID, damage, moraleDelta float64) bool {
	return w.b.soldiers.ApplyDamage(target, source, damage, moraleDelta)
}
