package projectile

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

type alwaysHit struct{}

func (alwaysHit) Float64() float64 { return 0 }

type alwaysMiss struct{}

func (alwaysMiss) Float64() float64 { return 0.999 }

type target struct {
	c       combat.Combatant
	faction core.Faction
	damage  float64
}

type fakeWorld struct {
	grid  *core.TerrainGrid
	col   *collision.System
	units map[core.UnitID]*target
}

func newWorld(w, h int) *fakeWorld {
	return &fakeWorld{
		grid:  core.NewTerrainGrid(w, h, 1),
		col:   collision.New(collision.DefaultConfig(), zerolog.Nop()),
		units: make(map[core.UnitID]*target),
	}
}

func (w *fakeWorld) add(id int, faction string, x, y float64) {
	uid := core.UnitID(id)
	w.units[uid] = &target{
		c:       combat.Combatant{ID: uid, Attack: 10, Accuracy: 0.7, Health: 100, MaxHealth: 100, Position: core.V(x, y)},
		faction: core.Faction(faction),
	}
	var bodies []collision.Body
	for _, t := range w.units {
		bodies = append(bodies, collision.Body{ID: t.c.ID, Faction: t.faction, Center: t.c.Position, Radius: 0.4})
	}
	w.col.Rebuild(bodies)
}

func (w *fakeWorld) Terrain() *core.TerrainGrid { return w.grid }
func (w *fakeWorld) SweptHits(from, to core.Vec2, r float64) []collision.SweptHit {
	return w.col.SweptHits(from, to, r)
}
func (w *fakeWorld) QueryRadius(c core.Vec2, r float64) []collision.Neighbor {
	return w.col.QueryRadius(c, r)
}
func (w *fakeWorld) Combatant(id core.UnitID) (combat.Combatant, core.Faction, bool) {
	t, ok := w.units[id]
	if !ok || t.c.Health <= 0 {
		return combat.Combatant{}, "", false
	}
	return t.c, t.faction, true
}
func (w *fakeWorld) ApplyDamage(id, _ core.UnitID, damage, _ float64) bool {
	t := w.units[id]
	t.damage += damage
	t.c.Health = math.Max(t.c.Health-damage, 0)
	return t.c.Health == 0
}

func newSystem() *System {
	return New(DefaultConfig(), combat.NewCalculator(combat.DefaultTuning()), zerolog.Nop())
}

func payload(splash float64) Payload {
	return Payload{
		Source:        99,
		SourceFaction: "red",
		Attacker:      combat.Combatant{ID: 99, Attack: 20, Accuracy: 1},
		SplashRadius:  splash,
	}
}

func TestProjectileHitsAlongSweptPath(t *testing.T) {
	w := newWorld(30, 5)
	w.add(1, "blue", 5, 2.5)

	s := newSystem()
	s.Spawn(w.grid, core.V(1, 2.5), core.V(20, 2.5), 100, payload(0))

	// One tick covers 10 units: the target sits inside the step, not at its end.
	impacts := s.Advance(0.1, w, alwaysHit{})
	require.Len(t, impacts, 1)
	assert.Equal(t, ImpactUnit, impacts[0].Kind)
	assert.Equal(t, core.UnitID(1), impacts[0].Target)
	assert.True(t, impacts[0].Hit)
	assert.Greater(t, w.units[1].damage, 0.0)
	assert.Equal(t, 0, s.Len())
}

func TestProjectileMissStillConsumed(t *testing.T) {
	w := newWorld(30, 5)
	w.add(1, "blue", 5, 2.5)
	s := newSystem()
	s.Spawn(w.grid, core.V(1, 2.5), core.V(20, 2.5), 100, payload(0))

	impacts := s.Advance(0.1, w, alwaysMiss{})
	require.Len(t, impacts, 1)
	assert.False(t, impacts[0].Hit)
	assert.Zero(t, w.units[1].damage)
	assert.Equal(t, 0, s.Len())
}

func TestProjectilePassesFriendlies(t *testing.T) {
	w := newWorld(30, 5)
	w.add(1, "red", 3, 2.5)
	w.add(2, "blue", 6, 2.5)
	s := newSystem()
	s.Spawn(w.grid, core.V(1, 2.5), core.V(20, 2.5), 100, payload(0))

	impacts := s.Advance(0.1, w, alwaysHit{})
	require.Len(t, impacts, 1)
	assert.Equal(t, core.UnitID(2), impacts[0].Target)
	assert.Zero(t, w.units[1].damage)
}

func TestProjectileBlockedByTerrain(t *testing.T) {
	w := newWorld(30, 5)
	w.grid.Set(core.C(4, 2), core.TerrainCell{Cost: core.Impassable, BlocksProjectiles: true})
	w.add(1, "blue", 8, 2.5)
	s := newSystem()
	s.Spawn(w.grid, core.V(1, 2.5), core.V(20, 2.5), 100, payload(0))

	impacts := s.Advance(0.1, w, alwaysHit{})
	require.Len(t, impacts, 1)
	assert.Equal(t, ImpactTerrain, impacts[0].Kind)
	assert.InDelta(t, 4, impacts[0].Point.X, 0.3)
	assert.Zero(t, w.units[1].damage)
}

func TestProjectileLaunchCellDoesNotBlock(t *testing.T) {
	w := newWorld(30, 5)
	w.grid.Set(core.C(1, 2), core.TerrainCell{Cost: 2, BlocksProjectiles: true})
	w.add(1, "blue", 5, 2.5)
	s := newSystem()
	s.Spawn(w.grid, core.V(1.5, 2.5), core.V(5, 2.5), 100, payload(0))

	impacts := s.Advance(0.1, w, alwaysHit{})
	require.Len(t, impacts, 1)
	assert.Equal(t, ImpactUnit, impacts[0].Kind)
}

func TestProjectileTTLStrictlyDecreasesAndExpires(t *testing.T) {
	w := newWorld(100, 5)
	cfg := DefaultConfig()
	cfg.TTL = 0.25
	s := New(cfg, combat.NewCalculator(combat.DefaultTuning()), zerolog.Nop())
	p := s.Spawn(w.grid, core.V(1, 2.5), core.V(90, 2.5), 1, payload(0))

	last := p.TTL
	for i := 0; i < 2; i++ {
		s.Advance(0.1, w, alwaysHit{})
		require.Equal(t, 1, s.Len())
		assert.Less(t, p.TTL, last)
		last = p.TTL
	}
	s.Advance(0.1, w, alwaysHit{})
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.Expired())
}

func TestProjectileLeavesBounds(t *testing.T) {
	w := newWorld(10, 5)
	s := newSystem()
	s.Spawn(w.grid, core.V(8, 2.5), core.V(30, 2.5), 100, payload(0))
	impacts := s.Advance(0.1, w, alwaysHit{})
	assert.Empty(t, impacts)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.Expired())
}

func TestProjectileLandsAtAimPoint(t *testing.T) {
	w := newWorld(30, 5)
	cfg := DefaultConfig()
	cfg.Overshoot = 0
	s := New(cfg, combat.NewCalculator(combat.DefaultTuning()), zerolog.Nop())
	s.Spawn(w.grid, core.V(1, 2.5), core.V(4, 2.5), 10, payload(0))

	assert.Empty(t, s.Advance(0.1, w, alwaysHit{}))
	assert.Equal(t, 1, s.Len())
	impacts := s.Advance(0.25, w, alwaysHit{})
	require.Len(t, impacts, 1)
	assert.Equal(t, ImpactLanded, impacts[0].Kind)
	assert.InDelta(t, 4, impacts[0].Point.X, 1e-9)
}

func TestSplashFalloffOrdersDamageByDistance(t *testing.T) {
	w := newWorld(30, 10)
	w.add(1, "blue", 10.6, 5)
	w.add(2, "blue", 8.8, 5)
	w.add(3, "blue", 10, 3.9)

	cfg := DefaultConfig()
	cfg.Overshoot = 0
	s := New(cfg, combat.NewCalculator(combat.DefaultTuning()), zerolog.Nop())
	// Lands at (10,5) without touching a body: 1 is at d=0.6, 3 at d=1.1, 2 at d=1.2.
	s.Spawn(w.grid, core.V(10, 9), core.V(10, 5), 100, payload(2))

	impacts := s.Advance(0.1, w, alwaysHit{})
	require.Len(t, impacts, 1)
	require.Len(t, impacts[0].Splash, 3)

	d1, d2, d3 := w.units[1].damage, w.units[2].damage, w.units[3].damage
	assert.Greater(t, d1, d3)
	assert.Greater(t, d3, d2)
	assert.InDelta(t, combat.SplashDamage(20, 0.6, 2), d1, 1e-9)
}

func TestStruckUnitTakesSplashOnMiss(t *testing.T) {
	w := newWorld(30, 5)
	w.add(1, "blue", 5, 2.5)
	w.add(2, "blue", 5, 3.4)

	s := newSystem()
	s.Spawn(w.grid, core.V(1, 2.5), core.V(20, 2.5), 100, payload(2))

	impacts := s.Advance(0.1, w, alwaysMiss{})
	require.Len(t, impacts, 1)
	imp := impacts[0]
	assert.Equal(t, core.UnitID(1), imp.Target)
	assert.False(t, imp.Hit)

	d1 := imp.Point.Dist(core.V(5, 2.5))
	d2 := imp.Point.Dist(core.V(5, 3.4))
	require.Less(t, d1, d2)
	assert.InDelta(t, combat.SplashDamage(20, d1, 2), w.units[1].damage, 1e-9)
	assert.InDelta(t, combat.SplashDamage(20, d2, 2), w.units[2].damage, 1e-9)
	assert.Greater(t, w.units[1].damage, w.units[2].damage)
	assert.Equal(t, w.units[1].damage, imp.Damage)
}

func TestSplashSkipsFriendlies(t *testing.T) {
	w := newWorld(30, 10)
	w.add(1, "red", 10.5, 5)
	cfg := DefaultConfig()
	cfg.Overshoot = 0
	s := New(cfg, combat.NewCalculator(combat.DefaultTuning()), zerolog.Nop())
	s.Spawn(w.grid, core.V(10, 9), core.V(10, 5), 100, payload(2))

	impacts := s.Advance(0.1, w, alwaysHit{})
	require.Len(t, impacts, 1)
	assert.Empty(t, impacts[0].Splash)
	assert.Zero(t, w.units[1].damage)
}
