package soldier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/pathfind"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/testutil"
)

func newManager(t *testing.T, grid *core.TerrainGrid, units ...*core.Unit) *Manager {
	t.Helper()
	logger := testutil.NopLogger()
	m := NewManager(
		DefaultConfig(),
		grid,
		pathfind.New(grid, pathfind.DefaultConfig(), logger),
		combat.NewCalculator(combat.DefaultTuning()),
		logger,
	)
	for _, u := range units {
		require.NoError(t, m.Add(u))
	}
	return m
}

// contacts runs the collision stage the way the battle pipeline does.
func contacts(m *Manager) (*collision.System, collision.Resolution) {
	col := collision.New(collision.DefaultConfig(), testutil.NopLogger())
	col.Rebuild(m.Bodies())
	return col, col.Resolve(col.OverlappingPairs())
}

func TestAddRejectsDuplicateAndKeepsIDOrder(t *testing.T) {
	m := newManager(t, testutil.OpenTerrain(10, 10),
		testutil.NewTestUnit(3, "red", core.UnitInfantry, core.V(1, 1), 0),
		testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(2, 1), 0),
	)
	assert.Error(t, m.Add(testutil.NewTestUnit(3, "blue", core.UnitInfantry, core.V(5, 5), 0)))

	require.NoError(t, m.Add(testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(5, 5), 0)))
	var ids []core.UnitID
	for _, u := range m.Units() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []core.UnitID{1, 2, 3}, ids)
}

func TestMoveOrderFollowsRouteAndArrives(t *testing.T) {
	u := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(1.5, 1.5), 0)
	m := newManager(t, testutil.OpenTerrain(10, 10), u)

	require.NoError(t, m.ApplyOrder(1, core.Order{Kind: core.OrderMoveTo, Target: core.V(4.5, 1.5), Facing: 1.0}))

	for tick := 1; tick <= 40 && u.HasGoal; tick++ {
		m.RefreshRoutes(tick)
		if tick == 1 {
			assert.Equal(t, core.StateMoving, u.State)
			assert.True(t, u.Route.Planned)
		}
		m.Advance(0.1)
	}

	assert.Equal(t, core.StateIdle, u.State)
	assert.InDelta(t, 4.5, u.Position.X, 1e-9)
	assert.InDelta(t, 1.5, u.Position.Y, 1e-9)
	assert.InDelta(t, 1.0, u.Heading, 1e-9)
}

func TestEnclosedGoalKeepsUnitIdle(t *testing.T) {
	grid := testutil.EnclosedCell(10, 10, core.C(7, 7))
	start := core.V(1.5, 1.5)
	u := testutil.NewTestUnit(1, "red", core.UnitInfantry, start, 0)
	m := newManager(t, grid, u)

	require.NoError(t, m.ApplyOrder(1, core.Order{Kind: core.OrderMoveTo, Target: grid.Center(core.C(7, 7))}))
	m.RefreshRoutes(1)
	m.Advance(0.1)

	assert.Equal(t, core.StateIdle, u.State)
	assert.Equal(t, start, u.Position)
	assert.False(t, u.Route.Planned)
	assert.Equal(t, 1+DefaultConfig().NoPathBackoffTicks, u.RetryAt)

	// No retry inside the backoff window.
	m.RefreshRoutes(2)
	assert.Equal(t, core.StateIdle, u.State)
}

func TestHeavyTerrainSlowsMovement(t *testing.T) {
	mud := testutil.OpenTerrain(10, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 10; x++ {
			mud.Set(core.C(x, y), core.TerrainCell{Cost: 3})
		}
	}
	fast := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(1.5, 1.5), 0)
	slow := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(1.5, 1.5), 0)
	open := newManager(t, testutil.OpenTerrain(10, 3), fast)
	muddy := newManager(t, mud, slow)

	for _, m := range []*Manager{open, muddy} {
		require.NoError(t, m.ApplyOrder(1, core.Order{Kind: core.OrderMoveTo, Target: core.V(8.5, 1.5)}))
		m.RefreshRoutes(1)
		m.Advance(0.2)
	}

	assert.InDelta(t, 0.3, fast.Position.X-1.5, 1e-9)
	assert.InDelta(t, 0.1, slow.Position.X-1.5, 1e-9)
}

func TestApplyDamageClampsHealthAndDeathIsTerminal(t *testing.T) {
	u := testutil.NewTestUnit(1, "blue", core.UnitInfantry, core.V(5, 5), 0)
	ally := testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(6, 5), 0)
	far := testutil.NewTestUnit(3, "blue", core.UnitInfantry, core.V(9.5, 9.5), 0)
	m := newManager(t, testutil.OpenTerrain(10, 10), u, ally, far)
	m.BeginTick(7)

	assert.False(t, m.ApplyDamage(1, 9, 40, -0.1))
	assert.InDelta(t, 60, u.Health, 1e-9)
	assert.InDelta(t, 0.9, u.Morale, 1e-9)

	assert.True(t, m.ApplyDamage(1, 9, 1000, 0))
	assert.Equal(t, 0.0, u.Health)
	assert.Equal(t, core.StateDead, u.State)
	assert.Equal(t, 7, u.DiedAt)
	assert.Equal(t, 1, m.DeadCount())

	// Witnessing the death costs nearby allies morale only.
	assert.Less(t, ally.Morale, 1.0)
	assert.Equal(t, 1.0, far.Morale)

	assert.False(t, m.ApplyDamage(1, 9, 50, 0))
	assert.Equal(t, 0.0, u.Health)
	assert.Equal(t, 1, m.DeadCount())

	deaths := m.DrainDeaths()
	require.Len(t, deaths, 1)
	assert.Equal(t, Death{Unit: 1, Faction: "blue", Killer: 9, Tick: 7, Position: core.V(5, 5)}, deaths[0])
	assert.Empty(t, m.DrainDeaths())

	assert.ErrorIs(t, m.ApplyOrder(1, core.Order{Kind: core.OrderMoveTo, Target: core.V(1, 1)}), core.ErrUnitDead)
}

func TestRandomDamageNeverNegativeAndDeadCountMonotonic(t *testing.T) {
	var units []*core.Unit
	for i := 1; i <= 12; i++ {
		units = append(units, testutil.NewTestUnit(i, "red", core.UnitInfantry, core.V(float64(i)*0.8, 3), 0))
	}
	m := newManager(t, testutil.OpenTerrain(12, 6), units...)
	rng := testutil.NewTestRNG(42)

	last := 0
	for i := 0; i < 500; i++ {
		id := core.UnitID(rng.Intn(12) + 1)
		m.ApplyDamage(id, 99, rng.Float64()*60, -rng.Float64()*0.2)
		for _, u := range m.Units() {
			require.GreaterOrEqual(t, u.Health, 0.0)
			require.GreaterOrEqual(t, u.Morale, 0.0)
		}
		require.GreaterOrEqual(t, m.DeadCount(), last)
		last = m.DeadCount()
	}
	assert.Equal(t, 12, m.DeadCount())
}

func TestMeleeContactEngagesAndStrikes(t *testing.T) {
	red := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(5.5, 5.5), 0)
	blue := testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(6.5, 5.5), 3.14159)
	m := newManager(t, testutil.OpenTerrain(12, 12), red, blue)

	col, res := contacts(m)
	require.Len(t, res.Engagements, 1)
	m.AcquireTargets(res.Engagements, col)

	assert.Equal(t, core.StateEngaging, red.State)
	assert.Equal(t, core.StateEngaging, blue.State)
	assert.Equal(t, core.UnitID(2), red.EngagedWith)
	assert.Equal(t, core.UnitID(1), blue.EngagedWith)

	attacks := m.ResolveAttacks(0.1, testutil.NewFixedRNG(0), nil)
	require.Len(t, attacks, 2)
	assert.Equal(t, core.UnitID(1), attacks[0].Attacker)
	assert.True(t, attacks[0].Result.IsHit)
	assert.Less(t, blue.Health, 100.0)
	assert.Less(t, red.Health, 100.0)

	// Cooldown gates the next blow.
	assert.Empty(t, m.ResolveAttacks(0.1, testutil.NewFixedRNG(0), nil))
}

func TestEngagementDropsWhenTargetDies(t *testing.T) {
	red := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(5.5, 5.5), 0)
	blue := testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(6.5, 5.5), 0)
	m := newManager(t, testutil.OpenTerrain(12, 12), red, blue)
	require.NoError(t, m.ApplyOrder(1, core.Order{Kind: core.OrderAttack, Target: core.V(9.5, 5.5)}))

	col, res := contacts(m)
	m.AcquireTargets(res.Engagements, col)
	require.Equal(t, core.StateEngaging, red.State)

	m.ApplyDamage(2, 1, 500, 0)
	m.ResolveAttacks(0.1, testutil.NewFixedRNG(0), nil)

	assert.Equal(t, core.StateMoving, red.State, "resumes its goal once the opponent is gone")
	assert.Zero(t, red.EngagedWith)
}

func TestRetreatingUnitDoesNotEngage(t *testing.T) {
	red := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(5.5, 5.5), 0)
	blue := testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(6.5, 5.5), 0)
	m := newManager(t, testutil.OpenTerrain(12, 12), red, blue)

	require.NoError(t, m.ApplyOrder(1, core.Order{Kind: core.OrderRetreat, Target: core.V(0.5, 5.5)}))
	m.RefreshRoutes(1)
	require.Equal(t, core.StateMoving, red.State)

	col, res := contacts(m)
	m.AcquireTargets(res.Engagements, col)
	assert.Equal(t, core.StateMoving, red.State)
	assert.Equal(t, core.StateEngaging, blue.State)
}

func TestRangedUnitSpawnsProjectileOutOfContact(t *testing.T) {
	archer := testutil.NewTestUnit(1, "red", core.UnitArchers, core.V(2.5, 5.5), 0)
	target := testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(8.5, 5.5), 0)
	m := newManager(t, testutil.OpenTerrain(12, 12), archer, target)

	col, res := contacts(m)
	assert.Empty(t, res.Engagements)
	m.AcquireTargets(res.Engagements, col)
	require.Equal(t, core.StateEngaging, archer.State)
	assert.Equal(t, core.StateIdle, target.State)

	var shots [][2]core.UnitID
	spawn := func(shooter, tgt *core.Unit) { shots = append(shots, [2]core.UnitID{shooter.ID, tgt.ID}) }

	assert.Empty(t, m.ResolveAttacks(0.1, testutil.NewFixedRNG(0), spawn))
	assert.Equal(t, [][2]core.UnitID{{1, 2}}, shots)
	assert.Equal(t, 100.0, target.Health, "damage waits for the projectile")

	m.ResolveAttacks(0.1, testutil.NewFixedRNG(0), spawn)
	assert.Len(t, shots, 1)
}

func TestMoraleBreakRoutsAndRefusesOrders(t *testing.T) {
	red := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(5.5, 5.5), 0)
	blue := testutil.NewTestUnit(2, "blue", core.UnitInfantry, core.V(7.5, 5.5), 0)
	m := newManager(t, testutil.OpenTerrain(12, 12), red, blue)

	red.Morale = 0.1
	assert.Equal(t, []core.UnitID{1}, m.CheckMorale())
	assert.Equal(t, core.StateRouting, red.State)
	assert.Empty(t, m.CheckMorale(), "already routing")

	assert.ErrorIs(t, m.ApplyOrder(1, core.Order{Kind: core.OrderAttack, Target: blue.Position}), core.ErrInvalidOrder)

	m.Advance(0.1)
	assert.Less(t, red.Position.X, 5.5, "flees away from the enemy")
	assert.Equal(t, core.StateRouting, red.State)
	assert.Equal(t, 100.0, red.Health, "rout alone does not kill")

	col, res := contacts(m)
	m.AcquireTargets(res.Engagements, col)
	assert.Equal(t, core.StateRouting, red.State)
}

func TestForceRoutSkipsDeadAndRouting(t *testing.T) {
	a := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(1.5, 1.5), 0)
	b := testutil.NewTestUnit(2, "red", core.UnitInfantry, core.V(3.5, 1.5), 0)
	c := testutil.NewTestUnit(3, "red", core.UnitInfantry, core.V(5.5, 1.5), 0)
	m := newManager(t, testutil.OpenTerrain(10, 10), a, b, c)
	m.ApplyDamage(3, 0, 1000, 0)
	m.ForceRout([]core.UnitID{2})

	assert.Equal(t, []core.UnitID{1}, m.ForceRout([]core.UnitID{1, 2, 3}))
	assert.Equal(t, core.StateDead, c.State)
}

func TestPushesNeverEnterImpassableCells(t *testing.T) {
	grid := testutil.OpenTerrain(10, 10)
	grid.Set(core.C(4, 5), testutil.Wall)
	u := testutil.NewTestUnit(1, "red", core.UnitInfantry, core.V(5.05, 5.5), 0)
	m := newManager(t, grid, u)

	m.ApplyPushes([]collision.Push{{ID: 1, Delta: core.V(-0.2, 0)}})
	assert.Equal(t, core.V(5.05, 5.5), u.Position)

	m.ApplyPushes([]collision.Push{{ID: 1, Delta: core.V(0.2, 0)}})
	assert.InDelta(t, 5.25, u.Position.X, 1e-9)
}
