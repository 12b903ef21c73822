package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec2Ops(t *testing.T) {
	a := V(3, 4)
	assert.Equal(t, 5.0, a.Len())
	assert.Equal(t, V(4, 6), a.Add(V(1, 2)))
	assert.Equal(t, V(2, 2), a.Sub(V(1, 2)))
	assert.InDelta(t, 1.0, a.Normalize().Len(), 1e-9)
	assert.Equal(t, Vec2{}, Vec2{}.Normalize())
	assert.InDelta(t, 5.0, V(0, 0).Dist(a), 1e-9)

	r := V(1, 0).Rotate(math.Pi / 2)
	assert.InDelta(t, 0.0, r.X, 1e-9)
	assert.InDelta(t, 1.0, r.Y, 1e-9)

	assert.InDelta(t, 2.0, V(10, 0).ClampLen(2).Len(), 1e-9)
	assert.Equal(t, V(1, 0), V(1, 0).ClampLen(2))
}

func TestAngleBetween(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"same", 0, 0, 0},
		{"quarter", 0, math.Pi / 2, math.Pi / 2},
		{"opposite", 0, math.Pi, math.Pi},
		{"wraps", 0.1, 2*math.Pi - 0.1, 0.2},
		{"negative", -math.Pi / 2, math.Pi / 2, math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, AngleBetween(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCell(t *testing.T) {
	c := C(3, 2)
	assert.Equal(t, 13, c.ToIndex(5))
	assert.Equal(t, c, CellFromIndex(13, 5))
	assert.True(t, c.IsValid(5, 5))
	assert.False(t, C(-1, 0).IsValid(5, 5))
	assert.Equal(t, 3, c.Chebyshev(C(0, 0)))
	assert.Equal(t, "(3,2)", c.String())
}

func TestTerrainGrid(t *testing.T) {
	g := NewTerrainGrid(4, 3, 1)
	require.NoError(t, g.Validate())

	rev := g.Revision()
	g.Set(C(1, 1), TerrainCell{Cost: Impassable})
	assert.Equal(t, rev+1, g.Revision())
	assert.False(t, g.Passable(C(1, 1)))
	assert.True(t, g.Passable(C(0, 0)))
	assert.False(t, g.Passable(C(4, 0)), "out of bounds is impassable")
	assert.True(t, math.IsInf(g.At(C(9, 9)).Cost, 1))

	assert.Equal(t, C(2, 1), g.CellAt(V(2.5, 1.99)))
	assert.Equal(t, V(2.5, 1.5), g.Center(C(2, 1)))
	assert.True(t, g.Contains(V(3.9, 2.9)))
	assert.False(t, g.Contains(V(4, 0)))

	t.Run("nearest passable", func(t *testing.T) {
		c, ok := g.NearestPassable(C(1, 1), 1)
		require.True(t, ok)
		assert.Equal(t, 1.0, c.Euclid(C(1, 1)))
		assert.Equal(t, C(1, 0), c, "row-major scan picks the first orthogonal neighbour")

		walled := NewTerrainGrid(3, 3, 1)
		for i := 0; i < 9; i++ {
			walled.Set(CellFromIndex(i, 3), TerrainCell{Cost: Impassable})
		}
		_, ok = walled.NearestPassable(C(1, 1), 2)
		assert.False(t, ok)
	})

	t.Run("validate rejects bad cells", func(t *testing.T) {
		bad := NewTerrainGrid(2, 2, 1)
		bad.Set(C(0, 0), TerrainCell{Cost: 0})
		assert.Error(t, bad.Validate())

		bad = NewTerrainGrid(2, 2, 1)
		bad.Set(C(0, 0), TerrainCell{Cost: 1, Cover: 2})
		assert.Error(t, bad.Validate())

		assert.Error(t, (&TerrainGrid{}).Validate())
	})

	assert.Equal(t, 1.0, g.MinCost())
}

func TestUnitTable(t *testing.T) {
	table := DefaultUnitTable()
	for _, ut := range table.Types() {
		assert.NoError(t, table[ut].Validate(), ut.String())
	}

	ut, stats, err := table.Lookup("Archers")
	require.NoError(t, err)
	assert.Equal(t, UnitArchers, ut)
	assert.True(t, stats.Ranged)

	_, _, err = table.Lookup("dragons")
	assert.ErrorIs(t, err, ErrUnknownUnitType)

	delete(table, UnitCatapult)
	_, _, err = table.Lookup("catapult")
	assert.ErrorIs(t, err, ErrUnknownUnitType)
}

func TestErrorWrapping(t *testing.T) {
	t.Run("configuration", func(t *testing.T) {
		err := WrapConfigError("armies[0].faction", ErrUnknownFaction)
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.True(t, errors.Is(err, ErrUnknownFaction))
		assert.Equal(t, "configuration: armies[0].faction: unknown faction", err.Error())
		assert.Nil(t, WrapConfigError("x", nil))
	})

	t.Run("order", func(t *testing.T) {
		err := WrapOrderError("formation 3", OrderAttack, ErrArmyRouted)
		assert.True(t, errors.Is(err, ErrInvalidOrder))
		assert.True(t, errors.Is(err, ErrArmyRouted))
		assert.Equal(t, "formation 3: Attack order: invalid order: army is routed", err.Error())

		err = WrapOrderError("unit 1", OrderMoveTo, ErrInvalidOrder)
		assert.Equal(t, "unit 1: MoveTo order: invalid order", err.Error())
	})

	t.Run("tick", func(t *testing.T) {
		err := WrapTickError(12, "collision", ErrNoPath)
		assert.Equal(t, "tick 12: collision: no path", err.Error())
		assert.ErrorIs(t, err, ErrNoPath)
	})
}

func TestUnitLifecycleHelpers(t *testing.T) {
	stats := DefaultUnitTable()[UnitInfantry]
	u := NewUnit(1, "red", UnitInfantry, stats, V(1, 1), 0)
	assert.True(t, u.Alive())
	assert.True(t, u.CanFight())
	assert.Equal(t, 1.0, u.HealthFraction())
	assert.Equal(t, stats.Attack, u.Strength())

	u.Health = stats.MaxHealth / 2
	assert.InDelta(t, stats.Attack/2, u.Strength(), 1e-9)

	u.State = StateRouting
	assert.True(t, u.Alive())
	assert.False(t, u.CanFight())

	u.State = StateDead
	assert.Equal(t, 0.0, u.Strength())

	assert.True(t, OrderAttack.IsOffensive())
	assert.False(t, OrderRetreat.IsOffensive())
}
