package formation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

func ids(n int) []core.UnitID {
	out := make([]core.UnitID, n)
	for i := range out {
		out[i] = core.UnitID(i + 1)
	}
	return out
}

func newRegistry() *Registry {
	return NewRegistry(DefaultConfig(), zerolog.Nop())
}

func TestOffsetsShapes(t *testing.T) {
	t.Run("line alternates around centre", func(t *testing.T) {
		got := Offsets(ShapeLine, 5, 1, 8)
		assert.Equal(t, []Offset{{0, 0}, {0, -1}, {0, 1}, {0, -2}, {0, 2}}, got)
	})

	t.Run("line wraps into ranks", func(t *testing.T) {
		got := Offsets(ShapeLine, 5, 2, 3)
		assert.Equal(t, Offset{Forward: -2, Right: 0}, got[3])
		assert.Equal(t, Offset{Forward: -2, Right: -2}, got[4])
	})

	t.Run("column", func(t *testing.T) {
		got := Offsets(ShapeColumn, 4, 1, 0)
		assert.Equal(t, []Offset{{0, -0.5}, {0, 0.5}, {-1, -0.5}, {-1, 0.5}}, got)
	})

	t.Run("wedge trails behind the point", func(t *testing.T) {
		got := Offsets(ShapeWedge, 5, 1, 0)
		assert.Equal(t, []Offset{{0, 0}, {-1, -1}, {-1, 1}, {-2, -2}, {-2, 2}}, got)
	})

	t.Run("block is square", func(t *testing.T) {
		got := Offsets(ShapeBlock, 9, 1, 0)
		assert.Equal(t, Offset{Forward: -2, Right: 1}, got[8])
	})

	t.Run("leading slot", func(t *testing.T) {
		for _, shape := range []Shape{ShapeLine, ShapeWedge, ShapeBlock} {
			assert.Equal(t, Offset{}, Offsets(shape, 6, 1, 3)[0], "%s", shape)
		}
		assert.Equal(t, Offset{}, Offsets(ShapeColumn, 1, 1, 0)[0], "single file column")
		pair := Offsets(ShapeColumn, 6, 1, 0)
		assert.Equal(t, 0.0, pair[0].Right+pair[1].Right, "two-file column straddles the anchor")
	})

	t.Run("slots are distinct", func(t *testing.T) {
		for _, shape := range []Shape{ShapeLine, ShapeColumn, ShapeWedge, ShapeBlock} {
			seen := map[Offset]bool{}
			for _, o := range Offsets(shape, 17, 1, 4) {
				assert.False(t, seen[o], "%s duplicates %v", shape, o)
				seen[o] = true
			}
		}
	})
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("Wedge")
	require.NoError(t, err)
	assert.Equal(t, ShapeWedge, s)
	_, err = ParseShape("phalanx")
	assert.Error(t, err)
}

func TestSlotTargetRotatesWithFacing(t *testing.T) {
	r := newRegistry()
	f, err := r.Create("red", ShapeColumn, ids(1), core.V(10, 10), 0)
	require.NoError(t, err)
	f.offsets = []Offset{{Forward: 2, Right: 1}}

	got, ok := f.SlotTarget(0)
	require.True(t, ok)
	assert.InDelta(t, 12, got.X, 1e-9)
	assert.InDelta(t, 11, got.Y, 1e-9)

	f.Reform(core.V(10, 10), math.Pi/2)
	got, _ = f.SlotTarget(0)
	assert.InDelta(t, 9, got.X, 1e-9)
	assert.InDelta(t, 12, got.Y, 1e-9)

	_, ok = f.SlotTarget(5)
	assert.False(t, ok)
}

func TestReformIdempotent(t *testing.T) {
	r := newRegistry()
	f, err := r.Create("red", ShapeLine, ids(6), core.V(5, 5), 0.3)
	require.NoError(t, err)

	before := make([]core.Vec2, f.Size())
	for i := range before {
		before[i], _ = f.SlotTarget(i)
	}

	anchor, facing := f.Anchor()
	assert.False(t, f.Reform(anchor, facing))
	for i := range before {
		after, _ := f.SlotTarget(i)
		assert.Equal(t, before[i], after)
	}

	assert.True(t, f.Reform(core.V(6, 5), facing))
}

func TestMarchSteps(t *testing.T) {
	r := newRegistry()
	f, err := r.Create("red", ShapeLine, ids(2), core.V(0, 0), 0)
	require.NoError(t, err)

	f.MarchTo(core.V(3, 0), math.Pi)
	assert.True(t, f.Marching())
	assert.True(t, f.Step(2))
	anchor, facing := f.Anchor()
	assert.Equal(t, core.V(2, 0), anchor)
	assert.Equal(t, 0.0, facing)

	assert.True(t, f.Step(2))
	anchor, facing = f.Anchor()
	assert.Equal(t, core.V(3, 0), anchor)
	assert.Equal(t, math.Pi, facing)
	assert.False(t, f.Marching())
	assert.False(t, f.Step(2))
}

func TestRegistryOneFormationPerUnit(t *testing.T) {
	r := newRegistry()
	a, err := r.Create("red", ShapeLine, []core.UnitID{1, 2, 3}, core.V(0, 0), 0)
	require.NoError(t, err)

	_, err = r.Create("red", ShapeLine, []core.UnitID{3, 4}, core.V(0, 0), 0)
	assert.ErrorIs(t, err, core.ErrUnitAssigned)
	_, err = r.Create("red", ShapeLine, []core.UnitID{5, 5}, core.V(0, 0), 0)
	assert.ErrorIs(t, err, core.ErrUnitAssigned)

	got, ok := r.ForUnit(2)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	r.Release(2)
	_, ok = r.ForUnit(2)
	assert.False(t, ok)
	assert.Equal(t, []core.UnitID{1, 3}, a.Members())
	assert.Equal(t, 1, a.SlotOf(3), "ranks close up")

	b, err := r.Create("red", ShapeLine, []core.UnitID{2}, core.V(0, 0), 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	r.Release(1)
	r.Release(3)
	_, ok = r.Get(a.ID)
	assert.False(t, ok, "empty formation dissolved")
	assert.Len(t, r.All(), 1)
	assert.Len(t, r.ByFaction("red"), 1)
	assert.Empty(t, r.ByFaction("blue"))
}

func TestCohesionTracker(t *testing.T) {
	r := newRegistry()
	f, err := r.Create("red", ShapeLine, ids(2), core.V(0, 0), 0)
	require.NoError(t, err)

	positions := map[core.UnitID]core.Vec2{}
	positions[1], _ = f.SlotTarget(0)
	positions[2] = core.V(50, 50)
	lookup := func(id core.UnitID) (core.Vec2, bool) {
		p, ok := positions[id]
		return p, ok
	}

	tracker := NewCohesionTracker(3)
	for i := 0; i < 3; i++ {
		flagged, _ := tracker.Update(f, lookup)
		assert.Empty(t, flagged, "within grace period")
	}
	flagged, _ := tracker.Update(f, lookup)
	assert.Equal(t, []core.UnitID{2}, flagged)
	assert.True(t, tracker.IsStraggling(2))
	assert.False(t, tracker.IsStraggling(1))

	flagged, _ = tracker.Update(f, lookup)
	assert.Empty(t, flagged, "flagged only once")

	positions[2], _ = f.SlotTarget(1)
	_, rejoined := tracker.Update(f, lookup)
	assert.Equal(t, []core.UnitID{2}, rejoined)
	assert.False(t, tracker.IsStraggling(2))

	tracker.Forget(2)
	assert.False(t, tracker.IsStraggling(2))
}
