package collision

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

func body(id int, faction string, x, y float64) Body {
	return Body{ID: core.UnitID(id), Faction: core.Faction(faction), Center: core.V(x, y), Radius: 0.4, Reach: 0.5}
}

func newSystem(bodies ...Body) *System {
	s := New(DefaultConfig(), zerolog.Nop())
	s.Rebuild(bodies)
	return s
}

func TestBucketSizeDerivedFromBodies(t *testing.T) {
	s := newSystem(body(1, "red", 0, 0))
	assert.InDelta(t, 1.3, s.BucketSize(), 1e-9)
}

func TestOverlappingPairsMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var bodies []Body
	for i := 1; i <= 200; i++ {
		f := "red"
		if i%2 == 0 {
			f = "blue"
		}
		bodies = append(bodies, body(i, f, rng.Float64()*20, rng.Float64()*20))
	}
	s := newSystem(bodies...)

	got := make(map[[2]core.UnitID]bool)
	for _, p := range s.OverlappingPairs() {
		require.Less(t, p.A.ID, p.B.ID)
		key := [2]core.UnitID{p.A.ID, p.B.ID}
		assert.False(t, got[key], "pair reported twice")
		got[key] = true
	}

	want := 0
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			if bodies[i].Center.Dist(bodies[j].Center) <= contactDistance(bodies[i], bodies[j]) {
				want++
				assert.True(t, got[[2]core.UnitID{bodies[i].ID, bodies[j].ID}])
			}
		}
	}
	assert.Equal(t, want, len(got))
}

func TestOverlappingPairsStableOrder(t *testing.T) {
	a := []Body{body(3, "red", 1, 1), body(1, "red", 1.2, 1), body(2, "blue", 1.5, 1.1)}
	b := []Body{a[2], a[0], a[1]}
	assert.Equal(t, newSystem(a...).OverlappingPairs(), newSystem(b...).OverlappingPairs())
}

func TestResolvePushesFriendsApart(t *testing.T) {
	s := newSystem(body(1, "red", 1, 1), body(2, "red", 1.4, 1))
	res := s.Resolve(s.OverlappingPairs())

	require.Len(t, res.Pushes, 2)
	assert.Empty(t, res.Engagements)
	assert.Equal(t, core.UnitID(1), res.Pushes[0].ID)
	assert.Less(t, res.Pushes[0].Delta.X, 0.0)
	assert.Greater(t, res.Pushes[1].Delta.X, 0.0)
	// depth 0.4 * factor 0.5 split in two
	assert.InDelta(t, 0.1, res.Pushes[1].Delta.X, 1e-9)
}

func TestResolvePushIsCapped(t *testing.T) {
	s := newSystem(body(1, "red", 1, 1), body(2, "red", 1, 1))
	res := s.Resolve(s.OverlappingPairs())
	require.Len(t, res.Pushes, 2)
	for _, p := range res.Pushes {
		assert.LessOrEqual(t, p.Delta.Len(), DefaultConfig().MaxPush+1e-9)
	}
	assert.Less(t, res.Pushes[0].Delta.X, 0.0, "coincident bodies separate deterministically")
}

func TestResolveEnemyContactIsEngagement(t *testing.T) {
	s := newSystem(body(1, "red", 1, 1), body(2, "blue", 2, 1))
	res := s.Resolve(s.OverlappingPairs())
	assert.Empty(t, res.Pushes)
	require.Len(t, res.Engagements, 1)
	assert.Equal(t, Engagement{A: 1, B: 2, Distance: 1}, res.Engagements[0])
}

func TestQueryRadius(t *testing.T) {
	s := newSystem(body(1, "red", 0, 0), body(2, "blue", 3, 0), body(3, "blue", 0, 3), body(4, "blue", 10, 10))
	got := s.QueryRadius(core.V(0, 0), 3)
	require.Len(t, got, 3)
	assert.Equal(t, core.UnitID(1), got[0].Body.ID)
	assert.Equal(t, core.UnitID(2), got[1].Body.ID, "equal distance ties by id")
	assert.Equal(t, core.UnitID(3), got[2].Body.ID)

	far := s.QueryRadius(core.V(0, 0), 100)
	assert.Len(t, far, 4)
}

func TestQueryRadiusFindsBodiesAcrossBucketEdges(t *testing.T) {
	wide := func(id int, x, y float64) Body {
		return Body{ID: core.UnitID(id), Faction: "red", Center: core.V(x, y), Radius: 0.5}
	}
	s := newSystem(wide(1, 0.1, 0.5), wide(2, -0.35, 0.5))
	got := s.QueryRadius(core.V(0.1, 0.5), 0.05)
	require.Len(t, got, 2)
	assert.Equal(t, core.UnitID(2), got[1].Body.ID)

	rng := rand.New(rand.NewSource(11))
	var bodies []Body
	for i := 1; i <= 150; i++ {
		bodies = append(bodies, wide(i, rng.Float64()*15-5, rng.Float64()*15-5))
	}
	s = newSystem(bodies...)
	for q := 0; q < 50; q++ {
		center := core.V(rng.Float64()*15-5, rng.Float64()*15-5)
		r := rng.Float64() * 0.5
		want := 0
		for _, b := range bodies {
			if center.Dist(b.Center)-b.Radius <= r {
				want++
			}
		}
		assert.Len(t, s.QueryRadius(center, r), want, "query %d", q)
	}
}

func TestSweptHitsCatchesThinTargets(t *testing.T) {
	s := newSystem(body(1, "red", 5, 0), body(2, "red", 8, 0), body(3, "red", 5, 3))
	hits := s.SweptHits(core.V(0, 0), core.V(10, 0), 0.05)
	require.Len(t, hits, 2)
	assert.Equal(t, core.UnitID(1), hits[0].Body.ID)
	assert.Equal(t, core.UnitID(2), hits[1].Body.ID)
	assert.InDelta(t, (5-0.45)/10, hits[0].T, 1e-9)

	assert.Empty(t, s.SweptHits(core.V(0, 0), core.V(4, 0), 0.05), "segment stops short")
}

func TestSegmentCircle(t *testing.T) {
	_, ok := segmentCircle(core.V(0, 0), core.V(0, 0), core.V(5, 5), 1)
	assert.False(t, ok)

	tt, ok := segmentCircle(core.V(0, 0), core.V(1, 0), core.V(0, 0), 1)
	assert.True(t, ok)
	assert.Equal(t, 0.0, tt, "start inside the circle")
}
