// Package collision buckets unit bodies into a uniform grid and answers
// overlap, radius, and swept-segment queries against it.
package collision

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Config holds collision knobs.
type Config struct {
	BucketSize float64 // 0 derives the size from the bodies each rebuild
	PushFactor float64 // fraction of overlap depth corrected per tick
	MaxPush    float64 // cap on a single push displacement
}

func DefaultConfig() Config {
	return Config{PushFactor: 0.5, MaxPush: 0.25}
}

// Body is the circle approximation of a unit.
type Body struct {
	ID      core.UnitID
	Faction core.Faction
	Center  core.Vec2
	Radius  float64
	Reach   float64 // melee reach beyond both radii
}

type bucketKey struct{ x, y int }

// System is rebuilt from the living bodies every tick.
type System struct {
	config     Config
	logger     zerolog.Logger
	bucketSize float64
	maxRadius  float64
	bodies     []Body
	index      map[core.UnitID]int
	buckets    map[bucketKey][]int
	keys       []bucketKey // sorted bucket traversal order
}

func New(config Config, logger zerolog.Logger) *System {
	return &System{
		config:  config,
		logger:  logger.With().Str("component", "CollisionSystem").Logger(),
		index:   make(map[core.UnitID]int),
		buckets: make(map[bucketKey][]int),
	}
}

// Rebuild replaces the indexed bodies. Bodies are sorted by id so every
// later traversal is stable regardless of caller order.
func (s *System) Rebuild(bodies []Body) {
	s.bodies = append(s.bodies[:0], bodies...)
	sort.Slice(s.bodies, func(i, j int) bool { return s.bodies[i].ID < s.bodies[j].ID })

	s.maxRadius = 0
	maxContact := 0.0
	for _, b := range s.bodies {
		s.maxRadius = math.Max(s.maxRadius, b.Radius)
		maxContact = math.Max(maxContact, b.Reach)
	}
	// A bucket must span the widest contact distance so only neighbouring
	// buckets need testing.
	s.bucketSize = math.Max(s.config.BucketSize, 2*s.maxRadius+maxContact)
	if s.bucketSize <= 0 {
		s.bucketSize = 1
	}

	clear(s.index)
	clear(s.buckets)
	s.keys = s.keys[:0]
	for i, b := range s.bodies {
		s.index[b.ID] = i
		k := s.keyFor(b.Center)
		if _, ok := s.buckets[k]; !ok {
			s.keys = append(s.keys, k)
		}
		s.buckets[k] = append(s.buckets[k], i)
	}
	sort.Slice(s.keys, func(i, j int) bool {
		if s.keys[i].y != s.keys[j].y {
			return s.keys[i].y < s.keys[j].y
		}
		return s.keys[i].x < s.keys[j].x
	})
}

func (s *System) keyFor(p core.Vec2) bucketKey {
	return bucketKey{x: int(math.Floor(p.X / s.bucketSize)), y: int(math.Floor(p.Y / s.bucketSize))}
}

func (s *System) BucketSize() float64 { return s.bucketSize }

func (s *System) Len() int { return len(s.bodies) }

// Body returns the indexed body with the given id.
func (s *System) Body(id core.UnitID) (Body, bool) {
	i, ok := s.index[id]
	if !ok {
		return Body{}, false
	}
	return s.bodies[i], true
}

// Pair is two bodies within contact distance of each other. A has the lower id.
type Pair struct {
	A, B     Body
	Distance float64
	Depth    float64 // physical overlap depth, <= 0 when the circles only touch reach
}

// contactDistance is the distance within which two bodies interact.
func contactDistance(a, b Body) float64 {
	return a.Radius + b.Radius + math.Max(a.Reach, b.Reach)
}

// forward neighbours: each adjacent bucket pair is visited exactly once.
var forwardBuckets = [...]bucketKey{{0, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

// OverlappingPairs returns all body pairs within contact distance, testing
// only same and adjacent buckets. Order is bucket traversal order, then id.
func (s *System) OverlappingPairs() []Pair {
	var pairs []Pair
	for _, k := range s.keys {
		home := s.buckets[k]
		for _, off := range forwardBuckets {
			nk := bucketKey{x: k.x + off.x, y: k.y + off.y}
			other, ok := s.buckets[nk]
			if !ok {
				continue
			}
			same := off.x == 0 && off.y == 0
			for ai, i := range home {
				start := 0
				if same {
					start = ai + 1
				}
				for _, j := range other[start:] {
					if p, ok := s.testPair(i, j); ok {
						pairs = append(pairs, p)
					}
				}
			}
		}
	}
	return pairs
}

func (s *System) testPair(i, j int) (Pair, bool) {
	a, b := s.bodies[i], s.bodies[j]
	if b.ID < a.ID {
		a, b = b, a
	}
	d := a.Center.Dist(b.Center)
	if d > contactDistance(a, b) {
		return Pair{}, false
	}
	return Pair{A: a, B: b, Distance: d, Depth: a.Radius + b.Radius - d}, true
}

// Push is a displacement to apply to a unit.
type Push struct {
	ID    core.UnitID
	Delta core.Vec2
}

// Engagement is an enemy pair in melee contact.
type Engagement struct {
	A, B     core.UnitID
	Distance float64
}

// Resolution is the outcome of resolving a tick's pairs.
type Resolution struct {
	Pushes      []Push
	Engagements []Engagement
}

// Resolve separates overlapping friendly bodies and forwards enemy contacts
// as engagements. Pushes are proportional to overlap depth, capped at MaxPush,
// and returned in id order.
func (s *System) Resolve(pairs []Pair) Resolution {
	var res Resolution
	deltas := make(map[core.UnitID]core.Vec2)
	for _, p := range pairs {
		if p.A.Faction != p.B.Faction {
			res.Engagements = append(res.Engagements, Engagement{A: p.A.ID, B: p.B.ID, Distance: p.Distance})
			continue
		}
		if p.Depth <= 0 {
			continue
		}
		normal := p.B.Center.Sub(p.A.Center).Normalize()
		if normal == (core.Vec2{}) {
			// Coincident centers: separate along +X, lower id moves left.
			normal = core.Vec2{X: 1}
		}
		mag := math.Min(p.Depth*s.config.PushFactor, s.config.MaxPush) / 2
		deltas[p.A.ID] = deltas[p.A.ID].Sub(normal.Scale(mag))
		deltas[p.B.ID] = deltas[p.B.ID].Add(normal.Scale(mag))
	}

	for id, d := range deltas {
		res.Pushes = append(res.Pushes, Push{ID: id, Delta: d.ClampLen(s.config.MaxPush)})
	}
	sort.Slice(res.Pushes, func(i, j int) bool { return res.Pushes[i].ID < res.Pushes[j].ID })

	if len(res.Engagements) > 0 {
		s.logger.Debug().Int("engagements", len(res.Engagements)).Int("pushes", len(res.Pushes)).Msg("Resolved contacts")
	}
	return res
}

// Neighbor is a body returned from a radius query.
type Neighbor struct {
	Body     Body
	Distance float64 // center to center
}

// QueryRadius returns bodies whose circle intersects the disc (center, r),
// nearest first, ties by id.
func (s *System) QueryRadius(center core.Vec2, r float64) []Neighbor {
	var out []Neighbor
	pad := r + s.maxRadius
	s.visit(center.Sub(core.Vec2{X: pad, Y: pad}), center.Add(core.Vec2{X: pad, Y: pad}), func(b Body) {
		d := center.Dist(b.Center)
		if d-b.Radius <= r {
			out = append(out, Neighbor{Body: b, Distance: d})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Body.ID < out[j].Body.ID
	})
	return out
}

// SweptHit is a body intersected by a moving circle.
type SweptHit struct {
	Body Body
	T    float64 // fraction along the segment of first contact, 0..1
}

// SweptHits returns bodies a circle of radius r touches while travelling
// from -> to, ordered by time of first contact then id.
func (s *System) SweptHits(from, to core.Vec2, r float64) []SweptHit {
	lo := core.Vec2{X: math.Min(from.X, to.X), Y: math.Min(from.Y, to.Y)}
	hi := core.Vec2{X: math.Max(from.X, to.X), Y: math.Max(from.Y, to.Y)}
	pad := r + s.maxRadius
	lo = lo.Sub(core.Vec2{X: pad, Y: pad})
	hi = hi.Add(core.Vec2{X: pad, Y: pad})

	var out []SweptHit
	s.visit(lo, hi, func(b Body) {
		if t, ok := segmentCircle(from, to, b.Center, b.Radius+r); ok {
			out = append(out, SweptHit{Body: b, T: t})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].T != out[j].T {
			return out[i].T < out[j].T
		}
		return out[i].Body.ID < out[j].Body.ID
	})
	return out
}

// visit calls fn for every body in buckets overlapping the box [lo, hi].
func (s *System) visit(lo, hi core.Vec2, fn func(Body)) {
	if len(s.bodies) == 0 {
		return
	}
	klo, khi := s.keyFor(lo), s.keyFor(hi)
	// Sparse maps with huge query boxes: fall back to iterating occupied buckets.
	if int64(khi.x-klo.x+1)*int64(khi.y-klo.y+1) > int64(len(s.keys)) {
		for _, k := range s.keys {
			if k.x < klo.x || k.x > khi.x || k.y < klo.y || k.y > khi.y {
				continue
			}
			for _, i := range s.buckets[k] {
				fn(s.bodies[i])
			}
		}
		return
	}
	for y := klo.y; y <= khi.y; y++ {
		for x := klo.x; x <= khi.x; x++ {
			for _, i := range s.buckets[bucketKey{x: x, y: y}] {
				fn(s.bodies[i])
			}
		}
	}
}

// segmentCircle returns the earliest parameter t in [0,1] at which the
// segment a->b is within radius of c.
func segmentCircle(a, b, c core.Vec2, radius float64) (float64, bool) {
	d := b.Sub(a)
	f := a.Sub(c)
	cc := f.LenSq() - radius*radius
	if cc <= 0 {
		return 0, true
	}
	aa := d.LenSq()
	if aa == 0 {
		return 0, false
	}
	bb := 2 * f.Dot(d)
	disc := bb*bb - 4*aa*cc
	if disc < 0 {
		return 0, false
	}
	t := (-bb - math.Sqrt(disc)) / (2 * aa)
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
