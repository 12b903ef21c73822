// Package pathfind plans grid routes for units with A*.
package pathfind

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/pqueue"
)

// Config holds pathfinding and replanning knobs.
type Config struct {
	MaxExpansions    int     // node expansions before giving up with ErrNoPath
	GoalSearchRadius int     // cells searched for a passable substitute goal
	GoalTolerance    float64 // cells the goal may drift before a route is replanned
	BlockedTicks     int     // zero-progress ticks before a route is replanned
}

// DefaultConfig returns sensible pathfinding defaults.
func DefaultConfig() Config {
	return Config{
		MaxExpansions:    20000,
		GoalSearchRadius: 4,
		GoalTolerance:    1.5,
		BlockedTicks:     10,
	}
}

// Neighbour order is fixed so expansion order, and therefore the route, is
// reproducible.
var directions = [8]struct {
	dx, dy int
	cost   float64
}{
	{0, -1, 1}, {1, 0, 1}, {0, 1, 1}, {-1, 0, 1},
	{1, -1, math.Sqrt2}, {1, 1, math.Sqrt2}, {-1, 1, math.Sqrt2}, {-1, -1, math.Sqrt2},
}

// Pathfinder plans routes over a terrain grid.
type Pathfinder struct {
	grid   *core.TerrainGrid
	config Config
	logger zerolog.Logger

	// scratch buffers reused between searches
	gScore   []float64
	cameFrom []int32
	closed   []bool
	open     *pqueue.Queue[int32]

	minCost      float64
	costRevision int

	searches   int
	expansions int
	failures   int
}

// New creates a pathfinder bound to grid.
func New(grid *core.TerrainGrid, config Config, logger zerolog.Logger) *Pathfinder {
	n := grid.W * grid.H
	return &Pathfinder{
		grid:         grid,
		config:       config,
		logger:       logger.With().Str("component", "Pathfinder").Logger(),
		gScore:       make([]float64, n),
		cameFrom:     make([]int32, n),
		closed:       make([]bool, n),
		open:         pqueue.New[int32](256),
		minCost:      grid.MinCost(),
		costRevision: grid.Revision(),
	}
}

func (p *Pathfinder) Config() Config { return p.config }

// Stats reports cumulative search counters.
func (p *Pathfinder) Stats() (searches, expansions, failures int) {
	return p.searches, p.expansions, p.failures
}

// heuristic is the octile distance scaled by the cheapest cell cost, which
// keeps it admissible on weighted terrain.
func (p *Pathfinder) heuristic(a, b core.Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return (math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)) * p.minCost
}

// FindRoute plans a route from start to goal. Waypoints exclude start and
// end at the goal, or at the nearest passable substitute when goal is
// impassable. ErrNoPath is returned when no substitute exists or the
// expansion budget runs out.
func (p *Pathfinder) FindRoute(start, goal core.Cell) (core.Route, error) {
	g := p.grid
	p.searches++
	if g.Revision() != p.costRevision {
		p.minCost = g.MinCost()
		p.costRevision = g.Revision()
	}

	if !g.InBounds(start) {
		p.failures++
		return core.Route{}, core.ErrNoPath
	}

	target := goal
	if !g.Passable(target) {
		sub, ok := g.NearestPassable(clampCell(goal, g.W, g.H), p.config.GoalSearchRadius)
		if !ok {
			p.failures++
			p.logger.Debug().
				Str("goal", goal.String()).
				Int("radius", p.config.GoalSearchRadius).
				Msg("No passable cell near goal")
			return core.Route{}, core.ErrNoPath
		}
		target = sub
	}

	route := core.Route{Goal: target, Requested: goal, Revision: g.Revision(), Planned: true}
	if start == target {
		return route, nil
	}

	for i := range p.gScore {
		p.gScore[i] = math.Inf(1)
		p.cameFrom[i] = -1
		p.closed[i] = false
	}
	p.open.Reset()

	startIdx := int32(start.ToIndex(g.W))
	goalIdx := int32(target.ToIndex(g.W))
	p.gScore[startIdx] = 0
	p.open.Push(startIdx, p.heuristic(start, target))

	expanded := 0
	for p.open.Len() > 0 {
		cur, _, _ := p.open.Pop()
		if p.closed[cur] {
			continue
		}
		if cur == goalIdx {
			route.Waypoints = p.buildPath(startIdx, goalIdx)
			route.Cost = p.gScore[goalIdx]
			p.expansions += expanded
			return route, nil
		}
		p.closed[cur] = true
		expanded++
		if p.config.MaxExpansions > 0 && expanded > p.config.MaxExpansions {
			break
		}

		c := core.CellFromIndex(int(cur), g.W)
		for _, d := range directions {
			n := core.Cell{X: c.X + d.dx, Y: c.Y + d.dy}
			if !g.Passable(n) {
				continue
			}
			// No corner cutting: both orthogonal neighbours must be open.
			if d.dx != 0 && d.dy != 0 {
				if !g.Passable(core.Cell{X: c.X + d.dx, Y: c.Y}) || !g.Passable(core.Cell{X: c.X, Y: c.Y + d.dy}) {
					continue
				}
			}
			ni := int32(n.ToIndex(g.W))
			if p.closed[ni] {
				continue
			}
			tentative := p.gScore[cur] + d.cost*g.Cost(n)
			if tentative < p.gScore[ni] {
				p.gScore[ni] = tentative
				p.cameFrom[ni] = cur
				p.open.Push(ni, tentative+p.heuristic(n, target))
			}
		}
	}

	p.expansions += expanded
	p.failures++
	p.logger.Debug().
		Str("start", start.String()).
		Str("goal", target.String()).
		Int("expanded", expanded).
		Msg("Route search exhausted")
	return core.Route{}, core.ErrNoPath
}

func (p *Pathfinder) buildPath(startIdx, goalIdx int32) []core.Cell {
	var rev []core.Cell
	for idx := goalIdx; idx != startIdx && idx >= 0; idx = p.cameFrom[idx] {
		rev = append(rev, core.CellFromIndex(int(idx), p.grid.W))
	}
	path := make([]core.Cell, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// NeedsRecompute reports whether a unit should replan its route toward goal.
// Routes are kept until the goal drifts past GoalTolerance, the unit has
// been stuck for more than BlockedTicks, or the terrain revision changed.
func (p *Pathfinder) NeedsRecompute(route core.Route, goal core.Cell, blockedTicks int) bool {
	if !route.Planned {
		return true
	}
	if route.Requested.Euclid(goal) > p.config.GoalTolerance {
		return true
	}
	if p.config.BlockedTicks > 0 && blockedTicks > p.config.BlockedTicks {
		return true
	}
	return route.Revision != p.grid.Revision()
}

func clampCell(c core.Cell, w, h int) core.Cell {
	if c.X < 0 {
		c.X = 0
	} else if c.X >= w {
		c.X = w - 1
	}
	if c.Y < 0 {
		c.Y = 0
	} else if c.Y >= h {
		c.Y = h - 1
	}
	return c
}
