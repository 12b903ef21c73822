package core

import (
	"fmt"
	"math"
)

// Impassable is the movement cost of a cell no unit may enter.
var Impassable = math.Inf(1)

// TerrainCell is a single cell of the battlefield.
// Cost is a movement-cost multiplier (1 = open ground, +Inf = impassable).
// Elevation and Cover feed the combat calculator.
type TerrainCell struct {
	Cost              float64
	Elevation         float64
	Cover             float64 // 0..1, fraction of incoming hit chance removed
	BlocksProjectiles bool
}

// Passable reports whether units can enter the cell.
func (t TerrainCell) Passable() bool {
	return !math.IsInf(t.Cost, 1) && t.Cost > 0
}

// Terrain presets used by map generation and scenario layouts.
var (
	OpenGround = TerrainCell{Cost: 1}
	Forest     = TerrainCell{Cost: 1.6, Cover: 0.4}
	Hill       = TerrainCell{Cost: 1.4, Elevation: 2, Cover: 0.1}
	Mud        = TerrainCell{Cost: 3}
	Rock       = TerrainCell{Cost: Impassable, Elevation: 3, BlocksProjectiles: true}
	Water      = TerrainCell{Cost: Impassable}
)

// TerrainGrid is the battlefield terrain. It is only mutated during setup;
// Revision lets route holders detect a change defensively.
type TerrainGrid struct {
	W, H     int
	CellSize float64
	cells    []TerrainCell // length = W*H (row-major)
	revision int
}

// NewTerrainGrid creates a grid of open ground.
func NewTerrainGrid(w, h int, cellSize float64) *TerrainGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	g := &TerrainGrid{W: w, H: h, CellSize: cellSize, cells: make([]TerrainCell, w*h)}
	for i := range g.cells {
		g.cells[i] = OpenGround
	}
	return g
}

// Validate checks the grid dimensions and cell values.
func (g *TerrainGrid) Validate() error {
	if g == nil {
		return fmt.Errorf("terrain grid is nil")
	}
	if g.W <= 0 || g.H <= 0 {
		return fmt.Errorf("terrain dimensions must be positive, got %dx%d", g.W, g.H)
	}
	for i, c := range g.cells {
		if math.IsNaN(c.Cost) || c.Cost <= 0 {
			return fmt.Errorf("cell %s has invalid cost %v", CellFromIndex(i, g.W), c.Cost)
		}
		if c.Cover < 0 || c.Cover > 1 {
			return fmt.Errorf("cell %s has cover %v outside [0,1]", CellFromIndex(i, g.W), c.Cover)
		}
	}
	return nil
}

func (g *TerrainGrid) InBounds(c Cell) bool { return c.IsValid(g.W, g.H) }

// At returns the cell at c. Out-of-bounds cells read as impassable.
func (g *TerrainGrid) At(c Cell) TerrainCell {
	if !g.InBounds(c) {
		return TerrainCell{Cost: Impassable, BlocksProjectiles: true}
	}
	return g.cells[c.ToIndex(g.W)]
}

// Set replaces the cell at c and bumps the revision.
func (g *TerrainGrid) Set(c Cell, t TerrainCell) {
	if !g.InBounds(c) {
		return
	}
	g.cells[c.ToIndex(g.W)] = t
	g.revision++
}

// Passable reports whether c is in bounds and enterable.
func (g *TerrainGrid) Passable(c Cell) bool {
	return g.InBounds(c) && g.cells[c.ToIndex(g.W)].Passable()
}

func (g *TerrainGrid) Cost(c Cell) float64 { return g.At(c).Cost }

func (g *TerrainGrid) Revision() int { return g.revision }

// CellAt maps a world position to its containing cell.
func (g *TerrainGrid) CellAt(p Vec2) Cell {
	return Cell{X: int(math.Floor(p.X / g.CellSize)), Y: int(math.Floor(p.Y / g.CellSize))}
}

// Center returns the world position of the center of c.
func (g *TerrainGrid) Center(c Cell) Vec2 {
	return Vec2{X: (float64(c.X) + 0.5) * g.CellSize, Y: (float64(c.Y) + 0.5) * g.CellSize}
}

// Bounds returns the world-space width and height of the map.
func (g *TerrainGrid) Bounds() (float64, float64) {
	return float64(g.W) * g.CellSize, float64(g.H) * g.CellSize
}

// Contains reports whether p lies inside the map.
func (g *TerrainGrid) Contains(p Vec2) bool {
	w, h := g.Bounds()
	return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h
}

// ClampPoint pulls p inside the map by a small margin.
func (g *TerrainGrid) ClampPoint(p Vec2) Vec2 {
	w, h := g.Bounds()
	const eps = 1e-6
	return Vec2{X: clamp(p.X, 0, w-eps), Y: clamp(p.Y, 0, h-eps)}
}

// PassableAt reports whether the cell containing p can be entered.
func (g *TerrainGrid) PassableAt(p Vec2) bool {
	return g.Contains(p) && g.Passable(g.CellAt(p))
}

// MinCost returns the lowest movement cost among passable cells.
func (g *TerrainGrid) MinCost() float64 {
	min := math.Inf(1)
	for _, c := range g.cells {
		if c.Passable() && c.Cost < min {
			min = c.Cost
		}
	}
	if math.IsInf(min, 1) {
		return 1
	}
	return min
}

// NearestPassable returns the passable cell closest to c within radius cells.
// Candidates are scanned in row-major order so ties resolve deterministically.
func (g *TerrainGrid) NearestPassable(c Cell, radius int) (Cell, bool) {
	if g.Passable(c) {
		return c, true
	}
	best, found := Cell{}, false
	bestDist := math.Inf(1)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			n := Cell{X: c.X + dx, Y: c.Y + dy}
			if !g.Passable(n) {
				continue
			}
			if d := n.Euclid(c); d < bestDist {
				best, bestDist, found = n, d, true
			}
		}
	}
	return best, found
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 { return clamp(v, lo, hi) }
