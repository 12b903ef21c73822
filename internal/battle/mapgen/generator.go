package mapgen

import (
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// MapConfig holds configuration for terrain generation
type MapConfig struct {
	Width           int
	Height          int
	ForestRatio     int // 1 forest clump per N cells, 0 disables
	HillRatio       int // 1 hill per N cells, 0 disables
	MudRatio        int // 1 mud patch per N cells, 0 disables
	NumRockVeins    int
	MinVeinLength   int
	MaxVeinLength   int
	DeploymentDepth int // columns kept open at the west and east edges
}

// DefaultMapConfig returns a sensible default configuration
func DefaultMapConfig(w, h int) MapConfig {
	return MapConfig{
		Width:           w,
		Height:          h,
		ForestRatio:     12,
		HillRatio:       25,
		MudRatio:        40,
		NumRockVeins:    (w * h) / 80,
		MinVeinLength:   3,
		MaxVeinLength:   max(w/5, 3),
		DeploymentDepth: 6,
	}
}

// Generator handles terrain generation with deterministic RNG
type Generator struct {
	config MapConfig
	rng    *rand.Rand
}

// NewGenerator creates a new map generator
func NewGenerator(config MapConfig, rng *rand.Rand) *Generator {
	return &Generator{
		config: config,
		rng:    rng,
	}
}

// GenerateMap creates a terrain grid. Rock veins are placed first, then
// hills, forests and mud on the remaining open ground. The deployment zones
// at the west and east edges stay open so armies can always be placed.
func (g *Generator) GenerateMap() (*core.TerrainGrid, error) {
	if g.config.Width <= 0 || g.config.Height <= 0 {
		return nil, fmt.Errorf("map dimensions must be positive, got %dx%d", g.config.Width, g.config.Height)
	}
	if 2*g.config.DeploymentDepth >= g.config.Width {
		return nil, fmt.Errorf("deployment depth %d leaves no room on a map %d wide", g.config.DeploymentDepth, g.config.Width)
	}

	grid := core.NewTerrainGrid(g.config.Width, g.config.Height, 1)

	g.placeRockVeins(grid)
	g.placeHills(grid)
	g.scatter(grid, g.config.ForestRatio, core.Forest, 2)
	g.scatter(grid, g.config.MudRatio, core.Mud, 1)

	if !g.connected(grid) {
		g.clearVeins(grid)
	}
	return grid, nil
}

// inField reports whether c lies between the deployment zones.
func (g *Generator) inField(c core.Cell) bool {
	return c.X >= g.config.DeploymentDepth && c.X < g.config.Width-g.config.DeploymentDepth
}

func (g *Generator) placeRockVeins(grid *core.TerrainGrid) {
	directions := []core.Cell{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

	for i := 0; i < g.config.NumRockVeins; i++ {
		start := core.C(g.rng.Intn(grid.W), g.rng.Intn(grid.H))
		if !g.inField(start) {
			continue
		}
		length := g.config.MinVeinLength
		if span := g.config.MaxVeinLength - g.config.MinVeinLength; span > 0 {
			length += g.rng.Intn(span + 1)
		}
		dir := directions[g.rng.Intn(len(directions))]

		c := start
		for step := 0; step < length; step++ {
			if !grid.InBounds(c) || !g.inField(c) {
				break
			}
			grid.Set(c, core.Rock)
			// Occasionally bend the vein
			if g.rng.Intn(4) == 0 {
				dir = directions[g.rng.Intn(len(directions))]
			}
			c = core.C(c.X+dir.X, c.Y+dir.Y)
		}
	}
}

func (g *Generator) placeHills(grid *core.TerrainGrid) {
	if g.config.HillRatio <= 0 {
		return
	}
	want := (grid.W * grid.H) / g.config.HillRatio
	for placed, attempts := 0, 0; placed < want && attempts < want*10; attempts++ {
		c := core.C(g.rng.Intn(grid.W), g.rng.Intn(grid.H))
		if grid.At(c) != core.OpenGround || !g.inField(c) {
			continue
		}
		// A hill is a peak with a lower shoulder around it
		grid.Set(c, core.Hill)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				n := core.C(c.X+dx, c.Y+dy)
				if (dx != 0 || dy != 0) && grid.InBounds(n) && grid.At(n) == core.OpenGround && g.inField(n) {
					shoulder := core.Hill
					shoulder.Elevation = core.Hill.Elevation / 2
					grid.Set(n, shoulder)
				}
			}
		}
		placed++
	}
}

func (g *Generator) scatter(grid *core.TerrainGrid, ratio int, cell core.TerrainCell, spread int) {
	if ratio <= 0 {
		return
	}
	want := (grid.W * grid.H) / ratio
	for placed, attempts := 0, 0; placed < want && attempts < want*10; attempts++ {
		c := core.C(g.rng.Intn(grid.W), g.rng.Intn(grid.H))
		if grid.At(c) != core.OpenGround || !g.inField(c) {
			continue
		}
		grid.Set(c, cell)
		placed++
		for i := 0; i < spread; i++ {
			n := core.C(c.X+g.rng.Intn(3)-1, c.Y+g.rng.Intn(3)-1)
			if grid.InBounds(n) && grid.At(n) == core.OpenGround && g.inField(n) {
				grid.Set(n, cell)
			}
		}
	}
}

// connected reports whether every passable cell is reachable from the
// west deployment zone.
func (g *Generator) connected(grid *core.TerrainGrid) bool {
	seen := make([]bool, grid.W*grid.H)
	start := core.C(0, 0)
	queue := []core.Cell{start}
	seen[start.ToIndex(grid.W)] = true
	reached := 1

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, d := range [...]core.Cell{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			n := core.C(c.X+d.X, c.Y+d.Y)
			if !grid.InBounds(n) || !grid.Passable(n) {
				continue
			}
			idx := n.ToIndex(grid.W)
			if seen[idx] {
				continue
			}
			seen[idx] = true
			reached++
			queue = append(queue, n)
		}
	}

	passable := 0
	for i := 0; i < grid.W*grid.H; i++ {
		if grid.Passable(core.CellFromIndex(i, grid.W)) {
			passable++
		}
	}
	return reached == passable
}

// clearVeins turns rock that seals off part of the field back into open
// ground.
func (g *Generator) clearVeins(grid *core.TerrainGrid) {
	for i := 0; i < grid.W*grid.H; i++ {
		c := core.CellFromIndex(i, grid.W)
		if grid.At(c) == core.Rock {
			grid.Set(c, core.OpenGround)
		}
	}
}
