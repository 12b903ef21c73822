package testutil

import (
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// OpenTerrain creates a w×h grid of open ground with unit cells
func OpenTerrain(w, h int) *core.TerrainGrid {
	return core.NewTerrainGrid(w, h, 1)
}

// Wall is an impassable, projectile-blocking cell
var Wall = core.TerrainCell{Cost: core.Impassable, BlocksProjectiles: true}

// EnclosedCell creates open terrain where the cell at c is ringed by walls
func EnclosedCell(w, h int, c core.Cell) *core.TerrainGrid {
	grid := OpenTerrain(w, h)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := core.C(c.X+dx, c.Y+dy)
			if grid.InBounds(n) {
				grid.Set(n, Wall)
			}
		}
	}
	return grid
}

// NewTestUnit creates a unit with default stats for its type
func NewTestUnit(id int, faction string, ut core.UnitType, pos core.Vec2, heading float64) *core.Unit {
	stats, ok := core.DefaultUnitTable()[ut]
	if !ok {
		panic("testutil: unknown unit type " + ut.String())
	}
	return core.NewUnit(core.UnitID(id), core.Faction(faction), ut, stats, pos, heading)
}
