package scenario

import (
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Legend maps layout glyphs to terrain.
var Legend = map[rune]core.TerrainCell{
	'.': core.OpenGround,
	'F': core.Forest,
	'H': core.Hill,
	'M': core.Mud,
	'#': core.Rock,
	'~': core.Water,
}

// ParseLayout builds a grid from rows of legend glyphs. Blank lines and
// surrounding whitespace are ignored; every row must have the same width.
func ParseLayout(layout string, cellSize float64) (*core.TerrainGrid, error) {
	var rows []string
	for _, line := range strings.Split(layout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			rows = append(rows, line)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("layout is empty")
	}

	width := len([]rune(rows[0]))
	grid := core.NewTerrainGrid(width, len(rows), cellSize)
	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != width {
			return nil, fmt.Errorf("layout row %d is %d wide, want %d", y, len(runes), width)
		}
		for x, r := range runes {
			cell, ok := Legend[r]
			if !ok {
				return nil, fmt.Errorf("layout row %d column %d: unknown terrain glyph %q", y, x, r)
			}
			grid.Set(core.C(x, y), cell)
		}
	}
	return grid, nil
}

// Glyph returns the legend glyph closest to a cell. Generated hill
// shoulders render as hills.
func Glyph(cell core.TerrainCell) rune {
	switch {
	case cell == core.Water:
		return '~'
	case !cell.Passable():
		return '#'
	case cell.Elevation > 0:
		return 'H'
	case cell.Cover > 0:
		return 'F'
	case cell.Cost > 1:
		return 'M'
	default:
		return '.'
	}
}

// RenderLayout writes a grid back as layout rows.
func RenderLayout(grid *core.TerrainGrid) string {
	var sb strings.Builder
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			sb.WriteRune(Glyph(grid.At(core.C(x, y))))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
