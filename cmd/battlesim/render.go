package main

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/scenario"
)

// factionGlyph is the faction's initial, upper case while the unit fights
// and lower case while it routs.
func factionGlyph(f core.Faction, routing bool) rune {
	r := '?'
	for _, c := range string(f) {
		r = c
		break
	}
	if routing {
		return unicode.ToLower(r)
	}
	return unicode.ToUpper(r)
}

// renderASCII draws the terrain with units and projectiles on top. Units
// sharing a cell show the highest id.
func renderASCII(grid *core.TerrainGrid, snap battle.RenderSnapshot) string {
	rows := make([][]rune, grid.H)
	for y := range rows {
		rows[y] = make([]rune, grid.W)
		for x := range rows[y] {
			rows[y][x] = scenario.Glyph(grid.At(core.C(x, y)))
		}
	}
	plot := func(p core.Vec2, r rune) {
		c := grid.CellAt(p)
		if grid.InBounds(c) {
			rows[c.Y][c.X] = r
		}
	}
	for _, p := range snap.Projectiles {
		plot(p.Position, '*')
	}
	for _, u := range snap.Units {
		plot(u.Position, factionGlyph(u.Faction, u.State == core.StateRouting))
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}

	counts := make(map[core.Faction]int)
	for _, u := range snap.Units {
		counts[u.Faction]++
	}
	factions := make([]core.Faction, 0, len(snap.Morale))
	for f := range snap.Morale {
		factions = append(factions, f)
	}
	sort.Slice(factions, func(i, j int) bool { return factions[i] < factions[j] })

	fmt.Fprintf(&sb, "tick %d  %s", snap.Tick, snap.Phase)
	for _, f := range factions {
		fmt.Fprintf(&sb, "  %c %s: %d units, morale %.2f", factionGlyph(f, false), f, counts[f], snap.Morale[f])
	}
	sb.WriteByte('\n')
	return sb.String()
}
