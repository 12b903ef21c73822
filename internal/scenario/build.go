package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/formation"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/mapgen"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
)

func (p Point) Vec() core.Vec2 { return core.Vec2{X: p[0], Y: p[1]} }

// MapConfig derives generator settings for a w×h map.
func MapConfig(c config.MapgenConfig, w, h int) mapgen.MapConfig {
	mc := mapgen.DefaultMapConfig(w, h)
	mc.ForestRatio = c.ForestRatio
	mc.HillRatio = c.HillRatio
	mc.MudRatio = c.MudRatio
	mc.NumRockVeins = 0
	if c.RockVeinRatio > 0 {
		mc.NumRockVeins = (w * h) / c.RockVeinRatio
	}
	mc.MinVeinLength = c.RockVeinMinLength
	mc.MaxVeinLength = max(int(float64(w)*c.RockVeinMaxLength), c.RockVeinMinLength)
	mc.DeploymentDepth = c.DeploymentDepth
	return mc
}

// Build turns the scenario into a battle setup. A scenario without a
// layout gets a generated map seeded by the scenario seed; a zero seed is
// replaced by the clock so the returned setup always replays exactly.
func (f *File) Build(gen config.MapgenConfig) (battle.Setup, error) {
	seed := f.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	grid, err := f.terrain(gen, seed)
	if err != nil {
		return battle.Setup{}, core.WrapConfigError("map", err)
	}
	units, err := f.unitTable()
	if err != nil {
		return battle.Setup{}, err
	}

	setup := battle.Setup{ID: f.ID, Seed: seed, Terrain: grid, Units: units}
	for i, a := range f.Armies {
		as := battle.ArmySetup{
			Faction:  core.Faction(a.Faction),
			AI:       a.AI,
			Fallback: a.Fallback.Vec(),
		}
		for j, fm := range a.Formations {
			shape, err := formation.ParseShape(fm.Shape)
			if err != nil {
				return battle.Setup{}, core.WrapConfigError(fmt.Sprintf("armies[%d].formations[%d].shape", i, j), err)
			}
			fs := battle.FormationSetup{
				Shape:  shape,
				Anchor: fm.Anchor.Vec(),
				Facing: fm.Facing * math.Pi / 180,
			}
			for _, r := range fm.Roster {
				fs.Roster = append(fs.Roster, battle.UnitCount{Type: r.Type, Count: r.Count})
			}
			as.Formations = append(as.Formations, fs)
		}
		setup.Armies = append(setup.Armies, as)
	}
	return setup, nil
}

func (f *File) terrain(gen config.MapgenConfig, seed int64) (*core.TerrainGrid, error) {
	if f.Map.Layout != "" {
		return ParseLayout(f.Map.Layout, f.Map.CellSize)
	}
	if f.Map.Width <= 0 || f.Map.Height <= 0 {
		return nil, fmt.Errorf("map needs a layout or a positive width and height")
	}
	generator := mapgen.NewGenerator(MapConfig(gen, f.Map.Width, f.Map.Height), rand.New(rand.NewSource(seed)))
	return generator.GenerateMap()
}

// unitTable applies the scenario's stat overrides to the built-in table.
// Only the keys present in an override change.
func (f *File) unitTable() (core.UnitTable, error) {
	table := core.DefaultUnitTable()
	names := make([]string, 0, len(f.Units))
	for name := range f.Units {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := "units." + name
		ut, stats, err := table.Lookup(name)
		if err != nil {
			return nil, core.WrapConfigError(field, err)
		}
		node := f.Units[name]
		if err := node.Decode(&stats); err != nil {
			return nil, core.WrapConfigError(field, err)
		}
		if err := stats.Validate(); err != nil {
			return nil, core.WrapConfigError(field, err)
		}
		table[ut] = stats
	}
	return table, nil
}
