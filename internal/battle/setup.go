package battle

import (
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/formation"
)

// UnitCount is one line of a formation roster.
type UnitCount struct {
	Type  string
	Count int
}

// FormationSetup places one formation at battle start.
type FormationSetup struct {
	Shape  formation.Shape
	Anchor core.Vec2
	Facing float64 // radians
	Roster []UnitCount
}

// ArmySetup describes one side.
type ArmySetup struct {
	Faction    core.Faction
	Fallback   core.Vec2 // retreat destination
	AI         bool      // controlled by an AI controller when AI is enabled
	Formations []FormationSetup
}

// Setup is the battle-start configuration.
type Setup struct {
	ID      string // generated when empty
	Seed    int64
	Terrain *core.TerrainGrid
	Units   core.UnitTable // nil uses the built-in table
	Armies  []ArmySetup
}

// Validate checks that every reference in the setup resolves. All failures
// match core.ErrConfiguration.
func (s Setup) Validate() error {
	if err := s.Terrain.Validate(); err != nil {
		return core.WrapConfigError("terrain", err)
	}
	table := s.Units
	if table == nil {
		table = core.DefaultUnitTable()
	}
	for _, ut := range table.Types() {
		if err := table[ut].Validate(); err != nil {
			return core.WrapConfigError(fmt.Sprintf("units.%s", ut), err)
		}
	}

	if len(s.Armies) < 2 {
		return core.WrapConfigError("armies", fmt.Errorf("need at least two armies, got %d", len(s.Armies)))
	}
	seen := make(map[core.Faction]bool, len(s.Armies))
	for i, a := range s.Armies {
		field := fmt.Sprintf("armies[%d]", i)
		if a.Faction == "" {
			return core.WrapConfigError(field+".faction", fmt.Errorf("%w: empty faction", core.ErrUnknownFaction))
		}
		if seen[a.Faction] {
			return core.WrapConfigError(field+".faction", fmt.Errorf("duplicate faction %q", a.Faction))
		}
		seen[a.Faction] = true

		if !s.Terrain.Contains(a.Fallback) {
			return core.WrapConfigError(field+".fallback", fmt.Errorf("point %s is outside the map", a.Fallback))
		}
		if len(a.Formations) == 0 {
			return core.WrapConfigError(field+".formations", errors.New("army has no formations"))
		}
		for j, f := range a.Formations {
			if err := s.validateFormation(table, f); err != nil {
				return core.WrapConfigError(fmt.Sprintf("%s.formations[%d]", field, j), err)
			}
		}
	}
	return nil
}

func (s Setup) validateFormation(table core.UnitTable, f FormationSetup) error {
	if !s.Terrain.Contains(f.Anchor) {
		return fmt.Errorf("anchor %s is outside the map", f.Anchor)
	}
	if len(f.Roster) == 0 {
		return errors.New("empty roster")
	}
	for _, line := range f.Roster {
		if line.Count <= 0 {
			return fmt.Errorf("%s count must be positive, got %d", line.Type, line.Count)
		}
		if _, _, err := table.Lookup(line.Type); err != nil {
			return err
		}
	}
	return nil
}

// TotalUnits returns the number of units the setup places.
func (s Setup) TotalUnits() int {
	n := 0
	for _, a := range s.Armies {
		for _, f := range a.Formations {
			for _, line := range f.Roster {
				n += line.Count
			}
		}
	}
	return n
}
