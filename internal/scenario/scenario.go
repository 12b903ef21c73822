// Package scenario reads battle-start configurations from YAML files: the
// terrain (an ASCII layout or generator settings), unit table overrides and
// the armies with their starting formations.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML structure of a scenario.
type File struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	Seed        int64                `yaml:"seed,omitempty"`
	Map         MapSpec              `yaml:"map"`
	Units       map[string]yaml.Node `yaml:"units,omitempty"` // per-type stat overrides
	Armies      []ArmySpec           `yaml:"armies"`
}

// MapSpec gives either an ASCII layout or the size of a generated map.
type MapSpec struct {
	Layout   string  `yaml:"layout,omitempty"`
	Width    int     `yaml:"width,omitempty"`
	Height   int     `yaml:"height,omitempty"`
	CellSize float64 `yaml:"cell_size,omitempty"`
}

// ArmySpec is one side of the scenario.
type ArmySpec struct {
	Faction    string          `yaml:"faction"`
	AI         bool            `yaml:"ai"`
	Fallback   Point           `yaml:"fallback"`
	Formations []FormationSpec `yaml:"formations"`
}

// FormationSpec places one formation. Facing is in degrees, 0 facing east
// and 90 facing south (y grows downward).
type FormationSpec struct {
	Shape  string      `yaml:"shape"`
	Anchor Point       `yaml:"anchor"`
	Facing float64     `yaml:"facing"`
	Roster []RosterRow `yaml:"roster"`
}

// RosterRow is a unit type and how many of it.
type RosterRow struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// Point is a world position written as [x, y].
type Point [2]float64

// Parse decodes a scenario. Unknown keys are rejected so typos surface
// instead of silently falling back to defaults.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("yaml unmarshal: empty scenario")
		}
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if f.ID == "" {
		return nil, errors.New("scenario has no id")
	}
	return &f, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	return f, nil
}

// UnitCount returns the number of units the scenario deploys.
func (f *File) UnitCount() int {
	n := 0
	for _, a := range f.Armies {
		for _, fm := range a.Formations {
			for _, r := range fm.Roster {
				n += r.Count
			}
		}
	}
	return n
}
