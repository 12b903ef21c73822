package core

import (
	"fmt"
	"sort"
	"strings"
)

// UnitType identifies a row of the unit data table.
type UnitType int

const (
	UnitInfantry UnitType = iota + 1
	UnitSpearmen
	UnitArchers
	UnitCrossbowmen
	UnitCavalry
	UnitCatapult
)

var unitTypeNames = map[UnitType]string{
	UnitInfantry:    "infantry",
	UnitSpearmen:    "spearmen",
	UnitArchers:     "archers",
	UnitCrossbowmen: "crossbowmen",
	UnitCavalry:     "cavalry",
	UnitCatapult:    "catapult",
}

func (t UnitType) String() string {
	if name, ok := unitTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unit_type(%d)", int(t))
}

// ParseUnitType converts a table name to a UnitType.
func ParseUnitType(s string) (UnitType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, name := range unitTypeNames {
		if name == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnitType, s)
}

// UnitStats is one row of the unit data table.
type UnitStats struct {
	MaxHealth       float64 `yaml:"max_health"`
	Attack          float64 `yaml:"attack"`
	Defense         float64 `yaml:"defense"`
	Accuracy        float64 `yaml:"accuracy"`
	Evasion         float64 `yaml:"evasion"`
	Speed           float64 `yaml:"speed"` // world units per second on cost-1 ground
	Range           float64 `yaml:"range"` // reach beyond both body radii
	Radius          float64 `yaml:"radius"`
	AttackCooldown  float64 `yaml:"attack_cooldown"` // seconds
	MoraleThreshold float64 `yaml:"morale_threshold"`
	Value           float64 `yaml:"value"` // morale weight / rank
	Ranged          bool    `yaml:"ranged"`
	ProjectileSpeed float64 `yaml:"projectile_speed"`
	SplashRadius    float64 `yaml:"splash_radius"`
}

// Validate checks that a stats row can be simulated.
func (s UnitStats) Validate() error {
	switch {
	case s.MaxHealth <= 0:
		return fmt.Errorf("max_health must be positive")
	case s.Attack <= 0:
		return fmt.Errorf("attack must be positive")
	case s.Speed < 0:
		return fmt.Errorf("speed must not be negative")
	case s.Range < 0:
		return fmt.Errorf("range must not be negative")
	case s.Radius <= 0:
		return fmt.Errorf("radius must be positive")
	case s.AttackCooldown <= 0:
		return fmt.Errorf("attack_cooldown must be positive")
	case s.MoraleThreshold < 0 || s.MoraleThreshold >= 1:
		return fmt.Errorf("morale_threshold must be in [0,1)")
	case s.Value <= 0:
		return fmt.Errorf("value must be positive")
	case s.Ranged && s.ProjectileSpeed <= 0:
		return fmt.Errorf("ranged units need a positive projectile_speed")
	}
	return nil
}

// UnitTable maps unit types to their base stats.
type UnitTable map[UnitType]UnitStats

// DefaultUnitTable returns the built-in unit data.
func DefaultUnitTable() UnitTable {
	return UnitTable{
		UnitInfantry: {
			MaxHealth: 100, Attack: 10, Defense: 4, Accuracy: 0.7, Evasion: 0.2,
			Speed: 1.5, Range: 0.5, Radius: 0.4, AttackCooldown: 1.0,
			MoraleThreshold: 0.2, Value: 1.0,
		},
		UnitSpearmen: {
			MaxHealth: 110, Attack: 9, Defense: 6, Accuracy: 0.7, Evasion: 0.15,
			Speed: 1.3, Range: 0.9, Radius: 0.4, AttackCooldown: 1.1,
			MoraleThreshold: 0.18, Value: 1.2,
		},
		UnitArchers: {
			MaxHealth: 70, Attack: 8, Defense: 2, Accuracy: 0.6, Evasion: 0.25,
			Speed: 1.5, Range: 10, Radius: 0.35, AttackCooldown: 1.5,
			MoraleThreshold: 0.3, Value: 1.1, Ranged: true, ProjectileSpeed: 12,
		},
		UnitCrossbowmen: {
			MaxHealth: 80, Attack: 14, Defense: 3, Accuracy: 0.65, Evasion: 0.2,
			Speed: 1.2, Range: 12, Radius: 0.35, AttackCooldown: 2.5,
			MoraleThreshold: 0.25, Value: 1.3, Ranged: true, ProjectileSpeed: 16,
		},
		UnitCavalry: {
			MaxHealth: 130, Attack: 13, Defense: 5, Accuracy: 0.7, Evasion: 0.3,
			Speed: 3.0, Range: 0.6, Radius: 0.5, AttackCooldown: 1.2,
			MoraleThreshold: 0.2, Value: 2.0,
		},
		UnitCatapult: {
			MaxHealth: 60, Attack: 25, Defense: 1, Accuracy: 0.5, Evasion: 0.05,
			Speed: 0.6, Range: 20, Radius: 0.5, AttackCooldown: 5,
			MoraleThreshold: 0.3, Value: 2.5, Ranged: true, ProjectileSpeed: 8, SplashRadius: 2,
		},
	}
}

// Lookup resolves a unit type name against the table.
func (t UnitTable) Lookup(name string) (UnitType, UnitStats, error) {
	ut, err := ParseUnitType(name)
	if err != nil {
		return 0, UnitStats{}, err
	}
	stats, ok := t[ut]
	if !ok {
		return 0, UnitStats{}, fmt.Errorf("%w: %q not in unit table", ErrUnknownUnitType, name)
	}
	return ut, stats, nil
}

// Types returns the table's unit types in ascending order.
func (t UnitTable) Types() []UnitType {
	out := make([]UnitType, 0, len(t))
	for ut := range t {
		out = append(out, ut)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the table.
func (t UnitTable) Clone() UnitTable {
	out := make(UnitTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
