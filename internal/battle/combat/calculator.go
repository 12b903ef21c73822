// Package combat resolves individual attacks. Everything here is a pure
// function of its inputs and the injected random source.
package combat

import (
	"math"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// RandomSource yields uniform draws in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Tuning holds the balance constants of the hit and damage curves.
type Tuning struct {
	BaseHitChance        float64
	AccuracyWeight       float64 // added per point of attacker accuracy
	EvasionWeight        float64 // removed per point of defender evasion
	ArmorWeight          float64 // removed per point of defender defense
	CoverWeight          float64 // removed per point of defender cover
	ElevationHitBonus    float64 // added per unit of height advantage
	MinHitChance         float64
	MaxHitChance         float64
	VarianceLow          float64
	VarianceHigh         float64
	ElevationDamageBonus float64 // damage multiplier gained per unit of height advantage
	MaxElevationBonus    float64
	FlankAngle           float64 // radians off the defender's facing beyond which flanking applies
	FlankMultiplier      float64
	RearAngle            float64
	RearMultiplier       float64
	MinDamage            float64
	DamageMoraleScale    float64 // defender morale lost per unit of damage/max health
	KillMoraleBonus      float64 // attacker morale gained for a killing blow
	WitnessMoralePenalty float64 // morale lost by allies seeing a unit die
	WitnessRadius        float64
}

// DefaultTuning returns the baseline balance values.
func DefaultTuning() Tuning {
	return Tuning{
		BaseHitChance:        0.55,
		AccuracyWeight:       0.4,
		EvasionWeight:        0.4,
		ArmorWeight:          0.01,
		CoverWeight:          0.35,
		ElevationHitBonus:    0.05,
		MinHitChance:         0.05,
		MaxHitChance:         0.95,
		VarianceLow:          0.8,
		VarianceHigh:         1.2,
		ElevationDamageBonus: 0.1,
		MaxElevationBonus:    0.3,
		FlankAngle:           math.Pi / 2,
		FlankMultiplier:      1.5,
		RearAngle:            3 * math.Pi / 4,
		RearMultiplier:       2.0,
		MinDamage:            1,
		DamageMoraleScale:    0.5,
		KillMoraleBonus:      0.02,
		WitnessMoralePenalty: 0.05,
		WitnessRadius:        4,
	}
}

// Combatant is the slice of unit state the calculator reads.
type Combatant struct {
	ID        core.UnitID
	Attack    float64
	Defense   float64
	Accuracy  float64
	Evasion   float64
	Health    float64
	MaxHealth float64
	Position  core.Vec2
	Heading   float64
}

// FromUnit builds a Combatant from a unit.
func FromUnit(u *core.Unit) Combatant {
	return Combatant{
		ID:        u.ID,
		Attack:    u.Stats.Attack,
		Defense:   u.Stats.Defense,
		Accuracy:  u.Stats.Accuracy,
		Evasion:   u.Stats.Evasion,
		Health:    u.Health,
		MaxHealth: u.Stats.MaxHealth,
		Position:  u.Position,
		Heading:   u.Heading,
	}
}

// Modifiers carries terrain and attack-kind context.
type Modifiers struct {
	ElevationDelta float64 // attacker elevation minus defender elevation
	Cover          float64 // defender cover, 0..1
	Ranged         bool    // ranged attacks ignore flanking
}

// Result is the outcome of one attack.
type Result struct {
	IsHit               bool
	Damage              float64
	Killed              bool
	HitChance           float64
	Multiplier          float64
	MoraleDeltaAttacker float64
	MoraleDeltaDefender float64
}

// Calculator applies a Tuning.
type Calculator struct {
	tuning Tuning
}

func NewCalculator(tuning Tuning) *Calculator {
	return &Calculator{tuning: tuning}
}

func (c *Calculator) Tuning() Tuning { return c.tuning }

// HitChance returns the clamped probability that att hits def.
func (c *Calculator) HitChance(att, def Combatant, mods Modifiers) float64 {
	t := c.tuning
	p := t.BaseHitChance +
		t.AccuracyWeight*att.Accuracy -
		t.EvasionWeight*def.Evasion -
		t.ArmorWeight*def.Defense -
		t.CoverWeight*core.Clamp(mods.Cover, 0, 1) +
		t.ElevationHitBonus*mods.ElevationDelta
	return core.Clamp(p, t.MinHitChance, t.MaxHitChance)
}

// ElevationMultiplier rewards height advantage. Attacking uphill never
// reduces damage below the base.
func (c *Calculator) ElevationMultiplier(delta float64) float64 {
	if delta <= 0 {
		return 1
	}
	return 1 + math.Min(delta*c.tuning.ElevationDamageBonus, c.tuning.MaxElevationBonus)
}

// FlankMultiplier compares the direction the blow comes from with the
// defender's facing.
func (c *Calculator) FlankMultiplier(att, def Combatant) float64 {
	toAttacker := att.Position.Sub(def.Position)
	if toAttacker.LenSq() == 0 {
		return 1
	}
	off := core.AngleBetween(toAttacker.Angle(), def.Heading)
	switch {
	case off > c.tuning.RearAngle:
		return c.tuning.RearMultiplier
	case off > c.tuning.FlankAngle:
		return c.tuning.FlankMultiplier
	default:
		return 1
	}
}

// Resolve rolls one attack. It consumes one draw for the hit roll and, on a
// hit, one more for damage variance.
func (c *Calculator) Resolve(att, def Combatant, mods Modifiers, rng RandomSource) Result {
	t := c.tuning
	res := Result{HitChance: c.HitChance(att, def, mods), Multiplier: 1}
	if rng.Float64() >= res.HitChance {
		return res
	}
	res.IsHit = true

	variance := t.VarianceLow + rng.Float64()*(t.VarianceHigh-t.VarianceLow)
	res.Multiplier = c.ElevationMultiplier(mods.ElevationDelta)
	if !mods.Ranged {
		res.Multiplier *= c.FlankMultiplier(att, def)
	}
	res.Damage = math.Max(att.Attack*variance*res.Multiplier, t.MinDamage)

	res.MoraleDeltaDefender = c.DamageMorale(res.Damage, def.MaxHealth)
	if def.Health-res.Damage <= 0 {
		res.Killed = true
		res.MoraleDeltaAttacker = t.KillMoraleBonus
	}
	return res
}

// DamageMorale is the (negative) morale change for taking damage.
func (c *Calculator) DamageMorale(damage, maxHealth float64) float64 {
	if maxHealth <= 0 {
		return 0
	}
	return -c.tuning.DamageMoraleScale * math.Min(damage/maxHealth, 1)
}

// WitnessPenalty is the morale change for an ally dist away from a death.
// It is zero outside WitnessRadius and always smaller in magnitude than
// the damage morale of a killing blow.
func (c *Calculator) WitnessPenalty(dist float64) float64 {
	if dist > c.tuning.WitnessRadius {
		return 0
	}
	return -c.tuning.WitnessMoralePenalty
}

// SplashDamage applies linear falloff: full damage at the impact point,
// zero at the splash radius.
func SplashDamage(base, dist, radius float64) float64 {
	if radius <= 0 || dist >= radius {
		return 0
	}
	if dist < 0 {
		dist = 0
	}
	return base * (1 - dist/radius)
}

// TerrainModifiers reads elevation and cover for an attack from a to d.
func TerrainModifiers(grid *core.TerrainGrid, a, d core.Vec2, ranged bool) Modifiers {
	at := grid.At(grid.CellAt(a))
	dt := grid.At(grid.CellAt(d))
	return Modifiers{
		ElevationDelta: at.Elevation - dt.Elevation,
		Cover:          dt.Cover,
		Ranged:         ranged,
	}
}
