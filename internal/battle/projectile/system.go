// Package projectile simulates ranged munitions in flight.
package projectile

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Config holds projectile knobs.
type Config struct {
	Radius       float64 // collision radius of a projectile
	TTL          float64 // seconds a projectile may fly
	Overshoot    float64 // distance flown past the aim point before landing
	FriendlyFire bool
}

func DefaultConfig() Config {
	return Config{Radius: 0.05, TTL: 4, Overshoot: 1}
}

// Payload is what a projectile carries.
type Payload struct {
	Source        core.UnitID
	SourceFaction core.Faction
	Attacker      combat.Combatant // shooter stats at release
	Target        core.UnitID
	SplashRadius  float64
}

// Projectile is a munition in flight.
type Projectile struct {
	ID         int
	Origin     core.Vec2
	Position   core.Vec2
	Velocity   core.Vec2
	Payload    Payload
	TTL        float64
	Remaining  float64 // distance left before it lands
	originCell core.Cell
}

// Heading returns the direction of travel.
func (p *Projectile) Heading() float64 { return p.Velocity.Angle() }

// World is the battle state a projectile interacts with.
type World interface {
	Terrain() *core.TerrainGrid
	SweptHits(from, to core.Vec2, radius float64) []collision.SweptHit
	QueryRadius(center core.Vec2, r float64) []collision.Neighbor
	Combatant(id core.UnitID) (combat.Combatant, core.Faction, bool)
	ApplyDamage(target, source core.UnitID, damage, moraleDelta float64) bool
}

// ImpactKind says what ended a projectile's flight.
type ImpactKind int

const (
	ImpactUnit ImpactKind = iota
	ImpactTerrain
	ImpactLanded
)

func (k ImpactKind) String() string {
	switch k {
	case ImpactUnit:
		return "unit"
	case ImpactTerrain:
		return "terrain"
	default:
		return "landed"
	}
}

// SplashHit is damage dealt by splash to one unit.
type SplashHit struct {
	Unit     core.UnitID
	Distance float64
	Damage   float64
}

// Impact describes a resolved projectile.
type Impact struct {
	ProjectileID int
	Kind         ImpactKind
	Source       core.UnitID
	Target       core.UnitID // struck unit, zero for terrain or ground
	Point        core.Vec2
	Hit          bool
	Damage       float64
	Killed       bool
	Splash       []SplashHit
}

// System owns every projectile in flight.
type System struct {
	config  Config
	calc    *combat.Calculator
	logger  zerolog.Logger
	active  []*Projectile
	nextID  int
	expired int
}

func New(config Config, calc *combat.Calculator, logger zerolog.Logger) *System {
	return &System{
		config: config,
		calc:   calc,
		logger: logger.With().Str("component", "ProjectileSystem").Logger(),
		nextID: 1,
	}
}

// Spawn launches a projectile from origin toward aim at speed.
func (s *System) Spawn(grid *core.TerrainGrid, origin, aim core.Vec2, speed float64, payload Payload) *Projectile {
	dir := aim.Sub(origin).Normalize()
	if dir == (core.Vec2{}) {
		dir = core.Vec2{X: 1}
	}
	p := &Projectile{
		ID:         s.nextID,
		Origin:     origin,
		Position:   origin,
		Velocity:   dir.Scale(speed),
		Payload:    payload,
		TTL:        s.config.TTL,
		Remaining:  origin.Dist(aim) + s.config.Overshoot,
		originCell: grid.CellAt(origin),
	}
	s.nextID++
	s.active = append(s.active, p)
	return p
}

// Active returns projectiles in flight, in launch order.
func (s *System) Active() []*Projectile { return s.active }

func (s *System) Len() int { return len(s.active) }

// Expired counts projectiles removed without effect.
func (s *System) Expired() int { return s.expired }

// Advance moves every projectile by velocity*dt and resolves impacts along
// the swept path. Resolved and expired projectiles are removed.
func (s *System) Advance(dt float64, world World, rng combat.RandomSource) []Impact {
	var impacts []Impact
	grid := world.Terrain()
	kept := s.active[:0]
	for _, p := range s.active {
		p.TTL -= dt
		if p.TTL <= 0 {
			s.expired++
			continue
		}

		from := p.Position
		step := p.Velocity.Scale(dt)
		stepLen := step.Len()
		if stepLen > p.Remaining {
			step = step.ClampLen(p.Remaining)
			stepLen = p.Remaining
		}
		to := from.Add(step)

		blockT, blocked := s.terrainBlock(grid, p, from, to)
		if imp, ok := s.strike(p, from, to, blockT, blocked, world, rng); ok {
			impacts = append(impacts, imp)
			continue
		}
		if blocked {
			point := from.Add(step.Scale(blockT))
			impacts = append(impacts, s.detonate(p, ImpactTerrain, point, 0, world))
			continue
		}
		if !grid.Contains(to) {
			s.expired++
			continue
		}

		p.Position = to
		p.Remaining -= stepLen
		if p.Remaining <= 1e-9 {
			impacts = append(impacts, s.detonate(p, ImpactLanded, to, 0, world))
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
	return impacts
}

// strike resolves the first living, non-friendly body on the swept path
// that is reached before any terrain block.
func (s *System) strike(p *Projectile, from, to core.Vec2, blockT float64, blocked bool, world World, rng combat.RandomSource) (Impact, bool) {
	for _, h := range world.SweptHits(from, to, s.config.Radius) {
		if blocked && h.T > blockT {
			break
		}
		if h.Body.ID == p.Payload.Source {
			continue
		}
		def, faction, ok := world.Combatant(h.Body.ID)
		if !ok {
			continue
		}
		if !s.config.FriendlyFire && faction == p.Payload.SourceFaction {
			continue
		}

		point := from.Add(to.Sub(from).Scale(h.T))
		mods := combat.TerrainModifiers(world.Terrain(), p.Origin, def.Position, true)
		res := s.calc.Resolve(p.Payload.Attacker, def, mods, rng)

		// The struck unit takes the larger of the direct hit and its own splash.
		var dmg, morale float64
		if res.IsHit {
			dmg, morale = res.Damage, res.MoraleDeltaDefender
		}
		if splash := combat.SplashDamage(p.Payload.Attacker.Attack, point.Dist(def.Position), p.Payload.SplashRadius); splash > dmg {
			dmg, morale = splash, s.calc.DamageMorale(splash, def.MaxHealth)
		}
		var killed bool
		if dmg > 0 {
			killed = world.ApplyDamage(def.ID, p.Payload.Source, dmg, morale)
		}
		imp := s.detonate(p, ImpactUnit, point, def.ID, world)
		imp.Hit = res.IsHit
		imp.Damage = dmg
		imp.Killed = killed
		return imp, true
	}
	return Impact{}, false
}

// detonate applies splash around point, skipping the directly struck unit
// which strike has already damaged.
func (s *System) detonate(p *Projectile, kind ImpactKind, point core.Vec2, struck core.UnitID, world World) Impact {
	imp := Impact{ProjectileID: p.ID, Kind: kind, Source: p.Payload.Source, Target: struck, Point: point}
	r := p.Payload.SplashRadius
	if r <= 0 {
		return imp
	}
	for _, n := range world.QueryRadius(point, r) {
		id := n.Body.ID
		if id == struck {
			continue
		}
		def, faction, ok := world.Combatant(id)
		if !ok {
			continue
		}
		if !s.config.FriendlyFire && faction == p.Payload.SourceFaction {
			continue
		}
		dmg := combat.SplashDamage(p.Payload.Attacker.Attack, n.Distance, r)
		if dmg <= 0 {
			continue
		}
		world.ApplyDamage(id, p.Payload.Source, dmg, s.calc.DamageMorale(dmg, def.MaxHealth))
		imp.Splash = append(imp.Splash, SplashHit{Unit: id, Distance: n.Distance, Damage: dmg})
	}
	sort.Slice(imp.Splash, func(i, j int) bool { return imp.Splash[i].Unit < imp.Splash[j].Unit })
	return imp
}

// terrainBlock walks the segment in quarter-cell steps and reports the
// fraction at which it first enters a projectile-blocking cell. The cell the
// projectile was launched from never blocks.
func (s *System) terrainBlock(grid *core.TerrainGrid, p *Projectile, from, to core.Vec2) (float64, bool) {
	length := from.Dist(to)
	if length == 0 {
		return 0, false
	}
	stepLen := grid.CellSize / 4
	n := int(math.Ceil(length / stepLen))
	for i := 1; i <= n; i++ {
		t := math.Min(float64(i)*stepLen/length, 1)
		c := grid.CellAt(from.Add(to.Sub(from).Scale(t)))
		if c == p.originCell || !grid.InBounds(c) {
			continue
		}
		if grid.At(c).BlocksProjectiles {
			return t, true
		}
	}
	return 0, false
}
