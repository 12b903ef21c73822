// Package soldier owns per-unit runtime state and drives each unit through
// Idle, Moving, Engaging, Routing and Dead.
package soldier

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/pathfind"
)

// Config holds soldier movement and engagement knobs.
type Config struct {
	ArrivalTolerance    float64 // distance at which a goal counts as reached
	RoutSpeedMultiplier float64
	ThreatRadius        float64 // enemies a routing unit flees from
	MeleeReach          float64 // contact reach of ranged units
	BlockedEpsilon      float64 // per-tick progress below which a unit counts as blocked
	NoPathBackoffTicks  int
}

func DefaultConfig() Config {
	return Config{
		ArrivalTolerance:    0.1,
		RoutSpeedMultiplier: 1.5,
		ThreatRadius:        8,
		MeleeReach:          0.3,
		BlockedEpsilon:      1e-3,
		NoPathBackoffTicks:  20,
	}
}

// Death records a unit killed during a tick.
type Death struct {
	Unit     core.UnitID
	Faction  core.Faction
	Killer   core.UnitID
	Tick     int
	Position core.Vec2
}

// Attack records one melee resolution.
type Attack struct {
	Attacker core.UnitID
	Defender core.UnitID
	Result   combat.Result
}

// SpawnFunc launches a projectile from shooter at target.
type SpawnFunc func(shooter, target *core.Unit)

// Manager holds every unit of the battle, living and dead.
type Manager struct {
	config Config
	grid   *core.TerrainGrid
	paths  *pathfind.Pathfinder
	calc   *combat.Calculator
	logger zerolog.Logger

	units     map[core.UnitID]*core.Unit
	order     []core.UnitID
	lastPos   map[core.UnitID]core.Vec2
	tick      int
	deaths    []Death
	deadCount int
}

func NewManager(config Config, grid *core.TerrainGrid, paths *pathfind.Pathfinder, calc *combat.Calculator, logger zerolog.Logger) *Manager {
	return &Manager{
		config:  config,
		grid:    grid,
		paths:   paths,
		calc:    calc,
		logger:  logger.With().Str("component", "SoldierManager").Logger(),
		units:   make(map[core.UnitID]*core.Unit),
		lastPos: make(map[core.UnitID]core.Vec2),
	}
}

// Add registers a unit. IDs must be unique.
func (m *Manager) Add(u *core.Unit) error {
	if _, exists := m.units[u.ID]; exists {
		return fmt.Errorf("unit %d already registered", u.ID)
	}
	m.units[u.ID] = u
	i := sort.Search(len(m.order), func(i int) bool { return m.order[i] >= u.ID })
	m.order = append(m.order, 0)
	copy(m.order[i+1:], m.order[i:])
	m.order[i] = u.ID
	m.lastPos[u.ID] = u.Position
	return nil
}

func (m *Manager) Unit(id core.UnitID) (*core.Unit, bool) {
	u, ok := m.units[id]
	return u, ok
}

// Units returns every unit in id order.
func (m *Manager) Units() []*core.Unit {
	out := make([]*core.Unit, len(m.order))
	for i, id := range m.order {
		out[i] = m.units[id]
	}
	return out
}

func (m *Manager) DeadCount() int { return m.deadCount }

// BeginTick sets the tick stamped on deaths.
func (m *Manager) BeginTick(tick int) { m.tick = tick }

// DrainDeaths returns and clears deaths recorded since the last drain.
func (m *Manager) DrainDeaths() []Death {
	d := m.deaths
	m.deaths = nil
	return d
}

// ApplyOrder gives a unit a new order. Dead and routing units refuse.
func (m *Manager) ApplyOrder(id core.UnitID, order core.Order) error {
	u, ok := m.units[id]
	if !ok {
		return fmt.Errorf("unit %d: %w", id, core.ErrInvalidOrder)
	}
	if !u.Alive() {
		return fmt.Errorf("unit %d: %w", id, core.ErrUnitDead)
	}
	if u.State == core.StateRouting {
		return fmt.Errorf("unit %d is routing: %w", id, core.ErrInvalidOrder)
	}

	u.Order = order
	switch order.Kind {
	case core.OrderIdle:
		m.ClearGoal(id)
	case core.OrderMoveTo, core.OrderRetreat, core.OrderAttack:
		m.SetGoal(id, order.Target)
	}
	if order.Kind == core.OrderRetreat && u.State == core.StateEngaging {
		m.disengage(u)
	}
	return nil
}

// SetGoal points a unit at a world position. The route is replanned on the
// next refresh only if the recompute policy asks for it.
func (m *Manager) SetGoal(id core.UnitID, goal core.Vec2) {
	u, ok := m.units[id]
	if !ok || !u.Alive() || u.State == core.StateRouting {
		return
	}
	u.Goal = m.grid.ClampPoint(goal)
	u.HasGoal = true
}

// ClearGoal stops a unit where it stands.
func (m *Manager) ClearGoal(id core.UnitID) {
	u, ok := m.units[id]
	if !ok {
		return
	}
	u.HasGoal = false
	u.ClearRoute()
	if u.State == core.StateMoving {
		u.State = core.StateIdle
	}
}

// SetStraggling marks a unit as out of formation cohesion.
func (m *Manager) SetStraggling(id core.UnitID, straggling bool) {
	if u, ok := m.units[id]; ok {
		u.Straggling = straggling
	}
}

// RefreshRoutes plans or replans routes for units with goals. A unit that
// cannot be routed stays Idle where it is and retries after a backoff.
func (m *Manager) RefreshRoutes(tick int) {
	for _, id := range m.order {
		u := m.units[id]
		if !u.Alive() {
			continue
		}
		if u.State == core.StateMoving {
			if u.Position.Dist(m.lastPos[id]) < m.config.BlockedEpsilon {
				u.BlockedTicks++
			} else {
				u.BlockedTicks = 0
			}
		}
		m.lastPos[id] = u.Position

		if !u.HasGoal || u.State == core.StateRouting || u.State == core.StateEngaging || tick < u.RetryAt {
			continue
		}
		if u.Position.Dist(u.Goal) <= m.config.ArrivalTolerance {
			if u.State == core.StateMoving {
				m.arrive(u)
			}
			continue
		}

		goalCell := m.grid.CellAt(u.Goal)
		if !m.paths.NeedsRecompute(u.Route, goalCell, u.BlockedTicks) {
			if u.State == core.StateIdle {
				u.State = core.StateMoving
			}
			continue
		}

		route, err := m.paths.FindRoute(m.grid.CellAt(u.Position), goalCell)
		if err != nil {
			u.ClearRoute()
			u.RetryAt = tick + m.config.NoPathBackoffTicks
			if u.State == core.StateMoving {
				u.State = core.StateIdle
			}
			m.logger.Debug().
				Err(err).
				Int("unit_id", int(u.ID)).
				Str("goal", goalCell.String()).
				Int("retry_at", u.RetryAt).
				Msg("Unit holding position, no route")
			continue
		}
		u.Route = route
		u.RouteCursor = 0
		u.BlockedTicks = 0
		if u.State == core.StateIdle {
			u.State = core.StateMoving
		}
	}
}

// Advance moves Moving units along their routes and Routing units away from
// the enemy.
func (m *Manager) Advance(dt float64) {
	for _, id := range m.order {
		u := m.units[id]
		switch u.State {
		case core.StateMoving:
			m.follow(u, dt)
		case core.StateRouting:
			m.flee(u, dt)
		}
	}
}

func (m *Manager) speedAt(u *core.Unit, mult float64) float64 {
	cost := m.grid.Cost(m.grid.CellAt(u.Position))
	if math.IsInf(cost, 1) || cost <= 0 {
		cost = 1
	}
	return u.Stats.Speed * mult / cost
}

// finalPoint is the exact goal when it lies in the routed goal cell,
// otherwise the centre of the substitute cell.
func (m *Manager) finalPoint(u *core.Unit) core.Vec2 {
	if m.grid.CellAt(u.Goal) == u.Route.Goal {
		return u.Goal
	}
	return m.grid.Center(u.Route.Goal)
}

func (m *Manager) follow(u *core.Unit, dt float64) {
	if !u.Route.Planned {
		return
	}
	budget := m.speedAt(u, 1) * dt
	for budget > 0 {
		var point core.Vec2
		last := u.RouteCursor >= len(u.Route.Waypoints)-1
		if last {
			point = m.finalPoint(u)
		} else {
			point = m.grid.Center(u.Route.Waypoints[u.RouteCursor])
		}

		delta := point.Sub(u.Position)
		d := delta.Len()
		if d > 0 {
			u.Heading = delta.Angle()
		}
		if d > budget {
			u.Position = u.Position.Add(delta.Scale(budget / d))
			return
		}
		u.Position = point
		budget -= d
		if last {
			m.arrive(u)
			return
		}
		u.RouteCursor++
	}
}

func (m *Manager) arrive(u *core.Unit) {
	u.ClearRoute()
	u.HasGoal = false
	u.State = core.StateIdle
	if u.Order.Kind == core.OrderMoveTo || u.Order.Kind == core.OrderRetreat {
		u.Heading = u.Order.Facing
	}
}

// threatCenter is the centroid of living enemies within ThreatRadius, or
// of all living enemies when none are close.
func (m *Manager) threatCenter(u *core.Unit) (core.Vec2, bool) {
	var near, all core.Vec2
	nNear, nAll := 0, 0
	for _, id := range m.order {
		e := m.units[id]
		if !e.Alive() || e.Faction == u.Faction {
			continue
		}
		all = all.Add(e.Position)
		nAll++
		if e.Position.Dist(u.Position) <= m.config.ThreatRadius {
			near = near.Add(e.Position)
			nNear++
		}
	}
	switch {
	case nNear > 0:
		return near.Scale(1 / float64(nNear)), true
	case nAll > 0:
		return all.Scale(1 / float64(nAll)), true
	}
	return core.Vec2{}, false
}

func (m *Manager) flee(u *core.Unit, dt float64) {
	dir := core.FromAngle(u.Heading)
	if threat, ok := m.threatCenter(u); ok {
		if away := u.Position.Sub(threat).Normalize(); away != (core.Vec2{}) {
			dir = away
		}
	}
	u.Heading = dir.Angle()
	step := dir.Scale(m.speedAt(u, m.config.RoutSpeedMultiplier) * dt)

	// Slide along walls and map edges one axis at a time.
	for _, s := range []core.Vec2{step, {X: step.X}, {Y: step.Y}} {
		next := m.grid.ClampPoint(u.Position.Add(s))
		if next != u.Position && m.grid.PassableAt(next) {
			u.Position = next
			return
		}
	}
}

// reach is how far beyond both radii a unit can strike.
func (m *Manager) reach(u *core.Unit) float64 {
	return u.Stats.Range
}

// contactReach is the melee reach used for collision bodies.
func (m *Manager) contactReach(u *core.Unit) float64 {
	if u.Stats.Ranged {
		return m.config.MeleeReach
	}
	return u.Stats.Range
}

func (m *Manager) inReach(u, t *core.Unit, reach float64) bool {
	return u.Position.Dist(t.Position) <= u.Stats.Radius+t.Stats.Radius+reach
}

// Bodies returns collision bodies for living units in id order.
func (m *Manager) Bodies() []collision.Body {
	bodies := make([]collision.Body, 0, len(m.order))
	for _, id := range m.order {
		u := m.units[id]
		if !u.Alive() {
			continue
		}
		bodies = append(bodies, collision.Body{
			ID:      u.ID,
			Faction: u.Faction,
			Center:  u.Position,
			Radius:  u.Stats.Radius,
			Reach:   m.contactReach(u),
		})
	}
	return bodies
}

// ApplyPushes moves units apart, refusing pushes into impassable terrain.
func (m *Manager) ApplyPushes(pushes []collision.Push) {
	for _, p := range pushes {
		u, ok := m.units[p.ID]
		if !ok || !u.Alive() {
			continue
		}
		next := m.grid.ClampPoint(u.Position.Add(p.Delta))
		if m.grid.PassableAt(next) {
			u.Position = next
		}
	}
}

// AcquireTargets starts, keeps, or drops engagements. Melee contacts come
// from the collision engagements; ranged units also scan their weapon range.
// Idle and holding units defend themselves. Routing units and units
// withdrawing under a Retreat order never start an engagement.
func (m *Manager) AcquireTargets(engagements []collision.Engagement, col *collision.System) {
	contacts := make(map[core.UnitID][]core.UnitID)
	for _, e := range engagements {
		a, b := m.units[e.A], m.units[e.B]
		if a == nil || b == nil {
			continue
		}
		if m.inReach(a, b, m.contactReach(a)) {
			contacts[a.ID] = append(contacts[a.ID], b.ID)
		}
		if m.inReach(b, a, m.contactReach(b)) {
			contacts[b.ID] = append(contacts[b.ID], a.ID)
		}
	}

	for _, id := range m.order {
		u := m.units[id]
		if !u.CanFight() {
			continue
		}
		if u.State == core.StateEngaging {
			if t, ok := m.units[u.EngagedWith]; ok && t.Alive() && m.inReach(u, t, m.reach(u)) {
				continue
			}
			m.disengage(u)
		}
		if u.Order.Kind == core.OrderRetreat && u.State == core.StateMoving {
			continue
		}
		if t := m.pickTarget(u, contacts[id], col); t != nil {
			m.engage(u, t)
		}
	}
}

func (m *Manager) pickTarget(u *core.Unit, contacts []core.UnitID, col *collision.System) *core.Unit {
	if u.Order.Kind == core.OrderAttack && u.Order.TargetUnit != 0 {
		if t, ok := m.units[u.Order.TargetUnit]; ok && t.Alive() && m.inReach(u, t, m.reach(u)) {
			return t
		}
	}

	candidates := append([]core.UnitID(nil), contacts...)
	if u.Stats.Ranged && !u.Straggling && col != nil {
		for _, n := range col.QueryRadius(u.Position, u.Stats.Range+u.Stats.Radius) {
			if n.Body.Faction != u.Faction {
				candidates = append(candidates, n.Body.ID)
			}
		}
	}

	var best *core.Unit
	bestDist := math.Inf(1)
	for _, cid := range candidates {
		t, ok := m.units[cid]
		if !ok || !t.Alive() || t.Faction == u.Faction || !m.inReach(u, t, m.reach(u)) {
			continue
		}
		d := u.Position.Dist(t.Position)
		switch {
		case best == nil, d < bestDist:
		case d == bestDist && (t.Health < best.Health || (t.Health == best.Health && t.ID < best.ID)):
		default:
			continue
		}
		best, bestDist = t, d
	}
	return best
}

func (m *Manager) engage(u, t *core.Unit) {
	u.State = core.StateEngaging
	u.EngagedWith = t.ID
	u.Heading = t.Position.Sub(u.Position).Angle()
	m.logger.Debug().
		Int("unit_id", int(u.ID)).
		Int("target_id", int(t.ID)).
		Msg("Unit engaging")
}

// disengage drops the current target. The unit resumes its route if it
// still has somewhere to go.
func (m *Manager) disengage(u *core.Unit) {
	u.EngagedWith = 0
	if u.State != core.StateEngaging {
		return
	}
	if u.HasGoal {
		u.State = core.StateMoving
	} else {
		u.State = core.StateIdle
	}
}

// ResolveAttacks lets every engaging unit whose cooldown has elapsed strike
// its target. Melee blows resolve immediately in id order; ranged units
// out of contact hand off to spawn.
func (m *Manager) ResolveAttacks(dt float64, rng combat.RandomSource, spawn SpawnFunc) []Attack {
	var attacks []Attack
	for _, id := range m.order {
		u := m.units[id]
		if u.State != core.StateEngaging {
			continue
		}
		t, ok := m.units[u.EngagedWith]
		if !ok || !t.Alive() {
			m.disengage(u)
			continue
		}
		u.Heading = t.Position.Sub(u.Position).Angle()
		u.Cooldown -= dt
		if u.Cooldown > 1e-9 {
			continue
		}
		u.Cooldown = u.Stats.AttackCooldown

		if u.Stats.Ranged && !m.inReach(u, t, m.config.MeleeReach) {
			if spawn != nil {
				spawn(u, t)
			}
			continue
		}

		mods := combat.TerrainModifiers(m.grid, u.Position, t.Position, false)
		res := m.calc.Resolve(combat.FromUnit(u), combat.FromUnit(t), mods, rng)
		u.Morale = core.Clamp(u.Morale+res.MoraleDeltaAttacker, 0, 1)
		if res.IsHit {
			m.ApplyDamage(t.ID, u.ID, res.Damage, res.MoraleDeltaDefender)
		}
		attacks = append(attacks, Attack{Attacker: u.ID, Defender: t.ID, Result: res})
	}
	return attacks
}

// ApplyDamage lowers health, floored at zero, and shifts morale. It reports
// whether the blow killed the unit. Damage to dead units is ignored.
func (m *Manager) ApplyDamage(target, source core.UnitID, damage, moraleDelta float64) bool {
	u, ok := m.units[target]
	if !ok || !u.Alive() {
		return false
	}
	u.Health = math.Max(u.Health-math.Max(damage, 0), 0)
	u.Morale = core.Clamp(u.Morale+moraleDelta, 0, 1)
	if u.Health > 0 {
		return false
	}
	m.kill(u, source)
	return true
}

func (m *Manager) kill(u *core.Unit, killer core.UnitID) {
	u.State = core.StateDead
	u.DiedAt = m.tick
	u.EngagedWith = 0
	u.HasGoal = false
	u.ClearRoute()
	m.deadCount++
	m.deaths = append(m.deaths, Death{Unit: u.ID, Faction: u.Faction, Killer: killer, Tick: m.tick, Position: u.Position})

	for _, id := range m.order {
		ally := m.units[id]
		if ally == u || !ally.Alive() || ally.Faction != u.Faction {
			continue
		}
		if p := m.calc.WitnessPenalty(ally.Position.Dist(u.Position)); p != 0 {
			ally.Morale = core.Clamp(ally.Morale+p, 0, 1)
		}
	}

	m.logger.Debug().
		Int("unit_id", int(u.ID)).
		Int("killer_id", int(killer)).
		Int("tick", m.tick).
		Msg("Unit killed")
}

// CheckMorale routs every fighting unit whose morale fell below its
// threshold and returns them.
func (m *Manager) CheckMorale() []core.UnitID {
	var routed []core.UnitID
	for _, id := range m.order {
		u := m.units[id]
		if u.CanFight() && u.Morale < u.Stats.MoraleThreshold {
			m.rout(u)
			routed = append(routed, id)
		}
	}
	return routed
}

// ForceRout sends the given units fleeing and returns those newly routed.
func (m *Manager) ForceRout(ids []core.UnitID) []core.UnitID {
	var routed []core.UnitID
	for _, id := range ids {
		if u, ok := m.units[id]; ok && u.CanFight() {
			m.rout(u)
			routed = append(routed, id)
		}
	}
	return routed
}

func (m *Manager) rout(u *core.Unit) {
	u.State = core.StateRouting
	u.EngagedWith = 0
	u.HasGoal = false
	u.Straggling = false
	u.ClearRoute()
}
