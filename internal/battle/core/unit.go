package core

import "fmt"

// UnitID identifies a unit for the lifetime of a battle. Zero means none.
type UnitID int

// FormationID identifies a formation. Zero means none.
type FormationID int

// Faction identifies a side in the battle.
type Faction string

// OrderKind is the closed set of orders a unit can carry.
type OrderKind int

const (
	OrderIdle OrderKind = iota
	OrderMoveTo
	OrderAttack
	OrderHoldFormation
	OrderRetreat
)

func (k OrderKind) String() string {
	switch k {
	case OrderIdle:
		return "Idle"
	case OrderMoveTo:
		return "MoveTo"
	case OrderAttack:
		return "Attack"
	case OrderHoldFormation:
		return "HoldFormation"
	case OrderRetreat:
		return "Retreat"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// IsOffensive reports whether the order commits units toward the enemy.
// Routed armies may not receive offensive orders.
func (k OrderKind) IsOffensive() bool {
	return k == OrderAttack || k == OrderMoveTo
}

// Order is an instruction carried by a unit.
type Order struct {
	Kind            OrderKind
	Target          Vec2        // destination for MoveTo / Retreat, last known position for Attack
	Facing          float64     // formation facing on arrival
	TargetUnit      UnitID      // Attack: specific unit, if any
	TargetFormation FormationID // Attack: enemy formation, if any
}

func (o Order) String() string {
	switch o.Kind {
	case OrderAttack:
		return fmt.Sprintf("Attack(formation=%d unit=%d)", o.TargetFormation, o.TargetUnit)
	case OrderMoveTo, OrderRetreat:
		return fmt.Sprintf("%s%s", o.Kind, o.Target)
	default:
		return o.Kind.String()
	}
}

// UnitState is the per-unit state machine state.
type UnitState int

const (
	StateIdle UnitState = iota
	StateMoving
	StateEngaging
	StateRouting
	StateDead
)

func (s UnitState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateMoving:
		return "Moving"
	case StateEngaging:
		return "Engaging"
	case StateRouting:
		return "Routing"
	case StateDead:
		return "Dead"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Route is a planned path. Waypoints never include the start cell and are
// always passable at the terrain Revision the route was planned against.
type Route struct {
	Waypoints []Cell
	Cost      float64
	Goal      Cell // cell actually routed to
	Requested Cell // cell originally asked for (differs when the goal was substituted)
	Revision  int
	Planned   bool
}

func (r Route) Empty() bool { return len(r.Waypoints) == 0 }

// Unit is the runtime state of one soldier entity.
type Unit struct {
	ID      UnitID
	Faction Faction
	Type    UnitType
	Stats   UnitStats

	Health   float64
	Morale   float64 // 0..1
	Position Vec2
	Heading  float64
	State    UnitState
	Order    Order

	FormationID FormationID
	Slot        int

	Goal    Vec2
	HasGoal bool

	Route        Route
	RouteCursor  int
	BlockedTicks int
	RetryAt      int // tick before which pathfinding is not retried after NoPath

	Cooldown    float64
	EngagedWith UnitID
	Straggling  bool
	DiedAt      int
}

// NewUnit creates a unit at full health and morale.
func NewUnit(id UnitID, faction Faction, ut UnitType, stats UnitStats, pos Vec2, heading float64) *Unit {
	return &Unit{
		ID:       id,
		Faction:  faction,
		Type:     ut,
		Stats:    stats,
		Health:   stats.MaxHealth,
		Morale:   1,
		Position: pos,
		Heading:  heading,
		State:    StateIdle,
		Slot:     -1,
		DiedAt:   -1,
	}
}

func (u *Unit) Alive() bool { return u.State != StateDead }

// CanFight reports whether the unit may start or continue engagements.
func (u *Unit) CanFight() bool { return u.State != StateDead && u.State != StateRouting }

func (u *Unit) HealthFraction() float64 {
	if u.Stats.MaxHealth <= 0 {
		return 0
	}
	return Clamp(u.Health/u.Stats.MaxHealth, 0, 1)
}

// Strength is health fraction times base attack.
func (u *Unit) Strength() float64 {
	if !u.Alive() {
		return 0
	}
	return u.HealthFraction() * u.Stats.Attack
}

// ClearRoute drops any planned path.
func (u *Unit) ClearRoute() {
	u.Route = Route{}
	u.RouteCursor = 0
	u.BlockedTicks = 0
}

// NextWaypoint returns the next cell on the route.
func (u *Unit) NextWaypoint() (Cell, bool) {
	if u.RouteCursor >= len(u.Route.Waypoints) {
		return Cell{}, false
	}
	return u.Route.Waypoints[u.RouteCursor], true
}

func (u *Unit) String() string {
	return fmt.Sprintf("unit %d (%s %s)", u.ID, u.Faction, u.Type)
}
