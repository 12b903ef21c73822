package events

import (
	"time"
)

// Event type constants
const (
	TypeBattleStarted    = "battle.started"
	TypeBattleConcluded  = "battle.concluded"
	TypeTickStarted      = "tick.started"
	TypeTickEnded        = "tick.ended"
	TypeOrderIssued      = "order.issued"
	TypeOrderRejected    = "order.rejected"
	TypeCombatResolved   = "combat.resolved"
	TypeProjectileImpact = "projectile.impact"
	TypeUnitKilled       = "unit.killed"
	TypeUnitRouted       = "unit.routed"
	TypeArmyRouted       = "army.routed"
	TypeStateTransition  = "state.transition"
)

// BattleStartedEvent is published when Setup finishes and the first tick is allowed
type BattleStartedEvent struct {
	BaseEvent
	Factions  []string
	Units     int
	MapWidth  int
	MapHeight int
	Seed      int64
}

func NewBattleStartedEvent(battleID string, factions []string, units, width, height int, seed int64) *BattleStartedEvent {
	return &BattleStartedEvent{
		BaseEvent: newBase(TypeBattleStarted, battleID, 0),
		Factions:  factions,
		Units:     units,
		MapWidth:  width,
		MapHeight: height,
		Seed:      seed,
	}
}

// BattleConcludedEvent is published once, on the tick the battle ends
type BattleConcludedEvent struct {
	BaseEvent
	Winner     string // empty on stalemate or mutual destruction
	Stalemate  bool
	Reason     string
	Casualties map[string]int
	Duration   time.Duration
}

func NewBattleConcludedEvent(battleID string, tick int, winner string, stalemate bool, reason string, casualties map[string]int, duration time.Duration) *BattleConcludedEvent {
	return &BattleConcludedEvent{
		BaseEvent:  newBase(TypeBattleConcluded, battleID, tick),
		Winner:     winner,
		Stalemate:  stalemate,
		Reason:     reason,
		Casualties: casualties,
		Duration:   duration,
	}
}

// TickStartedEvent is published before the pipeline runs
type TickStartedEvent struct {
	BaseEvent
	Commands int
}

func NewTickStartedEvent(battleID string, tick, commands int) *TickStartedEvent {
	return &TickStartedEvent{
		BaseEvent: newBase(TypeTickStarted, battleID, tick),
		Commands:  commands,
	}
}

// TickEndedEvent is published after the terminal check
type TickEndedEvent struct {
	BaseEvent
	Living        int
	Dead          int
	Projectiles   int
	ProcessedTime time.Duration
}

func NewTickEndedEvent(battleID string, tick, living, dead, projectiles int, processed time.Duration) *TickEndedEvent {
	return &TickEndedEvent{
		BaseEvent:     newBase(TypeTickEnded, battleID, tick),
		Living:        living,
		Dead:          dead,
		Projectiles:   projectiles,
		ProcessedTime: processed,
	}
}

// OrderIssuedEvent is published when an order reaches at least one unit
type OrderIssuedEvent struct {
	BaseEvent
	Faction   string
	Group     string
	Order     string
	Recipient int
}

func NewOrderIssuedEvent(battleID string, tick int, faction, group, order string, recipients int) *OrderIssuedEvent {
	return &OrderIssuedEvent{
		BaseEvent: newBase(TypeOrderIssued, battleID, tick),
		Faction:   faction,
		Group:     group,
		Order:     order,
		Recipient: recipients,
	}
}

// OrderRejectedEvent is published when an order is refused. Rejections never
// fail the tick.
type OrderRejectedEvent struct {
	BaseEvent
	Faction string
	Group   string
	Order   string
	Reason  string
}

func NewOrderRejectedEvent(battleID string, tick int, faction, group, order, reason string) *OrderRejectedEvent {
	return &OrderRejectedEvent{
		BaseEvent: newBase(TypeOrderRejected, battleID, tick),
		Faction:   faction,
		Group:     group,
		Order:     order,
		Reason:    reason,
	}
}

// CombatResolvedEvent is published for each melee blow
type CombatResolvedEvent struct {
	BaseEvent
	AttackerID int
	DefenderID int
	Hit        bool
	Damage     float64
	HitChance  float64
	Multiplier float64
}

func NewCombatResolvedEvent(battleID string, tick, attacker, defender int, hit bool, damage, hitChance, multiplier float64) *CombatResolvedEvent {
	return &CombatResolvedEvent{
		BaseEvent:  newBase(TypeCombatResolved, battleID, tick),
		AttackerID: attacker,
		DefenderID: defender,
		Hit:        hit,
		Damage:     damage,
		HitChance:  hitChance,
		Multiplier: multiplier,
	}
}

// ProjectileImpactEvent is published when a projectile strikes a unit,
// terrain, or the ground
type ProjectileImpactEvent struct {
	BaseEvent
	ProjectileID int
	Kind         string
	SourceID     int
	TargetID     int
	X, Y         float64
	Hit          bool
	Damage       float64
	SplashHits   int
}

func NewProjectileImpactEvent(battleID string, tick, projectileID int, kind string, source, target int, x, y float64, hit bool, damage float64, splash int) *ProjectileImpactEvent {
	return &ProjectileImpactEvent{
		BaseEvent:    newBase(TypeProjectileImpact, battleID, tick),
		ProjectileID: projectileID,
		Kind:         kind,
		SourceID:     source,
		TargetID:     target,
		X:            x,
		Y:            y,
		Hit:          hit,
		Damage:       damage,
		SplashHits:   splash,
	}
}

// UnitKilledEvent is published when a unit's health reaches zero
type UnitKilledEvent struct {
	BaseEvent
	UnitID   int
	Faction  string
	KillerID int
	X, Y     float64
}

func NewUnitKilledEvent(battleID string, tick, unitID int, faction string, killer int, x, y float64) *UnitKilledEvent {
	return &UnitKilledEvent{
		BaseEvent: newBase(TypeUnitKilled, battleID, tick),
		UnitID:    unitID,
		Faction:   faction,
		KillerID:  killer,
		X:         x,
		Y:         y,
	}
}

// UnitRoutedEvent is published when a unit breaks and flees
type UnitRoutedEvent struct {
	BaseEvent
	UnitID  int
	Faction string
	Morale  float64
	Forced  bool // routed because the whole army broke
}

func NewUnitRoutedEvent(battleID string, tick, unitID int, faction string, morale float64, forced bool) *UnitRoutedEvent {
	return &UnitRoutedEvent{
		BaseEvent: newBase(TypeUnitRouted, battleID, tick),
		UnitID:    unitID,
		Faction:   faction,
		Morale:    morale,
		Forced:    forced,
	}
}

// ArmyRoutedEvent is published when an army's aggregate morale breaks
type ArmyRoutedEvent struct {
	BaseEvent
	Faction   string
	Morale    float64
	Threshold float64
	Units     int
}

func NewArmyRoutedEvent(battleID string, tick int, faction string, morale, threshold float64, units int) *ArmyRoutedEvent {
	return &ArmyRoutedEvent{
		BaseEvent: newBase(TypeArmyRouted, battleID, tick),
		Faction:   faction,
		Morale:    morale,
		Threshold: threshold,
		Units:     units,
	}
}

// StateTransitionEvent is published when the battle phase changes
type StateTransitionEvent struct {
	BaseEvent
	FromState string
	ToState   string
	Reason    string
}

func NewStateTransitionEvent(battleID string, tick int, from, to, reason string) *StateTransitionEvent {
	return &StateTransitionEvent{
		BaseEvent: newBase(TypeStateTransition, battleID, tick),
		FromState: from,
		ToState:   to,
		Reason:    reason,
	}
}
