// Package army aggregates units into sides: it owns army-level morale and
// rout, turns orders for formations or unit groups into per-unit orders, and
// keeps formations marching together.
package army

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/events"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/formation"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/rules"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/soldier"
)

// Config holds army-level knobs.
type Config struct {
	RoutThreshold      float64 // weighted morale below which the whole army routs
	MarchSlack         float64 // a marching formation waits while a member is farther than this from its slot
	CohesionGraceTicks int
}

func DefaultConfig() Config {
	return Config{RoutThreshold: 0.3, MarchSlack: 1.5, CohesionGraceTicks: 40}
}

// Army is one side of the battle.
type Army struct {
	Faction  core.Faction
	Fallback core.Vec2
	Morale   float64
	Routed   bool
	RoutedAt int

	units []core.UnitID
}

// Units returns every unit of the army, living or dead, in id order.
func (a *Army) Units() []core.UnitID {
	out := make([]core.UnitID, len(a.units))
	copy(out, a.units)
	return out
}

// Group addresses an order either to a formation or to loose units.
type Group struct {
	Formation core.FormationID
	Units     []core.UnitID
}

func (g Group) String() string {
	if g.Formation != 0 {
		return fmt.Sprintf("formation %d", g.Formation)
	}
	ids := make([]string, len(g.Units))
	for i, id := range g.Units {
		ids[i] = fmt.Sprint(int(id))
	}
	return "units [" + strings.Join(ids, ",") + "]"
}

// Manager owns every army of a battle.
type Manager struct {
	config    Config
	soldiers  *soldier.Manager
	registry  *formation.Registry
	cohesion  *formation.CohesionTracker
	publisher events.Publisher
	battleID  string
	logger    zerolog.Logger

	armies   map[core.Faction]*Army
	factions []core.Faction
	orders   map[core.FormationID]core.Order
	tick     int
}

func NewManager(config Config, soldiers *soldier.Manager, registry *formation.Registry, publisher events.Publisher, battleID string, logger zerolog.Logger) *Manager {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Manager{
		config:    config,
		soldiers:  soldiers,
		registry:  registry,
		cohesion:  formation.NewCohesionTracker(config.CohesionGraceTicks),
		publisher: publisher,
		battleID:  battleID,
		logger:    logger.With().Str("component", "ArmyManager").Logger(),
		armies:    make(map[core.Faction]*Army),
		orders:    make(map[core.FormationID]core.Order),
	}
}

// AddArmy registers a side. Units must already be known to the soldier manager.
func (m *Manager) AddArmy(faction core.Faction, fallback core.Vec2, units []core.UnitID) (*Army, error) {
	if _, exists := m.armies[faction]; exists {
		return nil, fmt.Errorf("army %q already registered", faction)
	}
	ids := append([]core.UnitID(nil), units...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		u, ok := m.soldiers.Unit(id)
		if !ok {
			return nil, fmt.Errorf("army %q: unit %d not registered", faction, id)
		}
		if u.Faction != faction {
			return nil, fmt.Errorf("army %q: unit %d belongs to %q", faction, id, u.Faction)
		}
	}
	a := &Army{Faction: faction, Fallback: fallback, Morale: 1, RoutedAt: -1, units: ids}
	m.armies[faction] = a
	i := sort.Search(len(m.factions), func(i int) bool { return m.factions[i] >= faction })
	m.factions = append(m.factions, "")
	copy(m.factions[i+1:], m.factions[i:])
	m.factions[i] = faction
	return a, nil
}

func (m *Manager) Army(faction core.Faction) (*Army, bool) {
	a, ok := m.armies[faction]
	return a, ok
}

// Factions returns registered factions in sorted order.
func (m *Manager) Factions() []core.Faction {
	out := make([]core.Faction, len(m.factions))
	copy(out, m.factions)
	return out
}

// BeginTick sets the tick stamped on events.
func (m *Manager) BeginTick(tick int) { m.tick = tick }

// FormationOrder returns the order a formation is currently carrying.
func (m *Manager) FormationOrder(id core.FormationID) (core.Order, bool) {
	o, ok := m.orders[id]
	return o, ok
}

// IssueOrder hands an order to a formation or unit group of faction.
// Rejections return an error matching ErrInvalidOrder; they are logged and
// published but never affect the rest of the battle.
func (m *Manager) IssueOrder(faction core.Faction, group Group, order core.Order) error {
	err := m.issue(faction, group, order)
	if err != nil {
		m.logger.Debug().
			Err(err).
			Int("tick", m.tick).
			Str("faction", string(faction)).
			Str("group", group.String()).
			Msg("Order rejected")
		m.publisher.Publish(events.NewOrderRejectedEvent(m.battleID, m.tick, string(faction), group.String(), order.Kind.String(), err.Error()))
	}
	return err
}

func (m *Manager) issue(faction core.Faction, group Group, order core.Order) error {
	target := fmt.Sprintf("%s %s", faction, group)
	a, ok := m.armies[faction]
	if !ok {
		return core.WrapOrderError(target, order.Kind, core.ErrUnknownFaction)
	}

	var f *formation.Formation
	members := group.Units
	if group.Formation != 0 {
		f, ok = m.registry.Get(group.Formation)
		if !ok || f.Faction != faction {
			return core.WrapOrderError(target, order.Kind, fmt.Errorf("no such formation"))
		}
		members = f.Members()
	}

	var able []*core.Unit
	for _, id := range members {
		u, ok := m.soldiers.Unit(id)
		if !ok || u.Faction != faction {
			return core.WrapOrderError(target, order.Kind, fmt.Errorf("unit %d is not in this army", id))
		}
		if u.CanFight() {
			able = append(able, u)
		}
	}
	if err := rules.ValidateOrder(order.Kind, a.Routed, len(able)); err != nil {
		return core.WrapOrderError(target, order.Kind, err)
	}

	if f != nil {
		m.orders[f.ID] = order
		switch order.Kind {
		case core.OrderMoveTo, core.OrderRetreat:
			f.MarchTo(order.Target, order.Facing)
		case core.OrderAttack:
			anchor, _ := f.Anchor()
			f.MarchTo(order.Target, order.Target.Sub(anchor).Angle())
		default:
			f.Halt()
		}
	}

	accepted := 0
	for _, u := range able {
		o := order
		if order.Kind == core.OrderAttack && u.Straggling {
			o = core.Order{Kind: core.OrderMoveTo, Target: order.Target, Facing: order.Facing}
		}
		if err := m.soldiers.ApplyOrder(u.ID, o); err != nil {
			m.logger.Debug().Err(err).Int("unit_id", int(u.ID)).Msg("Unit refused order")
			continue
		}
		accepted++
	}

	m.logger.Debug().
		Int("tick", m.tick).
		Str("faction", string(faction)).
		Str("group", group.String()).
		Str("order", order.String()).
		Int("recipients", accepted).
		Msg("Order issued")
	m.publisher.Publish(events.NewOrderIssuedEvent(m.battleID, m.tick, string(faction), group.String(), order.Kind.String(), accepted))
	return nil
}

// UpdateFormations drops fallen members, advances marching anchors at the
// pace of the slowest member, points members at their slots and tracks
// stragglers.
func (m *Manager) UpdateFormations(dt float64) {
	for _, f := range m.registry.All() {
		for _, id := range f.Members() {
			u, ok := m.soldiers.Unit(id)
			if !ok || !u.CanFight() {
				m.registry.Release(id)
				m.cohesion.Forget(id)
				m.soldiers.SetStraggling(id, false)
				if ok {
					u.FormationID, u.Slot = 0, -1
				}
			}
		}
		if _, alive := m.registry.Get(f.ID); !alive {
			delete(m.orders, f.ID)
			continue
		}

		order := m.orders[f.ID]
		if order.Kind == core.OrderAttack && order.TargetFormation != 0 {
			anchor, _ := f.Anchor()
			if enemy, ok := m.registry.Get(order.TargetFormation); ok {
				ea, _ := enemy.Anchor()
				f.MarchTo(ea, ea.Sub(anchor).Angle())
			}
		}

		if f.Marching() && m.ready(f) {
			f.Step(m.slowest(f) * dt)
		}

		for _, id := range f.Members() {
			u, _ := m.soldiers.Unit(id)
			u.FormationID, u.Slot = f.ID, f.SlotOf(id)
			if u.State == core.StateEngaging {
				continue
			}
			if slot, ok := f.TargetOf(id); ok {
				m.soldiers.SetGoal(id, slot)
			}
		}

		flagged, rejoined := m.cohesion.Update(f, m.position)
		for _, id := range flagged {
			m.soldiers.SetStraggling(id, true)
			if u, _ := m.soldiers.Unit(id); u.Order.Kind == core.OrderAttack {
				slot, _ := f.TargetOf(id)
				if err := m.soldiers.ApplyOrder(id, core.Order{Kind: core.OrderMoveTo, Target: slot}); err != nil {
					m.logger.Debug().Err(err).Int("unit_id", int(id)).Msg("Straggler refused regroup order")
				}
			}
			m.logger.Debug().Int("unit_id", int(id)).Int("formation_id", int(f.ID)).Msg("Unit straggling")
		}
		for _, id := range rejoined {
			m.soldiers.SetStraggling(id, false)
			if order.Kind == core.OrderAttack {
				if err := m.soldiers.ApplyOrder(id, order); err != nil {
					m.logger.Debug().Err(err).Int("unit_id", int(id)).Msg("Rejoined unit refused attack order")
				}
			}
		}
	}
}

func (m *Manager) position(id core.UnitID) (core.Vec2, bool) {
	u, ok := m.soldiers.Unit(id)
	if !ok || !u.CanFight() {
		return core.Vec2{}, false
	}
	return u.Position, true
}

// ready reports whether every non-engaged member is close enough to its
// slot for the anchor to move on.
func (m *Manager) ready(f *formation.Formation) bool {
	for _, id := range f.Members() {
		u, ok := m.soldiers.Unit(id)
		if !ok || u.State == core.StateEngaging || u.Straggling {
			continue
		}
		slot, _ := f.TargetOf(id)
		if u.Position.Dist(slot) > m.config.MarchSlack {
			return false
		}
	}
	return true
}

func (m *Manager) slowest(f *formation.Formation) float64 {
	speed := math.Inf(1)
	for _, id := range f.Members() {
		if u, ok := m.soldiers.Unit(id); ok && u.Stats.Speed < speed {
			speed = u.Stats.Speed
		}
	}
	if math.IsInf(speed, 1) {
		return 0
	}
	return speed
}

// UpdateMorale recomputes each army's morale as the value-weighted mean of
// its living units' morale. An army below the rout threshold, or with no
// living units, breaks: every living unit not already routing is routed in
// the same call. It returns the units it routed.
func (m *Manager) UpdateMorale() []core.UnitID {
	var routed []core.UnitID
	for _, faction := range m.factions {
		a := m.armies[faction]
		var sum, weight float64
		var living []core.UnitID
		for _, id := range a.units {
			u, _ := m.soldiers.Unit(id)
			if !u.Alive() {
				continue
			}
			living = append(living, id)
			w := u.Stats.Value
			if w <= 0 {
				w = 1
			}
			sum += w * u.Morale
			weight += w
		}
		if weight > 0 {
			a.Morale = sum / weight
		} else {
			a.Morale = 0
		}

		if !a.Routed && (len(living) == 0 || a.Morale < m.config.RoutThreshold) {
			a.Routed = true
			a.RoutedAt = m.tick
			for _, f := range m.registry.ByFaction(faction) {
				f.Halt()
				delete(m.orders, f.ID)
			}
			m.logger.Info().
				Int("tick", m.tick).
				Str("faction", string(faction)).
				Float64("morale", a.Morale).
				Float64("threshold", m.config.RoutThreshold).
				Int("living", len(living)).
				Msg("Army routed")
			m.publisher.Publish(events.NewArmyRoutedEvent(m.battleID, m.tick, string(faction), a.Morale, m.config.RoutThreshold, len(living)))
		}
		if a.Routed {
			routed = append(routed, m.soldiers.ForceRout(living)...)
		}
	}
	return routed
}

// Strength is the sum of health fraction × attack over units that can
// still fight.
func (m *Manager) Strength(faction core.Faction) float64 {
	a, ok := m.armies[faction]
	if !ok {
		return 0
	}
	return m.strengthOf(a.units)
}

// FormationStrength is Strength restricted to a formation's members.
func (m *Manager) FormationStrength(f *formation.Formation) float64 {
	return m.strengthOf(f.Members())
}

func (m *Manager) strengthOf(ids []core.UnitID) float64 {
	var s float64
	for _, id := range ids {
		if u, ok := m.soldiers.Unit(id); ok && u.CanFight() {
			s += u.Strength()
		}
	}
	return s
}

// Casualties counts dead units of faction.
func (m *Manager) Casualties(faction core.Faction) int {
	a, ok := m.armies[faction]
	if !ok {
		return 0
	}
	n := 0
	for _, id := range a.units {
		if u, _ := m.soldiers.Unit(id); !u.Alive() {
			n++
		}
	}
	return n
}

// Fighting counts living, non-routed units of faction.
func (m *Manager) Fighting(faction core.Faction) int {
	a, ok := m.armies[faction]
	if !ok {
		return 0
	}
	n := 0
	for _, id := range a.units {
		if u, _ := m.soldiers.Unit(id); u.CanFight() {
			n++
		}
	}
	return n
}

// FightingByFaction maps every faction to Fighting.
func (m *Manager) FightingByFaction() map[core.Faction]int {
	out := make(map[core.Faction]int, len(m.factions))
	for _, f := range m.factions {
		out[f] = m.Fighting(f)
	}
	return out
}
