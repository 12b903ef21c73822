package formation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Registry owns all formations of a battle and guarantees that a unit
// belongs to at most one of them.
type Registry struct {
	config     Config
	formations map[core.FormationID]*Formation
	byUnit     map[core.UnitID]core.FormationID
	nextID     core.FormationID
	logger     zerolog.Logger
}

func NewRegistry(config Config, logger zerolog.Logger) *Registry {
	return &Registry{
		config:     config,
		formations: make(map[core.FormationID]*Formation),
		byUnit:     make(map[core.UnitID]core.FormationID),
		nextID:     1,
		logger:     logger.With().Str("component", "FormationRegistry").Logger(),
	}
}

// Create builds a formation from members in slot order.
func (r *Registry) Create(faction core.Faction, shape Shape, members []core.UnitID, anchor core.Vec2, facing float64) (*Formation, error) {
	seen := make(map[core.UnitID]bool, len(members))
	for _, id := range members {
		if fid, ok := r.byUnit[id]; ok {
			return nil, fmt.Errorf("unit %d in formation %d: %w", id, fid, core.ErrUnitAssigned)
		}
		if seen[id] {
			return nil, fmt.Errorf("unit %d listed twice: %w", id, core.ErrUnitAssigned)
		}
		seen[id] = true
	}

	f := &Formation{
		ID:             r.nextID,
		Faction:        faction,
		Shape:          shape,
		Spacing:        r.config.Spacing,
		RankWidth:      r.config.RankWidth,
		CohesionRadius: r.config.CohesionRadius,
		anchor:         anchor,
		facing:         facing,
		members:        append([]core.UnitID(nil), members...),
		offsets:        Offsets(shape, len(members), r.config.Spacing, r.config.RankWidth),
	}
	r.nextID++
	r.formations[f.ID] = f
	for _, id := range members {
		r.byUnit[id] = f.ID
	}

	r.logger.Debug().
		Int("formation_id", int(f.ID)).
		Str("faction", string(faction)).
		Str("shape", shape.String()).
		Int("members", len(members)).
		Msg("Formation created")
	return f, nil
}

func (r *Registry) Get(id core.FormationID) (*Formation, bool) {
	f, ok := r.formations[id]
	return f, ok
}

// ForUnit returns the formation a unit belongs to.
func (r *Registry) ForUnit(id core.UnitID) (*Formation, bool) {
	fid, ok := r.byUnit[id]
	if !ok {
		return nil, false
	}
	return r.formations[fid], true
}

// Release removes a unit from its formation. Empty formations are dropped.
func (r *Registry) Release(id core.UnitID) {
	fid, ok := r.byUnit[id]
	if !ok {
		return
	}
	delete(r.byUnit, id)
	f := r.formations[fid]
	f.remove(id)
	if f.Size() == 0 {
		delete(r.formations, fid)
		r.logger.Debug().Int("formation_id", int(fid)).Msg("Formation dissolved")
	}
}

// All returns formations in id order.
func (r *Registry) All() []*Formation {
	out := make([]*Formation, 0, len(r.formations))
	for _, f := range r.formations {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByFaction returns a faction's formations in id order.
func (r *Registry) ByFaction(faction core.Faction) []*Formation {
	var out []*Formation
	for _, f := range r.All() {
		if f.Faction == faction {
			out = append(out, f)
		}
	}
	return out
}
