package formation

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Config holds formation layout knobs.
type Config struct {
	Spacing        float64
	RankWidth      int
	CohesionRadius float64
	GraceTicks     int
}

func DefaultConfig() Config {
	return Config{Spacing: 1.2, RankWidth: 8, CohesionRadius: 3, GraceTicks: 40}
}

// Formation is an ordered set of units holding slots around an anchor.
type Formation struct {
	ID             core.FormationID
	Faction        core.Faction
	Shape          Shape
	Spacing        float64
	RankWidth      int
	CohesionRadius float64

	anchor  core.Vec2
	facing  float64
	members []core.UnitID
	offsets []Offset

	destination core.Vec2
	destFacing  float64
	marching    bool
}

// Anchor returns the formation's anchor position and facing.
func (f *Formation) Anchor() (core.Vec2, float64) { return f.anchor, f.facing }

// Members returns unit ids in slot order.
func (f *Formation) Members() []core.UnitID {
	out := make([]core.UnitID, len(f.members))
	copy(out, f.members)
	return out
}

func (f *Formation) Size() int { return len(f.members) }

// SlotTarget returns the world target of slot: the slot's fixed offset
// rotated by the facing and added to the anchor.
func (f *Formation) SlotTarget(slot int) (core.Vec2, bool) {
	if slot < 0 || slot >= len(f.offsets) {
		return core.Vec2{}, false
	}
	return ToWorld(f.anchor, f.facing, f.offsets[slot]), true
}

// SlotOf returns the slot a unit occupies, or -1.
func (f *Formation) SlotOf(id core.UnitID) int {
	for i, m := range f.members {
		if m == id {
			return i
		}
	}
	return -1
}

// TargetOf returns the world slot target for a member unit.
func (f *Formation) TargetOf(id core.UnitID) (core.Vec2, bool) {
	return f.SlotTarget(f.SlotOf(id))
}

// Reform moves the anchor and facing. Slot offsets are unchanged, so
// reforming to the current anchor and facing changes no target. Reports
// whether anything moved.
func (f *Formation) Reform(anchor core.Vec2, facing float64) bool {
	if anchor == f.anchor && facing == f.facing {
		return false
	}
	f.anchor = anchor
	f.facing = facing
	return true
}

// MarchTo sets a destination the anchor advances toward on each Step.
func (f *Formation) MarchTo(dest core.Vec2, facing float64) {
	f.destination = dest
	f.destFacing = facing
	f.marching = dest != f.anchor || facing != f.facing
}

// Halt stops marching and leaves the anchor where it is.
func (f *Formation) Halt() { f.marching = false }

func (f *Formation) Marching() bool { return f.marching }

// Destination returns where the formation is marching to.
func (f *Formation) Destination() core.Vec2 { return f.destination }

// Step advances the anchor up to maxDist toward the destination, facing the
// direction of travel, and takes the destination facing on arrival.
func (f *Formation) Step(maxDist float64) bool {
	if !f.marching {
		return false
	}
	delta := f.destination.Sub(f.anchor)
	if delta.Len() <= maxDist {
		f.marching = false
		return f.Reform(f.destination, f.destFacing)
	}
	return f.Reform(f.anchor.Add(delta.ClampLen(maxDist)), delta.Angle())
}

// remove drops a member and relays out the remaining slots so the ranks
// close up.
func (f *Formation) remove(id core.UnitID) bool {
	slot := f.SlotOf(id)
	if slot < 0 {
		return false
	}
	f.members = append(f.members[:slot], f.members[slot+1:]...)
	f.offsets = Offsets(f.Shape, len(f.members), f.Spacing, f.RankWidth)
	return true
}

func (f *Formation) String() string {
	return fmt.Sprintf("formation %d (%s %s, %d units)", f.ID, f.Faction, f.Shape, len(f.members))
}
