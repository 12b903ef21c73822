package battle

import (
	"sync"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/states"
)

// UnitSnapshot is the render view of one living unit.
type UnitSnapshot struct {
	ID        core.UnitID
	Faction   core.Faction
	Type      core.UnitType
	Position  core.Vec2
	Heading   float64
	State     core.UnitState
	Health    float64 // fraction of max health
	Formation core.FormationID
}

// ProjectileSnapshot is the render view of a projectile in flight.
type ProjectileSnapshot struct {
	ID       int
	Position core.Vec2
	Heading  float64
}

// RenderSnapshot is the per-tick state handed to renderers.
type RenderSnapshot struct {
	BattleID    string
	Tick        int
	Phase       states.BattlePhase
	Units       []UnitSnapshot
	Projectiles []ProjectileSnapshot
	Morale      map[core.Faction]float64
}

// SnapshotBuffer is a fixed-size ring of the most recent snapshots. The
// tick loop pushes and renderers on other goroutines read.
type SnapshotBuffer struct {
	mu    sync.RWMutex
	items []RenderSnapshot
	head  int // next write position
	size  int
}

func NewSnapshotBuffer(capacity int) *SnapshotBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &SnapshotBuffer{items: make([]RenderSnapshot, capacity)}
}

// Push stores s, overwriting the oldest snapshot when full.
func (b *SnapshotBuffer) Push(s RenderSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = s
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Latest returns the most recent snapshot.
func (b *SnapshotBuffer) Latest() (RenderSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return RenderSnapshot{}, false
	}
	idx := (b.head - 1 + len(b.items)) % len(b.items)
	return b.items[idx], true
}

// All returns the buffered snapshots, oldest first.
func (b *SnapshotBuffer) All() []RenderSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]RenderSnapshot, 0, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

func (b *SnapshotBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *SnapshotBuffer) Capacity() int {
	return len(b.items)
}
