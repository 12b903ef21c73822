package battle

import (
	"sync"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/army"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Command is an order submitted from outside the tick loop.
type Command struct {
	Faction core.Faction
	Group   army.Group
	Order   core.Order
}

// CommandQueue buffers commands between ticks. It is safe for concurrent
// producers; the tick loop drains it once per tick in submission order.
type CommandQueue struct {
	mu      sync.Mutex
	pending []Command
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

func (q *CommandQueue) Push(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, cmd)
}

// Drain removes and returns every queued command.
func (q *CommandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
