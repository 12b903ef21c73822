package states

import "fmt"

// BattlePhase represents the current phase of a battle
type BattlePhase int

const (
	// PhaseSetup - Armies placed, formations built, no ticks run yet
	PhaseSetup BattlePhase = iota

	// PhaseRunning - Ticks advance the simulation
	PhaseRunning

	// PhasePaused - Stopped between ticks by the caller
	PhasePaused

	// PhaseConcluded - Outcome fixed, further ticks are no-ops
	PhaseConcluded
)

// String returns the string representation of a BattlePhase
func (p BattlePhase) String() string {
	switch p {
	case PhaseSetup:
		return "Setup"
	case PhaseRunning:
		return "Running"
	case PhasePaused:
		return "Paused"
	case PhaseConcluded:
		return "Concluded"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true if the phase represents a terminal state
func (p BattlePhase) IsTerminal() bool {
	return p == PhaseConcluded
}

// CanTick returns true if the simulation advances in this phase
func (p BattlePhase) CanTick() bool {
	return p == PhaseRunning
}

// CanReceiveCommands returns true if commands may be queued in this phase.
// Commands queued while paused are drained on the next running tick.
func (p BattlePhase) CanReceiveCommands() bool {
	return p == PhaseSetup || p == PhaseRunning || p == PhasePaused
}

// AllowedTransitions returns the valid phases this phase can transition to
func (p BattlePhase) AllowedTransitions() []BattlePhase {
	switch p {
	case PhaseSetup:
		return []BattlePhase{PhaseRunning}
	case PhaseRunning:
		return []BattlePhase{PhasePaused, PhaseConcluded}
	case PhasePaused:
		return []BattlePhase{PhaseRunning, PhaseConcluded}
	default:
		return []BattlePhase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p BattlePhase) CanTransitionTo(target BattlePhase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}

// ParsePhase converts a string to a BattlePhase
func ParsePhase(s string) (BattlePhase, error) {
	switch s {
	case "Setup":
		return PhaseSetup, nil
	case "Running":
		return PhaseRunning, nil
	case "Paused":
		return PhasePaused, nil
	case "Concluded":
		return PhaseConcluded, nil
	default:
		return PhaseSetup, fmt.Errorf("unknown battle phase %q", s)
	}
}
