package states

import (
	"time"

	"github.com/rs/zerolog"
)

// BattleContext provides battle-specific information to states for making decisions
type BattleContext struct {
	// BattleID uniquely identifies this battle instance
	BattleID string

	// Logger for state-specific logging
	Logger zerolog.Logger

	// Factions is the number of armies placed during Setup
	Factions int

	// Tick is the last completed tick
	Tick int

	// StartTime is when the battle started (PhaseRunning first entered)
	StartTime time.Time

	// PauseTime is when the battle was paused (if paused)
	PauseTime time.Time

	// TotalPauseDuration tracks total time spent paused
	TotalPauseDuration time.Duration

	// EndTime is when the battle concluded
	EndTime time.Time

	// Winner is the winning faction, empty for a stalemate
	Winner string

	// Reason explains why the battle concluded
	Reason string
}

// NewBattleContext creates a new battle context
func NewBattleContext(battleID string, logger zerolog.Logger) *BattleContext {
	return &BattleContext{
		BattleID: battleID,
		Logger:   logger.With().Str("battle_id", battleID).Logger(),
	}
}

// IsReady returns true if enough armies are placed to fight
func (bc *BattleContext) IsReady() bool {
	return bc.Factions >= 2
}

// GetElapsedTime returns the wall time spent running, excluding pauses
func (bc *BattleContext) GetElapsedTime() time.Duration {
	if bc.StartTime.IsZero() {
		return 0
	}
	end := time.Now()
	if !bc.EndTime.IsZero() {
		end = bc.EndTime
	}
	elapsed := end.Sub(bc.StartTime) - bc.TotalPauseDuration
	if !bc.PauseTime.IsZero() && bc.EndTime.IsZero() {
		elapsed -= time.Since(bc.PauseTime)
	}
	return elapsed
}
