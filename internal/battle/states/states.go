package states

import (
	"fmt"
	"time"
)

// SetupState represents army placement before the first tick
type SetupState struct{}

func NewSetupState() State {
	return &SetupState{}
}

func (s *SetupState) Phase() BattlePhase {
	return PhaseSetup
}

func (s *SetupState) Enter(ctx *BattleContext) error {
	ctx.Logger.Debug().Msg("Entering Setup state")
	return nil
}

func (s *SetupState) Exit(ctx *BattleContext) error {
	ctx.Logger.Debug().
		Int("factions", ctx.Factions).
		Msg("Setup complete")
	return nil
}

func (s *SetupState) Validate(ctx *BattleContext) error {
	return nil
}

// RunningState represents active simulation
type RunningState struct{}

func NewRunningState() State {
	return &RunningState{}
}

func (s *RunningState) Phase() BattlePhase {
	return PhaseRunning
}

func (s *RunningState) Enter(ctx *BattleContext) error {
	if ctx.StartTime.IsZero() {
		ctx.StartTime = time.Now()
		ctx.Logger.Info().Msg("Battle running")
		return nil
	}
	if !ctx.PauseTime.IsZero() {
		pauseDuration := time.Since(ctx.PauseTime)
		ctx.TotalPauseDuration += pauseDuration
		ctx.PauseTime = time.Time{}
		ctx.Logger.Info().
			Dur("pause_duration", pauseDuration).
			Int("tick", ctx.Tick).
			Msg("Battle resumed")
	}
	return nil
}

func (s *RunningState) Exit(ctx *BattleContext) error {
	return nil
}

func (s *RunningState) Validate(ctx *BattleContext) error {
	if !ctx.IsReady() {
		return fmt.Errorf("need at least 2 factions to run, have %d", ctx.Factions)
	}
	return nil
}

// PausedState represents a battle stopped between ticks
type PausedState struct{}

func NewPausedState() State {
	return &PausedState{}
}

func (s *PausedState) Phase() BattlePhase {
	return PhasePaused
}

func (s *PausedState) Enter(ctx *BattleContext) error {
	ctx.PauseTime = time.Now()
	ctx.Logger.Info().Int("tick", ctx.Tick).Msg("Battle paused")
	return nil
}

func (s *PausedState) Exit(ctx *BattleContext) error {
	return nil
}

func (s *PausedState) Validate(ctx *BattleContext) error {
	return nil
}

// ConcludedState represents a battle whose outcome is fixed
type ConcludedState struct{}

func NewConcludedState() State {
	return &ConcludedState{}
}

func (s *ConcludedState) Phase() BattlePhase {
	return PhaseConcluded
}

func (s *ConcludedState) Enter(ctx *BattleContext) error {
	if !ctx.PauseTime.IsZero() {
		ctx.TotalPauseDuration += time.Since(ctx.PauseTime)
		ctx.PauseTime = time.Time{}
	}
	ctx.EndTime = time.Now()
	ctx.Logger.Info().
		Str("winner", ctx.Winner).
		Str("reason", ctx.Reason).
		Int("tick", ctx.Tick).
		Dur("elapsed", ctx.GetElapsedTime()).
		Msg("Battle concluded")
	return nil
}

func (s *ConcludedState) Exit(ctx *BattleContext) error {
	return fmt.Errorf("concluded battles cannot leave %s", PhaseConcluded)
}

func (s *ConcludedState) Validate(ctx *BattleContext) error {
	return nil
}
