package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoPath          = errors.New("no path")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrConfiguration   = errors.New("configuration error")
	ErrBattleConcluded = errors.New("battle is concluded")
	ErrInvalidPhase    = errors.New("invalid battle phase")
	ErrUnknownUnitType = errors.New("unknown unit type")
	ErrUnknownFaction  = errors.New("unknown faction")
	ErrUnitDead        = errors.New("unit is dead")
	ErrArmyRouted      = errors.New("army is routed")
	ErrUnitAssigned    = errors.New("unit already belongs to a formation")
)

// ConfigurationError reports a battle-start configuration problem. It
// matches ErrConfiguration under errors.Is as well as its cause.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// WrapConfigError attaches the offending field to err.
func WrapConfigError(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Field: field, Err: err}
}

// WrapOrderError annotates an order rejection with its target and kind.
// The result always matches ErrInvalidOrder.
func WrapOrderError(target string, kind OrderKind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidOrder) {
		return fmt.Errorf("%s: %s order: %w", target, kind, err)
	}
	return fmt.Errorf("%s: %s order: %w: %w", target, kind, ErrInvalidOrder, err)
}

// WrapTickError annotates an error raised while processing a tick stage.
func WrapTickError(tick int, stage string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("tick %d: %s: %w", tick, stage, err)
}
