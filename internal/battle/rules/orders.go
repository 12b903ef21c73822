package rules

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// ValidateOrder checks an order against the state of the issuing army.
// able is the number of recipients that are alive and not routing. The
// returned error matches ErrInvalidOrder, and ErrArmyRouted when the army
// has broken.
func ValidateOrder(kind core.OrderKind, armyRouted bool, able int) error {
	switch kind {
	case core.OrderIdle, core.OrderMoveTo, core.OrderAttack, core.OrderHoldFormation, core.OrderRetreat:
	default:
		return fmt.Errorf("unknown order kind %d: %w", int(kind), core.ErrInvalidOrder)
	}
	if armyRouted && kind.IsOffensive() {
		return fmt.Errorf("%w: %w", core.ErrInvalidOrder, core.ErrArmyRouted)
	}
	if able == 0 {
		return fmt.Errorf("no unit able to follow it: %w", core.ErrInvalidOrder)
	}
	return nil
}
