package battle

import (
	"fmt"
	"math"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/ai"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/army"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/collision"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/combat"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/formation"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/pathfind"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/projectile"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/soldier"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
)

// Settings bundles the tuning of every component of a battle.
type Settings struct {
	TickRate       int // ticks per simulated second
	MaxTicks       int // 0 disables the stalemate limit
	SnapshotBuffer int
	AIEnabled      bool

	Pathfinding pathfind.Config
	Collision   collision.Config
	Combat      combat.Tuning
	Projectile  projectile.Config
	Soldier     soldier.Config
	Formation   formation.Config
	Army        army.Config
	AI          ai.Tuning
}

// DefaultSettings returns the built-in tuning of every component.
func DefaultSettings() Settings {
	return Settings{
		TickRate:       20,
		MaxTicks:       6000,
		SnapshotBuffer: 8,
		AIEnabled:      true,
		Pathfinding:    pathfind.DefaultConfig(),
		Collision:      collision.DefaultConfig(),
		Combat:         combat.DefaultTuning(),
		Projectile:     projectile.DefaultConfig(),
		Soldier:        soldier.DefaultConfig(),
		Formation:      formation.DefaultConfig(),
		Army:           army.DefaultConfig(),
		AI:             ai.DefaultTuning(),
	}
}

// SettingsFromConfig maps application configuration onto component tuning.
func SettingsFromConfig(c *config.Config) Settings {
	s := DefaultSettings()

	s.TickRate = c.Battle.TickRate
	s.MaxTicks = c.Battle.MaxTicks
	s.SnapshotBuffer = c.Battle.SnapshotBuffer
	s.AIEnabled = c.AI.Enabled

	s.Pathfinding = pathfind.Config{
		MaxExpansions:    c.Pathfinding.MaxExpansions,
		GoalSearchRadius: c.Pathfinding.GoalSearchRadius,
		GoalTolerance:    c.Pathfinding.GoalTolerance,
		BlockedTicks:     c.Pathfinding.BlockedTicks,
	}
	s.Collision = collision.Config{
		BucketSize: c.Collision.BucketSize,
		PushFactor: c.Collision.PushFactor,
		MaxPush:    c.Collision.MaxPush,
	}
	s.Combat = combat.Tuning{
		BaseHitChance:        c.Combat.BaseHitChance,
		AccuracyWeight:       c.Combat.AccuracyWeight,
		EvasionWeight:        c.Combat.EvasionWeight,
		ArmorWeight:          c.Combat.ArmorWeight,
		CoverWeight:          c.Combat.CoverWeight,
		ElevationHitBonus:    c.Combat.ElevationHitBonus,
		MinHitChance:         c.Combat.MinHitChance,
		MaxHitChance:         c.Combat.MaxHitChance,
		VarianceLow:          c.Combat.VarianceLow,
		VarianceHigh:         c.Combat.VarianceHigh,
		ElevationDamageBonus: c.Combat.ElevationDamageBonus,
		MaxElevationBonus:    c.Combat.MaxElevationBonus,
		FlankAngle:           c.Combat.FlankAngleDeg * math.Pi / 180,
		FlankMultiplier:      c.Combat.FlankMultiplier,
		RearAngle:            c.Combat.RearAngleDeg * math.Pi / 180,
		RearMultiplier:       c.Combat.RearMultiplier,
		MinDamage:            c.Combat.MinDamage,
		DamageMoraleScale:    c.Morale.DamageScale,
		KillMoraleBonus:      c.Morale.KillBonus,
		WitnessMoralePenalty: c.Morale.WitnessPenalty,
		WitnessRadius:        c.Morale.WitnessRadius,
	}
	s.Projectile = projectile.Config{
		Radius:       c.Projectile.Radius,
		TTL:          c.Projectile.TTL,
		Overshoot:    c.Projectile.Overshoot,
		FriendlyFire: c.Projectile.FriendlyFire,
	}
	s.Soldier = soldier.Config{
		ArrivalTolerance:    c.Pathfinding.ArrivalTolerance,
		RoutSpeedMultiplier: c.Morale.RoutSpeedMultiplier,
		ThreatRadius:        c.Morale.ThreatRadius,
		MeleeReach:          c.Combat.MeleeReach,
		BlockedEpsilon:      c.Pathfinding.BlockedEpsilon,
		NoPathBackoffTicks:  c.Pathfinding.NoPathBackoffTicks,
	}
	s.Formation = formation.Config{
		Spacing:        c.Formation.Spacing,
		RankWidth:      c.Formation.RankWidth,
		CohesionRadius: c.Formation.CohesionRadius,
		GraceTicks:     c.Formation.GraceTicks,
	}
	s.Army = army.Config{
		RoutThreshold:      c.Morale.RoutThreshold,
		MarchSlack:         c.Formation.MarchSlack,
		CohesionGraceTicks: c.Formation.GraceTicks,
	}
	s.AI = ai.Tuning{
		DecisionInterval: c.AI.DecisionInterval,
		SafetyMargin:     c.AI.SafetyMargin,
		EngageRange:      c.AI.EngageRange,
		OutnumberedRatio: c.AI.OutnumberedRatio,
		ReissueDistance:  c.AI.ReissueDistance,
	}
	return s
}

// Dt is the simulated duration of one tick in seconds.
func (s Settings) Dt() float64 {
	return 1 / float64(s.TickRate)
}

// Validate rejects settings no battle can run with.
func (s Settings) Validate() error {
	switch {
	case s.TickRate <= 0:
		return core.WrapConfigError("settings.tick_rate", fmt.Errorf("must be positive, got %d", s.TickRate))
	case s.MaxTicks < 0:
		return core.WrapConfigError("settings.max_ticks", fmt.Errorf("must not be negative, got %d", s.MaxTicks))
	case s.SnapshotBuffer <= 0:
		return core.WrapConfigError("settings.snapshot_buffer", fmt.Errorf("must be positive, got %d", s.SnapshotBuffer))
	case s.Combat.MinHitChance > s.Combat.MaxHitChance:
		return core.WrapConfigError("settings.combat", fmt.Errorf("min hit chance %v exceeds max %v", s.Combat.MinHitChance, s.Combat.MaxHitChance))
	case s.Combat.FlankMultiplier < 1 || s.Combat.RearMultiplier < s.Combat.FlankMultiplier:
		return core.WrapConfigError("settings.combat", fmt.Errorf("multipliers must satisfy 1 <= flank <= rear"))
	case s.Formation.Spacing <= 0:
		return core.WrapConfigError("settings.formation.spacing", fmt.Errorf("must be positive, got %v", s.Formation.Spacing))
	case s.Army.RoutThreshold < 0 || s.Army.RoutThreshold > 1:
		return core.WrapConfigError("settings.army.rout_threshold", fmt.Errorf("must be within [0,1], got %v", s.Army.RoutThreshold))
	case s.Pathfinding.MaxExpansions <= 0:
		return core.WrapConfigError("settings.pathfinding.max_expansions", fmt.Errorf("must be positive, got %d", s.Pathfinding.MaxExpansions))
	case s.Projectile.TTL <= 0:
		return core.WrapConfigError("settings.projectile.ttl", fmt.Errorf("must be positive, got %v", s.Projectile.TTL))
	}
	return nil
}
