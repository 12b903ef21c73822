package subscribers

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/events"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // If non-nil, only log these event types
	devMode         bool            // If true, log full event details
}

// NewLoggerSubscriber creates a new logger subscriber
func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

// ID returns the subscriber's unique identifier
func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool)
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

// SetDevMode enables or disables development mode logging
func (ls *LoggerSubscriber) SetDevMode(enabled bool) {
	ls.devMode = enabled
}

// InterestedIn returns true if the subscriber wants to receive this event type
func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent processes an event by logging it
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	eventLogger := ls.logger.With().
		Str("event_type", event.Type()).
		Str("battle_id", event.BattleID()).
		Logger()

	var logEvent *zerolog.Event
	switch ls.logLevel {
	case zerolog.TraceLevel:
		logEvent = eventLogger.Trace()
	case zerolog.DebugLevel:
		logEvent = eventLogger.Debug()
	case zerolog.WarnLevel:
		logEvent = eventLogger.Warn()
	case zerolog.ErrorLevel:
		logEvent = eventLogger.Error()
	default:
		logEvent = eventLogger.Info()
	}

	if ticked, ok := event.(interface{ TickNumber() int }); ok {
		logEvent.Int("tick", ticked.TickNumber())
	}

	switch e := event.(type) {
	case *events.BattleStartedEvent:
		logEvent.
			Strs("factions", e.Factions).
			Int("units", e.Units).
			Int("map_width", e.MapWidth).
			Int("map_height", e.MapHeight).
			Int64("seed", e.Seed)

	case *events.BattleConcludedEvent:
		logEvent.
			Str("winner", e.Winner).
			Bool("stalemate", e.Stalemate).
			Str("reason", e.Reason).
			Interface("casualties", e.Casualties).
			Dur("duration", e.Duration)

	case *events.TickStartedEvent:
		logEvent.Int("commands", e.Commands)

	case *events.TickEndedEvent:
		logEvent.
			Int("living", e.Living).
			Int("dead", e.Dead).
			Int("projectiles", e.Projectiles).
			Dur("process_time", e.ProcessedTime)

	case *events.OrderIssuedEvent:
		logEvent.
			Str("faction", e.Faction).
			Str("group", e.Group).
			Str("order", e.Order).
			Int("recipients", e.Recipient)

	case *events.OrderRejectedEvent:
		logEvent.
			Str("faction", e.Faction).
			Str("group", e.Group).
			Str("order", e.Order).
			Str("reason", e.Reason)

	case *events.CombatResolvedEvent:
		logEvent.
			Int("attacker_id", e.AttackerID).
			Int("defender_id", e.DefenderID).
			Bool("hit", e.Hit).
			Float64("damage", e.Damage).
			Float64("hit_chance", e.HitChance)

	case *events.ProjectileImpactEvent:
		logEvent.
			Int("projectile_id", e.ProjectileID).
			Str("kind", e.Kind).
			Int("source_id", e.SourceID).
			Int("target_id", e.TargetID).
			Bool("hit", e.Hit).
			Float64("damage", e.Damage).
			Int("splash_hits", e.SplashHits)

	case *events.UnitKilledEvent:
		logEvent.
			Int("unit_id", e.UnitID).
			Str("faction", e.Faction).
			Int("killer_id", e.KillerID)

	case *events.UnitRoutedEvent:
		logEvent.
			Int("unit_id", e.UnitID).
			Str("faction", e.Faction).
			Float64("morale", e.Morale).
			Bool("forced", e.Forced)

	case *events.ArmyRoutedEvent:
		logEvent.
			Str("faction", e.Faction).
			Float64("morale", e.Morale).
			Float64("threshold", e.Threshold).
			Int("units", e.Units)

	case *events.StateTransitionEvent:
		logEvent.
			Str("from", e.FromState).
			Str("to", e.ToState).
			Str("reason", e.Reason)
	}

	// In dev mode, also log the full event as JSON
	if ls.devMode {
		if jsonData, err := json.Marshal(event); err == nil {
			logEvent.RawJSON("event_data", jsonData)
		}
	}

	logEvent.Msg("Battle event")
}
