package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Battle      BattleConfig      `mapstructure:"battle"`
	Pathfinding PathfindingConfig `mapstructure:"pathfinding"`
	Collision   CollisionConfig   `mapstructure:"collision"`
	Combat      CombatConfig      `mapstructure:"combat"`
	Projectile  ProjectileConfig  `mapstructure:"projectile"`
	Morale      MoraleConfig      `mapstructure:"morale"`
	Formation   FormationConfig   `mapstructure:"formation"`
	AI          AIConfig          `mapstructure:"ai"`
	Mapgen      MapgenConfig      `mapstructure:"mapgen"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Storage     StorageConfig     `mapstructure:"storage"`
}

// BattleConfig holds tick loop settings
type BattleConfig struct {
	TickRate       int   `mapstructure:"tick_rate"`
	MaxTicks       int   `mapstructure:"max_ticks"`
	SnapshotBuffer int   `mapstructure:"snapshot_buffer"`
	Seed           int64 `mapstructure:"seed"`
}

// PathfindingConfig holds route planning and following settings
type PathfindingConfig struct {
	MaxExpansions      int     `mapstructure:"max_expansions"`
	GoalSearchRadius   int     `mapstructure:"goal_search_radius"`
	GoalTolerance      float64 `mapstructure:"goal_tolerance"`
	BlockedTicks       int     `mapstructure:"blocked_ticks"`
	NoPathBackoffTicks int     `mapstructure:"no_path_backoff_ticks"`
	ArrivalTolerance   float64 `mapstructure:"arrival_tolerance"`
	BlockedEpsilon     float64 `mapstructure:"blocked_epsilon"`
}

// CollisionConfig holds spatial partitioning settings
type CollisionConfig struct {
	BucketSize float64 `mapstructure:"bucket_size"`
	PushFactor float64 `mapstructure:"push_factor"`
	MaxPush    float64 `mapstructure:"max_push"`
}

// CombatConfig holds combat calculator tuning. Angles are in degrees.
type CombatConfig struct {
	BaseHitChance        float64 `mapstructure:"base_hit_chance"`
	AccuracyWeight       float64 `mapstructure:"accuracy_weight"`
	EvasionWeight        float64 `mapstructure:"evasion_weight"`
	ArmorWeight          float64 `mapstructure:"armor_weight"`
	CoverWeight          float64 `mapstructure:"cover_weight"`
	ElevationHitBonus    float64 `mapstructure:"elevation_hit_bonus"`
	MinHitChance         float64 `mapstructure:"min_hit_chance"`
	MaxHitChance         float64 `mapstructure:"max_hit_chance"`
	VarianceLow          float64 `mapstructure:"variance_low"`
	VarianceHigh         float64 `mapstructure:"variance_high"`
	ElevationDamageBonus float64 `mapstructure:"elevation_damage_bonus"`
	MaxElevationBonus    float64 `mapstructure:"max_elevation_bonus"`
	FlankAngleDeg        float64 `mapstructure:"flank_angle_deg"`
	FlankMultiplier      float64 `mapstructure:"flank_multiplier"`
	RearAngleDeg         float64 `mapstructure:"rear_angle_deg"`
	RearMultiplier       float64 `mapstructure:"rear_multiplier"`
	MinDamage            float64 `mapstructure:"min_damage"`
	MeleeReach           float64 `mapstructure:"melee_reach"`
}

// ProjectileConfig holds projectile flight settings
type ProjectileConfig struct {
	Radius       float64 `mapstructure:"radius"`
	TTL          float64 `mapstructure:"ttl"`
	Overshoot    float64 `mapstructure:"overshoot"`
	FriendlyFire bool    `mapstructure:"friendly_fire"`
}

// MoraleConfig holds morale and rout settings
type MoraleConfig struct {
	RoutThreshold       float64 `mapstructure:"rout_threshold"`
	DamageScale         float64 `mapstructure:"damage_scale"`
	KillBonus           float64 `mapstructure:"kill_bonus"`
	WitnessPenalty      float64 `mapstructure:"witness_penalty"`
	WitnessRadius       float64 `mapstructure:"witness_radius"`
	RoutSpeedMultiplier float64 `mapstructure:"rout_speed_multiplier"`
	ThreatRadius        float64 `mapstructure:"threat_radius"`
}

// FormationConfig holds formation layout and cohesion settings
type FormationConfig struct {
	Spacing        float64 `mapstructure:"spacing"`
	RankWidth      int     `mapstructure:"rank_width"`
	CohesionRadius float64 `mapstructure:"cohesion_radius"`
	GraceTicks     int     `mapstructure:"grace_ticks"`
	MarchSlack     float64 `mapstructure:"march_slack"`
}

// AIConfig holds the AI decision knobs
type AIConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DecisionInterval int     `mapstructure:"decision_interval"`
	SafetyMargin     float64 `mapstructure:"safety_margin"`
	EngageRange      float64 `mapstructure:"engage_range"`
	OutnumberedRatio float64 `mapstructure:"outnumbered_ratio"`
	ReissueDistance  float64 `mapstructure:"reissue_distance"`
}

// MapgenConfig holds procedural terrain settings
type MapgenConfig struct {
	ForestRatio       int     `mapstructure:"forest_ratio"`
	HillRatio         int     `mapstructure:"hill_ratio"`
	MudRatio          int     `mapstructure:"mud_ratio"`
	RockVeinRatio     int     `mapstructure:"rock_vein_ratio"`
	RockVeinMinLength int     `mapstructure:"rock_vein_min_length"`
	RockVeinMaxLength float64 `mapstructure:"rock_vein_max_length_ratio"`
	DeploymentDepth   int     `mapstructure:"deployment_depth"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig holds outcome history settings
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
	mu  sync.RWMutex
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Battle defaults
	v.SetDefault("battle.tick_rate", 20)
	v.SetDefault("battle.max_ticks", 6000)
	v.SetDefault("battle.snapshot_buffer", 8)
	v.SetDefault("battle.seed", 0)

	// Pathfinding defaults
	v.SetDefault("pathfinding.max_expansions", 20000)
	v.SetDefault("pathfinding.goal_search_radius", 4)
	v.SetDefault("pathfinding.goal_tolerance", 1.5)
	v.SetDefault("pathfinding.blocked_ticks", 10)
	v.SetDefault("pathfinding.no_path_backoff_ticks", 20)
	v.SetDefault("pathfinding.arrival_tolerance", 0.1)
	v.SetDefault("pathfinding.blocked_epsilon", 0.001)

	// Collision defaults
	v.SetDefault("collision.bucket_size", 0.0)
	v.SetDefault("collision.push_factor", 0.5)
	v.SetDefault("collision.max_push", 0.25)

	// Combat defaults
	v.SetDefault("combat.base_hit_chance", 0.55)
	v.SetDefault("combat.accuracy_weight", 0.4)
	v.SetDefault("combat.evasion_weight", 0.4)
	v.SetDefault("combat.armor_weight", 0.01)
	v.SetDefault("combat.cover_weight", 0.35)
	v.SetDefault("combat.elevation_hit_bonus", 0.05)
	v.SetDefault("combat.min_hit_chance", 0.05)
	v.SetDefault("combat.max_hit_chance", 0.95)
	v.SetDefault("combat.variance_low", 0.8)
	v.SetDefault("combat.variance_high", 1.2)
	v.SetDefault("combat.elevation_damage_bonus", 0.1)
	v.SetDefault("combat.max_elevation_bonus", 0.3)
	v.SetDefault("combat.flank_angle_deg", 90.0)
	v.SetDefault("combat.flank_multiplier", 1.5)
	v.SetDefault("combat.rear_angle_deg", 135.0)
	v.SetDefault("combat.rear_multiplier", 2.0)
	v.SetDefault("combat.min_damage", 1.0)
	v.SetDefault("combat.melee_reach", 0.3)

	// Projectile defaults
	v.SetDefault("projectile.radius", 0.05)
	v.SetDefault("projectile.ttl", 4.0)
	v.SetDefault("projectile.overshoot", 1.0)
	v.SetDefault("projectile.friendly_fire", false)

	// Morale defaults
	v.SetDefault("morale.rout_threshold", 0.3)
	v.SetDefault("morale.damage_scale", 0.5)
	v.SetDefault("morale.kill_bonus", 0.02)
	v.SetDefault("morale.witness_penalty", 0.05)
	v.SetDefault("morale.witness_radius", 4.0)
	v.SetDefault("morale.rout_speed_multiplier", 1.5)
	v.SetDefault("morale.threat_radius", 8.0)

	// Formation defaults
	v.SetDefault("formation.spacing", 1.2)
	v.SetDefault("formation.rank_width", 8)
	v.SetDefault("formation.cohesion_radius", 3.0)
	v.SetDefault("formation.grace_ticks", 40)
	v.SetDefault("formation.march_slack", 1.5)

	// AI defaults
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.decision_interval", 10)
	v.SetDefault("ai.safety_margin", 1.2)
	v.SetDefault("ai.engage_range", 12.0)
	v.SetDefault("ai.outnumbered_ratio", 0.4)
	v.SetDefault("ai.reissue_distance", 2.0)

	// Map generation defaults
	v.SetDefault("mapgen.forest_ratio", 12)
	v.SetDefault("mapgen.hill_ratio", 25)
	v.SetDefault("mapgen.mud_ratio", 40)
	v.SetDefault("mapgen.rock_vein_ratio", 80)
	v.SetDefault("mapgen.rock_vein_min_length", 3)
	v.SetDefault("mapgen.rock_vein_max_length_ratio", 0.2)
	v.SetDefault("mapgen.deployment_depth", 6)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.path", "battles.db")
}

// Init initializes the configuration
func Init(configPath string) error {
	nv := viper.New()

	// Set defaults before loading any config
	setViperDefaults(nv)

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/battlesim")
	}

	// TBS_COMBAT_FLANK_MULTIPLIER overrides combat.flank_multiplier
	nv.SetEnvPrefix("TBS")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	c := &Config{}
	if err := nv.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := Validate(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	mu.Lock()
	v, cfg = nv, c
	mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration. Later reloads do not
// affect copies already handed out.
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c == nil {
		// Initialize with defaults if not already initialized
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
		mu.RLock()
		c = cfg
		mu.RUnlock()
	}
	out := *c
	return &out
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig merges config.<env>.yaml over the loaded config
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)

	mu.Lock()
	defer mu.Unlock()
	v.SetConfigFile(envFile)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
	}

	merged := &Config{}
	if err := v.Unmarshal(merged); err != nil {
		return fmt.Errorf("unable to decode merged config into struct: %w", err)
	}
	if err := Validate(merged); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	cfg = merged
	return nil
}

// Set allows runtime config updates
func Set(key string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	v.Set(key, value)
	updated := &Config{}
	if err := v.Unmarshal(updated); err == nil {
		cfg = updated
	}
}

// GetString gets a string value from config
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetFloat64 gets a float64 value from config
func GetFloat64(key string) float64 {
	return v.GetFloat64(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. A reload that fails
// validation is reported through onError and the previous config is kept.
func WatchConfig(onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		reloaded := &Config{}
		err := v.Unmarshal(reloaded)
		if err == nil {
			err = Validate(reloaded)
		}
		if err == nil {
			cfg = reloaded
		}
		mu.Unlock()

		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		if onChange != nil {
			out := *reloaded
			onChange(&out)
		}
	})
	v.WatchConfig()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	// Battle loop
	if c.Battle.TickRate <= 0 {
		return fmt.Errorf("battle.tick_rate must be positive")
	}
	if c.Battle.MaxTicks < 0 {
		return fmt.Errorf("battle.max_ticks must be non-negative")
	}
	if c.Battle.SnapshotBuffer < 1 {
		return fmt.Errorf("battle.snapshot_buffer must be at least 1")
	}

	// Pathfinding
	if c.Pathfinding.MaxExpansions <= 0 {
		return fmt.Errorf("pathfinding.max_expansions must be positive")
	}
	if c.Pathfinding.GoalSearchRadius < 0 {
		return fmt.Errorf("pathfinding.goal_search_radius must be non-negative")
	}
	if c.Pathfinding.GoalTolerance < 0 || c.Pathfinding.ArrivalTolerance <= 0 {
		return fmt.Errorf("pathfinding tolerances must be positive")
	}
	if c.Pathfinding.BlockedTicks < 1 || c.Pathfinding.NoPathBackoffTicks < 0 {
		return fmt.Errorf("pathfinding tick thresholds out of range")
	}

	// Collision
	if c.Collision.BucketSize < 0 {
		return fmt.Errorf("collision.bucket_size must be non-negative")
	}
	if c.Collision.PushFactor < 0 || c.Collision.PushFactor > 1 {
		return fmt.Errorf("collision.push_factor must be between 0 and 1")
	}
	if c.Collision.MaxPush <= 0 {
		return fmt.Errorf("collision.max_push must be positive")
	}

	// Combat
	cb := c.Combat
	if cb.MinHitChance < 0 || cb.MaxHitChance > 1 || cb.MinHitChance > cb.MaxHitChance {
		return fmt.Errorf("combat hit chance bounds must satisfy 0 <= min <= max <= 1")
	}
	if cb.VarianceLow <= 0 || cb.VarianceLow > cb.VarianceHigh {
		return fmt.Errorf("combat variance must satisfy 0 < low <= high")
	}
	if cb.FlankAngleDeg <= 0 || cb.RearAngleDeg < cb.FlankAngleDeg || cb.RearAngleDeg > 180 {
		return fmt.Errorf("combat flank/rear angles must satisfy 0 < flank <= rear <= 180")
	}
	if cb.FlankMultiplier < 1 || cb.RearMultiplier < cb.FlankMultiplier {
		return fmt.Errorf("combat multipliers must satisfy 1 <= flank <= rear")
	}
	if cb.MinDamage < 0 || cb.MeleeReach < 0 {
		return fmt.Errorf("combat.min_damage and combat.melee_reach must be non-negative")
	}

	// Projectile
	if c.Projectile.Radius <= 0 || c.Projectile.TTL <= 0 {
		return fmt.Errorf("projectile radius and ttl must be positive")
	}

	// Morale
	if c.Morale.RoutThreshold < 0 || c.Morale.RoutThreshold > 1 {
		return fmt.Errorf("morale.rout_threshold must be between 0 and 1")
	}
	if c.Morale.RoutSpeedMultiplier <= 0 {
		return fmt.Errorf("morale.rout_speed_multiplier must be positive")
	}

	// Formation
	if c.Formation.Spacing <= 0 || c.Formation.RankWidth < 1 {
		return fmt.Errorf("formation spacing and rank_width must be positive")
	}
	if c.Formation.CohesionRadius <= 0 || c.Formation.GraceTicks < 0 {
		return fmt.Errorf("formation cohesion settings out of range")
	}

	// AI
	if c.AI.DecisionInterval < 1 {
		return fmt.Errorf("ai.decision_interval must be at least 1")
	}
	if c.AI.SafetyMargin <= 0 || c.AI.OutnumberedRatio < 0 || c.AI.EngageRange <= 0 {
		return fmt.Errorf("ai thresholds out of range")
	}

	// Map generation
	if c.Mapgen.ForestRatio < 0 || c.Mapgen.HillRatio < 0 || c.Mapgen.MudRatio < 0 || c.Mapgen.RockVeinRatio < 0 {
		return fmt.Errorf("mapgen ratios must be non-negative")
	}
	if c.Mapgen.RockVeinMaxLength < 0 || c.Mapgen.RockVeinMaxLength > 1 {
		return fmt.Errorf("mapgen.rock_vein_max_length_ratio must be between 0 and 1")
	}

	// Logging
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage is enabled")
	}

	return nil
}
