package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	mu.Lock()
	cfg = nil
	v = nil
	mu.Unlock()
}

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
battle:
  tick_rate: 30
  max_ticks: 900
combat:
  flank_multiplier: 1.75
ai:
  enabled: false
  safety_margin: 1.5
storage:
  enabled: true
  path: history.db
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	resetGlobals()

	err = Init(configFile)
	require.NoError(t, err)

	c := Get()
	assert.Equal(t, 30, c.Battle.TickRate)
	assert.Equal(t, 900, c.Battle.MaxTicks)
	assert.Equal(t, 1.75, c.Combat.FlankMultiplier)
	assert.False(t, c.AI.Enabled)
	assert.Equal(t, 1.5, c.AI.SafetyMargin)
	assert.Equal(t, "history.db", c.Storage.Path)
	assert.Equal(t, configFile, ConfigFilePath())

	// Untouched keys keep their defaults
	assert.Equal(t, 8, c.Battle.SnapshotBuffer)
	assert.Equal(t, 2.0, c.Combat.RearMultiplier)
}

func TestInitWithDefaults(t *testing.T) {
	resetGlobals()

	// A missing file falls back to defaults
	err := Init("/non/existent/path/config.yaml")
	require.NoError(t, err)

	c := Get()
	require.NotNil(t, c)
	assert.Equal(t, 20, c.Battle.TickRate)
	assert.Equal(t, 6000, c.Battle.MaxTicks)
	assert.Equal(t, 0.3, c.Morale.RoutThreshold)
	assert.Equal(t, 10, c.AI.DecisionInterval)
	assert.Equal(t, "console", c.Logging.Format)
	assert.NoError(t, Validate(c))
}

func TestInitRejectsInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("battle:\n  tick_rate: 0\n"), 0644))

	resetGlobals()

	err := Init(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "battle.tick_rate")
}

func TestEnvironmentVariables(t *testing.T) {
	resetGlobals()

	t.Setenv("TBS_COMBAT_FLANK_MULTIPLIER", "1.9")
	t.Setenv("TBS_BATTLE_MAX_TICKS", "1200")

	err := Init("")
	require.NoError(t, err)

	c := Get()
	assert.Equal(t, 1.9, c.Combat.FlankMultiplier)
	assert.Equal(t, 1200, c.Battle.MaxTicks)
}

func TestSet(t *testing.T) {
	resetGlobals()

	err := Init("")
	require.NoError(t, err)

	before := Get()
	Set("battle.max_ticks", 50)
	Set("ai.engage_range", 20.0)

	c := Get()
	assert.Equal(t, 50, c.Battle.MaxTicks)
	assert.Equal(t, 20.0, c.AI.EngageRange)

	// Copies handed out earlier are unaffected
	assert.Equal(t, 6000, before.Battle.MaxTicks)
}

func TestGetHelpers(t *testing.T) {
	resetGlobals()

	err := Init("")
	require.NoError(t, err)

	Set("test.string", "hello")
	Set("test.int", 42)
	Set("test.float", 3.14)

	assert.Equal(t, "hello", GetString("test.string"))
	assert.Equal(t, 42, GetInt("test.int"))
	assert.Equal(t, 3.14, GetFloat64("test.float"))
}

func TestLoadEnvironmentConfig(t *testing.T) {
	tmpDir := t.TempDir()

	baseConfig := filepath.Join(tmpDir, "config.yaml")
	baseContent := `
battle:
  max_ticks: 3000
logging:
  level: debug
`
	err := os.WriteFile(baseConfig, []byte(baseContent), 0644)
	require.NoError(t, err)

	envConfig := filepath.Join(tmpDir, "config.prod.yaml")
	envContent := `
battle:
  max_ticks: 9000
logging:
  format: json
`
	err = os.WriteFile(envConfig, []byte(envContent), 0644)
	require.NoError(t, err)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	resetGlobals()

	err = Init(baseConfig)
	require.NoError(t, err)

	err = LoadEnvironmentConfig("prod")
	require.NoError(t, err)

	c := Get()
	assert.Equal(t, 9000, c.Battle.MaxTicks)  // Overridden
	assert.Equal(t, "json", c.Logging.Format) // New value
	assert.Equal(t, "debug", c.Logging.Level) // Kept from base

	// A missing overlay is not an error
	assert.NoError(t, LoadEnvironmentConfig("staging"))
}

func TestValidate(t *testing.T) {
	resetGlobals()
	require.NoError(t, Init(""))

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero tick rate", func(c *Config) { c.Battle.TickRate = 0 }},
		{"negative max ticks", func(c *Config) { c.Battle.MaxTicks = -1 }},
		{"empty snapshot buffer", func(c *Config) { c.Battle.SnapshotBuffer = 0 }},
		{"inverted hit chance", func(c *Config) { c.Combat.MinHitChance = 0.9; c.Combat.MaxHitChance = 0.5 }},
		{"flank weaker than front", func(c *Config) { c.Combat.FlankMultiplier = 0.5 }},
		{"rear angle past 180", func(c *Config) { c.Combat.RearAngleDeg = 200 }},
		{"push factor above one", func(c *Config) { c.Collision.PushFactor = 1.5 }},
		{"rout threshold above one", func(c *Config) { c.Morale.RoutThreshold = 1.2 }},
		{"zero spacing", func(c *Config) { c.Formation.Spacing = 0 }},
		{"zero decision interval", func(c *Config) { c.AI.DecisionInterval = 0 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"storage without path", func(c *Config) { c.Storage.Enabled = true; c.Storage.Path = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Get()
			tc.mutate(c)
			assert.Error(t, Validate(c))
		})
	}
}

func TestWatchConfigReloads(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("battle:\n  max_ticks: 100\n"), 0644))

	resetGlobals()
	require.NoError(t, Init(configFile))

	changed := make(chan *Config, 16)
	WatchConfig(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil)

	// Give the watcher a moment to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(configFile, []byte("battle:\n  max_ticks: 250\n"), 0644))

	// A write can surface as several events; wait for the final content
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Battle.MaxTicks == 250 {
				assert.Equal(t, 250, Get().Battle.MaxTicks)
				return
			}
		case <-deadline:
			t.Fatal("config change was not observed")
		}
	}
}
