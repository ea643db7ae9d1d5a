package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Clock.Quarters)
	assert.Equal(t, 720.0, cfg.Clock.QuarterSeconds)
	assert.Equal(t, 24.0, cfg.Clock.ShotClockSeconds)
	assert.Equal(t, 14.0, cfg.Clock.OffensiveReboundSeconds)
	assert.Equal(t, 6, cfg.Play.FoulOutLimit)
}

func TestConfig_PeriodSeconds(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 720.0, cfg.periodSeconds(1))
	assert.Equal(t, 720.0, cfg.periodSeconds(4))
	assert.Equal(t, 300.0, cfg.periodSeconds(5))
	assert.Equal(t, 300.0, cfg.periodSeconds(9))
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no quarters", func(c *Config) { c.Clock.Quarters = 0 }, "clock.quarters"},
		{"zero overtime", func(c *Config) { c.Clock.OvertimeSeconds = 0 }, "period lengths"},
		{"offensive reset above shot clock", func(c *Config) { c.Clock.OffensiveReboundSeconds = 30 }, "offensive_rebound_seconds"},
		{"zero min possession", func(c *Config) { c.Clock.MinPossessionSeconds = 0 }, "min_possession_seconds"},
		{"max periods below quarters", func(c *Config) { c.Clock.MaxPeriods = 3 }, "max_periods"},
		{"negative depletion", func(c *Config) { c.Stamina.DepletionRate = -1 }, "stamina rates"},
		{"zero sub interval", func(c *Config) { c.Substitution.IntervalSeconds = 0 }, "interval_seconds"},
		{"no swaps", func(c *Config) { c.Substitution.MaxSwapsPerCheck = 0 }, "max_swaps_per_check"},
		{"zero injury interval", func(c *Config) { c.Injury.IntervalSeconds = 0 }, "injury.interval_seconds"},
		{"inverted pass range", func(c *Config) { c.Play.MinPassSeconds = 7 }, "pass duration"},
		{"pass longer than shot clock", func(c *Config) {
			c.Play.MinPassSeconds = 20
			c.Play.MaxPassSeconds = 30
		}, "exceeds the shot clock"},
		{"no fouls allowed", func(c *Config) { c.Play.FoulOutLimit = 0 }, "foul_out_limit"},
		{"inverted rebound range", func(c *Config) { c.Play.MaxReboundSeconds = 1 }, "rebound duration"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestNewSimulator_RejectsInvalidEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clock.Quarters = 0
	_, err := NewSimulator(SimConfig{
		Match:  testMatch(),
		Home:   uniformRoster("HOM", 1, 70, 8),
		Away:   uniformRoster("AWY", 101, 70, 8),
		Engine: &cfg,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine config")
}
