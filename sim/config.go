package sim

import "fmt"

// ClockConfig groups game and shot clock parameters (seconds).
type ClockConfig struct {
	Quarters                int     `yaml:"quarters"`                   // regulation periods (4)
	QuarterSeconds          float64 `yaml:"quarter_seconds"`            // 720
	OvertimeSeconds         float64 `yaml:"overtime_seconds"`           // 300
	ShotClockSeconds        float64 `yaml:"shot_clock_seconds"`         // 24
	OffensiveReboundSeconds float64 `yaml:"offensive_rebound_seconds"`  // shot clock after an offensive board (14)
	FreeThrowSeconds        float64 `yaml:"free_throw_seconds"`         // clock per attempt
	MinPossessionSeconds    float64 `yaml:"min_possession_seconds"`     // charged to a possession the tree could not resolve
	MaxPeriods              int     `yaml:"max_periods"`                // hard stop for games that cannot progress
}

// StaminaConfig groups per-second stamina rates.
type StaminaConfig struct {
	DepletionRate float64 `yaml:"depletion_rate"` // on court, scaled by endurance
	RecoveryRate  float64 `yaml:"recovery_rate"`  // on the bench
}

// SubstitutionConfig groups the rotation policy.
type SubstitutionConfig struct {
	IntervalSeconds  float64 `yaml:"interval_seconds"`
	SubOutStamina    float64 `yaml:"sub_out_stamina"`   // on-court players below this are candidates to sit
	SubInStamina     float64 `yaml:"sub_in_stamina"`    // bench players must be above this to enter
	OverallMargin    int     `yaml:"overall_margin"`    // bench edge in EffectiveOverall that forces a swap
	RelaxedStamina   float64 `yaml:"relaxed_stamina"`   // below this any bench player may replace
	MaxSwapsPerCheck int     `yaml:"max_swaps_per_check"`
}

// InjuryConfig groups the injury model.
type InjuryConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

// PlayConfig groups possession-level tuning.
type PlayConfig struct {
	MaxPassHops         int     `yaml:"max_pass_hops"`
	MaxPassSeconds      float64 `yaml:"max_pass_seconds"`       // a pass takes U[MinPassSeconds, MaxPassSeconds)
	MinPassSeconds      float64 `yaml:"min_pass_seconds"`
	ShotClockLowSeconds float64 `yaml:"shot_clock_low_seconds"` // default shot-clock-low threshold
	FoulOutLimit        int     `yaml:"foul_out_limit"`
	MinReboundSeconds   float64 `yaml:"min_rebound_seconds"`
	MaxReboundSeconds   float64 `yaml:"max_rebound_seconds"`
}

// Config groups every engine parameter.
type Config struct {
	Clock        ClockConfig        `yaml:"clock"`
	Stamina      StaminaConfig      `yaml:"stamina"`
	Substitution SubstitutionConfig `yaml:"substitution"`
	Injury       InjuryConfig       `yaml:"injury"`
	Play         PlayConfig         `yaml:"play"`
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		Clock: ClockConfig{
			Quarters:                4,
			QuarterSeconds:          720,
			OvertimeSeconds:         300,
			ShotClockSeconds:        24,
			OffensiveReboundSeconds: 14,
			FreeThrowSeconds:        1,
			MinPossessionSeconds:    2,
			MaxPeriods:              50,
		},
		Stamina: StaminaConfig{
			DepletionRate: 0.2,
			RecoveryRate:  0.4,
		},
		Substitution: SubstitutionConfig{
			IntervalSeconds:  60,
			SubOutStamina:    40,
			SubInStamina:     75,
			OverallMargin:    5,
			RelaxedStamina:   15,
			MaxSwapsPerCheck: 1,
		},
		Injury: InjuryConfig{
			Enabled:         true,
			IntervalSeconds: 60,
		},
		Play: PlayConfig{
			MaxPassHops:         6,
			MinPassSeconds:      3,
			MaxPassSeconds:      6,
			ShotClockLowSeconds: 5,
			FoulOutLimit:        6,
			MinReboundSeconds:   2,
			MaxReboundSeconds:   5,
		},
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	switch {
	case c.Clock.Quarters <= 0:
		return fmt.Errorf("clock.quarters must be > 0, got %d", c.Clock.Quarters)
	case c.Clock.QuarterSeconds <= 0 || c.Clock.OvertimeSeconds <= 0:
		return fmt.Errorf("clock: period lengths must be > 0")
	case c.Clock.ShotClockSeconds <= 0 || c.Clock.OffensiveReboundSeconds <= 0:
		return fmt.Errorf("clock: shot clock values must be > 0")
	case c.Clock.OffensiveReboundSeconds > c.Clock.ShotClockSeconds:
		return fmt.Errorf("clock.offensive_rebound_seconds (%v) exceeds shot_clock_seconds (%v)",
			c.Clock.OffensiveReboundSeconds, c.Clock.ShotClockSeconds)
	case c.Clock.FreeThrowSeconds < 0:
		return fmt.Errorf("clock.free_throw_seconds must be >= 0")
	case c.Clock.MinPossessionSeconds <= 0:
		return fmt.Errorf("clock.min_possession_seconds must be > 0")
	case c.Clock.MaxPeriods < c.Clock.Quarters:
		return fmt.Errorf("clock.max_periods (%d) must be >= quarters (%d)", c.Clock.MaxPeriods, c.Clock.Quarters)
	case c.Stamina.DepletionRate < 0 || c.Stamina.RecoveryRate < 0:
		return fmt.Errorf("stamina rates must be >= 0")
	case c.Substitution.IntervalSeconds <= 0:
		return fmt.Errorf("substitution.interval_seconds must be > 0")
	case c.Substitution.SubOutStamina < 0 || c.Substitution.SubInStamina > 100:
		return fmt.Errorf("substitution stamina thresholds out of range")
	case c.Substitution.MaxSwapsPerCheck < 1:
		return fmt.Errorf("substitution.max_swaps_per_check must be >= 1")
	case c.Injury.IntervalSeconds <= 0:
		return fmt.Errorf("injury.interval_seconds must be > 0")
	case c.Play.MaxPassHops < 0:
		return fmt.Errorf("play.max_pass_hops must be >= 0")
	case c.Play.MinPassSeconds <= 0 || c.Play.MaxPassSeconds < c.Play.MinPassSeconds:
		return fmt.Errorf("play: pass duration range [%v,%v) invalid", c.Play.MinPassSeconds, c.Play.MaxPassSeconds)
	case c.Play.MaxPassSeconds > c.Clock.ShotClockSeconds:
		return fmt.Errorf("play.max_pass_seconds (%v) exceeds the shot clock", c.Play.MaxPassSeconds)
	case c.Play.FoulOutLimit < 1:
		return fmt.Errorf("play.foul_out_limit must be >= 1")
	case c.Play.MinReboundSeconds < 0 || c.Play.MaxReboundSeconds < c.Play.MinReboundSeconds:
		return fmt.Errorf("play: rebound duration range invalid")
	}
	return nil
}

// periodSeconds returns the length of the given period.
func (c Config) periodSeconds(quarter int) float64 {
	if quarter > c.Clock.Quarters {
		return c.Clock.OvertimeSeconds
	}
	return c.Clock.QuarterSeconds
}
