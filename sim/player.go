package sim

import (
	"fmt"
	"math"
)

// Position is a player's listed position, 1 (PG) through 5 (C).
type Position int

const (
	PointGuard Position = iota + 1
	ShootingGuard
	SmallForward
	PowerForward
	Center
)

var positionNames = map[Position]string{
	PointGuard:    "PG",
	ShootingGuard: "SG",
	SmallForward:  "SF",
	PowerForward:  "PF",
	Center:        "C",
}

// String returns the short position label.
func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// Valid reports whether p is one of the five positions.
func (p Position) Valid() bool {
	return p >= PointGuard && p <= Center
}

// positionFlexibility lists, per position, which positions a substitute may
// cover it from, in order of preference.
var positionFlexibility = map[Position][]Position{
	PointGuard:    {PointGuard, ShootingGuard},
	ShootingGuard: {ShootingGuard, PointGuard, SmallForward},
	SmallForward:  {SmallForward, ShootingGuard, PowerForward},
	PowerForward:  {PowerForward, Center, SmallForward},
	Center:        {Center, PowerForward},
}

// canCover reports whether a player listed at from can fill slot.
func canCover(slot, from Position) bool {
	for _, p := range positionFlexibility[slot] {
		if p == from {
			return true
		}
	}
	return false
}

// PlayerRating is the immutable talent profile of a player. Skill
// attributes are on a 0..99 scale.
type PlayerRating struct {
	ID        int      `yaml:"id"`
	Name      string   `yaml:"name"`
	Team      string   `yaml:"team,omitempty"`
	Position  Position `yaml:"position"`
	Overall   int      `yaml:"overall"`
	Potential int      `yaml:"potential,omitempty"`

	CloseShot        int `yaml:"close_shot"`
	MidRangeShot     int `yaml:"mid_range_shot"`
	ThreePointShot   int `yaml:"three_point_shot"`
	FreeThrow        int `yaml:"free_throw"`
	Layup            int `yaml:"layup"`
	DrivingDunk      int `yaml:"driving_dunk"`
	DrawFoul         int `yaml:"draw_foul"`
	InteriorDefense  int `yaml:"interior_defense"`
	PerimeterDefense int `yaml:"perimeter_defense"`
	Steal            int `yaml:"steal"`
	Block            int `yaml:"block"`
	Speed            int `yaml:"speed"`
	Stamina          int `yaml:"stamina"`
	PassIQ           int `yaml:"pass_iq"`
	BallHandle       int `yaml:"ball_handle"`
	OffensiveRebound int `yaml:"offensive_rebound"`
	DefensiveRebound int `yaml:"defensive_rebound"`

	// InjuryProneness scales the per-check injury chance, typically 0.01..0.1.
	InjuryProneness float64 `yaml:"injury_proneness"`
}

// skills returns pointers to every 0..99 skill attribute, for validation
// and bulk adjustment.
func (r *PlayerRating) skills() map[string]*int {
	return map[string]*int{
		"close_shot":        &r.CloseShot,
		"mid_range_shot":    &r.MidRangeShot,
		"three_point_shot":  &r.ThreePointShot,
		"free_throw":        &r.FreeThrow,
		"layup":             &r.Layup,
		"driving_dunk":      &r.DrivingDunk,
		"draw_foul":         &r.DrawFoul,
		"interior_defense":  &r.InteriorDefense,
		"perimeter_defense": &r.PerimeterDefense,
		"steal":             &r.Steal,
		"block":             &r.Block,
		"speed":             &r.Speed,
		"stamina":           &r.Stamina,
		"pass_iq":           &r.PassIQ,
		"ball_handle":       &r.BallHandle,
		"offensive_rebound": &r.OffensiveRebound,
		"defensive_rebound": &r.DefensiveRebound,
	}
}

// Validate checks attribute ranges.
func (r PlayerRating) Validate() error {
	if !r.Position.Valid() {
		return fmt.Errorf("player %d (%s): invalid position %d", r.ID, r.Name, int(r.Position))
	}
	if r.Overall < 0 || r.Overall > 99 {
		return fmt.Errorf("player %d (%s): overall %d out of range [0,99]", r.ID, r.Name, r.Overall)
	}
	for name, v := range r.skills() {
		if *v < 0 || *v > 99 {
			return fmt.Errorf("player %d (%s): %s %d out of range [0,99]", r.ID, r.Name, name, *v)
		}
	}
	if r.InjuryProneness < 0 || math.IsNaN(r.InjuryProneness) {
		return fmt.Errorf("player %d (%s): injury_proneness must be >= 0, got %v", r.ID, r.Name, r.InjuryProneness)
	}
	return nil
}

// PlayerStatus is the persisted day-to-day condition of a player.
type PlayerStatus struct {
	PlayerID       int  `yaml:"-"`
	Stamina        int  `yaml:"stamina"`
	IsInjured      bool `yaml:"injured"`
	InjuryDaysLeft int  `yaml:"injury_days_left"`
}

// RosterEntry is one roster slot as supplied by a Store.
type RosterEntry struct {
	Rating PlayerRating
	Status PlayerStatus
}

// LiveStats is a player's box-score line for the current game.
type LiveStats struct {
	Points            int
	Assists           int
	OffensiveRebounds int
	DefensiveRebounds int
	Steals            int
	Blocks            int
	Turnovers         int
	PersonalFouls     int

	FieldGoalsMade         int
	FieldGoalsAttempted    int
	ThreePointersMade      int
	ThreePointersAttempted int
	FreeThrowsMade         int
	FreeThrowsAttempted    int

	SecondsPlayed float64
	PlusMinus     int
}

// Rebounds returns total rebounds.
func (s LiveStats) Rebounds() int {
	return s.OffensiveRebounds + s.DefensiveRebounds
}

// GamePlayer is a roster player during one game. The rating is shared and
// read-only; everything else is owned by the game.
type GamePlayer struct {
	Rating *PlayerRating
	Stats  LiveStats
	TeamID int

	CurrentStamina    float64
	MaxStaminaForGame float64

	IsOnCourt          bool
	IsEjected          bool
	FouledOut          bool
	IsCurrentlyInjured bool // carried in from persisted status
	InjuredThisGame    bool
	InjuryDays         int

	EffectiveOverall int
}

func newGamePlayer(entry RosterEntry, teamID int) *GamePlayer {
	rating := entry.Rating
	maxStamina := clamp(float64(entry.Status.Stamina), 0, 100)
	p := &GamePlayer{
		Rating:             &rating,
		TeamID:             teamID,
		CurrentStamina:     maxStamina,
		MaxStaminaForGame:  maxStamina,
		IsCurrentlyInjured: entry.Status.IsInjured,
	}
	p.refreshEffectiveOverall()
	return p
}

// ID returns the player id.
func (p *GamePlayer) ID() int { return p.Rating.ID }

// Name returns the player name.
func (p *GamePlayer) Name() string { return p.Rating.Name }

// Available reports whether the player can still take part in the game.
func (p *GamePlayer) Available() bool { return !p.IsEjected }

func (p *GamePlayer) refreshEffectiveOverall() {
	p.EffectiveOverall = EffectiveOverall(AdjustedRating(p))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
