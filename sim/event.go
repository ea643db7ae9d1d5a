package sim

import (
	"fmt"

	"github.com/courtsim/courtsim/sim/trace"
)

// GameTime is a point on the game clock.
type GameTime struct {
	Quarter int
	Clock   float64 // seconds left in the period
}

// String renders the time as "Q3 04:12".
func (t GameTime) String() string {
	return trace.FormatClock(t.Quarter, t.Clock)
}

// Event is a notable in-game occurrence delivered to the event hook.
// Hooks run synchronously on the simulating goroutine and must not
// call back into the Simulator.
type Event interface {
	Time() GameTime
	Describe() string
}

// SubstitutionReason says why a player left the floor.
type SubstitutionReason string

const (
	ReasonRotation SubstitutionReason = "rotation"
	ReasonInjury   SubstitutionReason = "injury"
	ReasonFoulOut  SubstitutionReason = "foul-out"
	ReasonManual   SubstitutionReason = "manual"
)

// SubstitutionEvent reports one player replacing another.
type SubstitutionEvent struct {
	At     GameTime
	TeamID int
	Out    *GamePlayer
	In     *GamePlayer
	Reason SubstitutionReason
}

// Time implements Event.
func (e SubstitutionEvent) Time() GameTime { return e.At }

// Describe implements Event.
func (e SubstitutionEvent) Describe() string {
	return fmt.Sprintf("%s checks in for %s (%s)", e.In.Name(), e.Out.Name(), e.Reason)
}

// InjuryEvent reports a player injured and removed from the game.
type InjuryEvent struct {
	At     GameTime
	Player *GamePlayer
	Days   int
}

// Time implements Event.
func (e InjuryEvent) Time() GameTime { return e.At }

// Describe implements Event.
func (e InjuryEvent) Describe() string {
	return fmt.Sprintf("%s is injured (out %d days)", e.Player.Name(), e.Days)
}

// FoulOutEvent reports a player disqualified on personal fouls.
type FoulOutEvent struct {
	At     GameTime
	Player *GamePlayer
}

// Time implements Event.
func (e FoulOutEvent) Time() GameTime { return e.At }

// Describe implements Event.
func (e FoulOutEvent) Describe() string {
	return fmt.Sprintf("%s fouls out", e.Player.Name())
}
