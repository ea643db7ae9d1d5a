// Package trace provides play-by-play recording for simulated games.
// This package has no dependencies on sim/; it stores plain data types.
package trace

import "fmt"

// Outcome is how a possession ended.
type Outcome string

const (
	// OutcomeNone marks a possession that has not resolved yet.
	OutcomeNone Outcome = ""
	// OutcomeMade is a made field goal.
	OutcomeMade Outcome = "made"
	// OutcomeMissRebound is a missed field goal followed by a rebound.
	OutcomeMissRebound Outcome = "miss-rebound"
	// OutcomeTurnover covers steals, violations and stalled possessions.
	OutcomeTurnover Outcome = "turnover"
	// OutcomeFreeThrows is a shooting foul resolved at the line.
	OutcomeFreeThrows Outcome = "free-throws"
)

// PossessionRecord captures one possession of the game loop.
type PossessionRecord struct {
	Quarter     int
	ClockBefore float64 // game clock when the possession started (seconds)
	Elapsed     float64 // game seconds consumed, never past the end of the period
	TeamID      int     // offense
	Handler     string
	Passes      int
	Outcome     Outcome
	Points      int // scored by the offense during the possession
	HomeScore   int
	AwayScore   int
}

// PlayRecord is one line of play-by-play text.
type PlayRecord struct {
	Quarter int
	Clock   float64
	TeamID  int
	Text    string
}

// String renders the play the way a scoreboard log does.
func (p PlayRecord) String() string {
	return fmt.Sprintf("[%s] %s", FormatClock(p.Quarter, p.Clock), p.Text)
}

// FormatClock renders a period and remaining seconds as "Q2 07:31".
// Periods after the fourth are shown as overtimes ("OT1").
func FormatClock(quarter int, seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	label := fmt.Sprintf("Q%d", quarter)
	if quarter > 4 {
		label = fmt.Sprintf("OT%d", quarter-4)
	}
	return fmt.Sprintf("%s %02d:%02d", label, total/60, total%60)
}
