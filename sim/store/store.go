// Package store persists rosters, player status, box scores and the
// schedule. MemoryStore keeps everything in process; SQLiteStore writes to
// a SQLite database file.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/courtsim/courtsim/sim"
)

var (
	// ErrNotFound is returned for unknown teams, players or games.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyFinal is returned when a result is saved twice for one game.
	ErrAlreadyFinal = errors.New("game already final")
)

// Game statuses.
const (
	StatusScheduled = "Scheduled"
	StatusFinal     = "Final"
)

// StaminaRecoveryPerDay is the stamina every player regains on a new day.
const StaminaRecoveryPerDay = 15

// ScheduledGame is one schedule entry and, once played, its final score.
type ScheduledGame struct {
	Matchup   sim.Matchup
	Status    string
	HomeScore int
	AwayScore int
}

// Standing is a team's win/loss record.
type Standing struct {
	Team   sim.Team
	Wins   int
	Losses int
}

// Pct returns the winning percentage, 0 before any game.
func (s Standing) Pct() float64 {
	if s.Wins+s.Losses == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Wins+s.Losses)
}

// Backend is the full persistence surface used by the season driver and
// the CLI. Both implementations satisfy it.
type Backend interface {
	sim.Store
	Game(ctx context.Context, gameID string) (ScheduledGame, error)
	ScheduledGames(ctx context.Context, date time.Time) ([]sim.Matchup, error)
	Standings(ctx context.Context) ([]Standing, error)
	PlayerStats(ctx context.Context, playerID int) ([]sim.StatRow, error)
	PlayerStatus(ctx context.Context, playerID int) (sim.PlayerStatus, error)
	AdvanceDay(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*MemoryStore)(nil)
	_ Backend = (*SQLiteStore)(nil)
)

// recoverDay applies one day of rest to a player's status.
func recoverDay(st sim.PlayerStatus) sim.PlayerStatus {
	st.Stamina = min(st.Stamina+StaminaRecoveryPerDay, 100)
	if st.IsInjured {
		st.InjuryDaysLeft--
		if st.InjuryDaysLeft <= 0 {
			st.IsInjured = false
			st.InjuryDaysLeft = 0
		}
	}
	return st
}

func sortStandings(out []Standing) {
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses < b.Losses
		}
		return a.Team.Abbr < b.Team.Abbr
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
