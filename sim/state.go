package sim

import (
	"context"
	"errors"
	"math"
	"time"
)

// Team indexes used for TeamID and PossessingTeamID.
const (
	Home = 0
	Away = 1
)

// ErrInsufficientRoster is returned when either side cannot field five players.
var ErrInsufficientRoster = errors.New("roster has fewer than 5 eligible players")

// ErrInvalidSubstitution is returned for manual substitutions that break roster rules.
var ErrInvalidSubstitution = errors.New("invalid substitution")

// Phase is the state of the game loop.
type Phase int

const (
	PhaseQuarterStart Phase = iota
	PhaseInPossession
	PhaseQuarterEnd
	PhaseGameEnd
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseQuarterStart:
		return "quarter-start"
	case PhaseInPossession:
		return "in-possession"
	case PhaseQuarterEnd:
		return "quarter-end"
	case PhaseGameEnd:
		return "game-end"
	}
	return "unknown"
}

// GameState is the mutable scoreboard of a game.
type GameState struct {
	Phase            Phase
	Quarter          int
	GameClockSeconds float64
	ShotClockSeconds float64
	HomeScore        int
	AwayScore        int
	PossessingTeamID int

	// BallHandler is the player currently acting for the offense.
	// LastPasser is the most recent teammate to pass to the handler; it is the
	// only source of assist credit. Both are nil at the start of a
	// possession.
	BallHandler *GamePlayer
	LastPasser  *GamePlayer
}

// Score returns the score of the given team.
func (g *GameState) Score(teamID int) int {
	if teamID == Home {
		return g.HomeScore
	}
	return g.AwayScore
}

// Team identifies a club.
type Team struct {
	Abbr string `json:"abbr" yaml:"abbr"`
	Name string `json:"name" yaml:"name"`
}

// Matchup is one scheduled game as handed over by a season driver.
type Matchup struct {
	GameID string
	Season int
	Date   time.Time
	Home   Team
	Away   Team
}

// StatRow is the exported box-score line of one player in one game.
type StatRow struct {
	GameID            string
	Season            int
	GameDate          time.Time
	PlayerID          int
	PlayerName        string
	TeamAbbr          string
	SecondsPlayed     int
	Points            int
	Assists           int
	Rebounds          int
	OffensiveRebounds int
	DefensiveRebounds int
	Steals            int
	Blocks            int
	Turnovers         int
	FieldGoalsMade    int
	FieldGoalsAtt     int
	ThreesMade        int
	ThreesAtt         int
	FreeThrowsMade    int
	FreeThrowsAtt     int
	PersonalFouls     int
	PlusMinus         int
}

// StatusUpdate is the post-game condition of one player.
type StatusUpdate struct {
	PlayerID      int
	Stamina       int
	SecondsPlayed int
	Injured       bool // injured during this game
	InjuryDays    int
}

// Apply merges the update into the previous persisted status. Stamina is
// replaced; a new injury keeps the longer of the old and new layoffs.
func (u StatusUpdate) Apply(prev PlayerStatus) PlayerStatus {
	next := prev
	next.PlayerID = u.PlayerID
	next.Stamina = u.Stamina
	if u.Injured {
		next.IsInjured = true
		next.InjuryDaysLeft = max(prev.InjuryDaysLeft, u.InjuryDays)
	}
	return next
}

// GameSummary counts notable events of a game.
type GameSummary struct {
	Periods             int
	Possessions         int
	Substitutions       int
	Injuries            int
	FoulOuts            int
	ShotClockViolations int
}

// GameResult is produced exactly once, at GameEnd.
type GameResult struct {
	GameID        string
	Home          Team
	Away          Team
	HomeScore     int
	AwayScore     int
	StatRows      []StatRow
	StatusUpdates []StatusUpdate
	Summary       GameSummary
}

// Winner returns Home or Away, or -1 for an unfinished (tied) result.
func (r GameResult) Winner() int {
	switch {
	case r.HomeScore > r.AwayScore:
		return Home
	case r.AwayScore > r.HomeScore:
		return Away
	}
	return -1
}

// Margin returns home score minus away score.
func (r GameResult) Margin() int {
	return r.HomeScore - r.AwayScore
}

// Store supplies rosters and receives finished games.
type Store interface {
	LoadRoster(ctx context.Context, teamAbbr string) (Team, []RosterEntry, error)
	SaveGameResult(ctx context.Context, match Matchup, result GameResult) error
}

func roundStamina(v float64) int {
	return int(math.Round(clamp(v, 0, 100)))
}
