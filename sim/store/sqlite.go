package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/league"

	_ "modernc.org/sqlite"
)

const (
	openTimeout  = 5 * time.Second
	queryTimeout = 3 * time.Second
)

// SQLiteStore is a Backend on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema. ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS teams (
    abbr TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    wins INTEGER NOT NULL DEFAULT 0,
    losses INTEGER NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS player_ratings (
    player_id INTEGER PRIMARY KEY,
    team_abbr TEXT NOT NULL REFERENCES teams(abbr),
    name TEXT NOT NULL,
    position INTEGER NOT NULL,
    overall INTEGER NOT NULL,
    potential INTEGER NOT NULL DEFAULT 0,
    close_shot INTEGER NOT NULL,
    mid_range_shot INTEGER NOT NULL,
    three_point_shot INTEGER NOT NULL,
    free_throw INTEGER NOT NULL,
    layup INTEGER NOT NULL,
    driving_dunk INTEGER NOT NULL,
    draw_foul INTEGER NOT NULL,
    interior_defense INTEGER NOT NULL,
    perimeter_defense INTEGER NOT NULL,
    steal INTEGER NOT NULL,
    block INTEGER NOT NULL,
    speed INTEGER NOT NULL,
    stamina INTEGER NOT NULL,
    pass_iq INTEGER NOT NULL,
    ball_handle INTEGER NOT NULL,
    offensive_rebound INTEGER NOT NULL,
    defensive_rebound INTEGER NOT NULL,
    injury_proneness REAL NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_player_ratings_team ON player_ratings(team_abbr, player_id)`,
		`
CREATE TABLE IF NOT EXISTS player_status (
    player_id INTEGER PRIMARY KEY REFERENCES player_ratings(player_id),
    stamina INTEGER NOT NULL DEFAULT 100,
    is_injured INTEGER NOT NULL DEFAULT 0,
    injury_days_left INTEGER NOT NULL DEFAULT 0
)`,
		`
CREATE TABLE IF NOT EXISTS schedule (
    game_id TEXT PRIMARY KEY,
    season INTEGER NOT NULL,
    game_date TEXT NOT NULL,
    home_abbr TEXT NOT NULL REFERENCES teams(abbr),
    away_abbr TEXT NOT NULL REFERENCES teams(abbr),
    status TEXT NOT NULL DEFAULT 'Scheduled',
    home_score INTEGER NOT NULL DEFAULT 0,
    away_score INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_date ON schedule(status, game_date, game_id)`,
		`
CREATE TABLE IF NOT EXISTS player_stats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id TEXT NOT NULL,
    season INTEGER NOT NULL,
    game_date TEXT NOT NULL,
    player_id INTEGER NOT NULL,
    player_name TEXT NOT NULL,
    team_abbr TEXT NOT NULL,
    seconds_played INTEGER NOT NULL,
    points INTEGER NOT NULL,
    assists INTEGER NOT NULL,
    rebounds INTEGER NOT NULL,
    offensive_rebounds INTEGER NOT NULL,
    defensive_rebounds INTEGER NOT NULL,
    steals INTEGER NOT NULL,
    blocks INTEGER NOT NULL,
    turnovers INTEGER NOT NULL,
    fg_made INTEGER NOT NULL,
    fg_att INTEGER NOT NULL,
    three_made INTEGER NOT NULL,
    three_att INTEGER NOT NULL,
    ft_made INTEGER NOT NULL,
    ft_att INTEGER NOT NULL,
    personal_fouls INTEGER NOT NULL,
    plus_minus INTEGER NOT NULL,
    UNIQUE (game_id, player_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_player_stats_player ON player_stats(player_id, game_date)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ratingColumns lists player_ratings columns in ratingFields order.
var ratingColumns = []string{
	"player_id", "name", "position", "overall", "potential",
	"close_shot", "mid_range_shot", "three_point_shot", "free_throw", "layup",
	"driving_dunk", "draw_foul", "interior_defense", "perimeter_defense", "steal",
	"block", "speed", "stamina", "pass_iq", "ball_handle",
	"offensive_rebound", "defensive_rebound", "injury_proneness",
}

// ratingFields returns pointers to r's fields in ratingColumns order, for
// both inserting and scanning.
func ratingFields(r *sim.PlayerRating) []any {
	return []any{
		&r.ID, &r.Name, &r.Position, &r.Overall, &r.Potential,
		&r.CloseShot, &r.MidRangeShot, &r.ThreePointShot, &r.FreeThrow, &r.Layup,
		&r.DrivingDunk, &r.DrawFoul, &r.InteriorDefense, &r.PerimeterDefense, &r.Steal,
		&r.Block, &r.Speed, &r.Stamina, &r.PassIQ, &r.BallHandle,
		&r.OffensiveRebound, &r.DefensiveRebound, &r.InjuryProneness,
	}
}

// statColumns lists player_stats columns in statFields order.
var statColumns = []string{
	"game_id", "season", "player_id", "player_name", "team_abbr", "seconds_played",
	"points", "assists", "rebounds", "offensive_rebounds", "defensive_rebounds",
	"steals", "blocks", "turnovers", "fg_made", "fg_att", "three_made", "three_att",
	"ft_made", "ft_att", "personal_fouls", "plus_minus",
}

func statFields(r *sim.StatRow) []any {
	return []any{
		&r.GameID, &r.Season, &r.PlayerID, &r.PlayerName, &r.TeamAbbr, &r.SecondsPlayed,
		&r.Points, &r.Assists, &r.Rebounds, &r.OffensiveRebounds, &r.DefensiveRebounds,
		&r.Steals, &r.Blocks, &r.Turnovers, &r.FieldGoalsMade, &r.FieldGoalsAtt, &r.ThreesMade, &r.ThreesAtt,
		&r.FreeThrowsMade, &r.FreeThrowsAtt, &r.PersonalFouls, &r.PlusMinus,
	}
}

// values dereferences field pointers into plain driver values.
func values(fields []any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		switch v := f.(type) {
		case *int:
			out[i] = int64(*v)
		case *sim.Position:
			out[i] = int64(*v)
		case *float64:
			out[i] = *v
		case *string:
			out[i] = *v
		default:
			panic(fmt.Sprintf("store: unsupported field type %T", f))
		}
	}
	return out
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ImportLeague upserts a league's teams, ratings and status, and adds its
// scheduled games. Games already in the schedule are left untouched, so a
// league can be re-imported without losing results.
func (s *SQLiteStore) ImportLeague(ctx context.Context, l *league.League) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsertRating := fmt.Sprintf(`
INSERT INTO player_ratings (team_abbr, %s)
VALUES (?, %s)
ON CONFLICT (player_id) DO UPDATE SET team_abbr = excluded.team_abbr, %s`,
		strings.Join(ratingColumns, ", "), placeholders(len(ratingColumns)), updateAssignments(ratingColumns[1:]))

	players := 0
	for _, t := range l.Teams {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO teams (abbr, name) VALUES (?, ?)
ON CONFLICT (abbr) DO UPDATE SET name = excluded.name`, t.Abbr, t.Name); err != nil {
			return fmt.Errorf("team %s: %w", t.Abbr, err)
		}
		_, entries, err := l.Roster(t.Abbr)
		if err != nil {
			return err
		}
		for _, e := range entries {
			r := e.Rating
			args := append([]any{t.Abbr}, values(ratingFields(&r))...)
			if _, err := tx.ExecContext(ctx, upsertRating, args...); err != nil {
				return fmt.Errorf("player %d: %w", r.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO player_status (player_id, stamina, is_injured, injury_days_left) VALUES (?, ?, ?, ?)
ON CONFLICT (player_id) DO UPDATE SET
    stamina = excluded.stamina,
    is_injured = excluded.is_injured,
    injury_days_left = excluded.injury_days_left`,
				r.ID, e.Status.Stamina, boolInt(e.Status.IsInjured), e.Status.InjuryDaysLeft); err != nil {
				return fmt.Errorf("player %d status: %w", r.ID, err)
			}
			players++
		}
	}

	games := 0
	for _, m := range l.Matchups() {
		res, err := tx.ExecContext(ctx, `
INSERT INTO schedule (game_id, season, game_date, home_abbr, away_abbr)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (game_id) DO NOTHING`,
			m.GameID, m.Season, m.Date.Format(league.DateLayout), m.Home.Abbr, m.Away.Abbr)
		if err != nil {
			return fmt.Errorf("game %s: %w", m.GameID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			games++
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logrus.Infof("imported season %d: %d teams, %d players, %d new games", l.Season, len(l.Teams), players, games)
	return nil
}

func updateAssignments(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return strings.Join(parts, ", ")
}

// LoadRoster returns a team's players, ordered by id, with current status.
func (s *SQLiteStore) LoadRoster(ctx context.Context, abbr string) (sim.Team, []sim.RosterEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	team := sim.Team{Abbr: abbr}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM teams WHERE abbr = ?`, abbr).Scan(&team.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.Team{}, nil, fmt.Errorf("team %q: %w", abbr, ErrNotFound)
	}
	if err != nil {
		return sim.Team{}, nil, err
	}

	cols := make([]string, len(ratingColumns))
	for i, c := range ratingColumns {
		cols[i] = "r." + c
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s, COALESCE(st.stamina, 100), COALESCE(st.is_injured, 0), COALESCE(st.injury_days_left, 0)
FROM player_ratings r
LEFT JOIN player_status st ON st.player_id = r.player_id
WHERE r.team_abbr = ?
ORDER BY r.player_id`, strings.Join(cols, ", ")), abbr)
	if err != nil {
		return sim.Team{}, nil, err
	}
	defer rows.Close()

	var entries []sim.RosterEntry
	for rows.Next() {
		var e sim.RosterEntry
		dest := append(ratingFields(&e.Rating), &e.Status.Stamina, &e.Status.IsInjured, &e.Status.InjuryDaysLeft)
		if err := rows.Scan(dest...); err != nil {
			return sim.Team{}, nil, err
		}
		e.Rating.Team = abbr
		e.Status.PlayerID = e.Rating.ID
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return sim.Team{}, nil, err
	}
	return team, entries, nil
}

// SaveGameResult writes the box score, status updates, final score and
// both team records in one transaction.
func (s *SQLiteStore) SaveGameResult(ctx context.Context, match sim.Matchup, res sim.GameResult) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM schedule WHERE game_id = ?`, match.GameID).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
INSERT INTO schedule (game_id, season, game_date, home_abbr, away_abbr) VALUES (?, ?, ?, ?, ?)`,
			match.GameID, match.Season, match.Date.Format(league.DateLayout), match.Home.Abbr, match.Away.Abbr); err != nil {
			return fmt.Errorf("game %s (%s vs %s): %w", match.GameID, match.Home.Abbr, match.Away.Abbr, err)
		}
	case err != nil:
		return err
	case status == StatusFinal:
		return fmt.Errorf("game %s: %w", match.GameID, ErrAlreadyFinal)
	}

	insertStat := fmt.Sprintf(`INSERT INTO player_stats (game_date, %s) VALUES (?, %s)`,
		strings.Join(statColumns, ", "), placeholders(len(statColumns)))
	date := match.Date.Format(league.DateLayout)
	for i := range res.StatRows {
		row := res.StatRows[i]
		if _, err := tx.ExecContext(ctx, insertStat, append([]any{date}, values(statFields(&row))...)...); err != nil {
			return fmt.Errorf("stats for player %d: %w", row.PlayerID, err)
		}
	}

	for _, u := range res.StatusUpdates {
		var prev sim.PlayerStatus
		err := tx.QueryRowContext(ctx,
			`SELECT stamina, is_injured, injury_days_left FROM player_status WHERE player_id = ?`, u.PlayerID).
			Scan(&prev.Stamina, &prev.IsInjured, &prev.InjuryDaysLeft)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		next := u.Apply(prev)
		if _, err := tx.ExecContext(ctx, `
UPDATE player_status SET stamina = ?, is_injured = ?, injury_days_left = ? WHERE player_id = ?`,
			next.Stamina, boolInt(next.IsInjured), next.InjuryDaysLeft, u.PlayerID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE schedule SET status = ?, home_score = ?, away_score = ? WHERE game_id = ?`,
		StatusFinal, res.HomeScore, res.AwayScore, match.GameID); err != nil {
		return err
	}
	if winner := res.Winner(); winner >= 0 {
		teams := [2]string{match.Home.Abbr, match.Away.Abbr}
		if _, err := tx.ExecContext(ctx, `UPDATE teams SET wins = wins + 1 WHERE abbr = ?`, teams[winner]); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE teams SET losses = losses + 1 WHERE abbr = ?`, teams[1-winner]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const scheduleSelect = `
SELECT s.game_id, s.season, s.game_date, s.home_abbr, h.name, s.away_abbr, a.name, s.status, s.home_score, s.away_score
FROM schedule s
JOIN teams h ON h.abbr = s.home_abbr
JOIN teams a ON a.abbr = s.away_abbr`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (ScheduledGame, error) {
	var g ScheduledGame
	var date string
	m := &g.Matchup
	if err := row.Scan(&m.GameID, &m.Season, &date, &m.Home.Abbr, &m.Home.Name, &m.Away.Abbr, &m.Away.Name,
		&g.Status, &g.HomeScore, &g.AwayScore); err != nil {
		return ScheduledGame{}, err
	}
	d, err := time.Parse(league.DateLayout, date)
	if err != nil {
		return ScheduledGame{}, fmt.Errorf("game %s: bad date %q", m.GameID, date)
	}
	m.Date = d
	return g, nil
}

// Game returns one schedule entry.
func (s *SQLiteStore) Game(ctx context.Context, gameID string) (ScheduledGame, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	g, err := scanGame(s.db.QueryRowContext(ctx, scheduleSelect+` WHERE s.game_id = ?`, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return ScheduledGame{}, fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	return g, err
}

// ScheduledGames returns the unplayed games on date, or all unplayed games
// when date is zero, ordered by date and id.
func (s *SQLiteStore) ScheduledGames(ctx context.Context, date time.Time) ([]sim.Matchup, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	query := scheduleSelect + ` WHERE s.status = ?`
	args := []any{StatusScheduled}
	if !date.IsZero() {
		query += ` AND s.game_date = ?`
		args = append(args, date.Format(league.DateLayout))
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY s.game_date, s.game_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sim.Matchup
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g.Matchup)
	}
	return out, rows.Err()
}

// Standings returns every team ordered by wins, then fewest losses.
func (s *SQLiteStore) Standings(ctx context.Context) ([]Standing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT abbr, name, wins, losses FROM teams`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Standing
	for rows.Next() {
		var st Standing
		if err := rows.Scan(&st.Team.Abbr, &st.Team.Name, &st.Wins, &st.Losses); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortStandings(out)
	return out, nil
}

// PlayerStats returns a player's box-score rows ordered by game date.
func (s *SQLiteStore) PlayerStats(ctx context.Context, playerID int) ([]sim.StatRow, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM player_ratings WHERE player_id = ?`, playerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT game_date, %s FROM player_stats WHERE player_id = ? ORDER BY game_date, id`,
		strings.Join(statColumns, ", ")), playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sim.StatRow
	for rows.Next() {
		var row sim.StatRow
		var date string
		if err := rows.Scan(append([]any{&date}, statFields(&row)...)...); err != nil {
			return nil, err
		}
		if row.GameDate, err = time.Parse(league.DateLayout, date); err != nil {
			return nil, fmt.Errorf("stats row for game %s: bad date %q", row.GameID, date)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PlayerStatus returns a player's current condition.
func (s *SQLiteStore) PlayerStatus(ctx context.Context, playerID int) (sim.PlayerStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	st := sim.PlayerStatus{PlayerID: playerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT stamina, is_injured, injury_days_left FROM player_status WHERE player_id = ?`, playerID).
		Scan(&st.Stamina, &st.IsInjured, &st.InjuryDaysLeft)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.PlayerStatus{}, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}
	return st, err
}

// AdvanceDay restores stamina and counts injury layoffs down for everyone.
func (s *SQLiteStore) AdvanceDay(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE player_status SET stamina = MIN(stamina + ?, 100)`, StaminaRecoveryPerDay); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE player_status
SET injury_days_left = injury_days_left - 1
WHERE is_injured = 1`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE player_status
SET is_injured = 0, injury_days_left = 0
WHERE is_injured = 1 AND injury_days_left <= 0`); err != nil {
		return err
	}
	return tx.Commit()
}
