package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/league"
)

type memoryTeam struct {
	team    sim.Team
	players []int
	wins    int
	losses  int
}

// MemoryStore is an in-process Backend seeded from a league. It is safe
// for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	teams    map[string]*memoryTeam
	order    []string
	ratings  map[int]sim.PlayerRating
	status   map[int]sim.PlayerStatus
	stats    []sim.StatRow
	games    map[string]*ScheduledGame
	schedule []string
}

// NewMemoryStore copies the league's teams, players and schedule.
func NewMemoryStore(l *league.League) *MemoryStore {
	m := &MemoryStore{
		teams:   make(map[string]*memoryTeam),
		ratings: make(map[int]sim.PlayerRating),
		status:  make(map[int]sim.PlayerStatus),
		games:   make(map[string]*ScheduledGame),
	}
	for _, t := range l.Teams {
		team, entries, _ := l.Roster(t.Abbr)
		mt := &memoryTeam{team: team}
		for _, e := range entries {
			mt.players = append(mt.players, e.Rating.ID)
			m.ratings[e.Rating.ID] = e.Rating
			m.status[e.Rating.ID] = e.Status
		}
		m.teams[t.Abbr] = mt
		m.order = append(m.order, t.Abbr)
	}
	for _, match := range l.Matchups() {
		m.games[match.GameID] = &ScheduledGame{Matchup: match, Status: StatusScheduled}
		m.schedule = append(m.schedule, match.GameID)
	}
	logrus.Debugf("memory store: %d teams, %d players, %d games", len(m.teams), len(m.ratings), len(m.games))
	return m
}

// LoadRoster returns a team's players and their current status.
func (m *MemoryStore) LoadRoster(_ context.Context, abbr string) (sim.Team, []sim.RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.teams[abbr]
	if !ok {
		return sim.Team{}, nil, fmt.Errorf("team %q: %w", abbr, ErrNotFound)
	}
	entries := make([]sim.RosterEntry, 0, len(mt.players))
	for _, id := range mt.players {
		entries = append(entries, sim.RosterEntry{Rating: m.ratings[id], Status: m.status[id]})
	}
	return mt.team, entries, nil
}

// SaveGameResult records the box score, writes status back, marks the
// game final and updates both records.
func (m *MemoryStore) SaveGameResult(_ context.Context, match sim.Matchup, res sim.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[match.GameID]
	if ok && g.Status == StatusFinal {
		return fmt.Errorf("game %s: %w", match.GameID, ErrAlreadyFinal)
	}
	home, okHome := m.teams[match.Home.Abbr]
	away, okAway := m.teams[match.Away.Abbr]
	if !okHome || !okAway {
		return fmt.Errorf("game %s (%s vs %s): %w", match.GameID, match.Home.Abbr, match.Away.Abbr, ErrNotFound)
	}
	if !ok {
		g = &ScheduledGame{Matchup: match}
		m.games[match.GameID] = g
		m.schedule = append(m.schedule, match.GameID)
	}

	m.stats = append(m.stats, res.StatRows...)
	for _, u := range res.StatusUpdates {
		if prev, ok := m.status[u.PlayerID]; ok {
			m.status[u.PlayerID] = u.Apply(prev)
		}
	}
	g.Status = StatusFinal
	g.HomeScore, g.AwayScore = res.HomeScore, res.AwayScore
	switch res.Winner() {
	case sim.Home:
		home.wins++
		away.losses++
	case sim.Away:
		away.wins++
		home.losses++
	}
	return nil
}

// Game returns one schedule entry.
func (m *MemoryStore) Game(_ context.Context, gameID string) (ScheduledGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return ScheduledGame{}, fmt.Errorf("game %q: %w", gameID, ErrNotFound)
	}
	return *g, nil
}

// ScheduledGames returns the unplayed games on date, or all unplayed games
// when date is zero, in schedule order.
func (m *MemoryStore) ScheduledGames(_ context.Context, date time.Time) ([]sim.Matchup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sim.Matchup
	for _, id := range m.schedule {
		g := m.games[id]
		if g.Status != StatusScheduled {
			continue
		}
		if !date.IsZero() && !sameDay(g.Matchup.Date, date) {
			continue
		}
		out = append(out, g.Matchup)
	}
	return out, nil
}

// Standings returns every team ordered by wins, then fewest losses.
func (m *MemoryStore) Standings(_ context.Context) ([]Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Standing, 0, len(m.order))
	for _, abbr := range m.order {
		t := m.teams[abbr]
		out = append(out, Standing{Team: t.team, Wins: t.wins, Losses: t.losses})
	}
	sortStandings(out)
	return out, nil
}

// PlayerStats returns a player's box-score rows in the order they were saved.
func (m *MemoryStore) PlayerStats(_ context.Context, playerID int) ([]sim.StatRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ratings[playerID]; !ok {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}
	var out []sim.StatRow
	for _, row := range m.stats {
		if row.PlayerID == playerID {
			out = append(out, row)
		}
	}
	return out, nil
}

// PlayerStatus returns a player's current condition.
func (m *MemoryStore) PlayerStatus(_ context.Context, playerID int) (sim.PlayerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[playerID]
	if !ok {
		return sim.PlayerStatus{}, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}
	return st, nil
}

// AdvanceDay restores stamina and counts injury layoffs down for everyone.
func (m *MemoryStore) AdvanceDay(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, st := range m.status {
		m.status[id] = recoverDay(st)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
