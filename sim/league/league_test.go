package league

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/internal/testutil"
)

func loadSample(t *testing.T) *League {
	t.Helper()
	l, err := Load(testutil.RepoPath(t, "leagues", "sample.yaml"))
	require.NoError(t, err)
	return l
}

func TestLoad_SampleLeague(t *testing.T) {
	l := loadSample(t)

	assert.Equal(t, 2026, l.Season)
	require.Len(t, l.Teams, 4)
	for _, team := range l.Teams {
		assert.Len(t, team.Players, 10, team.Abbr)
		for _, p := range team.Players {
			assert.Equal(t, team.Abbr, p.Team, "players inherit the team abbreviation")
		}
	}
	require.Len(t, l.Schedule, 12)
	assert.Equal(t, "2026-0001-HAR-RVR", l.Schedule[0].ID)
}

func TestRoster_CarriesStatus(t *testing.T) {
	l := loadSample(t)

	team, entries, err := l.Roster("RVR")
	require.NoError(t, err)
	assert.Equal(t, sim.Team{Abbr: "RVR", Name: "Riverton Barges"}, team)
	require.Len(t, entries, 10)

	var injured *sim.RosterEntry
	for i := range entries {
		e := &entries[i]
		assert.Equal(t, e.Rating.ID, e.Status.PlayerID)
		if e.Status.IsInjured {
			injured = e
		} else {
			assert.Equal(t, 100, e.Status.Stamina, "players without a status block are rested")
		}
	}
	require.NotNil(t, injured)
	assert.Equal(t, 39, injured.Rating.ID)
	assert.Equal(t, 85, injured.Status.Stamina)
	assert.Equal(t, 3, injured.Status.InjuryDaysLeft)
}

func TestRoster_UnknownTeam(t *testing.T) {
	l := loadSample(t)
	_, _, err := l.Roster("XXX")
	assert.True(t, errors.Is(err, ErrUnknownTeam), "got %v", err)
}

func TestMatchups(t *testing.T) {
	l := loadSample(t)
	ms := l.Matchups()
	require.Len(t, ms, 12)

	first := ms[0]
	assert.Equal(t, "2026-0001-HAR-RVR", first.GameID)
	assert.Equal(t, 2026, first.Season)
	assert.Equal(t, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "Harbor Gulls", first.Home.Name)
	assert.Equal(t, "RVR", first.Away.Abbr)

	// every team plays six games, three at home
	home := map[string]int{}
	total := map[string]int{}
	for _, m := range ms {
		home[m.Home.Abbr]++
		total[m.Home.Abbr]++
		total[m.Away.Abbr]++
	}
	for _, team := range l.Teams {
		assert.Equal(t, 3, home[team.Abbr], team.Abbr)
		assert.Equal(t, 6, total[team.Abbr], team.Abbr)
	}
}

func TestSampleRostersPlayAGame(t *testing.T) {
	l := loadSample(t)
	m := l.Matchups()[0]
	_, home, err := l.Roster(m.Home.Abbr)
	require.NoError(t, err)
	_, away, err := l.Roster(m.Away.Abbr)
	require.NoError(t, err)

	res, err := sim.Simulate(sim.SimConfig{Match: m, Home: home, Away: away, Seed: 1})
	require.NoError(t, err)
	assert.Len(t, res.StatRows, 20)
	assert.NotEqual(t, res.HomeScore, res.AwayScore)
}

const twoTeams = `
season: 2026
teams:
  - abbr: AAA
    name: Alphas
    players:
      - {id: 1, name: One, position: 1, overall: 70, close_shot: 70, mid_range_shot: 70, three_point_shot: 70, free_throw: 70, layup: 70, driving_dunk: 70, draw_foul: 70, interior_defense: 70, perimeter_defense: 70, steal: 70, block: 70, speed: 70, stamina: 70, pass_iq: 70, ball_handle: 70, offensive_rebound: 70, defensive_rebound: 70, injury_proneness: 0.02%s}
  - abbr: BBB
    name: Betas
    players:
      - {id: %d, name: Two, position: 5, overall: 70, close_shot: 70, mid_range_shot: 70, three_point_shot: 70, free_throw: 70, layup: 70, driving_dunk: 70, draw_foul: 70, interior_defense: 70, perimeter_defense: 70, steal: 70, block: 70, speed: 70, stamina: 70, pass_iq: 70, ball_handle: 70, offensive_rebound: 70, defensive_rebound: 70, injury_proneness: 0.02}
schedule:
  - {date: "%s", home: AAA, away: %s}
`

func leagueDoc(extra string, secondID int, date, away string) string {
	return fmt.Sprintf(twoTeams, extra, secondID, date, away)
}

func TestParse_Valid(t *testing.T) {
	l, err := Parse(strings.NewReader(leagueDoc("", 2, "2026-11-01", "BBB")))
	require.NoError(t, err)
	assert.Equal(t, "2026-0001-AAA-BBB", l.Schedule[0].ID)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown key", leagueDoc(", jersey: 23", 2, "2026-11-01", "BBB"), "jersey"},
		{"duplicate player id", leagueDoc("", 1, "2026-11-01", "BBB"), "player id 1 already used"},
		{"bad date", leagueDoc("", 2, "11/01/2026", "BBB"), "YYYY-MM-DD"},
		{"unknown opponent", leagueDoc("", 2, "2026-11-01", "CCC"), "unknown team"},
		{"self play", leagueDoc("", 2, "2026-11-01", "AAA"), "cannot play itself"},
		{"stamina out of range", leagueDoc(", status: {stamina: 120}", 2, "2026-11-01", "BBB"), "status.stamina"},
		{"healthy with layoff", leagueDoc(", status: {injury_days_left: 4}", 2, "2026-11-01", "BBB"), "healthy player"},
		{"skill out of range", strings.Replace(leagueDoc("", 2, "2026-11-01", "BBB"), "steal: 70", "steal: 140", 1), "steal 140"},
		{"missing season", strings.Replace(leagueDoc("", 2, "2026-11-01", "BBB"), "season: 2026", "season: 0", 1), "season must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
