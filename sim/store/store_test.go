package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/internal/testutil"
	"github.com/courtsim/courtsim/sim/league"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

func sampleLeague(t *testing.T) *league.League {
	t.Helper()
	l, err := league.Load(testutil.RepoPath(t, "leagues", "sample.yaml"))
	require.NoError(t, err)
	return l
}

// backends returns one fresh store per implementation, seeded with the
// sample league.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	l := sampleLeague(t)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "league.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.ImportLeague(context.Background(), l))

	return map[string]Backend{
		"memory": NewMemoryStore(l),
		"sqlite": db,
	}
}

func playGame(t *testing.T, b Backend, m sim.Matchup, seed int64) sim.GameResult {
	t.Helper()
	ctx := context.Background()
	_, home, err := b.LoadRoster(ctx, m.Home.Abbr)
	require.NoError(t, err)
	_, away, err := b.LoadRoster(ctx, m.Away.Abbr)
	require.NoError(t, err)
	res, err := sim.Simulate(sim.SimConfig{Match: m, Home: home, Away: away, Seed: seed})
	require.NoError(t, err)
	return res
}

func TestLoadRoster(t *testing.T) {
	l := sampleLeague(t)
	_, want, err := l.Roster("RVR")
	require.NoError(t, err)

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			team, got, err := b.LoadRoster(context.Background(), "RVR")
			require.NoError(t, err)
			assert.Equal(t, sim.Team{Abbr: "RVR", Name: "Riverton Barges"}, team)
			assert.Equal(t, want, got, "ratings and status round-trip")

			_, _, err = b.LoadRoster(context.Background(), "XXX")
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestSaveGameResult(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			games, err := b.ScheduledGames(ctx, time.Time{})
			require.NoError(t, err)
			require.Len(t, games, 12)
			m := games[0]

			// GIVEN a simulated game
			res := playGame(t, b, m, 5)

			// WHEN it is saved
			require.NoError(t, b.SaveGameResult(ctx, m, res))

			// THEN the schedule, records, stats and status all reflect it
			g, err := b.Game(ctx, m.GameID)
			require.NoError(t, err)
			assert.Equal(t, StatusFinal, g.Status)
			assert.Equal(t, res.HomeScore, g.HomeScore)
			assert.Equal(t, res.AwayScore, g.AwayScore)

			standings, err := b.Standings(ctx)
			require.NoError(t, err)
			require.Len(t, standings, 4)
			winner, loser := m.Home.Abbr, m.Away.Abbr
			if res.Winner() == sim.Away {
				winner, loser = loser, winner
			}
			assert.Equal(t, winner, standings[0].Team.Abbr)
			assert.Equal(t, 1, standings[0].Wins)
			for _, st := range standings {
				if st.Team.Abbr == loser {
					assert.Equal(t, 1, st.Losses)
				}
			}

			left, err := b.ScheduledGames(ctx, time.Time{})
			require.NoError(t, err)
			assert.Len(t, left, 11)

			row := res.StatRows[0]
			rows, err := b.PlayerStats(ctx, row.PlayerID)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, row, rows[0])

			for _, u := range res.StatusUpdates {
				st, err := b.PlayerStatus(ctx, u.PlayerID)
				require.NoError(t, err)
				assert.Equal(t, u.Stamina, st.Stamina, "player %d", u.PlayerID)
				if u.Injured {
					assert.True(t, st.IsInjured)
					assert.GreaterOrEqual(t, st.InjuryDaysLeft, u.InjuryDays)
				}
			}

			// AND saving it again is refused
			err = b.SaveGameResult(ctx, m, res)
			assert.True(t, errors.Is(err, ErrAlreadyFinal), "got %v", err)
		})
	}
}

func TestSaveGameResult_AdHocGame(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := sim.Matchup{
				GameID: "exhibition-1",
				Season: 2026,
				Date:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
				Home:   sim.Team{Abbr: "NTH", Name: "Northfield Pines"},
				Away:   sim.Team{Abbr: "MES", Name: "Mesa Coyotes"},
			}
			res := playGame(t, b, m, 9)
			require.NoError(t, b.SaveGameResult(ctx, m, res))

			g, err := b.Game(ctx, "exhibition-1")
			require.NoError(t, err)
			assert.Equal(t, StatusFinal, g.Status)
			assert.Equal(t, m.Date, g.Matchup.Date)

			_, err = b.Game(ctx, "nope")
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestScheduledGames_ByDate(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			games, err := b.ScheduledGames(context.Background(), time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			require.Len(t, games, 2)
			assert.Equal(t, "NTH", games[0].Home.Abbr)
			assert.Equal(t, "Northfield Pines", games[0].Home.Name)
			assert.Equal(t, 2026, games[0].Season)

			none, err := b.ScheduledGames(context.Background(), time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestAdvanceDay(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// player 39 starts injured for 3 days at 85 stamina; player 13 at 70
			require.NoError(t, b.AdvanceDay(ctx))
			st, err := b.PlayerStatus(ctx, 39)
			require.NoError(t, err)
			assert.Equal(t, sim.PlayerStatus{PlayerID: 39, Stamina: 100, IsInjured: true, InjuryDaysLeft: 2}, st)
			st, err = b.PlayerStatus(ctx, 13)
			require.NoError(t, err)
			assert.Equal(t, 85, st.Stamina)

			require.NoError(t, b.AdvanceDay(ctx))
			require.NoError(t, b.AdvanceDay(ctx))
			st, err = b.PlayerStatus(ctx, 39)
			require.NoError(t, err)
			assert.Equal(t, sim.PlayerStatus{PlayerID: 39, Stamina: 100}, st, "healed after the layoff")
		})
	}
}

func TestPlayerStats_UnknownPlayer(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.PlayerStats(context.Background(), 9999)
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
			_, err = b.PlayerStatus(context.Background(), 9999)
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestRecoverDay(t *testing.T) {
	tests := []struct {
		in, want sim.PlayerStatus
	}{
		{sim.PlayerStatus{Stamina: 50}, sim.PlayerStatus{Stamina: 65}},
		{sim.PlayerStatus{Stamina: 95}, sim.PlayerStatus{Stamina: 100}},
		{sim.PlayerStatus{Stamina: 100, IsInjured: true, InjuryDaysLeft: 5}, sim.PlayerStatus{Stamina: 100, IsInjured: true, InjuryDaysLeft: 4}},
		{sim.PlayerStatus{Stamina: 100, IsInjured: true, InjuryDaysLeft: 1}, sim.PlayerStatus{Stamina: 100}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, recoverDay(tc.in))
	}
}

func TestSQLite_ReimportKeepsResults(t *testing.T) {
	// GIVEN a database with one saved game
	ctx := context.Background()
	l := sampleLeague(t)
	path := filepath.Join(t.TempDir(), "league.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.ImportLeague(ctx, l))
	m := l.Matchups()[0]
	res := playGame(t, db, m, 21)
	require.NoError(t, db.SaveGameResult(ctx, m, res))
	require.NoError(t, db.Close())

	// WHEN the file is reopened and the league imported again
	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.ImportLeague(ctx, l))

	// THEN the result survives
	g, err := db.Game(ctx, m.GameID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinal, g.Status)
	left, err := db.ScheduledGames(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, left, 11)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}
