package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/courtsim/courtsim/sim/trace"
)

func TestNewSimulator_InsufficientRoster(t *testing.T) {
	// GIVEN a home side with only four players
	res, err := Simulate(SimConfig{
		Match: testMatch(),
		Home:  uniformRoster("HOM", 1, 80, 4),
		Away:  uniformRoster("AWY", 100, 80, 10),
		Seed:  1,
	})

	// THEN setup fails with a signalled error and a degenerate result
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientRoster))
	assert.Equal(t, 0, res.HomeScore)
	assert.Equal(t, 0, res.AwayScore)
	assert.Empty(t, res.StatRows)
	assert.Empty(t, res.StatusUpdates)
}

func TestNewSimulator_RejectsDuplicatePlayers(t *testing.T) {
	home := uniformRoster("HOM", 1, 80, 6)
	home[5].Rating.ID = home[0].Rating.ID
	_, err := NewSimulator(SimConfig{Match: testMatch(), Home: home, Away: uniformRoster("AWY", 100, 80, 6)})
	assert.ErrorContains(t, err, "listed twice")
}

func TestSelectStarters_CoversEveryPosition(t *testing.T) {
	// GIVEN a roster whose two best players are both centers
	home := uniformRoster("HOM", 1, 70, 10)
	home[4].Rating = uniformRating(5, "big-1", Center, 90)
	home[9].Rating = uniformRating(10, "big-2", Center, 88)
	s := newTestSim(t, home, uniformRoster("AWY", 100, 70, 10), 1, nil)

	// THEN five start, one per position, led by the best center
	starters := s.OnCourt(Home)
	require.Len(t, starters, 5)
	seen := map[Position]bool{}
	for _, p := range starters {
		seen[p.Rating.Position] = true
	}
	assert.Len(t, seen, 5)
	assert.True(t, s.Player(Home, 5).IsOnCourt)
	assert.False(t, s.Player(Home, 10).IsOnCourt)
}

func TestSelectStarters_FillsWhenPositionsMissing(t *testing.T) {
	home := make([]RosterEntry, 6)
	for i := range home {
		r := uniformRating(i+1, "g", PointGuard, 70+i)
		home[i] = RosterEntry{Rating: r, Status: PlayerStatus{PlayerID: r.ID, Stamina: 100}}
	}
	s := newTestSim(t, home, uniformRoster("AWY", 100, 70, 10), 1, nil)
	assert.Len(t, s.OnCourt(Home), 5)
	assert.False(t, s.Player(Home, 1).IsOnCourt, "lowest rated guard sits")
}

func TestGame_InvariantsHoldEveryStep(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		s := newTestSim(t, uniformRoster("HOM", 1, 78, 10), uniformRoster("AWY", 100, 74, 10), seed, nil)

		for !s.Done() {
			type before struct {
				onCourt bool
				stamina float64
			}
			prev := map[*GamePlayer]before{}
			for team := range s.Rosters {
				for _, p := range s.Rosters[team] {
					prev[p] = before{p.IsOnCourt, p.CurrentStamina}
				}
			}

			s.Step()

			for team := range s.Rosters {
				// 10-man rosters never run out of substitutes
				if n := len(s.OnCourt(team)); n != 5 {
					t.Fatalf("seed %d: team %d has %d players on court", seed, team, n)
				}
				for _, p := range s.Rosters[team] {
					if p.CurrentStamina < 0 || p.CurrentStamina > p.MaxStaminaForGame {
						t.Fatalf("seed %d: %s stamina %v out of bounds", seed, p.Name(), p.CurrentStamina)
					}
					b := prev[p]
					if b.onCourt != p.IsOnCourt || p.IsEjected {
						continue
					}
					if p.IsOnCourt && p.CurrentStamina > b.stamina {
						t.Fatalf("seed %d: %s gained stamina on court", seed, p.Name())
					}
					if !p.IsOnCourt && p.CurrentStamina < b.stamina {
						t.Fatalf("seed %d: %s lost stamina on the bench", seed, p.Name())
					}
				}
			}
		}

		res, ok := s.Result()
		require.True(t, ok)
		assert.GreaterOrEqual(t, res.Summary.Periods, 4, "seed %d", seed)
		assert.NotEqual(t, res.HomeScore, res.AwayScore, "seed %d", seed)
	}
}

func TestGame_PossessionOutcomesAreExhaustive(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 80, 10), uniformRoster("AWY", 100, 80, 10), 7, nil)
	res := s.Run()

	require.NotEmpty(t, s.Log.Possessions)
	assert.Equal(t, res.Summary.Possessions, len(s.Log.Possessions))
	for i, p := range s.Log.Possessions {
		switch p.Outcome {
		case trace.OutcomeMade:
			assert.Contains(t, []int{2, 3}, p.Points, "possession %d", i)
		case trace.OutcomeFreeThrows:
			assert.True(t, p.Points >= 0 && p.Points <= 3, "possession %d scored %d", i, p.Points)
		case trace.OutcomeMissRebound, trace.OutcomeTurnover:
			assert.Equal(t, 0, p.Points, "possession %d", i)
		default:
			t.Fatalf("possession %d ended without an outcome", i)
		}
	}
}

func TestGame_ClockConservation(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 80, 10), uniformRoster("AWY", 100, 80, 10), 11, nil)
	res := s.Run()

	summary := trace.Summarize(s.Log)
	for q := 1; q <= res.Summary.Periods; q++ {
		want := s.cfg.periodSeconds(q)
		if got := summary.PeriodSeconds[q]; math.Abs(got-want) > 1e-6 {
			t.Errorf("period %d: consumed %v seconds, want %v", q, got, want)
		}
	}
}

func TestGame_BoxScoreMatchesScoreboard(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 80, 10), uniformRoster("AWY", 100, 76, 10), 3, nil)
	res := s.Run()

	points := map[string]int{}
	seconds := map[string]int{}
	plusMinus := map[string]int{}
	for _, row := range res.StatRows {
		points[row.TeamAbbr] += row.Points
		seconds[row.TeamAbbr] += row.SecondsPlayed
		plusMinus[row.TeamAbbr] += row.PlusMinus
		assert.LessOrEqual(t, row.FieldGoalsMade, row.FieldGoalsAtt)
		assert.LessOrEqual(t, row.ThreesAtt, row.FieldGoalsAtt)
		assert.LessOrEqual(t, row.FreeThrowsMade, row.FreeThrowsAtt)
		assert.Equal(t, row.Rebounds, row.OffensiveRebounds+row.DefensiveRebounds)
	}
	assert.Equal(t, res.HomeScore, points["HOM"])
	assert.Equal(t, res.AwayScore, points["AWY"])
	assert.Equal(t, 5*(res.HomeScore-res.AwayScore), plusMinus["HOM"])

	// five players on the floor for every second of the game (rounding per row)
	total := 0.0
	for q := 1; q <= res.Summary.Periods; q++ {
		total += s.cfg.periodSeconds(q)
	}
	assert.InDelta(t, 5*total, float64(seconds["HOM"]), 10)
	assert.Len(t, res.StatusUpdates, 20)
}

func TestGame_SameSeedIsReproducible(t *testing.T) {
	run := func(seed int64) GameResult {
		res, err := Simulate(SimConfig{
			Match: testMatch(),
			Home:  uniformRoster("HOM", 1, 80, 10),
			Away:  uniformRoster("AWY", 100, 80, 10),
			Seed:  seed,
		})
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(42), run(42))

	distinct := map[[2]int]bool{}
	for seed := int64(1); seed <= 5; seed++ {
		r := run(seed)
		distinct[[2]int{r.HomeScore, r.AwayScore}] = true
	}
	assert.Greater(t, len(distinct), 1, "different seeds should produce different games")
}

func TestGame_StrongerTeamWinsMostGames(t *testing.T) {
	games := 1000
	if testing.Short() {
		games = 200
	}
	// GIVEN a 90-rated roster hosting a 70-rated roster
	home := uniformRoster("HOM", 1, 90, 10)
	away := uniformRoster("AWY", 100, 70, 10)

	wins := 0
	margins := make([]float64, games)
	for i := 0; i < games; i++ {
		res, err := Simulate(SimConfig{Match: testMatch(), Home: home, Away: away, Seed: int64(i)})
		require.NoError(t, err)
		if res.Winner() == Home {
			wins++
		}
		margins[i] = float64(res.Margin())
	}

	// THEN the better side wins well over 65% with a positive mean margin
	rate := float64(wins) / float64(games)
	assert.Greater(t, rate, 0.65, "win rate %.3f", rate)
	assert.Greater(t, stat.Mean(margins, nil), 0.0)
}

func TestGame_TraceLevelDoesNotChangeOutcome(t *testing.T) {
	run := func(level trace.Level) GameResult {
		s, err := NewSimulator(SimConfig{
			Match: testMatch(), Home: uniformRoster("HOM", 1, 80, 10), Away: uniformRoster("AWY", 100, 78, 10),
			Seed: 5, TraceLevel: level,
		})
		require.NoError(t, err)
		return s.Run()
	}
	assert.Equal(t, run(trace.LevelNone), run(trace.LevelPlays))
}

func TestGame_PlayByPlayRecorded(t *testing.T) {
	s, err := NewSimulator(SimConfig{
		Match: testMatch(), Home: uniformRoster("HOM", 1, 80, 10), Away: uniformRoster("AWY", 100, 80, 10),
		Seed: 9, TraceLevel: trace.LevelPlays,
	})
	require.NoError(t, err)
	s.Run()
	assert.NotEmpty(t, s.Log.Plays)
	assert.Contains(t, s.Log.Plays[0].Text, "start of period")
}

func TestGame_OvertimeUsesShortPeriods(t *testing.T) {
	// GIVEN a tied game at the end of regulation
	s := newTestSim(t, uniformRoster("HOM", 1, 80, 10), uniformRoster("AWY", 100, 80, 10), 1, nil)
	s.State = GameState{Phase: PhaseQuarterEnd, Quarter: 4, HomeScore: 100, AwayScore: 100}

	// WHEN the period ends and the next starts
	s.Step()
	require.Equal(t, PhaseQuarterStart, s.State.Phase)
	s.Step()

	// THEN a 300 second overtime begins
	assert.Equal(t, 5, s.State.Quarter)
	assert.Equal(t, 300.0, s.State.GameClockSeconds)
	assert.Equal(t, 24.0, s.State.ShotClockSeconds)
	assert.Nil(t, s.State.LastPasser)
}

func TestGame_EndsOnlyAfterRegulationWithALead(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 80, 10), uniformRoster("AWY", 100, 80, 10), 1, nil)

	s.State = GameState{Phase: PhaseQuarterEnd, Quarter: 3, HomeScore: 90, AwayScore: 70}
	s.Step()
	assert.Equal(t, PhaseQuarterStart, s.State.Phase, "a lead after Q3 does not end the game")

	s.State = GameState{Phase: PhaseQuarterEnd, Quarter: 4, HomeScore: 99, AwayScore: 98}
	s.Step()
	assert.True(t, s.Done())
	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, Home, res.Winner())
}

func TestAlternatingPossession(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 80, 10), uniformRoster("AWY", 100, 80, 10), 1, nil)
	startGame(t, s)
	tip := s.State.PossessingTeamID
	assert.Equal(t, 1-tip, s.openingPossession(2))
	assert.Equal(t, 1-tip, s.openingPossession(3))
	assert.Equal(t, tip, s.openingPossession(4))
}

func TestStatusUpdate_Apply(t *testing.T) {
	prev := PlayerStatus{PlayerID: 3, Stamina: 90, IsInjured: true, InjuryDaysLeft: 12}

	next := StatusUpdate{PlayerID: 3, Stamina: 41}.Apply(prev)
	assert.Equal(t, 41, next.Stamina)
	assert.True(t, next.IsInjured, "existing injury carries over")
	assert.Equal(t, 12, next.InjuryDaysLeft)

	next = StatusUpdate{PlayerID: 3, Stamina: 30, Injured: true, InjuryDays: 4}.Apply(prev)
	assert.Equal(t, 12, next.InjuryDaysLeft, "longer layoff wins")

	next = StatusUpdate{PlayerID: 3, Stamina: 30, Injured: true, InjuryDays: 40}.Apply(prev)
	assert.Equal(t, 40, next.InjuryDaysLeft)
}
