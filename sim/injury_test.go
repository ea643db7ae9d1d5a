package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsim/courtsim/sim/internal/testutil"
)

func TestInjuryChance(t *testing.T) {
	tests := []struct {
		proneness, stamina, want float64
	}{
		{0.05, 52, 0.01},
		{0.05, 100, 0},
		{1, 0, 100.0 / 240},
		{0, 10, 0},
	}
	for _, tc := range tests {
		p := &GamePlayer{Rating: &PlayerRating{InjuryProneness: tc.proneness}, CurrentStamina: tc.stamina}
		testutil.AssertFloat64Equal(t, "injuryChance", tc.want, injuryChance(p), 1e-9)
	}
}

func TestSampleInjuryDays_Tiers(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const n = 20000
	short, medium, long := 0, 0, 0
	for i := 0; i < n; i++ {
		d := sampleInjuryDays(rng)
		switch {
		case d >= 1 && d <= 7:
			short++
		case d >= 8 && d <= 30:
			medium++
		case d >= 31 && d <= 178:
			long++
		default:
			t.Fatalf("draw %d: %d days outside [1,178]", i, d)
		}
	}
	testutil.AssertBinomialWithin(t, "short layoffs", short, n, 0.82, 0.999)
	testutil.AssertBinomialWithin(t, "medium layoffs", medium, n, 0.15, 0.999)
	testutil.AssertBinomialWithin(t, "long layoffs", long, n, 0.03, 0.999)
}

func TestInjure_ReplacesPlayer(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 75, 10), uniformRoster("AWY", 101, 75, 10), 47, noInjuries)
	startGame(t, s)
	var events []Event
	s.onEvent = func(e Event) { events = append(events, e) }
	victim := s.Player(Away, 104)

	s.injure(victim)

	assert.True(t, victim.IsEjected)
	assert.True(t, victim.InjuredThisGame)
	assert.False(t, victim.IsOnCourt)
	assert.GreaterOrEqual(t, victim.InjuryDays, 1)
	assert.Len(t, s.OnCourt(Away), 5)
	assert.Equal(t, 1, s.summary.Injuries)
	require.Len(t, events, 2)
	inj := events[0].(InjuryEvent)
	assert.Equal(t, victim.InjuryDays, inj.Days)
	assert.Equal(t, ReasonInjury, events[1].(SubstitutionEvent).Reason)
}

func TestInjure_NoBenchPlaysShort(t *testing.T) {
	s := newTestSim(t, uniformRoster("HOM", 1, 75, 10), uniformRoster("AWY", 101, 75, 5), 53, noInjuries)
	startGame(t, s)

	s.injure(s.Player(Away, 102))

	assert.Len(t, s.OnCourt(Away), 4)
	assert.Empty(t, s.Bench(Away))
}

func TestRunInjuryCheck_StopsAtFirstInjury(t *testing.T) {
	// GIVEN two home starters certain to be hurt and nobody else at risk
	s := newTestSim(t, uniformRoster("HOM", 1, 75, 10), uniformRoster("AWY", 101, 75, 10), 59, noInjuries)
	startGame(t, s)
	for team := range s.Rosters {
		for _, p := range s.Rosters[team] {
			p.Rating.InjuryProneness = 0
		}
	}
	for _, id := range []int{2, 4} {
		p := s.Player(Home, id)
		p.Rating.InjuryProneness = 1000
		p.CurrentStamina = 0
	}

	// WHEN a check runs
	s.runInjuryCheck()

	// THEN only the first in roster order is injured
	assert.True(t, s.Player(Home, 2).InjuredThisGame)
	assert.False(t, s.Player(Home, 4).InjuredThisGame)
	assert.Equal(t, 1, s.summary.Injuries)
}

func TestInjuries_DisabledNeverFire(t *testing.T) {
	home := uniformRoster("HOM", 1, 75, 10)
	away := uniformRoster("AWY", 101, 75, 10)
	for i := range home {
		home[i].Rating.InjuryProneness = 50
		away[i].Rating.InjuryProneness = 50
	}
	res, err := Simulate(SimConfig{Match: testMatch(), Home: home, Away: away, Seed: 61, Engine: func() *Config {
		c := DefaultConfig()
		c.Injury.Enabled = false
		return &c
	}()})
	require.NoError(t, err)
	assert.Zero(t, res.Summary.Injuries)
	for _, u := range res.StatusUpdates {
		assert.False(t, u.Injured)
	}
}
