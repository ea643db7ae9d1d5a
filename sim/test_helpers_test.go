package sim

import (
	"fmt"
	"testing"
	"time"

	"github.com/courtsim/courtsim/sim/trace"
)

// uniformRating returns a rating with every attribute set to skill.
func uniformRating(id int, name string, pos Position, skill int) PlayerRating {
	return PlayerRating{
		ID: id, Name: name, Position: pos, Overall: skill, Potential: skill,
		CloseShot: skill, MidRangeShot: skill, ThreePointShot: skill, FreeThrow: skill,
		Layup: skill, DrivingDunk: skill, DrawFoul: skill, InteriorDefense: skill,
		PerimeterDefense: skill, Steal: skill, Block: skill, Speed: skill, Stamina: skill,
		PassIQ: skill, BallHandle: skill, OffensiveRebound: skill, DefensiveRebound: skill,
		InjuryProneness: 0.05,
	}
}

// uniformRoster returns size fully rested players cycling through the
// five positions.
func uniformRoster(team string, firstID, skill, size int) []RosterEntry {
	entries := make([]RosterEntry, size)
	for i := range entries {
		r := uniformRating(firstID+i, fmt.Sprintf("%s-%d", team, i+1), Position(i%5+1), skill)
		r.Team = team
		entries[i] = RosterEntry{Rating: r, Status: PlayerStatus{PlayerID: r.ID, Stamina: 100}}
	}
	return entries
}

func testMatch() Matchup {
	return Matchup{
		GameID: "g-test",
		Season: 2026,
		Date:   time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Home:   Team{Abbr: "HOM", Name: "Home"},
		Away:   Team{Abbr: "AWY", Name: "Away"},
	}
}

// newTestSim builds a simulator over two rosters with an optional config tweak.
func newTestSim(t *testing.T, home, away []RosterEntry, seed int64, tweak func(*Config)) *Simulator {
	t.Helper()
	cfg := DefaultConfig()
	if tweak != nil {
		tweak(&cfg)
	}
	s, err := NewSimulator(SimConfig{
		Match:      testMatch(),
		Home:       home,
		Away:       away,
		Seed:       seed,
		Engine:     &cfg,
		TraceLevel: trace.LevelPossessions,
	})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return s
}

// startGame advances a fresh simulator into its first possession.
func startGame(t *testing.T, s *Simulator) {
	t.Helper()
	s.Step()
	if s.State.Phase != PhaseInPossession {
		t.Fatalf("expected in-possession after quarter start, got %s", s.State.Phase)
	}
}
