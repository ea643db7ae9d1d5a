package season

import (
	"context"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/courtsim/courtsim/sim"
)

// SweepSummary aggregates many games of the same matchup.
type SweepSummary struct {
	Home, Away     sim.Team
	Games          int
	HomeWins       int
	AwayWins       int
	Overtimes      int
	MeanHomePoints float64
	MeanAwayPoints float64
	MeanMargin     float64 // home minus away
	StdDevMargin   float64
	MeanPossession float64
}

// HomeWinRate returns the share of games the home side won.
func (s SweepSummary) HomeWinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.HomeWins) / float64(s.Games)
}

// Sweep plays the same pairing n times with ids "<prefix>-0001"... and
// summarises the outcomes. It never saves results.
func (d *Driver) Sweep(ctx context.Context, home, away sim.Team, n int, prefix string) (SweepSummary, []sim.GameResult, error) {
	if n <= 0 {
		return SweepSummary{}, nil, fmt.Errorf("sweep needs at least one game, got %d", n)
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	matches := make([]sim.Matchup, n)
	for i := range matches {
		matches[i] = sim.Matchup{
			GameID: fmt.Sprintf("%s-%04d", prefix, i+1),
			Date:   date,
			Home:   home,
			Away:   away,
		}
	}
	dry := *d
	dry.DryRun = true
	results, err := dry.PlayAll(ctx, matches)
	if err != nil {
		return SweepSummary{}, nil, err
	}
	return Summarize(results), results, nil
}

// Summarize computes win counts and score statistics over results, which
// are expected to share home and away teams.
func Summarize(results []sim.GameResult) SweepSummary {
	var sum SweepSummary
	if len(results) == 0 {
		return sum
	}
	sum.Home, sum.Away = results[0].Home, results[0].Away
	sum.Games = len(results)
	home := make([]float64, len(results))
	away := make([]float64, len(results))
	margins := make([]float64, len(results))
	possessions := make([]float64, len(results))
	for i, r := range results {
		switch r.Winner() {
		case sim.Home:
			sum.HomeWins++
		case sim.Away:
			sum.AwayWins++
		}
		if r.Summary.Periods > 4 {
			sum.Overtimes++
		}
		home[i] = float64(r.HomeScore)
		away[i] = float64(r.AwayScore)
		margins[i] = float64(r.Margin())
		possessions[i] = float64(r.Summary.Possessions)
	}
	sum.MeanHomePoints = stat.Mean(home, nil)
	sum.MeanAwayPoints = stat.Mean(away, nil)
	sum.MeanMargin, sum.StdDevMargin = stat.MeanStdDev(margins, nil)
	if len(results) == 1 {
		sum.StdDevMargin = 0
	}
	sum.MeanPossession = stat.Mean(possessions, nil)
	return sum
}

// Print writes the summary in the same plain layout as a box score.
func (s SweepSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "=== %s vs %s: %d games ===\n", s.Home.Abbr, s.Away.Abbr, s.Games)
	fmt.Fprintf(w, "Home wins      : %d (%.1f%%)\n", s.HomeWins, 100*s.HomeWinRate())
	fmt.Fprintf(w, "Away wins      : %d\n", s.AwayWins)
	fmt.Fprintf(w, "Overtime games : %d\n", s.Overtimes)
	fmt.Fprintf(w, "Mean score     : %.1f - %.1f\n", s.MeanHomePoints, s.MeanAwayPoints)
	fmt.Fprintf(w, "Margin         : %+.1f (sd %.1f)\n", s.MeanMargin, s.StdDevMargin)
	fmt.Fprintf(w, "Possessions    : %.1f\n", s.MeanPossession)
}
