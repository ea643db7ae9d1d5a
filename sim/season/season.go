// Package season drives scheduled games through the engine: it loads
// rosters from a store, simulates each game with its own derived seed and
// persists the result.
package season

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/telemetry"
	"github.com/courtsim/courtsim/sim/trace"
)

// Calendar is the part of a store that knows the schedule and the passing
// of days. store.Backend satisfies it.
type Calendar interface {
	ScheduledGames(ctx context.Context, date time.Time) ([]sim.Matchup, error)
	AdvanceDay(ctx context.Context) error
}

// Driver plays matchups against a store.
type Driver struct {
	Store      sim.Store
	Engine     *sim.Config // nil = sim.DefaultConfig()
	Tree       sim.Tree    // nil = sim.DefaultTree()
	Seed       int64       // master seed; each game derives its own from its id
	Workers    int         // PlayAll parallelism, <= 0 means 1
	DryRun     bool        // simulate without saving results
	TraceLevel trace.Level
	Recorder   *telemetry.Recorder
}

// NewMatchup builds an unscheduled game with a fresh random id.
func NewMatchup(season int, date time.Time, home, away sim.Team) sim.Matchup {
	return sim.Matchup{
		GameID: uuid.NewString(),
		Season: season,
		Date:   date,
		Home:   home,
		Away:   away,
	}
}

// GameSeed returns the seed a Driver uses for the given game.
func (d *Driver) GameSeed(gameID string) int64 {
	return sim.DeriveSeed(d.Seed, gameID)
}

// Play loads both rosters, simulates the game and saves the result unless
// DryRun is set.
func (d *Driver) Play(ctx context.Context, m sim.Matchup) (sim.GameResult, error) {
	res, err := d.play(ctx, m)
	if err != nil {
		d.Recorder.ObserveFailure()
		return res, fmt.Errorf("game %s (%s vs %s): %w", m.GameID, m.Home.Abbr, m.Away.Abbr, err)
	}
	return res, nil
}

func (d *Driver) play(ctx context.Context, m sim.Matchup) (sim.GameResult, error) {
	if err := ctx.Err(); err != nil {
		return sim.GameResult{}, err
	}
	home, homeRoster, err := d.Store.LoadRoster(ctx, m.Home.Abbr)
	if err != nil {
		return sim.GameResult{}, err
	}
	away, awayRoster, err := d.Store.LoadRoster(ctx, m.Away.Abbr)
	if err != nil {
		return sim.GameResult{}, err
	}
	if m.Home.Name == "" {
		m.Home = home
	}
	if m.Away.Name == "" {
		m.Away = away
	}

	start := time.Now()
	res, err := sim.Simulate(sim.SimConfig{
		Match:      m,
		Home:       homeRoster,
		Away:       awayRoster,
		Seed:       d.GameSeed(m.GameID),
		Engine:     d.Engine,
		Tree:       d.Tree,
		TraceLevel: d.TraceLevel,
	})
	if err != nil {
		return res, err
	}
	took := time.Since(start)
	logrus.Debugf("game %s: %s %d - %s %d (%d possessions, %v)",
		m.GameID, m.Home.Abbr, res.HomeScore, m.Away.Abbr, res.AwayScore, res.Summary.Possessions, took)

	if !d.DryRun {
		if err := d.Store.SaveGameResult(ctx, m, res); err != nil {
			return res, err
		}
	}
	d.Recorder.ObserveGame(res, took)
	return res, nil
}

// PlayAll plays the matchups on a pool of workers and returns the results
// in input order. The first failure cancels the games not yet started.
// Games sharing a team read rosters saved by one another, so a saving
// Driver should only be handed games with distinct teams.
func (d *Driver) PlayAll(ctx context.Context, matches []sim.Matchup) ([]sim.GameResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := max(d.Workers, 1)
	results := make([]sim.GameResult, len(matches))
	jobs := make(chan int, len(matches))
	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := d.Play(ctx, matches[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					continue
				}
				results[i] = res
			}
		}()
	}
	for i := range matches {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// PlayDay plays every unplayed game on date and then advances the calendar
// one day.
func (d *Driver) PlayDay(ctx context.Context, cal Calendar, date time.Time) ([]sim.GameResult, error) {
	games, err := cal.ScheduledGames(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("schedule for %s: %w", date.Format(time.DateOnly), err)
	}
	if err := checkDistinctTeams(games); err != nil {
		return nil, err
	}
	results, err := d.PlayAll(ctx, games)
	if err != nil {
		return nil, err
	}
	if err := cal.AdvanceDay(ctx); err != nil {
		return results, fmt.Errorf("advance day: %w", err)
	}
	logrus.Infof("%s: played %d games", date.Format(time.DateOnly), len(results))
	return results, nil
}

// PlaySeason plays the remaining schedule one game day at a time, resting
// players between days.
func (d *Driver) PlaySeason(ctx context.Context, cal Calendar) ([]sim.GameResult, error) {
	games, err := cal.ScheduledGames(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	var all []sim.GameResult
	for _, day := range gameDays(games) {
		results, err := d.PlayDay(ctx, cal, day)
		all = append(all, results...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// ErrTeamPlaysTwice is returned when one day lists a team in two games.
var ErrTeamPlaysTwice = errors.New("team scheduled twice on one day")

func checkDistinctTeams(games []sim.Matchup) error {
	seen := make(map[string]string, 2*len(games))
	for _, g := range games {
		for _, abbr := range []string{g.Home.Abbr, g.Away.Abbr} {
			if other, ok := seen[abbr]; ok {
				return fmt.Errorf("%s in %s and %s: %w", abbr, other, g.GameID, ErrTeamPlaysTwice)
			}
			seen[abbr] = g.GameID
		}
	}
	return nil
}

func gameDays(games []sim.Matchup) []time.Time {
	seen := make(map[string]bool)
	var days []time.Time
	for _, g := range games {
		key := g.Date.Format(time.DateOnly)
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, g.Date)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
