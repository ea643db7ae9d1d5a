package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/season"
	"github.com/courtsim/courtsim/sim/store"
	"github.com/courtsim/courtsim/sim/trace"
)

// runOptions holds the flags of `courtsim run`.
type runOptions struct {
	engineOptions
	leaguePath string
	dbPath     string
	home, away string
	gameID     string
	seed       int64
	traceLevel string
	save       bool
}

var runOpts runOptions

// runCmd plays one game and prints its box score
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one game",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := runGame(cmd.Context(), os.Stdout, runOpts); err != nil {
			logrus.Fatalf("run: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// runGame plays a scheduled game (gameID) or an ad-hoc pairing (home, away)
// and writes the play-by-play, if traced, and the box score to w. Scheduled
// games are always saved; ad-hoc games only with save set.
func runGame(ctx context.Context, w io.Writer, o runOptions) (sim.GameResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !trace.IsValidLevel(o.traceLevel) {
		return sim.GameResult{}, fmt.Errorf("unknown trace level %q (none, possessions, plays)", o.traceLevel)
	}
	b, err := openBackend(ctx, o.leaguePath, o.dbPath)
	if err != nil {
		return sim.GameResult{}, err
	}
	defer b.Close()
	engine, tree, err := o.load()
	if err != nil {
		return sim.GameResult{}, err
	}

	m, seed, save, err := pickMatchup(ctx, b, o)
	if err != nil {
		return sim.GameResult{}, err
	}
	_, homeRoster, err := b.LoadRoster(ctx, m.Home.Abbr)
	if err != nil {
		return sim.GameResult{}, err
	}
	_, awayRoster, err := b.LoadRoster(ctx, m.Away.Abbr)
	if err != nil {
		return sim.GameResult{}, err
	}

	logrus.Infof("Starting game %s: %s vs %s, seed=%d", m.GameID, m.Home.Abbr, m.Away.Abbr, seed)
	s, err := sim.NewSimulator(sim.SimConfig{
		Match:      m,
		Home:       homeRoster,
		Away:       awayRoster,
		Seed:       seed,
		Engine:     engine,
		Tree:       tree,
		TraceLevel: trace.Level(o.traceLevel),
		OnEvent: func(e sim.Event) {
			logrus.Infof("[%s] %s", e.Time(), e.Describe())
		},
	})
	if err != nil {
		return sim.GameResult{}, err
	}
	res := s.Run()

	for _, p := range s.Log.Plays {
		fmt.Fprintln(w, p)
	}
	if s.Log.RecordsPossessions() {
		printTraceSummary(w, res, trace.Summarize(s.Log))
	}
	res.Print(w)

	if save {
		if err := b.SaveGameResult(ctx, m, res); err != nil {
			return res, err
		}
		logrus.Infof("Saved game %s", m.GameID)
	}
	return res, nil
}

func pickMatchup(ctx context.Context, b store.Backend, o runOptions) (sim.Matchup, int64, bool, error) {
	if o.gameID != "" {
		g, err := b.Game(ctx, o.gameID)
		if err != nil {
			return sim.Matchup{}, 0, false, err
		}
		if g.Status == store.StatusFinal {
			return sim.Matchup{}, 0, false, fmt.Errorf("game %s: %w", o.gameID, store.ErrAlreadyFinal)
		}
		d := season.Driver{Seed: o.seed}
		return g.Matchup, d.GameSeed(g.Matchup.GameID), true, nil
	}
	if o.home == "" || o.away == "" {
		return sim.Matchup{}, 0, false, fmt.Errorf("--home and --away are required without --game")
	}
	home, _, err := b.LoadRoster(ctx, o.home)
	if err != nil {
		return sim.Matchup{}, 0, false, err
	}
	away, _, err := b.LoadRoster(ctx, o.away)
	if err != nil {
		return sim.Matchup{}, 0, false, err
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return season.NewMatchup(today.Year(), today, home, away), o.seed, o.save, nil
}

func printTraceSummary(w io.Writer, res sim.GameResult, sum *trace.Summary) {
	fmt.Fprintln(w, "=== Possessions ===")
	for team, t := range []sim.Team{res.Home, res.Away} {
		fmt.Fprintf(w, "%-4s %3d possessions, %.2f points per possession\n",
			t.Abbr, sum.PossessionsByTeam[team], sum.PointsPerPossession[team])
	}
	fmt.Fprintf(w, "Mean length: %.1fs\n", sum.MeanPossessionSeconds)
	for _, o := range []trace.Outcome{trace.OutcomeMade, trace.OutcomeMissRebound, trace.OutcomeFreeThrows, trace.OutcomeTurnover} {
		fmt.Fprintf(w, "  %-13s %d\n", o, sum.OutcomeCounts[o])
	}
	fmt.Fprintln(w)
}

func init() {
	runCmd.Flags().StringVar(&runOpts.leaguePath, "league", "", "League YAML file (teams, ratings, schedule)")
	runCmd.Flags().StringVar(&runOpts.dbPath, "db", "", "SQLite database file; imports --league into it when both are set")
	runCmd.Flags().StringVar(&runOpts.home, "home", "", "Home team abbreviation")
	runCmd.Flags().StringVar(&runOpts.away, "away", "", "Away team abbreviation")
	runCmd.Flags().StringVar(&runOpts.gameID, "game", "", "Scheduled game id to play and save instead of --home/--away")
	runCmd.Flags().Int64Var(&runOpts.seed, "seed", 42, "Seed for the game (scheduled games derive theirs from it)")
	runCmd.Flags().StringVar(&runOpts.traceLevel, "trace", "none", "Trace level (none, possessions, plays)")
	runCmd.Flags().BoolVar(&runOpts.save, "save", false, "Save an ad-hoc game to the store")
	runCmd.Flags().StringVar(&runOpts.configPath, "config", "", "Engine config YAML overriding the defaults")
	runCmd.Flags().StringVar(&runOpts.treePath, "tree", "", "Behavior tree YAML (default: built-in tree)")

	rootCmd.AddCommand(runCmd)
}
