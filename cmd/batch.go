package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/courtsim/courtsim/sim/season"
)

// batchOptions holds the flags of `courtsim batch`.
type batchOptions struct {
	engineOptions
	leaguePath string
	dbPath     string
	home, away string
	games      int
	workers    int
	seed       int64
}

var batchOpts batchOptions

// batchCmd replays one pairing many times and reports the spread of outcomes
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Simulate one matchup many times and summarise the results",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := runBatch(cmd.Context(), os.Stdout, batchOpts); err != nil {
			logrus.Fatalf("batch: %v", err)
		}
	},
}

func runBatch(ctx context.Context, w io.Writer, o batchOptions) (season.SweepSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.home == "" || o.away == "" {
		return season.SweepSummary{}, fmt.Errorf("--home and --away are required")
	}
	b, err := openBackend(ctx, o.leaguePath, o.dbPath)
	if err != nil {
		return season.SweepSummary{}, err
	}
	defer b.Close()
	engine, tree, err := o.load()
	if err != nil {
		return season.SweepSummary{}, err
	}
	home, _, err := b.LoadRoster(ctx, o.home)
	if err != nil {
		return season.SweepSummary{}, err
	}
	away, _, err := b.LoadRoster(ctx, o.away)
	if err != nil {
		return season.SweepSummary{}, err
	}

	d := &season.Driver{
		Store:   b,
		Engine:  engine,
		Tree:    tree,
		Seed:    o.seed,
		Workers: o.workers,
	}
	logrus.Infof("Sweeping %s vs %s: %d games on %d workers, seed=%d", home.Abbr, away.Abbr, o.games, max(o.workers, 1), o.seed)
	sum, _, err := d.Sweep(ctx, home, away, o.games, fmt.Sprintf("%s-%s", home.Abbr, away.Abbr))
	if err != nil {
		return sum, err
	}
	sum.Print(w)
	return sum, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchOpts.leaguePath, "league", "", "League YAML file (teams, ratings, schedule)")
	batchCmd.Flags().StringVar(&batchOpts.dbPath, "db", "", "SQLite database file to read rosters from")
	batchCmd.Flags().StringVar(&batchOpts.home, "home", "", "Home team abbreviation")
	batchCmd.Flags().StringVar(&batchOpts.away, "away", "", "Away team abbreviation")
	batchCmd.Flags().IntVar(&batchOpts.games, "games", 100, "Number of games to simulate")
	batchCmd.Flags().IntVar(&batchOpts.workers, "workers", 4, "Games simulated in parallel")
	batchCmd.Flags().Int64Var(&batchOpts.seed, "seed", 42, "Master seed; game i uses a seed derived from it")
	batchCmd.Flags().StringVar(&batchOpts.configPath, "config", "", "Engine config YAML overriding the defaults")
	batchCmd.Flags().StringVar(&batchOpts.treePath, "tree", "", "Behavior tree YAML (default: built-in tree)")

	rootCmd.AddCommand(batchCmd)
}
