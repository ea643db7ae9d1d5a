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

// seasonOptions holds the flags of `courtsim season`.
type seasonOptions struct {
	engineOptions
	leaguePath string
	dbPath     string
	seed       int64
	workers    int
}

var seasonOpts seasonOptions

// seasonCmd plays every remaining scheduled game, day by day
var seasonCmd = &cobra.Command{
	Use:   "season",
	Short: "Play the remaining schedule and print the standings",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeason(cmd.Context(), os.Stdout, seasonOpts); err != nil {
			logrus.Fatalf("season: %v", err)
		}
	},
}

func runSeason(ctx context.Context, w io.Writer, o seasonOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := openBackend(ctx, o.leaguePath, o.dbPath)
	if err != nil {
		return err
	}
	defer b.Close()
	engine, tree, err := o.load()
	if err != nil {
		return err
	}
	d := &season.Driver{
		Store:   b,
		Engine:  engine,
		Tree:    tree,
		Seed:    o.seed,
		Workers: o.workers,
	}
	results, err := d.PlaySeason(ctx, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Played %d games\n\n", len(results))
	standings, err := b.Standings(ctx)
	if err != nil {
		return err
	}
	printStandings(w, standings)
	return nil
}

func init() {
	seasonCmd.Flags().StringVar(&seasonOpts.leaguePath, "league", "", "League YAML file (teams, ratings, schedule)")
	seasonCmd.Flags().StringVar(&seasonOpts.dbPath, "db", "", "SQLite database file holding the season")
	seasonCmd.Flags().Int64Var(&seasonOpts.seed, "seed", 42, "Master seed; each game derives its own from its id")
	seasonCmd.Flags().IntVar(&seasonOpts.workers, "workers", 4, "Games of one day simulated in parallel")
	seasonCmd.Flags().StringVar(&seasonOpts.configPath, "config", "", "Engine config YAML overriding the defaults")
	seasonCmd.Flags().StringVar(&seasonOpts.treePath, "tree", "", "Behavior tree YAML (default: built-in tree)")

	rootCmd.AddCommand(seasonCmd)
}
