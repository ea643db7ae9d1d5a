package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/league"
	"github.com/courtsim/courtsim/sim/store"
)

var errNoSource = errors.New("one of --league or --db is required")

// openBackend returns a SQLite store when dbPath is set, importing the
// league file into it if one is given too, and an in-memory store seeded
// from the league file otherwise.
func openBackend(ctx context.Context, leaguePath, dbPath string) (store.Backend, error) {
	var l *league.League
	if leaguePath != "" {
		var err error
		if l, err = league.Load(leaguePath); err != nil {
			return nil, err
		}
	}
	switch {
	case dbPath != "":
		db, err := store.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		if l != nil {
			if err := db.ImportLeague(ctx, l); err != nil {
				db.Close()
				return nil, err
			}
		}
		return db, nil
	case l != nil:
		logrus.Infof("Using in-memory store for season %d (%d teams)", l.Season, len(l.Teams))
		return store.NewMemoryStore(l), nil
	}
	return nil, errNoSource
}

// engineOptions are the flags shared by every command that simulates.
type engineOptions struct {
	configPath string
	treePath   string
}

func (o engineOptions) load() (*sim.Config, sim.Tree, error) {
	var engine *sim.Config
	if o.configPath != "" {
		cfg, err := sim.LoadConfig(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		engine = &cfg
	}
	var tree sim.Tree
	if o.treePath != "" {
		t, err := sim.LoadTree(o.treePath)
		if err != nil {
			return nil, nil, fmt.Errorf("tree %s: %w", o.treePath, err)
		}
		tree = t
	}
	return engine, tree, nil
}

func printStandings(w io.Writer, standings []store.Standing) {
	fmt.Fprintln(w, "=== Standings ===")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEAM\tW\tL\tPCT")
	for _, s := range standings {
		fmt.Fprintf(tw, "%s %s\t%d\t%d\t%.3f\n", s.Team.Abbr, s.Team.Name, s.Wins, s.Losses, s.Pct())
	}
	tw.Flush()
}
