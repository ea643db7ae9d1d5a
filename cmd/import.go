package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/courtsim/courtsim/sim/league"
	"github.com/courtsim/courtsim/sim/store"
)

var (
	importLeaguePath string
	importDBPath     string
)

// importCmd loads a league file into a SQLite database
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a league file into a SQLite database",
	Run: func(cmd *cobra.Command, args []string) {
		if err := importLeague(cmd.Context(), os.Stdout, importLeaguePath, importDBPath); err != nil {
			logrus.Fatalf("import: %v", err)
		}
	},
}

// importLeague writes teams, players and the schedule of leaguePath into
// the database at dbPath. Results already in the database are kept.
func importLeague(ctx context.Context, w io.Writer, leaguePath, dbPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if leaguePath == "" || dbPath == "" {
		return fmt.Errorf("--league and --db are required")
	}
	l, err := league.Load(leaguePath)
	if err != nil {
		return err
	}
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.ImportLeague(ctx, l); err != nil {
		return err
	}
	players := 0
	for _, t := range l.Teams {
		players += len(t.Players)
	}
	fmt.Fprintf(w, "Imported season %d into %s: %d teams, %d players, %d games\n",
		l.Season, dbPath, len(l.Teams), players, len(l.Schedule))
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importLeaguePath, "league", "", "League YAML file to import")
	importCmd.Flags().StringVar(&importDBPath, "db", "", "SQLite database file to create or update")

	rootCmd.AddCommand(importCmd)
}
