// Box-score reporting for finished games.

package sim

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Print writes the final score, the game summary and both box scores.
func (r GameResult) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Final ===")
	fmt.Fprintf(w, "%-4s %3d\n", r.Home.Abbr, r.HomeScore)
	fmt.Fprintf(w, "%-4s %3d\n", r.Away.Abbr, r.AwayScore)
	if r.Summary.Periods > 4 {
		fmt.Fprintf(w, "(%d OT)\n", r.Summary.Periods-4)
	}
	fmt.Fprintf(w, "Possessions          : %d\n", r.Summary.Possessions)
	fmt.Fprintf(w, "Substitutions        : %d\n", r.Summary.Substitutions)
	fmt.Fprintf(w, "Injuries             : %d\n", r.Summary.Injuries)
	fmt.Fprintf(w, "Foul-outs            : %d\n", r.Summary.FoulOuts)
	fmt.Fprintf(w, "Shot clock violations: %d\n", r.Summary.ShotClockViolations)

	for _, team := range []Team{r.Home, r.Away} {
		fmt.Fprintf(w, "\n=== %s %s ===\n", team.Abbr, team.Name)
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "PLAYER\tMIN\tPTS\tREB\tAST\tSTL\tBLK\tTO\tFG\t3P\tFT\tPF\t+/-\t")
		for _, row := range r.StatRows {
			if row.TeamAbbr != team.Abbr {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d:%02d\t%d\t%d\t%d\t%d\t%d\t%d\t%d-%d\t%d-%d\t%d-%d\t%d\t%+d\t\n",
				row.PlayerName, row.SecondsPlayed/60, row.SecondsPlayed%60,
				row.Points, row.Rebounds, row.Assists, row.Steals, row.Blocks, row.Turnovers,
				row.FieldGoalsMade, row.FieldGoalsAtt, row.ThreesMade, row.ThreesAtt,
				row.FreeThrowsMade, row.FreeThrowsAtt, row.PersonalFouls, row.PlusMinus)
		}
		tw.Flush()
	}
}
