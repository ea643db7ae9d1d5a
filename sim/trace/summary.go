package trace

// Summary aggregates statistics from a GameLog.
type Summary struct {
	Possessions           int
	OutcomeCounts         map[Outcome]int
	PossessionsByTeam     [2]int
	PointsByTeam          [2]int
	PointsPerPossession   [2]float64
	MeanPossessionSeconds float64
	PeriodSeconds         map[int]float64 // quarter → total elapsed
}

// Summarize computes aggregate statistics from a GameLog.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(g *GameLog) *Summary {
	summary := &Summary{
		OutcomeCounts: make(map[Outcome]int),
		PeriodSeconds: make(map[int]float64),
	}
	if g == nil || len(g.Possessions) == 0 {
		return summary
	}

	totalSeconds := 0.0
	for _, p := range g.Possessions {
		summary.Possessions++
		summary.OutcomeCounts[p.Outcome]++
		summary.PeriodSeconds[p.Quarter] += p.Elapsed
		totalSeconds += p.Elapsed
		if p.TeamID == 0 || p.TeamID == 1 {
			summary.PossessionsByTeam[p.TeamID]++
			summary.PointsByTeam[p.TeamID] += p.Points
		}
	}
	summary.MeanPossessionSeconds = totalSeconds / float64(summary.Possessions)
	for team := range summary.PossessionsByTeam {
		if n := summary.PossessionsByTeam[team]; n > 0 {
			summary.PointsPerPossession[team] = float64(summary.PointsByTeam[team]) / float64(n)
		}
	}
	return summary
}
