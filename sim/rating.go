package sim

import "math"

const (
	fatigueThreshold  = 70.0
	maxFatiguePenalty = 15.0
	drawFoulFatigue   = 0.5
	ballHandleFatigue = 0.7
)

// AdjustedRating returns the player's rating after injury and fatigue.
//
// An injured player plays at half of every skill attribute. Below 70
// stamina a penalty of (70-stamina)/70*15 points comes off shooting,
// defense, speed and rebounding, half of it off draw-foul and 70% of it
// off ball-handling. No attribute drops below 1. Free throws and pass IQ
// are not affected by fatigue.
func AdjustedRating(p *GamePlayer) PlayerRating {
	r := *p.Rating
	if p.IsCurrentlyInjured {
		for _, v := range r.skills() {
			*v /= 2
		}
	}
	if p.CurrentStamina >= fatigueThreshold {
		return r
	}

	penalty := (fatigueThreshold - p.CurrentStamina) / fatigueThreshold * maxFatiguePenalty
	for _, v := range []*int{
		&r.CloseShot, &r.MidRangeShot, &r.ThreePointShot, &r.Layup, &r.DrivingDunk,
		&r.InteriorDefense, &r.PerimeterDefense, &r.Steal, &r.Block, &r.Speed,
		&r.OffensiveRebound, &r.DefensiveRebound,
	} {
		*v = reduce(*v, penalty)
	}
	r.DrawFoul = reduce(r.DrawFoul, penalty*drawFoulFatigue)
	r.BallHandle = reduce(r.BallHandle, penalty*ballHandleFatigue)
	return r
}

// EffectiveOverall is the rounded mean of the 14 fatigue-sensitive skill
// attributes plus pass IQ.
func EffectiveOverall(r PlayerRating) int {
	attrs := []int{
		r.CloseShot, r.MidRangeShot, r.ThreePointShot, r.Layup, r.DrivingDunk,
		r.DrawFoul, r.InteriorDefense, r.PerimeterDefense, r.Steal, r.Block,
		r.Speed, r.BallHandle, r.OffensiveRebound, r.DefensiveRebound, r.PassIQ,
	}
	sum := 0
	for _, v := range attrs {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(attrs))))
}

func reduce(v int, amount float64) int {
	return max(1, int(math.Round(float64(v)-amount)))
}
