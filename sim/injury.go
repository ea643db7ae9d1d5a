package sim

import "math/rand"

// injuryChance is the per-check injury probability in percent.
func injuryChance(p *GamePlayer) float64 {
	return p.Rating.InjuryProneness * (100 - p.CurrentStamina) / 5 / 48
}

// sampleInjuryDays draws a layoff: 82% short (1-7 days), 15% medium
// (8-30), 3% long (31-178).
func sampleInjuryDays(rng *rand.Rand) int {
	r := rng.Float64() * 100
	switch {
	case r < 82:
		return 1 + rng.Intn(7)
	case r < 97:
		return 8 + rng.Intn(23)
	default:
		return 31 + rng.Intn(148)
	}
}

// runInjuryCheck rolls for every player on the floor, home side first,
// and stops at the first injury.
func (s *Simulator) runInjuryCheck() {
	for team := Home; team <= Away; team++ {
		for _, p := range s.OnCourt(team) {
			if roll(s.injuryRNG, injuryChance(p)) {
				s.injure(p)
				return
			}
		}
	}
}

func (s *Simulator) injure(p *GamePlayer) {
	p.IsEjected = true
	p.InjuredThisGame = true
	p.InjuryDays = sampleInjuryDays(s.injuryRNG)
	s.summary.Injuries++
	s.emit(InjuryEvent{At: s.now(), Player: p, Days: p.InjuryDays})
	if sub := s.findSubstitute(p, true); sub != nil {
		s.swap(p, sub, ReasonInjury)
		return
	}
	s.leaveCourt(p)
	s.playf(p.TeamID, "%s play short-handed", s.Teams[p.TeamID].Abbr)
}
