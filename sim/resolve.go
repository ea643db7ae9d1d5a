package sim

import (
	"math"

	"github.com/courtsim/courtsim/sim/bt"
	"github.com/courtsim/courtsim/sim/trace"
)

type shotType int

const (
	shotThree shotType = iota
	shotMidRange
	shotDrive
)

// shotProfile holds the make, foul and block model of one shot type.
// Percentages are on a 0..100 scale.
type shotProfile struct {
	label      string
	points     int
	base       float64
	k          float64 // per rating point away from 75
	minPct     float64
	maxPct     float64
	foulBase   float64
	blockBase  float64
	minSeconds float64
	maxSeconds float64
	offense    func(r PlayerRating) int
	defense    func(r PlayerRating) int
}

var shotProfiles = map[shotType]shotProfile{
	shotThree: {
		label: "three", points: 3,
		base: 36, k: 0.5, minPct: 10, maxPct: 60,
		foulBase: 2, blockBase: 1,
		minSeconds: 4, maxSeconds: 8,
		offense: func(r PlayerRating) int { return r.ThreePointShot },
		defense: func(r PlayerRating) int { return r.PerimeterDefense },
	},
	shotMidRange: {
		label: "mid-range jumper", points: 2,
		base: 42, k: 0.5, minPct: 15, maxPct: 65,
		foulBase: 4, blockBase: 3,
		minSeconds: 4, maxSeconds: 8,
		offense: func(r PlayerRating) int { return r.MidRangeShot },
		defense: func(r PlayerRating) int { return r.PerimeterDefense },
	},
	shotDrive: {
		label: "drive", points: 2,
		base: 55, k: 0.6, minPct: 25, maxPct: 80,
		foulBase: 10, blockBase: 6,
		minSeconds: 5, maxSeconds: 9,
		offense: func(r PlayerRating) int { return (r.Layup + r.DrivingDunk + r.CloseShot) / 3 },
		defense: func(r PlayerRating) int { return r.InteriorDefense },
	},
}

const (
	forcedPenalty   = 10.0
	quickMinSeconds = 1.0
	quickMaxSeconds = 3.0

	assistBonusFloor = 75
	assistBonusScale = 0.2

	foulMinPct  = 1.0
	foulMaxPct  = 30.0
	blockScale  = 0.3
	blockMaxPct = 20.0

	stealBasePct = 4.0
	stealScale   = 0.1
	stealMaxPct  = 10.0
)

// attemptShot resolves a field-goal attempt by shooter. It fails only when
// there is nobody to defend the shot.
func (s *Simulator) attemptShot(shooter *GamePlayer, kind shotType, quick, forced bool) bt.Status {
	defender := s.randomDefender(shooter)
	if defender == nil {
		return bt.Failure
	}
	prof := shotProfiles[kind]
	if quick {
		s.consumeTime(uniform(s.playRNG, quickMinSeconds, quickMaxSeconds))
	} else {
		s.consumeTime(uniform(s.playRNG, prof.minSeconds, prof.maxSeconds))
	}

	off := AdjustedRating(shooter)
	def := AdjustedRating(defender)

	foulPct := clamp(prof.foulBase+float64(off.DrawFoul-prof.defense(def))/4, foulMinPct, foulMaxPct)
	if roll(s.playRNG, foulPct) {
		s.resolveShootingFoul(shooter, defender, kind)
		return bt.Success
	}

	pct := prof.base +
		float64(prof.offense(off)-75)*prof.k -
		float64(prof.defense(def)-75)*prof.k +
		s.assistBonus(shooter)
	hi := prof.maxPct
	if forced {
		pct -= forcedPenalty
		hi -= forcedPenalty
	}
	pct = clamp(pct, prof.minPct, hi)

	shooter.Stats.FieldGoalsAttempted++
	if prof.points == 3 {
		shooter.Stats.ThreePointersAttempted++
	}
	if roll(s.playRNG, pct) {
		shooter.Stats.FieldGoalsMade++
		if prof.points == 3 {
			shooter.Stats.ThreePointersMade++
		}
		assisted := s.creditAssist(shooter)
		s.addPoints(shooter, prof.points)
		if assisted != nil {
			s.playf(shooter.TeamID, "%s makes a %s (assist %s)", shooter.Name(), prof.label, assisted.Name())
		} else {
			s.playf(shooter.TeamID, "%s makes a %s", shooter.Name(), prof.label)
		}
		s.outcome = trace.OutcomeMade
		s.changePossession()
		return bt.Success
	}

	blockPct := clamp(prof.blockBase+float64(def.Block-70)*blockScale, 0, blockMaxPct)
	if roll(s.playRNG, blockPct) {
		defender.Stats.Blocks++
		s.playf(defender.TeamID, "%s blocks %s's %s", defender.Name(), shooter.Name(), prof.label)
	} else {
		s.playf(shooter.TeamID, "%s misses a %s", shooter.Name(), prof.label)
	}
	s.outcome = trace.OutcomeMissRebound
	s.resolveRebound()
	return bt.Success
}

// assistBonus is the make-chance boost from a skilled passer.
func (s *Simulator) assistBonus(shooter *GamePlayer) float64 {
	lp := s.State.LastPasser
	if lp == nil || lp == shooter || lp.Rating.PassIQ <= assistBonusFloor {
		return 0
	}
	return float64(lp.Rating.PassIQ-assistBonusFloor) * assistBonusScale
}

// creditAssist gives the last passer an assist, never to the shooter.
func (s *Simulator) creditAssist(shooter *GamePlayer) *GamePlayer {
	lp := s.State.LastPasser
	if lp == nil || lp == shooter || lp.TeamID != shooter.TeamID {
		return nil
	}
	lp.Stats.Assists++
	return lp
}

func (s *Simulator) resolveShootingFoul(shooter, defender *GamePlayer, kind shotType) {
	defender.Stats.PersonalFouls++
	attempts := 2
	if kind == shotThree {
		attempts = 3
	}
	s.playf(defender.TeamID, "shooting foul on %s (%d), %s to the line for %d",
		defender.Name(), defender.Stats.PersonalFouls, shooter.Name(), attempts)
	s.outcome = trace.OutcomeFreeThrows
	if defender.Stats.PersonalFouls >= s.cfg.Play.FoulOutLimit {
		s.foulOut(defender)
	}
	s.resolveFreeThrows(shooter, attempts)
}

// resolveFreeThrows shoots n free throws at the shooter's own rating. A
// made last attempt hands the ball over; a miss goes to a rebound.
func (s *Simulator) resolveFreeThrows(shooter *GamePlayer, n int) {
	s.State.LastPasser = nil
	if s.outcome == trace.OutcomeNone {
		s.outcome = trace.OutcomeFreeThrows
	}
	rating := shooter.Rating.FreeThrow
	if shooter.IsCurrentlyInjured {
		rating /= 2
	}
	made, last := 0, false
	for i := 0; i < n; i++ {
		s.consumeTime(s.cfg.Clock.FreeThrowSeconds)
		shooter.Stats.FreeThrowsAttempted++
		last = roll(s.playRNG, float64(rating))
		if last {
			made++
			shooter.Stats.FreeThrowsMade++
			s.addPoints(shooter, 1)
		}
	}
	s.playf(shooter.TeamID, "%s makes %d of %d free throws", shooter.Name(), made, n)
	if last {
		s.changePossession()
		return
	}
	s.resolveRebound()
}

// resolveRebound draws the rebounder among all players on the floor with
// weight rebound rating plus uniform noise. An offensive board keeps the
// ball with a short shot clock.
func (s *Simulator) resolveRebound() {
	st := &s.State
	s.consumeTime(uniform(s.playRNG, s.cfg.Play.MinReboundSeconds, s.cfg.Play.MaxReboundSeconds))
	if s.outcome == trace.OutcomeNone {
		s.outcome = trace.OutcomeMissRebound
	}

	offense := st.PossessingTeamID
	var (
		players []*GamePlayer
		weights []float64
		total   float64
	)
	for team := range s.Rosters {
		for _, p := range s.OnCourt(team) {
			r := AdjustedRating(p)
			rating := r.DefensiveRebound
			if team == offense {
				rating = r.OffensiveRebound
			}
			w := float64(rating) + uniform(s.playRNG, 1, 20)
			players = append(players, p)
			weights = append(weights, w)
			total += w
		}
	}
	var best *GamePlayer
	if len(players) > 0 {
		best = players[len(players)-1]
		r := s.playRNG.Float64() * total
		for i, w := range weights {
			if r < w {
				best = players[i]
				break
			}
			r -= w
		}
	}
	if best == nil {
		s.changePossession()
		return
	}
	if best.TeamID == offense {
		best.Stats.OffensiveRebounds++
		st.ShotClockSeconds = s.cfg.Clock.OffensiveReboundSeconds
		st.BallHandler = best
		st.LastPasser = nil
		s.playf(best.TeamID, "offensive rebound %s", best.Name())
		return
	}
	best.Stats.DefensiveRebounds++
	s.playf(best.TeamID, "defensive rebound %s", best.Name())
	s.changePossession()
}

// resolveTurnover charges a turnover and flips possession.
func (s *Simulator) resolveTurnover(loser, stealer *GamePlayer) {
	loser.Stats.Turnovers++
	if stealer != nil {
		stealer.Stats.Steals++
	}
	s.outcome = trace.OutcomeTurnover
	s.changePossession()
}

// pass moves the ball to the best-placed teammate and re-enters the tree
// for the receiver. The chain is bounded by MaxPassHops.
func (s *Simulator) pass(passer *GamePlayer) bt.Status {
	st := &s.State
	if s.passHops >= s.cfg.Play.MaxPassHops || st.GameClockSeconds < s.cfg.Play.MaxPassSeconds {
		return bt.Failure
	}
	target := s.bestPassTarget(passer)
	if target == nil {
		return bt.Failure
	}
	s.consumeTime(uniform(s.playRNG, s.cfg.Play.MinPassSeconds, s.cfg.Play.MaxPassSeconds))
	s.passHops++

	if defender := s.randomDefender(passer); defender != nil {
		dr := AdjustedRating(defender)
		pr := AdjustedRating(passer)
		stealPct := clamp(stealBasePct+(float64(dr.Steal)-float64(pr.PassIQ+pr.BallHandle)/2)*stealScale, 0, stealMaxPct)
		if roll(s.playRNG, stealPct) {
			s.playf(defender.TeamID, "%s steals the pass from %s", defender.Name(), passer.Name())
			s.resolveTurnover(passer, defender)
			return bt.Success
		}
	}

	st.LastPasser = passer
	st.BallHandler = target
	s.playf(passer.TeamID, "%s passes to %s", passer.Name(), target.Name())
	if st.ShotClockSeconds <= 0 || st.GameClockSeconds <= 0 {
		return bt.Success
	}
	s.tree.Evaluate(s, target)
	return bt.Success
}

// bestPassTarget maximises teammate overall plus a pass-IQ-weighted bonus
// for shooting skill.
func (s *Simulator) bestPassTarget(passer *GamePlayer) *GamePlayer {
	vision := float64(passer.Rating.PassIQ) / 100
	var best *GamePlayer
	bestScore := math.Inf(-1)
	for _, p := range s.OnCourt(passer.TeamID) {
		if p == passer {
			continue
		}
		r := AdjustedRating(p)
		score := float64(p.Rating.Overall) + vision*float64(max(r.ThreePointShot, r.MidRangeShot))*0.1
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}
