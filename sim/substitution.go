package sim

import (
	"fmt"
	"sort"
)

// runSubstitutions makes up to MaxSwapsPerCheck rotation swaps per team.
func (s *Simulator) runSubstitutions() {
	for team := Home; team <= Away; team++ {
		for i := 0; i < s.cfg.Substitution.MaxSwapsPerCheck; i++ {
			out := s.worstStarter(team)
			if out == nil {
				break
			}
			in := s.findSubstitute(out, false)
			if in == nil {
				break
			}
			s.swap(out, in, ReasonRotation)
		}
	}
}

// worstStarter returns the lowest-stamina player on the floor among those
// who are either tired or clearly outplayed by a rested bench player.
func (s *Simulator) worstStarter(team int) *GamePlayer {
	cfg := s.cfg.Substitution
	bestBench := -1
	for _, p := range s.Bench(team) {
		if p.CurrentStamina > cfg.SubInStamina && p.EffectiveOverall > bestBench {
			bestBench = p.EffectiveOverall
		}
	}
	var worst *GamePlayer
	for _, p := range s.OnCourt(team) {
		tired := p.CurrentStamina < cfg.SubOutStamina
		outplayed := bestBench >= 0 && bestBench-p.EffectiveOverall > cfg.OverallMargin
		if !tired && !outplayed {
			continue
		}
		if worst == nil || p.CurrentStamina < worst.CurrentStamina {
			worst = p
		}
	}
	return worst
}

// findSubstitute picks a bench replacement for out. Rotation swaps need a
// rested player who can cover the position; when nobody qualifies and out
// is nearly exhausted, the most rested bench player goes in. Forced swaps
// (injury, foul-out) ignore stamina.
func (s *Simulator) findSubstitute(out *GamePlayer, forced bool) *GamePlayer {
	bench := s.Bench(out.TeamID)
	slot := out.Rating.Position
	if forced {
		return pickSubstitute(bench, slot, true)
	}
	var rested []*GamePlayer
	for _, p := range bench {
		if p.CurrentStamina > s.cfg.Substitution.SubInStamina && canCover(slot, p.Rating.Position) {
			rested = append(rested, p)
		}
	}
	if p := pickSubstitute(rested, slot, true); p != nil {
		return p
	}
	if out.CurrentStamina >= s.cfg.Substitution.RelaxedStamina {
		return nil
	}
	return pickSubstitute(bench, slot, false)
}

// pickSubstitute orders candidates by position fit (optional), stamina and
// base overall, and returns the first.
func pickSubstitute(candidates []*GamePlayer, slot Position, byPosition bool) *GamePlayer {
	if len(candidates) == 0 {
		return nil
	}
	ranked := append([]*GamePlayer(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if byPosition {
			if fa, fb := positionFit(slot, a.Rating.Position), positionFit(slot, b.Rating.Position); fa != fb {
				return fa > fb
			}
		}
		if a.CurrentStamina != b.CurrentStamina {
			return a.CurrentStamina > b.CurrentStamina
		}
		return a.Rating.Overall > b.Rating.Overall
	})
	return ranked[0]
}

// positionFit is 2 for the same position, 1 for a flexible one, else 0.
func positionFit(slot, from Position) int {
	switch {
	case slot == from:
		return 2
	case canCover(slot, from):
		return 1
	}
	return 0
}

// swap replaces out with in. Ball-handler and passer references to the
// departing player are cleared.
func (s *Simulator) swap(out, in *GamePlayer, reason SubstitutionReason) {
	s.leaveCourt(out)
	in.IsOnCourt = true
	s.summary.Substitutions++
	s.emit(SubstitutionEvent{At: s.now(), TeamID: out.TeamID, Out: out, In: in, Reason: reason})
}

func (s *Simulator) leaveCourt(p *GamePlayer) {
	p.IsOnCourt = false
	if s.State.BallHandler == p {
		s.State.BallHandler = nil
	}
	if s.State.LastPasser == p {
		s.State.LastPasser = nil
	}
}

// foulOut disqualifies a player and brings in a substitute regardless of
// stamina. With nobody left on the bench the player stays in.
func (s *Simulator) foulOut(p *GamePlayer) {
	sub := s.findSubstitute(p, true)
	if sub == nil {
		// No one to bring in: the team keeps five on the floor rather than
		// play short, the same degrade rule as a missing substitute elsewhere.
		s.playf(p.TeamID, "%s commits foul %d but no substitute is available", p.Name(), p.Stats.PersonalFouls)
		return
	}
	p.IsEjected = true
	p.FouledOut = true
	s.summary.FoulOuts++
	s.emit(FoulOutEvent{At: s.now(), Player: p})
	s.swap(p, sub, ReasonFoulOut)
}

// Substitute performs a manual substitution requested for team. Both
// players must belong to that team; out must be on the floor and in must
// be an eligible bench player.
func (s *Simulator) Substitute(team, outID, inID int) error {
	if s.Done() {
		return fmt.Errorf("%w: game is over", ErrInvalidSubstitution)
	}
	if team != Home && team != Away {
		return fmt.Errorf("%w: unknown team %d", ErrInvalidSubstitution, team)
	}
	out := s.Player(team, outID)
	if out == nil {
		return fmt.Errorf("%w: player %d is not on %s", ErrInvalidSubstitution, outID, s.Teams[team].Abbr)
	}
	in := s.Player(team, inID)
	if in == nil {
		return fmt.Errorf("%w: player %d is not on %s", ErrInvalidSubstitution, inID, s.Teams[team].Abbr)
	}
	if !out.IsOnCourt || !out.Available() {
		return fmt.Errorf("%w: %s is not on the floor", ErrInvalidSubstitution, out.Name())
	}
	if in.IsOnCourt || !in.Available() {
		return fmt.Errorf("%w: %s is not available", ErrInvalidSubstitution, in.Name())
	}
	s.swap(out, in, ReasonManual)
	return nil
}
