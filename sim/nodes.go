package sim

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/courtsim/courtsim/sim/bt"
)

// Condition kinds.
const (
	CondShotClockLow = "shot-clock-low"
	CondOpenForThree = "open-for-3"
	CondCanDrive     = "can-drive"
	CondGoodPass     = "good-pass"
	CondGoodMidRange = "good-mid-range"
)

// Action kinds.
const (
	ActShootThree    = "shoot-three"
	ActShootMidRange = "shoot-mid-range"
	ActDrive         = "drive"
	ActPass          = "pass"
	ActFreeThrows    = "free-throws"
)

type (
	predicate = bt.Predicate[*Simulator, *GamePlayer]
	effect    = bt.Effect[*Simulator, *GamePlayer]
)

var (
	registryOnce sync.Once
	registry     *bt.Registry[*Simulator, *GamePlayer]

	defaultTreeOnce sync.Once
	defaultTree     Tree
)

// NodeRegistry returns the registry of every condition and action kind.
func NodeRegistry() *bt.Registry[*Simulator, *GamePlayer] {
	registryOnce.Do(func() {
		r := bt.NewRegistry[*Simulator, *GamePlayer]()
		r.RegisterCondition(CondShotClockLow, newShotClockLow)
		r.RegisterCondition(CondOpenForThree, newOpenForThree)
		r.RegisterCondition(CondCanDrive, newCanDrive)
		r.RegisterCondition(CondGoodPass, newGoodPass)
		r.RegisterCondition(CondGoodMidRange, newGoodMidRange)
		r.RegisterAction(ActShootThree, newShotAction(shotThree))
		r.RegisterAction(ActShootMidRange, newShotAction(shotMidRange))
		r.RegisterAction(ActDrive, newShotAction(shotDrive))
		r.RegisterAction(ActPass, newPass)
		r.RegisterAction(ActFreeThrows, newFreeThrows)
		registry = r
	})
	return registry
}

// BuildTree validates a spec against the node registry.
func BuildTree(spec bt.Spec) (Tree, error) {
	return NodeRegistry().Build(spec)
}

// LoadTree reads and builds a tree from a YAML file.
func LoadTree(path string) (Tree, error) {
	spec, err := bt.LoadSpec(path)
	if err != nil {
		return nil, err
	}
	tree, err := BuildTree(*spec)
	if err != nil {
		return nil, fmt.Errorf("building tree from %s: %w", path, err)
	}
	return tree, nil
}

// DefaultTree returns the shared standard offense.
func DefaultTree() Tree {
	defaultTreeOnce.Do(func() {
		tree, err := BuildTree(DefaultTreeSpec())
		if err != nil {
			panic(fmt.Sprintf("default tree: %v", err))
		}
		defaultTree = tree
	})
	return defaultTree
}

// DefaultTreeSpec is the standard offense: beat the shot clock first,
// then move the ball to a clearly better teammate, then take the best
// available look, then swing the ball, and finally force a jumper.
func DefaultTreeSpec() bt.Spec {
	cond := func(kind string) bt.Spec { return bt.Spec{Type: bt.TypeCondition, Kind: kind} }
	act := func(kind string, params map[string]float64) bt.Spec {
		return bt.Spec{Type: bt.TypeAction, Kind: kind, Params: params}
	}
	seq := func(children ...bt.Spec) bt.Spec { return bt.Spec{Type: bt.TypeSequence, Children: children} }
	sel := func(children ...bt.Spec) bt.Spec { return bt.Spec{Type: bt.TypeSelector, Children: children} }
	quick := map[string]float64{"quick": 1}
	forced := map[string]float64{"forced": 1}
	hurried := map[string]float64{"quick": 1, "forced": 1}

	return sel(
		seq(cond(CondShotClockLow), sel(
			seq(cond(CondOpenForThree), act(ActShootThree, quick)),
			seq(cond(CondCanDrive), act(ActDrive, quick)),
			seq(cond(CondGoodMidRange), act(ActShootMidRange, quick)),
			act(ActShootThree, hurried),
		)),
		seq(cond(CondGoodPass), act(ActPass, nil)),
		seq(cond(CondOpenForThree), act(ActShootThree, nil)),
		seq(cond(CondCanDrive), act(ActDrive, nil)),
		seq(cond(CondGoodMidRange), act(ActShootMidRange, nil)),
		act(ActPass, nil),
		act(ActShootMidRange, forced),
	)
}

// checkParams rejects parameter names the node does not understand.
func checkParams(params map[string]float64, allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var unknown []string
	for name := range params {
		if !ok[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown params %v (allowed %v)", unknown, allowed)
	}
	return nil
}

// === Conditions ===

func newShotClockLow(params map[string]float64) (predicate, error) {
	if err := checkParams(params, "threshold"); err != nil {
		return nil, err
	}
	threshold := bt.Param(params, "threshold", -1)
	return func(s *Simulator, _ *GamePlayer) bool {
		limit := threshold
		if limit < 0 {
			limit = s.cfg.Play.ShotClockLowSeconds
		}
		return math.Min(s.State.ShotClockSeconds, s.State.GameClockSeconds) < limit
	}, nil
}

func newOpenForThree(params map[string]float64) (predicate, error) {
	if err := checkParams(params, "base", "min_skill"); err != nil {
		return nil, err
	}
	base := bt.Param(params, "base", 25)
	minSkill := int(bt.Param(params, "min_skill", 75))
	return func(s *Simulator, p *GamePlayer) bool {
		if AdjustedRating(p).ThreePointShot <= minSkill {
			return false
		}
		return roll(s.playRNG, base+float64(p.Rating.Overall-85)*0.25)
	}, nil
}

func newCanDrive(params map[string]float64) (predicate, error) {
	if err := checkParams(params, "base"); err != nil {
		return nil, err
	}
	base := bt.Param(params, "base", 20)
	return func(s *Simulator, p *GamePlayer) bool {
		r := AdjustedRating(p)
		tendency := base + float64(r.DrivingDunk+r.Layup)/2*0.3 + float64(p.Rating.Overall-85)*0.3
		if !roll(s.playRNG, tendency) {
			return false
		}
		defender := s.randomDefender(p)
		if defender == nil {
			return false
		}
		d := AdjustedRating(defender)
		beat := clamp(50+float64(r.BallHandle+r.Speed)/2-float64(d.PerimeterDefense), 10, 90)
		return roll(s.playRNG, beat)
	}, nil
}

func newGoodPass(params map[string]float64) (predicate, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}
	return func(s *Simulator, p *GamePlayer) bool {
		play := s.cfg.Play
		if s.passHops >= play.MaxPassHops {
			return false
		}
		if math.Min(s.State.ShotClockSeconds, s.State.GameClockSeconds) < play.MaxPassSeconds {
			return false
		}
		target := s.bestPassTarget(p)
		if target == nil {
			return false
		}
		edge := float64(target.Rating.Overall-p.Rating.Overall) + float64(p.Rating.PassIQ-75)*0.2
		return edge > uniform(s.playRNG, 3, 6)
	}, nil
}

func newGoodMidRange(params map[string]float64) (predicate, error) {
	if err := checkParams(params, "base", "min_skill"); err != nil {
		return nil, err
	}
	base := bt.Param(params, "base", 34)
	minSkill := int(bt.Param(params, "min_skill", 70))
	return func(s *Simulator, p *GamePlayer) bool {
		if AdjustedRating(p).MidRangeShot <= minSkill {
			return false
		}
		return roll(s.playRNG, base+float64(p.Rating.Overall-85)*0.25)
	}, nil
}

// === Actions ===

func newShotAction(kind shotType) bt.ActionFactory[*Simulator, *GamePlayer] {
	return func(params map[string]float64) (effect, error) {
		if err := checkParams(params, "quick", "forced"); err != nil {
			return nil, err
		}
		quick := bt.Param(params, "quick", 0) != 0
		forced := bt.Param(params, "forced", 0) != 0
		return func(s *Simulator, p *GamePlayer) bt.Status {
			return s.attemptShot(p, kind, quick, forced)
		}, nil
	}
}

func newPass(params map[string]float64) (effect, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}
	return func(s *Simulator, p *GamePlayer) bt.Status {
		return s.pass(p)
	}, nil
}

func newFreeThrows(params map[string]float64) (effect, error) {
	if err := checkParams(params, "attempts"); err != nil {
		return nil, err
	}
	attempts := int(bt.Param(params, "attempts", 2))
	if attempts < 1 || attempts > 3 {
		return nil, fmt.Errorf("attempts must be 1..3, got %d", attempts)
	}
	return func(s *Simulator, p *GamePlayer) bt.Status {
		s.resolveFreeThrows(p, attempts)
		return bt.Success
	}, nil
}
