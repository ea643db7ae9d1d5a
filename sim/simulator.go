package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim/bt"
	"github.com/courtsim/courtsim/sim/trace"
)

// Tree is a behavior tree evaluated for the ball handler of a possession.
type Tree = bt.Node[*Simulator, *GamePlayer]

// SimConfig groups the inputs of one game.
type SimConfig struct {
	Match      Matchup
	Home       []RosterEntry
	Away       []RosterEntry
	Seed       int64
	Engine     *Config     // nil = DefaultConfig()
	Tree       Tree        // nil = DefaultTree()
	TraceLevel trace.Level // "" = none
	OnEvent    func(Event) // optional, called synchronously
}

// Simulator runs one game possession by possession. It exclusively owns
// its state, rosters and RNG; only the tree is shared between games.
type Simulator struct {
	State   GameState
	Teams   [2]Team
	Rosters [2][]*GamePlayer
	Log     *trace.GameLog

	cfg       Config
	match     Matchup
	gameID    string
	tree      bt.Node[*Simulator, *GamePlayer] // = Tree; spelled out for go1.21 (go.dev/issue/50729)
	rng       *PartitionedRNG
	playRNG   *rand.Rand
	injuryRNG *rand.Rand
	onEvent   func(Event)

	subCountdown    float64
	injuryCountdown float64
	passHops        int
	outcome         trace.Outcome
	tipWinner       int
	summary         GameSummary
	result          *GameResult
}

// NewSimulator validates the inputs, builds both rosters and picks the
// starting lineups. Either side having fewer than five players yields
// ErrInsufficientRoster.
func NewSimulator(cfg SimConfig) (*Simulator, error) {
	engine := DefaultConfig()
	if cfg.Engine != nil {
		engine = *cfg.Engine
	}
	if err := engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if len(cfg.Home) < 5 || len(cfg.Away) < 5 {
		return nil, fmt.Errorf("%w: %s has %d, %s has %d",
			ErrInsufficientRoster, cfg.Match.Home.Abbr, len(cfg.Home), cfg.Match.Away.Abbr, len(cfg.Away))
	}

	tree := cfg.Tree
	if tree == nil {
		tree = DefaultTree()
	}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	s := &Simulator{
		Teams:     [2]Team{cfg.Match.Home, cfg.Match.Away},
		Log:       trace.NewGameLog(cfg.TraceLevel),
		cfg:       engine,
		match:     cfg.Match,
		gameID:    cfg.Match.GameID,
		tree:      tree,
		rng:       rng,
		playRNG:   rng.ForSubsystem(SubsystemPlay),
		injuryRNG: rng.ForSubsystem(SubsystemInjury),
		onEvent:   cfg.OnEvent,
	}
	for team, entries := range [2][]RosterEntry{cfg.Home, cfg.Away} {
		seen := make(map[int]bool, len(entries))
		for _, e := range entries {
			if err := e.Rating.Validate(); err != nil {
				return nil, err
			}
			if seen[e.Rating.ID] {
				return nil, fmt.Errorf("player %d listed twice on %s", e.Rating.ID, s.Teams[team].Abbr)
			}
			seen[e.Rating.ID] = true
			s.Rosters[team] = append(s.Rosters[team], newGamePlayer(e, team))
		}
		s.selectStarters(team)
	}

	s.State = GameState{Phase: PhaseQuarterStart, Quarter: 1}
	s.subCountdown = engine.Substitution.IntervalSeconds
	s.injuryCountdown = engine.Injury.IntervalSeconds
	return s, nil
}

// Simulate runs a whole game in batch mode. On setup failure it returns a
// zero-score result with no stat rows together with the error.
func Simulate(cfg SimConfig) (GameResult, error) {
	s, err := NewSimulator(cfg)
	if err != nil {
		return GameResult{GameID: cfg.Match.GameID, Home: cfg.Match.Home, Away: cfg.Match.Away}, err
	}
	return s.Run(), nil
}

// Config returns the engine configuration in use.
func (s *Simulator) Config() Config { return s.cfg }

// Done reports whether the game has ended.
func (s *Simulator) Done() bool { return s.State.Phase == PhaseGameEnd }

// Result returns the final result once the game has ended.
func (s *Simulator) Result() (GameResult, bool) {
	if s.result == nil {
		return GameResult{}, false
	}
	return *s.result, true
}

// Run steps the game to completion and returns its result.
func (s *Simulator) Run() GameResult {
	for !s.Done() {
		s.Step()
	}
	return *s.result
}

// Step performs one transition of the game loop and returns the game
// seconds it consumed. Only possessions consume time.
func (s *Simulator) Step() float64 {
	switch s.State.Phase {
	case PhaseQuarterStart:
		s.startPeriod()
	case PhaseInPossession:
		return s.playPossession()
	case PhaseQuarterEnd:
		s.endPeriod()
	}
	return 0
}

func (s *Simulator) startPeriod() {
	st := &s.State
	st.GameClockSeconds = s.cfg.periodSeconds(st.Quarter)
	st.ShotClockSeconds = s.cfg.Clock.ShotClockSeconds
	st.BallHandler = nil
	st.LastPasser = nil
	st.PossessingTeamID = s.openingPossession(st.Quarter)
	st.Phase = PhaseInPossession
	s.playf(st.PossessingTeamID, "start of period, %s ball", s.Teams[st.PossessingTeamID].Abbr)
}

// openingPossession applies the alternating-possession rule: the opening
// tip decides Q1 and Q4, its loser gets Q2 and Q3, overtimes tip again.
func (s *Simulator) openingPossession(quarter int) int {
	switch {
	case quarter == 1:
		s.tipWinner = s.jumpBall()
		return s.tipWinner
	case quarter > s.cfg.Clock.Quarters:
		return s.jumpBall()
	case quarter == s.cfg.Clock.Quarters:
		return s.tipWinner
	default:
		return 1 - s.tipWinner
	}
}

func (s *Simulator) jumpBall() int {
	return s.rng.ForSubsystem(SubsystemTip).Intn(2)
}

func (s *Simulator) endPeriod() {
	st := &s.State
	s.summary.Periods = st.Quarter
	logrus.Debugf("[%s] end of period %d: %d-%d", s.gameID, st.Quarter, st.HomeScore, st.AwayScore)
	st.Quarter++
	if st.Quarter > s.cfg.Clock.Quarters && st.HomeScore != st.AwayScore {
		s.finish()
		return
	}
	if st.Quarter > s.cfg.Clock.MaxPeriods {
		logrus.Warnf("[%s] stopping after %d periods with the score tied %d-%d",
			s.gameID, s.cfg.Clock.MaxPeriods, st.HomeScore, st.AwayScore)
		s.finish()
		return
	}
	st.Phase = PhaseQuarterStart
}

func (s *Simulator) playPossession() float64 {
	st := &s.State
	offense := st.PossessingTeamID
	clockBefore := st.GameClockSeconds

	handler := st.BallHandler
	if handler == nil || !handler.IsOnCourt {
		handler = s.pickBallHandler(offense)
		if handler == nil {
			logrus.Warnf("[%s] %s has no eligible ball handler, ending period",
				s.gameID, s.Teams[offense].Abbr)
			st.Phase = PhaseQuarterEnd
			return 0
		}
		st.BallHandler = handler
	}
	s.outcome = trace.OutcomeNone
	s.passHops = 0
	pointsBefore := st.Score(offense)

	s.tree.Evaluate(s, handler)

	if s.outcome == trace.OutcomeNone {
		if st.ShotClockSeconds <= 0 {
			s.shotClockViolation(handler)
		} else {
			// The tree found nothing to do; the offense coughs it up.
			if st.GameClockSeconds > 0 {
				s.consumeTime(s.cfg.Clock.MinPossessionSeconds)
			}
			loser := st.BallHandler
			if loser == nil {
				loser = handler
			}
			s.playf(offense, "%s loses the ball", loser.Name())
			s.resolveTurnover(loser, nil)
		}
	}

	elapsed := clockBefore - math.Max(st.GameClockSeconds, 0)
	s.advanceTime(elapsed)
	s.summary.Possessions++
	if s.Log.RecordsPossessions() {
		s.Log.RecordPossession(trace.PossessionRecord{
			Quarter:     st.Quarter,
			ClockBefore: clockBefore,
			Elapsed:     elapsed,
			TeamID:      offense,
			Handler:     handler.Name(),
			Passes:      s.passHops,
			Outcome:     s.outcome,
			Points:      st.Score(offense) - pointsBefore,
			HomeScore:   st.HomeScore,
			AwayScore:   st.AwayScore,
		})
	}
	if st.GameClockSeconds <= 0 {
		st.Phase = PhaseQuarterEnd
	}
	return elapsed
}

func (s *Simulator) shotClockViolation(actor *GamePlayer) {
	st := &s.State
	culprit := st.LastPasser
	if culprit == nil {
		culprit = st.BallHandler
	}
	if culprit == nil {
		culprit = actor
	}
	s.summary.ShotClockViolations++
	s.playf(st.PossessingTeamID, "shot clock violation, turnover on %s", culprit.Name())
	s.resolveTurnover(culprit, nil)
}

// advanceTime applies stamina and playing time for elapsed game seconds
// and runs the periodic substitution and injury checks when due.
func (s *Simulator) advanceTime(elapsed float64) {
	for team := range s.Rosters {
		for _, p := range s.Rosters[team] {
			if !p.Available() {
				continue
			}
			if p.IsOnCourt {
				p.Stats.SecondsPlayed += elapsed
				modifier := 1 - (float64(p.Rating.Stamina)-50)/100
				p.CurrentStamina = math.Max(0, p.CurrentStamina-s.cfg.Stamina.DepletionRate*modifier*elapsed)
			} else {
				p.CurrentStamina = math.Min(p.MaxStaminaForGame, p.CurrentStamina+s.cfg.Stamina.RecoveryRate*elapsed)
			}
			p.refreshEffectiveOverall()
		}
	}

	s.subCountdown -= elapsed
	if s.subCountdown <= 0 {
		s.subCountdown = s.cfg.Substitution.IntervalSeconds
		s.runSubstitutions()
	}
	if s.cfg.Injury.Enabled {
		s.injuryCountdown -= elapsed
		if s.injuryCountdown <= 0 {
			s.injuryCountdown = s.cfg.Injury.IntervalSeconds
			s.runInjuryCheck()
		}
	}
}

func (s *Simulator) finish() {
	st := &s.State
	res := GameResult{
		GameID:    s.gameID,
		Home:      s.Teams[Home],
		Away:      s.Teams[Away],
		HomeScore: st.HomeScore,
		AwayScore: st.AwayScore,
		Summary:   s.summary,
	}
	for team := range s.Rosters {
		for _, p := range s.Rosters[team] {
			res.StatRows = append(res.StatRows, s.statRow(p))
			res.StatusUpdates = append(res.StatusUpdates, StatusUpdate{
				PlayerID:      p.ID(),
				Stamina:       roundStamina(p.CurrentStamina),
				SecondsPlayed: int(math.Round(p.Stats.SecondsPlayed)),
				Injured:       p.InjuredThisGame,
				InjuryDays:    p.InjuryDays,
			})
		}
	}
	s.result = &res
	st.Phase = PhaseGameEnd
	logrus.Infof("[%s] final: %s %d - %d %s (%d periods, %d possessions)",
		s.gameID, s.Teams[Home].Abbr, st.HomeScore, st.AwayScore, s.Teams[Away].Abbr,
		s.summary.Periods, s.summary.Possessions)
}

func (s *Simulator) statRow(p *GamePlayer) StatRow {
	st := p.Stats
	return StatRow{
		GameID:            s.gameID,
		Season:            s.match.Season,
		GameDate:          s.match.Date,
		PlayerID:          p.ID(),
		PlayerName:        p.Name(),
		TeamAbbr:          s.Teams[p.TeamID].Abbr,
		SecondsPlayed:     int(math.Round(st.SecondsPlayed)),
		Points:            st.Points,
		Assists:           st.Assists,
		Rebounds:          st.Rebounds(),
		OffensiveRebounds: st.OffensiveRebounds,
		DefensiveRebounds: st.DefensiveRebounds,
		Steals:            st.Steals,
		Blocks:            st.Blocks,
		Turnovers:         st.Turnovers,
		FieldGoalsMade:    st.FieldGoalsMade,
		FieldGoalsAtt:     st.FieldGoalsAttempted,
		ThreesMade:        st.ThreePointersMade,
		ThreesAtt:         st.ThreePointersAttempted,
		FreeThrowsMade:    st.FreeThrowsMade,
		FreeThrowsAtt:     st.FreeThrowsAttempted,
		PersonalFouls:     st.PersonalFouls,
		PlusMinus:         st.PlusMinus,
	}
}

// === Lineup helpers ===

// selectStarters puts the best player of each position on the floor,
// then fills the remaining spots with the best of the rest.
func (s *Simulator) selectStarters(team int) {
	ranked := append([]*GamePlayer(nil), s.Rosters[team]...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EffectiveOverall > ranked[j].EffectiveOverall
	})
	covered := make(map[Position]bool)
	starters := 0
	for _, p := range ranked {
		if starters == 5 {
			break
		}
		if !covered[p.Rating.Position] {
			covered[p.Rating.Position] = true
			p.IsOnCourt = true
			starters++
		}
	}
	for _, p := range ranked {
		if starters == 5 {
			break
		}
		if !p.IsOnCourt {
			p.IsOnCourt = true
			starters++
		}
	}
}

// OnCourt returns the team's non-ejected players on the floor, in roster order.
func (s *Simulator) OnCourt(team int) []*GamePlayer {
	out := make([]*GamePlayer, 0, 5)
	for _, p := range s.Rosters[team] {
		if p.IsOnCourt && p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// Bench returns the team's non-ejected players off the floor, in roster order.
func (s *Simulator) Bench(team int) []*GamePlayer {
	var out []*GamePlayer
	for _, p := range s.Rosters[team] {
		if !p.IsOnCourt && p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// Player looks up a roster player by id.
func (s *Simulator) Player(team, id int) *GamePlayer {
	if team != Home && team != Away {
		return nil
	}
	for _, p := range s.Rosters[team] {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// pickBallHandler draws an on-court attacker weighted by Overall².
func (s *Simulator) pickBallHandler(team int) *GamePlayer {
	players := s.OnCourt(team)
	if len(players) == 0 {
		return nil
	}
	total := 0.0
	weights := make([]float64, len(players))
	for i, p := range players {
		o := float64(max(p.Rating.Overall, 1))
		weights[i] = o * o
		total += weights[i]
	}
	r := s.playRNG.Float64() * total
	for i, w := range weights {
		if r < w {
			return players[i]
		}
		r -= w
	}
	return players[len(players)-1]
}

func (s *Simulator) randomDefender(attacker *GamePlayer) *GamePlayer {
	defenders := s.OnCourt(1 - attacker.TeamID)
	if len(defenders) == 0 {
		return nil
	}
	return defenders[s.playRNG.Intn(len(defenders))]
}

// === Clock and score helpers ===

func (s *Simulator) consumeTime(seconds float64) {
	s.State.GameClockSeconds -= seconds
	s.State.ShotClockSeconds -= seconds
}

func (s *Simulator) changePossession() {
	st := &s.State
	st.PossessingTeamID = 1 - st.PossessingTeamID
	st.ShotClockSeconds = s.cfg.Clock.ShotClockSeconds
	st.BallHandler = nil
	st.LastPasser = nil
}

// addPoints credits the scorer and moves plus/minus for everyone on the floor.
func (s *Simulator) addPoints(scorer *GamePlayer, points int) {
	if scorer.TeamID == Home {
		s.State.HomeScore += points
	} else {
		s.State.AwayScore += points
	}
	scorer.Stats.Points += points
	for team := range s.Rosters {
		delta := points
		if team != scorer.TeamID {
			delta = -points
		}
		for _, p := range s.OnCourt(team) {
			p.Stats.PlusMinus += delta
		}
	}
}

func (s *Simulator) now() GameTime {
	return GameTime{Quarter: s.State.Quarter, Clock: math.Max(s.State.GameClockSeconds, 0)}
}

func (s *Simulator) emit(e Event) {
	s.playf(-1, "%s", e.Describe())
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

// playf records a play-by-play line when the log level asks for it.
func (s *Simulator) playf(team int, format string, args ...any) {
	if !s.Log.RecordsPlays() {
		return
	}
	rec := trace.PlayRecord{
		Quarter: s.State.Quarter,
		Clock:   math.Max(s.State.GameClockSeconds, 0),
		TeamID:  team,
		Text:    fmt.Sprintf(format, args...),
	}
	s.Log.RecordPlay(rec)
	logrus.Debugf("[%s] %s", s.gameID, rec)
}
