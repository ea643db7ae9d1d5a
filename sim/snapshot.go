package sim

import "github.com/courtsim/courtsim/sim/trace"

// PlayerLine is the presentation view of one player.
type PlayerLine struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Position         string  `json:"position"`
	OnCourt          bool    `json:"on_court"`
	Ejected          bool    `json:"ejected"`
	Stamina          float64 `json:"stamina"`
	EffectiveOverall int     `json:"effective_overall"`
	Points           int     `json:"points"`
	Rebounds         int     `json:"rebounds"`
	Assists          int     `json:"assists"`
	Fouls            int     `json:"fouls"`
	SecondsPlayed    float64 `json:"seconds_played"`
}

// Snapshot is a copy of the game state that is safe to hand to other
// goroutines.
type Snapshot struct {
	GameID     string          `json:"game_id"`
	Phase      string          `json:"phase"`
	Quarter    int             `json:"quarter"`
	Clock      string          `json:"clock"`
	GameClock  float64         `json:"game_clock"`
	ShotClock  float64         `json:"shot_clock"`
	HomeScore  int             `json:"home_score"`
	AwayScore  int             `json:"away_score"`
	Possession int             `json:"possession"`
	Teams      [2]Team         `json:"teams"`
	Players    [2][]PlayerLine `json:"players"`
}

// Snapshot copies the current state.
func (s *Simulator) Snapshot() Snapshot {
	st := s.State
	snap := Snapshot{
		GameID:     s.gameID,
		Phase:      st.Phase.String(),
		Quarter:    st.Quarter,
		Clock:      trace.FormatClock(st.Quarter, st.GameClockSeconds),
		GameClock:  max(st.GameClockSeconds, 0),
		ShotClock:  max(st.ShotClockSeconds, 0),
		HomeScore:  st.HomeScore,
		AwayScore:  st.AwayScore,
		Possession: st.PossessingTeamID,
		Teams:      s.Teams,
	}
	for team := range s.Rosters {
		lines := make([]PlayerLine, 0, len(s.Rosters[team]))
		for _, p := range s.Rosters[team] {
			lines = append(lines, PlayerLine{
				ID:               p.ID(),
				Name:             p.Name(),
				Position:         p.Rating.Position.String(),
				OnCourt:          p.IsOnCourt,
				Ejected:          p.IsEjected,
				Stamina:          p.CurrentStamina,
				EffectiveOverall: p.EffectiveOverall,
				Points:           p.Stats.Points,
				Rebounds:         p.Stats.Rebounds(),
				Assists:          p.Stats.Assists,
				Fouls:            p.Stats.PersonalFouls,
				SecondsPlayed:    p.Stats.SecondsPlayed,
			})
		}
		snap.Players[team] = lines
	}
	return snap
}
