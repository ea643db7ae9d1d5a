// Package league reads league files: teams, player ratings and day-to-day
// status, and the scheduled matchups of a season.
package league

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/courtsim/courtsim/sim"
)

// DateLayout is the calendar date format used for scheduled games.
const DateLayout = "2006-01-02"

// ErrUnknownTeam is returned when a team abbreviation is not in the league.
var ErrUnknownTeam = errors.New("unknown team")

// StatusSpec is a player's condition going into the first scheduled day.
// A nil Stamina means fully rested.
type StatusSpec struct {
	Stamina        *int `yaml:"stamina,omitempty"`
	Injured        bool `yaml:"injured,omitempty"`
	InjuryDaysLeft int  `yaml:"injury_days_left,omitempty"`
}

// PlayerSpec is one player entry: the rating fields inline plus an
// optional status block.
type PlayerSpec struct {
	sim.PlayerRating `yaml:",inline"`
	Status           *StatusSpec `yaml:"status,omitempty"`
}

// TeamSpec is one franchise and its roster.
type TeamSpec struct {
	Abbr    string       `yaml:"abbr"`
	Name    string       `yaml:"name"`
	Players []PlayerSpec `yaml:"players"`
}

// GameSpec is one scheduled game. An empty ID is filled in by Validate.
type GameSpec struct {
	ID   string `yaml:"id,omitempty"`
	Date string `yaml:"date"`
	Home string `yaml:"home"`
	Away string `yaml:"away"`
}

// League is the content of a league file.
type League struct {
	Season   int        `yaml:"season"`
	Teams    []TeamSpec `yaml:"teams"`
	Schedule []GameSpec `yaml:"schedule,omitempty"`
}

// Load reads, parses and validates a league file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*League, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading league file: %w", err)
	}
	l, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a league document.
func Parse(r io.Reader) (*League, error) {
	var l League
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("parsing league: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks the league and normalizes it: players inherit their
// team's abbreviation and unnamed games get an id.
func (l *League) Validate() error {
	if l.Season <= 0 {
		return fmt.Errorf("season must be positive, got %d", l.Season)
	}
	if len(l.Teams) < 2 {
		return fmt.Errorf("a league needs at least two teams, got %d", len(l.Teams))
	}
	teams := make(map[string]bool, len(l.Teams))
	players := make(map[int]string)
	for i := range l.Teams {
		t := &l.Teams[i]
		prefix := fmt.Sprintf("team[%d]", i)
		if t.Abbr == "" {
			return fmt.Errorf("%s: abbr is required", prefix)
		}
		if teams[t.Abbr] {
			return fmt.Errorf("%s: duplicate abbr %q", prefix, t.Abbr)
		}
		teams[t.Abbr] = true
		for j := range t.Players {
			p := &t.Players[j]
			if err := validatePlayer(p, fmt.Sprintf("%s(%s).player[%d]", prefix, t.Abbr, j)); err != nil {
				return err
			}
			if other, dup := players[p.ID]; dup {
				return fmt.Errorf("%s: player id %d already used by %s", prefix, p.ID, other)
			}
			players[p.ID] = t.Abbr
			p.Team = t.Abbr
		}
	}

	ids := make(map[string]bool, len(l.Schedule))
	for i := range l.Schedule {
		g := &l.Schedule[i]
		prefix := fmt.Sprintf("schedule[%d]", i)
		if !teams[g.Home] || !teams[g.Away] {
			return fmt.Errorf("%s: %w in %s vs %s", prefix, ErrUnknownTeam, g.Home, g.Away)
		}
		if g.Home == g.Away {
			return fmt.Errorf("%s: %s cannot play itself", prefix, g.Home)
		}
		if _, err := time.Parse(DateLayout, g.Date); err != nil {
			return fmt.Errorf("%s: date %q is not YYYY-MM-DD", prefix, g.Date)
		}
		if g.ID == "" {
			g.ID = fmt.Sprintf("%d-%04d-%s-%s", l.Season, i+1, g.Home, g.Away)
		}
		if ids[g.ID] {
			return fmt.Errorf("%s: duplicate game id %q", prefix, g.ID)
		}
		ids[g.ID] = true
	}
	return nil
}

func validatePlayer(p *PlayerSpec, prefix string) error {
	if p.ID <= 0 {
		return fmt.Errorf("%s: id must be positive, got %d", prefix, p.ID)
	}
	if p.Name == "" {
		return fmt.Errorf("%s: name is required", prefix)
	}
	if err := p.PlayerRating.Validate(); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if s := p.Status; s != nil {
		if s.Stamina != nil && (*s.Stamina < 0 || *s.Stamina > 100) {
			return fmt.Errorf("%s: status.stamina %d out of range [0,100]", prefix, *s.Stamina)
		}
		if s.InjuryDaysLeft < 0 {
			return fmt.Errorf("%s: status.injury_days_left must be >= 0", prefix)
		}
		if s.InjuryDaysLeft > 0 && !s.Injured {
			return fmt.Errorf("%s: injury_days_left set on a healthy player", prefix)
		}
	}
	return nil
}

// Team returns the team with the given abbreviation.
func (l *League) Team(abbr string) (sim.Team, bool) {
	for _, t := range l.Teams {
		if t.Abbr == abbr {
			return sim.Team{Abbr: t.Abbr, Name: t.Name}, true
		}
	}
	return sim.Team{}, false
}

// Roster returns a team and its players in file order.
func (l *League) Roster(abbr string) (sim.Team, []sim.RosterEntry, error) {
	for _, t := range l.Teams {
		if t.Abbr != abbr {
			continue
		}
		entries := make([]sim.RosterEntry, 0, len(t.Players))
		for _, p := range t.Players {
			entries = append(entries, sim.RosterEntry{Rating: p.PlayerRating, Status: p.status()})
		}
		return sim.Team{Abbr: t.Abbr, Name: t.Name}, entries, nil
	}
	return sim.Team{}, nil, fmt.Errorf("%w %q", ErrUnknownTeam, abbr)
}

func (p PlayerSpec) status() sim.PlayerStatus {
	st := sim.PlayerStatus{PlayerID: p.ID, Stamina: 100}
	if p.Status != nil {
		if p.Status.Stamina != nil {
			st.Stamina = *p.Status.Stamina
		}
		st.IsInjured = p.Status.Injured
		st.InjuryDaysLeft = p.Status.InjuryDaysLeft
	}
	return st
}

// Matchups returns the schedule as engine matchups, in file order.
func (l *League) Matchups() []sim.Matchup {
	out := make([]sim.Matchup, 0, len(l.Schedule))
	for _, g := range l.Schedule {
		home, _ := l.Team(g.Home)
		away, _ := l.Team(g.Away)
		date, _ := time.Parse(DateLayout, g.Date)
		out = append(out, sim.Matchup{GameID: g.ID, Season: l.Season, Date: date, Home: home, Away: away})
	}
	return out
}
