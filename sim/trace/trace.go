package trace

// Level controls the verbosity of game recording.
type Level string

const (
	// LevelNone disables recording (zero overhead).
	LevelNone Level = "none"
	// LevelPossessions records one entry per possession.
	LevelPossessions Level = "possessions"
	// LevelPlays records possessions plus play-by-play text.
	LevelPlays Level = "plays"
)

// validLevels maps accepted level strings.
var validLevels = map[Level]bool{
	LevelNone:        true,
	LevelPossessions: true,
	LevelPlays:       true,
	"":               true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// GameLog collects possession and play records during one game.
// A nil *GameLog records nothing.
type GameLog struct {
	Level       Level
	Possessions []PossessionRecord
	Plays       []PlayRecord
}

// NewGameLog creates a GameLog ready for recording.
func NewGameLog(level Level) *GameLog {
	if level == "" {
		level = LevelNone
	}
	return &GameLog{
		Level:       level,
		Possessions: make([]PossessionRecord, 0),
		Plays:       make([]PlayRecord, 0),
	}
}

// RecordsPossessions reports whether possession records are kept.
func (g *GameLog) RecordsPossessions() bool {
	return g != nil && (g.Level == LevelPossessions || g.Level == LevelPlays)
}

// RecordsPlays reports whether play-by-play text is kept.
func (g *GameLog) RecordsPlays() bool {
	return g != nil && g.Level == LevelPlays
}

// RecordPossession appends a possession record.
func (g *GameLog) RecordPossession(record PossessionRecord) {
	if !g.RecordsPossessions() {
		return
	}
	g.Possessions = append(g.Possessions, record)
}

// RecordPlay appends a play-by-play line.
func (g *GameLog) RecordPlay(record PlayRecord) {
	if !g.RecordsPlays() {
		return
	}
	g.Plays = append(g.Plays, record)
}
