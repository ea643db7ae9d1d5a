// Package telemetry exports Prometheus metrics about simulated games.
// All Recorder methods are safe on a nil receiver, so callers that do not
// want metrics simply pass nil.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/courtsim/courtsim/sim"
)

const namespace = "courtsim"

// Recorder counts finished games and their notable events.
type Recorder struct {
	games         *prometheus.CounterVec
	failures      prometheus.Counter
	points        prometheus.Histogram
	margin        prometheus.Histogram
	possessions   prometheus.Counter
	overtimes     prometheus.Counter
	substitutions prometheus.Counter
	injuries      prometheus.Counter
	foulOuts      prometheus.Counter
	violations    prometheus.Counter
	simSeconds    prometheus.Histogram
	liveGames     prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		games: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_total",
			Help:      "Finished games by winning side.",
		}, []string{"winner"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_failures_total",
			Help:      "Games that could not be set up, simulated or saved.",
		}),
		points: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "team_points",
			Help:      "Points scored per team per game.",
			Buckets:   prometheus.LinearBuckets(70, 10, 10),
		}),
		margin: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_margin_points",
			Help:      "Absolute final margin.",
			Buckets:   []float64{1, 3, 5, 10, 15, 20, 30},
		}),
		possessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "possessions_total",
			Help:      "Possessions played.",
		}),
		overtimes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overtime_periods_total",
			Help:      "Overtime periods played.",
		}),
		substitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "substitutions_total",
			Help:      "Substitutions made.",
		}),
		injuries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injuries_total",
			Help:      "In-game injuries.",
		}),
		foulOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "foul_outs_total",
			Help:      "Players disqualified on fouls.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shot_clock_violations_total",
			Help:      "Shot clock violations.",
		}),
		simSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_simulation_seconds",
			Help:      "Wall-clock time spent simulating one game.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		liveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_games",
			Help:      "Paced games currently streaming.",
		}),
	}
	for _, c := range []prometheus.Collector{
		r.games, r.failures, r.points, r.margin, r.possessions, r.overtimes,
		r.substitutions, r.injuries, r.foulOuts, r.violations, r.simSeconds, r.liveGames,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// ObserveGame records one finished game and how long it took to simulate.
func (r *Recorder) ObserveGame(res sim.GameResult, took time.Duration) {
	if r == nil {
		return
	}
	winner := "none"
	switch res.Winner() {
	case sim.Home:
		winner = "home"
	case sim.Away:
		winner = "away"
	}
	r.games.WithLabelValues(winner).Inc()
	r.points.Observe(float64(res.HomeScore))
	r.points.Observe(float64(res.AwayScore))
	margin := res.Margin()
	if margin < 0 {
		margin = -margin
	}
	r.margin.Observe(float64(margin))

	sum := res.Summary
	r.possessions.Add(float64(sum.Possessions))
	if sum.Periods > 4 {
		r.overtimes.Add(float64(sum.Periods - 4))
	}
	r.substitutions.Add(float64(sum.Substitutions))
	r.injuries.Add(float64(sum.Injuries))
	r.foulOuts.Add(float64(sum.FoulOuts))
	r.violations.Add(float64(sum.ShotClockViolations))
	r.simSeconds.Observe(took.Seconds())
}

// ObserveFailure counts a game that did not produce a saved result.
func (r *Recorder) ObserveFailure() {
	if r == nil {
		return
	}
	r.failures.Inc()
}

// LiveGameStarted and LiveGameEnded track the number of paced games.
func (r *Recorder) LiveGameStarted() {
	if r == nil {
		return
	}
	r.liveGames.Inc()
}

// LiveGameEnded marks a paced game as finished or stopped.
func (r *Recorder) LiveGameEnded() {
	if r == nil {
		return
	}
	r.liveGames.Dec()
}
