// Package live runs a game at watchable speed. A Runner owns one Simulator
// on a single goroutine and advances it on ticks; commands from the
// presentation layer are applied between ticks only.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim"
)

// BaseSpeed is the game seconds played per wall-clock second at 1x.
const BaseSpeed = 12.0

// MaxSpeed bounds SetSpeed.
const MaxSpeed = 64.0

// Speeds are the presets offered by clients.
var Speeds = []float64{0.25, 0.5, 1, 2, 4, 8}

var (
	// ErrRunnerStopped is returned once a runner has been stopped or its
	// game has ended.
	ErrRunnerStopped = errors.New("runner stopped")
	// ErrBadSpeed is returned for a speed outside (0, MaxSpeed].
	ErrBadSpeed = errors.New("speed out of range")
)

type commandKind int

const (
	cmdPause commandKind = iota
	cmdResume
	cmdSpeed
	cmdSubstitute
)

type command struct {
	kind          commandKind
	speed         float64
	team, out, in int
	resp          chan error
}

// Runner paces one game. Create it with NewRunner, start it with Run and
// read Snapshots and Events until they are closed.
type Runner struct {
	// Tick is the wall-clock length credited for each tick received by Run.
	Tick time.Duration

	sim       *sim.Simulator
	commands  chan command
	snapshots chan sim.Snapshot
	events    chan sim.Event
	done      chan struct{}
	stopOnce  sync.Once

	paused bool
	speed  float64
	budget float64 // game seconds owed to the simulation
}

// NewRunner builds the simulator. Events reported by the engine are
// forwarded to Events in addition to any OnEvent hook in cfg.
func NewRunner(cfg sim.SimConfig) (*Runner, error) {
	r := &Runner{
		Tick:      100 * time.Millisecond,
		commands:  make(chan command),
		snapshots: make(chan sim.Snapshot, 1),
		events:    make(chan sim.Event, 256),
		done:      make(chan struct{}),
		speed:     1,
	}
	hook := cfg.OnEvent
	cfg.OnEvent = func(e sim.Event) {
		if hook != nil {
			hook(e)
		}
		select {
		case r.events <- e:
		default:
			logrus.Debugf("live: event dropped: %s", e.Describe())
		}
	}
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	r.sim = s
	return r, nil
}

// Snapshots delivers the state after every tick. Only the latest snapshot
// is kept for slow readers. Closed when Run returns.
func (r *Runner) Snapshots() <-chan sim.Snapshot { return r.snapshots }

// Events delivers substitutions, injuries and foul-outs. Closed when Run
// returns.
func (r *Runner) Events() <-chan sim.Event { return r.events }

// Run advances the game on every tick until it ends, the runner is stopped
// or ctx is cancelled. A stopped game is discarded.
func (r *Runner) Run(ctx context.Context, ticks <-chan time.Time) (sim.GameResult, error) {
	defer func() {
		r.Stop()
		close(r.snapshots)
		close(r.events)
	}()
	r.publish()
	for {
		select {
		case <-ctx.Done():
			return sim.GameResult{}, ctx.Err()
		case <-r.done:
			return sim.GameResult{}, ErrRunnerStopped
		case c := <-r.commands:
			c.resp <- r.handle(c)
		case _, ok := <-ticks:
			if !ok {
				return sim.GameResult{}, ErrRunnerStopped
			}
			r.advance()
			r.publish()
			if res, done := r.sim.Result(); done {
				return res, nil
			}
		}
	}
}

func (r *Runner) advance() {
	if r.paused {
		return
	}
	r.budget += r.Tick.Seconds() * BaseSpeed * r.speed
	for r.budget > 0 && !r.sim.Done() {
		r.budget -= r.sim.Step()
	}
}

// publish replaces any unread snapshot with the current one.
func (r *Runner) publish() {
	snap := r.sim.Snapshot()
	select {
	case r.snapshots <- snap:
		return
	default:
	}
	select {
	case <-r.snapshots:
	default:
	}
	select {
	case r.snapshots <- snap:
	default:
	}
}

func (r *Runner) handle(c command) error {
	switch c.kind {
	case cmdPause:
		r.paused = true
	case cmdResume:
		r.paused = false
	case cmdSpeed:
		r.speed = c.speed
	case cmdSubstitute:
		if err := r.sim.Substitute(c.team, c.out, c.in); err != nil {
			return err
		}
		r.publish()
	default:
		return fmt.Errorf("unknown command %d", c.kind)
	}
	return nil
}

func (r *Runner) submit(c command) error {
	c.resp = make(chan error, 1)
	select {
	case r.commands <- c:
	case <-r.done:
		return ErrRunnerStopped
	}
	select {
	case err := <-c.resp:
		return err
	case <-r.done:
		select {
		case err := <-c.resp:
			return err
		default:
			return ErrRunnerStopped
		}
	}
}

// Pause stops the clock; ticks received while paused are not credited.
func (r *Runner) Pause() error { return r.submit(command{kind: cmdPause}) }

// Resume restarts the clock.
func (r *Runner) Resume() error { return r.submit(command{kind: cmdResume}) }

// SetSpeed changes the multiple of BaseSpeed played per tick.
func (r *Runner) SetSpeed(speed float64) error {
	if speed <= 0 || speed > MaxSpeed {
		return fmt.Errorf("%w: %v", ErrBadSpeed, speed)
	}
	return r.submit(command{kind: cmdSpeed, speed: speed})
}

// Substitute swaps two players of one team. Validation errors wrap
// sim.ErrInvalidSubstitution.
func (r *Runner) Substitute(team, outID, inID int) error {
	return r.submit(command{kind: cmdSubstitute, team: team, out: outID, in: inID})
}

// Stop ends Run without a result. It is safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}
