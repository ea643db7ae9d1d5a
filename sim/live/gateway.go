package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServerMessage is one JSON frame sent to a client.
type ServerMessage struct {
	Type     string        `json:"type"` // hello, snapshot, event, final, error
	GameID   string        `json:"game_id,omitempty"`
	Snapshot *sim.Snapshot `json:"snapshot,omitempty"`
	Event    *EventMessage `json:"event,omitempty"`
	Final    *FinalScore   `json:"final,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// EventMessage is the wire form of a sim.Event.
type EventMessage struct {
	Kind string `json:"kind"`
	Time string `json:"time"`
	Team int    `json:"team"`
	Text string `json:"text"`
}

// FinalScore closes a stream.
type FinalScore struct {
	Home      sim.Team `json:"home"`
	Away      sim.Team `json:"away"`
	HomeScore int      `json:"home_score"`
	AwayScore int      `json:"away_score"`
	Periods   int      `json:"periods"`
}

// ClientMessage is a command sent by a client: pause, resume, speed, sub
// or stop. A sub always applies to the side the connection controls; Team,
// when set, must name that side.
type ClientMessage struct {
	Type  string  `json:"type"`
	Speed float64 `json:"speed,omitempty"`
	Team  string  `json:"team,omitempty"` // home or away
	Out   int     `json:"out,omitempty"`
	In    int     `json:"in,omitempty"`
}

// ErrWrongSide is returned for a substitution on the team a connection
// does not control.
var ErrWrongSide = errors.New("substitution for the other team")

// parseSide maps "home" (or empty) and "away" to a team index.
func parseSide(v string) (int, bool) {
	switch v {
	case "", "home":
		return sim.Home, true
	case "away":
		return sim.Away, true
	}
	return 0, false
}

// Gateway streams paced games over websockets. Each connection to
// /ws?home=ABBR&away=ABBR[&side=home|away][&speed=N][&seed=N] plays its own
// game and may substitute for its side only (home by default).
type Gateway struct {
	Store    sim.Store
	Engine   *sim.Config
	Tree     sim.Tree
	Seed     int64
	Interval time.Duration // ticker period, default 100ms
	GameTick time.Duration // time credited per tick, default Interval
	Recorder *telemetry.Recorder

	mu      sync.Mutex
	running map[string]*Runner
}

// Stop halts every game in progress.
func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.running {
		r.Stop()
	}
}

// Running returns the number of games in progress.
func (g *Gateway) Running() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}

func (g *Gateway) track(id string, r *Runner) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]*Runner)
	}
	if r == nil {
		delete(g.running, id)
		return
	}
	g.running[id] = r
}

// ServeHTTP loads both rosters, upgrades the connection and plays the game
// until it ends or the client goes away.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	homeAbbr, awayAbbr := q.Get("home"), q.Get("away")
	if homeAbbr == "" || awayAbbr == "" || homeAbbr == awayAbbr {
		http.Error(w, "home and away must name two different teams", http.StatusBadRequest)
		return
	}
	side, ok := parseSide(q.Get("side"))
	if !ok {
		http.Error(w, fmt.Sprintf("bad side %q", q.Get("side")), http.StatusBadRequest)
		return
	}
	speed := 1.0
	if v := q.Get("speed"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > MaxSpeed {
			http.Error(w, fmt.Sprintf("bad speed %q", v), http.StatusBadRequest)
			return
		}
		speed = f
	}
	gameID := uuid.NewString()
	seed := sim.DeriveSeed(g.Seed, gameID)
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad seed %q", v), http.StatusBadRequest)
			return
		}
		seed = n
	}

	home, homeRoster, err := g.Store.LoadRoster(r.Context(), homeAbbr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	away, awayRoster, err := g.Store.LoadRoster(r.Context(), awayAbbr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	runner, err := NewRunner(sim.SimConfig{
		Match:  sim.Matchup{GameID: gameID, Date: time.Now().UTC(), Home: home, Away: away},
		Home:   homeRoster,
		Away:   awayRoster,
		Seed:   seed,
		Engine: g.Engine,
		Tree:   g.Tree,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sim.ErrInsufficientRoster) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	interval := g.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	runner.Tick = interval
	if g.GameTick > 0 {
		runner.Tick = g.GameTick
	}
	runner.speed = speed

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("live: upgrade: %v", err)
		return
	}
	c := &connection{conn: conn, send: make(chan []byte, 256), side: side}
	g.track(gameID, runner)
	g.Recorder.LiveGameStarted()
	defer func() {
		g.track(gameID, nil)
		g.Recorder.LiveGameEnded()
	}()
	logrus.Infof("live: game %s %s vs %s started", gameID, home.Abbr, away.Abbr)

	go c.writePump()
	go c.readPump(runner)
	c.writeWaiting(ServerMessage{Type: "hello", GameID: gameID})

	var fwd sync.WaitGroup
	fwd.Add(2)
	go func() {
		defer fwd.Done()
		for snap := range runner.Snapshots() {
			c.write(ServerMessage{Type: "snapshot", Snapshot: &snap})
		}
	}()
	go func() {
		defer fwd.Done()
		for e := range runner.Events() {
			c.write(ServerMessage{Type: "event", Event: eventMessage(e)})
		}
	}()

	ticker := time.NewTicker(interval)
	start := time.Now()
	res, err := runner.Run(context.Background(), ticker.C)
	ticker.Stop()
	fwd.Wait()
	if err != nil {
		logrus.Infof("live: game %s ended early: %v", gameID, err)
		c.writeWaiting(ServerMessage{Type: "error", GameID: gameID, Error: err.Error()})
	} else {
		g.Recorder.ObserveGame(res, time.Since(start))
		c.writeWaiting(ServerMessage{Type: "final", GameID: gameID, Final: &FinalScore{
			Home: res.Home, Away: res.Away, HomeScore: res.HomeScore, AwayScore: res.AwayScore, Periods: res.Summary.Periods,
		}})
		logrus.Infof("live: game %s final %s %d - %s %d", gameID, home.Abbr, res.HomeScore, away.Abbr, res.AwayScore)
	}
	c.close()
}

func eventMessage(e sim.Event) *EventMessage {
	m := &EventMessage{Time: e.Time().String(), Text: e.Describe()}
	switch ev := e.(type) {
	case sim.SubstitutionEvent:
		m.Kind, m.Team = "substitution", ev.TeamID
	case sim.InjuryEvent:
		m.Kind, m.Team = "injury", ev.Player.TeamID
	case sim.FoulOutEvent:
		m.Kind, m.Team = "foul-out", ev.Player.TeamID
	default:
		m.Kind = "other"
	}
	return m
}

// connection serialises writes to one websocket.
type connection struct {
	conn   *websocket.Conn
	send   chan []byte
	side   int // team this client may substitute for
	mu     sync.Mutex
	closed bool
}

// write queues a message, dropping it when the client is not keeping up.
func (c *connection) write(msg ServerMessage) {
	c.enqueue(msg, 0)
}

// writeWaiting queues a message that must not be dropped, waiting up to
// writeWait for room.
func (c *connection) writeWaiting(msg ServerMessage) {
	c.enqueue(msg, writeWait)
}

func (c *connection) enqueue(msg ServerMessage, wait time.Duration) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("live: marshal %s: %v", msg.Type, err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if wait > 0 {
		select {
		case c.send <- data:
		case <-time.After(wait):
			logrus.Warnf("live: client too slow for %s frame", msg.Type)
		}
		return
	}
	select {
	case c.send <- data:
	default:
		logrus.Debugf("live: dropped %s frame", msg.Type)
	}
}

func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *connection) readPump(runner *Runner) {
	defer func() {
		runner.Stop()
		c.close()
	}()
	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("live: read: %v", err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.writeWaiting(ServerMessage{Type: "error", Error: fmt.Sprintf("bad command: %v", err)})
			continue
		}
		if err := apply(runner, c.side, msg); err != nil {
			if errors.Is(err, ErrRunnerStopped) {
				return
			}
			c.writeWaiting(ServerMessage{Type: "error", Error: err.Error()})
		}
	}
}

func apply(runner *Runner, side int, msg ClientMessage) error {
	switch msg.Type {
	case "pause":
		return runner.Pause()
	case "resume":
		return runner.Resume()
	case "speed":
		return runner.SetSpeed(msg.Speed)
	case "sub":
		if team, ok := parseSide(msg.Team); msg.Team != "" && (!ok || team != side) {
			return fmt.Errorf("%w: %q", ErrWrongSide, msg.Team)
		}
		return runner.Substitute(side, msg.Out, msg.In)
	case "stop":
		runner.Stop()
		return nil
	}
	return fmt.Errorf("unknown command %q", msg.Type)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
