package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsim/courtsim/sim"
	"github.com/courtsim/courtsim/sim/store"
	"github.com/courtsim/courtsim/sim/telemetry"
)

func newTestGateway(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()
	rec, err := telemetry.NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)
	gw := &Gateway{
		Store:    store.NewMemoryStore(sampleLeague(t)),
		Seed:     42,
		Interval: time.Millisecond,
		GameTick: 2 * time.Second,
		Recorder: rec,
	}
	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gw.Stop()
		srv.Close()
	})
	return gw, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestGateway_StreamsGameToFinal(t *testing.T) {
	// GIVEN a client watching HAR host RVR at top speed
	_, srv := newTestGateway(t)
	conn := dial(t, srv, "home=HAR&away=RVR&speed=8")

	// WHEN the stream is read to the end
	hello := readMessage(t, conn)
	require.Equal(t, "hello", hello.Type)
	assert.Len(t, hello.GameID, 36)

	snapshots := 0
	var last ServerMessage
	for {
		msg := readMessage(t, conn)
		if msg.Type == "snapshot" {
			snapshots++
			require.NotNil(t, msg.Snapshot)
			assert.Equal(t, hello.GameID, msg.Snapshot.GameID)
			continue
		}
		if msg.Type == "final" || msg.Type == "error" {
			last = msg
			break
		}
	}

	// THEN it ends with a decided final score
	require.Equal(t, "final", last.Type, last.Error)
	require.NotNil(t, last.Final)
	assert.NotEqual(t, last.Final.HomeScore, last.Final.AwayScore)
	assert.Equal(t, "HAR", last.Final.Home.Abbr)
	assert.GreaterOrEqual(t, last.Final.Periods, 4)
	assert.Positive(t, snapshots)
}

func TestGateway_Commands(t *testing.T) {
	_, srv := newTestGateway(t)
	conn := dial(t, srv, "home=MES&away=NTH&speed=0.01")
	require.Equal(t, "hello", readMessage(t, conn).Type)

	// GIVEN a paused game
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "pause"}))

	// WHEN an unknown command is sent
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "dunk"}))

	// THEN an error frame comes back
	for {
		msg := readMessage(t, conn)
		if msg.Type == "error" {
			assert.Contains(t, msg.Error, `unknown command "dunk"`)
			break
		}
	}

	// AND stopping ends the stream early
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "stop"}))
	for {
		msg := readMessage(t, conn)
		if msg.Type == "error" && msg.GameID != "" {
			assert.Contains(t, msg.Error, ErrRunnerStopped.Error())
			break
		}
		require.NotEqual(t, "final", msg.Type)
	}
}

func TestGateway_RejectsBadRequests(t *testing.T) {
	_, srv := newTestGateway(t)
	tests := []struct {
		query string
		want  int
	}{
		{"home=HAR", http.StatusBadRequest},
		{"home=HAR&away=HAR", http.StatusBadRequest},
		{"home=HAR&away=RVR&speed=fast", http.StatusBadRequest},
		{"home=HAR&away=RVR&speed=100", http.StatusBadRequest},
		{"home=HAR&away=RVR&seed=x", http.StatusBadRequest},
		{"home=HAR&away=RVR&side=both", http.StatusBadRequest},
		{"home=HAR&away=ZZZ", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/ws?" + tc.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestGateway_SubstitutionLimitedToOwnSide(t *testing.T) {
	// GIVEN a client controlling the away side of a slow game
	_, srv := newTestGateway(t)
	conn := dial(t, srv, "home=MES&away=NTH&side=away&speed=0.01")
	require.Equal(t, "hello", readMessage(t, conn).Type)

	// WHEN it asks for a home substitution
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "sub", Team: "home", Out: 11, In: 16}))

	// THEN the command is refused
	for {
		msg := readMessage(t, conn)
		if msg.Type == "error" {
			assert.Contains(t, msg.Error, ErrWrongSide.Error())
			break
		}
	}
}

func TestApply_SubUsesConnectionSide(t *testing.T) {
	r, err := NewRunner(gameConfig(t, 9))
	require.NoError(t, err)
	out := r.sim.OnCourt(sim.Away)[0]
	in := r.sim.Bench(sim.Away)[0]
	homeOut := r.sim.OnCourt(sim.Home)[0]
	homeIn := r.sim.Bench(sim.Home)[0]
	_, errc := startRunner(t, r)

	// GIVEN a connection bound to the away side
	// WHEN it names the home team THEN nothing is applied
	err = apply(r, sim.Away, ClientMessage{Type: "sub", Team: "home", Out: homeOut.ID(), In: homeIn.ID()})
	assert.ErrorIs(t, err, ErrWrongSide)
	err = apply(r, sim.Away, ClientMessage{Type: "sub", Team: "center", Out: homeOut.ID(), In: homeIn.ID()})
	assert.ErrorIs(t, err, ErrWrongSide)

	// WHEN it names no team THEN the swap lands on its own side
	require.NoError(t, apply(r, sim.Away, ClientMessage{Type: "sub", Out: out.ID(), In: in.ID()}))
	select {
	case e := <-r.Events():
		sub, ok := e.(sim.SubstitutionEvent)
		require.True(t, ok, "got %T", e)
		assert.Equal(t, sim.Away, sub.TeamID)
		assert.Equal(t, in.ID(), sub.In.ID())
	case <-time.After(5 * time.Second):
		t.Fatal("no substitution event")
	}

	// AND home players cannot be reached even by id
	err = apply(r, sim.Away, ClientMessage{Type: "sub", Out: homeOut.ID(), In: homeIn.ID()})
	assert.ErrorIs(t, err, sim.ErrInvalidSubstitution)

	r.Stop()
	assert.ErrorIs(t, <-errc, ErrRunnerStopped)
}

func TestGateway_FixedSeedIsReproducible(t *testing.T) {
	_, srv := newTestGateway(t)
	finals := make([]*FinalScore, 2)
	for i := range finals {
		conn := dial(t, srv, "home=NTH&away=MES&speed=8&seed=123")
		for {
			msg := readMessage(t, conn)
			if msg.Type == "final" {
				finals[i] = msg.Final
				break
			}
			require.NotEqual(t, "error", msg.Type, msg.Error)
		}
	}
	assert.Equal(t, finals[0], finals[1])
}
