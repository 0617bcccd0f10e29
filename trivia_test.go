package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/buzzboard/games/trivia"
)

// scriptedRand replays vals in order, wrapping each into [0, n).
type scriptedRand struct {
	vals []int
	next int
}

func (r *scriptedRand) IntN(n int) int {
	v := r.vals[r.next%len(r.vals)]
	r.next++

	return v % n
}

func testConfig() *Config {
	return &Config{
		buzzSeconds:  trivia.DefaultBuzzSeconds,
		finalSeconds: trivia.DefaultFinalSeconds,
		messageRate:  100,
		messageBurst: 10,
		port:         8080,
	}
}

type hubFixture struct {
	cfg     *Config
	hub     *Hub
	metrics *Metrics
	host    *Client
	p0      *Client
	p1      *Client
}

// newHubFixture builds a hub without its run loop. The selector is
// player-0 and every daily double sits in category 5.
func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	catalog, err := trivia.ParseCatalog(defaultCatalog)
	require.NoError(t, err)

	session, err := trivia.New(catalog, trivia.WithRand(&scriptedRand{vals: []int{0, 5, 4, 5, 4, 5, 3}}))
	require.NoError(t, err)

	m := newMetrics()
	f := &hubFixture{
		cfg:     testConfig(),
		hub:     newHub("testgame", session, m, time.Hour),
		metrics: m,
		host:    &Client{send: make(chan any, 64), playerID: "host-cookie"},
		p0:      &Client{send: make(chan any, 64), playerID: "alice-cookie"},
		p1:      &Client{send: make(chan any, 64), playerID: "bob-cookie"},
	}

	f.hub.hostPlayerID = f.host.playerID
	for _, c := range []*Client{f.host, f.p0, f.p1} {
		f.hub.clients[c] = true
	}

	return f
}

func (f *hubFixture) do(c *Client, msg ClientMessage) {
	f.hub.handleCommand(f.cfg, commandRequest{client: c, msg: msg})
}

func (f *hubFixture) setup(t *testing.T) {
	t.Helper()

	f.do(f.host, ClientMessage{Type: "setup", Names: []string{"Alice", "Bob", "Cara"}})
	f.do(f.p0, ClientMessage{Type: "claim", PlayerID: "player-0"})
	f.do(f.p1, ClientMessage{Type: "claim", PlayerID: "player-1"})
	require.Equal(t, trivia.PhaseRound1Board, f.hub.session.Phase())

	f.drainAll()
}

func (f *hubFixture) drainAll() {
	for _, c := range []*Client{f.host, f.p0, f.p1} {
		drain(c)
	}
}

func drain(c *Client) []any {
	var out []any
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func rejections(msgs []any) []RejectedMessage {
	var out []RejectedMessage
	for _, m := range msgs {
		if r, ok := m.(RejectedMessage); ok {
			out = append(out, r)
		}
	}

	return out
}

func lastState(t *testing.T, msgs []any) StateMessage {
	t.Helper()

	for i := len(msgs) - 1; i >= 0; i-- {
		if st, ok := msgs[i].(StateMessage); ok {
			return st
		}
	}
	t.Fatalf("no state message in %v", msgs)

	return StateMessage{}
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func TestHubSetupBroadcastsToEveryone(t *testing.T) {
	f := newHubFixture(t)

	f.do(f.host, ClientMessage{Type: "setup", Names: []string{"Alice", "Bob", "Cara"}})

	for _, c := range []*Client{f.host, f.p0, f.p1} {
		st := lastState(t, drain(c))
		assert.Equal(t, trivia.PhaseRound1Board, st.State.Phase)
		assert.Len(t, st.State.Players, trivia.PlayerCount)
		assert.Equal(t, "player-0", st.State.CurrentSelectorID)
	}
}

func TestHubRejectionGoesOnlyToSender(t *testing.T) {
	f := newHubFixture(t)

	f.do(f.p0, ClientMessage{Type: "setup", Names: []string{"Alice", "Bob", "Cara"}})

	got := rejections(drain(f.p0))
	require.Len(t, got, 1)
	assert.Equal(t, "setup", got[0].Command)
	assert.Equal(t, "forbidden", got[0].Reason)

	assert.Empty(t, drain(f.host))
	assert.Empty(t, drain(f.p1))
	assert.Equal(t, trivia.PhaseSetup, f.hub.session.Phase())
}

func TestHubRejectionReasons(t *testing.T) {
	f := newHubFixture(t)
	f.setup(t)

	tests := []struct {
		name   string
		client *Client
		msg    ClientMessage
		reason string
	}{
		{"unknown type", f.host, ClientMessage{Type: "dance"}, "bad_message"},
		{"judge without verdict", f.host, ClientMessage{Type: "judge"}, "bad_message"},
		{"wager without amount", f.host, ClientMessage{Type: "dd_wager"}, "bad_message"},
		{"out of bounds clue", f.host, ClientMessage{Type: "select", Category: 6, Clue: 0}, "invalid_input"},
		{"reveal with no clue", f.host, ClientMessage{Type: "reveal"}, "illegal_transition"},
		{"reset mid game", f.host, ClientMessage{Type: "reset"}, "illegal_transition"},
		{"buzz on the board", f.p0, ClientMessage{Type: "buzz"}, "illegal_transition"},
		{"player selects", f.p0, ClientMessage{Type: "select"}, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.drainAll()

			f.do(tt.client, tt.msg)

			got := rejections(drain(tt.client))
			require.Len(t, got, 1)
			assert.Equal(t, tt.reason, got[0].Reason)
			assert.Equal(t, trivia.PhaseRound1Board, f.hub.session.Phase())
		})
	}
}

func TestHubClaimSeat(t *testing.T) {
	f := newHubFixture(t)

	f.do(f.p0, ClientMessage{Type: "claim", PlayerID: "player-0"})
	assert.Empty(t, rejections(drain(f.p0)))

	f.do(f.p1, ClientMessage{Type: "claim", PlayerID: "player-0"})
	got := rejections(drain(f.p1))
	require.Len(t, got, 1)
	assert.Equal(t, "forbidden", got[0].Reason)

	f.do(f.host, ClientMessage{Type: "claim", PlayerID: "player-2"})
	require.Len(t, rejections(drain(f.host)), 1)

	f.do(f.p1, ClientMessage{Type: "claim", PlayerID: "player-9"})
	got = rejections(drain(f.p1))
	require.Len(t, got, 1)
	assert.Equal(t, "bad_message", got[0].Reason)

	// Moving to another seat frees the old one.
	f.do(f.p0, ClientMessage{Type: "claim", PlayerID: "player-2"})
	st := lastState(t, drain(f.p0))
	assert.Equal(t, map[string]bool{"player-0": false, "player-1": false, "player-2": true}, st.Seats)
}

func TestHubBuzzFromSeat(t *testing.T) {
	f := newHubFixture(t)
	f.setup(t)

	f.do(f.host, ClientMessage{Type: "select", Category: 0, Clue: 0})
	f.do(f.host, ClientMessage{Type: "reveal"})
	require.Equal(t, trivia.PhaseBuzzing, f.hub.session.Phase())

	f.do(f.p1, ClientMessage{Type: "buzz", PlayerID: "player-0"})
	require.Len(t, rejections(drain(f.p1)), 1)

	f.do(f.p0, ClientMessage{Type: "buzz"})
	st := lastState(t, drain(f.p0))
	assert.Equal(t, trivia.PhaseAnswerJudging, st.State.Phase)
	assert.Equal(t, "player-0", st.State.Buzz.BuzzedPlayerID)

	f.do(f.p1, ClientMessage{Type: "buzz"})
	got := rejections(drain(f.p1))
	require.Len(t, got, 1)
	assert.Equal(t, "illegal_transition", got[0].Reason)

	f.do(f.host, ClientMessage{Type: "answer", Text: "What is a test?"})
	f.do(f.host, ClientMessage{Type: "judge", Correct: boolPtr(true)})

	st = lastState(t, drain(f.host))
	assert.Equal(t, trivia.PhaseRound1Board, st.State.Phase)
	alice, ok := st.State.Player("player-0")
	require.True(t, ok)
	assert.Equal(t, 200, alice.Score)
	assert.True(t, st.State.ClueStatus.Jeopardy[0][0])
}

func TestHubUnseatedPlayerCannotBuzz(t *testing.T) {
	f := newHubFixture(t)
	f.setup(t)

	stranger := &Client{send: make(chan any, 8), playerID: "stranger"}
	f.hub.clients[stranger] = true

	f.do(f.host, ClientMessage{Type: "select", Category: 0, Clue: 0})
	f.do(f.host, ClientMessage{Type: "reveal"})
	drain(stranger)

	f.do(stranger, ClientMessage{Type: "buzz"})
	got := rejections(drain(stranger))
	require.Len(t, got, 1)
	assert.Equal(t, "forbidden", got[0].Reason)
	assert.Equal(t, trivia.PhaseBuzzing, f.hub.session.Phase())
}

func TestHubDailyDoubleLimitsInView(t *testing.T) {
	f := newHubFixture(t)
	f.setup(t)

	f.do(f.host, ClientMessage{Type: "select", Category: 5, Clue: 4})

	st := lastState(t, drain(f.host))
	require.NotNil(t, st.DailyDoubleLimits)
	assert.Equal(t, trivia.Limits{Min: trivia.DailyDoubleMinimum, Max: 1000}, *st.DailyDoubleLimits)

	f.do(f.host, ClientMessage{Type: "dd_wager", Amount: floatPtr(1001)})
	got := rejections(drain(f.host))
	require.Len(t, got, 1)
	assert.Equal(t, "invalid_wager", got[0].Reason)

	f.do(f.host, ClientMessage{Type: "dd_wager", Amount: floatPtr(500)})
	f.do(f.host, ClientMessage{Type: "reveal"})

	st = lastState(t, drain(f.host))
	assert.Equal(t, trivia.PhaseAnswerJudging, st.State.Phase)
	assert.Nil(t, st.DailyDoubleLimits)
	require.NotNil(t, st.State.DailyDoubleWager)
	assert.Equal(t, 500, *st.State.DailyDoubleWager)
}

func TestHubTickDrivesBuzzClock(t *testing.T) {
	f := newHubFixture(t)
	f.setup(t)

	f.hub.handleTick(f.cfg)
	assert.Empty(t, drain(f.host), "ticks on the board are silent")

	f.do(f.host, ClientMessage{Type: "select", Category: 0, Clue: 0})
	f.do(f.host, ClientMessage{Type: "reveal"})
	f.drainAll()

	f.hub.handleTick(f.cfg)
	st := lastState(t, drain(f.p1))
	assert.Equal(t, trivia.DefaultBuzzSeconds-1, st.State.Buzz.TimeLeft)

	for range trivia.DefaultBuzzSeconds - 1 {
		f.hub.handleTick(f.cfg)
	}
	assert.Equal(t, trivia.PhaseRound1Board, f.hub.session.Phase())
}

func TestHubClockRestartsWhenCountdownStarts(t *testing.T) {
	const period = 200 * time.Millisecond

	f := newHubFixture(t)
	f.hub.tick = period
	f.hub.clock.Reset(period)
	f.setup(t)

	time.Sleep(150 * time.Millisecond)

	f.do(f.host, ClientMessage{Type: "select", Category: 0, Clue: 0})
	f.do(f.host, ClientMessage{Type: "reveal"})
	require.Equal(t, trivia.PhaseBuzzing, f.hub.session.Phase())

	select {
	case <-f.hub.clock.C:
		t.Fatal("first tick arrived less than a full period after reveal")
	case <-time.After(120 * time.Millisecond):
	}

	select {
	case <-f.hub.clock.C:
	case <-time.After(time.Second):
		t.Fatal("clock stopped")
	}
}

func TestHubClosesClientsRegisteredAfterQuit(t *testing.T) {
	cfg := testConfig()
	catalog, err := trivia.ParseCatalog(defaultCatalog)
	require.NoError(t, err)

	for range 20 {
		session, err := trivia.New(catalog)
		require.NoError(t, err)

		hub := newHub("closed", session, newMetrics(), time.Hour)
		close(hub.quit)

		done := make(chan struct{})
		go func() {
			hub.run(cfg)
			close(done)
		}()

		c := &Client{send: make(chan any, 16), playerID: "late"}
		select {
		case hub.register <- c:
			<-done
			_, ok := <-c.send
			assert.False(t, ok, "late client must be closed, not served")
			assert.Empty(t, hub.clients)
		case <-done:
		}
	}
}

// toFinalWager scores Alice once, then skips both boards.
func (f *hubFixture) toFinalWager(t *testing.T) {
	t.Helper()

	f.setup(t)
	f.do(f.host, ClientMessage{Type: "select", Category: 0, Clue: 0})
	f.do(f.host, ClientMessage{Type: "reveal"})
	f.do(f.p0, ClientMessage{Type: "buzz"})
	f.do(f.host, ClientMessage{Type: "judge", Correct: boolPtr(true)})
	f.do(f.host, ClientMessage{Type: "end_round"})
	f.do(f.host, ClientMessage{Type: "end_round"})
	f.do(f.host, ClientMessage{Type: "final_wagers"})
	require.Equal(t, trivia.PhaseFinalWager, f.hub.session.Phase())

	f.drainAll()
}

func TestHubHidesFinalWagersUntilJudging(t *testing.T) {
	f := newHubFixture(t)
	f.toFinalWager(t)

	f.do(f.p1, ClientMessage{Type: "final_wager", Amount: floatPtr(0)})
	got := rejections(drain(f.p1))
	require.Len(t, got, 1)
	assert.Equal(t, "invalid_input", got[0].Reason, "bob has no positive score")

	f.do(f.p0, ClientMessage{Type: "final_wager", Amount: floatPtr(150)})
	assert.Empty(t, rejections(drain(f.p0)))

	f.hub.mu.RLock()
	hostView := f.hub.viewLocked(f.host.playerID)
	aliceView := f.hub.viewLocked(f.p0.playerID)
	bobView := f.hub.viewLocked(f.p1.playerID)
	f.hub.mu.RUnlock()

	assert.Equal(t, map[string]int{"player-0": 150}, hostView.State.Final.Wagers)
	assert.Equal(t, map[string]int{"player-0": 150}, aliceView.State.Final.Wagers)
	assert.Empty(t, bobView.State.Final.Wagers)

	f.do(f.host, ClientMessage{Type: "final_reveal"})
	f.do(f.p0, ClientMessage{Type: "final_response", Text: "Who is Amundsen?"})
	f.do(f.host, ClientMessage{Type: "final_close"})
	require.Equal(t, trivia.PhaseFinalJudging, f.hub.session.Phase())

	st := lastState(t, drain(f.p1))
	assert.Equal(t, map[string]int{"player-0": 150}, st.State.Final.Wagers)
	assert.Equal(t, map[string]string{"player-0": "Who is Amundsen?"}, st.State.Final.Responses)

	f.do(f.host, ClientMessage{Type: "judge_final", PlayerID: "player-0", Correct: boolPtr(true)})
	f.do(f.host, ClientMessage{Type: "finalize"})

	st = lastState(t, drain(f.p0))
	assert.Equal(t, trivia.PhaseSummary, st.State.Phase)
	alice, _ := st.State.Player("player-0")
	assert.Equal(t, 350, alice.Score)
	require.Len(t, st.Standings, trivia.PlayerCount)
	assert.Equal(t, "player-0", st.Standings[0].ID)
}

func TestHubCountsCommands(t *testing.T) {
	f := newHubFixture(t)
	f.setup(t)

	f.do(f.host, ClientMessage{Type: "reveal"})
	f.do(f.p0, ClientMessage{Type: "reset"})

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.commands.WithLabelValues("setup", "accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.commands.WithLabelValues("claim", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.commands.WithLabelValues("reveal", "illegal_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.commands.WithLabelValues("reset", "forbidden")))
}

func TestGameManagerLifecycle(t *testing.T) {
	cfg := testConfig()
	catalog, err := trivia.ParseCatalog(defaultCatalog)
	require.NoError(t, err)

	m := newMetrics()
	gm := newGameManager(cfg, catalog, m)

	id := gm.newGameID()
	assert.Len(t, id, 8)

	hub, err := gm.getHub(cfg, id)
	require.NoError(t, err)

	again, err := gm.getHub(cfg, id)
	require.NoError(t, err)
	assert.Same(t, hub, again)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.gamesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gamesActive))

	gm.reap(time.Now().Add(-time.Hour))
	_, ok := gm.lookup(id)
	assert.True(t, ok, "recently active games survive")

	gm.reap(time.Now().Add(time.Hour))
	_, ok = gm.lookup(id)
	assert.False(t, ok)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.gamesActive))

	select {
	case <-hub.quit:
	case <-time.After(time.Second):
		t.Fatal("reaped hub was not stopped")
	}
}

func TestGetOrSetPlayerID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id := getOrSetPlayerID(rec, req)
	require.NotEmpty(t, id)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, playerCookieName, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: playerCookieName, Value: "known"})

	assert.Equal(t, "known", getOrSetPlayerID(rec, req))
	assert.Empty(t, rec.Result().Cookies())
}

func newTestRouter(t *testing.T) (*httprouter.Router, *GameManager, *Config) {
	t.Helper()

	cfg := testConfig()
	catalog, err := trivia.ParseCatalog(defaultCatalog)
	require.NoError(t, err)

	gm := newGameManager(cfg, catalog, newMetrics())
	mux := httprouter.New()
	registerTriviaGame(cfg, "/trivia", gm, mux, make(chan error, 8))

	return mux, gm, cfg
}

func TestRoutes(t *testing.T) {
	mux, gm, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trivia", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/trivia/"), location)
	gameID := strings.TrimPrefix(location, "/trivia/")
	_, ok := gm.lookup(gameID)
	assert.True(t, ok)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var view StateMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "state", view.Type)
	assert.Equal(t, trivia.PhaseSetup, view.State.Phase)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trivia/nosuchgame", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, location+"/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

type wireMessage struct {
	Type   string `json:"type"`
	IsHost bool   `json:"is_host"`
	Seat   string `json:"seat"`
	Reason string `json:"reason"`
	State  struct {
		Phase trivia.Phase `json:"phase"`
	} `json:"state"`
}

func dial(t *testing.T, srv *httptest.Server, cookie string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Cookie", playerCookieName+"="+cookie)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trivia/wsgame/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func read(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func TestWebSocketSession(t *testing.T) {
	mux, _, _ := newTestRouter(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	host := dial(t, srv, "host")
	info := read(t, host)
	assert.Equal(t, "session_info", info.Type)
	assert.True(t, info.IsHost)
	assert.Equal(t, trivia.PhaseSetup, read(t, host).State.Phase)

	player := dial(t, srv, "alice")
	info = read(t, player)
	assert.Equal(t, "session_info", info.Type)
	assert.False(t, info.IsHost)
	read(t, player)

	require.NoError(t, player.WriteJSON(ClientMessage{Type: "setup", Names: []string{"A", "B", "C"}}))
	rejected := read(t, player)
	assert.Equal(t, "rejected", rejected.Type)
	assert.Equal(t, "forbidden", rejected.Reason)

	require.NoError(t, host.WriteJSON(ClientMessage{Type: "setup", Names: []string{"A", "B", "C"}}))
	assert.Equal(t, trivia.PhaseRound1Board, read(t, host).State.Phase)
	assert.Equal(t, trivia.PhaseRound1Board, read(t, player).State.Phase)

	require.NoError(t, player.WriteJSON(ClientMessage{Type: "claim", PlayerID: "player-1"}))
	read(t, host)
	read(t, player)

	// Reconnecting with the same cookie keeps the seat.
	again := dial(t, srv, "alice")
	info = read(t, again)
	assert.Equal(t, "player-1", info.Seat)
}
