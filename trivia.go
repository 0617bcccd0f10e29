// Buzzboard Trivia Game
//
// One host screen runs a trivia board contest for three seated players.
// Every game lives at its own ID and is driven by a single hub goroutine
// that owns the game session, so commands, buzzes and timer ticks are
// applied strictly one at a time in arrival order.
//
// Features:
// - WebSockets per game ID: /trivia/:gameid/ws
// - First connection to a game becomes the host, who runs the board and judges
// - Players claim a seat from their own device and buzz from it
// - Players identified by cookie (playerID)
// - Final-round wagers and responses are hidden from other players until judging
// - Rejected commands are reported only to the client that sent them
// - Per-client inbound message rate limit
// - One-second clock per game drives the buzz and final-answer countdowns
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - QR code for the game URL, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"github.com/Seednode/buzzboard/games/trivia"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string   `json:"type"`                // see handleCommand
	Names    []string `json:"names,omitempty"`     // setup
	PlayerID string   `json:"player_id,omitempty"` // claim / buzz / final_wager / final_response / judge_final
	Category int      `json:"category,omitempty"`  // select
	Clue     int      `json:"clue,omitempty"`      // select
	Text     string   `json:"text,omitempty"`      // answer / final_response
	Correct  *bool    `json:"correct,omitempty"`   // judge / judge_final
	Amount   *float64 `json:"amount,omitempty"`    // dd_wager / final_wager
}

// SessionInfoMessage is sent immediately on connect so the client knows
// which role this cookie has.
type SessionInfoMessage struct {
	Type   string `json:"type"` // "session_info"
	GameID string `json:"game_id"`
	IsHost bool   `json:"is_host"`
	Seat   string `json:"seat,omitempty"` // player id claimed by this cookie
}

// StateMessage carries a snapshot of the game as this client may see it.
type StateMessage struct {
	Type              string          `json:"type"` // "state"
	State             trivia.State    `json:"state"`
	Seats             map[string]bool `json:"seats"`
	DailyDoubleLimits *trivia.Limits  `json:"daily_double_limits,omitempty"`
	Standings         []trivia.Player `json:"standings,omitempty"`
}

// RejectedMessage is sent only to the client whose command was refused.
type RejectedMessage struct {
	Type    string `json:"type"` // "rejected"
	Command string `json:"command"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

var (
	errHostOnly   = errors.New("only the host may do that")
	errNotSeated  = errors.New("claim a seat first")
	errSeatTaken  = errors.New("that seat is taken")
	errBadMessage = errors.New("malformed command")
)

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	limiter  *rate.Limiter
}

type commandRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool
	session *trivia.Session
	metrics *Metrics

	register chan *Client
	unreg    chan *Client
	commands chan commandRequest
	quit     chan struct{}
	tick     time.Duration
	clock    *time.Ticker

	mu sync.RWMutex

	createdAt    time.Time
	lastActive   time.Time
	hostPlayerID string            // cookie/playerID of the host (never seated)
	seats        map[string]string // trivia player id -> cookie playerID
}

func newHub(gameID string, session *trivia.Session, m *Metrics, tick time.Duration) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		session:    session,
		metrics:    m,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan commandRequest),
		quit:       make(chan struct{}),
		tick:       tick,
		clock:      time.NewTicker(tick),
		createdAt:  now,
		lastActive: now,
		seats:      make(map[string]string),
	}
}

func (h *Hub) run(cfg *Config) {
	defer h.clock.Stop()

	for {
		select {
		case c := <-h.register:
			// The reaper may have closed the hub while this client waited.
			select {
			case <-h.quit:
				close(c.send)
				return
			default:
			}

			h.mu.Lock()
			h.lastActive = time.Now()

			// First connection becomes host
			if h.hostPlayerID == "" {
				h.hostPlayerID = c.playerID
			}

			h.clients[c] = true
			h.metrics.clients.Inc()

			c.send <- SessionInfoMessage{
				Type:   "session_info",
				GameID: h.id,
				IsHost: h.hostPlayerID == c.playerID,
				Seat:   h.seatOfLocked(c.playerID),
			}
			h.sendStateLocked(c)

			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				h.dropLocked(c)
			}
			h.mu.Unlock()

		case req := <-h.commands:
			h.handleCommand(cfg, req)

		case <-h.clock.C:
			h.handleTick(cfg)

		case <-h.quit:
			return
		}
	}
}

func (h *Hub) dropLocked(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.metrics.clients.Dec()
}

func (h *Hub) seatOfLocked(playerID string) string {
	for seat, owner := range h.seats {
		if owner == playerID {
			return seat
		}
	}
	return ""
}

// handleTick feeds the once-a-second clock into whichever countdown is
// running. Outside BUZZING and FINAL_CLUE the tick does nothing.
func (h *Hub) handleTick(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	switch h.session.Phase() {
	case trivia.PhaseBuzzing:
		err = h.session.TickBuzz()
	case trivia.PhaseFinalClue:
		err = h.session.TickFinal()
	default:
		return
	}

	if err != nil {
		logf(cfg, "GAMES: Ignored tick in %s: %v", h.id, err)
		return
	}

	h.broadcastStateLocked()
}

// handleCommand applies one client command to the session. Rejections go
// only to the sender; accepted commands are broadcast to everyone.
func (h *Hub) handleCommand(cfg *Config, req commandRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	before := h.session.Phase()
	err := h.applyLocked(req.client, req.msg)
	h.metrics.observeCommand(req.msg.Type, err)

	if err != nil {
		logf(cfg, "REJECT: %q from %s in %s: %v", req.msg.Type, req.client.playerID, h.id, err)

		h.sendLocked(req.client, RejectedMessage{
			Type:    "rejected",
			Command: req.msg.Type,
			Reason:  rejectionReason(err),
			Message: err.Error(),
		})
		return
	}

	logf(cfg, "GAMES: %q from %s in %s, now %s", req.msg.Type, req.client.playerID, h.id, h.session.Phase())

	// Every countdown gets a full first second.
	if after := h.session.Phase(); after != before && (after == trivia.PhaseBuzzing || after == trivia.PhaseFinalClue) {
		h.clock.Reset(h.tick)
	}

	h.broadcastStateLocked()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, errHostOnly), errors.Is(err, errNotSeated), errors.Is(err, errSeatTaken):
		return "forbidden"
	case errors.Is(err, errBadMessage):
		return "bad_message"
	default:
		return trivia.Reason(err)
	}
}

func (h *Hub) applyLocked(c *Client, msg ClientMessage) error {
	isHost := c.playerID == h.hostPlayerID

	switch msg.Type {
	case "claim":
		return h.claimLocked(c, msg.PlayerID, isHost)
	case "buzz":
		id, err := h.actingSeatLocked(c, msg.PlayerID, isHost)
		if err != nil {
			return err
		}
		return h.session.RegisterBuzz(id)
	case "final_wager":
		id, err := h.actingSeatLocked(c, msg.PlayerID, isHost)
		if err != nil {
			return err
		}
		if msg.Amount == nil {
			return fmt.Errorf("%w: missing amount", errBadMessage)
		}
		return h.session.SetFinalWager(id, *msg.Amount)
	case "final_response":
		id, err := h.actingSeatLocked(c, msg.PlayerID, isHost)
		if err != nil {
			return err
		}
		return h.session.SetFinalResponse(id, msg.Text)
	}

	if !isHost {
		return errHostOnly
	}

	switch msg.Type {
	case "setup":
		return h.session.Setup(msg.Names)
	case "select":
		return h.session.SelectClue(msg.Category, msg.Clue)
	case "reveal":
		return h.session.StartBuzzWindow()
	case "answer":
		return h.session.SubmitAnswer(msg.Text)
	case "judge":
		if msg.Correct == nil {
			return fmt.Errorf("%w: missing verdict", errBadMessage)
		}
		return h.session.JudgeAnswer(*msg.Correct)
	case "dd_wager":
		if msg.Amount == nil {
			return fmt.Errorf("%w: missing amount", errBadMessage)
		}
		return h.session.SetDailyDoubleWager(*msg.Amount)
	case "advance":
		return h.session.AdvanceRoundIfReady()
	case "end_round":
		return h.session.EndRound()
	case "final_wagers":
		return h.session.OpenFinalWagers()
	case "final_reveal":
		return h.session.RevealFinalClue()
	case "final_close":
		return h.session.CloseFinalResponses()
	case "judge_final":
		if msg.Correct == nil {
			return fmt.Errorf("%w: missing verdict", errBadMessage)
		}
		return h.session.JudgeFinal(msg.PlayerID, *msg.Correct)
	case "finalize":
		return h.session.FinalizeFinal()
	case "reset":
		return h.session.Reset()
	default:
		return fmt.Errorf("%w: unknown type %q", errBadMessage, msg.Type)
	}
}

// actingSeatLocked resolves which seat a command acts for: the host may act
// for any seat, everyone else only for the seat they claimed.
func (h *Hub) actingSeatLocked(c *Client, requested string, isHost bool) (string, error) {
	if isHost {
		if requested == "" {
			return "", fmt.Errorf("%w: missing player_id", errBadMessage)
		}
		return requested, nil
	}

	seat := h.seatOfLocked(c.playerID)
	if seat == "" {
		return "", errNotSeated
	}
	if requested != "" && requested != seat {
		return "", errSeatTaken
	}
	return seat, nil
}

func (h *Hub) claimLocked(c *Client, seat string, isHost bool) error {
	if isHost {
		return fmt.Errorf("%w: the host cannot take a seat", errSeatTaken)
	}

	valid := false
	for i := range trivia.PlayerCount {
		if trivia.PlayerID(i) == seat {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: no seat %q", errBadMessage, seat)
	}

	if owner, ok := h.seats[seat]; ok && owner != c.playerID {
		return errSeatTaken
	}

	if prev := h.seatOfLocked(c.playerID); prev != "" {
		delete(h.seats, prev)
	}
	h.seats[seat] = c.playerID

	return nil
}

// viewLocked is the state as a given cookie may see it. Final-round wagers
// and responses stay private to their owner and the host until judging.
func (h *Hub) viewLocked(playerID string) StateMessage {
	st := h.session.Snapshot()

	if playerID != h.hostPlayerID && st.Phase != trivia.PhaseFinalJudging && st.Phase != trivia.PhaseSummary {
		seat := h.seatOfLocked(playerID)
		wagers := make(map[string]int)
		responses := make(map[string]string)
		if w, ok := st.Final.Wagers[seat]; ok {
			wagers[seat] = w
		}
		if r, ok := st.Final.Responses[seat]; ok {
			responses[seat] = r
		}
		st.Final.Wagers = wagers
		st.Final.Responses = responses
	}

	seats := make(map[string]bool, trivia.PlayerCount)
	for i := range trivia.PlayerCount {
		_, taken := h.seats[trivia.PlayerID(i)]
		seats[trivia.PlayerID(i)] = taken
	}

	msg := StateMessage{
		Type:  "state",
		State: st,
		Seats: seats,
	}
	if limits, ok := h.session.DailyDoubleLimits(); ok && st.Phase == trivia.PhaseClueOpen {
		msg.DailyDoubleLimits = &limits
	}
	if st.Phase == trivia.PhaseSummary {
		msg.Standings = trivia.Standings(st.Players)
	}

	return msg
}

func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

func (h *Hub) sendStateLocked(c *Client) {
	h.sendLocked(c, h.viewLocked(c.playerID))
}

// broadcastStateLocked sends every client its own view of the game.
func (h *Hub) broadcastStateLocked() {
	for client := range h.clients {
		h.sendStateLocked(client)
	}
}

// closeAll disconnects all clients of this hub and stops its loop (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.dropLocked(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}

	close(h.quit)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "buzzboard_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated game.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	catalog     *trivia.Catalog
	metrics     *Metrics
	idleTimeout time.Duration
	tick        time.Duration
}

func newGameManager(cfg *Config, catalog *trivia.Catalog, m *Metrics) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		catalog:     catalog,
		metrics:     m,
		idleTimeout: cfg.sessionTimeout,
		tick:        time.Second,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	session, err := trivia.New(gm.catalog,
		trivia.WithBuzzSeconds(cfg.buzzSeconds),
		trivia.WithFinalSeconds(cfg.finalSeconds),
	)
	if err != nil {
		return nil, err
	}

	hub := newHub(gameID, session, gm.metrics, gm.tick)
	gm.hubs[gameID] = hub
	gm.metrics.gamesCreated.Inc()
	gm.metrics.gamesActive.Inc()
	go hub.run(cfg)

	logf(cfg, "GAMES: Opened game %s", gameID)

	return hub, nil
}

func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]
	return hub, ok
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		if _, exists := gm.lookup(id); !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			gm.metrics.gamesActive.Dec()
			go hub.closeAll()
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub, err := gm.getHub(cfg, gameID)
		if err != nil {
			http.Error(w, "unable to start game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
			limiter:  rate.NewLimiter(rate.Limit(cfg.messageRate), cfg.messageBurst),
		}

		select {
		case hub.register <- client:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(cfg, hub)
	}
}

func (c *Client) readPump(cfg *Config, h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.quit:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !c.limiter.Allow() {
			logf(cfg, "REJECT: Dropped %q from %s in %s (rate limited)", msg.Type, c.playerID, h.id)
			continue
		}

		select {
		case h.commands <- commandRequest{client: c, msg: msg}:
		case <-h.quit:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveState returns the public view of a game as JSON.
func serveState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		hub, ok := gm.lookup(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "no such game", http.StatusNotFound)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		hub.mu.RLock()
		view := hub.viewLocked(playerID)
		hub.mu.RUnlock()

		data, err := json.Marshal(view)
		if err != nil {
			http.Error(w, "unable to encode state", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: State of %s (%s) to %s in %s",
			hub.id,
			humanReadableSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		if _, err := gm.getHub(cfg, gameID); err != nil {
			http.Error(w, "unable to start game", http.StatusInternalServerError)
			return
		}
		_ = getOrSetPlayerID(w, r)

		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerTriviaGame sets up routes so that:
//   - $path                  → creates a new game (8-char ID) and redirects to it
//   - $path/:gameid          → JSON view of that game
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerTriviaGame(cfg *Config, path string, gm *GameManager, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", serveState(cfg, gm, errs))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
