package table

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"settlers-lite/apps/server/internal/codec"
	"settlers-lite/apps/server/internal/ledger"
	"settlers-lite/board"
	"settlers-lite/replay"
	"settlers-lite/settlers"
	"settlers-lite/settlers/npc"
)

var (
	ErrTableClosed     = errors.New("table closed")
	ErrNotJoined       = errors.New("not at this table")
	ErrNotSeated       = errors.New("not seated")
	ErrAlreadySeated   = errors.New("already seated")
	ErrTableFull       = errors.New("table is full")
	ErrMatchInProgress = errors.New("match in progress")
	ErrNoMatch         = errors.New("no match in progress")
	ErrNoBots          = errors.New("bots are not available")
)

var seatColors = []string{"red", "blue", "white", "orange", "green", "brown"}

const tickInterval = 500 * time.Millisecond

// TableConfig holds per-table settings. Rules.MinPlayers and Rules.MaxPlayers
// bound the number of seats.
type TableConfig struct {
	Rules      settlers.Config
	Layout     board.Layout
	JournalDir string
	// AutoStart begins a match as soon as every seat is taken.
	AutoStart bool
}

// EventType is an actor input.
type EventType int

const (
	EventJoinTable EventType = iota + 1
	EventLeaveTable
	EventSitDown
	EventStandUp
	EventAddBot
	EventStart
	EventAction
	EventConnLost
	EventConnResume
)

// Event is processed by the table actor one at a time.
type Event struct {
	Type      EventType
	UserID    uint64
	Nickname  string
	Persona   string
	Action    *settlers.ActionEnvelope
	Timestamp time.Time
	Response  chan error
}

// PlayerConn is a connected user, seated or watching.
type PlayerConn struct {
	UserID   uint64
	Nickname string
	Online   bool
	LastSeen time.Time
}

type seat struct {
	PlayerID settlers.PlayerID
	Name     string
	Color    string
	Robot    bool
}

// MatchEndHook runs after a match is recorded.
type MatchEndHook func(rec ledger.MatchRecord)

// BroadcastFunc delivers an envelope to one user. It must not block.
type BroadcastFunc func(userID uint64, env *codec.ServerEnvelope)

type Option func(*Table)

func WithLedger(s ledger.Service) Option { return func(t *Table) { t.ledger = s } }

func WithNPCManager(m *npc.Manager) Option { return func(t *Table) { t.npcManager = m } }

// Table is an actor hosting consecutive matches for one group of seats.
type Table struct {
	ID     string
	Config TableConfig

	mu         sync.RWMutex
	players    map[uint64]*PlayerConn
	seats      []*seat
	emptySince time.Time
	closed     bool

	game      *settlers.Game
	recorder  *replay.Recorder
	matchID   string
	startedAt time.Time
	running   bool
	matches   int
	cancel    context.CancelFunc

	npcManager *npc.Manager
	ledger     ledger.Service
	broadcast  BroadcastFunc
	hooks      []MatchEndHook
	serverSeq  atomic.Uint64

	events     chan Event
	gameEvents chan settlers.Event
	finished   chan matchResult
	done       chan struct{}
	stopOnce   sync.Once
}

type matchResult struct {
	game *settlers.Game
	err  error
}

func New(id string, cfg TableConfig, broadcast BroadcastFunc, opts ...Option) (*Table, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("table %s rules: %w", id, err)
	}
	if len(cfg.Layout.Tiles) == 0 {
		cfg.Layout = board.StandardLayout()
	}
	if broadcast == nil {
		broadcast = func(uint64, *codec.ServerEnvelope) {}
	}
	t := &Table{
		ID:         id,
		Config:     cfg,
		players:    make(map[uint64]*PlayerConn),
		broadcast:  broadcast,
		ledger:     ledger.NewMemoryService(0),
		events:     make(chan Event, 64),
		gameEvents: make(chan settlers.Event, 1024),
		finished:   make(chan matchResult, 1),
		done:       make(chan struct{}),
		emptySince: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.run()
	return t, nil
}

func (t *Table) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case e := <-t.events:
			e.Response <- t.handleEvent(e)
		case ge := <-t.gameEvents:
			t.handleGameEvent(ge)
		case res := <-t.finished:
			t.handleMatchEnd(res)
		case now := <-ticker.C:
			t.tick(now)
		case <-t.done:
			return
		}
	}
}

func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case EventJoinTable:
		return t.handleJoin(e.UserID, e.Nickname, e.Timestamp)
	case EventLeaveTable:
		return t.handleLeave(e.UserID)
	case EventSitDown:
		return t.handleSitDown(e.UserID)
	case EventStandUp:
		return t.handleStandUp(e.UserID)
	case EventAddBot:
		return t.handleAddBot(e.UserID, e.Persona)
	case EventStart:
		return t.handleStart(e.UserID)
	case EventAction:
		return t.handleAction(e.UserID, e.Action)
	case EventConnLost:
		return t.handleConnLost(e.UserID, e.Timestamp)
	case EventConnResume:
		return t.handleConnResume(e.UserID, e.Nickname, e.Timestamp)
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) handleJoin(userID uint64, nickname string, ts time.Time) error {
	p := t.players[userID]
	if p == nil {
		p = &PlayerConn{UserID: userID}
		t.players[userID] = p
		log.Printf("[Table %s] User %d joined", t.ID, userID)
	}
	p.Nickname = normalizeNickname(nickname, userID)
	p.Online = true
	p.LastSeen = ts
	t.updateEmptySinceLocked(ts)
	t.sendSeatsLocked(userID)
	t.sendSnapshotLocked(userID)
	t.sendPromptLocked(userID)
	return nil
}

func (t *Table) handleLeave(userID uint64) error {
	if t.players[userID] == nil {
		return nil
	}
	if i := t.seatIndexLocked(settlers.PlayerID(userID)); i >= 0 && !t.running {
		t.removeSeatLocked(i)
	}
	delete(t.players, userID)
	t.updateEmptySinceLocked(time.Now())
	log.Printf("[Table %s] User %d left", t.ID, userID)
	return nil
}

func (t *Table) handleSitDown(userID uint64) error {
	p := t.players[userID]
	if p == nil {
		return ErrNotJoined
	}
	if t.running {
		return ErrMatchInProgress
	}
	if t.seatIndexLocked(settlers.PlayerID(userID)) >= 0 {
		return ErrAlreadySeated
	}
	if len(t.seats) >= t.Config.Rules.MaxPlayers {
		return ErrTableFull
	}
	s := &seat{PlayerID: settlers.PlayerID(userID), Name: p.Nickname, Color: t.pickColorLocked("")}
	t.seats = append(t.seats, s)
	log.Printf("[Table %s] User %d sat down (%s)", t.ID, userID, s.Color)
	t.broadcastSeatsLocked()
	return nil
}

func (t *Table) handleStandUp(userID uint64) error {
	i := t.seatIndexLocked(settlers.PlayerID(userID))
	if i < 0 {
		return ErrNotSeated
	}
	if t.running {
		return ErrMatchInProgress
	}
	t.removeSeatLocked(i)
	log.Printf("[Table %s] User %d stood up", t.ID, userID)
	t.broadcastSeatsLocked()
	return nil
}

func (t *Table) handleAddBot(userID uint64, personaID string) error {
	if t.players[userID] == nil {
		return ErrNotJoined
	}
	if t.npcManager == nil {
		return ErrNoBots
	}
	if t.running {
		return ErrMatchInProgress
	}
	if len(t.seats) >= t.Config.Rules.MaxPlayers {
		return ErrTableFull
	}
	var persona *npc.NPCPersona
	if personaID = strings.TrimSpace(personaID); personaID != "" {
		persona = t.npcManager.Registry().Get(personaID)
		if persona == nil {
			return fmt.Errorf("unknown persona %q", personaID)
		}
	} else {
		taken := make([]string, 0, len(t.seats))
		for _, s := range t.seats {
			taken = append(taken, s.Color)
		}
		persona = t.npcManager.RandomPersona(taken...)
		if persona == nil {
			return ErrNoBots
		}
	}
	inst, p := t.npcManager.SpawnNPC(persona)
	t.seats = append(t.seats, &seat{
		PlayerID: inst.PlayerID,
		Name:     p.Name,
		Color:    t.pickColorLocked(p.Color),
		Robot:    true,
	})
	log.Printf("[Table %s] NPC %s seated by user %d", t.ID, persona.Name, userID)
	t.broadcastSeatsLocked()
	return nil
}

func (t *Table) handleStart(userID uint64) error {
	if t.players[userID] == nil {
		return ErrNotJoined
	}
	return t.startMatchLocked()
}

func (t *Table) handleAction(userID uint64, env *settlers.ActionEnvelope) error {
	if !t.running || t.game == nil {
		return ErrNoMatch
	}
	if env == nil {
		return fmt.Errorf("%w: empty action", settlers.ErrProtocolViolation)
	}
	gate := t.game.Gate(settlers.PlayerID(userID))
	if gate == nil {
		return ErrNotSeated
	}
	a, err := settlers.DecodeAction(*env)
	if err != nil {
		return err
	}
	return gate.Submit(a)
}

func (t *Table) handleConnLost(userID uint64, ts time.Time) error {
	p := t.players[userID]
	if p == nil {
		return nil
	}
	p.Online = false
	p.LastSeen = ts
	log.Printf("[Table %s] User %d connection lost", t.ID, userID)
	return nil
}

func (t *Table) handleConnResume(userID uint64, nickname string, ts time.Time) error {
	p := t.players[userID]
	if p == nil {
		return nil
	}
	p.Nickname = normalizeNickname(nickname, userID)
	p.Online = true
	p.LastSeen = ts
	t.sendSeatsLocked(userID)
	t.sendSnapshotLocked(userID)
	t.sendPromptLocked(userID)
	log.Printf("[Table %s] User %d connection resumed", t.ID, userID)
	return nil
}

func (t *Table) startMatchLocked() error {
	if t.closed {
		return ErrTableClosed
	}
	if t.running {
		return ErrMatchInProgress
	}
	rules := t.Config.Rules
	if len(t.seats) < rules.MinPlayers {
		return fmt.Errorf("need at least %d players, have %d", rules.MinPlayers, len(t.seats))
	}
	b, err := board.New(t.Config.Layout)
	if err != nil {
		return err
	}
	// Fresh players every match; seats only carry identity.
	players := make([]*settlers.Player, 0, len(t.seats))
	for _, s := range t.seats {
		players = append(players, settlers.NewPlayer(s.PlayerID, s.Name, s.Color, s.Robot))
	}
	// consecutive matches on a seeded table must not repeat the same dice
	if rules.Seed != 0 {
		rules.Seed += int64(t.matches)
	}
	g, err := settlers.NewGame(rules, b, players)
	if err != nil {
		return err
	}

	t.game = g
	t.recorder = replay.NewRecorder(g, t.Config.Layout)
	t.matchID = uuid.NewString()
	t.matches++
	t.startedAt = time.Now()
	t.running = true
	g.Subscribe(t.onGameEvent)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	for _, s := range t.seats {
		id := s.PlayerID
		if s.Robot && t.npcManager != nil && t.npcManager.IsNPC(id) {
			go func() {
				if err := t.npcManager.Drive(ctx, g, id); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("[Table %s] NPC %d stopped: %v", t.ID, id, err)
				}
			}()
			continue
		}
		go t.pumpPrompts(ctx, g, id)
	}
	go func() {
		err := g.Run(ctx)
		t.finished <- matchResult{game: g, err: err}
	}()

	log.Printf("[Table %s] Match %s started - seats=%d seed=%d", t.ID, t.matchID, len(t.seats), g.Config().Seed)
	t.broadcastSeatsLocked()
	return nil
}

// pumpPrompts forwards every prompt change of a human seat to that user.
func (t *Table) pumpPrompts(ctx context.Context, g *settlers.Game, id settlers.PlayerID) {
	gate := g.Gate(id)
	var seq uint64
	for {
		p, err := gate.NextPrompt(ctx, seq)
		if err != nil {
			return
		}
		seq = p.Seq
		t.send(uint64(id), codec.TypePrompt, codec.PromptToView(p))
	}
}

// onGameEvent runs on the orchestrator goroutine and must not block.
func (t *Table) onGameEvent(e settlers.Event) {
	select {
	case t.gameEvents <- e:
	default:
		log.Printf("[Table %s] event queue full, dropped %s", t.ID, e.Kind)
	}
}

func (t *Table) handleGameEvent(e settlers.Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	view := codec.EventToView(e)
	for id, p := range t.players {
		if p.Online {
			t.send(id, codec.TypeEvent, view)
		}
	}
	switch e.Kind {
	case settlers.EventActionApplied, settlers.EventResourcesProduced, settlers.EventRoundAdvanced,
		settlers.EventTradeResolved, settlers.EventGameEnded:
		for id, p := range t.players {
			if p.Online {
				t.sendSnapshotLocked(id)
			}
		}
	}
}

func (t *Table) handleMatchEnd(res matchResult) {
	// deliver everything the match published before its result
drain:
	for {
		select {
		case ge := <-t.gameEvents:
			t.handleGameEvent(ge)
		default:
			break drain
		}
	}

	t.mu.Lock()
	if res.game != t.game {
		t.mu.Unlock()
		return
	}
	rec := t.buildRecordLocked(res)
	tape := t.recorder.Tape()
	t.running = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	hooks := append([]MatchEndHook(nil), t.hooks...)
	t.mu.Unlock()

	if res.err != nil {
		log.Printf("[Table %s] Match %s aborted: %v", t.ID, rec.ID, res.err)
	} else {
		log.Printf("[Table %s] Match %s won by %d after %d rounds", t.ID, rec.ID, rec.Winner, rec.Rounds)
	}

	if dir := strings.TrimSpace(t.Config.JournalDir); dir != "" {
		path := filepath.Join(dir, rec.ID+".jsonl.zst")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[Table %s] journal dir: %v", t.ID, err)
		} else if err := replay.SaveFile(path, tape); err != nil {
			log.Printf("[Table %s] journal write failed: %v", t.ID, err)
		} else {
			rec.Journal = path
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := t.ledger.RecordMatch(ctx, rec); err != nil {
		log.Printf("[Table %s] ledger record failed: %v", t.ID, err)
	}
	cancel()

	end := codec.MatchEndView{
		MatchID: rec.ID,
		Outcome: string(rec.Outcome),
		Winner:  rec.Winner,
		Winners: rec.Winners,
		Rounds:  rec.Rounds,
	}
	for _, p := range rec.Players {
		end.Scores = append(end.Scores, codec.ScoreView{PlayerID: p.ID, Score: p.Score})
	}
	t.mu.RLock()
	for id := range t.players {
		t.send(id, codec.TypeMatchEnd, end)
	}
	t.broadcastSeatsLocked()
	t.mu.RUnlock()

	t.dispatchMatchEndHooks(hooks, rec)
}

func (t *Table) buildRecordLocked(res matchResult) ledger.MatchRecord {
	g := res.game
	snap := g.Snapshot()
	rec := ledger.MatchRecord{
		ID:        t.matchID,
		TableID:   t.ID,
		Seed:      g.Config().Seed,
		StartedAt: t.startedAt,
		EndedAt:   time.Now(),
		Outcome:   ledger.OutcomeAborted,
		Rounds:    snap.Round,
		Steps:     len(t.recorder.Tape().Steps),
	}
	if w, ok := g.Winner(); ok && res.err == nil {
		rec.Outcome = ledger.OutcomeWon
		rec.Winner = uint64(w)
		for _, id := range snap.Winners {
			rec.Winners = append(rec.Winners, uint64(id))
		}
	}
	for _, p := range snap.Players {
		rec.Players = append(rec.Players, ledger.PlayerResult{
			ID:    uint64(p.ID),
			Name:  p.Name,
			Color: p.Color,
			Robot: p.Robot,
			Score: p.Score,
		})
	}
	return rec
}

func (t *Table) dispatchMatchEndHooks(hooks []MatchEndHook, rec ledger.MatchRecord) {
	for _, hook := range hooks {
		h := hook
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Table %s] match end hook panic: %v", t.ID, r)
				}
			}()
			h(rec)
		}()
	}
}

func (t *Table) tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateEmptySinceLocked(now)
	if t.Config.AutoStart && !t.running && !t.closed && len(t.seats) == t.Config.Rules.MaxPlayers {
		if err := t.startMatchLocked(); err != nil {
			log.Printf("[Table %s] auto start failed: %v", t.ID, err)
		}
	}
}

// SubmitEvent sends an event to the actor and waits for it to be handled.
func (t *Table) SubmitEvent(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}
	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

// Stop aborts any running match and shuts down the actor.
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.stopOnce.Do(func() { close(t.done) })
}

// AddMatchEndHook registers a callback fired after each match is recorded.
func (t *Table) AddMatchEndHook(hook MatchEndHook) {
	if hook == nil {
		return
	}
	t.mu.Lock()
	t.hooks = append(t.hooks, hook)
	t.mu.Unlock()
}

func (t *Table) IsIdleFor(ttl time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return true
	}
	if len(t.players) > 0 || t.emptySince.IsZero() {
		return false
	}
	return time.Since(t.emptySince) >= ttl
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Info summarizes the table for lobby listings.
func (t *Table) Info() codec.TableInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return codec.TableInfo{
		ID:      t.ID,
		Seated:  len(t.seats),
		Max:     t.Config.Rules.MaxPlayers,
		Started: t.running,
	}
}

// HasOpenSeat reports whether a user could sit down right now.
func (t *Table) HasOpenSeat() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.closed && !t.running && len(t.seats) < t.Config.Rules.MaxPlayers
}

// Snapshot returns the current (or last) match state; ok is false before the first match.
func (t *Table) Snapshot() (settlers.Snapshot, bool) {
	t.mu.RLock()
	g := t.game
	t.mu.RUnlock()
	if g == nil {
		return settlers.Snapshot{}, false
	}
	return g.Snapshot(), true
}

// --- helpers (caller holds t.mu) ---

func (t *Table) send(userID uint64, typ string, payload any) {
	t.broadcast(userID, codec.Wrap(t.ID, t.serverSeq.Add(1), typ, payload))
}

func (t *Table) seatsViewLocked() codec.SeatsView {
	v := codec.SeatsView{
		MinPlayers: t.Config.Rules.MinPlayers,
		MaxPlayers: t.Config.Rules.MaxPlayers,
		Started:    t.running,
		Seats:      make([]codec.SeatView, 0, len(t.seats)),
	}
	for _, s := range t.seats {
		online := s.Robot
		if p := t.players[uint64(s.PlayerID)]; p != nil {
			online = p.Online
		}
		v.Seats = append(v.Seats, codec.SeatView{
			PlayerID: uint64(s.PlayerID),
			Name:     s.Name,
			Color:    s.Color,
			Robot:    s.Robot,
			Online:   online,
		})
	}
	return v
}

func (t *Table) sendSeatsLocked(userID uint64) {
	t.send(userID, codec.TypeSeats, t.seatsViewLocked())
}

func (t *Table) broadcastSeatsLocked() {
	v := t.seatsViewLocked()
	for id, p := range t.players {
		if p.Online {
			t.send(id, codec.TypeSeats, v)
		}
	}
}

func (t *Table) sendSnapshotLocked(userID uint64) {
	if t.game == nil {
		return
	}
	t.send(userID, codec.TypeSnapshot, codec.SnapshotToView(t.game.Snapshot(), settlers.PlayerID(userID)))
}

func (t *Table) sendPromptLocked(userID uint64) {
	if !t.running || t.game == nil {
		return
	}
	gate := t.game.Gate(settlers.PlayerID(userID))
	if gate == nil {
		return
	}
	if p := gate.Prompt(); p.Objective != settlers.ObjectiveIdle {
		t.send(userID, codec.TypePrompt, codec.PromptToView(p))
	}
}

func (t *Table) seatIndexLocked(id settlers.PlayerID) int {
	for i, s := range t.seats {
		if s.PlayerID == id {
			return i
		}
	}
	return -1
}

func (t *Table) removeSeatLocked(i int) {
	s := t.seats[i]
	t.seats = append(t.seats[:i], t.seats[i+1:]...)
	if s.Robot && t.npcManager != nil {
		t.npcManager.DespawnNPC(s.PlayerID)
	}
}

// pickColorLocked returns want when free, otherwise the first free palette color.
func (t *Table) pickColorLocked(want string) string {
	used := make(map[string]bool, len(t.seats))
	for _, s := range t.seats {
		used[s.Color] = true
	}
	if want != "" && !used[want] {
		return want
	}
	for _, c := range seatColors {
		if !used[c] {
			return c
		}
	}
	return fmt.Sprintf("color_%d", len(t.seats)+1)
}

func (t *Table) updateEmptySinceLocked(now time.Time) {
	if len(t.players) == 0 {
		if t.emptySince.IsZero() {
			t.emptySince = now
		}
		return
	}
	t.emptySince = time.Time{}
}

func normalizeNickname(raw string, userID uint64) string {
	nickname := strings.TrimSpace(raw)
	if nickname == "" {
		return fmt.Sprintf("user_%d", userID)
	}
	return nickname
}
