package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openmonopoly/monopoly-server-go/internal/config"
	"github.com/openmonopoly/monopoly-server-go/internal/game/history"
	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
)

const commandBuffer = 64

// Table runs one game. All state behind it is owned by a single goroutine;
// the rest of the process talks to the table only through Submit and the
// event bus, so no handler ever needs a lock.
type Table struct {
	log      *zap.Logger
	cfg      config.GameConfig
	state    *GameState
	ledger   *Ledger
	hist     *history.Manager
	bus      *rules.EventBus
	roller   rules.Roller
	recorder *Recorder

	cmds chan Command
	quit chan struct{}
	wg   sync.WaitGroup

	hostID      string
	started     bool
	turnAborted bool
}

// NewTable builds an empty table. Call Run to start consuming commands, or
// drive handleCommand directly from a test.
func NewTable(id string, cfg config.GameConfig, histCapacity int, logger *zap.Logger) *Table {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	state := NewGameState(id, seed)
	hist := history.NewManager(histCapacity)
	t := &Table{
		log:    logger,
		cfg:    cfg,
		state:  state,
		hist:   hist,
		bus:    rules.NewEventBus(),
		roller: rules.NewRoller(seed),
		cmds:   make(chan Command, commandBuffer),
		quit:   make(chan struct{}),
	}
	t.ledger = NewLedger(state, hist, logger)
	return t
}

// ID returns the game id.
func (t *Table) ID() string {
	return t.state.ID
}

// Bus exposes the table's event stream for subscribers.
func (t *Table) Bus() *rules.EventBus {
	return t.bus
}

// SetRoller swaps the dice source. Must be called before Run.
func (t *Table) SetRoller(r rules.Roller) {
	t.roller = r
}

// SetRecorder attaches a replay recorder. Must be called before Run.
func (t *Table) SetRecorder(rec *Recorder) {
	t.recorder = rec
}

// Run starts the table goroutine. It returns immediately; Close stops it.
func (t *Table) Run() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case cmd := <-t.cmds:
				t.handleCommand(cmd)
			case <-t.quit:
				return
			}
		}
	}()
}

// Submit queues a command for the table goroutine. It reports false when the
// table is shutting down or saturated; the connection layer surfaces that to
// the client as a retryable error.
func (t *Table) Submit(cmd Command) bool {
	select {
	case <-t.quit:
		return false
	default:
	}
	select {
	case t.cmds <- cmd:
		return true
	case <-t.quit:
		return false
	}
}

// Close stops the table goroutine and flushes the replay, if any.
func (t *Table) Close() {
	close(t.quit)
	t.wg.Wait()
	if t.recorder != nil {
		if err := t.recorder.Flush(); err != nil {
			t.log.Warn("replay flush failed",
				zap.String("game_id", t.state.ID), zap.Error(err))
		}
	}
}

// --- lobby ---

// handleHello seats a new player, or reconnects a known one. The first seat
// becomes host and is the only one allowed to start the game.
func (t *Table) handleHello(cmd Command) error {
	if p := t.state.PlayerByID(cmd.PlayerID); p != nil {
		// Reconnect: the seat survives disconnects, it was only
		// auto-passed while empty.
		p.Connected = true
		t.state.nextSeq()
		ev := rules.NewEvent(rules.EventPlayerJoined, t.state.ID, p.ID)
		ev.Message = p.Name
		ev.Flag = true // reconnect
		t.emit(ev)
		t.broadcastState()
		return nil
	}

	if t.started {
		return ErrAlreadyStarted
	}
	if len(t.state.Players) >= t.cfg.MaxPlayers {
		return ErrTableFull
	}

	name := cmd.Name
	if name == "" {
		name = fmt.Sprintf("Player %d", len(t.state.Players)+1)
	}
	p := NewPlayer(cmd.PlayerID, name, t.cfg.StartingMoney)
	t.state.Players = append(t.state.Players, p)
	if t.hostID == "" {
		t.hostID = p.ID
	}
	t.state.nextSeq()

	t.log.Info("player joined",
		zap.String("game_id", t.state.ID),
		zap.String("player_id", p.ID),
		zap.String("name", p.Name),
	)
	ev := rules.NewEvent(rules.EventPlayerJoined, t.state.ID, p.ID)
	ev.Message = p.Name
	t.emit(ev)
	return nil
}

// handleStart seals the table and deals the first turn.
func (t *Table) handleStart(cmd Command) error {
	if t.started {
		return ErrAlreadyStarted
	}
	if cmd.PlayerID != t.hostID {
		return fmt.Errorf("%w: only the host can start the game", ErrNotYourTurn)
	}
	if len(t.state.Players) < t.cfg.MinPlayers {
		return fmt.Errorf("%w: need at least %d players", ErrNotStarted, t.cfg.MinPlayers)
	}

	t.started = true
	t.state.TurnNumber = 1
	t.log.Info("game started",
		zap.String("game_id", t.state.ID),
		zap.Int("players", len(t.state.Players)),
	)
	ev := rules.NewEvent(rules.EventGameStart, t.state.ID, "")
	ev.Amount = len(t.state.Players)
	t.emit(ev)
	t.beginTurn()
	return nil
}

// broadcastState publishes a full view of the game. Clients that missed or
// reordered incremental events resynchronize from the latest one they see.
func (t *Table) broadcastState() {
	ev := rules.NewEvent(rules.EventStateUpdate, t.state.ID, "")
	ev.Payload = map[string]any{"game": NewGameView(t.state)}
	t.emit(ev)
	if t.recorder != nil {
		t.recorder.RecordState(t.state.Snapshot())
	}
}

// Engine owns every live table. It is the only concurrent part of the game
// layer: table lookup takes the engine lock, everything past Submit does not.
type Engine struct {
	log *zap.Logger
	cfg *config.Config

	mu     sync.RWMutex
	tables map[string]*Table
}

// NewEngine creates an engine with no tables.
func NewEngine(cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		log:    logger,
		cfg:    cfg,
		tables: make(map[string]*Table),
	}
}

// CreateTable makes a new game and starts its goroutine.
func (e *Engine) CreateTable() *Table {
	id := uuid.NewString()
	t := NewTable(id, e.cfg.Game, e.cfg.History.Capacity, e.log)
	if e.cfg.Replay.Enabled {
		t.SetRecorder(NewRecorder(id, e.cfg.Replay.Dir, e.log))
	}

	e.mu.Lock()
	e.tables[id] = t
	e.mu.Unlock()

	t.Run()
	e.log.Info("table created", zap.String("game_id", id))
	return t
}

// Table returns the live table or nil.
func (e *Engine) Table(id string) *Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tables[id]
}

// Tables returns a snapshot of the live tables.
func (e *Engine) Tables() []*Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Table, 0, len(e.tables))
	for _, t := range e.tables {
		out = append(out, t)
	}
	return out
}

// Submit routes a command to its table.
func (e *Engine) Submit(gameID string, cmd Command) error {
	t := e.Table(gameID)
	if t == nil {
		return fmt.Errorf("no such game %q", gameID)
	}
	if !t.Submit(cmd) {
		return fmt.Errorf("game %q is not accepting commands", gameID)
	}
	return nil
}

// CloseTable stops a table and forgets it.
func (e *Engine) CloseTable(id string) {
	e.mu.Lock()
	t := e.tables[id]
	delete(e.tables, id)
	e.mu.Unlock()
	if t != nil {
		t.Close()
	}
}

// Shutdown stops every table.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	tables := e.tables
	e.tables = make(map[string]*Table)
	e.mu.Unlock()
	for _, t := range tables {
		t.Close()
	}
}
