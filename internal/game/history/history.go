// Package history implements the bounded undo/redo stacks fed by the
// transaction layer. Each recorded action carries snapshots of exactly the
// entities the triggering transaction touched, captured as restore closures;
// the manager itself knows nothing about the entity model.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNothingToUndo is returned when the undo stack is empty.
	ErrNothingToUndo = errors.New("history: nothing to undo")
	// ErrNothingToRedo is returned when the redo stack is empty.
	ErrNothingToRedo = errors.New("history: nothing to redo")
	// ErrActionNotReversible is returned when undo reaches an action that
	// was recorded as irreversible (bankruptcy, most card effects).
	ErrActionNotReversible = errors.New("history: action not reversible")
)

// Action is one undoable unit. Before restores the touched entities to their
// pre-transaction state, After to the post-transaction state.
type Action struct {
	ID          uuid.UUID
	Type        string
	PlayerID    string
	Description string
	Reversible  bool
	Timestamp   time.Time
	Before      func()
	After       func()
}

// Manager holds two bounded stacks. When the undo stack overflows, the
// oldest action is dropped; history older than the capacity is simply gone.
type Manager struct {
	mu       sync.Mutex
	capacity int
	undo     []Action
	redo     []Action
}

// NewManager creates a history manager with the given stack capacity.
// Capacities below 1 are clamped to 1.
func NewManager(capacity int) *Manager {
	if capacity < 1 {
		capacity = 1
	}
	return &Manager{capacity: capacity}
}

// Record pushes an action onto the undo stack and clears the redo stack.
// Recording always invalidates old futures, reversible or not.
func (m *Manager) Record(action Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = time.Now()
	}

	m.undo = append(m.undo, action)
	if len(m.undo) > m.capacity {
		m.undo = m.undo[len(m.undo)-m.capacity:]
	}
	m.redo = m.redo[:0]
}

// Undo pops the most recent action, restores its before-state and pushes it
// onto the redo stack. Irreversible actions stay on the undo stack and the
// call fails with ErrActionNotReversible.
func (m *Manager) Undo() (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undo) == 0 {
		return Action{}, ErrNothingToUndo
	}
	action := m.undo[len(m.undo)-1]
	if !action.Reversible {
		return Action{}, ErrActionNotReversible
	}
	m.undo = m.undo[:len(m.undo)-1]

	if action.Before != nil {
		action.Before()
	}
	m.redo = append(m.redo, action)
	if len(m.redo) > m.capacity {
		m.redo = m.redo[len(m.redo)-m.capacity:]
	}
	return action, nil
}

// Redo is the mirror of Undo.
func (m *Manager) Redo() (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return Action{}, ErrNothingToRedo
	}
	action := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	if action.After != nil {
		action.After()
	}
	m.undo = append(m.undo, action)
	return action, nil
}

// UndoDepth returns the number of actions available to undo.
func (m *Manager) UndoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo)
}

// RedoDepth returns the number of actions available to redo.
func (m *Manager) RedoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo)
}

// Clear drops both stacks. Used when a sub-protocol resolves in a way that
// makes earlier per-step snapshots unsound to replay.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = m.undo[:0]
	m.redo = m.redo[:0]
}
