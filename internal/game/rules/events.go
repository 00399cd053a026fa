package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a game event broadcast to clients.
type EventType string

const (
	EventGameStart      EventType = "GAME_START"
	EventGameEnd        EventType = "GAME_END"
	EventTurnStart      EventType = "TURN_START"
	EventTurnEnd        EventType = "TURN_END"
	EventPhaseChanged   EventType = "PHASE_CHANGED"
	EventDiceResult     EventType = "DICE_RESULT"
	EventPlayerMoved    EventType = "PLAYER_MOVED"
	EventPlayerJoined   EventType = "PLAYER_JOINED"
	EventPlayerLeft     EventType = "PLAYER_LEFT"
	EventPlayerBankrupt EventType = "PLAYER_BANKRUPT"
	EventPropertyChange EventType = "PROPERTY_CHANGED"
	EventTransaction    EventType = "TRANSACTION"
	EventAuctionStart   EventType = "AUCTION_START"
	EventAuctionUpdate  EventType = "AUCTION_UPDATE"
	EventAuctionEnd     EventType = "AUCTION_END"
	EventTradeProposed  EventType = "TRADE_PROPOSED"
	EventTradeResolved  EventType = "TRADE_RESOLVED"
	EventCardDrawn      EventType = "CARD_DRAWN"
	EventDebtIncurred   EventType = "DEBT_INCURRED"
	EventStateUpdate    EventType = "STATE_UPDATE"
	EventLog            EventType = "EVENT_LOG"
	EventError          EventType = "ERROR"
)

// Event is a single entry of the ordered stream the server broadcasts. Seq is
// assigned by the engine loop; events with the same GameID are totally ordered.
type Event struct {
	Type      EventType      `json:"type"`
	Seq       uint64         `json:"seq"`
	GameID    string         `json:"gameId,omitempty"`
	PlayerID  string         `json:"playerId,omitempty"`
	TargetID  string         `json:"targetId,omitempty"`
	Amount    int            `json:"amount,omitempty"`
	Flag      bool           `json:"flag,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Listener is a callback that reacts to published events.
type Listener func(Event)

type typedListener struct {
	handle   int
	callback func(Event)
}

// EventBus is a synchronous publish/subscribe fan-out with optional type
// filtering. Publishing happens on the engine goroutine; listeners must not
// block on I/O.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]typedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]typedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a single event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], typedListener{
		handle:   handle,
		callback: callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the handle, typed or not.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	if typed, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typed {
			listener.callback(event)
		}
	}
}

// NewEvent creates an event with the common fields populated.
func NewEvent(eventType EventType, gameID, playerID string) Event {
	return Event{
		Type:      eventType,
		GameID:    gameID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
	}
}
