package rules

import "testing"

func TestEventBusSubscribePublish(t *testing.T) {
	bus := NewEventBus()

	var received []Event
	bus.Subscribe(func(ev Event) {
		received = append(received, ev)
	})

	bus.Publish(NewEvent(EventDiceResult, "g1", "p1"))
	bus.Publish(NewEvent(EventPlayerMoved, "g1", "p1"))

	if len(received) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(received))
	}
	if received[0].Type != EventDiceResult || received[1].Type != EventPlayerMoved {
		t.Errorf("Events delivered out of order: %s, %s", received[0].Type, received[1].Type)
	}
}

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	var dice int
	bus.SubscribeTyped(EventDiceResult, func(ev Event) {
		dice++
	})

	bus.Publish(NewEvent(EventDiceResult, "g1", "p1"))
	bus.Publish(NewEvent(EventPlayerMoved, "g1", "p1"))
	bus.Publish(NewEvent(EventDiceResult, "g1", "p2"))

	if dice != 2 {
		t.Errorf("Expected 2 typed deliveries, got %d", dice)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	count := 0
	handle := bus.Subscribe(func(ev Event) { count++ })
	typedHandle := bus.SubscribeTyped(EventLog, func(ev Event) { count++ })

	bus.Publish(NewEvent(EventLog, "g1", ""))
	if count != 2 {
		t.Fatalf("Expected 2 deliveries before unsubscribe, got %d", count)
	}

	bus.Unsubscribe(handle)
	bus.Unsubscribe(typedHandle)
	bus.Publish(NewEvent(EventLog, "g1", ""))
	if count != 2 {
		t.Errorf("Expected no deliveries after unsubscribe, got %d", count-2)
	}
}

func TestEventBusNilListener(t *testing.T) {
	bus := NewEventBus()
	if handle := bus.Subscribe(nil); handle != -1 {
		t.Errorf("Expected -1 handle for nil listener, got %d", handle)
	}
	if handle := bus.SubscribeTyped(EventLog, nil); handle != -1 {
		t.Errorf("Expected -1 handle for nil typed listener, got %d", handle)
	}
}
