package combat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a combat event.
type EventType string

const (
	EventFightStarted     EventType = "FIGHT_STARTED"
	EventRoundStarted     EventType = "ROUND_STARTED"
	EventRoundChanged     EventType = "ROUND_CHANGED"
	EventTurnChanged      EventType = "TURN_CHANGED"
	EventCardPlayed       EventType = "CARD_PLAYED"
	EventCardDrawn        EventType = "CARD_DRAWN"
	EventZoneChanged      EventType = "ZONE_CHANGED"
	EventHealthChanged    EventType = "HEALTH_CHANGED"
	EventEnergyChanged    EventType = "ENERGY_CHANGED"
	EventStatusApplied    EventType = "STATUS_APPLIED"
	EventCommandRejected  EventType = "COMMAND_REJECTED"
	EventFightConcluded   EventType = "FIGHT_CONCLUDED"
	EventIntegrityFailure EventType = "INTEGRITY_FAILURE"
)

// Event is a state change other subsystems may react to. Presentation and
// logging consume events; they never read live fight structures.
type Event struct {
	Type        EventType
	ID          string    // unique event id
	FightID     string    // fight the event belongs to
	ActorID     string    // combatant that caused the event, if any
	TargetID    string    // combatant the event applies to, if any
	CardID      string    // card involved, if any
	Zone        ZoneKind  // zone involved for zone events
	Amount      int       // numeric payload (damage, heal, draw count, round)
	Winner      Side      // winning side for FIGHT_CONCLUDED
	Reason      string    // rejection reason or integrity detail
	Timestamp   time.Time // when the event occurred
	Description string    // human-readable summary
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType, fightID string) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.New().String(),
		FightID:   fightID,
		Timestamp: time.Now(),
	}
}

// Listener is a callback that reacts to every published event.
type Listener func(Event)

type typedListener struct {
	handle   int
	callback func(Event)
}

// EventBus is a synchronous publish/subscribe hub with optional per-type
// filtering. Publish invokes listeners inline, on the publisher's goroutine,
// so listeners must not block; anything slow (network writes) belongs behind
// a channel on the listener's side.
type EventBus struct {
	mu             sync.RWMutex
	nextHandle     int
	listeners      map[int]Listener
	typedListeners map[EventType][]typedListener
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]typedListener),
	}
}

// Subscribe registers a listener for all events and returns an unsubscribe
// handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.nextHandle++
	bus.listeners[bus.nextHandle] = listener
	return bus.nextHandle
}

// SubscribeTyped registers a listener for one event type only.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], typedListener{
		handle:   bus.nextHandle,
		callback: callback,
	})
	return bus.nextHandle
}

// Unsubscribe removes a listener registered through Subscribe or
// SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i, l := range listeners {
			if l.handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers an event to every matching listener.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	all := make([]Listener, 0, len(bus.listeners))
	for _, listener := range bus.listeners {
		all = append(all, listener)
	}
	typed := append([]typedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range all {
		listener(event)
	}
	for _, listener := range typed {
		listener.callback(event)
	}
}
