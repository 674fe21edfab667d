package deck

import (
	"sync"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// EventType names a kind of zone mutation.
type EventType string

const (
	EventInstanceAdded   EventType = "INSTANCE_ADDED"
	EventInstanceRemoved EventType = "INSTANCE_REMOVED"
	EventZoneChange      EventType = "ZONE_CHANGE"
	EventAddCapped       EventType = "ADD_CAPPED" // requested copies exceeded the cap
)

// Event describes one mutation of the owned zones. Amount is the number of
// copies the event covers: 1 for instance adds, removes and moves, and the
// number of copies dropped for EventAddCapped.
type Event struct {
	Type       EventType
	InstanceID string
	CardID     string
	From       card.Zone
	To         card.Zone
	Amount     int
	Timestamp  time.Time
}

// Listener receives zone events.
type Listener func(Event)

type subscription struct {
	handle   int
	filtered bool
	only     EventType
	listener Listener
}

func (s subscription) wants(t EventType) bool {
	return !s.filtered || s.only == t
}

// EventBus delivers zone events synchronously, in subscription order.
// Listeners run outside the bus lock and may subscribe or unsubscribe.
type EventBus struct {
	mu         sync.RWMutex
	subs       []subscription
	nextHandle int
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers listener for every event. It returns a handle for
// Unsubscribe, or -1 for a nil listener.
func (bus *EventBus) Subscribe(listener Listener) int {
	return bus.add(subscription{listener: listener})
}

// SubscribeTyped registers listener for events of one type.
func (bus *EventBus) SubscribeTyped(eventType EventType, listener Listener) int {
	return bus.add(subscription{filtered: true, only: eventType, listener: listener})
}

func (bus *EventBus) add(sub subscription) int {
	if sub.listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	sub.handle = bus.nextHandle
	bus.nextHandle++
	bus.subs = append(bus.subs, sub)
	return sub.handle
}

// Unsubscribe removes a listener. Unknown handles are ignored.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subs {
		if sub.handle == handle {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to the listeners subscribed when it is called.
// A nil bus drops the event.
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	bus.mu.RLock()
	targets := make([]Listener, 0, len(bus.subs))
	for _, sub := range bus.subs {
		if sub.wants(event.Type) {
			targets = append(targets, sub.listener)
		}
	}
	bus.mu.RUnlock()

	for _, listener := range targets {
		listener(event)
	}
}
