package service

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// EventType defines the type of event
type EventType string

const (
	EventDiscoveryStarted   EventType = "discovery_started"
	EventDiscoveryProgress  EventType = "discovery_progress"
	EventDiscoveryComplete  EventType = "discovery_complete"
	EventDiscoveryCancelled EventType = "discovery_cancelled"
	EventDiscoveryFailed    EventType = "discovery_failed"
	EventScanner            EventType = "scanner"
	EventGraphUpdated       EventType = "graph_updated"
	EventLayoutUpdated      EventType = "layout_updated"
	EventPositionsUpdated   EventType = "positions_updated"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	log         *logrus.Entry
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
		log:         logrus.WithField("component", "events"),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
			eb.log.WithField("type", event.Type).Debug("Events: dropped event for slow subscriber")
		}
	}
}

// PublishDiscoveryEvent forwards progress from discovery adapters such as
// the nmap scanner. The adapter's event name travels in the payload.
func (eb *EventBus) PublishDiscoveryEvent(eventType string, payload any) {
	eb.Publish(Event{
		Type: EventScanner,
		Payload: map[string]any{
			"event": eventType,
			"data":  payload,
		},
	})
}
