package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventBotStarted     EventType = "BOT_STARTED"
	EventBotStopped     EventType = "BOT_STOPPED"
	EventSignalFound    EventType = "SIGNAL_FOUND"
	EventOrderPlaced    EventType = "ORDER_PLACED"
	EventPositionScaled EventType = "POSITION_SCALED"
	EventScanCompleted  EventType = "SCAN_COMPLETED"
	EventStatusUpdate   EventType = "STATUS_UPDATE"
	EventError          EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// Bus manages event publishing and subscriptions
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for every event
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Subscribers run in their own
// goroutines so a slow consumer never blocks the worker.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishSignalFound publishes a signal found event
func (b *Bus) PublishSignalFound(symbol, action string, entry, upper, lower float64) {
	b.Publish(Event{
		Type: EventSignalFound,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"action":     action,
			"entry":      entry,
			"upper_band": upper,
			"lower_band": lower,
		},
	})
}

// PublishOrderPlaced publishes an order placed event
func (b *Bus) PublishOrderPlaced(symbol, action string, entry, tp, sl, sizeUSD float64) {
	b.Publish(Event{
		Type: EventOrderPlaced,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"action":   action,
			"entry":    entry,
			"tp":       tp,
			"sl":       sl,
			"size_usd": sizeUSD,
		},
	})
}

// PublishPositionScaled publishes a position scaled event
func (b *Bus) PublishPositionScaled(symbol string, addedSizeUSD, newAvgEntry, newTP float64) {
	b.Publish(Event{
		Type: EventPositionScaled,
		Data: map[string]interface{}{
			"symbol":        symbol,
			"added_size":    addedSizeUSD,
			"new_avg_entry": newAvgEntry,
			"new_tp":        newTP,
		},
	})
}

// PublishScanCompleted publishes a scan completed event
func (b *Bus) PublishScanCompleted(scanID string, scanned, found int) {
	b.Publish(Event{
		Type: EventScanCompleted,
		Data: map[string]interface{}{
			"scan_id":       scanID,
			"scanned":       scanned,
			"opportunities": found,
		},
	})
}

// PublishError publishes an error event
func (b *Bus) PublishError(source string, err error) {
	data := map[string]interface{}{"source": source}
	if err != nil {
		data["error"] = err.Error()
	}
	b.Publish(Event{Type: EventError, Data: data})
}
