// Package events fans state-change notifications out to every connected
// listener.
package events

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/logging"
)

// Event names.
const (
	SystemReady  = "system.ready"
	SystemState  = "system.state"
	SystemConfig = "system.config"

	NetworkState        = "network.state"
	NetworkConfig       = "network.config"
	NetworkNetworks     = "network.networks"
	NetworkIP           = "network.ip"
	NetworkConnected    = "network.connected"
	NetworkDisconnected = "network.disconnected"

	LEDState  = "led.state"
	LEDConfig = "led.config"

	FullState = "full_state"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Event is the envelope pushed to listeners.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Emitter broadcasts events to subscribers. Emit never blocks: a subscriber
// whose queue is full misses the event.
type Emitter struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	buffer int
	log    *zap.Logger
}

// NewEmitter creates an emitter whose subscriber queues hold buffer events.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Emitter{
		subs:   make(map[string]chan Event),
		buffer: buffer,
		log:    logging.Named("events"),
	}
}

// Subscribe registers a listener and returns its id and queue.
func (e *Emitter) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, e.buffer)

	e.mu.Lock()
	e.subs[id] = ch
	e.mu.Unlock()

	e.log.Debug("Subscribed", zap.String("id", id))
	return id, ch
}

// Unsubscribe removes a listener and closes its queue. Unknown ids are
// ignored.
func (e *Emitter) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.subs[id]; ok {
		delete(e.subs, id)
		close(ch)
		e.log.Debug("Unsubscribed", zap.String("id", id))
	}
}

// Emit sends an event to every subscriber.
func (e *Emitter) Emit(name string, data any) {
	ev := Event{Event: name, Data: data}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.log.Warn("Dropping event for slow subscriber",
				zap.String("id", id),
				zap.String("event", name),
			)
		}
	}
}

// Subscribers returns the number of registered listeners.
func (e *Emitter) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Close unsubscribes every listener.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}
