// Package monitor provides the read-only monitoring surface of the engine:
// an alert hub with subscriptions, performance and timing metrics, and an
// HTTP JSON API. Nothing in this package mutates core state.
package monitor

import (
	"sync"
	"time"
)

// Alert is a single operator-facing notification.
type Alert struct {
	Time     time.Time `json:"time"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// maxRetained bounds the in-memory alert history.
const maxRetained = 256

// Hub collects alerts and fans them out to subscribers. It implements the
// risk gate's and execution engine's Alerter interfaces.
type Hub struct {
	mu     sync.Mutex
	alerts []Alert

	nextSubID int
	subs      map[int]chan Alert
}

// NewHub creates an empty alert hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Alert)}
}

// Notify records an alert and delivers it to all subscribers. Slow
// subscribers are skipped rather than blocking the caller.
func (h *Hub) Notify(severity, message string) {
	alert := Alert{Time: time.Now(), Severity: severity, Message: message}

	h.mu.Lock()
	h.alerts = append(h.alerts, alert)
	if len(h.alerts) > maxRetained {
		h.alerts = h.alerts[len(h.alerts)-maxRetained:]
	}
	for _, ch := range h.subs {
		select {
		case ch <- alert:
		default:
		}
	}
	h.mu.Unlock()
}

// Active returns a copy of the retained alerts, oldest first.
func (h *Hub) Active() []Alert {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Alert, len(h.alerts))
	copy(out, h.alerts)
	return out
}

// Subscribe registers a new subscriber with the given channel buffer size
// and returns its id and receive channel.
func (h *Hub) Subscribe(buffer int) (int, <-chan Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Alert, buffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}
