// Package realtime fans row-level change events out to connected
// subscribers. Delivery is best-effort and at-most-once: this mirrors
// a live dashboard watch feature, not a write-ahead log.
package realtime

import "sync"

// Change is the message pushed to subscribers.
type Change struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Table  string `json:"table"`
	Record any    `json:"record"`
}

// Subscriber is one connected client. It receives changes for every
// (project, table) pair it has subscribed to.
type Subscriber struct {
	projectID string
	ch        chan Change
}

// C is the subscriber's delivery channel.
func (s *Subscriber) C() <-chan Change {
	return s.ch
}

const subscriberBuffer = 32

type subKey struct {
	projectID string
	table     string
}

// Hub routes published changes to interested subscribers. A slow
// subscriber whose buffer is full misses the event; nothing is queued
// or replayed.
type Hub struct {
	mu   sync.RWMutex
	subs map[subKey]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[subKey]map[*Subscriber]struct{})}
}

// NewSubscriber registers a connection scoped to one project. It
// receives nothing until Subscribe is called for a table.
func (h *Hub) NewSubscriber(projectID string) *Subscriber {
	return &Subscriber{projectID: projectID, ch: make(chan Change, subscriberBuffer)}
}

func (h *Hub) Subscribe(s *Subscriber, table string) {
	key := subKey{projectID: s.projectID, table: table}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[key] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) Unsubscribe(s *Subscriber, table string) {
	key := subKey{projectID: s.projectID, table: table}

	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
}

// Remove drops the subscriber from every table it follows. Pending
// deliveries in its buffer are discarded with the connection.
func (h *Hub) Remove(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, set := range h.subs {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
}

// Publish delivers the event to every subscriber of (projectID,
// table). It never blocks: a full buffer drops the event for that
// subscriber only.
func (h *Hub) Publish(projectID, table, event string, record any) {
	change := Change{Type: "change", Event: event, Table: table, Record: record}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[subKey{projectID: projectID, table: table}] {
		select {
		case s.ch <- change:
		default:
		}
	}
}
