package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mbertozzi/storefront/internal/metrics"
)

const sendBufferSize = 16

// Event is the wire payload pushed to subscribers.
type Event struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscription is one live listener on a group. Messages arrive on C until
// Close is called. A subscriber that stops draining C loses messages rather
// than blocking publishers.
type Subscription struct {
	hub   *Hub
	group string
	send  chan []byte
	done  chan struct{}
	once  sync.Once
}

// C delivers published payloads.
func (s *Subscription) C() <-chan []byte { return s.send }

// Done is closed when the subscription is torn down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.done)
	})
}

// Hub fans events out to in-process subscribers keyed by group name.
// Delivery is best effort: subscribers with a full buffer are skipped.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Subscription]struct{}
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		groups:  make(map[string]map[*Subscription]struct{}),
		metrics: m,
	}
}

// Subscribe registers a new listener on a group.
func (h *Hub) Subscribe(group string) *Subscription {
	sub := &Subscription{
		hub:   h,
		group: group,
		send:  make(chan []byte, sendBufferSize),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	subs, ok := h.groups[group]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.groups[group] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.ActiveSubscriptions.Inc()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if subs, ok := h.groups[sub.group]; ok {
		if _, member := subs[sub]; member {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.groups, sub.group)
			}
			h.metrics.ActiveSubscriptions.Dec()
		}
	}
	h.mu.Unlock()
}

// Publish sends an event to every subscriber of a group and returns how many
// received it. Publishing to a group with no subscribers is a no-op.
func (h *Hub) Publish(group string, ev Event) int {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode notification", "group", group, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.groups[group]))
	for sub := range h.groups[group] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		select {
		case sub.send <- payload:
			delivered++
			h.metrics.NotificationsDelivered.Inc()
		default:
			h.metrics.NotificationsDropped.Inc()
			slog.Warn("notification dropped, subscriber buffer full", "group", group)
		}
	}
	return delivered
}
