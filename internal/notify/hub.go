package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind says which part of an account's state changed.
type Kind string

const (
	KindMatches    Kind = "matches"
	KindHarvestMap Kind = "harvest_map"
)

// Event announces that an account's derived state changed.
type Event struct {
	AccountID string    `json:"account_id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives events for the account it subscribed to.
type Handler func(Event)

// Hub routes events to the subscribers of the event's account only.
type Hub struct {
	mu       sync.RWMutex
	handlers map[string]map[uuid.UUID]Handler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		handlers: make(map[string]map[uuid.UUID]Handler),
	}
}

// Subscribe registers handler for accountID. The returned function removes
// the subscription and is safe to call more than once.
func (h *Hub) Subscribe(accountID string, handler Handler) (cancel func()) {
	id := uuid.New()

	h.mu.Lock()
	subs, ok := h.handlers[accountID]
	if !ok {
		subs = make(map[uuid.UUID]Handler)
		h.handlers[accountID] = subs
	}
	subs[id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.handlers[accountID], id)
			if len(h.handlers[accountID]) == 0 {
				delete(h.handlers, accountID)
			}
		})
	}
}

// Publish delivers event to the account's subscribers.
// Handlers are called asynchronously in separate goroutines to prevent blocking.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, handler := range h.handlers[event.AccountID] {
		go handler(event)
	}
}

// Subscribers returns the number of subscriptions for accountID.
func (h *Hub) Subscribers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[accountID])
}
