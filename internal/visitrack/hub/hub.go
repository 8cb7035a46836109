// Package hub fans visitor events out to every open view.
package hub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

const subscriberBuffer = 64

const (
	EventEntry   = "entry"   // a log entry was appended
	EventScanner = "scanner" // the scanner session changed state
)

type Event struct {
	Type  string          `json:"type"`
	Entry *types.LogEntry `json:"entry,omitempty"`
	State string          `json:"state,omitempty"`
}

// Hub broadcasts events to subscribers. A subscriber that falls behind
// loses events instead of blocking the publisher.
type Hub struct {
	logger *log.Logger

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool

	dropped atomic.Int64
}

func New(logger *log.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[int]chan Event)}
}

// Subscribe returns a buffered channel of events and a function that
// unsubscribes and closes it. After Close the channel is returned closed.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			n := h.dropped.Add(1)
			if h.logger != nil {
				h.logger.Printf("hub: dropped %s event for slow subscriber (total dropped: %d)", ev.Type, n)
			}
		}
	}
}

// PublishEntry announces a newly appended log entry.
func (h *Hub) PublishEntry(e types.LogEntry) {
	h.Publish(Event{Type: EventEntry, Entry: &e})
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of events lost to slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
