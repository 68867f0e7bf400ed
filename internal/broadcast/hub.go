// Package broadcast fans access events out to live subscribers.
//
// Publish never blocks: a subscriber whose buffer is full misses the event
// and the drop is counted. Slow consumers cannot stall detection.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

const DefaultBuffer = 32

type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

type Subscription struct {
	id  uint64
	hub *Hub
	ch  chan types.Event

	once    sync.Once
	dropped atomic.Uint64
}

// Stats is a snapshot of hub counters.
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Sent        uint64 `json:"sent"`
	Dropped     uint64 `json:"dropped"`
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscriber with the given buffer size. On a
// closed hub the returned subscription's channel is already closed.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscription{id: h.nextID, hub: h, ch: make(chan types.Event, buffer)}
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	h.subs[s.id] = s
	return s
}

func (h *Hub) Publish(ev types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.published.Add(1)
	for _, s := range h.subs {
		select {
		case s.ch <- ev:
			h.sent.Add(1)
		default:
			s.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.subs)
	h.mu.RUnlock()
	return Stats{
		Subscribers: n,
		Published:   h.published.Load(),
		Sent:        h.sent.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		s.once.Do(func() { close(s.ch) })
		delete(h.subs, id)
	}
}

// C delivers events until the subscription or hub is closed.
func (s *Subscription) C() <-chan types.Event { return s.ch }

// Dropped counts events this subscriber missed.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s.id)
	s.once.Do(func() { close(s.ch) })
}
