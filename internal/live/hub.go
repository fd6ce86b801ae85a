// Package live pushes document changes to websocket listeners. A listener
// gets the collection's current contents first, then one event per write.
package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	CollectionAssets = "assets"
	CollectionLogs   = "logs"
)

type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)

type Event struct {
	Type       EventType   `json:"type"`
	Collection string      `json:"collection"`
	Doc        interface{} `json:"doc,omitempty"`
	Docs       interface{} `json:"docs,omitempty"`
	At         time.Time   `json:"at"`
}

const defaultBuffer = 64

type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	log     *zap.Logger
	gauge   *prometheus.GaugeVec
	nowFunc func() time.Time
}

// NewHub builds a hub. gauge may be nil.
func NewHub(log *zap.Logger, gauge *prometheus.GaugeVec) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		buffer:  defaultBuffer,
		log:     log.Named("live"),
		gauge:   gauge,
		nowFunc: time.Now,
	}
}

// Subscription receives encoded events on C until it is closed, either by
// the owner or by the hub when the subscriber falls behind.
type Subscription struct {
	C          <-chan []byte
	send       chan []byte
	collection string
	hub        *Hub
}

func (h *Hub) Subscribe(collection string) *Subscription {
	ch := make(chan []byte, h.buffer)
	s := &Subscription{C: ch, send: ch, collection: collection, hub: h}

	h.mu.Lock()
	set, ok := h.subs[collection]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[collection] = set
	}
	set[s] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	h.observe(collection, n)
	return s
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	set := h.subs[s.collection]
	if _, ok := set[s]; !ok {
		h.mu.Unlock()
		return
	}
	h.dropLocked(s)
	n := len(h.subs[s.collection])
	h.mu.Unlock()

	h.observe(s.collection, n)
}

// dropLocked must be called with h.mu held.
func (h *Hub) dropLocked(s *Subscription) {
	set := h.subs[s.collection]
	delete(set, s)
	close(s.send)
	if len(set) == 0 {
		delete(h.subs, s.collection)
	}
}

// Publish fans ev out to every subscriber of ev.Collection. A subscriber
// whose buffer is full is dropped rather than allowed to stall the writer.
func (h *Hub) Publish(ev Event) {
	data, err := h.Encode(ev)
	if err != nil {
		h.log.Error("failed to encode event", zap.String("collection", ev.Collection), zap.Error(err))
		return
	}

	h.mu.Lock()
	var dropped int
	for s := range h.subs[ev.Collection] {
		select {
		case s.send <- data:
		default:
			h.dropLocked(s)
			dropped++
		}
	}
	n := len(h.subs[ev.Collection])
	h.mu.Unlock()

	if dropped > 0 {
		h.log.Warn("dropped slow subscribers", zap.String("collection", ev.Collection), zap.Int("count", dropped))
		h.observe(ev.Collection, n)
	}
}

// Count reports the open subscriptions on a collection.
func (h *Hub) Count(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

func (h *Hub) observe(collection string, n int) {
	if h.gauge != nil {
		h.gauge.WithLabelValues(collection).Set(float64(n))
	}
}

// Encode renders an event the way subscribers receive it.
func (h *Hub) Encode(ev Event) ([]byte, error) {
	if ev.At.IsZero() {
		ev.At = h.nowFunc().UTC()
	}
	return json.Marshal(ev)
}
