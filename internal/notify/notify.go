// Package notify fans out record inserts to live subscribers. One topic per
// watched collection is shared by all of its subscribers; each subscriber
// holds a buffered channel. Delivery is at-most-once: a subscriber whose
// buffer is full misses that event and only catches up on the next snapshot.
package notify

import (
	"log/slog"
	"sync"
)

// Topics for the two watched collections.
const (
	TopicScores = "scores"
	TopicEMG    = "emg"
)

const defaultBuffer = 16

// Event is a single insert notification.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Hub is an in-process broadcaster keyed by topic.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription is one receiver handle. Events arrive on C until Cancel is
// called or the hub shuts down, at which point C is closed.
type Subscription struct {
	C chan Event

	hub   *Hub
	topic string
	once  sync.Once
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a receiver on a topic. Returns nil if the hub is
// already closed.
func (h *Hub) Subscribe(topic string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	sub := &Subscription{
		C:     make(chan Event, h.buffer),
		hub:   h,
		topic: topic,
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish delivers an event to every current subscriber of the topic.
// Never blocks: a full subscriber buffer drops the event for that subscriber.
// A topic with no subscribers is a no-op.
func (h *Hub) Publish(topic string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for sub := range h.topics[topic] {
		select {
		case sub.C <- Event{Topic: topic, Payload: payload}:
		default:
			slog.Debug("notify: subscriber buffer full, dropping event", "topic", topic)
		}
	}
}

// Subscribers reports the current subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Close tears down all subscriptions. Subsequent Subscribe calls return nil
// and Publish becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.topics {
		for sub := range subs {
			sub.once.Do(func() { close(sub.C) })
		}
		delete(h.topics, topic)
	}
}

// Cancel removes the subscription and closes its channel. When the last
// subscriber of a topic leaves, the topic entry itself is released.
// Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	s.once.Do(func() {
		if subs, ok := s.hub.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.topic)
			}
		}
		close(s.C)
	})
}
