// Package events is a small topic-keyed pub/sub hub: subscribers get the
// last published value immediately on subscribe, then every subsequent
// broadcast. The bridge uses it to push log-ring appends to the debug SSE
// page without every viewer re-polling and re-filtering the ring on a
// timer.
package events

import "sync"

// Event carries one published value under a topic (e.g. "logs"), with the
// publish-time Unix timestamp.
type Event struct {
	Topic     string
	Timestamp int64
	Value     any
}

// Hub fans out Events to any number of subscribers. A late subscriber
// still receives the most recently published Event on Subscribe, matching
// the bridge's "log ring readers take a snapshot" semantics for a push
// feed.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan *Event
	next int
	last *Event
}

func NewHub() *Hub {
	return &Hub{subs: map[int]chan *Event{}, last: &Event{}}
}

func (h *Hub) Subscribe() (int, <-chan *Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan *Event, 16)
	if h.last != nil {
		ch <- h.copy(h.last)
	}
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			close(c)
			delete(h.subs, id)
		}
	}
	return id, ch, cancel
}

func (h *Hub) Broadcast(event *Event) {
	h.mu.Lock()
	h.last = event
	for _, ch := range h.subs {
		select {
		case ch <- h.copy(event):
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) copy(e *Event) *Event {
	return &Event{e.Topic, e.Timestamp, e.Value}
}
