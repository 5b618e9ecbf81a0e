package bridge

import (
	"fmt"
	"sync"

	"github.com/malike-rnd/cl7206c2-rfid/events"
)

// logTopic is the events.Hub topic every LogRing append is broadcast
// under, for push-subscribers like the debug SSE page.
const logTopic = "logs"

// Category is one of the closed set of log categories an operation is
// tagged with when it appends to the ring.
type Category string

const (
	CatSYS   Category = "SYS"
	CatCMD   Category = "CMD"
	CatPROTO Category = "PROTO"
	CatTAG   Category = "TAG"
)

// Level is a log severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one ring-buffer record.
type Entry struct {
	Index     int64    `json:"index"`
	TimeUnix  int64    `json:"time"`
	Category  Category `json:"category"`
	Level     Level    `json:"level"`
	Message   string   `json:"message"`
}

// LogRing is a fixed-capacity, append-only log buffer. Readers take a
// snapshot rather than holding the lock across a filter pass.
type LogRing struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	next     int64
	now      func() int64
	hub      *events.Hub
}

// NewLogRing creates a ring with the given capacity. now supplies the
// unix-seconds clock, overridable for tests.
func NewLogRing(capacity int, now func() int64) *LogRing {
	if capacity <= 0 {
		capacity = 2000
	}
	return &LogRing{capacity: capacity, next: 1, now: now, hub: events.NewHub()}
}

// Subscribe returns a channel of newly appended entries (replaying the
// most recent one immediately), for push-based readers like the debug
// SSE page. The returned cancel func must be called when the reader goes
// away.
func (r *LogRing) Subscribe() (<-chan Entry, func()) {
	_, raw, cancel := r.hub.Subscribe()
	out := make(chan Entry, 16)
	go func() {
		defer close(out)
		for ev := range raw {
			if e, ok := ev.Value.(Entry); ok {
				out <- e
			}
		}
	}()
	return out, cancel
}

// Append adds a new entry, evicting the oldest when at capacity, and
// broadcasts it to any subscribers.
func (r *LogRing) Append(cat Category, level Level, format string, args ...any) {
	r.mu.Lock()

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	e := Entry{Index: r.next, TimeUnix: r.now(), Category: cat, Level: level, Message: msg}
	r.next++

	if len(r.entries) >= r.capacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	r.hub.Broadcast(&events.Event{Topic: logTopic, Timestamp: e.TimeUnix, Value: e})
}

// Snapshot returns entries with Index > after, optionally filtered by
// category and level. An empty set means "no filter" for that dimension.
func (r *LogRing) Snapshot(after int64, cats map[Category]bool, levels map[Level]bool) []Entry {
	r.mu.Lock()
	src := make([]Entry, len(r.entries))
	copy(src, r.entries)
	r.mu.Unlock()

	out := make([]Entry, 0, len(src))
	for _, e := range src {
		if e.Index <= after {
			continue
		}
		if len(cats) > 0 && !cats[e.Category] {
			continue
		}
		if len(levels) > 0 && !levels[e.Level] {
			continue
		}
		out = append(out, e)
	}
	return out
}
