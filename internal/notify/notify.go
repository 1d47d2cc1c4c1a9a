package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"timeflow/internal/clock"
)

type Level int

const (
	LevelNormal Level = iota
	LevelCritical
)

// Message is a user-facing notification. Key identifies the alert kind for
// throttling and auditing; manual, automatic and idle-triggered stops carry
// distinct keys so history tells them apart.
type Message struct {
	Key   string
	Title string
	Body  string
	Level Level
}

// Sink delivers a notification. Display mechanics live behind this
// interface; the core only decides whether to emit.
type Sink interface {
	Send(ctx context.Context, userID string, msg Message) error
}

// Throttler deduplicates notifications per (employee, message key) within a
// cooldown window. The cooldown state is a keyed map owned by one instance,
// so independent alert kinds never clobber each other's windows.
type Throttler struct {
	sink  Sink
	clock clock.Clock

	mu          sync.Mutex
	lastEmitted map[string]time.Time
}

func NewThrottler(sink Sink, clk clock.Clock) *Throttler {
	return &Throttler{sink: sink, clock: clk, lastEmitted: make(map[string]time.Time)}
}

// Notify emits the message unless the same (employee, key) was emitted
// within the cooldown. Returns whether it was emitted. A zero cooldown
// bypasses throttling.
func (t *Throttler) Notify(ctx context.Context, userID string, msg Message, cooldown time.Duration) bool {
	now := t.clock.Now()
	key := userID + "/" + msg.Key

	t.mu.Lock()
	if cooldown > 0 {
		if last, ok := t.lastEmitted[key]; ok && now.Sub(last) < cooldown {
			t.mu.Unlock()
			return false
		}
	}
	t.lastEmitted[key] = now
	t.mu.Unlock()

	if err := t.sink.Send(ctx, userID, msg); err != nil {
		log.Printf("WARN send notification %s to %s: %v", msg.Key, userID, err)
	}
	return true
}

// Reset forgets the cooldown state for one employee, e.g. when their session
// ends.
func (t *Throttler) Reset(userID string) {
	prefix := userID + "/"
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.lastEmitted {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(t.lastEmitted, k)
		}
	}
}

// LogSink writes notifications to the process log; the default for headless
// deployments.
type LogSink struct{}

func (LogSink) Send(_ context.Context, userID string, msg Message) error {
	log.Printf("NOTIFY [%s] %s: %s / %s", userID, msg.Key, msg.Title, msg.Body)
	return nil
}
