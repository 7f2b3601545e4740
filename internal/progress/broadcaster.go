// Package progress fans fetch progress events out to subscribers such as the
// CLI logger and the HTTP event stream.
package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

type Status string

const (
	StatusStarted  Status = "started"
	StatusFetched  Status = "fetched"
	StatusNotFound Status = "not_found"
	StatusNoData   Status = "no_data"
	StatusFailed   Status = "failed"
	StatusDone     Status = "done"
)

// Event describes the outcome of one step of a fetch batch.
type Event struct {
	RunID   string    `json:"run_id"`
	EventID string    `json:"event_id,omitempty"`
	Index   int       `json:"index"`
	Total   int       `json:"total"`
	Status  Status    `json:"status"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

const subscriberBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Event),
	}
}

// Subscribe returns a buffered channel of events. After Close the returned
// channel is already closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish is safe on a nil Broadcaster.
func (b *Broadcaster) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// slow subscriber, drop
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so readers exit their range loops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
