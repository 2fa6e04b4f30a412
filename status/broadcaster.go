package status

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	// subscriberBuffer is the number of events a slow subscriber may lag behind
	subscriberBuffer = 16
)

// RecordOption updates an optional field of the record
type RecordOption func(*Snapshot)

// WithMissingCount sets the missing episode count
func WithMissingCount(n int) RecordOption {
	return func(s *Snapshot) {
		s.MissingCount = n
	}
}

// WithConnection sets the connection status
func WithConnection(c ConnectionStatus) RecordOption {
	return func(s *Snapshot) {
		s.Connection = c
	}
}

// Broadcaster holds the shared status record and pushes every change to
// live subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	record      Snapshot
	subscribers map[string]chan Event
	closed      bool

	now    func() time.Time
	logger zerolog.Logger
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		record:      Snapshot{Log: []string{}},
		subscribers: make(map[string]chan Event),
		now:         time.Now,
		logger:      logger.With().Str("component", "status").Logger(),
	}
}

// Record stamps the record with the current time, applies the options,
// prepends the message to the log and notifies subscribers.
func (b *Broadcaster) Record(message string, opts ...RecordOption) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.record.LastCheck = now
	for _, opt := range opts {
		opt(&b.record)
	}

	keep := min(len(b.record.Log), MaxLogEntries-1)
	log := make([]string, 0, keep+1)
	log = append(log, "["+now.Format(timestampLayout)+"] "+message)
	log = append(log, b.record.Log[:keep]...)
	b.record.Log = log

	b.notifyLocked(log[0])
}

// Set stamps the record with the current time and applies the options
// without adding a log entry. Subscribers receive the newest log line again.
func (b *Broadcaster) Set(opts ...RecordOption) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.record.LastCheck = b.now()
	for _, opt := range opts {
		opt(&b.record)
	}

	var latest string
	if len(b.record.Log) > 0 {
		latest = b.record.Log[0]
	}
	b.notifyLocked(latest)
}

func (b *Broadcaster) notifyLocked(message string) {
	event := Event{
		LastCheck:    b.record.LastCheck,
		MissingCount: b.record.MissingCount,
		Connection:   b.record.Connection,
		Message:      message,
	}

	// Sends never block: a subscriber that fell behind misses the event
	// and catches up on the next one, which carries the full counters.
	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Debug().Str("subscriber_id", id).Msg("Subscriber channel full, skipping update")
		}
	}
}

// Snapshot returns a copy of the current record
func (b *Broadcaster) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Broadcaster) snapshotLocked() Snapshot {
	s := b.record
	s.Log = append([]string(nil), b.record.Log...)
	return s
}

// Subscribe registers a new subscriber. The returned snapshot is the state
// right before the first event delivered on the channel.
func (b *Broadcaster) Subscribe() (string, Snapshot, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}

	return id, b.snapshotLocked(), ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Subscribers returns the number of live subscribers
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Record keeps working afterwards.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.closed = true
}
