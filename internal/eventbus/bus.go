// Package eventbus implements the core's single-writer-many-reader event
// fan-out: monotonic ids, bounded replay, and a subscription stream per
// consumer. Publish assigns an id and appends to a bounded ring; each
// subscriber gets its own goroutine replaying backlog and then streaming
// live events, so a slow consumer never stalls the publisher or others.
package eventbus

import (
	"context"
	"sync"
	"time"

	"torrentstream/internal/domain"
)

const (
	DefaultCapacity = 1024
	subscriberBuffer = 64
)

// Bus is safe for concurrent use. Publish is lock-held only long enough to
// assign an id and write into the ring; subscriber wakeups happen outside
// the lock via per-subscriber goroutines so a slow consumer never stalls
// the publisher or other subscribers.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	ring     []domain.EventEnvelope // ordered by id ascending; oldest evicted from the front
	nextID   domain.EventID
	closed   bool

	now func() time.Time
}

// New constructs a Bus with the given ring capacity (clamped to at least
// 1; a few hundred to a few thousand entries is a reasonable range).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Bus{
		capacity: capacity,
		ring:     make([]domain.EventEnvelope, 0, capacity),
		nextID:   1,
		now:      time.Now,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish assigns the next monotonic id, stamps the timestamp, stores the
// envelope in the bounded ring (evicting the oldest entry if full), and
// wakes subscribers. Never blocks.
func (b *Bus) Publish(event domain.Event) domain.EventID {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	envelope := domain.EventEnvelope{ID: id, Timestamp: b.now().UTC(), Event: event}

	if len(b.ring) >= b.capacity {
		// Evict oldest. Shifting is O(n) but capacity is small (hundreds
		// to low thousands) and publish frequency is bounded by the engine.
		copy(b.ring, b.ring[1:])
		b.ring = b.ring[:len(b.ring)-1]
	}
	b.ring = append(b.ring, envelope)
	b.mu.Unlock()

	b.cond.Broadcast()
	return id
}

// LastEventID returns the most recently assigned id, or nil if nothing has
// been published yet.
func (b *Bus) LastEventID() *domain.EventID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nextID == 1 {
		return nil
	}
	id := b.nextID - 1
	return &id
}

// BacklogSince returns a snapshot of resident envelopes with id > since, in
// id order. Used directly by the qB façade to compute sync/maindata deltas.
func (b *Bus) BacklogSince(since domain.EventID) []domain.EventEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sliceSinceLocked(since)
}

func (b *Bus) sliceSinceLocked(since domain.EventID) []domain.EventEnvelope {
	if len(b.ring) == 0 {
		return nil
	}
	// Ring is ordered ascending; find the first entry with id > since.
	start := 0
	for start < len(b.ring) && b.ring[start].ID <= since {
		start++
	}
	if start >= len(b.ring) {
		return nil
	}
	out := make([]domain.EventEnvelope, len(b.ring)-start)
	copy(out, b.ring[start:])
	return out
}

// OldestResidentID returns the id of the oldest envelope still in the
// ring, or nil if the ring is empty. A subscribe/backlog request whose
// `since` predates this is a backlog gap (see HasGap).
func (b *Bus) OldestResidentID() *domain.EventID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ring) == 0 {
		return nil
	}
	id := b.ring[0].ID
	return &id
}

// HasGap reports whether `since` predates the oldest resident envelope —
// i.e. whether a subscriber resuming from `since` would miss events that
// were evicted before it could see them.
func (b *Bus) HasGap(since domain.EventID) bool {
	oldest := b.OldestResidentID()
	if oldest == nil {
		return false
	}
	return since > 0 && since < *oldest-1
}

// Subscription is a live view into the bus. Cancelling the context used to
// create it is safe and immediate; the bus discards the subscriber
// goroutine without further coordination.
type Subscription struct {
	Events <-chan domain.EventEnvelope
	Gap    bool
}

// Subscribe emits, first, any resident envelopes with id > since in id
// order, then streams future envelopes as they are published. Dropping the
// subscription (cancelling ctx) is safe and immediate.
func (b *Bus) Subscribe(ctx context.Context, since domain.EventID) Subscription {
	gap := b.HasGap(since)
	out := make(chan domain.EventEnvelope, subscriberBuffer)

	go b.run(ctx, since, out)

	return Subscription{Events: out, Gap: gap}
}

func (b *Bus) run(ctx context.Context, cursor domain.EventID, out chan<- domain.EventEnvelope) {
	defer close(out)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.cond.Broadcast()
			b.mu.Unlock()
		case <-done:
		}
	}()

	for {
		b.mu.Lock()
		for {
			if ctx.Err() != nil || b.closed {
				b.mu.Unlock()
				return
			}
			pending := b.sliceSinceLocked(cursor)
			if len(pending) > 0 {
				b.mu.Unlock()
				for _, envelope := range pending {
					select {
					case out <- envelope:
						cursor = envelope.ID
					case <-ctx.Done():
						return
					}
				}
				break
			}
			b.cond.Wait()
		}
	}
}

// Close releases any subscriber goroutines blocked in cond.Wait. Safe to
// call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Len reports the number of envelopes currently resident, for metrics.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ring)
}

// Capacity reports the ring's configured size, for health/backlog-pressure
// reporting against Len.
func (b *Bus) Capacity() int {
	return b.capacity
}
