// Package progress fans deployment events out to per-deployment
// subscribers. Publishing never blocks: a subscriber that falls behind
// its buffer loses events instead of stalling the orchestrator.
package progress

import (
	"log/slog"
	"sync"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// DefaultBuffer is each subscription's event buffer.
const DefaultBuffer = 64

// =============================================================================
// Subscription
// =============================================================================

// Subscription receives the events of one deployment.
type Subscription struct {
	id           uint64
	deploymentID string
	ch           chan domain.LogEvent
	bus          *Bus
}

// Events returns the receive channel. It closes when the subscription is
// canceled.
func (s *Subscription) Events() <-chan domain.LogEvent {
	return s.ch
}

// DeploymentID returns the deployment this subscription follows.
func (s *Subscription) DeploymentID() string {
	return s.deploymentID
}

// Cancel removes the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.bus.cancel(s)
}

// =============================================================================
// Bus
// =============================================================================

// Bus is the in-process progress sink. One deployment's events reach
// every subscriber registered for its ID.
type Bus struct {
	logger *slog.Logger
	buffer int

	mu      sync.Mutex
	nextID  uint64
	subs    map[string]map[uint64]*Subscription
	dropped uint64
}

// NewBus creates a bus. Zero buffer uses DefaultBuffer; a nil logger
// falls back to slog.Default.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger.With("component", "progress"),
		buffer: buffer,
		subs:   make(map[string]map[uint64]*Subscription),
	}
}

// Subscribe registers for one deployment's events.
func (b *Bus) Subscribe(deploymentID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:           b.nextID,
		deploymentID: deploymentID,
		ch:           make(chan domain.LogEvent, b.buffer),
		bus:          b,
	}

	if b.subs[deploymentID] == nil {
		b.subs[deploymentID] = make(map[uint64]*Subscription)
	}
	b.subs[deploymentID][sub.id] = sub
	return sub
}

// Publish delivers an event to every subscriber of its deployment.
// Full subscribers drop the event.
func (b *Bus) Publish(ev domain.LogEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[ev.DeploymentID] {
		select {
		case sub.ch <- ev:
		default:
			b.dropped++
			b.logger.Warn("subscriber buffer full, dropping event",
				"deployment_id", ev.DeploymentID, "step", ev.Step)
		}
	}
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Subscribers returns the live subscription count across deployments.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// cancel removes a subscription. The channel close happens under the
// bus lock so it can never race a publish.
func (b *Bus) cancel(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[s.deploymentID]
	if !ok {
		return
	}
	if _, live := subs[s.id]; !live {
		return
	}

	delete(subs, s.id)
	if len(subs) == 0 {
		delete(b.subs, s.deploymentID)
	}
	close(s.ch)
}
