package realtime

import (
	"context"
	"log/slog"
	"sync"

	"guestlist/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length. A subscriber that falls this
// far behind misses changes; receivers re-fetch on the next one they see.
const DefaultBuffer = 64

// MemoryBroker is an in-process ChangeFeed for single-instance deployments and tests.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	logger *slog.Logger
}

var _ domain.ChangeFeed = (*MemoryBroker)(nil)

func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: DefaultBuffer,
		logger: logger,
	}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, change domain.Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[topic] {
		if !sub.deliver(change) {
			b.logger.Warn("subscriber too slow, change dropped", "topic", topic, "kind", change.Kind)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (domain.Subscription, error) {
	sub := newSubscription(b.buffer)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	b.mu.Unlock()

	sub.onClose = func() {
		b.mu.Lock()
		delete(b.subs[topic], sub)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		b.mu.Unlock()
	}
	return sub, nil
}

// subscription is shared by both feeds. out is closed exactly once, by Unsubscribe.
type subscription struct {
	mu      sync.Mutex
	out     chan domain.Change
	closed  bool
	once    sync.Once
	onClose func()
}

func newSubscription(buffer int) *subscription {
	return &subscription{out: make(chan domain.Change, buffer)}
}

func (s *subscription) C() <-chan domain.Change { return s.out }

// deliver queues change without blocking. It reports false when the change was dropped.
func (s *subscription) deliver(change domain.Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.out <- change:
		return true
	default:
		return false
	}
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
	})
}
