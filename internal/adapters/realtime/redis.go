package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"guestlist/internal/domain"
)

const channelPrefix = "guestlist:changes:"

// RedisFeed fans change notifications out through Redis pub/sub so every API
// instance sees writes made by the others.
type RedisFeed struct {
	client *redis.Client
	logger *slog.Logger
	buffer int
}

var _ domain.ChangeFeed = (*RedisFeed)(nil)

func NewRedisFeed(client *redis.Client, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{client: client, logger: logger, buffer: DefaultBuffer}
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, change domain.Change) error {
	if topic == "" {
		return fmt.Errorf("publish change: topic required")
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("publish change: marshal: %w", err)
	}
	if err := f.client.Publish(ctx, channelPrefix+topic, string(payload)).Err(); err != nil {
		return domain.WrapBackend("publish change", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning, so no
// change published after Subscribe returns is missed.
func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (domain.Subscription, error) {
	ps := f.client.Subscribe(ctx, channelPrefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, domain.WrapBackend("subscribe", err)
	}

	sub := newSubscription(f.buffer)
	done := make(chan struct{})
	sub.onClose = func() {
		close(done)
		_ = ps.Close()
	}

	go f.forward(topic, ps.Channel(), done, sub)
	return sub, nil
}

// forward decodes pub/sub messages into sub until it is unsubscribed. When Redis
// closes the message channel first, sub is unsubscribed so its reader sees C close.
func (f *RedisFeed) forward(topic string, messages <-chan *redis.Message, done <-chan struct{}, sub *subscription) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-messages:
			if !ok {
				f.logger.Warn("change feed closed by redis", "topic", topic)
				sub.Unsubscribe()
				return
			}
			var change domain.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				f.logger.Warn("discarding malformed change", "channel", msg.Channel, "error", err)
				continue
			}
			if !sub.deliver(change) {
				f.logger.Warn("subscriber too slow, change dropped", "topic", topic, "kind", change.Kind)
			}
		}
	}
}
