package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestlist/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, sub domain.Subscription) domain.Change {
	t.Helper()
	select {
	case c, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return domain.Change{}
}

func TestMemoryBroker_FanOut(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(discardLogger())
	topic := domain.EventTopic("evt_1")

	first, err := b.Subscribe(ctx, topic)
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, topic)
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, domain.EventTopic("evt_2"))
	require.NoError(t, err)
	defer other.Unsubscribe()

	change := domain.Change{Topic: topic, Kind: domain.ChangeGuestAdded, EventID: "evt_1", EntityID: "gst_1", Version: 2}
	require.NoError(t, b.Publish(ctx, topic, change))

	assert.Equal(t, change, receive(t, first))
	assert.Equal(t, change, receive(t, second))
	select {
	case <-other.C():
		t.Fatal("other topic received a change")
	default:
	}

	first.Unsubscribe()
	first.Unsubscribe()
	_, ok := <-first.C()
	assert.False(t, ok)

	require.NoError(t, b.Publish(ctx, topic, change))
	assert.Equal(t, change, receive(t, second))
	second.Unsubscribe()

	b.mu.RLock()
	defer b.mu.RUnlock()
	_, stillTracked := b.subs[topic]
	assert.False(t, stillTracked)
}

func TestMemoryBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(discardLogger())
	b.buffer = 2
	sub, err := b.Subscribe(ctx, "t")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, "t", domain.Change{Version: int64(i)}))
	}
	assert.Equal(t, int64(0), receive(t, sub).Version)
	assert.Equal(t, int64(1), receive(t, sub).Version)
	select {
	case <-sub.C():
		t.Fatal("expected overflow to be dropped")
	default:
	}
}

func TestRedisFeed_Publish(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	feed := NewRedisFeed(db, discardLogger())

	change := domain.Change{
		Topic:   domain.PromoterTopic("pr-1"),
		Kind:    domain.ChangeEventCreated,
		EventID: "evt_1",
		At:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(change)
	require.NoError(t, err)

	mock.ExpectPublish("guestlist:changes:promoter:pr-1", string(payload)).SetVal(1)
	mock.ExpectPublish("guestlist:changes:promoter:pr-1", string(payload)).SetErr(errors.New("connection reset"))

	require.NoError(t, feed.Publish(ctx, change.Topic, change))
	require.ErrorIs(t, feed.Publish(ctx, change.Topic, change), domain.ErrBackend)
	require.Error(t, feed.Publish(ctx, "", change))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisFeed_ForwardClosesOnChannelClose(t *testing.T) {
	feed := NewRedisFeed(nil, discardLogger())
	messages := make(chan *redis.Message, 2)
	done := make(chan struct{})
	sub := newSubscription(4)
	released := 0
	sub.onClose = func() {
		released++
		close(done)
	}

	payload, err := json.Marshal(domain.Change{Kind: domain.ChangeGuestAdded, EventID: "evt_1"})
	require.NoError(t, err)
	messages <- &redis.Message{Channel: "guestlist:changes:event:evt_1", Payload: "not json"}
	messages <- &redis.Message{Channel: "guestlist:changes:event:evt_1", Payload: string(payload)}
	close(messages)

	finished := make(chan struct{})
	go func() {
		feed.forward("event:evt_1", messages, done, sub)
		close(finished)
	}()

	assert.Equal(t, domain.ChangeGuestAdded, receive(t, sub).Kind)
	select {
	case _, ok := <-sub.C():
		assert.False(t, ok, "subscription should be closed")
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after redis channel closed")
	}
	<-finished
	assert.Equal(t, 1, released)

	sub.Unsubscribe()
	assert.Equal(t, 1, released)
}
