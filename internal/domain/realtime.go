package domain

import (
	"context"
	"fmt"
	"time"
)

// Change kinds.
const (
	ChangeEventCreated      = "event_created"
	ChangeCollectorAssigned = "collector_assigned"
	ChangeCollectorRemoved  = "collector_removed"
	ChangeGuestAdded        = "guest_added"
	ChangeGuestStatus       = "guest_status_changed"
	ChangeGuestCheckedIn    = "guest_checked_in"
	ChangeAuth              = "auth"
)

// Change is a notification that a document changed. Receivers re-fetch; the
// notification carries identifiers only.
type Change struct {
	Topic    string    `json:"topic"`
	Kind     string    `json:"kind"`
	EventID  string    `json:"event_id,omitempty"`
	EntityID string    `json:"entity_id,omitempty"`
	Version  int64     `json:"version,omitempty"`
	At       time.Time `json:"at"`
}

// EventTopic is the change topic for one event document.
func EventTopic(eventID string) string { return fmt.Sprintf("event:%s", eventID) }

// PromoterTopic is the change topic for all events of one promoter.
func PromoterTopic(promoterID string) string { return fmt.Sprintf("promoter:%s", promoterID) }

// UserTopic is the change topic for a user's session events.
func UserTopic(userID string) string { return fmt.Sprintf("user:%s", userID) }

// Subscription is a live stream of changes for one topic. Unsubscribe is
// idempotent and closes C.
type Subscription interface {
	C() <-chan Change
	Unsubscribe()
}

// ChangeFeed publishes and subscribes to document change notifications.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string, change Change) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}
