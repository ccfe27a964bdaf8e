package domain

import (
	"context"
	"strings"
	"time"
)

// Event types.
const (
	EventTypePublic  = "public"
	EventTypePrivate = "private"
	EventTypeVIP     = "vip"
)

// DefaultEventCapacity is used when an event is created without a capacity.
const DefaultEventCapacity = 100

// Event is the events_doc document: basic info, organizer, collector assignments,
// the embedded guestlist and an analytics summary.
// swagger:model Event
type Event struct {
	ID                   string                `json:"event_id"`
	BasicInfo            EventBasicInfo        `json:"basic_info"`
	Organizer            Organizer             `json:"organizer"`
	CollectorAssignments []CollectorAssignment `json:"collector_assignments"`
	Guestlist            []GuestlistEntry      `json:"guestlist"`
	Analytics            EventAnalytics        `json:"analytics"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`

	// Version is the storage row version read with the document. It is not part of
	// the stored JSON; the repository keeps it in its own column.
	Version int64 `json:"-"`
}

// EventBasicInfo holds the descriptive fields of an event.
type EventBasicInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Capacity    int        `json:"capacity"`
	Type        string     `json:"type"`
}

// Organizer references the promoter that owns the event.
type Organizer struct {
	PromoterID   string `json:"pr_id"`
	PromoterName string `json:"pr_name,omitempty"`
	ClubID       string `json:"club_id,omitempty"`
}

// EventAnalytics is the per-event RSVP summary.
type EventAnalytics struct {
	TotalInvites   int `json:"total_invites"`
	Confirmed      int `json:"confirmed"`
	Declined       int `json:"declined"`
	Pending        int `json:"pending"`
	CheckedIn      int `json:"checked_in"`
	ConversionRate int `json:"conversion_rate"`
}

// NewEventFields holds the caller-supplied fields for CreateEvent.
type NewEventFields struct {
	Name         string
	Description  string
	Venue        string
	Date         *time.Time
	Capacity     int
	Type         string
	PromoterID   string
	PromoterName string
	ClubID       string
}

// NewEvent returns a default event document: empty guestlist and assignments, zeroed analytics.
// ID is set by the caller.
func NewEvent(f NewEventFields, createdAt time.Time) *Event {
	capacity := f.Capacity
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	eventType := strings.ToLower(strings.TrimSpace(f.Type))
	if eventType == "" {
		eventType = EventTypePublic
	}
	return &Event{
		BasicInfo: EventBasicInfo{
			Name:        strings.TrimSpace(f.Name),
			Description: f.Description,
			Venue:       f.Venue,
			Date:        f.Date,
			Capacity:    capacity,
			Type:        eventType,
		},
		Organizer: Organizer{
			PromoterID:   f.PromoterID,
			PromoterName: f.PromoterName,
			ClubID:       f.ClubID,
		},
		CollectorAssignments: []CollectorAssignment{},
		Guestlist:            []GuestlistEntry{},
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}
}

// Validate checks the document before it crosses the store boundary.
func (e *Event) Validate() error {
	if e.ID == "" {
		return NewValidationError("event_id", "is required")
	}
	if e.BasicInfo.Name == "" {
		return NewValidationError("basic_info.name", "is required")
	}
	if e.BasicInfo.Capacity < 0 {
		return NewValidationError("basic_info.capacity", "must not be negative")
	}
	switch e.BasicInfo.Type {
	case EventTypePublic, EventTypePrivate, EventTypeVIP:
	default:
		return NewValidationError("basic_info.type", "must be public, private or vip")
	}
	if e.Organizer.PromoterID == "" {
		return NewValidationError("organizer.pr_id", "is required")
	}
	for i := range e.CollectorAssignments {
		if err := e.CollectorAssignments[i].Validate(); err != nil {
			return err
		}
	}
	for i := range e.Guestlist {
		if err := e.Guestlist[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so a mutation can be applied without touching the read copy.
func (e *Event) Clone() *Event {
	c := *e
	if e.BasicInfo.Date != nil {
		d := *e.BasicInfo.Date
		c.BasicInfo.Date = &d
	}
	c.CollectorAssignments = make([]CollectorAssignment, len(e.CollectorAssignments))
	for i, a := range e.CollectorAssignments {
		c.CollectorAssignments[i] = a.clone()
	}
	c.Guestlist = make([]GuestlistEntry, len(e.Guestlist))
	for i, g := range e.Guestlist {
		c.Guestlist[i] = g.clone()
	}
	return &c
}

// AssignmentByToken returns the active assignment carrying token.
func (e *Event) AssignmentByToken(token string) (*CollectorAssignment, bool) {
	for i := range e.CollectorAssignments {
		a := &e.CollectorAssignments[i]
		if a.IsActive && a.UniqueToken == token {
			return a, true
		}
	}
	return nil, false
}

// AssignmentByID returns the assignment with the given id, active or not.
func (e *Event) AssignmentByID(id string) (*CollectorAssignment, bool) {
	for i := range e.CollectorAssignments {
		if e.CollectorAssignments[i].ID == id {
			return &e.CollectorAssignments[i], true
		}
	}
	return nil, false
}

// GuestByID returns the guestlist entry with the given id.
func (e *Event) GuestByID(id string) (*GuestlistEntry, bool) {
	for i := range e.Guestlist {
		if e.Guestlist[i].ID == id {
			return &e.Guestlist[i], true
		}
	}
	return nil, false
}

// ActiveAssignments returns the assignments that have not been removed.
func (e *Event) ActiveAssignments() []CollectorAssignment {
	out := make([]CollectorAssignment, 0, len(e.CollectorAssignments))
	for _, a := range e.CollectorAssignments {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out
}

// EventRepository is the document store for events_doc.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByPromoterID(ctx context.Context, promoterID string) ([]*Event, error)
	// GetByActiveToken returns the event owning an active assignment with token.
	GetByActiveToken(ctx context.Context, token string) (*Event, error)
	// GetByGuestID returns the event whose guestlist contains guestID.
	GetByGuestID(ctx context.Context, guestID string) (*Event, error)
	// Update replaces the document only if the stored version still equals
	// event.Version. On success event.Version is advanced. Returns
	// ErrVersionConflict if the version moved and ErrNotFound if the row is gone.
	Update(ctx context.Context, event *Event) error
}

// GuestInput is the caller-supplied data for a new guestlist entry.
type GuestInput struct {
	Name         string
	Email        string
	Phone        string
	GuestType    string
	PlusOnes     int
	SpecialNotes string
	CollectorID  string
	AssignmentID string
}

// CollectorRef identifies the collector user for AssignCollector.
type CollectorRef struct {
	CollectorID   string
	CollectorName string
}

// TokenGuestlist is what a collector sees through an invitation link.
type TokenGuestlist struct {
	Event      EventSummary        `json:"event"`
	Assignment CollectorAssignment `json:"assignment"`
	Guests     []GuestlistEntry    `json:"guests"`
}

// EventSummary is the subset of an event exposed to collectors.
type EventSummary struct {
	ID        string         `json:"event_id"`
	BasicInfo EventBasicInfo `json:"basic_info"`
	Organizer Organizer      `json:"organizer"`
}

// GuestFilter narrows guest list queries. Zero values match everything.
type GuestFilter struct {
	RSVPStatus   string
	GuestType    string
	AssignmentID string
	Search       string
}

// EventService is the entity mutation layer. Every mutation is a versioned
// read-modify-write of the whole event document.
type EventService interface {
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	CreateEvent(ctx context.Context, fields NewEventFields) (*Event, error)
	ListEventsByPromoter(ctx context.Context, promoterID string) ([]*Event, error)
	AssignCollector(ctx context.Context, eventID string, ref CollectorRef) (*Event, *CollectorAssignment, error)
	RemoveCollector(ctx context.Context, eventID, assignmentID string) (*Event, error)
	AddGuestToEvent(ctx context.Context, eventID string, guest GuestInput) (*Event, *GuestlistEntry, error)
	UpdateGuestStatus(ctx context.Context, guestID, status string) (*Event, error)
	CheckInGuest(ctx context.Context, eventID, guestID string) (*Event, error)
	FetchGuestlistByToken(ctx context.Context, token string) (*TokenGuestlist, error)
	AddGuest(ctx context.Context, token string, guest GuestInput) (*GuestlistEntry, error)
	UpdateGuestStatusByToken(ctx context.Context, token, guestID, status string) (*GuestlistEntry, error)
	ListGuests(ctx context.Context, eventID string, filter GuestFilter, params PaginationParams) ([]GuestlistEntry, int, error)
	ExportGuestlistCSV(ctx context.Context, eventID string) ([]byte, error)
}
