package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guestlist/internal/domain"
	"guestlist/internal/metrics"
)

// errNoChange is returned by a mutation that found nothing to modify; the write is skipped.
var errNoChange = errors.New("no change")

// mutation edits a working copy of an event document.
type mutation func(e *domain.Event) error

// GuestAddedNotifier is told about guests added through a collector link.
type GuestAddedNotifier interface {
	NotifyGuestAdded(ctx context.Context, event *domain.Event, guest *domain.GuestlistEntry)
}

// EventServiceConfig holds the tunables of the event service.
type EventServiceConfig struct {
	PublicBaseURL string
	MaxAttempts   int
	Timeout       time.Duration
}

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	feed           domain.ChangeFeed
	notifier       GuestAddedNotifier
	metrics        *metrics.Metrics
	logger         *slog.Logger
	baseURL        string
	maxAttempts    int
	contextTimeout time.Duration
	now            func() time.Time
	newToken       func() (string, error)
}

// NewEventService builds the event service. feed, notifier and m may be nil.
func NewEventService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	feed domain.ChangeFeed,
	notifier GuestAddedNotifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg EventServiceConfig,
) domain.EventService {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		feed:           feed,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
		baseURL:        cfg.PublicBaseURL,
		maxAttempts:    attempts,
		contextTimeout: cfg.Timeout,
		now:            utcNow,
		newToken:       NewToken,
	}
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) CreateEvent(ctx context.Context, fields domain.NewEventFields) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event := domain.NewEvent(fields, s.now())
	event.ID = newDocumentID(eventIDPrefix)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.publish(ctx, domain.ChangeEventCreated, event, event.ID)
	s.recordPromoterActivity(ctx, event.Organizer.PromoterID, func(m *domain.UserMetadata) {
		m.TotalEventsCreated++
	})
	return event, nil
}

// recordPromoterActivity bumps usage counters on the promoter's user document.
// Failures are logged and never fail the mutation that triggered them.
func (s *eventService) recordPromoterActivity(ctx context.Context, promoterID string, bump func(*domain.UserMetadata)) {
	if s.userRepo == nil || promoterID == "" {
		return
	}
	user, err := s.userRepo.GetByID(ctx, promoterID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("load promoter for counters failed", "user_id", promoterID, "error", err)
		}
		return
	}
	bump(&user.Metadata)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("record promoter counters failed", "user_id", promoterID, "error", err)
	}
}

func (s *eventService) ListEventsByPromoter(ctx context.Context, promoterID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByPromoterID(ctx, promoterID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *eventService) AssignCollector(ctx context.Context, eventID string, ref domain.CollectorRef) (*domain.Event, *domain.CollectorAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ref.CollectorID = strings.TrimSpace(ref.CollectorID)
	if ref.CollectorID == "" {
		return nil, nil, domain.NewValidationError("collector_id", "is required")
	}
	if ref.CollectorName == "" && s.userRepo != nil {
		user, err := s.userRepo.GetByID(ctx, ref.CollectorID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, nil, domain.NewValidationError("collector_id", "unknown collector")
		case err != nil:
			return nil, nil, fmt.Errorf("get collector: %w", err)
		}
		ref.CollectorName = user.Profile.FullName
		if ref.CollectorName == "" {
			ref.CollectorName = user.Email
		}
	}

	token, err := s.newToken()
	if err != nil {
		return nil, nil, err
	}
	assignment := domain.CollectorAssignment{
		ID:             newDocumentID(assignmentIDPrefix),
		CollectorID:    ref.CollectorID,
		CollectorName:  ref.CollectorName,
		UniqueToken:    token,
		InvitationLink: InvitationLink(s.baseURL, token, eventID, ref.CollectorID),
		IsActive:       true,
	}

	event, err := s.mutate(ctx, "assign_collector", eventID, func(e *domain.Event) error {
		assignment.AssignedAt = s.now()
		e.CollectorAssignments = append(e.CollectorAssignments, assignment)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, domain.ChangeCollectorAssigned, event, assignment.ID)
	stored, _ := event.AssignmentByID(assignment.ID)
	return event, stored, nil
}

// RemoveCollector deactivates the assignment. Its token stops resolving; the
// entry stays in the document. Unknown or already inactive assignments are left alone.
func (s *eventService) RemoveCollector(ctx context.Context, eventID, assignmentID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	changed := false
	event, err := s.mutate(ctx, "remove_collector", eventID, func(e *domain.Event) error {
		a, ok := e.AssignmentByID(assignmentID)
		if !ok || !a.IsActive {
			return errNoChange
		}
		now := s.now()
		a.IsActive = false
		a.DeactivatedAt = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, domain.ChangeCollectorRemoved, event, assignmentID)
	}
	return event, nil
}

func (s *eventService) AddGuestToEvent(ctx context.Context, eventID string, in domain.GuestInput) (*domain.Event, *domain.GuestlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, guest, err := s.appendGuest(ctx, eventID, in, "")
	if err != nil {
		return nil, nil, err
	}
	s.metrics.GuestAdded("promoter")
	return event, guest, nil
}

// appendGuest adds one entry. When token is set the assignment must still be
// active at write time.
func (s *eventService) appendGuest(ctx context.Context, eventID string, in domain.GuestInput, token string) (*domain.Event, *domain.GuestlistEntry, error) {
	entry := domain.NewGuestlistEntry(in, s.now())
	entry.ID = newDocumentID(guestIDPrefix)
	if err := entry.Validate(); err != nil {
		return nil, nil, err
	}

	event, err := s.mutate(ctx, "add_guest", eventID, func(e *domain.Event) error {
		if token != "" {
			if _, ok := e.AssignmentByToken(token); !ok {
				return domain.ErrInvalidToken
			}
		}
		if entry.CollectorInfo.AssignmentID != "" {
			if a, ok := e.AssignmentByID(entry.CollectorInfo.AssignmentID); ok {
				a.Performance.GuestsAdded++
				at := entry.Timestamps.AddedAt
				a.Performance.LastActivity = &at
			}
		}
		previous := len(e.Guestlist)
		e.Guestlist = append(e.Guestlist, entry)
		e.Analytics.TotalInvites = previous + 1
		RecomputeAnalytics(e)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, domain.ChangeGuestAdded, event, entry.ID)
	s.recordPromoterActivity(ctx, event.Organizer.PromoterID, func(m *domain.UserMetadata) {
		m.TotalGuestsManaged++
	})
	stored, _ := event.GuestByID(entry.ID)
	return event, stored, nil
}

// UpdateGuestStatus sets the RSVP status of the guest wherever it lives. It
// returns a nil event when no guestlist contains guestID.
func (s *eventService) UpdateGuestStatus(ctx context.Context, guestID, status string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateRSVPStatus(status); err != nil {
		return nil, err
	}
	owner, err := s.eventRepo.GetByGuestID(ctx, guestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find guest: %w", err)
	}

	changed := false
	event, err := s.mutate(ctx, "update_guest_status", owner.ID, func(e *domain.Event) error {
		g, ok := e.GuestByID(guestID)
		if !ok {
			return errNoChange
		}
		if err := s.applyRSVP(e, g, status); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, domain.ChangeGuestStatus, event, guestID)
	}
	return event, nil
}

func (s *eventService) CheckInGuest(ctx context.Context, eventID, guestID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	changed := false
	event, err := s.mutate(ctx, "check_in_guest", eventID, func(e *domain.Event) error {
		g, ok := e.GuestByID(guestID)
		if !ok {
			return domain.ErrNotFound
		}
		if g.BookingDetails.CheckedIn {
			return errNoChange
		}
		now := s.now()
		g.BookingDetails.CheckedIn = true
		g.BookingDetails.CheckedInAt = &now
		g.Timestamps.UpdatedAt = &now
		RecomputeAnalytics(e)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, domain.ChangeGuestCheckedIn, event, guestID)
	}
	return event, nil
}

func (s *eventService) FetchGuestlistByToken(ctx context.Context, token string) (*domain.TokenGuestlist, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, assignment, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.TokenGuestlist{
		Event: domain.EventSummary{
			ID:        event.ID,
			BasicInfo: event.BasicInfo,
			Organizer: event.Organizer,
		},
		Assignment: *assignment,
		Guests:     FilterGuests(event.Guestlist, domain.GuestFilter{AssignmentID: assignment.ID}),
	}, nil
}

func (s *eventService) AddGuest(ctx context.Context, token string, in domain.GuestInput) (*domain.GuestlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, assignment, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	in.CollectorID = assignment.CollectorID
	in.AssignmentID = assignment.ID
	updated, guest, err := s.appendGuest(ctx, event.ID, in, token)
	if err != nil {
		return nil, err
	}
	s.metrics.GuestAdded("collector")
	if s.notifier != nil {
		s.notifier.NotifyGuestAdded(context.WithoutCancel(ctx), updated, guest)
	}
	return guest, nil
}

// UpdateGuestStatusByToken lets a collector change RSVP status for guests added
// through their own assignment only.
func (s *eventService) UpdateGuestStatusByToken(ctx context.Context, token, guestID, status string) (*domain.GuestlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateRSVPStatus(status); err != nil {
		return nil, err
	}
	event, _, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	updated, err := s.mutate(ctx, "update_guest_status", event.ID, func(e *domain.Event) error {
		a, ok := e.AssignmentByToken(token)
		if !ok {
			return domain.ErrInvalidToken
		}
		g, ok := e.GuestByID(guestID)
		if !ok || g.CollectorInfo.AssignmentID != a.ID {
			return domain.ErrNotFound
		}
		return s.applyRSVP(e, g, status)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.ChangeGuestStatus, updated, guestID)
	guest, _ := updated.GuestByID(guestID)
	return guest, nil
}

func (s *eventService) ListGuests(ctx context.Context, eventID string, filter domain.GuestFilter, params domain.PaginationParams) ([]domain.GuestlistEntry, int, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	matched := FilterGuests(event.Guestlist, filter)
	return Paginate(matched, params), len(matched), nil
}

func (s *eventService) ExportGuestlistCSV(ctx context.Context, eventID string) ([]byte, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return GuestlistCSV(event)
}

// resolveToken finds the event and the active assignment carrying token.
func (s *eventService) resolveToken(ctx context.Context, token string) (*domain.Event, *domain.CollectorAssignment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.metrics.TokenResolved(false)
		return nil, nil, domain.ErrInvalidToken
	}
	event, err := s.eventRepo.GetByActiveToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.TokenResolved(false)
			return nil, nil, domain.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("resolve token: %w", err)
	}
	assignment, ok := event.AssignmentByToken(token)
	if !ok {
		s.metrics.TokenResolved(false)
		return nil, nil, domain.ErrInvalidToken
	}
	s.metrics.TokenResolved(true)
	return event, assignment, nil
}

// applyRSVP moves g to status, crediting the adding assignment on confirmation.
func (s *eventService) applyRSVP(e *domain.Event, g *domain.GuestlistEntry, status string) error {
	if !domain.CanTransitionRSVP(g.BookingDetails.RSVPStatus, status) {
		return domain.ErrInvalidTransition
	}
	now := s.now()
	g.BookingDetails.RSVPStatus = status
	g.Timestamps.UpdatedAt = &now
	if status == domain.RSVPConfirmed && g.CollectorInfo.AssignmentID != "" {
		if a, ok := e.AssignmentByID(g.CollectorInfo.AssignmentID); ok {
			a.Performance.ConfirmedGuests++
			a.Performance.LastActivity = &now
		}
	}
	RecomputeAnalytics(e)
	return nil
}

func validateRSVPStatus(status string) error {
	switch status {
	case domain.RSVPPending, domain.RSVPConfirmed, domain.RSVPDeclined:
		return nil
	}
	return domain.NewValidationError("rsvp_status", "must be pending, confirmed or declined")
}

// mutate runs a versioned read-modify-write of one event document. A write that
// loses the version race is retried from a fresh read, up to maxAttempts times.
func (s *eventService) mutate(ctx context.Context, op, eventID string, fn mutation) (*domain.Event, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.metrics.MutationAttempt(op)
		current, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("get event: %w", err)
		}
		working := current.Clone()
		if err := fn(working); err != nil {
			if errors.Is(err, errNoChange) {
				return current, nil
			}
			return nil, err
		}
		working.UpdatedAt = s.now()
		err = s.eventRepo.Update(ctx, working)
		if err == nil {
			return working, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
				return nil, err
			}
			return nil, fmt.Errorf("update event: %w", err)
		}
		s.metrics.MutationConflict(op)
		s.logger.Debug("event version conflict", "op", op, "event_id", eventID, "attempt", attempt)
	}
	s.logger.Warn("event mutation gave up", "op", op, "event_id", eventID, "attempts", s.maxAttempts)
	return nil, domain.ErrVersionConflict
}

// publish notifies event and promoter subscribers. Failures are logged only;
// the write already succeeded.
func (s *eventService) publish(ctx context.Context, kind string, e *domain.Event, entityID string) {
	if s.feed == nil {
		return
	}
	topics := []string{domain.EventTopic(e.ID), domain.PromoterTopic(e.Organizer.PromoterID)}
	for _, topic := range topics {
		change := domain.Change{
			Topic:    topic,
			Kind:     kind,
			EventID:  e.ID,
			EntityID: entityID,
			Version:  e.Version,
			At:       s.now(),
		}
		if err := s.feed.Publish(ctx, topic, change); err != nil {
			s.logger.Warn("publish change failed", "topic", topic, "kind", kind, "error", err)
		}
	}
	s.metrics.ChangePublished(kind)
}
