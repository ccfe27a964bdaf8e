package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"guestlist/internal/domain"
)

// RecomputeAnalytics recounts the RSVP and check-in counters and the conversion
// rate from the guestlist. TotalInvites is additive and maintained by the guest
// append path, so it is left untouched here.
func RecomputeAnalytics(e *domain.Event) {
	a := &e.Analytics
	a.Confirmed, a.Declined, a.Pending, a.CheckedIn = 0, 0, 0, 0
	for _, g := range e.Guestlist {
		switch g.BookingDetails.RSVPStatus {
		case domain.RSVPConfirmed:
			a.Confirmed++
		case domain.RSVPDeclined:
			a.Declined++
		default:
			a.Pending++
		}
		if g.BookingDetails.CheckedIn {
			a.CheckedIn++
		}
	}
	a.ConversionRate = 0
	if total := len(e.Guestlist); total > 0 {
		a.ConversionRate = int(math.Round(float64(a.Confirmed) * 100 / float64(total)))
	}
}

type dashboardService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

func NewDashboardService(eventRepo domain.EventRepository, timeout time.Duration) domain.DashboardService {
	return &dashboardService{eventRepo: eventRepo, contextTimeout: timeout}
}

// Dashboard aggregates the promoter's events. Declined guests are not active.
func (s *dashboardService) Dashboard(ctx context.Context, promoterID string) (*domain.DashboardStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if promoterID == "" {
		return nil, domain.NewValidationError("pr_id", "is required")
	}
	events, err := s.eventRepo.ListByPromoterID(ctx, promoterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.DashboardStats{}, nil
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	stats := &domain.DashboardStats{TotalEvents: len(events)}
	collectors := make(map[string]struct{})
	for _, e := range events {
		for _, g := range e.Guestlist {
			switch g.BookingDetails.RSVPStatus {
			case domain.RSVPConfirmed:
				stats.ConfirmedGuests++
				stats.ActiveGuests++
			case domain.RSVPPending:
				stats.PendingRSVPs++
				stats.ActiveGuests++
			}
			if g.BookingDetails.CheckedIn {
				stats.CheckedIn++
			}
		}
		for _, a := range e.ActiveAssignments() {
			collectors[a.CollectorID] = struct{}{}
		}
	}
	stats.ActiveCollectors = len(collectors)
	return stats, nil
}
