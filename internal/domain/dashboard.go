package domain

import "context"

// DashboardStats aggregates RSVP state over all events of a promoter.
// swagger:model DashboardStats
type DashboardStats struct {
	TotalEvents      int `json:"total_events"`
	ActiveGuests     int `json:"active_guests"`
	ConfirmedGuests  int `json:"confirmed_guests"`
	PendingRSVPs     int `json:"pending_rsvps"`
	CheckedIn        int `json:"checked_in"`
	ActiveCollectors int `json:"active_collectors"`
}

// DashboardService computes promoter dashboards.
type DashboardService interface {
	Dashboard(ctx context.Context, promoterID string) (*DashboardStats, error)
}
