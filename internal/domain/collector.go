package domain

import "time"

// CollectorAssignment grants one collector a tokenized link to add guests to one event.
// UniqueToken and InvitationLink never change once created; removal flips IsActive.
// swagger:model CollectorAssignment
type CollectorAssignment struct {
	ID             string               `json:"assignment_id"`
	CollectorID    string               `json:"collector_id"`
	CollectorName  string               `json:"collector_name,omitempty"`
	UniqueToken    string               `json:"unique_token"`
	InvitationLink string               `json:"invitation_link"`
	AssignedAt     time.Time            `json:"assigned_at"`
	IsActive       bool                 `json:"is_active"`
	DeactivatedAt  *time.Time           `json:"deactivated_at,omitempty"`
	Performance    CollectorPerformance `json:"performance"`
}

// CollectorPerformance counts what a collector achieved through the assignment.
type CollectorPerformance struct {
	GuestsAdded     int        `json:"guests_added"`
	ConfirmedGuests int        `json:"confirmed_guests"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
}

// Validate checks the required assignment fields.
func (a *CollectorAssignment) Validate() error {
	if a.ID == "" {
		return NewValidationError("collector_assignments.assignment_id", "is required")
	}
	if a.CollectorID == "" {
		return NewValidationError("collector_assignments.collector_id", "is required")
	}
	if a.UniqueToken == "" {
		return NewValidationError("collector_assignments.unique_token", "is required")
	}
	return nil
}

func (a CollectorAssignment) clone() CollectorAssignment {
	if a.DeactivatedAt != nil {
		t := *a.DeactivatedAt
		a.DeactivatedAt = &t
	}
	if a.Performance.LastActivity != nil {
		t := *a.Performance.LastActivity
		a.Performance.LastActivity = &t
	}
	return a
}
