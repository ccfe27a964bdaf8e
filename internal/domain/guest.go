package domain

import (
	"strings"
	"time"
)

// Guest types.
const (
	GuestTypeRegular = "regular"
	GuestTypeVIP     = "vip"
	GuestTypeStaff   = "staff"
)

// RSVP statuses.
const (
	RSVPPending   = "pending"
	RSVPConfirmed = "confirmed"
	RSVPDeclined  = "declined"
)

// MaxPlusOnes is the largest plus-ones count a guest may bring.
const MaxPlusOnes = 5

// GuestlistEntry is one guest embedded in an event's guestlist.
// swagger:model GuestlistEntry
type GuestlistEntry struct {
	ID             string          `json:"guest_id"`
	PersonalInfo   PersonalInfo    `json:"personal_info"`
	BookingDetails BookingDetails  `json:"booking_details"`
	CollectorInfo  CollectorInfo   `json:"collector_info"`
	Timestamps     GuestTimestamps `json:"timestamps"`
}

// PersonalInfo holds guest contact details.
type PersonalInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// BookingDetails holds guest type, plus-ones and RSVP state.
type BookingDetails struct {
	GuestType    string     `json:"guest_type"`
	PlusOnes     int        `json:"plus_ones"`
	SpecialNotes string     `json:"special_notes,omitempty"`
	RSVPStatus   string     `json:"rsvp_status"`
	CheckedIn    bool       `json:"checked_in"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
}

// CollectorInfo points back at the assignment that added the guest.
type CollectorInfo struct {
	AddedBy      string `json:"added_by,omitempty"`
	AssignmentID string `json:"assignment_id,omitempty"`
}

// GuestTimestamps records when the entry was added and last changed.
type GuestTimestamps struct {
	AddedAt   time.Time  `json:"added_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewGuestlistEntry builds a pending, not-checked-in entry from input. ID is set by the caller.
func NewGuestlistEntry(in GuestInput, addedAt time.Time) GuestlistEntry {
	guestType := strings.ToLower(strings.TrimSpace(in.GuestType))
	if guestType == "" {
		guestType = GuestTypeRegular
	}
	return GuestlistEntry{
		PersonalInfo: PersonalInfo{
			Name:  strings.TrimSpace(in.Name),
			Email: strings.TrimSpace(strings.ToLower(in.Email)),
			Phone: strings.TrimSpace(in.Phone),
		},
		BookingDetails: BookingDetails{
			GuestType:    guestType,
			PlusOnes:     in.PlusOnes,
			SpecialNotes: in.SpecialNotes,
			RSVPStatus:   RSVPPending,
			CheckedIn:    false,
		},
		CollectorInfo: CollectorInfo{
			AddedBy:      in.CollectorID,
			AssignmentID: in.AssignmentID,
		},
		Timestamps: GuestTimestamps{AddedAt: addedAt},
	}
}

// Validate checks required fields and enumerations.
func (g *GuestlistEntry) Validate() error {
	if g.ID == "" {
		return NewValidationError("guestlist.guest_id", "is required")
	}
	if g.PersonalInfo.Name == "" {
		return NewValidationError("guestlist.personal_info.name", "is required")
	}
	switch g.BookingDetails.GuestType {
	case GuestTypeRegular, GuestTypeVIP, GuestTypeStaff:
	default:
		return NewValidationError("guestlist.booking_details.guest_type", "must be regular, vip or staff")
	}
	if g.BookingDetails.PlusOnes < 0 || g.BookingDetails.PlusOnes > MaxPlusOnes {
		return NewValidationError("guestlist.booking_details.plus_ones", "must be between 0 and 5")
	}
	switch g.BookingDetails.RSVPStatus {
	case RSVPPending, RSVPConfirmed, RSVPDeclined:
	default:
		return NewValidationError("guestlist.booking_details.rsvp_status", "must be pending, confirmed or declined")
	}
	return nil
}

// CanTransitionRSVP reports whether an RSVP status may move from -> to.
func CanTransitionRSVP(from, to string) bool {
	return from == RSVPPending && (to == RSVPConfirmed || to == RSVPDeclined)
}

func (g GuestlistEntry) clone() GuestlistEntry {
	if g.BookingDetails.CheckedInAt != nil {
		t := *g.BookingDetails.CheckedInAt
		g.BookingDetails.CheckedInAt = &t
	}
	if g.Timestamps.UpdatedAt != nil {
		t := *g.Timestamps.UpdatedAt
		g.Timestamps.UpdatedAt = &t
	}
	return g
}
