package controllers

import (
	"net/http"
	"regexp"
	"strings"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/delivery/http/middleware"
	"guestlist/internal/domain"
)

// emailRegex matches a simple email format (local@domain with at least one dot in domain).
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// requireSession writes 401 and returns false when the request carries no session.
func requireSession(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return session, true
}

// canManage reports whether user may manage event: the organizing promoter or an admin.
func canManage(user *domain.User, event *domain.Event) bool {
	return user.Role == domain.RoleAdmin || event.Organizer.PromoterID == user.ID
}

// ownerScope is the owner id passed to services that check ownership themselves.
// Admins act on behalf of every promoter.
func ownerScope(user *domain.User) string {
	if user.Role == domain.RoleAdmin {
		return ""
	}
	return user.ID
}

// GuestRequest is the request body for adding a guest, by a promoter or through a collector link.
type GuestRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	GuestType    string `json:"guest_type"`
	PlusOnes     int    `json:"plus_ones"`
	SpecialNotes string `json:"special_notes"`
}

// Validate implements Validator. Enumerations and bounds are checked again by the service.
func (g GuestRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, "name is required")
	}
	if g.Email != "" && !emailRegex.MatchString(strings.TrimSpace(g.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	if g.PlusOnes < 0 || g.PlusOnes > domain.MaxPlusOnes {
		errs = append(errs, "plus_ones must be between 0 and 5")
	}
	return errs
}

func (g GuestRequest) input() domain.GuestInput {
	return domain.GuestInput{
		Name:         g.Name,
		Email:        g.Email,
		Phone:        g.Phone,
		GuestType:    g.GuestType,
		PlusOnes:     g.PlusOnes,
		SpecialNotes: g.SpecialNotes,
	}
}

// StatusRequest is the request body for RSVP status changes.
type StatusRequest struct {
	Status string `json:"status"`
}

// Validate implements Validator.
func (s StatusRequest) Validate() []string {
	switch s.Status {
	case domain.RSVPConfirmed, domain.RSVPDeclined, domain.RSVPPending:
		return nil
	case "":
		return []string{"status is required"}
	}
	return []string{"status must be pending, confirmed or declined"}
}
