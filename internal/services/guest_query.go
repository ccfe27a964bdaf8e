package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guestlist/internal/domain"
)

// FilterGuests returns the entries matching every non-empty field of f, in guestlist order.
// Search matches name, email or phone case-insensitively.
func FilterGuests(guests []domain.GuestlistEntry, f domain.GuestFilter) []domain.GuestlistEntry {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.GuestlistEntry, 0, len(guests))
	for _, g := range guests {
		if f.RSVPStatus != "" && g.BookingDetails.RSVPStatus != f.RSVPStatus {
			continue
		}
		if f.GuestType != "" && g.BookingDetails.GuestType != f.GuestType {
			continue
		}
		if f.AssignmentID != "" && g.CollectorInfo.AssignmentID != f.AssignmentID {
			continue
		}
		if search != "" && !guestMatches(g, search) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func guestMatches(g domain.GuestlistEntry, search string) bool {
	return strings.Contains(strings.ToLower(g.PersonalInfo.Name), search) ||
		strings.Contains(strings.ToLower(g.PersonalInfo.Email), search) ||
		strings.Contains(g.PersonalInfo.Phone, search)
}

// Paginate returns the page of items selected by p. A zero PageSize returns everything.
func Paginate[T any](items []T, p domain.PaginationParams) []T {
	start, end := p.Window(len(items))
	if start == end {
		return []T{}
	}
	return items[start:end]
}

var guestCSVHeader = []string{
	"Event Name", "Guest ID", "Name", "Email", "Phone", "Guest Type", "Plus Ones",
	"RSVP Status", "Checked In", "Check-in Time", "Added By", "Added At", "Special Notes",
}

// GuestlistCSV renders the event's guestlist as CSV with a header row.
func GuestlistCSV(e *domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(guestCSVHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, g := range e.Guestlist {
		checkedInAt := ""
		if g.BookingDetails.CheckedInAt != nil {
			checkedInAt = g.BookingDetails.CheckedInAt.Format(time.RFC3339)
		}
		row := []string{
			e.BasicInfo.Name,
			g.ID,
			g.PersonalInfo.Name,
			g.PersonalInfo.Email,
			g.PersonalInfo.Phone,
			g.BookingDetails.GuestType,
			strconv.Itoa(g.BookingDetails.PlusOnes),
			g.BookingDetails.RSVPStatus,
			strconv.FormatBool(g.BookingDetails.CheckedIn),
			checkedInAt,
			g.CollectorInfo.AddedBy,
			g.Timestamps.AddedAt.Format(time.RFC3339),
			g.BookingDetails.SpecialNotes,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
