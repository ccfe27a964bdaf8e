package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/delivery/http/middleware"
	"guestlist/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	promoter  = &domain.User{ID: "pr-1", Email: "pr@example.com", Role: domain.RolePromoter, Profile: domain.UserProfile{FullName: "Pia"}}
	otherPR   = &domain.User{ID: "pr-2", Email: "other@example.com", Role: domain.RolePromoter}
	adminUser = &domain.User{ID: "adm-1", Email: "admin@example.com", Role: domain.RoleAdmin}
)

func sessionFor(u *domain.User) *domain.Session {
	return &domain.Session{ID: "sess-" + u.ID, Token: "tok-" + u.ID, User: u}
}

// doRequest runs handler with an optional session and JSON body and returns the recorder.
func doRequest(t *testing.T, handler http.HandlerFunc, method, target, pattern string, user *domain.User, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(middleware.SetSession(req.Context(), sessionFor(user)))
	}
	mux := http.NewServeMux()
	mux.HandleFunc(method+" "+pattern, handler)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// decodeEnvelope decodes the response envelope, unmarshalling data into dest when non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) *helpers.APIError {
	t.Helper()
	var envelope struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	if dest != nil && envelope.Error == nil {
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}
	return envelope.Error
}

func testEvent(id, promoterID string) *domain.Event {
	e := domain.NewEvent(domain.NewEventFields{Name: "Launch Night", PromoterID: promoterID}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	e.ID = id
	e.Guestlist = append(e.Guestlist, domain.GuestlistEntry{
		ID:             "gst_1",
		PersonalInfo:   domain.PersonalInfo{Name: "Ada"},
		BookingDetails: domain.BookingDetails{GuestType: domain.GuestTypeRegular, RSVPStatus: domain.RSVPPending},
	})
	return e
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	events map[string]*domain.Event
	err    error

	lastFields     domain.NewEventFields
	lastGuest      domain.GuestInput
	lastToken      string
	lastStatus     string
	lastGuestID    string
	lastFilter     domain.GuestFilter
	lastParams     domain.PaginationParams
	lastCollector  domain.CollectorRef
	lastAssignment string
	tokenList      *domain.TokenGuestlist
}

func newFakeEventService(events ...*domain.Event) *fakeEventService {
	f := &fakeEventService{events: map[string]*domain.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEventService) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	e, ok := f.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeEventService) CreateEvent(_ context.Context, fields domain.NewEventFields) (*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastFields = fields
	e := domain.NewEvent(fields, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	e.ID = "evt_new"
	return e, nil
}

func (f *fakeEventService) ListEventsByPromoter(_ context.Context, promoterID string) ([]*domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.Event{}
	for _, e := range f.events {
		if e.Organizer.PromoterID == promoterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventService) AssignCollector(_ context.Context, eventID string, ref domain.CollectorRef) (*domain.Event, *domain.CollectorAssignment, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.lastCollector = ref
	a := &domain.CollectorAssignment{ID: "asg_1", CollectorID: ref.CollectorID, UniqueToken: "tok", IsActive: true}
	return f.events[eventID], a, nil
}

func (f *fakeEventService) RemoveCollector(_ context.Context, eventID, assignmentID string) (*domain.Event, error) {
	f.lastAssignment = assignmentID
	return f.events[eventID], f.err
}

func (f *fakeEventService) AddGuestToEvent(_ context.Context, eventID string, in domain.GuestInput) (*domain.Event, *domain.GuestlistEntry, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.lastGuest = in
	g := domain.NewGuestlistEntry(in, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	g.ID = "gst_new"
	return f.events[eventID], &g, nil
}

func (f *fakeEventService) UpdateGuestStatus(_ context.Context, guestID, status string) (*domain.Event, error) {
	f.lastGuestID, f.lastStatus = guestID, status
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range f.events {
		if _, ok := e.GuestByID(guestID); ok {
			return e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventService) CheckInGuest(_ context.Context, eventID, guestID string) (*domain.Event, error) {
	f.lastGuestID = guestID
	return f.events[eventID], f.err
}

func (f *fakeEventService) FetchGuestlistByToken(_ context.Context, token string) (*domain.TokenGuestlist, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.tokenList, nil
}

func (f *fakeEventService) AddGuest(_ context.Context, token string, in domain.GuestInput) (*domain.GuestlistEntry, error) {
	f.lastToken, f.lastGuest = token, in
	if f.err != nil {
		return nil, f.err
	}
	g := domain.NewGuestlistEntry(in, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	g.ID = "gst_new"
	return &g, nil
}

func (f *fakeEventService) UpdateGuestStatusByToken(_ context.Context, token, guestID, status string) (*domain.GuestlistEntry, error) {
	f.lastToken, f.lastGuestID, f.lastStatus = token, guestID, status
	if f.err != nil {
		return nil, f.err
	}
	return &domain.GuestlistEntry{ID: guestID, BookingDetails: domain.BookingDetails{RSVPStatus: status}}, nil
}

func (f *fakeEventService) ListGuests(_ context.Context, eventID string, filter domain.GuestFilter, params domain.PaginationParams) ([]domain.GuestlistEntry, int, error) {
	f.lastFilter, f.lastParams = filter, params
	if f.err != nil {
		return nil, 0, f.err
	}
	e := f.events[eventID]
	return e.Guestlist, len(e.Guestlist), nil
}

func (f *fakeEventService) ExportGuestlistCSV(_ context.Context, eventID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("Event Name,Guest ID\nLaunch Night,gst_1\n"), nil
}

// fakeNotifications implements domain.NotificationService.
type fakeNotifications struct {
	err       error
	lastOwner string
	lastArgs  []string
}

func (f *fakeNotifications) SendGuestInvitation(_ context.Context, eventID, guestID, templateID, ownerID string) (*domain.NotificationResult, error) {
	f.lastOwner, f.lastArgs = ownerID, []string{eventID, guestID, templateID}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.NotificationResult{TemplateID: templateID, GuestID: guestID, To: "ada@example.com", Attempts: 1}, nil
}

func (f *fakeNotifications) NotifyGuestAdded(context.Context, *domain.Event, *domain.GuestlistEntry) {
}

func (f *fakeNotifications) ShareCollectorLink(_ context.Context, eventID, assignmentID, ownerID string) error {
	f.lastOwner, f.lastArgs = ownerID, []string{eventID, assignmentID}
	return f.err
}
