package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

// CreateEventRequest is the request body for POST /events. The authenticated user becomes the organizer.
type CreateEventRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	Date        *time.Time `json:"date"`
	Capacity    int        `json:"capacity"`
	Type        string     `json:"type"`
	ClubID      string     `json:"club_id"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Capacity < 0 {
		errs = append(errs, "capacity must not be negative")
	}
	return errs
}

// AssignCollectorRequest is the request body for POST /events/{eventID}/collectors.
type AssignCollectorRequest struct {
	CollectorID string `json:"collector_id"`
}

// Validate implements Validator.
func (a AssignCollectorRequest) Validate() []string {
	if strings.TrimSpace(a.CollectorID) == "" {
		return []string{"collector_id is required"}
	}
	return nil
}

// NotifyGuestRequest is the request body for POST /events/{eventID}/guests/{guestID}/notify.
type NotifyGuestRequest struct {
	TemplateID string `json:"template_id"`
}

// Validate implements Validator.
func (n NotifyGuestRequest) Validate() []string {
	if strings.TrimSpace(n.TemplateID) == "" {
		return []string{"template_id is required"}
	}
	return nil
}

// AssignCollectorResponse is the data of POST /events/{eventID}/collectors (201).
type AssignCollectorResponse struct {
	Event      *domain.Event               `json:"event"`
	Assignment *domain.CollectorAssignment `json:"assignment"`
}

// AddGuestResponse is the data of POST /events/{eventID}/guests (201).
type AddGuestResponse struct {
	Event *domain.Event          `json:"event"`
	Guest *domain.GuestlistEntry `json:"guest"`
}

// ListGuestsResponse is the data of GET /events/{eventID}/guests.
type ListGuestsResponse struct {
	Guests     []domain.GuestlistEntry `json:"guests"`
	Pagination helpers.PaginationMeta  `json:"pagination"`
}

type EventController struct {
	Logger        *slog.Logger
	Service       domain.EventService
	Notifications domain.NotificationService
}

func NewEventController(logger *slog.Logger, svc domain.EventService, notifications domain.NotificationService) *EventController {
	return &EventController{
		Logger:        logger,
		Service:       svc,
		Notifications: notifications,
	}
}

// managedEvent loads the path event and checks the caller may manage it.
// On failure it writes the response and returns false.
func (c *EventController) managedEvent(w http.ResponseWriter, r *http.Request) (*domain.Event, *domain.Session, bool) {
	session, ok := requireSession(w, r)
	if !ok {
		return nil, nil, false
	}
	event, err := c.Service.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return nil, nil, false
	}
	if !canManage(session.User, event) {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
		return nil, nil, false
	}
	return event, session, true
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event with an empty guestlist. Capacity defaults to 100 and type to public.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (collectors cannot create events)"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), domain.NewEventFields{
		Name:         req.Name,
		Description:  req.Description,
		Venue:        req.Venue,
		Date:         req.Date,
		Capacity:     req.Capacity,
		Type:         req.Type,
		PromoterID:   session.User.ID,
		PromoterName: session.User.Profile.FullName,
		ClubID:       req.ClubID,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List my events
// @Description Returns the caller's events, newest first.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListEventsByPromoter(r.Context(), session.User.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the full event document. Only the organizer or an admin may read it.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListGuests godoc
// @Summary List guests
// @Description Filtered, paginated guestlist of an event.
// @Tags guests
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param rsvp_status query string false "pending, confirmed or declined"
// @Param guest_type query string false "regular, vip or staff"
// @Param assignment_id query string false "Only guests added through this assignment"
// @Param search query string false "Matches name, email or phone"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains guests and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests [get]
func (c *EventController) ListGuests(w http.ResponseWriter, r *http.Request) {
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := domain.GuestFilter{
		RSVPStatus:   q.Get("rsvp_status"),
		GuestType:    q.Get("guest_type"),
		AssignmentID: q.Get("assignment_id"),
		Search:       q.Get("search"),
	}
	params := helpers.ParsePagination(r)
	guests, total, err := c.Service.ListGuests(r.Context(), event.ID, filter, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListGuestsResponse{
		Guests:     guests,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// ExportGuests godoc
// @Summary Export guestlist as CSV
// @Tags guests
// @Produce text/csv
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {string} string "CSV with a header row"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests.csv [get]
func (c *EventController) ExportGuests(w http.ResponseWriter, r *http.Request) {
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	data, err := c.Service.ExportGuestlistCSV(r.Context(), event.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="guestlist-%s.csv"`, event.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// AddGuest godoc
// @Summary Add a guest
// @Description Appends a pending guest to the event's guestlist.
// @Tags guests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param guest body GuestRequest true "Guest data"
// @Success 201 {object} helpers.APIResponse "data contains event and guest"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/guests [post]
func (c *EventController) AddGuest(w http.ResponseWriter, r *http.Request) {
	var req GuestRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	updated, guest, err := c.Service.AddGuestToEvent(r.Context(), event.ID, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, AddGuestResponse{Event: updated, Guest: guest})
}

// UpdateGuestStatus godoc
// @Summary Change a guest's RSVP status
// @Description Moves a pending guest to confirmed or declined.
// @Tags guests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param guestID path string true "Guest ID"
// @Param body body StatusRequest true "New status"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: validation_error (invalid transition)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID}/status [patch]
func (c *EventController) UpdateGuestStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	guestID := r.PathValue("guestID")
	if _, found := event.GuestByID(guestID); !found {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "guest not found")
		return
	}
	updated, err := c.Service.UpdateGuestStatus(r.Context(), guestID, req.Status)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, updated)
}

// CheckInGuest godoc
// @Summary Check a guest in at the door
// @Description Idempotent: checking in twice keeps the first check-in time.
// @Tags guests
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param guestID path string true "Guest ID"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID}/checkin [post]
func (c *EventController) CheckInGuest(w http.ResponseWriter, r *http.Request) {
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	updated, err := c.Service.CheckInGuest(r.Context(), event.ID, r.PathValue("guestID"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, updated)
}

// AssignCollector godoc
// @Summary Assign a collector
// @Description Creates an assignment with a unique token and invitation link.
// @Tags collectors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body AssignCollectorRequest true "Collector user"
// @Success 201 {object} helpers.APIResponse "data contains event and assignment"
// @Failure 400 {object} helpers.APIResponse "error.code: validation_error (unknown collector)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/collectors [post]
func (c *EventController) AssignCollector(w http.ResponseWriter, r *http.Request) {
	var req AssignCollectorRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	updated, assignment, err := c.Service.AssignCollector(r.Context(), event.ID, domain.CollectorRef{CollectorID: req.CollectorID})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, AssignCollectorResponse{Event: updated, Assignment: assignment})
}

// RemoveCollector godoc
// @Summary Remove a collector
// @Description Deactivates the assignment. Its link stops working; guests it added stay.
// @Tags collectors
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param assignmentID path string true "Assignment ID"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/collectors/{assignmentID} [delete]
func (c *EventController) RemoveCollector(w http.ResponseWriter, r *http.Request) {
	event, _, ok := c.managedEvent(w, r)
	if !ok {
		return
	}
	updated, err := c.Service.RemoveCollector(r.Context(), event.ID, r.PathValue("assignmentID"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, updated)
}

// ShareCollectorLink godoc
// @Summary Email an invitation link to its collector
// @Tags collectors
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param assignmentID path string true "Assignment ID"
// @Success 202 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/collectors/{assignmentID}/share [post]
func (c *EventController) ShareCollectorLink(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	err := c.Notifications.ShareCollectorLink(r.Context(), r.PathValue("eventID"), r.PathValue("assignmentID"), ownerScope(session.User))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, MessageResponse{Message: "invitation sent"})
}

// NotifyGuest godoc
// @Summary Send a template to a guest
// @Description Renders the template with the guest's variables and emails it.
// @Tags guests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param guestID path string true "Guest ID"
// @Param body body NotifyGuestRequest true "Template to send"
// @Success 200 {object} helpers.APIResponse "data contains the send result"
// @Failure 400 {object} helpers.APIResponse "error.code: validation_error (guest without email)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/guests/{guestID}/notify [post]
func (c *EventController) NotifyGuest(w http.ResponseWriter, r *http.Request) {
	var req NotifyGuestRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	result, err := c.Notifications.SendGuestInvitation(r.Context(), r.PathValue("eventID"), r.PathValue("guestID"), req.TemplateID, ownerScope(session.User))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
