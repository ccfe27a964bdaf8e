package controllers

import (
	"log/slog"
	"net/http"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

// CollectController serves the public collector flow. The token in the path is
// the only credential; it stops working when the assignment is removed.
type CollectController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewCollectController(logger *slog.Logger, svc domain.EventService) *CollectController {
	return &CollectController{Logger: logger, Service: svc}
}

// GetGuestlist godoc
// @Summary Open a collector link
// @Description Returns the event summary, the assignment and the guests added through this link.
// @Tags collect
// @Produce json
// @Param token path string true "Collector token"
// @Success 200 {object} helpers.APIResponse "data contains event, assignment and guests"
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_token"
// @Router /collect/{token} [get]
func (c *CollectController) GetGuestlist(w http.ResponseWriter, r *http.Request) {
	list, err := c.Service.FetchGuestlistByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// AddGuest godoc
// @Summary Add a guest through a collector link
// @Tags collect
// @Accept json
// @Produce json
// @Param token path string true "Collector token"
// @Param guest body GuestRequest true "Guest data"
// @Success 201 {object} helpers.APIResponse "data contains the guest"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_token"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /collect/{token}/guests [post]
func (c *CollectController) AddGuest(w http.ResponseWriter, r *http.Request) {
	var req GuestRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	guest, err := c.Service.AddGuest(r.Context(), r.PathValue("token"), req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, guest)
}

// UpdateGuestStatus godoc
// @Summary Change RSVP status through a collector link
// @Description Only guests added through this link can be changed.
// @Tags collect
// @Accept json
// @Produce json
// @Param token path string true "Collector token"
// @Param guestID path string true "Guest ID"
// @Param body body StatusRequest true "New status"
// @Success 200 {object} helpers.APIResponse "data contains the guest"
// @Failure 400 {object} helpers.APIResponse "error.code: validation_error"
// @Failure 404 {object} helpers.APIResponse "error.code: invalid_token or not_found"
// @Router /collect/{token}/guests/{guestID}/status [patch]
func (c *CollectController) UpdateGuestStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	guest, err := c.Service.UpdateGuestStatusByToken(r.Context(), r.PathValue("token"), r.PathValue("guestID"), req.Status)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, guest)
}
