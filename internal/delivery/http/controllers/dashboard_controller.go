package controllers

import (
	"log/slog"
	"net/http"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

type DashboardController struct {
	Logger    *slog.Logger
	Dashboard domain.DashboardService
	Users     domain.UserService
}

func NewDashboardController(logger *slog.Logger, dashboard domain.DashboardService, users domain.UserService) *DashboardController {
	return &DashboardController{Logger: logger, Dashboard: dashboard, Users: users}
}

// GetDashboard godoc
// @Summary Promoter dashboard
// @Description Aggregate RSVP counts over all of the caller's events.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains DashboardStats"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /dashboard [get]
func (c *DashboardController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	stats, err := c.Dashboard.Dashboard(r.Context(), session.User.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListCollectors godoc
// @Summary Search collector users
// @Description Used when assigning a collector to an event.
// @Tags collectors
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches name or email"
// @Success 200 {object} helpers.APIResponse "data contains users"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /collectors [get]
func (c *DashboardController) ListCollectors(w http.ResponseWriter, r *http.Request) {
	users, err := c.Users.ListCollectors(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, users)
}
