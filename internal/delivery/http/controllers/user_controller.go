package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

// UpdateProfileRequest is the request body for PATCH /users/me. Every field is optional.
type UpdateProfileRequest struct {
	FullName          *string `json:"full_name"`
	Phone             *string `json:"phone"`
	AvatarURL         *string `json:"avatar_url"`
	NotificationEmail *bool   `json:"notification_email"`
	NotificationSMS   *bool   `json:"notification_sms"`
}

// Validate implements Validator.
func (u UpdateProfileRequest) Validate() []string {
	var errs []string
	if u.FullName == nil && u.Phone == nil && u.AvatarURL == nil && u.NotificationEmail == nil && u.NotificationSMS == nil {
		errs = append(errs, "at least one field is required")
	}
	if u.FullName != nil && strings.TrimSpace(*u.FullName) == "" {
		errs = append(errs, "full_name cannot be empty")
	}
	if u.AvatarURL != nil && *u.AvatarURL != "" && !strings.HasPrefix(*u.AvatarURL, "https://") {
		errs = append(errs, "avatar_url must be an https URL")
	}
	return errs
}

type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{Logger: logger, Service: svc}
}

// UpdateMe godoc
// @Summary Update my profile
// @Description Changes the signed-in user's profile and notification preferences. Email and role are not editable.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} helpers.APIResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me [patch]
func (c *UserController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.UpdateProfile(r.Context(), session.User.ID, domain.ProfileInput{
		FullName:          req.FullName,
		Phone:             req.Phone,
		AvatarURL:         req.AvatarURL,
		NotificationEmail: req.NotificationEmail,
		NotificationSMS:   req.NotificationSMS,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
