package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"
)

// TemplateRequest is the request body for creating or replacing a template.
type TemplateRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	ClubID           string `json:"club_id"`
	IsDefault        bool   `json:"is_default"`
	Category         string `json:"category"`
	Subject          string `json:"subject"`
	EmailBody        string `json:"email_body"`
	SMSMessage       string `json:"sms_message"`
	AutoSend         bool   `json:"auto_send"`
	SendDelayMinutes int    `json:"send_delay_minutes"`
	RetryFailed      *bool  `json:"retry_failed"`
	MaxRetries       *int   `json:"max_retries"`
}

// Validate implements Validator.
func (t TemplateRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, "name is required")
	}
	switch t.Category {
	case "", domain.TemplateCategoryWelcome, domain.TemplateCategoryReminder, domain.TemplateCategoryCustom:
	default:
		errs = append(errs, "category must be welcome_email, rsvp_reminder or custom")
	}
	return errs
}

func (t TemplateRequest) input() domain.TemplateInput {
	return domain.TemplateInput{
		Name:             t.Name,
		Description:      t.Description,
		ClubID:           t.ClubID,
		IsDefault:        t.IsDefault,
		Category:         t.Category,
		Subject:          t.Subject,
		EmailBody:        t.EmailBody,
		SMSMessage:       t.SMSMessage,
		AutoSend:         t.AutoSend,
		SendDelayMinutes: t.SendDelayMinutes,
		RetryFailed:      t.RetryFailed,
		MaxRetries:       t.MaxRetries,
	}
}

// PreviewRequest optionally overrides the sample values used for a preview.
type PreviewRequest struct {
	Data map[string]string `json:"data"`
}

type TemplateController struct {
	Logger  *slog.Logger
	Service domain.TemplateService
}

func NewTemplateController(logger *slog.Logger, svc domain.TemplateService) *TemplateController {
	return &TemplateController{Logger: logger, Service: svc}
}

// CreateTemplate godoc
// @Summary Create a notification template
// @Description Placeholders are written as {{name}}; the variable list is extracted from the content.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body TemplateRequest true "Template"
// @Success 201 {object} helpers.APIResponse "data contains the template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Router /templates [post]
func (c *TemplateController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	tmpl, err := c.Service.CreateTemplate(r.Context(), session.User.ID, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, tmpl)
}

// ListTemplates godoc
// @Summary List my templates
// @Description Lists the caller's own templates, admins included.
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the templates"
// @Router /templates [get]
func (c *TemplateController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListTemplates(r.Context(), session.User.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// GetTemplate godoc
// @Summary Get a template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID"
// @Success 200 {object} helpers.APIResponse "data contains the template"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID} [get]
func (c *TemplateController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	tmpl, err := c.Service.GetTemplate(r.Context(), r.PathValue("templateID"), ownerScope(session.User))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tmpl)
}

// UpdateTemplate godoc
// @Summary Replace a template's content and settings
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID"
// @Param body body TemplateRequest true "Template"
// @Success 200 {object} helpers.APIResponse "data contains the template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or validation_error"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID} [put]
func (c *TemplateController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	tmpl, err := c.Service.UpdateTemplate(r.Context(), r.PathValue("templateID"), ownerScope(session.User), req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tmpl)
}

// DeleteTemplate godoc
// @Summary Delete a template
// @Tags templates
// @Security BearerAuth
// @Param templateID path string true "Template ID"
// @Success 204 "No Content"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID} [delete]
func (c *TemplateController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteTemplate(r.Context(), r.PathValue("templateID"), ownerScope(session.User)); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewTemplate godoc
// @Summary Preview a template
// @Description Renders the template with sample values, overridden by any values in the body. An empty body is allowed.
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID"
// @Param body body PreviewRequest false "Variable overrides"
// @Success 200 {object} helpers.APIResponse "data contains the rendered preview"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID}/preview [post]
func (c *TemplateController) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if r.ContentLength != 0 && !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	preview, err := c.Service.PreviewTemplate(r.Context(), r.PathValue("templateID"), ownerScope(session.User), req.Data)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, preview)
}
