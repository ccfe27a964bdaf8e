package domain

import (
	"context"
	"strings"
	"time"
)

// Template categories.
const (
	TemplateCategoryWelcome  = "welcome_email"
	TemplateCategoryReminder = "rsvp_reminder"
	TemplateCategoryCustom   = "custom"
)

// Default retry policy for templates.
const (
	DefaultTemplateMaxRetries = 3
	MaxTemplateRetries        = 10
)

// Template is a templates_doc document: metadata, email/SMS content, the
// placeholder names extracted from the content, send settings and usage analytics.
// swagger:model Template
type Template struct {
	ID        string            `json:"template_id"`
	Metadata  TemplateMetadata  `json:"metadata"`
	Content   TemplateContent   `json:"content"`
	Variables []string          `json:"variables"`
	Settings  TemplateSettings  `json:"settings"`
	Analytics TemplateAnalytics `json:"analytics"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TemplateMetadata describes ownership and classification.
type TemplateMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	ClubID      string `json:"club_id,omitempty"`
	IsDefault   bool   `json:"is_default"`
	Category    string `json:"category"`
}

// TemplateContent holds the raw subject and bodies with {{name}} placeholders.
type TemplateContent struct {
	Subject    string `json:"subject"`
	EmailBody  string `json:"email_body"`
	SMSMessage string `json:"sms_message"`
}

// TemplateSettings controls automatic sending and retries.
type TemplateSettings struct {
	AutoSend         bool `json:"auto_send"`
	SendDelayMinutes int  `json:"send_delay_minutes"`
	RetryFailed      bool `json:"retry_failed"`
	MaxRetries       int  `json:"max_retries"`
}

// TemplateAnalytics counts template usage.
type TemplateAnalytics struct {
	TimesUsed int        `json:"times_used"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// TemplateInput is the caller-supplied data for creating or editing a template.
type TemplateInput struct {
	Name             string
	Description      string
	ClubID           string
	IsDefault        bool
	Category         string
	Subject          string
	EmailBody        string
	SMSMessage       string
	AutoSend         bool
	SendDelayMinutes int
	RetryFailed      *bool
	MaxRetries       *int
}

// Validate checks the document before it crosses the store boundary.
func (t *Template) Validate() error {
	if t.ID == "" {
		return NewValidationError("template_id", "is required")
	}
	if strings.TrimSpace(t.Metadata.Name) == "" {
		return NewValidationError("metadata.name", "is required")
	}
	if t.Metadata.CreatedBy == "" {
		return NewValidationError("metadata.created_by", "is required")
	}
	if strings.TrimSpace(t.Content.EmailBody) != "" && strings.TrimSpace(t.Content.Subject) == "" {
		return NewValidationError("content.subject", "is required for email templates")
	}
	if strings.TrimSpace(t.Content.EmailBody) == "" && strings.TrimSpace(t.Content.SMSMessage) == "" {
		return NewValidationError("content", "email body or sms message is required")
	}
	if t.Settings.MaxRetries < 0 || t.Settings.MaxRetries > MaxTemplateRetries {
		return NewValidationError("settings.max_retries", "must be between 0 and 10")
	}
	if t.Settings.SendDelayMinutes < 0 {
		return NewValidationError("settings.send_delay_minutes", "must not be negative")
	}
	return nil
}

// TemplateRepository is the document store for templates_doc.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Template, error)
	Update(ctx context.Context, tmpl *Template) error
	Delete(ctx context.Context, id string) error
}

// TemplatePreview is a template rendered against sample or caller data.
type TemplatePreview struct {
	Subject    string   `json:"subject"`
	EmailBody  string   `json:"email_body"`
	SMSMessage string   `json:"sms_message"`
	Unresolved []string `json:"unresolved"`
}

// TemplateService manages notification templates for a promoter. Lookups by id
// accept an empty ownerID, which admins use to act on any promoter's templates.
type TemplateService interface {
	CreateTemplate(ctx context.Context, ownerID string, in TemplateInput) (*Template, error)
	UpdateTemplate(ctx context.Context, templateID, ownerID string, in TemplateInput) (*Template, error)
	DeleteTemplate(ctx context.Context, templateID, ownerID string) error
	GetTemplate(ctx context.Context, templateID, ownerID string) (*Template, error)
	ListTemplates(ctx context.Context, ownerID string) ([]*Template, error)
	PreviewTemplate(ctx context.Context, templateID, ownerID string, data map[string]string) (*TemplatePreview, error)
}
