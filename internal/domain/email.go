package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// PasswordResetEmailData holds data for the password reset code email.
type PasswordResetEmailData struct {
	Email            string
	Code             string
	ExpiresInMinutes int
}

// CollectorInvitationEmailData holds data for the email that shares a collector link.
type CollectorInvitationEmailData struct {
	Email          string
	CollectorName  string
	PromoterName   string
	EventName      string
	InvitationLink string
}

// EmailService sends system emails rendered from embedded templates.
type EmailService interface {
	SendPasswordReset(ctx context.Context, data *PasswordResetEmailData) error
	SendCollectorInvitation(ctx context.Context, data *CollectorInvitationEmailData) error
}

// NotificationResult reports the outcome of a template-driven send.
type NotificationResult struct {
	TemplateID string `json:"template_id"`
	GuestID    string `json:"guest_id"`
	To         string `json:"to"`
	Attempts   int    `json:"attempts"`
}

// NotificationService renders promoter templates for guests and sends them.
type NotificationService interface {
	SendGuestInvitation(ctx context.Context, eventID, guestID, templateID, ownerID string) (*NotificationResult, error)
	// NotifyGuestAdded runs the promoter's auto-send welcome templates for a new guest.
	NotifyGuestAdded(ctx context.Context, event *Event, guest *GuestlistEntry)
	ShareCollectorLink(ctx context.Context, eventID, assignmentID, ownerID string) error
}
