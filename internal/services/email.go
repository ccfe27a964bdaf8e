package services

import (
	"context"
	"fmt"
	"log/slog"

	"guestlist/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendPasswordReset sends the one-time reset code using the "password_reset" template.
func (s *emailService) SendPasswordReset(ctx context.Context, data *domain.PasswordResetEmailData) error {
	if data == nil {
		return fmt.Errorf("password reset email data is nil")
	}
	if err := s.send(ctx, "password_reset", data.Email, data); err != nil {
		return err
	}
	s.logger.Info("password reset code sent", "to", data.Email)
	return nil
}

// SendCollectorInvitation shares an invitation link with a collector using the "collector_invitation" template.
func (s *emailService) SendCollectorInvitation(ctx context.Context, data *domain.CollectorInvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("collector invitation email data is nil")
	}
	if err := s.send(ctx, "collector_invitation", data.Email, data); err != nil {
		return err
	}
	s.logger.Info("collector invitation sent", "to", data.Email, "event", data.EventName)
	return nil
}

func (s *emailService) send(ctx context.Context, templateName, to string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}
	return nil
}
