package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestlist/internal/domain"
)

// previewSampleData fills placeholders the caller did not supply when previewing.
var previewSampleData = map[string]string{
	"guest_name": "John Doe",
	"event_name": "VIP Night Party",
	"event_date": "Saturday, Dec 25th",
	"event_time": "9:00 PM",
	"venue":      "Skylite Club",
	"rsvp_link":  "https://example.com/rsvp/sample",
}

type templateService struct {
	templateRepo   domain.TemplateRepository
	contextTimeout time.Duration
	now            func() time.Time
}

func NewTemplateService(templateRepo domain.TemplateRepository, timeout time.Duration) domain.TemplateService {
	return &templateService{templateRepo: templateRepo, contextTimeout: timeout, now: utcNow}
}

func (s *templateService) CreateTemplate(ctx context.Context, ownerID string, in domain.TemplateInput) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	now := s.now()
	t := &domain.Template{
		ID:        newDocumentID(templateIDPrefix),
		Metadata:  domain.TemplateMetadata{CreatedBy: ownerID},
		Settings:  domain.TemplateSettings{RetryFailed: true, MaxRetries: domain.DefaultTemplateMaxRetries},
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyTemplateInput(t, in)
	if err := s.templateRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, templateID, ownerID string, in domain.TemplateInput) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	t, err := s.owned(ctx, templateID, ownerID)
	if err != nil {
		return nil, err
	}
	applyTemplateInput(t, in)
	t.UpdatedAt = s.now()
	if err := s.templateRepo.Update(ctx, t); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update template: %w", err)
	}
	return t, nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, templateID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.owned(ctx, templateID, ownerID); err != nil {
		return err
	}
	if err := s.templateRepo.Delete(ctx, templateID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (s *templateService) GetTemplate(ctx context.Context, templateID, ownerID string) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.owned(ctx, templateID, ownerID)
}

func (s *templateService) ListTemplates(ctx context.Context, ownerID string) ([]*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	templates, err := s.templateRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// PreviewTemplate renders the template with data layered over sample values.
func (s *templateService) PreviewTemplate(ctx context.Context, templateID, ownerID string, data map[string]string) (*domain.TemplatePreview, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	t, err := s.owned(ctx, templateID, ownerID)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(previewSampleData)+len(data))
	for k, v := range previewSampleData {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return renderTemplate(t, merged), nil
}

// owned loads templateID for ownerID. An empty ownerID is the admin scope.
func (s *templateService) owned(ctx context.Context, templateID, ownerID string) (*domain.Template, error) {
	t, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	if ownerID != "" && t.Metadata.CreatedBy != ownerID {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

// applyTemplateInput copies editable fields and recomputes the variable list.
func applyTemplateInput(t *domain.Template, in domain.TemplateInput) {
	t.Metadata.Name = strings.TrimSpace(in.Name)
	t.Metadata.Description = in.Description
	t.Metadata.ClubID = in.ClubID
	t.Metadata.IsDefault = in.IsDefault
	t.Metadata.Category = strings.TrimSpace(in.Category)
	if t.Metadata.Category == "" {
		t.Metadata.Category = domain.TemplateCategoryCustom
	}
	t.Content = domain.TemplateContent{
		Subject:    in.Subject,
		EmailBody:  in.EmailBody,
		SMSMessage: in.SMSMessage,
	}
	t.Settings.AutoSend = in.AutoSend
	t.Settings.SendDelayMinutes = in.SendDelayMinutes
	if in.RetryFailed != nil {
		t.Settings.RetryFailed = *in.RetryFailed
	}
	if in.MaxRetries != nil {
		t.Settings.MaxRetries = *in.MaxRetries
	}
	t.Variables = ExtractVariables(t.Content.Subject, t.Content.EmailBody, t.Content.SMSMessage)
}

func renderTemplate(t *domain.Template, data map[string]string) *domain.TemplatePreview {
	subject, u1 := RenderPlaceholders(t.Content.Subject, data)
	body, u2 := RenderPlaceholders(t.Content.EmailBody, data)
	sms, u3 := RenderPlaceholders(t.Content.SMSMessage, data)

	unresolved := make([]string, 0)
	seen := make(map[string]struct{})
	for _, list := range [][]string{u1, u2, u3} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			unresolved = append(unresolved, name)
		}
	}
	return &domain.TemplatePreview{Subject: subject, EmailBody: body, SMSMessage: sms, Unresolved: unresolved}
}
