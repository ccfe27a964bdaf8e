package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"guestlist/internal/domain"
	"guestlist/internal/metrics"
)

// NotifierConfig sizes the background send pool.
type NotifierConfig struct {
	PublicBaseURL string
	Workers       int
	QueueSize     int
	Timeout       time.Duration
}

type notifyJob func(ctx context.Context)

// Notifier renders promoter templates for guests and mails them. Auto-send work
// triggered by collector submissions runs on a bounded worker pool; call Close
// to drain it.
type Notifier struct {
	eventRepo      domain.EventRepository
	templateRepo   domain.TemplateRepository
	userRepo       domain.UserRepository
	mailer         domain.Mailer
	emailService   domain.EmailService
	metrics        *metrics.Metrics
	logger         *slog.Logger
	baseURL        string
	contextTimeout time.Duration
	now            func() time.Time
	afterFunc      func(d time.Duration, f func())

	mu     sync.Mutex
	closed bool
	jobs   chan notifyJob
	wg     sync.WaitGroup
}

var _ domain.NotificationService = (*Notifier)(nil)

func NewNotifier(
	eventRepo domain.EventRepository,
	templateRepo domain.TemplateRepository,
	userRepo domain.UserRepository,
	mailer domain.Mailer,
	emailService domain.EmailService,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg NotifierConfig,
) *Notifier {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue < 1 {
		queue = workers * 16
	}
	n := &Notifier{
		eventRepo:      eventRepo,
		templateRepo:   templateRepo,
		userRepo:       userRepo,
		mailer:         mailer,
		emailService:   emailService,
		metrics:        m,
		logger:         logger,
		baseURL:        cfg.PublicBaseURL,
		contextTimeout: cfg.Timeout,
		now:            utcNow,
		afterFunc:      func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		jobs:           make(chan notifyJob, queue),
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.work()
	}
	return n
}

func (n *Notifier) work() {
	defer n.wg.Done()
	for job := range n.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), n.contextTimeout)
		job(ctx)
		cancel()
	}
}

// enqueue hands job to the pool. It reports false when the pool is closed or full.
func (n *Notifier) enqueue(job notifyJob) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	select {
	case n.jobs <- job:
		return true
	default:
		return false
	}
}

// Close stops accepting work and waits for queued sends to finish or ctx to end.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.jobs)
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendGuestInvitation renders templateID for the guest and emails it, retrying
// failed sends when the template allows it. ownerID must organize the event and
// own the template; an empty ownerID is used by auto-send and skips the check.
func (n *Notifier) SendGuestInvitation(ctx context.Context, eventID, guestID, templateID, ownerID string) (*domain.NotificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, n.contextTimeout)
	defer cancel()

	event, err := n.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if ownerID != "" && event.Organizer.PromoterID != ownerID {
		return nil, domain.ErrForbidden
	}
	guest, ok := event.GuestByID(guestID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if guest.PersonalInfo.Email == "" {
		return nil, domain.NewValidationError("email", "guest has no email address")
	}
	tmpl, err := n.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	if tmpl.Metadata.CreatedBy != event.Organizer.PromoterID {
		return nil, domain.ErrForbidden
	}
	if tmpl.Content.EmailBody == "" {
		return nil, domain.NewValidationError("content.email_body", "template has no email body")
	}

	vars := GuestVariables(n.baseURL, event, guest)
	rendered := renderTemplate(tmpl, vars)
	htmlBody, _ := RenderPlaceholders(tmpl.Content.EmailBody, escapeHTMLValues(vars))
	attempts := 1
	if tmpl.Settings.RetryFailed {
		attempts += tmpl.Settings.MaxRetries
	}
	result := &domain.NotificationResult{TemplateID: tmpl.ID, GuestID: guest.ID, To: guest.PersonalInfo.Email}
	var sendErr error
	for result.Attempts < attempts {
		result.Attempts++
		sendErr = n.mailer.Send(ctx, guest.PersonalInfo.Email, rendered.Subject, htmlBody, rendered.EmailBody)
		if sendErr == nil {
			break
		}
		n.logger.Warn("template send failed", "template_id", tmpl.ID, "guest_id", guest.ID, "attempt", result.Attempts, "error", sendErr)
		if ctx.Err() != nil {
			break
		}
	}
	if sendErr != nil {
		n.metrics.Notification("failed")
		return result, fmt.Errorf("send template %s: %w", tmpl.ID, sendErr)
	}
	n.metrics.Notification("sent")

	now := n.now()
	tmpl.Analytics.TimesUsed++
	tmpl.Analytics.LastUsed = &now
	if err := n.templateRepo.Update(ctx, tmpl); err != nil {
		n.logger.Warn("record template usage failed", "template_id", tmpl.ID, "error", err)
	}
	return result, nil
}

// NotifyGuestAdded queues the organizer's auto-send welcome templates for guest.
// Guests without an email are skipped.
func (n *Notifier) NotifyGuestAdded(_ context.Context, event *domain.Event, guest *domain.GuestlistEntry) {
	if event == nil || guest == nil || guest.PersonalInfo.Email == "" {
		return
	}
	eventID, guestID, promoterID := event.ID, guest.ID, event.Organizer.PromoterID
	ok := n.enqueue(func(ctx context.Context) {
		templates, err := n.templateRepo.ListByOwner(ctx, promoterID)
		if err != nil {
			n.logger.Error("list auto-send templates failed", "pr_id", promoterID, "error", err)
			return
		}
		for _, t := range templates {
			if !t.Settings.AutoSend || t.Metadata.Category != domain.TemplateCategoryWelcome {
				continue
			}
			n.scheduleSend(ctx, eventID, guestID, t.ID, time.Duration(t.Settings.SendDelayMinutes)*time.Minute)
		}
	})
	if !ok {
		n.metrics.Notification("dropped")
		n.logger.Warn("notification queue unavailable", "event_id", eventID, "guest_id", guestID)
	}
}

func (n *Notifier) scheduleSend(ctx context.Context, eventID, guestID, templateID string, delay time.Duration) {
	send := func(ctx context.Context) {
		if _, err := n.SendGuestInvitation(ctx, eventID, guestID, templateID, ""); err != nil {
			n.logger.Error("auto-send failed", "event_id", eventID, "guest_id", guestID, "template_id", templateID, "error", err)
		}
	}
	if delay <= 0 {
		send(ctx)
		return
	}
	n.afterFunc(delay, func() {
		if !n.enqueue(send) {
			n.metrics.Notification("dropped")
			n.logger.Warn("delayed send dropped", "event_id", eventID, "guest_id", guestID, "template_id", templateID)
		}
	})
}

// ShareCollectorLink emails an active assignment's invitation link to its collector.
// An empty ownerID is the admin scope and skips the organizer check.
func (n *Notifier) ShareCollectorLink(ctx context.Context, eventID, assignmentID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, n.contextTimeout)
	defer cancel()

	event, err := n.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if ownerID != "" && event.Organizer.PromoterID != ownerID {
		return domain.ErrForbidden
	}
	a, ok := event.AssignmentByID(assignmentID)
	if !ok || !a.IsActive {
		return domain.ErrNotFound
	}
	collector, err := n.userRepo.GetByID(ctx, a.CollectorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("collector_id", "collector has no account")
		}
		return fmt.Errorf("get collector: %w", err)
	}
	data := &domain.CollectorInvitationEmailData{
		Email:          collector.Email,
		CollectorName:  a.CollectorName,
		PromoterName:   event.Organizer.PromoterName,
		EventName:      event.BasicInfo.Name,
		InvitationLink: a.InvitationLink,
	}
	if err := n.emailService.SendCollectorInvitation(ctx, data); err != nil {
		n.metrics.Notification("failed")
		return err
	}
	n.metrics.Notification("sent")
	return nil
}

// escapeHTMLValues returns a copy of vars safe to substitute into the HTML part.
// Guest details come from collectors and must not inject markup.
func escapeHTMLValues(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = html.EscapeString(v)
	}
	return out
}

// GuestVariables is the placeholder data available to templates sent to a guest.
// rsvp_link addresses the guest RSVP page of the web app served at baseURL; the
// API exposes no route under /rsvp.
func GuestVariables(baseURL string, e *domain.Event, g *domain.GuestlistEntry) map[string]string {
	data := map[string]string{
		"guest_name":  g.PersonalInfo.Name,
		"guest_email": g.PersonalInfo.Email,
		"guest_type":  g.BookingDetails.GuestType,
		"plus_ones":   fmt.Sprintf("%d", g.BookingDetails.PlusOnes),
		"event_name":  e.BasicInfo.Name,
		"venue":       e.BasicInfo.Venue,
		"rsvp_link":   fmt.Sprintf("%s/rsvp/%s?event=%s", baseURL, g.ID, e.ID),
	}
	if e.BasicInfo.Date != nil {
		d := *e.BasicInfo.Date
		data["event_date"] = d.Format("Monday, Jan 2")
		data["event_time"] = d.Format("3:04 PM")
	}
	return data
}
