package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"guestlist/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEventRepo is an in-memory versioned EventRepository. Reads and writes
// copy the document so callers never share state with the store.
type fakeEventRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Event
	updates int
	// conflicts makes the next N updates lose the version race.
	conflicts int
	err       error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event)}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.Version = 1
	f.byID[e.ID] = e.Clone()
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if e, ok := f.byID[id]; ok {
		return e.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListByPromoterID(ctx context.Context, promoterID string) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if e.Organizer.PromoterID == promoterID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeEventRepo) GetByActiveToken(ctx context.Context, token string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if _, ok := e.AssignmentByToken(token); ok {
			return e.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) GetByGuestID(ctx context.Context, guestID string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if _, ok := e.GuestByID(guestID); ok {
			return e.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := e.Validate(); err != nil {
		return err
	}
	stored, ok := f.byID[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if f.conflicts > 0 {
		f.conflicts--
		stored.Version++
		return domain.ErrVersionConflict
	}
	if stored.Version != e.Version {
		return domain.ErrVersionConflict
	}
	e.Version++
	f.byID[e.ID] = e.Clone()
	f.updates++
	return nil
}

func (f *fakeEventRepo) stored(id string) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Clone()
}

type fakeUserRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	err   error
	saves int
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.saves++
	return nil
}

func (f *fakeUserRepo) ListByRole(ctx context.Context, role, search string) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]*domain.User, 0)
	for _, u := range f.byID {
		if u.Role != role {
			continue
		}
		if search != "" && !strings.Contains(u.Email, search) && !strings.Contains(strings.ToLower(u.Profile.FullName), search) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type fakeTemplateRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Template
}

func newFakeTemplateRepo(templates ...*domain.Template) *fakeTemplateRepo {
	f := &fakeTemplateRepo{byID: make(map[string]*domain.Template)}
	for _, t := range templates {
		f.byID[t.ID] = t
	}
	return f
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Template, 0)
	for _, t := range f.byID {
		if t.Metadata.CreatedBy == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[t.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeFeed struct {
	mu        sync.Mutex
	published []domain.Change
	err       error
}

func (f *fakeFeed) Publish(ctx context.Context, topic string, c domain.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, c)
	return nil
}

func (f *fakeFeed) Subscribe(ctx context.Context, topic string) (domain.Subscription, error) {
	return nil, errors.New("not supported")
}

func (f *fakeFeed) kinds(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.published {
		if c.Topic == topic {
			out = append(out, c.Kind)
		}
	}
	return out
}

type sentMail struct {
	To, Subject, HTML, Text string
}

type fakeMailer struct {
	mu sync.Mutex
	// failures makes the next N sends fail.
	failures int
	sent     []sentMail
	calls    int
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, html, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html, Text: text})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeRenderer struct{}

func (fakeRenderer) Render(name string, data any) (string, string, string, error) {
	return "subject:" + name, "<p>" + name + "</p>", name, nil
}

type fakeEmailService struct {
	resets      []*domain.PasswordResetEmailData
	invitations []*domain.CollectorInvitationEmailData
	err         error
}

func (f *fakeEmailService) SendPasswordReset(ctx context.Context, d *domain.PasswordResetEmailData) error {
	f.resets = append(f.resets, d)
	return f.err
}

func (f *fakeEmailService) SendCollectorInvitation(ctx context.Context, d *domain.CollectorInvitationEmailData) error {
	f.invitations = append(f.invitations, d)
	return f.err
}

type fakeSessionStore struct {
	sessions   map[string]string
	resetCodes map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]string{}, resetCodes: map[string]string{}}
}

func (s *fakeSessionStore) Save(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	s.sessions[sessionID] = userID
	return nil
}

func (s *fakeSessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	return nil
}

func (s *fakeSessionStore) SaveResetCode(ctx context.Context, email, codeHash string, ttl time.Duration) error {
	s.resetCodes[email] = codeHash
	return nil
}

func (s *fakeSessionStore) ConsumeResetCode(ctx context.Context, email, codeHash string) (bool, error) {
	stored, ok := s.resetCodes[email]
	if !ok || stored != codeHash {
		return false, nil
	}
	delete(s.resetCodes, email)
	return true, nil
}

// fakeHasher stores "salt:password" as the hash.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) { return salt + ":" + password, nil }

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokens issues "tok-<sessionID>" and verifies tokens it issued.
type fakeTokens struct {
	claims map[string]*domain.TokenClaims
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{claims: map[string]*domain.TokenClaims{}}
}

func (f *fakeTokens) Issue(sessionID, userID, email, role string, expiry time.Duration) (string, error) {
	token := "tok-" + sessionID
	f.claims[token] = &domain.TokenClaims{SessionID: sessionID, UserID: userID, Email: email, Role: role, ExpiresAt: time.Now().Add(expiry)}
	return token, nil
}

func (f *fakeTokens) Verify(token string) (*domain.TokenClaims, error) {
	c, ok := f.claims[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return c, nil
}
