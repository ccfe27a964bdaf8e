package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"guestlist/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `document, version`

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	query := `
		INSERT INTO events_doc (event_id, pr_id, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5)
	`
	if _, err := r.DB.ExecContext(ctx, query, e.ID, e.Organizer.PromoterID, string(doc), e.CreatedAt, e.UpdatedAt); err != nil {
		return domain.WrapBackend("insert event", err)
	}
	e.Version = 1
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events_doc WHERE event_id = $1`
	return r.getOne(ctx, "get event", query, id)
}

func (r *eventRepository) ListByPromoterID(ctx context.Context, promoterID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events_doc
		WHERE pr_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, promoterID)
	if err != nil {
		return nil, domain.WrapBackend("list events", err)
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, domain.WrapBackend("list events", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapBackend("list events", err)
	}
	return events, nil
}

func (r *eventRepository) GetByActiveToken(ctx context.Context, token string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events_doc
		WHERE document->'collector_assignments' @> jsonb_build_array(jsonb_build_object('unique_token', $1::text, 'is_active', true))
		LIMIT 1
	`
	return r.getOne(ctx, "get event by token", query, token)
}

func (r *eventRepository) GetByGuestID(ctx context.Context, guestID string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events_doc
		WHERE document->'guestlist' @> jsonb_build_array(jsonb_build_object('guest_id', $1::text))
		LIMIT 1
	`
	return r.getOne(ctx, "get event by guest", query, guestID)
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	query := `
		UPDATE events_doc
		SET document = $1, version = version + 1, updated_at = $2
		WHERE event_id = $3 AND version = $4
	`
	result, err := r.DB.ExecContext(ctx, query, string(doc), e.UpdatedAt, e.ID, e.Version)
	if err != nil {
		return domain.WrapBackend("update event", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.WrapBackend("update event", err)
	}
	if n == 0 {
		return r.missOrConflict(ctx, e.ID)
	}
	e.Version++
	return nil
}

// missOrConflict tells a lost version race apart from a deleted row.
func (r *eventRepository) missOrConflict(ctx context.Context, id string) error {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM events_doc WHERE event_id = $1`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return domain.WrapBackend("update event", err)
	}
	return domain.ErrVersionConflict
}

func (r *eventRepository) getOne(ctx context.Context, op, query string, arg any) (*domain.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend(op, err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		return nil, err
	}
	e := &domain.Event{}
	if err := json.Unmarshal(doc, e); err != nil {
		return nil, fmt.Errorf("decode event document: %w", err)
	}
	e.Version = version
	if e.CollectorAssignments == nil {
		e.CollectorAssignments = []domain.CollectorAssignment{}
	}
	if e.Guestlist == nil {
		e.Guestlist = []domain.GuestlistEntry{}
	}
	return e, nil
}
