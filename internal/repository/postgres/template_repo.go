package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"guestlist/internal/domain"
)

type templateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{DB: db}
}

func (r *templateRepository) Create(ctx context.Context, t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	query := `
		INSERT INTO templates_doc (template_id, created_by, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.DB.ExecContext(ctx, query, t.ID, t.Metadata.CreatedBy, string(doc), t.CreatedAt, t.UpdatedAt); err != nil {
		return domain.WrapBackend("insert template", err)
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	query := `SELECT document FROM templates_doc WHERE template_id = $1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend("get template", err)
	}
	return t, nil
}

func (r *templateRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Template, error) {
	query := `
		SELECT document
		FROM templates_doc
		WHERE created_by = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, domain.WrapBackend("list templates", err)
	}
	defer rows.Close()
	out := make([]*domain.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, domain.WrapBackend("list templates", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapBackend("list templates", err)
	}
	return out, nil
}

func (r *templateRepository) Update(ctx context.Context, t *domain.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	query := `UPDATE templates_doc SET document = $1, updated_at = $2 WHERE template_id = $3`
	result, err := r.DB.ExecContext(ctx, query, string(doc), t.UpdatedAt, t.ID)
	if err != nil {
		return domain.WrapBackend("update template", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM templates_doc WHERE template_id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return domain.WrapBackend("delete template", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		return nil, err
	}
	t := &domain.Template{}
	if err := json.Unmarshal(doc, t); err != nil {
		return nil, fmt.Errorf("decode template document: %w", err)
	}
	if t.Variables == nil {
		t.Variables = []string{}
	}
	return t, nil
}
