package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"guestlist/internal/domain"
)

const pqUniqueViolation = "23505"

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := u.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	query := `
		INSERT INTO users_doc (user_id, email, document, password_hash, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.DB.ExecContext(ctx, query, u.ID, u.Email, string(doc), u.PasswordHash, u.Salt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return domain.WrapBackend("insert user", err)
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT document, password_hash, salt
		FROM users_doc
		WHERE email = $1
	`
	return r.getOne(ctx, "get user by email", query, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT document, password_hash, salt
		FROM users_doc
		WHERE user_id = $1
	`
	return r.getOne(ctx, "get user", query, id)
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	query := `
		UPDATE users_doc
		SET email = $1, document = $2, password_hash = $3, salt = $4, updated_at = $5
		WHERE user_id = $6
	`
	result, err := r.DB.ExecContext(ctx, query, u.Email, string(doc), u.PasswordHash, u.Salt, u.UpdatedAt, u.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return domain.WrapBackend("update user", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role, search string) ([]*domain.User, error) {
	query := `
		SELECT document, password_hash, salt
		FROM users_doc
		WHERE document->>'role' = $1
		  AND ($2 = '' OR email ILIKE '%' || $2 || '%' OR document->'profile'->>'full_name' ILIKE '%' || $2 || '%')
		ORDER BY email
	`
	rows, err := r.DB.QueryContext(ctx, query, role, strings.TrimSpace(search))
	if err != nil {
		return nil, domain.WrapBackend("list users", err)
	}
	defer rows.Close()
	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.WrapBackend("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapBackend("list users", err)
	}
	return users, nil
}

func (r *userRepository) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.WrapBackend(op, err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var doc []byte
	u := &domain.User{}
	var hash, salt string
	if err := row.Scan(&doc, &hash, &salt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, u); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	u.PasswordHash = hash
	u.Salt = salt
	return u, nil
}
