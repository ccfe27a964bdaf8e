package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"guestlist/internal/domain"

	"github.com/stretchr/testify/require"
)

func testUser() *domain.User {
	u := domain.NewUser("alice@example.com", domain.RolePromoter, domain.UserProfile{FullName: "Alice"}, time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC))
	u.ID = "user-uuid-1"
	u.PasswordHash = "hash"
	u.Salt = "salt"
	return u
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		user  func() *domain.User
		mock  func(mock sqlmock.Sqlmock)
		errIs error
	}{
		{
			name: "success lowercases email",
			user: func() *domain.User {
				u := testUser()
				u.Email = " Alice@Example.com "
				return u
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users_doc (user_id, email, document, password_hash, salt, created_at, updated_at)`)).
					WithArgs("user-uuid-1", "alice@example.com", sqlmock.AnyArg(), "hash", "salt", created, created).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unique violation returns ErrDuplicateEmail",
			user: testUser,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users_doc`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			errIs: domain.ErrDuplicateEmail,
		},
		{
			name: "unknown role is rejected",
			user: func() *domain.User {
				u := testUser()
				u.Role = "owner"
				return u
			},
			mock:  func(mock sqlmock.Sqlmock) {},
			errIs: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewUserRepository(db).Create(ctx, tt.user())
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	doc, err := json.Marshal(testUser())
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT document, password_hash, salt\s+FROM users_doc\s+WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"document", "password_hash", "salt"}).AddRow(doc, "hash", "salt"))
	mock.ExpectQuery(`FROM users_doc`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	repo := NewUserRepository(db)
	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, testUser(), got)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users_doc`).
					WithArgs("alice@example.com", sqlmock.AnyArg(), "hash", "salt", time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC), "user-uuid-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantErr: false,
		},
		{
			name: "not found zero rows affected",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users_doc`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "unique violation returns ErrDuplicateEmail",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users_doc`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateEmail,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE users_doc`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
			errIs:   domain.ErrBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			err = repo.Update(ctx, testUser())
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ListByRole(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	collector := testUser()
	collector.Role = domain.RoleCollector
	doc, _ := json.Marshal(collector)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE document->>'role' = $1`)).
		WithArgs(domain.RoleCollector, "ali").
		WillReturnRows(sqlmock.NewRows([]string{"document", "password_hash", "salt"}).AddRow(doc, "hash", "salt"))

	got, err := NewUserRepository(db).ListByRole(ctx, domain.RoleCollector, " ali ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, domain.RoleCollector, got[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}
