package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-auth/internal/domain"
)

var userColumns = []string{
	"id", "name", "email", "password_hash", "password_changed_at",
	"password_reset_token", "password_reset_expires", "created_at",
}

func newMockRepo(t *testing.T) (*PgUserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return NewPgUserRepository(mock), mock
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestPgUserRepository_Create(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	user := domain.User{
		ID:           "u1",
		Name:         "Ann",
		Email:        "a@x.com",
		PasswordHash: "$2a$hash",
		CreatedAt:    created,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "inserts user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "Ann", "a@x.com", "$2a$hash", (*time.Time)(nil), created).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "maps unique violation to duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "Ann", "a@x.com", "$2a$hash", (*time.Time)(nil), created).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: ErrDuplicateEmail,
		},
		{
			name: "wraps other failures",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "Ann", "a@x.com", "$2a$hash", (*time.Time)(nil), created).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setupMock(mock)

			err := repo.Create(context.Background(), user)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				require.Error(t, err)
				assertCode(t, err, tt.wantCode)
				assert.Contains(t, err.Error(), "connection refused")
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPgUserRepository_GetByIDOmitsPasswordByDefault(t *testing.T) {
	repo, mock := newMockRepo(t)
	changed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	created := changed.Add(-time.Hour)

	rows := pgxmock.NewRows(userColumns).
		AddRow("u1", "Ann", "a@x.com", "", &changed, "", (*time.Time)(nil), created)
	mock.ExpectQuery(`'' AS password_hash`).
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), "u1", LookupOptions{})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Empty(t, user.PasswordHash)
	require.NotNil(t, user.PasswordChangedAt)
	assert.True(t, changed.Equal(*user.PasswordChangedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_GetByEmailWithPassword(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(userColumns).
		AddRow("u1", "Ann", "a@x.com", "$2a$hash", (*time.Time)(nil), "", (*time.Time)(nil), created)
	mock.ExpectQuery(`SELECT id, name, email, password_hash`).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "a@x.com", WithPassword)
	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_GetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("ghost@x.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@x.com", LookupOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
	assertCode(t, err, "USER_NOT_FOUND")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_GetByResetTokenFiltersExpiry(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(5 * time.Minute)

	rows := pgxmock.NewRows(userColumns).
		AddRow("u1", "Ann", "a@x.com", "", (*time.Time)(nil), "abc", &expires, now)
	mock.ExpectQuery(`password_reset_token = \$1 AND password_reset_expires > \$2`).
		WithArgs("abc", now).
		WillReturnRows(rows)

	user, err := repo.GetByResetToken(context.Background(), "abc", now)
	require.NoError(t, err)
	assert.Equal(t, "abc", user.PasswordResetTokenHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_Save(t *testing.T) {
	changed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	user := domain.User{
		ID:                "u1",
		Name:              "Ann",
		Email:             "a@x.com",
		PasswordHash:      "$2a$new",
		PasswordChangedAt: &changed,
	}

	t.Run("clears reset fields as NULL", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("u1", "Ann", "a@x.com", "$2a$new", &changed, nil, (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Save(context.Background(), user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("u1", "Ann", "a@x.com", "$2a$new", &changed, nil, (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Save(context.Background(), user)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgUserRepository_ConsumeReset(t *testing.T) {
	changed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	user := domain.User{
		ID:                "u1",
		Name:              "Ann",
		Email:             "a@x.com",
		PasswordHash:      "$2a$new",
		PasswordChangedAt: &changed,
	}

	t.Run("matches on the stored reset hash", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`AND password_reset_token = \$8`).
			WithArgs("u1", "Ann", "a@x.com", "$2a$new", &changed, nil, (*time.Time)(nil), "reset-hash").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.ConsumeReset(context.Background(), user, "reset-hash"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already consumed", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`AND password_reset_token = \$8`).
			WithArgs("u1", "Ann", "a@x.com", "$2a$new", &changed, nil, (*time.Time)(nil), "reset-hash").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.ConsumeReset(context.Background(), user, "reset-hash")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgUserRepository_UpdateResetFields(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC)

	t.Run("writes hash and expiry", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`SET password_reset_token = \$2, password_reset_expires = \$3`).
			WithArgs("u1", "hash", &expires).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateResetFields(context.Background(), "u1", "hash", &expires))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty hash clears both fields", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`SET password_reset_token = \$2, password_reset_expires = \$3`).
			WithArgs("u1", nil, (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateResetFields(context.Background(), "u1", "", &expires))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error carries code", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`SET password_reset_token`).
			WithArgs("u1", "hash", &expires).
			WillReturnError(errors.New("timeout"))

		err := repo.UpdateResetFields(context.Background(), "u1", "hash", &expires)
		assertCode(t, err, "USER_RESET_FIELDS_FAILED")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
