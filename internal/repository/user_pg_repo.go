package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"forum-auth/internal/domain"
)

// pgxPool cubre lo que el repositorio usa de *pgxpool.Pool; pgxmock también lo implementa.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool pgxPool
}

func NewPgUserRepository(pool pgxPool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const (
	selectUserPublic = `
		SELECT id, name, email, '' AS password_hash, password_changed_at,
		       COALESCE(password_reset_token, ''), password_reset_expires, created_at
		FROM users
	`
	selectUserWithPassword = `
		SELECT id, name, email, password_hash, password_changed_at,
		       COALESCE(password_reset_token, ''), password_reset_expires, created_at
		FROM users
	`
)

func selectUser(opts LookupOptions) string {
	if opts.IncludePassword {
		return selectUserWithPassword
	}
	return selectUserPublic
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, email, password_hash, password_changed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PasswordChangedAt,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.ID).
			Wrap(err)
	}
	return nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string, opts LookupOptions) (domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUser(opts)+` WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, wrapLookupErr(err, "get user by id", "user_id", id)
	}
	return user, nil
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string, opts LookupOptions) (domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUser(opts)+` WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, wrapLookupErr(err, "get user by email", "", "")
	}
	return user, nil
}

func (r *PgUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error) {
	row := r.pool.QueryRow(ctx,
		selectUserPublic+` WHERE password_reset_token = $1 AND password_reset_expires > $2`,
		tokenHash, now,
	)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, wrapLookupErr(err, "get user by reset token", "", "")
	}
	return user, nil
}

const updateUser = `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, password_changed_at = $5,
		    password_reset_token = $6, password_reset_expires = $7
		WHERE id = $1
	`

func (r *PgUserRepository) Save(ctx context.Context, user domain.User) error {
	return r.update(ctx, user, updateUser, "update user")
}

func (r *PgUserRepository) ConsumeReset(ctx context.Context, user domain.User, tokenHash string) error {
	return r.update(ctx, user, updateUser+` AND password_reset_token = $8`, "consume reset token", tokenHash)
}

func (r *PgUserRepository) update(ctx context.Context, user domain.User, query, operation string, extra ...any) error {
	args := []any{
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PasswordChangedAt,
		nullIfEmpty(user.PasswordResetTokenHash),
		user.PasswordResetExpires,
	}
	tag, err := r.pool.Exec(ctx, query, append(args, extra...)...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return oops.Code("USER_SAVE_FAILED").
			With("operation", operation).
			With("user_id", user.ID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", user.ID).Wrap(ErrNotFound)
	}
	return nil
}

func (r *PgUserRepository) UpdateResetFields(ctx context.Context, id, tokenHash string, expiresAt *time.Time) error {
	if tokenHash == "" {
		expiresAt = nil
	}
	const query = `
		UPDATE users
		SET password_reset_token = $2, password_reset_expires = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, nullIfEmpty(tokenHash), expiresAt)
	if err != nil {
		return oops.Code("USER_RESET_FIELDS_FAILED").
			With("operation", "update reset fields").
			With("user_id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", id).Wrap(ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.PasswordChangedAt,
		&u.PasswordResetTokenHash,
		&u.PasswordResetExpires,
		&u.CreatedAt,
	)
	return u, err
}

func wrapLookupErr(err error, operation, key, value string) error {
	builder := oops.With("operation", operation)
	if key != "" {
		builder = builder.With(key, value)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return builder.Code("USER_NOT_FOUND").Wrap(ErrNotFound)
	}
	return builder.Code("USER_LOOKUP_FAILED").Wrap(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
