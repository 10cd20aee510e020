package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Expected schema: users(id uuid default gen_random_uuid(), email text unique,
// name text, username text, password_hash text, roles text[], enabled bool,
// confirmation_token text unique null, password_reset_requested_at timestamptz
// null, custom_fields jsonb, created_at, updated_at).
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, name, username, password_hash, roles, enabled,
	confirmation_token, password_reset_requested_at, custom_fields, created_at, updated_at`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByConfirmationToken(ctx context.Context, token string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE confirmation_token = $1`, token)
	return scanUser(row)
}

func (r *UserRepository) FindByInviter(ctx context.Context, inviterID string) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE custom_fields->>'invited_by' = $1 ORDER BY created_at`,
		inviterID)
	if err != nil {
		return nil, fmt.Errorf("query by inviter: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, username, password_hash, roles, enabled,
			confirmation_token, password_reset_requested_at, custom_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		u.Email, u.Name, u.Username, u.PasswordHash, u.Roles, u.Enabled,
		u.ConfirmationToken, u.PasswordResetRequestedAt, u.CustomFields)

	created, err := scanUser(row)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, name = $3, username = $4, password_hash = $5, roles = $6,
			enabled = $7, confirmation_token = $8, password_reset_requested_at = $9,
			custom_fields = $10, updated_at = now()
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.Username, u.PasswordHash, u.Roles,
		u.Enabled, u.ConfirmationToken, u.PasswordResetRequestedAt, u.CustomFields)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeToken is conditioned on the token still matching at write time, so
// two concurrent resets of the same token leave exactly one winner.
func (r *UserRepository) ConsumeToken(ctx context.Context, u *domain.User, token string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $3, password_hash = $4, enabled = $5,
			confirmation_token = NULL, password_reset_requested_at = NULL,
			updated_at = now()
		WHERE id = $1 AND confirmation_token = $2`,
		u.ID, token, u.Email, u.PasswordHash, u.Enabled)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (r *UserRepository) CountStaleTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE confirmation_token IS NOT NULL AND password_reset_requested_at < $1`,
		cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stale tokens: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Username, &u.PasswordHash,
		&u.Roles, &u.Enabled, &u.ConfirmationToken, &u.PasswordResetRequestedAt,
		&u.CustomFields, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// duplicateKeyError maps a unique violation onto the right domain error by
// constraint. An email collision is the caller's conflict; a confirmation
// token collision means the generator repeated itself and is surfaced as an
// internal failure, never as ErrEmailUsed.
func duplicateKeyError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "confirmation_token") {
		return fmt.Errorf("confirmation token collision: %w", err)
	}
	return domain.ErrEmailUsed
}
