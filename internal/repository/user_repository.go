package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

const userColumns = `
	id, name, email, password_hash, role, refresh_token_hash, reset_token_hash, reset_expires_at, created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// UserUpdate carries the optional fields of a partial user update.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *models.UserRole
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		id, err := nextSequence(ctx, tx, CounterUserID)
		if err != nil {
			return err
		}
		user.ID = id
		return tx.QueryRow(ctx, query,
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			string(user.Role),
		).Scan(&user.CreatedAt, &user.UpdatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByRefreshHash(ctx context.Context, hash []byte) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token_hash = $1`
	return scanUser(r.pool.QueryRow(ctx, query, hash))
}

func (r *UserRepository) FindByResetHash(ctx context.Context, hash string, now time.Time) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1 AND reset_expires_at > $2`
	return scanUser(r.pool.QueryRow(ctx, query, hash, now))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetRefreshToken overwrites the stored refresh token digest; nil clears it.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id int64, hash []byte) error {
	const query = `UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, hash)
}

// RotateRefreshToken replaces the digest only if it still equals previous.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id int64, previous []byte, next []byte) error {
	const query = `
		UPDATE users SET refresh_token_hash = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, previous, next)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleRefreshToken
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id int64, hash string, expiresAt time.Time) error {
	const query = `
		UPDATE users SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id, hash, expiresAt)
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id int64) error {
	const query = `
		UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

// UpdatePassword stores a new password hash and consumes any reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error {
	const query = `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *UserRepository) Update(ctx context.Context, id int64, update UserUpdate) (models.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    role = COALESCE($4, role),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var role *string
	if update.Role != nil {
		value := string(*update.Role)
		role = &value
	}

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, update.Name, update.Email, role))
	if err != nil && isUniqueViolation(err) {
		return models.User{}, ErrEmailTaken
	}
	return user, err
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users SET reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE reset_expires_at IS NOT NULL AND reset_expires_at <= $1
	`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.RefreshTokenHash,
		&user.ResetTokenHash,
		&user.ResetExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	user.Role = models.UserRole(role)
	return user, nil
}
