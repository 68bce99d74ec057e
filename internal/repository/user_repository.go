package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const userColumns = `id, email, password_hash, full_name, phone, role, status, created_at, updated_at`

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

// Create inserts a new user.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.FullName, user.Phone,
		user.Role, user.Status, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		r.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by id.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan user")
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

// Update persists profile, role and status changes.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET full_name = $2, phone = $3, password_hash = $4, role = $5, status = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		user.ID, user.FullName, user.Phone, user.PasswordHash, user.Role, user.Status, user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update user")
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}

	return nil
}

// List returns users matching the filter, newest first.
func (r *userRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	limit, offset := pageBounds(filter.Page)

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, string(filter.Role), string(filter.Status), limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query users")
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.User])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan user rows")
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	return users, nil
}

// CreateToken stores a hashed session token.
func (r *userRepository) CreateToken(ctx context.Context, token *model.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", token.UserID.String()).Msg("failed to create auth token")
		return fmt.Errorf("failed to create auth token: %w", err)
	}

	return nil
}

// GetToken finds a token by its hash. Revoked and expired tokens are returned as-is.
func (r *userRepository) GetToken(ctx context.Context, tokenHash string) (*model.AuthToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM auth_tokens
		WHERE token_hash = $1
	`

	rows, err := r.pool.Query(ctx, query, tokenHash)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query auth token")
		return nil, fmt.Errorf("failed to query auth token: %w", err)
	}

	token, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.AuthToken])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan auth token")
		return nil, fmt.Errorf("failed to scan auth token: %w", err)
	}

	return token, nil
}

// RevokeToken marks a token as revoked. Revoking twice is harmless.
func (r *userRepository) RevokeToken(ctx context.Context, tokenHash string) error {
	query := `UPDATE auth_tokens SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`

	if _, err := r.pool.Exec(ctx, query, tokenHash); err != nil {
		r.logger.Error().Err(err).Msg("failed to revoke auth token")
		return fmt.Errorf("failed to revoke auth token: %w", err)
	}

	return nil
}
