package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poultrymarket/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	defaultTxTimeout = 15 * time.Second
	defaultPageSize  = 20
	maxPageSize      = 100

	uniqueViolationCode = "23505"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txManager implements TxManager on a pgx pool.
type txManager struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  zerolog.Logger
}

// NewTxManager creates a transaction manager. A non-positive timeout falls back to 15s.
func NewTxManager(pool *pgxpool.Pool, timeout time.Duration, logger zerolog.Logger) TxManager {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &txManager{
		pool:    pool,
		timeout: timeout,
		logger:  logger.With().Str("repository", "tx").Logger(),
	}
}

// WithTx runs fn inside a transaction.
func (m *txManager) WithTx(ctx context.Context, reason string, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		m.logger.Error().Err(err).Str("reason", reason).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(tx, reason, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		m.rollback(tx, reason, err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		m.logger.Error().Err(err).Str("reason", reason).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (m *txManager) rollback(tx pgx.Tx, reason string, cause error) {
	// The tx context may already be done; rollback still needs a live one.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.Error().Err(err).Str("reason", reason).Msg("failed to roll back transaction")
		return
	}
	m.logger.Debug().AnErr("cause", cause).Str("reason", reason).Msg("transaction rolled back")
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// pageBounds clamps a page to sane limits.
func pageBounds(p model.Page) (int, int) {
	limit, offset := p.Limit, p.Offset
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
