package repository

import (
	"context"
	"fmt"

	"poultrymarket/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type statsRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStatsRepository creates the admin dashboard aggregate queries.
func NewStatsRepository(pool *pgxpool.Pool, logger zerolog.Logger) StatsRepository {
	return &statsRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "stats").Logger(),
	}
}

// Stats counts users per role, orders per status and sums approved order totals.
func (r *statsRepository) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		UsersByRole:    make(map[model.Role]int),
		OrdersByStatus: make(map[model.OrderStatus]int),
	}

	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to count users")
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	for rows.Next() {
		var role model.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		stats.UsersByRole[role] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user counts: %w", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	for rows.Next() {
		var status model.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		stats.OrdersByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order counts: %w", err)
	}

	var revenue decimal.Decimal
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM orders WHERE payment_status = 'APPROVED' AND status <> 'CANCELLED'`,
	).Scan(&revenue)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to sum revenue")
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	stats.ApprovedRevenue = revenue.StringFixed(2)

	return stats, nil
}
