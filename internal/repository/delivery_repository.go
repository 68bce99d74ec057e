package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const deliveryColumns = `id, order_id, agent_id, status, pickup_address, dropoff_address, estimated_at,
	delivered_at, created_at, updated_at`

// deliveryRepository implements the DeliveryRepository interface using PostgreSQL.
type deliveryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDeliveryRepository creates a new PostgreSQL-backed delivery repository.
func NewDeliveryRepository(pool *pgxpool.Pool, logger zerolog.Logger) DeliveryRepository {
	return &deliveryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "delivery").Logger(),
	}
}

// Create inserts a delivery for an order.
func (r *deliveryRepository) Create(ctx context.Context, tx pgx.Tx, d *model.Delivery) error {
	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		d.ID, d.OrderID, d.AgentID, d.Status, d.PickupAddress, d.DropoffAddress,
		d.EstimatedAt, d.DeliveredAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDomainError(model.ErrCodeConflict, "Order already has a delivery")
		}
		r.logger.Error().Err(err).Str("order_id", d.OrderID.String()).Msg("failed to create delivery")
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

// GetByID retrieves a delivery with its tracking updates.
func (r *deliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	return r.getOne(ctx, r.pool, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id, true)
}

// GetByOrder retrieves the delivery of an order with its tracking updates.
func (r *deliveryRepository) GetByOrder(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error) {
	return r.getOne(ctx, r.pool, `SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1`, orderID, true)
}

// GetForUpdate retrieves and locks a delivery inside tx. Updates are not loaded.
func (r *deliveryRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Delivery, error) {
	return r.getOne(ctx, tx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE`, id, false)
}

func (r *deliveryRepository) getOne(ctx context.Context, q querier, query string, arg any, withUpdates bool) (*model.Delivery, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query delivery")
		return nil, fmt.Errorf("failed to query delivery: %w", err)
	}

	d, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Delivery])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan delivery")
		return nil, fmt.Errorf("failed to scan delivery: %w", err)
	}

	if withUpdates {
		if d.Updates, err = r.Updates(ctx, d.ID); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// List returns deliveries, newest first.
func (r *deliveryRepository) List(ctx context.Context, agentID *uuid.UUID, page model.Page) ([]model.Delivery, error) {
	limit, offset := pageBounds(page)

	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE ($1::uuid IS NULL OR agent_id = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, agentID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query deliveries")
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}

	deliveries, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Delivery])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan delivery rows")
		return nil, fmt.Errorf("failed to scan deliveries: %w", err)
	}

	return deliveries, nil
}

// Update writes a delivery's status and delivered timestamp.
func (r *deliveryRepository) Update(ctx context.Context, tx pgx.Tx, d *model.Delivery) error {
	d.UpdatedAt = time.Now()

	query := `UPDATE deliveries SET status = $2, delivered_at = $3, updated_at = $4 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, d.ID, d.Status, d.DeliveredAt, d.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("failed to update delivery")
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDeliveryNotFound
	}

	return nil
}

// AddUpdate appends a tracking point.
func (r *deliveryRepository) AddUpdate(ctx context.Context, tx pgx.Tx, u *model.DeliveryUpdate) error {
	query := `
		INSERT INTO delivery_updates (id, delivery_id, status, latitude, longitude, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query, u.ID, u.DeliveryID, u.Status, u.Latitude, u.Longitude, u.Note, u.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("delivery_id", u.DeliveryID.String()).Msg("failed to add delivery update")
		return fmt.Errorf("failed to add delivery update: %w", err)
	}

	return nil
}

// Updates returns the tracking points of a delivery, oldest first.
func (r *deliveryRepository) Updates(ctx context.Context, deliveryID uuid.UUID) ([]model.DeliveryUpdate, error) {
	query := `
		SELECT id, delivery_id, status, latitude, longitude, note, created_at
		FROM delivery_updates
		WHERE delivery_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, deliveryID)
	if err != nil {
		r.logger.Error().Err(err).Str("delivery_id", deliveryID.String()).Msg("failed to query delivery updates")
		return nil, fmt.Errorf("failed to query delivery updates: %w", err)
	}

	updates, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.DeliveryUpdate])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan delivery update rows")
		return nil, fmt.Errorf("failed to scan delivery updates: %w", err)
	}

	return updates, nil
}
