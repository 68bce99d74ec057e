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

const orderColumns = `o.id, o.customer_id, o.status, o.payment_status, o.payment_method, o.subtotal,
	o.delivery_fee, o.discount, o.total, o.promo_code, o.delivery_address, o.delivery_phone, o.notes,
	o.created_at, o.updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts a new order, its items and its first timeline entries in one batch.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	orderQuery := `
		INSERT INTO orders (id, customer_id, status, payment_status, payment_method, subtotal,
			delivery_fee, discount, total, promo_code, delivery_address, delivery_phone, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, seller_id, product_name, unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	batch.Queue(orderQuery,
		order.ID, order.CustomerID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.Subtotal, order.DeliveryFee, order.Discount, order.Total, order.PromoCode,
		order.DeliveryAddress, order.DeliveryPhone, order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	for _, item := range order.Items {
		batch.Queue(itemQuery,
			item.ID, item.OrderID, item.ProductID, item.SellerID, item.ProductName,
			item.UnitPrice, item.Quantity, item.LineTotal,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Int("statement", i).
				Msg("failed to create order")
			return fmt.Errorf("failed to create order: %w", err)
		}
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("items", len(order.Items)).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetForUpdate retrieves and locks an order inside tx.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, tx, id, true)
}

func (r *orderRepository) get(ctx context.Context, q querier, id uuid.UUID, lock bool) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	order, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Order])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to scan order")
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	items, err := r.items(ctx, q, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	return order, nil
}

// items loads the line items of the given orders, grouped by order id.
func (r *orderRepository) items(ctx context.Context, q querier, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, seller_id, product_name, unit_price, quantity, line_total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY product_name, id
	`

	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(orderIDs)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.OrderItem])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan order item rows")
		return nil, fmt.Errorf("failed to scan order items: %w", err)
	}

	grouped := make(map[uuid.UUID][]model.OrderItem, len(orderIDs))
	for _, item := range items {
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}

	return grouped, nil
}

// List returns orders visible under the filter's scope, newest first.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	limit, offset := pageBounds(filter.Page)

	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE ($1::uuid IS NULL OR o.customer_id = $1)
		  AND ($2::uuid IS NULL OR EXISTS (
		        SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.seller_id = $2))
		  AND ($3::uuid IS NULL OR EXISTS (
		        SELECT 1 FROM deliveries d WHERE d.order_id = o.id AND d.agent_id = $3))
		  AND ($4 = '' OR o.status = $4)
		  AND ($5 = '' OR o.payment_status = $5)
		ORDER BY o.created_at DESC
		LIMIT $6 OFFSET $7
	`

	rows, err := r.pool.Query(ctx, query,
		filter.CustomerID, filter.SellerID, filter.AgentID,
		string(filter.Status), string(filter.PaymentStatus), limit, offset,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Order])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan order rows")
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	items, err := r.items(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// UpdateStatus writes the order's status and payment status.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	order.UpdatedAt = time.Now()

	query := `UPDATE orders SET status = $2, payment_status = $3, updated_at = $4 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, order.ID, order.Status, order.PaymentStatus, order.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Str("payment_status", string(order.PaymentStatus)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// AddTimeline appends a timeline entry.
func (r *orderRepository) AddTimeline(ctx context.Context, tx pgx.Tx, entry model.TimelineEntry) error {
	query := `
		INSERT INTO order_timeline (id, order_id, event, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query, entry.ID, entry.OrderID, entry.Event, entry.Note, entry.ActorID, entry.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("order_id", entry.OrderID.String()).
			Str("event", entry.Event).
			Msg("failed to add timeline entry")
		return fmt.Errorf("failed to add timeline entry: %w", err)
	}

	return nil
}

// Timeline returns an order's history, oldest first. Entries sharing a
// timestamp come back in insertion order.
func (r *orderRepository) Timeline(ctx context.Context, orderID uuid.UUID) ([]model.TimelineEntry, error) {
	query := `
		SELECT id, order_id, event, note, actor_id, created_at
		FROM order_timeline
		WHERE order_id = $1
		ORDER BY created_at, seq
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query timeline")
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.TimelineEntry])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan timeline rows")
		return nil, fmt.Errorf("failed to scan timeline: %w", err)
	}

	return entries, nil
}
