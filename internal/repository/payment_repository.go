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

const paymentColumns = `id, order_id, provider, status, amount, fee, phone, reference, mpesa_receipt,
	amount_paid, failure_reason, created_at, updated_at`

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

// Create inserts a payment attempt. A reused M-Pesa receipt or gateway
// reference yields model.ErrDuplicate.
func (r *paymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := tx.Exec(ctx, query,
		p.ID, p.OrderID, p.Provider, p.Status, p.Amount, p.Fee, p.Phone, p.Reference, p.MpesaReceipt,
		p.AmountPaid, p.FailureReason, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDomainError(model.ErrCodeConflict, "Payment reference or M-Pesa code has already been used")
		}
		r.logger.Error().Err(err).
			Str("payment_id", p.ID.String()).
			Str("order_id", p.OrderID.String()).
			Msg("failed to create payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment.
func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return r.getOne(ctx, r.pool, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetForUpdate retrieves and locks a payment inside tx.
func (r *paymentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error) {
	return r.getOne(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

// GetByReferenceForUpdate retrieves and locks the payment carrying a gateway reference.
func (r *paymentRepository) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*model.Payment, error) {
	return r.getOne(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1 FOR UPDATE`, reference)
}

func (r *paymentRepository) getOne(ctx context.Context, q querier, query string, arg any) (*model.Payment, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query payment")
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Payment])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan payment")
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	return p, nil
}

// ListByOrder returns an order's payment attempts, newest first.
func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query payments")
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	payments, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Payment])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan payment rows")
		return nil, fmt.Errorf("failed to scan payments: %w", err)
	}

	return payments, nil
}

// Update writes the reconciliation fields of a payment.
func (r *paymentRepository) Update(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	p.UpdatedAt = time.Now()

	query := `
		UPDATE payments
		SET status = $2, reference = $3, mpesa_receipt = $4, amount_paid = $5, failure_reason = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, p.ID, p.Status, p.Reference, p.MpesaReceipt, p.AmountPaid, p.FailureReason, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDomainError(model.ErrCodeConflict, "M-Pesa receipt has already been used")
		}
		r.logger.Error().Err(err).Str("payment_id", p.ID.String()).Msg("failed to update payment")
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

// AddApproval appends a review decision to the audit log.
func (r *paymentRepository) AddApproval(ctx context.Context, tx pgx.Tx, a *model.Approval) error {
	query := `
		INSERT INTO payment_approvals (id, payment_id, order_id, reviewer_id, decision, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.Exec(ctx, query, a.ID, a.PaymentID, a.OrderID, a.ReviewerID, a.Decision, a.Reason, a.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", a.PaymentID.String()).Msg("failed to add payment approval")
		return fmt.Errorf("failed to add payment approval: %w", err)
	}

	return nil
}

// RecordCallback inserts the callback unless it has been seen before.
func (r *paymentRepository) RecordCallback(ctx context.Context, tx pgx.Tx, rec *model.CallbackRecord) (bool, error) {
	query := `
		INSERT INTO payment_callbacks (id, provider, external_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, external_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, rec.ID, rec.Provider, rec.ExternalID, rec.Payload, rec.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("provider", string(rec.Provider)).
			Str("external_id", rec.ExternalID).
			Msg("failed to record payment callback")
		return false, fmt.Errorf("failed to record payment callback: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Info().
			Str("provider", string(rec.Provider)).
			Str("external_id", rec.ExternalID).
			Msg("duplicate payment callback ignored")
		return false, nil
	}

	return true, nil
}
