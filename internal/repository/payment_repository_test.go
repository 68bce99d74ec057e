package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPaymentRepository(pool, zerolog.Nop())
	txm := NewTxManager(pool, 5*time.Second, zerolog.Nop())
	seller := seedUser(t, pool, model.RoleSeller)
	customer := seedUser(t, pool, model.RoleCustomer)
	admin := seedUser(t, pool, model.RoleAdmin)
	products := seedProducts(t, pool, seller.ID, model.Product{Name: "Eggs", Category: "eggs", Price: decimal.NewFromInt(450), Stock: 5})
	order := seedOrder(t, pool, customer.ID, products...)

	ctx := context.Background()
	ref := "LIPIA-REF-1"
	now := time.Now()
	payment := &model.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Provider:  model.ProviderLipia,
		Status:    model.PaymentPending,
		Amount:    decimal.NewFromInt(650),
		Fee:       decimal.Zero,
		Phone:     "254712345678",
		Reference: &ref,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := txm.WithTx(ctx, "create payment", func(ctx context.Context, tx pgx.Tx) error {
		return repo.Create(ctx, tx, payment)
	})
	require.NoError(t, err)

	err = txm.WithTx(ctx, "approve payment", func(ctx context.Context, tx pgx.Tx) error {
		p, err := repo.GetByReferenceForUpdate(ctx, tx, ref)
		require.NoError(t, err)
		require.NotNil(t, p)

		receipt := "QAB12CD34E"
		p.Status = model.PaymentApproved
		p.MpesaReceipt = &receipt
		p.AmountPaid = decimal.NewNullDecimal(decimal.NewFromInt(650))
		if err := repo.Update(ctx, tx, p); err != nil {
			return err
		}
		return repo.AddApproval(ctx, tx, &model.Approval{
			ID:         uuid.New(),
			PaymentID:  p.ID,
			OrderID:    p.OrderID,
			ReviewerID: &admin.ID,
			Decision:   model.PaymentApproved,
			CreatedAt:  time.Now(),
		})
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.PaymentApproved, got.Status)
	require.True(t, got.AmountPaid.Valid)
	assert.True(t, got.AmountPaid.Decimal.Equal(decimal.NewFromInt(650)))

	list, err := repo.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Reusing the receipt on another payment is a conflict.
	dupReceipt := "QAB12CD34E"
	err = txm.WithTx(ctx, "duplicate receipt", func(ctx context.Context, tx pgx.Tx) error {
		return repo.Create(ctx, tx, &model.Payment{
			ID: uuid.New(), OrderID: order.ID, Provider: model.ProviderManual, Status: model.PaymentSubmitted,
			Amount: decimal.NewFromInt(650), Phone: "254712345678", MpesaReceipt: &dupReceipt,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		})
	})
	require.Error(t, err)
	assert.Equal(t, model.ErrCodeConflict, model.ErrorCode(err))
}

func TestPaymentRepository_RecordCallbackIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPaymentRepository(pool, zerolog.Nop())
	txm := NewTxManager(pool, 5*time.Second, zerolog.Nop())
	ctx := context.Background()

	record := func() bool {
		var fresh bool
		err := txm.WithTx(ctx, "callback", func(ctx context.Context, tx pgx.Tx) error {
			var err error
			fresh, err = repo.RecordCallback(ctx, tx, &model.CallbackRecord{
				ID:         uuid.New(),
				Provider:   model.ProviderIntaSend,
				ExternalID: "INV-42",
				Payload:    json.RawMessage(`{"invoice_id":"INV-42","state":"COMPLETE"}`),
				CreatedAt:  time.Now(),
			})
			return err
		})
		require.NoError(t, err)
		return fresh
	}

	assert.True(t, record())
	assert.False(t, record())

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_callbacks`).Scan(&count))
	assert.Equal(t, 1, count)
}
