package repository

import (
	"context"
	"testing"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedProducts inserts test products for seller into the database.
func seedProducts(t *testing.T, pool *pgxpool.Pool, seller uuid.UUID, specs ...model.Product) []model.Product {
	repo := NewProductRepository(pool, zerolog.Nop())
	now := time.Now()

	out := make([]model.Product, 0, len(specs))
	for i, p := range specs {
		p.ID = uuid.New()
		p.SellerID = seller
		p.IsActive = true
		if p.Unit == "" {
			p.Unit = "tray"
		}
		p.CreatedAt = now.Add(time.Duration(i) * time.Second)
		p.UpdatedAt = p.CreatedAt
		require.NoError(t, repo.Create(context.Background(), &p))
		out = append(out, p)
	}
	return out
}

func TestProductRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seller := seedUser(t, pool, model.RoleSeller)

	products := seedProducts(t, pool, seller.ID, model.Product{
		Name:      "Kienyeji Eggs",
		Category:  "eggs",
		Price:     decimal.RequireFromString("450.00"),
		Stock:     10,
		ImageURLs: []string{"https://cdn.example.com/eggs.jpg"},
	})

	ctx := context.Background()

	got, err := repo.GetByID(ctx, products[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kienyeji Eggs", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("450")))
	assert.Equal(t, []string{"https://cdn.example.com/eggs.jpg"}, got.ImageURLs)
	assert.Equal(t, seller.ID, got.SellerID)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seller := seedUser(t, pool, model.RoleSeller)
	other := seedUser(t, pool, model.RoleCompany)

	seedProducts(t, pool, seller.ID,
		model.Product{Name: "Broiler Chicks", Category: "chicks", Price: decimal.NewFromInt(120), Stock: 100},
		model.Product{Name: "Layer Chicks", Category: "chicks", Price: decimal.NewFromInt(140), Stock: 100},
		model.Product{Name: "Layers Mash", Category: "feed", Price: decimal.NewFromInt(3200), Stock: 5, Description: "70kg bag"},
	)
	hidden := seedProducts(t, pool, other.ID,
		model.Product{Name: "Old Feeder", Category: "equipment", Price: decimal.NewFromInt(800), Stock: 1},
	)
	require.NoError(t, repo.Deactivate(context.Background(), hidden[0].ID))

	tests := []struct {
		name     string
		filter   model.ProductFilter
		expected int
	}{
		{name: "All active products", filter: model.ProductFilter{}, expected: 3},
		{name: "By category", filter: model.ProductFilter{Category: "chicks"}, expected: 2},
		{name: "Search in description", filter: model.ProductFilter{Search: "70KG"}, expected: 1},
		{name: "By seller", filter: model.ProductFilter{SellerID: &other.ID}, expected: 0},
		{name: "Paged", filter: model.ProductFilter{Page: model.Page{Limit: 2, Offset: 2}}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.List(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.Len(t, products, tt.expected)
		})
	}
}

func TestProductRepository_Stock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	txm := NewTxManager(pool, 5*time.Second, zerolog.Nop())
	seller := seedUser(t, pool, model.RoleSeller)
	products := seedProducts(t, pool, seller.ID,
		model.Product{Name: "Eggs", Category: "eggs", Price: decimal.NewFromInt(450), Stock: 3},
	)
	id := products[0].ID
	ctx := context.Background()

	var ok bool
	err := txm.WithTx(ctx, "decrement", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		ok, err = repo.DecrementStock(ctx, tx, id, 2)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ok)

	err = txm.WithTx(ctx, "oversell", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		ok, err = repo.DecrementStock(ctx, tx, id, 2)
		return err
	})
	require.NoError(t, err)
	assert.False(t, ok, "only one unit left")

	err = txm.WithTx(ctx, "restore", func(ctx context.Context, tx pgx.Tx) error {
		return repo.RestoreStock(ctx, tx, []model.OrderItem{{ProductID: id, Quantity: 2}})
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestProductRepository_UpdateAndDeactivate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seller := seedUser(t, pool, model.RoleSeller)
	products := seedProducts(t, pool, seller.ID,
		model.Product{Name: "Eggs", Category: "eggs", Price: decimal.NewFromInt(450), Stock: 3},
	)
	ctx := context.Background()

	p := products[0]
	p.Price = decimal.NewFromInt(500)
	p.ImageURLs = nil
	require.NoError(t, repo.Update(ctx, &p))

	require.NoError(t, repo.Deactivate(ctx, p.ID))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(500)))

	assert.Equal(t, model.ErrProductNotFound, repo.Deactivate(ctx, uuid.New()))
}

func TestProductRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	// Close the pool to simulate database errors
	pool.Close()

	ctx := context.Background()

	products, err := repo.List(ctx, model.ProductFilter{})
	require.Error(t, err)
	assert.Nil(t, products)

	product, err := repo.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Nil(t, product)

	products, err = repo.GetByIDs(ctx, []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.Nil(t, products)
}
