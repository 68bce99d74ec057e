package repository

import (
	"context"
	"testing"
	"time"

	"poultrymarket/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool, zerolog.Nop())
	ctx := context.Background()
	now := time.Now()

	user := &model.User{
		ID:           uuid.New(),
		Email:        "Farmer@Example.com",
		PasswordHash: "hash",
		FullName:     "Wanjiku Farmer",
		Role:         model.RoleSeller,
		Status:       model.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "farmer@example.COM")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "farmer@example.com", got.Email)

	dup := *user
	dup.ID = uuid.New()
	assert.Equal(t, model.ErrEmailTaken, repo.Create(ctx, &dup))

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.Status = model.UserSuspended
	require.NoError(t, repo.Update(ctx, got))

	suspended, err := repo.List(ctx, model.UserFilter{Status: model.UserSuspended})
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.Equal(t, user.ID, suspended[0].ID)

	sellers, err := repo.List(ctx, model.UserFilter{Role: model.RoleCustomer})
	require.NoError(t, err)
	assert.Empty(t, sellers)
}

func TestUserRepository_Tokens(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool, zerolog.Nop())
	user := seedUser(t, pool, model.RoleCustomer)
	ctx := context.Background()

	token := &model.AuthToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: "abc123",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.CreateToken(ctx, token))

	got, err := repo.GetToken(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.RevokedAt)

	require.NoError(t, repo.RevokeToken(ctx, "abc123"))
	require.NoError(t, repo.RevokeToken(ctx, "abc123"))

	got, err = repo.GetToken(ctx, "abc123")
	require.NoError(t, err)
	assert.NotNil(t, got.RevokedAt)

	none, err := repo.GetToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, none)
}
