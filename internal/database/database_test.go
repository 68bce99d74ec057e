package database

import (
	"context"
	"testing"
	"time"

	"poultrymarket/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a disposable PostgreSQL container and returns its config.
func startPostgres(t *testing.T) (config.DatabaseConfig, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		Database:        "testdb",
		SSLMode:         "disable",
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}

	return cfg, func() { _ = pgContainer.Terminate(ctx) }
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u:p@localhost/db", "pgx5://u:p@localhost/db"},
		{"pgx5://already", "pgx5://already"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrate_UnknownDirection(t *testing.T) {
	err := Migrate("postgres://u:p@localhost:1/db", Direction("sideways"), zerolog.Nop())
	require.Error(t, err)
}

func TestNewPool_Unreachable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:           "invalid-host",
		Port:           5432,
		User:           "user",
		Password:       "pass",
		Database:       "testdb",
		MaxConnections: 2,
		MinConnections: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, pool)
}

func TestMigrate_UpAndDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	cfg, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	logger := zerolog.Nop()

	pool, err := NewPool(ctx, cfg, logger)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, Migrate(cfg.ConnectionString(), Up, logger))
	// A second run is a no-op.
	require.NoError(t, Migrate(cfg.ConnectionString(), Up, logger))

	info, err := Inspect(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, "testdb", info.Database)
	assert.Contains(t, info.Version, "PostgreSQL")
	// 17 domain tables plus schema_migrations.
	assert.Equal(t, 18, info.Tables)

	require.NoError(t, Migrate(cfg.ConnectionString(), Down, logger))

	info, err = Inspect(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Tables)
}
