//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/nurpe/giga-contracts/internal/config"
	"github.com/nurpe/giga-contracts/internal/db"
)

// PostgresContainer is a migrated postgres instance for integration tests.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	DSN       string
	DB        *gorm.DB
}

// NewPostgresContainer starts postgres, applies the schema and registers
// cleanup on t.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("contracts"),
		tcpostgres.WithUsername("contracts"),
		tcpostgres.WithPassword("contracts"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	database, err := db.New(&config.Config{
		Environment: "test",
		DB: config.DBConfig{
			DSN:          dsn,
			MaxOpenConns: 20,
			MaxIdleConns: 5,
		},
	}, zerolog.Nop())
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        database,
	}
}

// Truncate empties every table. Use between tests to ensure isolation.
func (p *PostgresContainer) Truncate(t *testing.T) {
	t.Helper()
	err := p.DB.Exec(`
		TRUNCATE TABLE
			status_transitions,
			payments,
			expected_metrics,
			contract_attachments,
			contract_schools,
			contracts,
			drafts,
			measures,
			attachments,
			metrics,
			schools,
			lta_isps,
			ltas,
			isps,
			frequencies,
			currencies,
			countries
		CASCADE
	`).Error
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
