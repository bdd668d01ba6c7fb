package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ktanui/circulate/internal/config"
)

// Database owns the pgx connection pool shared by every store.
type Database struct {
	Pool *pgxpool.Pool
}

// Pool sizing for a single-instance deployment; lifetime caps keep
// connections from outliving a Postgres failover.
const (
	poolMaxConns        = 25
	poolMinConns        = 5
	poolMaxConnLifetime = time.Hour
	poolMaxConnIdleTime = 30 * time.Minute
)

// New opens the connection pool and verifies it with a ping. A DATABASE_URL
// environment variable overrides the assembled config DSN.
func New(cfg *config.Config) (*Database, error) {
	dsn := cfg.Database.DSN()
	if envURL := os.Getenv("DATABASE_URL"); envURL != "" {
		dsn = envURL
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = poolMaxConns
	poolConfig.MinConns = poolMinConns
	poolConfig.MaxConnLifetime = poolMaxConnLifetime
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("database connected",
		slog.String("host", cfg.Database.Host),
		slog.String("name", cfg.Database.Name))

	return &Database{Pool: pool}, nil
}

func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		slog.Info("database connection closed")
	}
}

func (db *Database) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
