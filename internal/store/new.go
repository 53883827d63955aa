package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
)

type implStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New connects to PostgreSQL and verifies the connection.
// The caller owns the returned Store and must Close it.
func New(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewWithPool(pool, log), nil
}

// NewWithPool wraps an existing pool. Close closes the pool.
func NewWithPool(pool *pgxpool.Pool, log logger.Logger) Store {
	return &implStore{
		pool:   pool,
		logger: log.With("component", "store"),
	}
}

func (s *implStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("pool is nil")
	}
	return s.pool.Ping(ctx)
}

func (s *implStore) Collector() prometheus.Collector {
	return newPoolStatsCollector(s.pool)
}

func (s *implStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
