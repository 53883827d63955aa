package store

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

// Store is the append-only record store.
type Store interface {
	// Init applies pending schema migrations. Safe to call concurrently
	// from several processes; a fully migrated schema is left untouched.
	Init(ctx context.Context) (*MigrationResult, error)
	MigrationStatus(ctx context.Context) (*MigrationStatus, error)

	Insert(ctx context.Context, rec *meeting.Record) (int64, error)
	ListSummaries(ctx context.Context) ([]meeting.Summary, error)
	GetByID(ctx context.Context, id int64) (*meeting.Record, error)

	Ping(ctx context.Context) error
	// Collector exports connection pool statistics.
	Collector() prometheus.Collector
	Close()
}
