package storage

import (
	"context"
	"database/sql"

	"github.com/optimization-lab/regional-report/internal/instrument"
)

// Store is one database the report reads from: the transactional store or the
// reference store.
type Store interface {
	Name() string
	DB() *sql.DB
	Ping(ctx context.Context) error

	// Explain returns the access plan for a query without executing it.
	Explain(ctx context.Context, query string, args ...interface{}) ([]instrument.RawPlanRow, error)

	// ValidateTables fails if any of the (optionally schema qualified) tables is missing.
	ValidateTables(ctx context.Context, tables ...string) error

	Close() error
}
