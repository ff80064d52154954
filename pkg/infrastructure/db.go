package infrastructure

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewJobsPool connects to the jobs database. Callers treat a failed
// connection as non-fatal; job persistence is best-effort.
func NewJobsPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.Connect(ctx, dsn)
}
