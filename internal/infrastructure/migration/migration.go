package migration

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Name string
	Up   func(ctx context.Context, pool *pgxpool.Pool) error
}

// RunMigrations executes all necessary database migrations on startup
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	migrations := []Migration{
		{
			Name: "create_optimize_jobs",
			Up:   createOptimizeJobs,
		},
	}

	for _, m := range migrations {
		if err := m.Up(ctx, pool); err != nil {
			logger.Error("migration failed", zap.String("name", m.Name), zap.Error(err))
			return err
		}
		logger.Info("migration completed", zap.String("name", m.Name))
	}
	return nil
}

func createOptimizeJobs(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS optimize_jobs (
			id UUID PRIMARY KEY,
			source_name TEXT NOT NULL DEFAULT '',
			job_description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			language TEXT NOT NULL DEFAULT '',
			page_policy TEXT NOT NULL DEFAULT 'truncate',
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`
	_, err := pool.Exec(ctx, query)
	return err
}
