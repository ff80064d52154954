package repository

import (
	"context"
	"encoding/json"

	"resume-optimizer/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// JobsRepo persists optimization jobs. A nil pool makes every call a
// no-op so the service keeps working without a database.
type JobsRepo struct {
	pool *pgxpool.Pool
}

func NewJobsRepo(pool *pgxpool.Pool) *JobsRepo {
	return &JobsRepo{pool: pool}
}

func (r *JobsRepo) Save(ctx context.Context, j *domain.OptimizeJob) error {
	if r.pool == nil {
		return nil
	}

	metaB, _ := json.Marshal(j.Metadata)

	_, err := r.pool.Exec(ctx, `INSERT INTO optimize_jobs (id, source_name, job_description, status, language, page_policy, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET source_name = EXCLUDED.source_name, job_description = EXCLUDED.job_description, status = EXCLUDED.status, language = EXCLUDED.language, page_policy = EXCLUDED.page_policy, metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at`,
		j.ID, j.SourceName, j.JobDescription, j.Status, j.Language, j.PagePolicy, metaB, j.CreatedAt, j.UpdatedAt)

	return err
}
