package domain

import (
	"time"

	"github.com/google/uuid"
)

// OptimizeJob tracks one resume-optimization request through the
// pipeline. Persistence is best-effort bookkeeping; the PDF itself is
// streamed back to the caller and never stored.
type OptimizeJob struct {
	ID             uuid.UUID              `json:"id"`
	SourceName     string                 `json:"source_name"`
	JobDescription string                 `json:"job_description"`
	Status         string                 `json:"status"`
	Language       string                 `json:"language"`
	PagePolicy     string                 `json:"page_policy"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
