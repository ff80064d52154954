package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resume-optimizer/internal/domain"

	"go.uber.org/zap"
)

// Completer is the external AI collaborator: it takes the stored
// resume's path, the job text, and an optional target language, and
// returns the model's reply text.
type Completer interface {
	OptimizeResume(ctx context.Context, resumePath, jobText, language string) (string, error)
}

// Renderer turns a complete HTML document into a one-page PDF buffer.
type Renderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// JobsRepo persists job bookkeeping, best-effort.
type JobsRepo interface {
	Save(ctx context.Context, j *domain.OptimizeJob) error
}

// Renderers maps a requested page policy to a renderer. Default names
// the policy used when a request does not choose one.
type Renderers struct {
	Truncate Renderer
	Fail     Renderer
	Default  string
}

func (rs Renderers) For(policy string) Renderer {
	if policy == "" {
		policy = rs.Default
	}
	if policy == "fail" && rs.Fail != nil {
		return rs.Fail
	}
	return rs.Truncate
}

// Result carries the rendered PDF along with the normalized HTML it
// was produced from.
type Result struct {
	PDF  []byte
	HTML string
}

// Pipeline runs one optimization request end to end: AI call,
// extraction, normalization, render. Every stage fails fast; no stage
// partially recovers and no retries happen here. Each invocation is
// independent of every other - there is no shared mutable state, and
// the renderer acquires a fresh browser per call.
type Pipeline struct {
	ai        Completer
	renderers Renderers
	repo      JobsRepo
	logger    *zap.Logger
}

func NewPipeline(ai Completer, renderers Renderers, repo JobsRepo, logger *zap.Logger) *Pipeline {
	return &Pipeline{ai: ai, renderers: renderers, repo: repo, logger: logger}
}

func (p *Pipeline) Run(ctx context.Context, job *domain.OptimizeJob, resumePath string) (*Result, error) {
	if job.Metadata == nil {
		job.Metadata = map[string]interface{}{}
	}

	raw, err := p.ai.OptimizeResume(ctx, resumePath, job.JobDescription, job.Language)
	if err != nil {
		p.fail(ctx, job, err)
		return nil, err
	}

	html, err := ExtractHTML(raw)
	if err != nil {
		p.logger.Warn("extraction failed", zap.String("job_id", job.ID.String()), zap.Int("reply_bytes", len(raw)), zap.Error(err))
		p.fail(ctx, job, err)
		return nil, err
	}

	html = NormalizeHTML(html)

	pdf, err := p.renderers.For(job.PagePolicy).RenderHTMLToPDF(ctx, html)
	if err != nil {
		p.fail(ctx, job, err)
		return nil, err
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		err := fmt.Errorf("invalid PDF output (len=%d)", len(pdf))
		p.fail(ctx, job, err)
		return nil, err
	}

	job.Status = "completed"
	job.Metadata["pdf_bytes"] = len(pdf)
	job.UpdatedAt = time.Now()
	p.save(ctx, job)

	p.logger.Info("pipeline completed", zap.String("job_id", job.ID.String()), zap.Int("pdf_bytes", len(pdf)))
	return &Result{PDF: pdf, HTML: html}, nil
}

func (p *Pipeline) fail(ctx context.Context, job *domain.OptimizeJob, cause error) {
	job.Status = "failed"
	job.Metadata["error"] = cause.Error()
	job.UpdatedAt = time.Now()
	p.save(ctx, job)
}

func (p *Pipeline) save(ctx context.Context, job *domain.OptimizeJob) {
	if p.repo == nil {
		return
	}
	if err := p.repo.Save(ctx, job); err != nil {
		p.logger.Warn("failed to save job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
