package http

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resume-optimizer/internal/domain"
	"resume-optimizer/internal/model"
	"resume-optimizer/internal/usecase"
	"resume-optimizer/pkg/document"
	"resume-optimizer/pkg/infrastructure"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	pipeline *usecase.Pipeline
	logger   *zap.Logger
}

func NewHandler(p *usecase.Pipeline, logger *zap.Logger) *Handler {
	return &Handler{pipeline: p, logger: logger}
}

// Optimize accepts a multipart form with a "resume" file, a "job" text
// field, and an optional "options" JSON field, runs the pipeline, and
// streams the resulting PDF. The uploaded file lives in a per-request
// temp path removed on every exit.
func (h *Handler) Optimize(c *fiber.Ctx) error {
	fh, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing resume file"})
	}

	jobText := c.FormValue("job")
	if jobText == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing job requirements"})
	}

	opts, err := model.ParseOptions([]byte(c.FormValue("options")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	job := &domain.OptimizeJob{
		ID:             uuid.New(),
		SourceName:     fh.Filename,
		JobDescription: jobText,
		Status:         "pending",
		Language:       opts.Language,
		PagePolicy:     opts.PagePolicy,
		Metadata:       map[string]interface{}{},
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("optimize-%s%s", job.ID.String(), filepath.Ext(fh.Filename)))
	if err := c.SaveFile(fh, tmpPath); err != nil {
		h.logger.Error("failed to store upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store upload"})
	}
	defer os.Remove(tmpPath)

	res, err := h.pipeline.Run(c.UserContext(), job, tmpPath)
	if err != nil {
		return h.mapPipelineError(c, job, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", document.PDFFileName(res.HTML)))
	return c.Send(res.PDF)
}

// Healthz is a liveness probe.
func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) mapPipelineError(c *fiber.Ctx, job *domain.OptimizeJob, err error) error {
	h.logger.Error("optimization failed", zap.String("job_id", job.ID.String()), zap.Error(err))

	var extractionErr *usecase.ExtractionError
	if errors.As(err, &extractionErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"jobId": job.ID.String(),
			"error": extractionErr.Error(),
		})
	}

	var renderErr *infrastructure.RenderError
	if errors.As(err, &renderErr) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"jobId": job.ID.String(),
			"error": renderErr.Error(),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"jobId": job.ID.String(),
		"error": "optimization failed",
	})
}
