// Smoke tool: runs the full pipeline against a mock ai-service and the
// real Chrome renderer. Requires a local Chrome/Chromium (CHROME_PATH).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	repo "resume-optimizer/internal/adapter/repository"
	"resume-optimizer/internal/domain"
	"resume-optimizer/internal/usecase"
	"resume-optimizer/pkg/ai"
	infra "resume-optimizer/pkg/infrastructure"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deliberately overflows one A4 page so the run exercises truncation,
// not just a happy-path render.
var mockHTML = `<!DOCTYPE html><html><head><title>Jane Doe</title><style>body{font-family:sans-serif}</style></head><body><h1>Jane Doe</h1>` +
	strings.Repeat("<p>Shipped Go services. Led data migrations. Cut tail latency.</p>", 400) +
	`</body></html>`

func startMockAI(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		envelope, _ := json.Marshal(map[string]string{"htmlres": mockHTML})
		// Wrap in a code fence on purpose; the extractor must cope.
		output := "```json\n" + string(envelope) + "\n```"
		b, _ := json.Marshal(map[string]string{"agent": "mock", "output": output})
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("mock ai server failed: %v", err)
		}
	}()
	return srv
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv := startMockAI("127.0.0.1:8000")
	defer srv.Shutdown(context.Background())

	resumePath := filepath.Join(os.TempDir(), "test-resume.txt")
	if err := os.WriteFile(resumePath, []byte("Jane Doe\nBackend engineer, 8 years of Go."), 0o644); err != nil {
		log.Fatalf("write resume: %v", err)
	}
	defer os.Remove(resumePath)

	renderers := usecase.Renderers{
		Truncate: infra.NewChromedpRenderer(os.Getenv("CHROME_PATH"), infra.PagePolicyTruncate, logger),
		Default:  "truncate",
	}
	aiClient := ai.NewClient("http://127.0.0.1:8000", logger)
	pipeline := usecase.NewPipeline(aiClient, renderers, repo.NewJobsRepo(nil), logger)

	job := &domain.OptimizeJob{
		ID:             uuid.New(),
		SourceName:     "test-resume.txt",
		JobDescription: "Senior Go engineer building document pipelines.",
		Status:         "pending",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := pipeline.Run(ctx, job, resumePath)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	pages := bytes.Count(res.PDF, []byte("/Type /Page")) - bytes.Count(res.PDF, []byte("/Type /Pages"))
	fmt.Printf("pipeline completed: %d PDF bytes, header %q, %d page(s)\n", len(res.PDF), string(res.PDF[:4]), pages)
	if pages != 1 {
		log.Fatalf("overflowing document produced %d pages, want 1", pages)
	}
}
