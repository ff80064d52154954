package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-optimizer/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) OptimizeResume(ctx context.Context, resumePath, jobText, language string) (string, error) {
	return f.reply, f.err
}

type fakeRenderer struct {
	out     []byte
	err     error
	gotHTML string
	calls   int
}

func (f *fakeRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	f.calls++
	f.gotHTML = html
	return f.out, f.err
}

func newTestJob() *domain.OptimizeJob {
	return &domain.OptimizeJob{
		ID:             uuid.New(),
		SourceName:     "resume.txt",
		JobDescription: "Go engineer",
		Status:         "pending",
		Metadata:       map[string]interface{}{},
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func newTestPipeline(ai Completer, r Renderer) *Pipeline {
	return NewPipeline(ai, Renderers{Truncate: r, Default: "truncate"}, nil, zap.NewNop())
}

func TestPipelineFencedEnvelopeEndToEnd(t *testing.T) {
	reply := "```json\n" + `{"htmlres": "<html><body>Hi</body></html>"}` + "\n```"
	renderer := &fakeRenderer{out: []byte("%PDF-1.4 fake pdf body")}
	p := newTestPipeline(&fakeCompleter{reply: reply}, renderer)

	job := newTestJob()
	res, err := p.Run(context.Background(), job, "resume.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renderer.gotHTML != "<html><body>Hi</body></html>" {
		t.Errorf("renderer received %q", renderer.gotHTML)
	}
	if !strings.HasPrefix(string(res.PDF), "%PDF") {
		t.Errorf("missing PDF magic header: %q", res.PDF[:4])
	}
	if job.Status != "completed" {
		t.Errorf("job status = %q, want completed", job.Status)
	}
}

func TestPipelineNormalizesEscapedNewlines(t *testing.T) {
	reply := `{"htmlres": "<html><body>Line1\\nLine2</body></html>"}`
	renderer := &fakeRenderer{out: []byte("%PDF-1.4")}
	p := newTestPipeline(&fakeCompleter{reply: reply}, renderer)

	if _, err := p.Run(context.Background(), newTestJob(), "resume.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "<html><body>Line1\nLine2</body></html>"
	if renderer.gotHTML != want {
		t.Errorf("renderer received %q, want %q", renderer.gotHTML, want)
	}
}

func TestPipelineExtractionFailureSkipsRender(t *testing.T) {
	renderer := &fakeRenderer{out: []byte("%PDF-1.4")}
	p := newTestPipeline(&fakeCompleter{reply: "no markup here"}, renderer)

	job := newTestJob()
	_, err := p.Run(context.Background(), job, "resume.txt")
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
	if renderer.calls != 0 {
		t.Errorf("renderer called %d times after failed extraction", renderer.calls)
	}
	if job.Status != "failed" {
		t.Errorf("job status = %q, want failed", job.Status)
	}
}

func TestPipelineCompleterFailurePropagates(t *testing.T) {
	wantErr := errors.New("ai-service returned non-200 status: 500")
	p := newTestPipeline(&fakeCompleter{err: wantErr}, &fakeRenderer{})

	job := newTestJob()
	if _, err := p.Run(context.Background(), job, "resume.txt"); !errors.Is(err, wantErr) {
		t.Fatalf("expected completer error, got %v", err)
	}
	if job.Status != "failed" {
		t.Errorf("job status = %q, want failed", job.Status)
	}
}

func TestPipelineRejectsNonPDFOutput(t *testing.T) {
	reply := `{"htmlres": "<html><body>Hi</body></html>"}`
	p := newTestPipeline(&fakeCompleter{reply: reply}, &fakeRenderer{out: []byte("not a pdf")})

	job := newTestJob()
	if _, err := p.Run(context.Background(), job, "resume.txt"); err == nil {
		t.Fatal("expected error for output without PDF magic header")
	}
	if job.Status != "failed" {
		t.Errorf("job status = %q, want failed", job.Status)
	}
}

func TestRenderersPolicySelection(t *testing.T) {
	truncate := &fakeRenderer{}
	fail := &fakeRenderer{}
	rs := Renderers{Truncate: truncate, Fail: fail, Default: "truncate"}

	if rs.For("") != Renderer(truncate) {
		t.Error("empty policy should select the default renderer")
	}
	if rs.For("fail") != Renderer(fail) {
		t.Error("fail policy should select the fail renderer")
	}
	if rs.For("truncate") != Renderer(truncate) {
		t.Error("truncate policy should select the truncate renderer")
	}
}
