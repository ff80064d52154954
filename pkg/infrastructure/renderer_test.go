package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
)

func TestRenderHTMLToPDFEmptyContent(t *testing.T) {
	r := NewChromedpRenderer("", PagePolicyTruncate, zap.NewNop())

	testCases := []struct {
		name string
		in   string
	}{
		{"Empty", ""},
		{"Whitespace", "   "},
		{"Tabs", "\n\t\n"},
		{"FenceOnly", "```html\n```"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.RenderHTMLToPDF(context.Background(), tc.in)
			var rerr *RenderError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *RenderError, got %v", err)
			}
			if rerr.Error() != "empty content" {
				t.Errorf("unexpected message %q", rerr.Error())
			}
		})
	}
}

// The empty-content check must run before any browser resource is
// acquired: with an already-cancelled context the precondition error
// still wins over the context error.
func TestRenderHTMLToPDFEmptyContentBeforeResources(t *testing.T) {
	r := NewChromedpRenderer("", PagePolicyTruncate, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RenderHTMLToPDF(ctx, "   ")
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RenderError, got %v", err)
	}
	if rerr.Reason != "empty content" {
		t.Errorf("unexpected reason %q", rerr.Reason)
	}
}

func TestRenderErrorWrapsCause(t *testing.T) {
	cause := errors.New("chrome failed to start")
	err := &RenderError{Err: cause}

	if err.Error() != "render failed: chrome failed to start" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("RenderError should unwrap to its cause")
	}
}

// The page range is pinned to 1 unconditionally; a print layout that
// paginates past the screen layout must still emit a single page no
// matter which policy is in effect.
func TestPrintParamsPinSinglePage(t *testing.T) {
	p := printParams()

	if p.PageRanges != "1" {
		t.Errorf("page ranges = %q, want \"1\"", p.PageRanges)
	}
	if p.PaperWidth != paperWidthIn || p.PaperHeight != paperHeightIn {
		t.Errorf("paper = %gx%g in, want %gx%g", p.PaperWidth, p.PaperHeight, paperWidthIn, paperHeightIn)
	}
	if p.MarginTop != marginIn || p.MarginBottom != marginIn || p.MarginLeft != marginIn || p.MarginRight != marginIn {
		t.Errorf("margins = %g/%g/%g/%g in, want %g on every side", p.MarginTop, p.MarginBottom, p.MarginLeft, p.MarginRight, marginIn)
	}
	if !p.PrintBackground {
		t.Error("print background should be enabled")
	}
}

func TestNetworkIdleWaiterCountsInflightRequests(t *testing.T) {
	w := newNetworkIdleWaiter(25 * time.Millisecond)
	w.timer.Reset(w.quiet)

	w.handle(&network.EventRequestWillBeSent{})
	w.handle(&network.EventRequestWillBeSent{})
	select {
	case <-w.idle:
		t.Fatal("idle fired with two requests in flight")
	case <-time.After(80 * time.Millisecond):
	}

	w.handle(&network.EventLoadingFinished{})
	select {
	case <-w.idle:
		t.Fatal("idle fired with one request still in flight")
	case <-time.After(80 * time.Millisecond):
	}

	w.handle(&network.EventLoadingFailed{})
	select {
	case <-w.idle:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("idle did not fire after the network went quiet")
	}
}

func TestNetworkIdleWaiterQuietDocument(t *testing.T) {
	w := newNetworkIdleWaiter(25 * time.Millisecond)
	w.timer.Reset(w.quiet)

	select {
	case <-w.idle:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("idle did not fire for a document with no requests")
	}
}

// Needs a local Chrome; skipped otherwise. Renders a document that lays
// out to many pages and checks the output is a single-page PDF under
// truncate, and a rejection under fail.
func TestRenderOverflowingDocument(t *testing.T) {
	execPath := chromeForTest(t)

	html := "<!DOCTYPE html><html><head><title>Overflow</title></head><body>" +
		strings.Repeat("<p>Shipped Go services. Led data migrations. Cut tail latency.</p>", 400) +
		"</body></html>"

	t.Run("TruncateEmitsOnePage", func(t *testing.T) {
		r := NewChromedpRenderer(execPath, PagePolicyTruncate, zap.NewNop())
		pdf, err := r.RenderHTMLToPDF(context.Background(), html)
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		if !bytes.HasPrefix(pdf, []byte("%PDF")) {
			t.Fatal("output missing PDF magic header")
		}
		if n := countPDFPages(pdf); n != 1 {
			t.Errorf("pdf has %d pages, want 1", n)
		}
	})

	t.Run("FailRejectsOverflow", func(t *testing.T) {
		r := NewChromedpRenderer(execPath, PagePolicyFail, zap.NewNop())
		_, err := r.RenderHTMLToPDF(context.Background(), html)
		var rerr *RenderError
		if !errors.As(err, &rerr) {
			t.Fatalf("expected *RenderError, got %v", err)
		}
	})
}

func chromeForTest(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome binary available")
	return ""
}

// Chrome writes page dictionaries uncompressed; the page count is the
// number of /Type /Page objects, excluding the /Type /Pages tree node.
func countPDFPages(pdf []byte) int {
	return bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
}

func TestStripResidualFences(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"NoFence", "<html></html>", "<html></html>"},
		{"HTMLFence", "```html\n<html></html>\n```", "<html></html>"},
		{"BareFence", "```\n<html></html>\n```", "<html></html>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripResidualFences(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
