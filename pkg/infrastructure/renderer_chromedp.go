package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// A4 in inches, with the fixed 0.5in margin on every side.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 0.5

	// contentLoadTimeout bounds waiting for the document and its
	// referenced resources; slow or unreachable external assets must
	// not hang a render forever.
	contentLoadTimeout = 30 * time.Second

	// networkQuietWindow is how long the network must stay silent
	// before the document is considered fully loaded.
	networkQuietWindow = 500 * time.Millisecond
)

// PagePolicy decides what happens when the document lays out to more
// than one page.
type PagePolicy string

const (
	// PagePolicyTruncate emits only the first page, silently dropping
	// any overflow.
	PagePolicyTruncate PagePolicy = "truncate"
	// PagePolicyFail rejects documents whose layout overflows a single
	// page instead of truncating them.
	PagePolicyFail PagePolicy = "fail"
)

// RenderError reports a failed render: empty input, engine launch
// failure, content-load timeout, or PDF generation failure.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render failed: %v", e.Err)
	}
	return e.Reason
}

func (e *RenderError) Unwrap() error { return e.Err }

// ChromedpRenderer lays out a complete HTML document in a headless
// Chrome instance and prints it to a single-page A4 PDF. Each call
// runs in its own browser instance, torn down before the call returns.
type ChromedpRenderer struct {
	execPath string
	policy   PagePolicy
	logger   *zap.Logger
}

func NewChromedpRenderer(execPath string, policy PagePolicy, logger *zap.Logger) *ChromedpRenderer {
	if policy == "" {
		policy = PagePolicyTruncate
	}
	return &ChromedpRenderer{execPath: execPath, policy: policy, logger: logger}
}

// RenderHTMLToPDF renders html to a one-page A4 PDF buffer. The input
// must already be a complete document (doctype/head/body); nothing is
// wrapped or templated here.
func (r *ChromedpRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	// Defensive re-check before acquiring any browser resource.
	content := strings.TrimSpace(stripResidualFences(html))
	if content == "" {
		return nil, &RenderError{Reason: "empty content"}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("single-process", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	loadCtx, cancelLoad := context.WithTimeout(cctx, contentLoadTimeout)
	defer cancelLoad()

	waiter := newNetworkIdleWaiter(networkQuietWindow)
	defer waiter.stop()

	var pdfBuf []byte
	err := chromedp.Run(loadCtx,
		network.Enable(),
		// The listener must be in place before content injection so no
		// request event can slip past the in-flight counter.
		waiter.listen(),
		setDocumentContent(content),
		waiter.wait(),
		r.checkOverflow(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = printParams().Do(ctx)
			return err
		}),
	)
	if err != nil {
		var rerr *RenderError
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, &RenderError{Err: err}
	}
	if r.logger != nil {
		r.logger.Info("rendered pdf", zap.Int("bytes", len(pdfBuf)), zap.String("policy", string(r.policy)))
	}
	return pdfBuf, nil
}

// printParams builds the one-page A4 print request. The page range is
// pinned to 1 regardless of policy: an overflowing layout, or one whose
// print CSS paginates beyond the screen layout, never emits more than
// a single page. The fail policy additionally rejects overflow before
// printing; truncate just drops it.
func printParams() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(paperWidthIn).
		WithPaperHeight(paperHeightIn).
		WithMarginTop(marginIn).
		WithMarginBottom(marginIn).
		WithMarginLeft(marginIn).
		WithMarginRight(marginIn).
		WithPreferCSSPageSize(true).
		WithPageRanges("1")
}

// setDocumentContent loads the HTML straight into the page's main
// frame, skipping temp files and file:// navigation.
func setDocumentContent(html string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		frameTree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
	}
}

// networkIdleWaiter counts in-flight requests from cdproto network
// events and resolves once the network has been silent for the quiet
// window. listen runs before any content is injected; wait only
// consumes the result. The surrounding context carries the hard
// timeout.
type networkIdleWaiter struct {
	quiet time.Duration

	mu       sync.Mutex
	inflight int
	timer    *time.Timer

	idle chan struct{}
	once sync.Once
}

func newNetworkIdleWaiter(quiet time.Duration) *networkIdleWaiter {
	w := &networkIdleWaiter{quiet: quiet, idle: make(chan struct{})}
	// Armed when listening begins.
	w.timer = time.AfterFunc(quiet, w.markIdle)
	w.timer.Stop()
	return w
}

func (w *networkIdleWaiter) listen() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, w.handle)
		w.mu.Lock()
		w.timer.Reset(w.quiet)
		w.mu.Unlock()
		return nil
	}
}

func (w *networkIdleWaiter) handle(ev interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch ev.(type) {
	case *network.EventRequestWillBeSent:
		w.inflight++
		w.timer.Stop()
	case *network.EventLoadingFinished, *network.EventLoadingFailed:
		if w.inflight > 0 {
			w.inflight--
		}
		if w.inflight == 0 {
			w.timer.Reset(w.quiet)
		}
	}
}

func (w *networkIdleWaiter) markIdle() {
	w.once.Do(func() { close(w.idle) })
}

func (w *networkIdleWaiter) wait() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		select {
		case <-w.idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *networkIdleWaiter) stop() {
	w.mu.Lock()
	w.timer.Stop()
	w.mu.Unlock()
}

// checkOverflow enforces PagePolicyFail by measuring the laid-out
// document against the printable height of one A4 page. Chrome lays
// out at 96 CSS pixels per inch.
func (r *ChromedpRenderer) checkOverflow() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if r.policy != PagePolicyFail {
			return nil
		}
		var scrollHeight float64
		if err := chromedp.Evaluate(`document.documentElement.scrollHeight`, &scrollHeight).Do(ctx); err != nil {
			return err
		}
		printablePx := (paperHeightIn - 2*marginIn) * 96
		if scrollHeight > printablePx {
			return &RenderError{Reason: fmt.Sprintf("content overflows a single page (%.0fpx > %.0fpx)", scrollHeight, printablePx)}
		}
		return nil
	}
}

// stripResidualFences drops markdown fence markers that survived
// upstream extraction and normalization.
func stripResidualFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeft(s, "`")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
