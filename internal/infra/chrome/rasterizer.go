package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"shippinglabel/internal/config"
	"shippinglabel/internal/domain"
	"shippinglabel/internal/infra/logging"
)

// Fixed label page geometry: ISO A4 in inches and 20 CSS pixels of margin.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
	marginPx   = 20.0
	marginIn   = marginPx / 96.0

	defaultNetworkIdle = 500 * time.Millisecond
	poolAcquireTimeout = 5 * time.Second
)

var errEmptyPDF = errors.New("generated PDF is empty")

// Rasterizer converts rendered HTML into a PDF using headless Chrome.
type Rasterizer struct {
	cfg         config.Config
	timeout     time.Duration
	networkIdle time.Duration
	pool        *Pool
}

// NewRasterizer returns a Rasterizer. With a nil pool every call launches and
// tears down its own browser.
func NewRasterizer(cfg config.Config, pool *Pool) *Rasterizer {
	idle := time.Duration(cfg.PDF.NetworkIdleMs) * time.Millisecond
	if idle <= 0 {
		idle = defaultNetworkIdle
	}
	return &Rasterizer{
		cfg:         cfg,
		timeout:     time.Duration(cfg.PDF.TimeoutSecs) * time.Second,
		networkIdle: idle,
		pool:        pool,
	}
}

// Pool returns the shared tab pool, or nil when every call uses its own browser.
func (r *Rasterizer) Pool() *Pool { return r.pool }

// Rasterize renders html into an A4 PDF. Failures are *domain.RasterizationError.
func (r *Rasterizer) Rasterize(ctx context.Context, html string) ([]byte, error) {
	start := time.Now()
	logging.Info("Starting PDF generation", "pooled", r.pool != nil)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var (
		pdf []byte
		err error
	)
	if r.pool != nil {
		pdf, err = r.rasterizeInPool(ctx, html)
	} else {
		pdf, err = r.rasterizeIsolated(ctx, html)
	}
	if err != nil {
		logging.Error("Error generating PDF", "error", err)
		return nil, err
	}

	logging.Info("PDF generation completed", "duration_ms", time.Since(start).Milliseconds(), "size_bytes", len(pdf))
	return pdf, nil
}

// engine is one browser instance owned by a single rasterization.
type engine struct {
	ctx     context.Context
	release func()
}

// launch starts an isolated browser with a throwaway profile directory. The
// caller must call release on the returned engine.
func (r *Rasterizer) launch(ctx context.Context) (*engine, error) {
	profileDir, err := createProfileDir(r.cfg)
	if err != nil {
		return nil, &domain.RasterizationError{Stage: domain.StageLaunch, Err: err}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(r.cfg, profileDir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	release := func() {
		browserCancel()
		allocCancel()
		_ = os.RemoveAll(profileDir)
	}

	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, &domain.RasterizationError{Stage: domain.StageLaunch, Err: err}
	}
	return &engine{ctx: browserCtx, release: release}, nil
}

func (r *Rasterizer) rasterizeIsolated(ctx context.Context, html string) ([]byte, error) {
	eng, err := r.launch(ctx)
	if err != nil {
		return nil, err
	}
	defer eng.release()

	return printDocument(eng.ctx, html, r.networkIdle)
}

func (r *Rasterizer) rasterizeInPool(ctx context.Context, html string) ([]byte, error) {
	acquireCtx, acquireCancel := context.WithTimeout(ctx, poolAcquireTimeout)
	tab, err := r.pool.Acquire(acquireCtx)
	acquireCancel()
	if err != nil {
		return nil, &domain.RasterizationError{Stage: domain.StageLaunch, Err: err}
	}

	return r.printOnTab(ctx, tab, html)
}

// printOnTab prints html in a leased tab and releases it. An interrupted
// session restarts the pool only when the tab still belongs to the current
// browser; a tab killed by another request's restart is not a new failure.
func (r *Rasterizer) printOnTab(ctx context.Context, tab *Tab, html string) ([]byte, error) {
	// The tab lives under the pool's browser, so tie it to the caller explicitly.
	execCtx, cancel := context.WithCancel(tab.Ctx)
	stop := context.AfterFunc(ctx, cancel)
	pdf, renderErr := printDocument(execCtx, html, r.networkIdle)
	stop()
	cancel()

	r.pool.Release(tab, renderErr)
	if renderErr == nil || ctx.Err() != nil || !IsSessionInterrupted(renderErr) {
		return pdf, renderErr
	}
	if tab.Generation() != r.pool.Generation() {
		logging.Warn("Chrome tab lost to a pool restart", "error", renderErr, "generation", tab.Generation())
		return pdf, renderErr
	}
	logging.Warn("Chrome session interrupted; restarting pool", "error", renderErr)
	if _, err := r.pool.Restart(tab.Generation()); err != nil {
		logging.Error("Chrome pool restart failed", "error", err)
	}
	return pdf, renderErr
}

// printDocument loads html into the tab behind ctx, waits for network activity
// to settle and prints the page.
func printDocument(ctx context.Context, html string, quiet time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.RasterizationError{Stage: domain.StageLoad, Err: err}
	}
	if chromedp.FromContext(ctx) == nil {
		return nil, &domain.RasterizationError{Stage: domain.StageLoad, Err: chromedp.ErrInvalidContext}
	}

	tracker := newIdleTracker()
	chromedp.ListenTarget(ctx, tracker.handle)

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, &domain.RasterizationError{Stage: domain.StageLoad, Err: err}
	}
	if err := tracker.wait(ctx, quiet); err != nil {
		return nil, &domain.RasterizationError{Stage: domain.StageLoad, Err: fmt.Errorf("waiting for network idle: %w", err)}
	}

	var pdf []byte
	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = printParams().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, &domain.RasterizationError{Stage: domain.StagePrint, Err: err}
	}
	if len(pdf) == 0 {
		return nil, &domain.RasterizationError{Stage: domain.StagePrint, Err: errEmptyPDF}
	}
	return pdf, nil
}

func printParams() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(a4WidthIn).
		WithPaperHeight(a4HeightIn).
		WithMarginTop(marginIn).
		WithMarginBottom(marginIn).
		WithMarginLeft(marginIn).
		WithMarginRight(marginIn)
}

func allocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}

// createProfileDir makes a fresh Chrome user data dir under cfg.PDF.UserDataDir
// (or the system temp dir).
func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("cannot create chrome profile base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "label-chrome-*")
	if err != nil {
		return "", fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	return dir, nil
}
