package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"shippinglabel/internal/config"
	"shippinglabel/internal/infra/logging"
)

var (
	errPoolDisabled = errors.New("chrome pool disabled (chrome_pool_size <= 0)")
	errPoolClosed   = errors.New("chrome pool closed")
)

// Pool shares one browser between requests and hands out tabs. A tab is used by
// exactly one request between Acquire and Release.
type Pool struct {
	cfg config.Config

	mu            sync.Mutex
	sem           chan struct{}
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	profileDir    string
	started       bool
	closed        bool

	// generation increments on every restart. Tabs remember the generation
	// of the browser they were opened in.
	generation  uint64
	restarts    int
	lastRestart time.Time
}

// Tab is a browser tab leased from the pool.
type Tab struct {
	Ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
}

// Generation returns the browser generation the tab was opened in.
func (t *Tab) Generation() uint64 { return t.generation }

// Stats describes pool occupancy.
type Stats struct {
	Enabled      bool      `json:"enabled"`
	Capacity     int       `json:"capacity"`
	Idle         int       `json:"idle"`
	InUse        int       `json:"in_use"`
	PoolSizeConf int       `json:"pool_size_conf"`
	ProfileDir   string    `json:"profile_dir"`
	TimeoutSecs  int       `json:"timeout_secs"`
	Restarts     int       `json:"restarts"`
	LastRestart  time.Time `json:"last_restart"`
}

// NewPool prepares a pool of cfg.PDF.ChromePoolSize tabs. The browser starts on first use.
func NewPool(cfg config.Config) (*Pool, error) {
	if cfg.PDF.ChromePoolSize <= 0 {
		return nil, errPoolDisabled
	}
	profileDir, err := createProfileDir(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:        cfg,
		sem:        make(chan struct{}, cfg.PDF.ChromePoolSize),
		profileDir: profileDir,
	}
	p.startLocked()
	for i := 0; i < cfg.PDF.ChromePoolSize; i++ {
		p.sem <- struct{}{}
	}
	logging.Info("Chrome pool ready", "size", cfg.PDF.ChromePoolSize, "profile_dir", profileDir)
	return p, nil
}

func (p *Pool) startLocked() {
	var allocCtx context.Context
	allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(p.cfg, p.profileDir)...)
	p.browserCtx, p.browserCancel = chromedp.NewContext(allocCtx)
	p.started = false
}

// Acquire waits for a free tab.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errPoolClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.sem:
	}

	browserCtx, gen, err := p.ensureBrowser()
	if err != nil {
		p.putToken()
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	return &Tab{Ctx: tabCtx, cancel: cancel, generation: gen}, nil
}

// ensureBrowser launches the shared browser once per generation so that tabs
// attach to it instead of allocating their own.
func (p *Pool) ensureBrowser() (context.Context, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, 0, errPoolClosed
	}
	if p.started || chromedp.FromContext(p.browserCtx) == nil {
		return p.browserCtx, p.generation, nil
	}
	if err := chromedp.Run(p.browserCtx); err != nil {
		return nil, 0, fmt.Errorf("chrome pool warmup: %w", err)
	}
	p.started = true
	return p.browserCtx, p.generation, nil
}

// Generation returns the current browser generation.
func (p *Pool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Release closes the tab and returns its slot. renderErr is the outcome of the
// work done in the tab and is only used for logging.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if renderErr != nil {
		logging.Debug("Chrome tab released after failure", "error", renderErr)
	}
	p.putToken()
}

func (p *Pool) putToken() {
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart replaces the browser and its profile directory if it is still at
// generation gen. It reports whether a restart happened. Tabs of other requests
// die with the old browser; their failures carry the old generation and do not
// restart the pool again.
func (p *Pool) Restart(gen uint64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, errPoolClosed
	}
	if gen != p.generation {
		return false, nil
	}

	profileDir, err := createProfileDir(p.cfg)
	if err != nil {
		return false, err
	}
	p.stopLocked()
	p.profileDir = profileDir
	p.startLocked()
	p.generation++
	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("Chrome pool restarted", "restarts", p.restarts, "generation", p.generation, "profile_dir", profileDir)
	return true, nil
}

func (p *Pool) stopLocked() {
	if p.browserCancel != nil {
		p.browserCancel()
		p.browserCancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
	p.started = false
}

// Close shuts the browser down. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopLocked()
}

// Stats reports the pool occupancy.
func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		TimeoutSecs:  timeoutSecs,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
	if p.closed || p.sem == nil {
		return s
	}
	s.Enabled = true
	s.Capacity = cap(p.sem)
	s.Idle = len(p.sem)
	s.InUse = s.Capacity - s.Idle
	s.ProfileDir = p.profileDir
	return s
}

// IsSessionInterrupted reports errors that mean the browser or tab went away.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "session closed", "websocket", "browser closed", "invalid context"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
