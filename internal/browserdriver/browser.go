// Package browserdriver implements the worker-side browser contract (SPEC_FULL.md
// §4.15): one chromedp browser context per worker process, reused across every task it
// is handed, with Discover/Download as the two task implementations. Grounded on
// `chromedp_pool.go` in the reference crawler for the allocator flags (headless,
// disable-gpu, no-sandbox, disable-dev-shm-usage) and startup self-test, collapsed from
// a round-robin pool of N instances down to the single instance each worker process owns
// under this spec's one-browser-per-worker model.
package browserdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/siteharvest/internal/ipc"
)

// Config carries the subset of InitConfig a Driver needs.
type Config struct {
	PageLoadTimeout   time.Duration
	NavigationTimeout time.Duration
	PostCookieWait    time.Duration
	AssetRateLimit    float64
}

// Driver owns one browser context for the lifetime of a worker process.
type Driver struct {
	allocCtx   context.Context
	allocCancel context.CancelFunc
	browserCtx context.Context
	browserCancel context.CancelFunc

	cfg     Config
	logger  arbor.ILogger
	limiter *rate.Limiter
}

// New launches a headless Chrome instance and runs a startup self-test, per
// `chromedp_pool.go`'s createBrowserInstance.
func New(cfg Config, logger arbor.ILogger) (*Driver, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	testTimeout := cfg.PageLoadTimeout
	if testTimeout <= 0 {
		testTimeout = 30 * time.Second
	}
	testCtx, testCancel := context.WithTimeout(browserCtx, testTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, network.Enable(), chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browserdriver: startup self-test failed: %w", err)
	}

	limit := cfg.AssetRateLimit
	if limit <= 0 {
		limit = 4
	}

	return &Driver{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		cfg:           cfg,
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Limit(limit), 1),
	}, nil
}

// ApplyConfig updates the driver's timeouts and rate limit from an INIT envelope,
// received after the browser is already running (process startup uses its own
// conservative defaults until the master's real configuration arrives).
func (d *Driver) ApplyConfig(cfg Config) {
	d.cfg = cfg
	limit := cfg.AssetRateLimit
	if limit <= 0 {
		limit = 4
	}
	d.limiter.SetLimit(rate.Limit(limit))
}

// Close tears down the browser and allocator contexts.
func (d *Driver) Close() {
	if d.browserCancel != nil {
		d.browserCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
}

// applyCookies installs a captured cookie jar on the browser context via the Network
// domain, used before navigating on both Discover (subsequent pages) and Download tasks.
func (d *Driver) applyCookies(ctx context.Context, cookies []ipc.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return chromedp.Run(ctx, setCookiesAction(cookies))
}

// wait blocks until the per-worker asset/navigation rate limiter admits the next
// request, per §4.15's "rate-limited via golang.org/x/time/rate" note.
func (d *Driver) wait(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}
