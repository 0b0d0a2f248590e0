package carro

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/chromedp/chromedp"

	"car_resale/internal/source/web"
)

// browser is one Chrome process with a single tab. It lives until close and
// is not tied to any request context.
type browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	pageTimeout time.Duration
}

func allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1280+rand.IntN(640), 720+rand.IntN(360)),
		chromedp.UserAgent(web.RandomUserAgent()),
	}
	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	return opts
}

func newBrowser(headless bool, pageTimeout time.Duration) (*browser, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(headless)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the process now so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, err
	}
	return &browser{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		pageTimeout: pageTimeout,
	}, nil
}

// run executes actions in the tab, bounded by the page timeout and by ctx.
func (b *browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, b.pageTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (b *browser) close() {
	b.cancelTab()
	b.cancelAlloc()
}
