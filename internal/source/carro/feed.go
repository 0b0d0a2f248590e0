package carro

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

const (
	showMoreJS = `(() => {
	const btn = Array.from(document.querySelectorAll('button'))
		.find(b => b.textContent.trim().includes('Show More Cars'));
	if (!btn) return false;
	btn.click();
	return true;
})()`
	scrollHeightJS = `document.body.scrollHeight`
	scrollBottomJS = `window.scrollTo(0, document.body.scrollHeight)`

	maxScrollSteps = 50
)

// Feed drives the infinite-scroll listing page in one browser. Batch 0 is the
// first render; every later batch presses "Show More Cars" once.
type Feed struct {
	cfg     Config
	origin  string
	browser *browser
	logger  *slog.Logger
}

func (f *Feed) ListingID(rawURL string) string {
	return ListingID(rawURL)
}

// FetchIndex returns every used-car card rendered so far. A batch with no
// button left to press returns no cards.
func (f *Feed) FetchIndex(ctx context.Context, batch int) ([]domain.IndexItem, error) {
	if f.browser == nil {
		if batch != 0 {
			return nil, fmt.Errorf("feed not started before batch %d", batch)
		}
		b, err := newBrowser(f.cfg.Headless, f.cfg.PageTimeout)
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		f.browser = b
		if err := f.browser.run(ctx,
			chromedp.Navigate(f.cfg.BaseURL),
			chromedp.Sleep(web.Jitter(time.Second, 2*time.Second)),
		); err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
	}

	if batch > 0 {
		var clicked bool
		if err := f.browser.run(ctx, chromedp.Evaluate(showMoreJS, &clicked)); err != nil {
			return nil, fmt.Errorf("press show more: %w", err)
		}
		if !clicked {
			f.logger.Info("no show more button left", "batch", batch)
			return nil, nil
		}
	}

	if err := f.scrollToBottom(ctx); err != nil {
		return nil, fmt.Errorf("scroll batch %d: %w", batch, err)
	}

	var html string
	if err := f.browser.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read batch %d: %w", batch, err)
	}
	doc, err := web.ParseDocument([]byte(html))
	if err != nil {
		return nil, fmt.Errorf("parse batch %d: %w", batch, err)
	}
	items := parseFeed(doc, f.origin)

	f.logger.Debug("read feed batch", "batch", batch, "cards", len(items))
	return items, nil
}

// scrollToBottom scrolls until the page height stops growing so lazy cards render.
func (f *Feed) scrollToBottom(ctx context.Context) error {
	var prev int64
	for step := 0; step < maxScrollSteps; step++ {
		var height int64
		if err := f.browser.run(ctx, chromedp.Evaluate(scrollHeightJS, &height)); err != nil {
			return err
		}
		if height == prev {
			return nil
		}
		prev = height
		if err := f.browser.run(ctx,
			chromedp.Evaluate(scrollBottomJS, nil),
			chromedp.Sleep(web.Jitter(250*time.Millisecond, 500*time.Millisecond)),
		); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) Close() error {
	if f.browser != nil {
		f.browser.close()
		f.browser = nil
	}
	return nil
}
