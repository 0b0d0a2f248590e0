package carro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/publicsuffix"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

const (
	SourceID   = "carro"
	SourceName = "Carro"
)

// ErrNoOverview is returned when a detail page rendered without its overview cards.
var ErrNoOverview = errors.New("detail overview not rendered")

type Config struct {
	BaseURL     string
	APIURL      string
	Headless    bool
	PageTimeout time.Duration
	HTTP        web.Config
}

// Source probes Carro through a shared client. Detail pages and their listing
// API dates are read through sessions, each with its own cookies and agent.
type Source struct {
	client *web.Client
	cfg    Config
	origin string
	logger *slog.Logger
}

func New(cfg Config, client *web.Client, logger *slog.Logger) *Source {
	origin := "https://carro.co"
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return &Source{
		client: client,
		cfg:    cfg,
		origin: origin,
		logger: logger.With("source", SourceID),
	}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) ListingID(rawURL string) string {
	return ListingID(rawURL)
}

// Feed opens a new scroll feed. The browser starts on the first FetchIndex.
func (s *Source) Feed() *Feed {
	return &Feed{
		cfg:    s.cfg,
		origin: s.origin,
		logger: s.logger.With("component", "feed"),
	}
}

// Probe reports sold for a removed page or a sold, pending, reserved or held status.
func (s *Source) Probe(ctx context.Context, rawURL string) (bool, error) {
	body, err := s.client.Once(ctx, rawURL)
	if web.IsGone(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	doc, err := web.ParseDocument(body)
	if err != nil {
		return false, err
	}
	return isSold(statusText(doc)), nil
}

// withDates fills the posted and repriced dates from the listing API through
// the session's own client. A failed lookup leaves the posted date unknown.
func (s *Source) withDates(ctx context.Context, client *web.Client, l *domain.Listing) *domain.Listing {
	dates, err := fetchDates(ctx, client, s.cfg.APIURL, Slug(l.URL))
	if err != nil {
		s.logger.Debug("listing dates unavailable", "url", l.URL, "error", err)
		l.Attributes["price_updated_on"] = domain.NotAvailable
		return l
	}
	l.PostedDate = dates.Posted
	l.Attributes["price_updated_on"] = dates.PriceUpdated.String()
	return l
}

// sessionClient builds an HTTP client with its own cookie jar and user agent.
func (s *Source) sessionClient() (*web.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	cfg := s.cfg.HTTP
	cfg.UserAgent = web.RandomUserAgent()
	cfg.Referer = s.cfg.BaseURL
	cfg.MaxAttempts = 1

	hc := &http.Client{Timeout: cfg.Timeout, Jar: jar}
	return web.NewWithHTTPClient(hc, cfg, s.logger), nil
}

// HTTPSession fetches detail pages over plain HTTP with its own cookie jar.
type HTTPSession struct {
	source *Source
	client *web.Client
}

func (s *Source) OpenHTTPSession(_ context.Context) (*HTTPSession, error) {
	client, err := s.sessionClient()
	if err != nil {
		return nil, err
	}
	return &HTTPSession{source: s, client: client}, nil
}

func (h *HTTPSession) FetchDetail(ctx context.Context, rawURL string) (*domain.Listing, error) {
	doc, err := h.client.Document(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}
	if !hasDetail(doc) {
		return nil, ErrNoOverview
	}
	return h.source.withDates(ctx, h.client, parseDetail(doc, rawURL)), nil
}

func (h *HTTPSession) Close() error {
	return nil
}

// BrowserSession renders detail pages in its own Chrome process and reads the
// listing API through its own HTTP client.
type BrowserSession struct {
	source  *Source
	browser *browser
	client  *web.Client
}

func (s *Source) OpenBrowserSession(_ context.Context) (*BrowserSession, error) {
	client, err := s.sessionClient()
	if err != nil {
		return nil, err
	}
	b, err := newBrowser(s.cfg.Headless, s.cfg.PageTimeout)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return &BrowserSession{source: s, browser: b, client: client}, nil
}

func (b *BrowserSession) FetchDetail(ctx context.Context, rawURL string) (*domain.Listing, error) {
	var html string
	err := b.browser.run(ctx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(web.Jitter(1500*time.Millisecond, 3500*time.Millisecond)),
		chromedp.WaitVisible(metaCardSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render detail: %w", err)
	}
	doc, err := web.ParseDocument([]byte(html))
	if err != nil {
		return nil, fmt.Errorf("parse detail: %w", err)
	}
	if !hasDetail(doc) {
		return nil, ErrNoOverview
	}
	return b.source.withDates(ctx, b.client, parseDetail(doc, rawURL)), nil
}

func (b *BrowserSession) Close() error {
	b.browser.close()
	return nil
}
