package motorist

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

const (
	SourceID   = "motorist"
	SourceName = "Motorist"
)

var idRe = regexp.MustCompile(`/used-car/(\d+)(?:/|$)`)

// ListingID extracts the numeric id from a detail url.
func ListingID(rawURL string) string {
	m := idRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

type Config struct {
	BaseURL string
}

type Source struct {
	client  *web.Client
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

func New(cfg Config, client *web.Client, logger *slog.Logger) *Source {
	return &Source{
		client:  client,
		baseURL: cfg.BaseURL,
		logger:  logger.With("source", SourceID),
		now:     time.Now,
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

// FetchIndex returns the detail cards of one index page in DOM order.
func (s *Source) FetchIndex(ctx context.Context, page int) ([]domain.IndexItem, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("_", strconv.FormatInt(s.now().Unix(), 10))

	doc, err := s.client.Document(ctx, s.baseURL+"/used-cars", params)
	if err != nil {
		return nil, fmt.Errorf("fetch index page %d: %w", page, err)
	}
	items := parseIndex(doc, s.baseURL)

	s.logger.Debug("fetched index page", "page", page, "cards", len(items))
	return items, nil
}

func (s *Source) FetchDetail(ctx context.Context, rawURL string) (*domain.Listing, error) {
	doc, err := s.client.Document(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}
	listing := parseDetail(doc, rawURL)
	listing.ID = ListingID(rawURL)
	return listing, nil
}

// Probe reports a listing as sold when the page is gone or shows the sold banner.
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
	return soldBanner(doc), nil
}
