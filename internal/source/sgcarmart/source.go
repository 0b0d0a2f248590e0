package sgcarmart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

const (
	SourceID   = "sgcarmart"
	SourceName = "SGCarMart"
)

var trailingIDRe = regexp.MustCompile(`-(\d+)$`)

// ListingID reads the ID query parameter, falling back to a trailing number in
// the last path segment.
func ListingID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	if id := u.Query().Get("ID"); id != "" {
		return id
	}
	if m := trailingIDRe.FindStringSubmatch(path.Base(strings.TrimSuffix(u.Path, "/"))); m != nil {
		return m[1]
	}
	return ""
}

type Config struct {
	BaseURL  string
	PageSize int
}

type Source struct {
	client   *web.Client
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

func New(cfg Config, client *web.Client, logger *slog.Logger) *Source {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Source{
		client:   client,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize: pageSize,
		logger:   logger.With("source", SourceID),
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

func (s *Source) listingURL() string {
	return s.baseURL + "/used-cars/listing"
}

// Brands lists the makes offered in the search filter.
func (s *Source) Brands(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("q", "")
	params.Set("avl", "a")

	doc, err := s.client.Document(ctx, s.listingURL(), params)
	if err != nil {
		return nil, fmt.Errorf("fetch brand list: %w", err)
	}
	brands := parseBrands(doc)
	if len(brands) == 0 {
		return nil, errors.New("no brands in search filter")
	}

	s.logger.Debug("fetched brand list", "brands", len(brands))
	return brands, nil
}

// FetchBrandIndex returns one page of a brand's available listings, newest first.
func (s *Source) FetchBrandIndex(ctx context.Context, brand string, page int) ([]domain.IndexItem, error) {
	params := url.Values{}
	params.Set("q", brand)
	params.Set("avl", "a")
	params.Set("limit", strconv.Itoa(s.pageSize))
	params.Set("page", strconv.Itoa(page))

	doc, err := s.client.Document(ctx, s.listingURL(), params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page %d: %w", brand, page, err)
	}
	entries, err := parseIndex(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s page %d: %w", brand, page, err)
	}

	items := make([]domain.IndexItem, 0, len(entries))
	for _, e := range entries {
		link := web.Absolute(s.baseURL+"/", e.Link)
		if link == "" {
			continue
		}
		items = append(items, domain.IndexItem{
			URL:        link,
			PostedDate: domain.ParseDate(e.Date),
		})
	}

	s.logger.Debug("fetched brand page", "brand", brand, "page", page, "cards", len(items))
	return items, nil
}

func (s *Source) FetchDetail(ctx context.Context, rawURL string) (*domain.Listing, error) {
	doc, err := s.client.Document(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}
	payload, err := parseDetailPayload(doc)
	if err != nil {
		return nil, fmt.Errorf("parse detail: %w", err)
	}
	listing, err := listingFromPayload(payload, rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse detail: %w", err)
	}
	listing.ID = ListingID(rawURL)
	return listing, nil
}

// Probe reports sold for a removed page or a sold/expired status. A page whose
// status cannot be read counts as still available.
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
	payload, err := parseDetailPayload(doc)
	if err != nil {
		return false, nil
	}
	status, ok := detailStatus(payload)
	if !ok {
		return false, nil
	}
	return StatusFromLabel(status) == domain.StatusSold, nil
}
