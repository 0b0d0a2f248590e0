package service

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"car_resale/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func day(year int, month time.Month, d int) domain.Date {
	return domain.NewDate(year, month, d)
}

func fixedNow() time.Time {
	return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
}

// lastSegment stands in for a site's url-to-id rule.
func lastSegment(url string) string {
	url = strings.TrimSuffix(url, "/")
	return url[strings.LastIndex(url, "/")+1:]
}

func motoristURL(id string) string {
	return "https://www.motorist.sg/used-car/" + id
}

func storeOf(listings ...domain.Listing) *domain.Store {
	s := domain.NewStore()
	for _, l := range listings {
		s.Put(l)
	}
	return s
}

// details serves detail pages from a fixed set, returning a fresh copy per call.
func details(listings ...domain.Listing) func(context.Context, string) (*domain.Listing, error) {
	byURL := make(map[string]domain.Listing, len(listings))
	for _, l := range listings {
		byURL[l.URL] = l
	}
	return func(_ context.Context, url string) (*domain.Listing, error) {
		l, ok := byURL[url]
		if !ok {
			return nil, errNotFound
		}
		clone := l.Clone()
		return &clone, nil
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errNotFound = testError("not found")
