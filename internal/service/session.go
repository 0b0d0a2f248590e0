package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"car_resale/internal/domain"
)

// NewSessionFunc opens a fresh session with no state shared with other sessions.
type NewSessionFunc func(ctx context.Context) (Session, error)

// sessionRetrier fetches through one session and replaces it after every
// failed attempt, up to attempts tries per url.
type sessionRetrier struct {
	newSession NewSessionFunc
	attempts   int
	backoff    time.Duration
	session    Session
	logger     *slog.Logger
}

func newSessionRetrier(newSession NewSessionFunc, attempts int, backoff time.Duration, logger *slog.Logger) *sessionRetrier {
	if attempts < 1 {
		attempts = 1
	}
	return &sessionRetrier{
		newSession: newSession,
		attempts:   attempts,
		backoff:    backoff,
		logger:     logger,
	}
}

func (r *sessionRetrier) Fetch(ctx context.Context, url string) (*domain.Listing, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		listing, err := r.try(ctx, url)
		if err == nil {
			return listing, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}

		r.logger.Warn("detail fetch failed, resetting session",
			"url", url,
			"attempt", attempt,
			"error", err,
		)
		r.reset()

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(r.backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", r.attempts, lastErr)
}

func (r *sessionRetrier) try(ctx context.Context, url string) (*domain.Listing, error) {
	if r.session == nil {
		s, err := r.newSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		r.session = s
	}
	return r.session.FetchDetail(ctx, url)
}

func (r *sessionRetrier) reset() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.logger.Debug("failed to close session", "error", err)
	}
	r.session = nil
}

func (r *sessionRetrier) Close() {
	r.reset()
}
