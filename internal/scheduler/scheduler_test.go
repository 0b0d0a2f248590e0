package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_resale/internal/domain"
)

type runnerFunc func(ctx context.Context) (*domain.RunSummary, error)

func (f runnerFunc) Run(ctx context.Context) (*domain.RunSummary, error) {
	return f(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce_BoundsRunWithTimeout(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context) (*domain.RunSummary, error) {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)
		return &domain.RunSummary{
			Crawls:    []*domain.CrawlStats{{Site: domain.SiteMotorist, Added: 2, HaltReason: domain.HaltFrontier}},
			Reconcile: &domain.ReconcileStats{Sold: 1},
		}, nil
	})

	summary := NewScheduler(runner, 24*time.Hour, time.Hour, discardLogger()).RunOnce(context.Background())

	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Crawls[0].Added)
	assert.Equal(t, 1, summary.Reconcile.Sold)
}

func TestRunOnce_ReturnsPartialSummaryOnError(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context) (*domain.RunSummary, error) {
		_, ok := ctx.Deadline()
		assert.False(t, ok)
		return &domain.RunSummary{}, errors.New("carro: browser crashed")
	})

	summary := NewScheduler(runner, time.Hour, 0, discardLogger()).RunOnce(context.Background())

	assert.NotNil(t, summary)
}

func TestRunOnce_NilSummary(t *testing.T) {
	runner := runnerFunc(func(context.Context) (*domain.RunSummary, error) {
		return nil, errors.New("database down")
	})

	assert.Nil(t, NewScheduler(runner, time.Hour, time.Minute, discardLogger()).RunOnce(context.Background()))
}

func TestStart_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := runnerFunc(func(context.Context) (*domain.RunSummary, error) {
		if runs.Add(1) == 3 {
			cancel()
		}
		return &domain.RunSummary{}, nil
	})

	err := NewScheduler(runner, 10*time.Millisecond, time.Second, discardLogger()).Start(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}
