package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-impact-dashboard/internal/observability"
)

// ScatterRenderer is implemented by the service layer; rendering through it
// populates the view cache. Declared here to avoid importing the service package.
type ScatterRenderer interface {
	ScatterJSON(ctx context.Context, year int) ([]byte, error)
}

// Warmer pre-renders the scatter view for every slider position.
type Warmer struct {
	renderer ScatterRenderer
	logger   *zap.Logger
}

// NewWarmer creates a Warmer that renders through r.
func NewWarmer(r ScatterRenderer, logger *zap.Logger) *Warmer {
	return &Warmer{renderer: r, logger: logger}
}

// Years returns every year in the inclusive range [from, to].
func Years(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

// Warm renders each year concurrently. Returns an aggregated error if any year failed.
func (w *Warmer) Warm(ctx context.Context, years []int) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming view cache", zap.Int("years", len(years)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(years))
	for _, year := range years {
		year := year
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.renderer.ScatterJSON(ctx, year); err != nil {
				errCh <- fmt.Errorf("warm %d: %w", year, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("view cache warming complete", zap.Int("years", len(years)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}
