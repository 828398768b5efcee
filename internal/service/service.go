package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-impact-dashboard/internal/cache"
	"github.com/kjstillabower/climate-impact-dashboard/internal/dataset"
	"github.com/kjstillabower/climate-impact-dashboard/internal/observability"
	"github.com/kjstillabower/climate-impact-dashboard/internal/views"
)

// DashboardService renders dashboard views from the memoized dataset, with a
// cache-aside layer over the rendered JSON. Views are pure functions of the
// immutable dataset and the selection, so cached payloads never go stale
// within a process lifetime.
type DashboardService struct {
	loader *dataset.Loader
	path   string
	cache  cache.Cache // nil disables view caching
	ttl    time.Duration
}

// NewDashboardService creates a service reading the merged file at path.
func NewDashboardService(loader *dataset.Loader, path string, c cache.Cache, ttl time.Duration) *DashboardService {
	return &DashboardService{loader: loader, path: path, cache: c, ttl: ttl}
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// Dataset returns the loaded dataset. Wraps dataset.ErrMergedFileMissing when
// the merge job has not been run.
func (s *DashboardService) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	return s.loader.Load(s.path)
}

// ScatterJSON renders the scatter view for year as JSON.
func (s *DashboardService) ScatterJSON(ctx context.Context, year int) ([]byte, error) {
	return s.render(ctx, views.ScatterView, "scatter:"+strconv.Itoa(year), func(d *dataset.Dataset) views.View {
		return views.Scatter(d, year)
	})
}

// LineJSON renders the line view for the selected countries as JSON.
func (s *DashboardService) LineJSON(ctx context.Context, countries []string) ([]byte, error) {
	return s.render(ctx, views.LineView, lineKey(countries), func(d *dataset.Dataset) views.View {
		return views.Line(d, countries)
	})
}

// lineKey is order-insensitive: the line view depends only on the selected set.
func lineKey(countries []string) string {
	sorted := append([]string(nil), countries...)
	sort.Strings(sorted)
	return "line:" + strings.Join(sorted, "|")
}

func (s *DashboardService) render(ctx context.Context, name, key string, build func(*dataset.Dataset) views.View) ([]byte, error) {
	start := time.Now()
	logger := loggerFromContext(ctx)

	d, err := s.loader.Load(s.path)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			observability.ViewCacheErrorsTotal.WithLabelValues("get").Inc()
			if logger != nil {
				logger.Warn("view cache get failed", zap.String("key", key), zap.Error(err))
			}
		} else if ok {
			observability.ViewCacheHitsTotal.WithLabelValues(name).Inc()
			if logger != nil {
				logger.Debug("view served", zap.String("view", name), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
			}
			return cached, nil
		}
	}

	v := build(d)
	observability.RecordViewRender(name, string(v.State))
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s view: %w", name, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			observability.ViewCacheErrorsTotal.WithLabelValues("set").Inc()
			if logger != nil {
				logger.Warn("view cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	if logger != nil {
		logger.Debug("view served", zap.String("view", name), zap.String("state", string(v.State)), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	}
	return raw, nil
}
