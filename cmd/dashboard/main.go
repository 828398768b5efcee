package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/climate-impact-dashboard/internal/cache"
	"github.com/kjstillabower/climate-impact-dashboard/internal/config"
	"github.com/kjstillabower/climate-impact-dashboard/internal/dataset"
	httphandler "github.com/kjstillabower/climate-impact-dashboard/internal/http"
	"github.com/kjstillabower/climate-impact-dashboard/internal/lifecycle"
	"github.com/kjstillabower/climate-impact-dashboard/internal/observability"
	"github.com/kjstillabower/climate-impact-dashboard/internal/service"
)

func main() {
	logger, err := observability.NewLogger("dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var viewCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		viewCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "none":
		logger.Info("cache backend: none")
	default:
		viewCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	loader := dataset.NewLoader(logger)
	dashboard := service.NewDashboardService(loader, dataset.DefaultPath, viewCache, cfg.CacheTTL)

	healthConfig := &httphandler.HealthConfig{}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	handler := httphandler.NewHandler(dashboard, httphandler.Settings{
		PreviewRows:      cfg.PreviewRows,
		DefaultYear:      cfg.DefaultYear,
		DefaultCountries: cfg.DefaultCountries,
		MaxCountries:     cfg.MaxCountries,
	}, healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	d, err := dashboard.Dataset(context.Background())
	switch {
	case err == nil:
		lifecycle.SetDataReady(true)
		if cfg.WarmCache && viewCache != nil {
			if minYear, maxYear, ok := d.YearRange(); ok {
				warmer := cache.NewWarmer(dashboard, logger)
				warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := warmer.Warm(warmCtx, cache.Years(minYear, maxYear)); err != nil {
					logger.Warn("cache warming failed", zap.Error(err))
				}
				warmCancel()
			}
		}
	case errors.Is(err, dataset.ErrMergedFileMissing):
		logger.Warn("merged data not found; serving instructions until the merge job runs", zap.String("path", dataset.DefaultPath))
	default:
		logger.Error("initial dataset load", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	_ = observability.Flush(logger)
}
