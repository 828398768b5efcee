package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/climate-impact-dashboard/internal/dataset"
	"github.com/kjstillabower/climate-impact-dashboard/internal/lifecycle"
	"github.com/kjstillabower/climate-impact-dashboard/internal/service"
	"github.com/kjstillabower/climate-impact-dashboard/internal/validation"
	"github.com/kjstillabower/climate-impact-dashboard/internal/views"
)

// maxCountryNameLength bounds a single multi-select value.
const maxCountryNameLength = 200

// Settings holds the dashboard's initial control values and limits.
type Settings struct {
	PreviewRows      int
	DefaultYear      int
	DefaultCountries []string
	MaxCountries     int
}

// HealthConfig holds optional dependency checks for the health handler.
type HealthConfig struct {
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dashboard        *service.DashboardService
	settings         Settings
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(dashboard *service.DashboardService, settings Settings, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dashboard:    dashboard,
		settings:     settings,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// loadDataset loads the merged dataset and keeps the data-ready flag current.
func (h *Handler) loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	d, err := h.dashboard.Dataset(ctx)
	if err == nil && !lifecycle.IsDataReady() {
		h.logger.Info("merged data available", zap.String("path", d.Path()), zap.Int("records", d.Len()))
	}
	lifecycle.SetDataReady(err == nil)
	return d, err
}

// GetIndex handles GET /. When the merged file is missing only the
// instruction banner is rendered.
func (h *Handler) GetIndex(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDataset(r.Context())
	if err != nil {
		if errors.Is(err, dataset.ErrMergedFileMissing) {
			requestLogger(r, h.logger).Warn("merged data missing", zap.Error(err))
			writePage(w, http.StatusServiceUnavailable, missingPage, missingData{Message: MissingDataMessage})
			return
		}
		requestLogger(r, h.logger).Error("dataset load failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "LOAD_FAILED", "Unable to load merged data")
		return
	}

	year := views.ClampYear(d, h.settings.DefaultYear)
	selected := views.AvailableCountries(d, h.settings.DefaultCountries)
	writePage(w, http.StatusOK, dashboardPage, newDashboardData(d, h.settings.PreviewRows, year, selected))
}

// GetScatterView handles GET /api/views/scatter?year=Y.
func (h *Handler) GetScatterView(w http.ResponseWriter, r *http.Request) {
	d, ok := h.datasetOrError(w, r)
	if !ok {
		return
	}

	year := views.ClampYear(d, h.settings.DefaultYear)
	if raw, present := r.URL.Query()["year"]; present {
		minYear, maxYear, hasYears := d.YearRange()
		if !hasYears {
			minYear, maxYear = math.MinInt, math.MaxInt
		}
		v, err := validation.ValidateYear(first(raw), minYear, maxYear)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_YEAR", err.Error())
			return
		}
		year = v
	}

	body, err := h.dashboard.ScatterJSON(r.Context(), year)
	if err != nil {
		h.writeRenderError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// GetLineView handles GET /api/views/line?country=A&country=B. Without any
// country parameter the default selection applies; "country=" alone selects nothing.
func (h *Handler) GetLineView(w http.ResponseWriter, r *http.Request) {
	d, ok := h.datasetOrError(w, r)
	if !ok {
		return
	}

	countries := views.AvailableCountries(d, h.settings.DefaultCountries)
	if raw, present := r.URL.Query()["country"]; present {
		v, err := validation.ValidateCountries(raw, h.settings.MaxCountries, maxCountryNameLength)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_COUNTRIES", err.Error())
			return
		}
		countries = v
	}

	body, err := h.dashboard.LineJSON(r.Context(), countries)
	if err != nil {
		h.writeRenderError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (h *Handler) datasetOrError(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, bool) {
	d, err := h.loadDataset(r.Context())
	if err == nil {
		return d, true
	}
	if errors.Is(err, dataset.ErrMergedFileMissing) {
		writeError(w, r, http.StatusServiceUnavailable, "DATA_NOT_FOUND", MissingDataMessage)
		return nil, false
	}
	requestLogger(r, h.logger).Error("dataset load failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "LOAD_FAILED", "Unable to load merged data")
	return nil, false
}

func (h *Handler) writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dataset.ErrMergedFileMissing) {
		writeError(w, r, http.StatusServiceUnavailable, "DATA_NOT_FOUND", MissingDataMessage)
		return
	}
	requestLogger(r, h.logger).Error("view render failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render view")
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	result := h.computeHealthStatus(r.Context(), checks)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "climate-impact-dashboard",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > dataset missing > cache unreachable > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context, checks map[string]string) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}

	result := healthResult{"healthy", http.StatusOK, ""}
	if _, err := h.loadDataset(ctx); err != nil {
		if errors.Is(err, dataset.ErrMergedFileMissing) {
			checks["dataset"] = "missing"
		} else {
			checks["dataset"] = "unhealthy"
		}
		result = healthResult{"degraded", http.StatusServiceUnavailable, "dataset_unavailable"}
	} else {
		checks["dataset"] = "healthy"
	}

	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			if result.status == "healthy" {
				result = healthResult{"degraded", http.StatusServiceUnavailable, "cache_unreachable"}
			}
		}
	}
	return result
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// requestLogger returns the correlation-scoped logger from the request, or fallback.
func requestLogger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already-encoded JSON body.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		corrID = v
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
