package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/climate-impact-dashboard/internal/cache"
	"github.com/kjstillabower/climate-impact-dashboard/internal/dataset"
	"github.com/kjstillabower/climate-impact-dashboard/internal/lifecycle"
	"github.com/kjstillabower/climate-impact-dashboard/internal/service"
)

// 2019 sits inside the year range but has no rows.
const mergedCSV = "country,year,energy_per_capita,temp_anomaly\n" +
	"United States,2018,80000.0,1.0\n" +
	"China,2018,25000.0,0.5\n" +
	"United States,2020,78000.0,1.2\n" +
	"China,2020,27000.0,0.9\n" +
	"Brazil,2020,15000.0,0.4\n"

func testSettings() Settings {
	return Settings{
		PreviewRows:      5,
		DefaultYear:      2020,
		DefaultCountries: []string{"United States", "China"},
		MaxCountries:     50,
	}
}

func newTestRouter(t *testing.T, csv string, missing bool, health *HealthConfig, limiter *rate.Limiter) http.Handler {
	t.Helper()
	lifecycle.SetShuttingDown(false)
	t.Cleanup(func() {
		lifecycle.SetShuttingDown(false)
		lifecycle.SetDataReady(false)
	})

	loader := dataset.NewLoaderWithOpener(func(path string) (io.ReadCloser, error) {
		if missing {
			return nil, os.ErrNotExist
		}
		return io.NopCloser(strings.NewReader(csv)), nil
	}, zap.NewNop())
	svc := service.NewDashboardService(loader, "data/merged_energy_temp.csv", cache.NewInMemoryCache(), time.Minute)
	h := NewHandler(svc, testSettings(), health, zap.NewNop())
	return NewRouter(h, zap.NewNop(), limiter, 5*time.Second)
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type viewResponse struct {
	View   string `json:"view"`
	State  string `json:"state"`
	Notice string `json:"notice"`
	Figure *struct {
		Data []struct {
			Name string    `json:"name"`
			X    []float64 `json:"x"`
		} `json:"data"`
		Layout struct {
			Title struct {
				Text string `json:"text"`
			} `json:"title"`
		} `json:"layout"`
	} `json:"figure"`
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewResponse {
	t.Helper()
	var v viewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestGetIndex_RendersDashboard(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	rec := doGet(t, router, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "temp_anomaly_f")
	assert.Contains(t, body, "Brazil")
	assert.Contains(t, body, "1.8")
	assert.NotContains(t, body, MissingDataMessage)
	assert.True(t, lifecycle.IsDataReady())
}

// TestGetIndex_ChartsDropSupersededResponses verifies the page script aborts
// an earlier view request when a control changes, ignores replies that are
// not the latest, and clears the chart when a request fails.
func TestGetIndex_ChartsDropSupersededResponses(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	body := doGet(t, router, "/").Body.String()

	assert.Contains(t, body, "new AbortController()")
	assert.Contains(t, body, "slot.ctrl.abort()")
	assert.Contains(t, body, "if (!current()) { return; }")
	assert.Contains(t, body, "signal: ctrl.signal")
	assert.Regexp(t, `function clear\([^)]*\) \{\s*Plotly\.purge`, body)
}

func TestGetIndex_MissingDataShowsBanner(t *testing.T) {
	router := newTestRouter(t, "", true, nil, nil)

	rec := doGet(t, router, "/")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "go run ./cmd/merge")
	assert.NotContains(t, rec.Body.String(), "temp_anomaly_f")
	assert.False(t, lifecycle.IsDataReady())
}

func TestGetScatterView(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	tests := []struct {
		name       string
		target     string
		wantState  string
		wantTraces int
		wantTitle  string
	}{
		{"default year", "/api/views/scatter", "populated", 3, "in 2020"},
		{"explicit year", "/api/views/scatter?year=2018", "populated", 2, "in 2018"},
		{"year without rows", "/api/views/scatter?year=2019", "empty", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, router, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			v := decodeView(t, rec)
			assert.Equal(t, "scatter", v.View)
			assert.Equal(t, tt.wantState, v.State)
			if tt.wantState == "empty" {
				assert.Equal(t, "No data available for the selected year.", v.Notice)
				assert.Nil(t, v.Figure)
				return
			}
			require.NotNil(t, v.Figure)
			assert.Len(t, v.Figure.Data, tt.wantTraces)
			assert.Contains(t, v.Figure.Layout.Title.Text, tt.wantTitle)
		})
	}
}

func TestGetScatterView_InvalidYear(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	for _, target := range []string{
		"/api/views/scatter?year=abc",
		"/api/views/scatter?year=",
		"/api/views/scatter?year=1990",
		"/api/views/scatter?year=2050",
	} {
		t.Run(target, func(t *testing.T) {
			rec := doGet(t, router, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_YEAR", decodeError(t, rec).Error.Code)
		})
	}
}

func TestGetLineView(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	t.Run("default selection", func(t *testing.T) {
		v := decodeView(t, doGet(t, router, "/api/views/line"))
		assert.Equal(t, "populated", v.State)
		require.NotNil(t, v.Figure)
		require.Len(t, v.Figure.Data, 2)
		assert.Equal(t, "United States", v.Figure.Data[0].Name)
		assert.Equal(t, []float64{2018, 2020}, v.Figure.Data[0].X)
	})

	t.Run("explicit selection", func(t *testing.T) {
		v := decodeView(t, doGet(t, router, "/api/views/line?country=Brazil"))
		assert.Equal(t, "populated", v.State)
		require.NotNil(t, v.Figure)
		require.Len(t, v.Figure.Data, 1)
		assert.Equal(t, "Brazil", v.Figure.Data[0].Name)
	})

	t.Run("empty selection", func(t *testing.T) {
		v := decodeView(t, doGet(t, router, "/api/views/line?country="))
		assert.Equal(t, "empty", v.State)
		assert.Equal(t, "No data available for selected countries.", v.Notice)
	})

	t.Run("unknown country", func(t *testing.T) {
		v := decodeView(t, doGet(t, router, "/api/views/line?country=Atlantis"))
		assert.Equal(t, "empty", v.State)
	})
}

func TestGetLineView_InvalidCountries(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	rec := doGet(t, router, "/api/views/line?country="+strings.Repeat("x", maxCountryNameLength+1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_COUNTRIES", decodeError(t, rec).Error.Code)
}

func TestViews_MissingData(t *testing.T) {
	router := newTestRouter(t, "", true, nil, nil)

	for _, target := range []string{"/api/views/scatter?year=2020", "/api/views/line"} {
		t.Run(target, func(t *testing.T) {
			rec := doGet(t, router, target)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, "DATA_NOT_FOUND", e.Error.Code)
			assert.Equal(t, MissingDataMessage, e.Error.Message)
		})
	}
}

func TestGetHealth(t *testing.T) {
	pingErr := errors.New("connection refused")

	tests := []struct {
		name         string
		missing      bool
		health       *HealthConfig
		shuttingDown bool
		wantCode     int
		wantStatus   string
		wantChecks   map[string]string
	}{
		{
			name:       "healthy",
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"dataset": "healthy"},
		},
		{
			name:       "healthy with cache",
			health:     &HealthConfig{CachePing: func() error { return nil }},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"dataset": "healthy", "cache": "healthy"},
		},
		{
			name:       "dataset missing",
			missing:    true,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: map[string]string{"dataset": "missing"},
		},
		{
			name:       "cache unreachable",
			health:     &HealthConfig{CachePing: func() error { return pingErr }},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: map[string]string{"dataset": "healthy", "cache": "unhealthy"},
		},
		{
			name:         "shutting down",
			shuttingDown: true,
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "shutting-down",
			wantChecks:   map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, mergedCSV, tt.missing, tt.health, nil)
			lifecycle.SetShuttingDown(tt.shuttingDown)

			rec := doGet(t, router, "/health")

			require.Equal(t, tt.wantCode, rec.Code)
			var body struct {
				Status  string            `json:"status"`
				Service string            `json:"service"`
				Checks  map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, "climate-impact-dashboard", body.Service)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)
	doGet(t, router, "/api/views/scatter?year=2020")

	rec := doGet(t, router, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "httpRequestsTotal")
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t, mergedCSV, false, nil, nil)

	rec := doGet(t, router, "/api/views/pie")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
