package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/climate-impact-dashboard/internal/observability"
)

// NewRouter wires the dashboard routes. View endpoints are rate limited and
// carry a request deadline; the page, health and metrics are not.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", h.GetIndex).Methods("GET")
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	viewRouter := router.PathPrefix("/api/views").Subrouter()
	viewRouter.Use(RateLimitMiddleware(limiter))
	viewRouter.Use(TimeoutMiddleware(requestTimeout))
	viewRouter.HandleFunc("/scatter", h.GetScatterView).Methods("GET")
	viewRouter.HandleFunc("/line", h.GetLineView).Methods("GET")
	return router
}
