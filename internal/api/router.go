package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/taho/analytics/internal/api/handlers"
	"github.com/taho/analytics/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(analytics *handlers.AnalyticsHandler, collect *handlers.CollectHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Collection
	api.HandleFunc("/collect", collect.Collect).Methods("POST")

	// Analytics endpoints; all accept the same query parameters
	// (as_of, lookback_days, granularity, equity_base, hour_offset)
	api.HandleFunc("/analytics/report", analytics.GetReport).Methods("GET")
	api.HandleFunc("/analytics/daily", analytics.GetDaily).Methods("GET")
	api.HandleFunc("/analytics/hourly", analytics.GetHourly).Methods("GET")
	api.HandleFunc("/analytics/symbols", analytics.GetSymbols).Methods("GET")
	api.HandleFunc("/analytics/fees", analytics.GetFees).Methods("GET")
	api.HandleFunc("/analytics/risk", analytics.GetRisk).Methods("GET")
	api.HandleFunc("/analytics/regime", analytics.GetRegime).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "taho-analytics",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
