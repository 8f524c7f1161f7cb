package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/taho/analytics/internal/collector"
	"github.com/taho/analytics/pkg/logger"
)

// CollectRunner is the slice of the collector the handler drives
type CollectRunner interface {
	Collect(ctx context.Context, from, to time.Time) (*collector.Result, error)
}

// CollectHandler handles manual collection triggers
type CollectHandler struct {
	collector CollectRunner
	logger    *logger.Logger
}

// NewCollectHandler creates a new collect handler
func NewCollectHandler(col CollectRunner, log *logger.Logger) *CollectHandler {
	return &CollectHandler{
		collector: col,
		logger:    log,
	}
}

// CollectRequest represents a collection request.
// Omitted bounds default to the last 24 hours.
type CollectRequest struct {
	From string `json:"from"` // RFC3339
	To   string `json:"to"`   // RFC3339
}

// Collect triggers collection for a time range
// POST /api/collect
func (h *CollectHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CollectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	to := now
	var err error

	if req.From != "" {
		from, err = time.Parse(time.RFC3339, req.From)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' (expected RFC3339)")
			return
		}
	}
	if req.To != "" {
		to, err = time.Parse(time.RFC3339, req.To)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' (expected RFC3339)")
			return
		}
	}

	if !from.Before(to) {
		respondError(w, http.StatusBadRequest, "'from' must be before 'to'")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}).Info("Collection triggered")

	result, err := h.collector.Collect(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Collection failed")
		respondError(w, http.StatusInternalServerError, "Collection failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"result": result,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
