package controller

import (
	"net/http"
	"strconv"
	"time"

	orderApp "github.com/cassiomorais/ordersaga/internal/application/order"
	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
)

const (
	defaultStatsWindow = 24 * time.Hour
	defaultStaleLimit  = 100
)

type RetryController struct {
	statsUC *orderApp.GetStatisticsUseCase
	staleUC *orderApp.FindStaleUseCase
}

func NewRetryController(statsUC *orderApp.GetStatisticsUseCase, staleUC *orderApp.FindStaleUseCase) *RetryController {
	return &RetryController{statsUC: statsUC, staleUC: staleUC}
}

// Statistics handles GET /api/v1/retries/statistics?from=...&to=...
// The window defaults to the last 24 hours.
func (c *RetryController) Statistics(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	window := retry.Window{From: now.Add(-defaultStatsWindow), To: now}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("from", "must be RFC3339"))
			return
		}
		window.From = from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("to", "must be RFC3339"))
			return
		}
		window.To = to
	}
	if !window.To.After(window.From) {
		writeError(w, domainErrors.NewValidationError("to", "must be after from"))
		return
	}

	stats, err := c.statsUC.Execute(r.Context(), window)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatisticsResponse(stats))
}

// Stale handles GET /api/v1/retries/stale?limit=N. It lists non-terminal
// records that have not moved past the staleness threshold.
func (c *RetryController) Stale(w http.ResponseWriter, r *http.Request) {
	limit := defaultStaleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, domainErrors.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	histories, err := c.staleUC.Execute(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]StaleRetryResponse, 0, len(histories))
	for _, h := range histories {
		out = append(out, toStaleRetryResponse(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"records": out,
	})
}
