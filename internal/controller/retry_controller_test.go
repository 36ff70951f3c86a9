package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	orderApp "github.com/cassiomorais/ordersaga/internal/application/order"
	"github.com/cassiomorais/ordersaga/internal/testutil"
	"github.com/google/uuid"
)

func newRetryController(retryRepo *testutil.MockRetryRepository, staleness time.Duration) *RetryController {
	return NewRetryController(
		orderApp.NewGetStatisticsUseCase(retryRepo),
		orderApp.NewFindStaleUseCase(retryRepo, staleness),
	)
}

func TestRetryController_Statistics(t *testing.T) {
	retryRepo := testutil.NewMockRetryRepository()

	succeeded, txID := testutil.NewRetryingHistory(uuid.New(), 3, time.Now())
	succeeded.MarkSuccessful(txID)
	retryRepo.AddHistory(succeeded)
	retryRepo.AddHistory(testutil.NewTestHistory(uuid.New(), 3))

	handler := newRetryController(retryRepo, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/retries/statistics", nil)
	rec := httptest.NewRecorder()

	handler.Statistics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp StatisticsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Successful != 1 || resp.Pending != 1 {
		t.Errorf("unexpected statistics: %+v", resp)
	}
	if resp.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", resp.SuccessRate)
	}
}

func TestRetryController_Statistics_ExplicitWindow(t *testing.T) {
	retryRepo := testutil.NewMockRetryRepository()
	retryRepo.AddHistory(testutil.NewTestHistory(uuid.New(), 3))

	handler := newRetryController(retryRepo, time.Hour)

	from := time.Now().Add(-time.Hour).Format(time.RFC3339)
	to := time.Now().Add(time.Hour).Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/retries/statistics?from="+from+"&to="+to, nil)
	rec := httptest.NewRecorder()

	handler.Statistics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestRetryController_Statistics_BadWindow(t *testing.T) {
	handler := newRetryController(testutil.NewMockRetryRepository(), time.Hour)

	tests := []struct {
		name  string
		query string
	}{
		{"malformed from", "?from=yesterday"},
		{"malformed to", "?to=tomorrow"},
		{"inverted window", "?from=2026-01-02T00:00:00Z&to=2026-01-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/retries/statistics"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.Statistics(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestRetryController_Stale(t *testing.T) {
	retryRepo := testutil.NewMockRetryRepository()

	stuck, _ := testutil.NewRetryingHistory(uuid.New(), 3, time.Now().Add(-24*time.Hour))
	retryRepo.AddHistory(stuck)

	fresh, _ := testutil.NewRetryingHistory(uuid.New(), 3, time.Now())
	retryRepo.AddHistory(fresh)

	handler := newRetryController(retryRepo, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/retries/stale", nil)
	rec := httptest.NewRecorder()

	handler.Stale(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		Count   int                  `json:"count"`
		Records []StaleRetryResponse `json:"records"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Records) != 1 {
		t.Fatalf("expected 1 stale record, got count=%d records=%d", resp.Count, len(resp.Records))
	}
	if resp.Records[0].OrderID != stuck.OrderID.String() {
		t.Error("the stuck record should be the one reported")
	}
}

func TestRetryController_Stale_InvalidLimit(t *testing.T) {
	handler := newRetryController(testutil.NewMockRetryRepository(), time.Hour)

	for _, limit := range []string{"0", "-5", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/retries/stale?limit="+limit, nil)
		rec := httptest.NewRecorder()

		handler.Stale(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected status %d, got %d", limit, http.StatusBadRequest, rec.Code)
		}
	}
}
