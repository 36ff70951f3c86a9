package order_test

import (
	"context"
	"testing"
	"time"

	orderApp "github.com/cassiomorais/ordersaga/internal/application/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/cassiomorais/ordersaga/internal/testutil"
	"github.com/google/uuid"
)

func TestFindStale(t *testing.T) {
	ctx := context.Background()
	retryRepo := testutil.NewMockRetryRepository()

	// Stuck since yesterday.
	stale, _ := testutil.NewRetryingHistory(uuid.New(), 5, time.Now().Add(-24*time.Hour))
	retryRepo.AddHistory(stale)

	// Started a minute ago, still healthy.
	fresh, _ := testutil.NewRetryingHistory(uuid.New(), 5, time.Now().Add(-time.Minute))
	retryRepo.AddHistory(fresh)

	// Old but resolved; not a diagnostic concern.
	resolved, txID := testutil.NewRetryingHistory(uuid.New(), 5, time.Now().Add(-24*time.Hour))
	resolved.MarkSuccessful(txID)
	retryRepo.AddHistory(resolved)

	uc := orderApp.NewFindStaleUseCase(retryRepo, time.Hour)

	records, err := uc.Execute(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 stale record, got %d", len(records))
	}
	if records[0].OrderID != stale.OrderID {
		t.Error("the stuck record should be the one reported")
	}
}

func TestGetStatistics(t *testing.T) {
	ctx := context.Background()
	retryRepo := testutil.NewMockRetryRepository()

	succeeded, txID := testutil.NewRetryingHistory(uuid.New(), 5, time.Now())
	succeeded.MarkSuccessful(txID)
	retryRepo.AddHistory(succeeded)
	retryRepo.AddHistory(testutil.NewTestHistory(uuid.New(), 5))

	uc := orderApp.NewGetStatisticsUseCase(retryRepo)

	stats, err := uc.Execute(ctx, retry.Window{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Successful != 1 || stats.Pending != 1 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
	if stats.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0 over terminal records, got %f", stats.SuccessRate)
	}
}
