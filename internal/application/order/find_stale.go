package order

import (
	"context"
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/retry"
)

// FindStaleUseCase surfaces non-terminal retry records that have not moved
// for longer than the staleness threshold. Diagnostic only, nothing is
// transitioned.
type FindStaleUseCase struct {
	retryRepo retry.Repository
	threshold time.Duration
}

// NewFindStaleUseCase creates a new FindStaleUseCase.
func NewFindStaleUseCase(retryRepo retry.Repository, threshold time.Duration) *FindStaleUseCase {
	return &FindStaleUseCase{retryRepo: retryRepo, threshold: threshold}
}

func (uc *FindStaleUseCase) Execute(ctx context.Context, limit int) ([]*retry.History, error) {
	cutoff := time.Now().Add(-uc.threshold)
	return uc.retryRepo.FindStale(ctx, cutoff, limit)
}
