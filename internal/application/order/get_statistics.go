package order

import (
	"context"

	"github.com/cassiomorais/ordersaga/internal/domain/retry"
)

// GetStatisticsUseCase aggregates retry outcomes over a time window.
type GetStatisticsUseCase struct {
	retryRepo retry.Repository
}

// NewGetStatisticsUseCase creates a new GetStatisticsUseCase.
func NewGetStatisticsUseCase(retryRepo retry.Repository) *GetStatisticsUseCase {
	return &GetStatisticsUseCase{retryRepo: retryRepo}
}

func (uc *GetStatisticsUseCase) Execute(ctx context.Context, window retry.Window) (retry.Statistics, error) {
	return uc.retryRepo.Statistics(ctx, window)
}
