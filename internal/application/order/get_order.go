package order

import (
	"context"

	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/google/uuid"
)

// GetOrderResponse combines the order with its retry history.
type GetOrderResponse struct {
	Order   *order.Order
	History *retry.History
}

// GetOrderUseCase loads one order and its payment retry state.
type GetOrderUseCase struct {
	orderRepo order.Repository
	retryRepo retry.Repository
}

// NewGetOrderUseCase creates a new GetOrderUseCase.
func NewGetOrderUseCase(orderRepo order.Repository, retryRepo retry.Repository) *GetOrderUseCase {
	return &GetOrderUseCase{orderRepo: orderRepo, retryRepo: retryRepo}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, id uuid.UUID) (*GetOrderResponse, error) {
	o, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	h, err := uc.retryRepo.GetByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GetOrderResponse{Order: o, History: h}, nil
}
