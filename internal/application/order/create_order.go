package order

import (
	"context"

	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
)

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	CardNumber  string
}

// CreateOrderResponse holds the result of creating an order.
type CreateOrderResponse struct {
	Order *order.Order
}

// CreateOrderUseCase creates the order together with its retry history so
// the scheduler picks the first payment attempt up on its next tick.
type CreateOrderUseCase struct {
	orderRepo   order.Repository
	retryRepo   retry.Repository
	txManager   TransactionManager
	dispatcher  EventDispatcher
	maxAttempts int
}

// NewCreateOrderUseCase creates a new CreateOrderUseCase.
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	retryRepo retry.Repository,
	txManager TransactionManager,
	dispatcher EventDispatcher,
	maxAttempts int,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo:   orderRepo,
		retryRepo:   retryRepo,
		txManager:   txManager,
		dispatcher:  dispatcher,
		maxAttempts: maxAttempts,
	}
}

// Execute creates the order, its retry history and dispatches the recorded
// events, all inside one transaction.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	o, err := order.New(req.CustomerID, req.AmountCents, req.Currency, req.CardNumber)
	if err != nil {
		return nil, err
	}

	h, err := retry.NewHistory(o.ID, uc.maxAttempts)
	if err != nil {
		return nil, err
	}

	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Create(txCtx, o); err != nil {
			return err
		}
		if err := uc.retryRepo.Create(txCtx, h); err != nil {
			return err
		}
		return uc.dispatcher.Dispatch(txCtx, &o.AggregateRoot)
	})
	if err != nil {
		return nil, err
	}

	return &CreateOrderResponse{Order: o}, nil
}
