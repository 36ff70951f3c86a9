package payment

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/payment"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/cassiomorais/ordersaga/internal/providers"
	"github.com/cassiomorais/ordersaga/pkg/card"
	"github.com/cassiomorais/ordersaga/pkg/saga"
	"github.com/rs/zerolog"
)

// ProcessPaymentUseCase handles one inbound payment request: validate the
// card, charge the provider, then persist the payment and queue the
// resulting event in the outbox in a single transaction. A transaction id
// already seen is an idempotent no-op so broker redeliveries cannot double
// charge.
type ProcessPaymentUseCase struct {
	paymentRepo     payment.Repository
	txManager       TransactionManager
	publisher       EventPublisher
	providerFactory *providers.Factory
	providerName    string
	logger          zerolog.Logger
}

// NewProcessPaymentUseCase creates a new ProcessPaymentUseCase.
func NewProcessPaymentUseCase(
	paymentRepo payment.Repository,
	txManager TransactionManager,
	publisher EventPublisher,
	providerFactory *providers.Factory,
	providerName string,
	logger zerolog.Logger,
) *ProcessPaymentUseCase {
	return &ProcessPaymentUseCase{
		paymentRepo:     paymentRepo,
		txManager:       txManager,
		publisher:       publisher,
		providerFactory: providerFactory,
		providerName:    providerName,
		logger:          logger,
	}
}

// Execute processes a single payment request.
func (uc *ProcessPaymentUseCase) Execute(ctx context.Context, req messaging.PaymentRequestMessage) error {
	existing, err := uc.paymentRepo.GetByTransactionID(ctx, req.TransactionID)
	if err != nil && !errors.Is(err, domainErrors.ErrPaymentNotFound) {
		return err
	}
	if existing != nil {
		uc.logger.Info().
			Str("transaction_id", req.TransactionID.String()).
			Str("payment_id", existing.ID.String()).
			Str("status", string(existing.Status)).
			Msg("Duplicate payment request, ignoring")
		return nil
	}

	p, err := payment.New(req.TransactionID, req.OrderID, req.CustomerID, req.AmountCents, req.Currency)
	if err != nil {
		return err
	}

	if !card.ValidNumber(req.CardNumber) {
		return uc.rejectPayment(ctx, p, "invalid card number")
	}

	provider, _, err := uc.providerFactory.Get(uc.providerName)
	if err != nil {
		return uc.rejectPayment(ctx, p, err.Error())
	}

	var result *providers.ProviderResult
	s := saga.New("process-payment").
		AddStep(saga.Step{
			Name: "charge-provider",
			Execute: func(ctx context.Context) error {
				r, cbErr := uc.providerFactory.Execute(uc.providerName, func() (*providers.ProviderResult, error) {
					return provider.ProcessPayment(ctx, providers.ProcessRequest{
						PaymentID:   p.ID.String(),
						CardNumber:  req.CardNumber,
						AmountCents: p.AmountCents,
						Currency:    p.Currency,
					})
				})
				if cbErr != nil {
					return fmt.Errorf("provider call: %w", cbErr)
				}
				result = r
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if result == nil || result.Status != "success" {
					return nil
				}
				_, err := provider.RefundPayment(ctx, providers.RefundRequest{
					PaymentID:     p.ID.String(),
					TransactionID: result.TransactionID,
					AmountCents:   p.AmountCents,
					Currency:      p.Currency,
				})
				return err
			},
		}).
		AddStep(saga.Step{
			Name: "persist-payment",
			Execute: func(ctx context.Context) error {
				if err := p.MarkCompleted(result.TransactionID); err != nil {
					return err
				}
				return uc.persist(ctx, p)
			},
		})

	if _, sagaErr := s.Execute(ctx); sagaErr != nil {
		// The charge failed or could not be persisted. Record the
		// failure so the order side can schedule the next attempt.
		uc.logger.Warn().
			Err(sagaErr).
			Str("transaction_id", req.TransactionID.String()).
			Str("order_id", req.OrderID.String()).
			Msg("Payment processing failed")
		return uc.rejectPayment(ctx, p, failureReason(result, sagaErr))
	}

	uc.logger.Info().
		Str("transaction_id", req.TransactionID.String()).
		Str("payment_id", p.ID.String()).
		Str("provider", provider.Name()).
		Msg("Payment completed")
	return nil
}

// rejectPayment persists a failed payment and queues the PaymentFailed
// event. If the aggregate already reached completed (charge succeeded but
// persistence failed and the charge was refunded), a fresh aggregate is
// built so the failed state can be recorded.
func (uc *ProcessPaymentUseCase) rejectPayment(ctx context.Context, p *payment.Payment, reason string) error {
	if p.IsTerminal() {
		fresh, err := payment.New(p.TransactionID, p.OrderID, p.CustomerID, p.AmountCents, p.Currency)
		if err != nil {
			return err
		}
		p = fresh
	}
	if err := p.MarkFailed(reason); err != nil {
		return err
	}
	return uc.persist(ctx, p)
}

// persist writes the payment and its pending events atomically.
func (uc *ProcessPaymentUseCase) persist(ctx context.Context, p *payment.Payment) error {
	err := uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.paymentRepo.Create(txCtx, p); err != nil {
			return err
		}
		return uc.publisher.Publish(txCtx, p.PendingEvents())
	})
	if err != nil {
		return err
	}
	p.ClearEvents()
	return nil
}

func failureReason(result *providers.ProviderResult, err error) string {
	if result != nil && result.ErrorMessage != "" {
		return result.ErrorMessage
	}
	return err.Error()
}
