package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments (id, transaction_id, order_id, customer_id, amount_cents, currency, status, provider_transaction_id, last_error, created_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.TransactionID, p.OrderID, p.CustomerID, p.AmountCents, p.Currency,
		string(p.Status), p.ProviderTransactionID, p.LastError, p.CreatedAt, p.UpdatedAt, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*payment.Payment, error) {
	p := &payment.Payment{}
	var status string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, transaction_id, order_id, customer_id, amount_cents, currency, status, provider_transaction_id, last_error, created_at, updated_at, completed_at
		 FROM payments WHERE transaction_id = $1`, transactionID,
	).Scan(&p.ID, &p.TransactionID, &p.OrderID, &p.CustomerID, &p.AmountCents, &p.Currency,
		&status, &p.ProviderTransactionID, &p.LastError, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.Status = payment.Status(status)
	return p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments
		 SET status = $1, provider_transaction_id = $2, last_error = $3, updated_at = $4, completed_at = $5
		 WHERE id = $6`,
		string(p.Status), p.ProviderTransactionID, p.LastError, p.UpdatedAt, p.CompletedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}
