package postgres

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RetryRepository struct {
	pool *pgxpool.Pool
}

func NewRetryRepository(pool *pgxpool.Pool) *RetryRepository {
	return &RetryRepository{pool: pool}
}

func (r *RetryRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *RetryRepository) Create(ctx context.Context, h *retry.History) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO retry_history (order_id, current_transaction_id, status, attempt_count, max_attempts, first_attempt_at, next_retry_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		h.OrderID, nilUUID(h.CurrentTransactionID), string(h.Status), h.AttemptCount, h.MaxAttempts,
		h.FirstAttemptAt, h.NextRetryAt, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert retry history: %w", err)
	}
	return nil
}

func (r *RetryRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*retry.History, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT order_id, current_transaction_id, status, attempt_count, max_attempts, first_attempt_at, next_retry_at, created_at, updated_at
		 FROM retry_history WHERE order_id = $1
		 FOR UPDATE`, orderID,
	)
	h, err := scanHistory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrRetryNotFound
		}
		return nil, fmt.Errorf("get retry history: %w", err)
	}

	attempts, err := r.loadAttempts(ctx, h.OrderID)
	if err != nil {
		return nil, err
	}
	h.Attempts = attempts
	return h, nil
}

// Update persists the history row and upserts its attempts. Callers run it
// inside the same transaction as the GetByOrderID that locked the row.
func (r *RetryRepository) Update(ctx context.Context, h *retry.History) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE retry_history
		 SET current_transaction_id = $1, status = $2, attempt_count = $3,
		     first_attempt_at = $4, next_retry_at = $5, updated_at = $6
		 WHERE order_id = $7`,
		nilUUID(h.CurrentTransactionID), string(h.Status), h.AttemptCount,
		h.FirstAttemptAt, h.NextRetryAt, h.UpdatedAt, h.OrderID,
	)
	if err != nil {
		return fmt.Errorf("update retry history: %w", err)
	}

	for _, a := range h.Attempts {
		var outcome, reason *string
		if a.Outcome != nil {
			s := string(*a.Outcome)
			outcome = &s
		}
		reason = a.FailureReason
		_, err := r.db(ctx).Exec(ctx,
			`INSERT INTO retry_attempts (order_id, attempt_number, transaction_id, attempted_at, outcome, failure_reason)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (order_id, attempt_number)
			 DO UPDATE SET outcome = EXCLUDED.outcome, failure_reason = EXCLUDED.failure_reason
			 WHERE retry_attempts.outcome IS NULL`,
			h.OrderID, a.AttemptNumber, a.TransactionID, a.AttemptedAt, outcome, reason,
		)
		if err != nil {
			return fmt.Errorf("upsert retry attempt %d: %w", a.AttemptNumber, err)
		}
	}
	return nil
}

func (r *RetryRepository) FindRetryable(ctx context.Context, now time.Time, limit int) ([]*retry.History, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT order_id, current_transaction_id, status, attempt_count, max_attempts, first_attempt_at, next_retry_at, created_at, updated_at
		 FROM retry_history
		 WHERE status IN ('pending', 'retrying')
		   AND attempt_count < max_attempts
		   AND (next_retry_at IS NULL OR next_retry_at <= $1)
		 ORDER BY first_attempt_at ASC NULLS FIRST
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find retryable histories: %w", err)
	}
	defer rows.Close()
	return collectHistories(rows)
}

func (r *RetryRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*retry.History, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT order_id, current_transaction_id, status, attempt_count, max_attempts, first_attempt_at, next_retry_at, created_at, updated_at
		 FROM retry_history
		 WHERE status IN ('pending', 'retrying')
		   AND first_attempt_at IS NOT NULL
		   AND first_attempt_at < $1
		 ORDER BY first_attempt_at ASC
		 LIMIT $2`, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find stale histories: %w", err)
	}
	defer rows.Close()
	return collectHistories(rows)
}

func (r *RetryRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	row := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM retry_history WHERE status IN ('pending', 'retrying')`,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count active histories: %w", err)
	}
	return count, nil
}

func (r *RetryRepository) Statistics(ctx context.Context, window retry.Window) (retry.Statistics, error) {
	var s retry.Statistics

	from := window.From
	to := window.To
	if to.IsZero() {
		to = time.Now()
	}

	row := r.db(ctx).QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE status = 'pending'),
		    COUNT(*) FILTER (WHERE status = 'retrying'),
		    COUNT(*) FILTER (WHERE status = 'successful'),
		    COUNT(*) FILTER (WHERE status = 'finally_failed'),
		    COALESCE(AVG(attempt_count), 0),
		    COALESCE(MAX(attempt_count), 0)
		 FROM retry_history
		 WHERE created_at >= $1 AND created_at <= $2`, from, to,
	)
	if err := row.Scan(&s.Pending, &s.Retrying, &s.Successful, &s.FinallyFailed, &s.AverageAttempts, &s.MaxAttempts); err != nil {
		return retry.Statistics{}, fmt.Errorf("aggregate retry statistics: %w", err)
	}

	completed := s.Successful + s.FinallyFailed
	if completed > 0 {
		s.SuccessRate = float64(s.Successful) / float64(completed)
		s.FailureRate = float64(s.FinallyFailed) / float64(completed)
	}
	return s, nil
}

func (r *RetryRepository) loadAttempts(ctx context.Context, orderID uuid.UUID) ([]retry.Attempt, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT attempt_number, transaction_id, attempted_at, outcome, failure_reason
		 FROM retry_attempts WHERE order_id = $1
		 ORDER BY attempt_number ASC`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("load retry attempts: %w", err)
	}
	defer rows.Close()

	var attempts []retry.Attempt
	for rows.Next() {
		var a retry.Attempt
		var outcome *string
		if err := rows.Scan(&a.AttemptNumber, &a.TransactionID, &a.AttemptedAt, &outcome, &a.FailureReason); err != nil {
			return nil, fmt.Errorf("scan retry attempt: %w", err)
		}
		if outcome != nil {
			o := retry.Outcome(*outcome)
			a.Outcome = &o
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanHistory(row pgx.Row) (*retry.History, error) {
	h := &retry.History{}
	var status string
	var currentTx *uuid.UUID
	if err := row.Scan(&h.OrderID, &currentTx, &status, &h.AttemptCount, &h.MaxAttempts,
		&h.FirstAttemptAt, &h.NextRetryAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Status = retry.Status(status)
	if currentTx != nil {
		h.CurrentTransactionID = *currentTx
	}
	return h, nil
}

func collectHistories(rows pgx.Rows) ([]*retry.History, error) {
	var histories []*retry.History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan retry history: %w", err)
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

// nilUUID maps the zero uuid to NULL so the partial unique index on active
// transaction ids is not tripped by unstarted histories.
func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
