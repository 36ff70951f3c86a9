package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/internal/domain/outbox"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/internal/relay"
	"github.com/cassiomorais/ordersaga/internal/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func newTestRelay(repo *testutil.MockOutboxRepository, producer *testutil.MockStreamPublisher) *relay.Relay {
	return relay.New(
		repo,
		testutil.NewMockTransactionManager(),
		producer,
		relay.Config{PollInterval: time.Second, BatchSize: 10, Retention: 24 * time.Hour},
		observability.NewMetrics("test_relay", prometheus.NewRegistry()),
		zerolog.Nop(),
	)
}

func processedEntry() *outbox.Entry {
	return outbox.NewEntry("Payment", uuid.New(), string(event.TypePaymentProcessed), map[string]any{
		"order_id":       uuid.New().String(),
		"transaction_id": uuid.New().String(),
		"payment_id":     uuid.New().String(),
		"amount_cents":   int64(4999),
		"currency":       "USD",
	})
}

func failedEntry() *outbox.Entry {
	return outbox.NewEntry("Payment", uuid.New(), string(event.TypePaymentFailed), map[string]any{
		"order_id":       uuid.New().String(),
		"transaction_id": uuid.New().String(),
		"payment_id":     uuid.New().String(),
		"reason":         "card declined",
	})
}

func TestPoll_PublishesToEventStreams(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockOutboxRepository()
	producer := testutil.NewMockStreamPublisher()

	repo.AddEntry(processedEntry())
	repo.AddEntry(failedEntry())

	r := newTestRelay(repo, producer)
	if err := r.Poll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := producer.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 published messages, got %d", len(messages))
	}
	if messages[0].Stream != infraRedis.ConfirmationStream {
		t.Errorf("processed event should go to the confirmation stream, got %s", messages[0].Stream)
	}
	if messages[1].Stream != infraRedis.FailureStream {
		t.Errorf("failed event should go to the failure stream, got %s", messages[1].Stream)
	}

	for _, e := range repo.Entries() {
		if e.Status != outbox.StatusPublished {
			t.Errorf("entry %s should be marked published", e.ID)
		}
	}
}

func TestPoll_PublishErrorKeepsEntryPending(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockOutboxRepository()
	producer := testutil.NewMockStreamPublisher()
	producer.PublishFunc = func(ctx context.Context, stream string, values map[string]any) error {
		return errors.New("broker unavailable")
	}

	repo.AddEntry(processedEntry())

	r := newTestRelay(repo, producer)
	if err := r.Poll(ctx); err != nil {
		t.Fatalf("a publish failure must not fail the poll: %v", err)
	}

	entries := repo.Entries()
	if entries[0].Status != outbox.StatusPending {
		t.Error("entry must stay pending for the next poll")
	}
}

func TestPoll_DropsUnpublishableEntry(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockOutboxRepository()
	producer := testutil.NewMockStreamPublisher()

	// Unknown event type can never map to a stream.
	repo.AddEntry(outbox.NewEntry("Payment", uuid.New(), "payment.refunded", map[string]any{}))

	r := newTestRelay(repo, producer)
	if err := r.Poll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(producer.Messages()) != 0 {
		t.Error("unpublishable entry must not reach the broker")
	}
	if repo.Entries()[0].Status != outbox.StatusPublished {
		t.Error("unpublishable entry must be dropped so it stops clogging the batch")
	}
}

func TestPoll_DropsEntryWithBrokenPayload(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockOutboxRepository()
	producer := testutil.NewMockStreamPublisher()

	repo.AddEntry(outbox.NewEntry("Payment", uuid.New(), string(event.TypePaymentProcessed), map[string]any{
		"order_id": "not-a-uuid",
	}))

	r := newTestRelay(repo, producer)
	if err := r.Poll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(producer.Messages()) != 0 {
		t.Error("broken payload must not reach the broker")
	}
	if repo.Entries()[0].Status != outbox.StatusPublished {
		t.Error("broken entry must be dropped")
	}
}

func TestOutboxRetention(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMockOutboxRepository()

	old := processedEntry()
	old.Status = outbox.StatusPublished
	oldTime := time.Now().Add(-48 * time.Hour)
	old.PublishedAt = &oldTime
	repo.AddEntry(old)

	recent := processedEntry()
	recent.Status = outbox.StatusPublished
	recentTime := time.Now().Add(-time.Hour)
	recent.PublishedAt = &recentTime
	repo.AddEntry(recent)

	deleted, err := repo.DeletePublishedBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted entry, got %d", deleted)
	}
	if len(repo.Entries()) != 1 {
		t.Errorf("expected 1 remaining entry, got %d", len(repo.Entries()))
	}
}
