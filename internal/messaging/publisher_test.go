package messaging_test

import (
	"context"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/cassiomorais/ordersaga/internal/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func testRequestMessage() messaging.PaymentRequestMessage {
	return messaging.PaymentRequestMessage{
		TransactionID: uuid.New(),
		OrderID:       uuid.New(),
		CustomerID:    "cust-1",
		AmountCents:   4999,
		Currency:      "USD",
		CardNumber:    "4242424242424242",
		Timestamp:     time.Now(),
	}
}

func TestPublishRequest_AppendsEnvelopeToRequestStream(t *testing.T) {
	producer := testutil.NewMockStreamPublisher()
	metrics := observability.NewMetrics("test_publisher", prometheus.NewRegistry())
	p := messaging.NewRequestPublisher(producer, 30*time.Minute, 5*time.Second, metrics, zerolog.Nop())

	msg := testRequestMessage()
	if err := p.PublishRequest(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published := producer.Messages()
	if len(published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(published))
	}
	if published[0].Stream != infraRedis.PaymentRequestStream {
		t.Errorf("expected stream %s, got %s", infraRedis.PaymentRequestStream, published[0].Stream)
	}
	if published[0].Values["correlation_id"] != msg.TransactionID.String() {
		t.Error("envelope must carry the transaction id as correlation id")
	}

	got := promtestutil.ToFloat64(metrics.MessagesPublishedTotal.WithLabelValues(infraRedis.PaymentRequestStream, "published"))
	if got != 1 {
		t.Errorf("expected 1 published message counted, got %v", got)
	}
}

func TestPublishRequest_TransportFailureCounted(t *testing.T) {
	producer := testutil.NewMockStreamPublisher()
	producer.PublishFunc = func(ctx context.Context, stream string, values map[string]any) error {
		return domainErrors.ErrMessagePublish
	}
	metrics := observability.NewMetrics("test_publisher", prometheus.NewRegistry())
	p := messaging.NewRequestPublisher(producer, 30*time.Minute, 5*time.Second, metrics, zerolog.Nop())

	err := p.PublishRequest(context.Background(), testRequestMessage())
	if err == nil {
		t.Fatal("expected an error when the broker append fails")
	}

	got := promtestutil.ToFloat64(metrics.MessagesPublishedTotal.WithLabelValues(infraRedis.PaymentRequestStream, "error"))
	if got != 1 {
		t.Errorf("expected 1 failed publish counted, got %v", got)
	}
}
