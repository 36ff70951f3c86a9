package testutil

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/outbox"
	"github.com/cassiomorais/ordersaga/internal/domain/payment"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// --- Order Repository Mock ---

// MockOrderRepository is a mock implementation of order.Repository.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order

	CreateFunc  func(ctx context.Context, o *order.Order) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateFunc  func(ctx context.Context, o *order.Order) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[uuid.UUID]*order.Order)}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderRepository) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return domainErrors.ErrOrderNotFound
	}
	m.orders[o.ID] = o
	return nil
}

// GetOrderByID returns the stored order (test helper, no context needed).
func (m *MockOrderRepository) GetOrderByID(id uuid.UUID) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

// --- Retry Repository Mock ---

// MockRetryRepository is a mock implementation of retry.Repository.
type MockRetryRepository struct {
	mu        sync.Mutex
	histories map[uuid.UUID]*retry.History

	CreateFunc        func(ctx context.Context, h *retry.History) error
	GetByOrderIDFunc  func(ctx context.Context, orderID uuid.UUID) (*retry.History, error)
	UpdateFunc        func(ctx context.Context, h *retry.History) error
	FindRetryableFunc func(ctx context.Context, now time.Time, limit int) ([]*retry.History, error)
	FindStaleFunc     func(ctx context.Context, cutoff time.Time, limit int) ([]*retry.History, error)
	CountActiveFunc   func(ctx context.Context) (int64, error)
	StatisticsFunc    func(ctx context.Context, window retry.Window) (retry.Statistics, error)
}

func NewMockRetryRepository() *MockRetryRepository {
	return &MockRetryRepository{histories: make(map[uuid.UUID]*retry.History)}
}

// AddHistory pre-populates the mock with a history.
func (m *MockRetryRepository) AddHistory(h *retry.History) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[h.OrderID] = h
}

func (m *MockRetryRepository) Create(ctx context.Context, h *retry.History) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[h.OrderID] = h
	return nil
}

func (m *MockRetryRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*retry.History, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[orderID]
	if !ok {
		return nil, domainErrors.ErrRetryNotFound
	}
	return h, nil
}

func (m *MockRetryRepository) Update(ctx context.Context, h *retry.History) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[h.OrderID]; !ok {
		return domainErrors.ErrRetryNotFound
	}
	m.histories[h.OrderID] = h
	return nil
}

func (m *MockRetryRepository) FindRetryable(ctx context.Context, now time.Time, limit int) ([]*retry.History, error) {
	if m.FindRetryableFunc != nil {
		return m.FindRetryableFunc(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*retry.History
	for _, h := range m.histories {
		if len(result) >= limit {
			break
		}
		if h.Eligible(now) {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *MockRetryRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*retry.History, error) {
	if m.FindStaleFunc != nil {
		return m.FindStaleFunc(ctx, cutoff, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*retry.History
	for _, h := range m.histories {
		if len(result) >= limit {
			break
		}
		if !h.IsTerminal() && h.FirstAttemptAt != nil && h.FirstAttemptAt.Before(cutoff) {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *MockRetryRepository) CountActive(ctx context.Context) (int64, error) {
	if m.CountActiveFunc != nil {
		return m.CountActiveFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, h := range m.histories {
		if !h.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (m *MockRetryRepository) Statistics(ctx context.Context, window retry.Window) (retry.Statistics, error) {
	if m.StatisticsFunc != nil {
		return m.StatisticsFunc(ctx, window)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var histories []*retry.History
	for _, h := range m.histories {
		if !window.From.IsZero() && h.CreatedAt.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && h.CreatedAt.After(window.To) {
			continue
		}
		histories = append(histories, h)
	}
	return retry.Compute(histories), nil
}

// GetHistoryByOrderID returns the stored history (test helper, no context needed).
func (m *MockRetryRepository) GetHistoryByOrderID(orderID uuid.UUID) *retry.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.histories[orderID]
}

// --- Payment Repository Mock ---

// MockPaymentRepository is a mock implementation of payment.Repository.
type MockPaymentRepository struct {
	mu   sync.Mutex
	byTx map[uuid.UUID]*payment.Payment

	CreateFunc             func(ctx context.Context, p *payment.Payment) error
	GetByTransactionIDFunc func(ctx context.Context, transactionID uuid.UUID) (*payment.Payment, error)
	UpdateFunc             func(ctx context.Context, p *payment.Payment) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{byTx: make(map[uuid.UUID]*payment.Payment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTx[p.TransactionID] = p
	return nil
}

func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*payment.Payment, error) {
	if m.GetByTransactionIDFunc != nil {
		return m.GetByTransactionIDFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byTx[transactionID]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return p, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byTx[p.TransactionID]; !ok {
		return domainErrors.ErrPaymentNotFound
	}
	m.byTx[p.TransactionID] = p
	return nil
}

// GetPaymentByTransactionID returns the stored payment (test helper).
func (m *MockPaymentRepository) GetPaymentByTransactionID(transactionID uuid.UUID) *payment.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byTx[transactionID]
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	entries []*outbox.Entry

	InsertFunc                func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc            func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc         func(ctx context.Context, id uuid.UUID) error
	DeletePublishedBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// AddEntry pre-populates the mock with an entry.
func (m *MockOutboxRepository) AddEntry(entry *outbox.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*outbox.Entry
	for _, e := range m.entries {
		if len(result) >= limit {
			break
		}
		if e.Pending() {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = outbox.StatusPublished
			now := time.Now()
			e.PublishedAt = &now
			return nil
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeletePublishedBeforeFunc != nil {
		return m.DeletePublishedBeforeFunc(ctx, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*outbox.Entry
	var deleted int64
	for _, e := range m.entries {
		if e.Status == outbox.StatusPublished && e.PublishedAt != nil && e.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// Entries returns a copy of the stored entries (test helper).
func (m *MockOutboxRepository) Entries() []*outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*outbox.Entry, len(m.entries))
	copy(result, m.entries)
	return result
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Event Dispatcher Mock ---

// MockEventDispatcher records dispatched events instead of delivering them.
type MockEventDispatcher struct {
	mu     sync.Mutex
	events []event.Event

	DispatchFunc func(ctx context.Context, aggregate *event.AggregateRoot) error
}

func NewMockEventDispatcher() *MockEventDispatcher {
	return &MockEventDispatcher{}
}

func (m *MockEventDispatcher) Dispatch(ctx context.Context, aggregate *event.AggregateRoot) error {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, aggregate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, aggregate.PendingEvents()...)
	aggregate.ClearEvents()
	return nil
}

// Events returns the recorded events (test helper).
func (m *MockEventDispatcher) Events() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]event.Event, len(m.events))
	copy(result, m.events)
	return result
}

// --- Event Publisher Mock ---

// MockEventPublisher records published events instead of writing outbox rows.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []event.Event

	PublishFunc func(ctx context.Context, events []event.Event) error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events []event.Event) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, events)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events returns the recorded events (test helper).
func (m *MockEventPublisher) Events() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]event.Event, len(m.events))
	copy(result, m.events)
	return result
}

// --- Stream Publisher Mock ---

// PublishedMessage is one recorded stream append.
type PublishedMessage struct {
	Stream string
	Values map[string]any
}

// MockStreamPublisher records appended stream messages.
type MockStreamPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage

	PublishFunc func(ctx context.Context, stream string, values map[string]any) error
}

func NewMockStreamPublisher() *MockStreamPublisher {
	return &MockStreamPublisher{}
}

func (m *MockStreamPublisher) Publish(ctx context.Context, stream string, values map[string]any) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, stream, values)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, PublishedMessage{Stream: stream, Values: values})
	return nil
}

// Messages returns the recorded messages (test helper).
func (m *MockStreamPublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]PublishedMessage, len(m.messages))
	copy(result, m.messages)
	return result
}

// --- Request Sender Mock ---

// MockRequestSender records published payment requests.
type MockRequestSender struct {
	mu       sync.Mutex
	requests []messaging.PaymentRequestMessage

	PublishRequestFunc func(ctx context.Context, msg messaging.PaymentRequestMessage) error
}

func NewMockRequestSender() *MockRequestSender {
	return &MockRequestSender{}
}

func (m *MockRequestSender) PublishRequest(ctx context.Context, msg messaging.PaymentRequestMessage) error {
	if m.PublishRequestFunc != nil {
		return m.PublishRequestFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, msg)
	return nil
}

// Requests returns the recorded requests (test helper).
func (m *MockRequestSender) Requests() []messaging.PaymentRequestMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]messaging.PaymentRequestMessage, len(m.requests))
	copy(result, m.requests)
	return result
}

// --- Leader Lock Mock ---

// MockLeaderLock is a leader lock that always grants the lease by default.
type MockLeaderLock struct {
	AcquireFunc func(ctx context.Context) (bool, error)
	ReleaseFunc func(ctx context.Context) error
}

func NewMockLeaderLock() *MockLeaderLock {
	return &MockLeaderLock{}
}

func (m *MockLeaderLock) Acquire(ctx context.Context) (bool, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx)
	}
	return true, nil
}

func (m *MockLeaderLock) Release(ctx context.Context) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx)
	}
	return nil
}

// --- Order Locker Mock ---

// MockOrderLocker runs the callback without any real locking.
type MockOrderLocker struct {
	WithLockFunc func(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

func NewMockOrderLocker() *MockOrderLocker {
	return &MockOrderLocker{}
}

func (m *MockOrderLocker) WithLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	if m.WithLockFunc != nil {
		return m.WithLockFunc(ctx, orderID, fn)
	}
	return fn(ctx)
}

// --- Stream Source Mock ---

// MockStreamSource is an in-memory stream consumer. Messages added with
// AddPending sit in the pending set until acked; Read hands out nothing by
// default, matching a consumer whose new-message backlog is drained.
type MockStreamSource struct {
	mu      sync.Mutex
	stream  string
	pending []goredis.XMessage
	acked   []string

	CreateGroupFunc func(ctx context.Context) error
	ReadFunc        func(ctx context.Context) ([]goredis.XStream, error)
}

func NewMockStreamSource(stream string) *MockStreamSource {
	return &MockStreamSource{stream: stream}
}

// AddPending seeds a message into the pending entries set.
func (m *MockStreamSource) AddPending(msg goredis.XMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, msg)
}

func (m *MockStreamSource) CreateGroup(ctx context.Context) error {
	if m.CreateGroupFunc != nil {
		return m.CreateGroupFunc(ctx)
	}
	return nil
}

func (m *MockStreamSource) Read(ctx context.Context) ([]goredis.XStream, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx)
	}
	return nil, nil
}

func (m *MockStreamSource) Ack(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []goredis.XMessage
	for _, msg := range m.pending {
		if msg.ID == messageID {
			m.acked = append(m.acked, messageID)
			continue
		}
		kept = append(kept, msg)
	}
	m.pending = kept
	return nil
}

func (m *MockStreamSource) Pending(ctx context.Context, minIdleTime time.Duration, count int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, msg := range m.pending {
		if int64(len(ids)) >= count {
			break
		}
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (m *MockStreamSource) Claim(ctx context.Context, minIdleTime time.Duration, messageIDs []string) ([]goredis.XMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}
	var msgs []goredis.XMessage
	for _, msg := range m.pending {
		if wanted[msg.ID] {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func (m *MockStreamSource) Stream() string {
	return m.stream
}

// Acked returns the acked message ids (test helper).
func (m *MockStreamSource) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.acked))
	copy(result, m.acked)
	return result
}
