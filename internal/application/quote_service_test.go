package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	deliveryDomain "github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/deliverymaster/service-quote/internal/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryHistoryRepository is an in-memory HistoryRepository double.
type memoryHistoryRepository struct {
	mu    sync.Mutex
	saved []*deliveryDomain.Delivery
	err   error
}

func (m *memoryHistoryRepository) LoadAll(_ context.Context) ([]*deliveryDomain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]*deliveryDomain.Delivery(nil), m.saved...), nil
}

func (m *memoryHistoryRepository) SaveAll(_ context.Context, deliveries []*deliveryDomain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append([]*deliveryDomain.Delivery(nil), deliveries...)
	return nil
}

// stubPlanner returns a fixed result or error.
type stubPlanner struct {
	result deliveryDomain.CalculationResult
	err    error
	calls  int
}

func (s *stubPlanner) Quote(_ context.Context, _ []deliveryDomain.Address, _ deliveryDomain.QuoteOptions) (deliveryDomain.CalculationResult, error) {
	s.calls++
	if s.err != nil {
		return deliveryDomain.CalculationResult{}, s.err
	}
	return s.result, nil
}

// capturingPublisher records published events by type.
type capturingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	topics []string
}

func (p *capturingPublisher) PublishEvent(_ context.Context, topic, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func quotedResult() deliveryDomain.CalculationResult {
	return deliveryDomain.CalculationResult{
		DistanceKm:      12.5,
		DurationMinutes: 35,
		EstimatedPrice:  19.25,
		RouteMapURL:     "https://maps.google.com/?dir=a,b",
	}
}

func testAddresses() []deliveryDomain.Address {
	return []deliveryDomain.Address{
		{ID: 1, Value: "Av. Beira Mar 1000"},
		{ID: 2, Value: "Rua das Flores 200"},
	}
}

func newTestService(planner *stubPlanner) (*QuoteService, *memoryHistoryRepository, *capturingPublisher) {
	repo := &memoryHistoryRepository{}
	publisher := &capturingPublisher{}
	svc := NewQuoteService(repo, planner, publisher, 6.00, "5585987789135", zap.NewNop())
	return svc, repo, publisher
}

func TestRequestQuotePreservesBackendPrice(t *testing.T) {
	planner := &stubPlanner{result: quotedResult()}
	svc, _, publisher := newTestService(planner)

	result, err := svc.RequestQuote(context.Background(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 19.25, result.EstimatedPrice, "prices above the floor pass through unchanged")
	assert.Equal(t, []string{"delivery.requested"}, publisher.eventTypes())
}

func TestRequestQuoteAppliesMinimumFare(t *testing.T) {
	result := quotedResult()
	result.EstimatedPrice = 3.00
	planner := &stubPlanner{result: result}
	svc, _, _ := newTestService(planner)

	got, err := svc.RequestQuote(context.Background(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 6.00, got.EstimatedPrice)
}

func TestRequestQuoteValidation(t *testing.T) {
	planner := &stubPlanner{result: quotedResult()}
	svc, _, _ := newTestService(planner)
	ctx := context.Background()

	var vErr *deliveryDomain.ValidationError

	_, err := svc.RequestQuote(ctx, testAddresses()[:1], deliveryDomain.QuoteOptions{})
	require.ErrorAs(t, err, &vErr)

	addresses := []deliveryDomain.Address{
		{ID: 1, Value: "Av. Beira Mar 1000"},
		{ID: 2, Value: "  "},
		{ID: 3, Value: ""},
	}
	_, err = svc.RequestQuote(ctx, addresses, deliveryDomain.QuoteOptions{})
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "stop 2", "the first offending stop is named")

	_, err = svc.RequestQuote(ctx, testAddresses(), deliveryDomain.QuoteOptions{ScheduleMode: "yesterday"})
	require.ErrorAs(t, err, &vErr)

	assert.Zero(t, planner.calls, "invalid input never reaches the backend")
}

func TestRequestQuoteWrapsBackendFailure(t *testing.T) {
	planner := &stubPlanner{err: errors.New("model overloaded")}
	svc, _, _ := newTestService(planner)

	_, err := svc.RequestQuote(context.Background(), testAddresses(), deliveryDomain.QuoteOptions{})
	var extErr *deliveryDomain.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
}

func TestConfirmCreatesPendingDelivery(t *testing.T) {
	svc, repo, publisher := newTestService(&stubPlanner{})

	confirmation, err := svc.Confirm(context.Background(), "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{IncludeReturn: true})
	require.NoError(t, err)

	assert.Equal(t, "pending", confirmation.Delivery.Status)
	assert.Equal(t, "Maria", confirmation.Delivery.ApplicantName)
	assert.Contains(t, confirmation.WhatsAppURL, "https://wa.me/5585987789135?text=")
	assert.Contains(t, confirmation.WhatsAppURL, confirmation.Delivery.DeliveryNumber)

	require.Len(t, repo.saved, 1, "confirmation persists the record")
	assert.Equal(t, []string{"delivery.confirmed"}, publisher.eventTypes())
}

func TestConfirmPrependsNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(&stubPlanner{})
	ctx := context.Background()

	first, err := svc.Confirm(ctx, "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)
	second, err := svc.Confirm(ctx, "José", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)

	page, total := svc.History(1, 20)
	require.Equal(t, 2, total)
	assert.Equal(t, second.Delivery.ID, page[0].ID, "newest record comes first")
	assert.Equal(t, first.Delivery.ID, page[1].ID)
}

func TestConfirmSnapshotSurvivesLaterEdits(t *testing.T) {
	svc, _, _ := newTestService(&stubPlanner{})
	addresses := testAddresses()

	confirmation, err := svc.Confirm(context.Background(), "Maria", quotedResult(), addresses, deliveryDomain.QuoteOptions{})
	require.NoError(t, err)

	addresses[0].Value = "edited after confirmation"

	got, err := svc.GetDelivery(confirmation.Delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, "Av. Beira Mar 1000", got.Addresses[0].Value)
}

func TestCancelDelivery(t *testing.T) {
	svc, _, publisher := newTestService(&stubPlanner{})
	ctx := context.Background()

	confirmation, err := svc.Confirm(ctx, "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, confirmation.Delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	// The record stays in the history.
	_, total := svc.History(1, 20)
	assert.Equal(t, 1, total)

	// Cancelling twice is a state conflict.
	_, err = svc.Cancel(ctx, confirmation.Delivery.ID)
	var stateErr *deliveryDomain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	assert.Equal(t, []string{"delivery.confirmed", "delivery.cancelled"}, publisher.eventTypes())
}

func TestCancelUnknownDelivery(t *testing.T) {
	svc, _, _ := newTestService(&stubPlanner{})

	_, err := svc.Cancel(context.Background(), uuid.New())
	var notFound *deliveryDomain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCompleteDelivery(t *testing.T) {
	svc, _, publisher := newTestService(&stubPlanner{})
	ctx := context.Background()

	confirmation, err := svc.Confirm(ctx, "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.CompleteDelivery(ctx, confirmation.Delivery.ID))

	got, err := svc.GetDelivery(confirmation.Delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)

	// A completed delivery can no longer be cancelled.
	_, err = svc.Cancel(ctx, confirmation.Delivery.ID)
	var stateErr *deliveryDomain.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	assert.Equal(t, []string{"delivery.confirmed", "delivery.completed"}, publisher.eventTypes())
}

func TestHistoryPagination(t *testing.T) {
	svc, _, _ := newTestService(&stubPlanner{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Confirm(ctx, "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
		require.NoError(t, err)
	}

	page, total := svc.History(1, 2)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	page, _ = svc.History(3, 2)
	assert.Len(t, page, 1)

	page, _ = svc.History(4, 2)
	assert.Empty(t, page, "past the end is an empty page, not an error")
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(&stubPlanner{})
	ctx := context.Background()

	a, err := svc.Confirm(ctx, "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, "José", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)
	b, err := svc.Confirm(ctx, "Ana", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, a.Delivery.ID)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteDelivery(ctx, b.Delivery.ID))

	stats := svc.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.ByStatus["cancelled"])
	assert.Equal(t, 1, stats.ByStatus["completed"])
}

func TestInitLoadsPersistedHistory(t *testing.T) {
	repo := &memoryHistoryRepository{}
	seed, err := deliveryDomain.NewDelivery("Maria", quotedResult(), testAddresses(), false, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(context.Background(), []*deliveryDomain.Delivery{seed}))

	svc := NewQuoteService(repo, &stubPlanner{}, nil, 6.00, "5585987789135", zap.NewNop())
	require.NoError(t, svc.Init(context.Background()))

	_, total := svc.History(1, 20)
	assert.Equal(t, 1, total)
}

func TestConfirmPersistFailureSurfaces(t *testing.T) {
	repo := &memoryHistoryRepository{err: errors.New("redis down")}
	svc := NewQuoteService(repo, &stubPlanner{}, nil, 6.00, "5585987789135", zap.NewNop())

	_, err := svc.Confirm(context.Background(), "Maria", quotedResult(), testAddresses(), deliveryDomain.QuoteOptions{})
	require.Error(t, err)
}
