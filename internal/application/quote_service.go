package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	deliveryDomain "github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/deliverymaster/service-quote/internal/events"
	"github.com/deliverymaster/service-quote/internal/kafka"
	"github.com/deliverymaster/service-quote/internal/share"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventSource = "service-quote"

// EventPublisher publishes CloudEvents. Satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// DeliveryDTO is the response representation of a delivery record.
type DeliveryDTO struct {
	ID             uuid.UUID                        `json:"id"`
	DeliveryNumber string                           `json:"delivery_number"`
	ApplicantName  string                           `json:"applicant_name,omitempty"`
	Status         string                           `json:"status"`
	Result         deliveryDomain.CalculationResult `json:"result"`
	Addresses      []deliveryDomain.Address         `json:"addresses"`
	IncludeReturn  bool                             `json:"include_return"`
	ScheduledAt    *time.Time                       `json:"scheduled_at,omitempty"`
	CreatedAt      time.Time                        `json:"created_at"`
	UpdatedAt      time.Time                        `json:"updated_at"`
	CompletedAt    *time.Time                       `json:"completed_at,omitempty"`
	CancelledAt    *time.Time                       `json:"cancelled_at,omitempty"`
}

// ConfirmationDTO is returned when a quote is confirmed: the new record plus
// the WhatsApp deep link the client opens.
type ConfirmationDTO struct {
	Delivery    DeliveryDTO `json:"delivery"`
	WhatsAppURL string      `json:"whatsapp_url"`
}

// StatsDTO holds history statistics.
type StatsDTO struct {
	Total    int            `json:"total"`
	Pending  int            `json:"pending"`
	ByStatus map[string]int `json:"by_status"`
}

// QuoteService orchestrates quote requests and the delivery history
// lifecycle. The history lives in memory, newest-first, mirrored to the
// blob store on every mutation: load-at-init, save-on-mutation.
type QuoteService struct {
	repo     deliveryDomain.HistoryRepository
	planner  deliveryDomain.QuotePlanner
	producer EventPublisher
	logger   *zap.Logger

	minimumFare    float64
	whatsappNumber string

	mu      sync.Mutex
	history []*deliveryDomain.Delivery
}

// NewQuoteService creates a QuoteService.
func NewQuoteService(
	repo deliveryDomain.HistoryRepository,
	planner deliveryDomain.QuotePlanner,
	producer EventPublisher,
	minimumFare float64,
	whatsappNumber string,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		repo:           repo,
		planner:        planner,
		producer:       producer,
		minimumFare:    minimumFare,
		whatsappNumber: whatsappNumber,
		logger:         logger,
	}
}

// Init loads the persisted history. Called once at startup before the
// service takes traffic.
func (s *QuoteService) Init(ctx context.Context) error {
	history, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load delivery history: %w", err)
	}
	s.mu.Lock()
	s.history = history
	s.mu.Unlock()

	s.logger.Info("delivery history loaded", zap.Int("records", len(history)))
	return nil
}

// RequestQuote validates the stops and asks the pricing backend for a
// priced route. The returned price is clamped to the minimum fare floor.
func (s *QuoteService) RequestQuote(
	ctx context.Context,
	addresses []deliveryDomain.Address,
	opts deliveryDomain.QuoteOptions,
) (deliveryDomain.CalculationResult, error) {
	var zero deliveryDomain.CalculationResult

	if len(addresses) < 2 {
		return zero, deliveryDomain.NewValidationError("a quote needs a pickup and at least one destination")
	}
	for i, addr := range addresses {
		if strings.TrimSpace(addr.Value) == "" {
			return zero, deliveryDomain.NewValidationError(fmt.Sprintf("address for stop %d is required", i+1))
		}
	}
	if opts.ScheduleMode != "" && !opts.ScheduleMode.IsValid() {
		return zero, deliveryDomain.NewValidationError(fmt.Sprintf("invalid schedule mode: %s", opts.ScheduleMode))
	}

	result, err := s.planner.Quote(ctx, addresses, opts)
	if err != nil {
		s.logger.Error("pricing request failed", zap.Int("stops", len(addresses)), zap.Error(err))
		return zero, deliveryDomain.NewExternalServiceError("route calculation", err)
	}
	result = deliveryDomain.ApplyMinimumFare(result, s.minimumFare)

	quoteID := uuid.New()
	evt := events.DeliveryRequestedEvent{
		QuoteID:        quoteID,
		StopCount:      len(addresses),
		IncludeReturn:  opts.IncludeReturn,
		EstimatedPrice: result.EstimatedPrice,
		DistanceKm:     result.DistanceKm,
		OccurredAt:     time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicDeliveryEvents, events.DeliveryRequested, quoteID.String(), evt)

	return result, nil
}

// Confirm materializes a pending delivery from an accepted quote, prepends
// it to the history and returns the WhatsApp handoff link. The handoff is a
// boundary call: the link is built and returned, never retried.
func (s *QuoteService) Confirm(
	ctx context.Context,
	applicantName string,
	result deliveryDomain.CalculationResult,
	addresses []deliveryDomain.Address,
	opts deliveryDomain.QuoteOptions,
) (*ConfirmationDTO, error) {
	d, err := deliveryDomain.NewDelivery(applicantName, result, addresses, opts.IncludeReturn, opts.ScheduledAt)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Newest-first: new confirmations always precede existing records.
	s.history = append([]*deliveryDomain.Delivery{d}, s.history...)
	err = s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	evt := events.DeliveryConfirmedEvent{
		DeliveryID:     d.ID(),
		DeliveryNumber: d.DeliveryNumber(),
		StopCount:      len(addresses),
		IncludeReturn:  d.IncludeReturn(),
		EstimatedPrice: d.Result().EstimatedPrice,
		DistanceKm:     d.Result().DistanceKm,
		OccurredAt:     time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicDeliveryEvents, events.DeliveryConfirmed, d.ID().String(), evt)

	message := share.BuildMessage(d)
	return &ConfirmationDTO{
		Delivery:    toDeliveryDTO(d),
		WhatsAppURL: share.Link(s.whatsappNumber, message),
	}, nil
}

// Cancel transitions a pending delivery to cancelled.
func (s *QuoteService) Cancel(ctx context.Context, id uuid.UUID) (*DeliveryDTO, error) {
	s.mu.Lock()
	d := s.findLocked(id)
	if d == nil {
		s.mu.Unlock()
		return nil, deliveryDomain.NewNotFoundError("Delivery", id.String())
	}
	if err := d.Cancel(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	evt := events.DeliveryCancelledEvent{
		DeliveryID:     d.ID(),
		DeliveryNumber: d.DeliveryNumber(),
		OccurredAt:     time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicDeliveryEvents, events.DeliveryCancelled, d.ID().String(), evt)

	dto := toDeliveryDTO(d)
	return &dto, nil
}

// CompleteDelivery transitions a pending delivery to completed. Driven by
// dispatch events only; there is no user-facing endpoint for it.
func (s *QuoteService) CompleteDelivery(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	d := s.findLocked(id)
	if d == nil {
		s.mu.Unlock()
		return deliveryDomain.NewNotFoundError("Delivery", id.String())
	}
	if err := d.Complete(); err != nil {
		s.mu.Unlock()
		return err
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	evt := events.DeliveryCompletedEvent{
		DeliveryID:     d.ID(),
		DeliveryNumber: d.DeliveryNumber(),
		OccurredAt:     time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicDeliveryEvents, events.DeliveryCompleted, d.ID().String(), evt)
	return nil
}

// GetDelivery retrieves a single delivery by ID.
func (s *QuoteService) GetDelivery(id uuid.UUID) (*DeliveryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.findLocked(id)
	if d == nil {
		return nil, deliveryDomain.NewNotFoundError("Delivery", id.String())
	}
	dto := toDeliveryDTO(d)
	return &dto, nil
}

// History returns a page of the delivery history, newest-first, plus the
// total record count.
func (s *QuoteService) History(page, limit int) ([]DeliveryDTO, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.history)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	dtos := make([]DeliveryDTO, 0, end-start)
	for _, d := range s.history[start:end] {
		dtos = append(dtos, toDeliveryDTO(d))
	}
	return dtos, total
}

// Stats returns history counts grouped by status.
func (s *QuoteService) Stats() StatsDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStatus := make(map[string]int)
	for _, d := range s.history {
		byStatus[string(d.Status())]++
	}
	return StatsDTO{
		Total:    len(s.history),
		Pending:  byStatus[string(deliveryDomain.StatusPending)],
		ByStatus: byStatus,
	}
}

// --- Helpers ---

// findLocked returns the live record with the given ID. Caller holds s.mu.
func (s *QuoteService) findLocked(id uuid.UUID) *deliveryDomain.Delivery {
	for _, d := range s.history {
		if d.ID() == id {
			return d
		}
	}
	return nil
}

// persistLocked mirrors the in-memory history to the store as one full
// snapshot. Caller holds s.mu.
func (s *QuoteService) persistLocked(ctx context.Context) error {
	if err := s.repo.SaveAll(ctx, s.history); err != nil {
		return fmt.Errorf("failed to persist delivery history: %w", err)
	}
	return nil
}

func (s *QuoteService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if s.producer == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	if err := s.producer.PublishEvent(ctx, topic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func toDeliveryDTO(d *deliveryDomain.Delivery) DeliveryDTO {
	return DeliveryDTO{
		ID:             d.ID(),
		DeliveryNumber: d.DeliveryNumber(),
		ApplicantName:  d.ApplicantName(),
		Status:         string(d.Status()),
		Result:         d.Result(),
		Addresses:      d.Addresses(),
		IncludeReturn:  d.IncludeReturn(),
		ScheduledAt:    d.ScheduledAt(),
		CreatedAt:      d.CreatedAt(),
		UpdatedAt:      d.UpdatedAt(),
		CompletedAt:    d.CompletedAt(),
		CancelledAt:    d.CancelledAt(),
	}
}
