// Package repository persists the delivery history in Redis as a single
// serialized blob under a fixed key: read once at startup, overwritten in
// full on every mutation. There is no versioning or migration scheme.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	deliveryDomain "github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// historyKey is the fixed key the full history list lives under.
const historyKey = "delivery:history"

// deliveryRecord is the stored representation of one Delivery.
type deliveryRecord struct {
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

// RedisHistoryRepository is the Redis-backed implementation of
// delivery.HistoryRepository.
type RedisHistoryRepository struct {
	client *redis.Client
}

// NewRedisHistoryRepository creates a RedisHistoryRepository on the given client.
func NewRedisHistoryRepository(client *redis.Client) *RedisHistoryRepository {
	return &RedisHistoryRepository{client: client}
}

// LoadAll reads the full history list. A missing key yields an empty list.
func (r *RedisHistoryRepository) LoadAll(ctx context.Context) ([]*deliveryDomain.Delivery, error) {
	raw, err := r.client.Get(ctx, historyKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load delivery history: %w", err)
	}

	var records []deliveryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delivery history: %w", err)
	}

	deliveries := make([]*deliveryDomain.Delivery, len(records))
	for i, rec := range records {
		d, err := toDomainDelivery(rec)
		if err != nil {
			return nil, err
		}
		deliveries[i] = d
	}
	return deliveries, nil
}

// SaveAll overwrites the stored history with the given list, preserving its
// order. Last write wins; partial updates do not exist.
func (r *RedisHistoryRepository) SaveAll(ctx context.Context, deliveries []*deliveryDomain.Delivery) error {
	records := make([]deliveryRecord, len(deliveries))
	for i, d := range deliveries {
		records[i] = toDeliveryRecord(d)
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery history: %w", err)
	}
	if err := r.client.Set(ctx, historyKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save delivery history: %w", err)
	}
	return nil
}

// --- Conversion helpers ---

func toDeliveryRecord(d *deliveryDomain.Delivery) deliveryRecord {
	return deliveryRecord{
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

func toDomainDelivery(rec deliveryRecord) (*deliveryDomain.Delivery, error) {
	status, err := deliveryDomain.ParseStatus(rec.Status)
	if err != nil {
		return nil, err
	}
	return deliveryDomain.ReconstructDelivery(
		rec.ID,
		rec.DeliveryNumber,
		rec.ApplicantName,
		status,
		rec.Result,
		rec.Addresses,
		rec.IncludeReturn,
		rec.ScheduledAt,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.CompletedAt,
		rec.CancelledAt,
	), nil
}
