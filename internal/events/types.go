// Package events defines the delivery event contract and consumes dispatch
// events from the courier side.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicDeliveryEvents = "delivery.events"
	TopicDispatchEvents = "dispatch.events"
)

// Event types published by this service.
const (
	DeliveryRequested = "delivery.requested"
	DeliveryConfirmed = "delivery.confirmed"
	DeliveryCancelled = "delivery.cancelled"
	DeliveryCompleted = "delivery.completed"
)

// Event types consumed from the dispatch side.
const (
	DispatchDeliveryCompleted = "dispatch.delivery_completed"
)

// DeliveryRequestedEvent is published when a quote is returned to the user.
// Nothing is persisted at this point; the event is signal for demand metrics.
type DeliveryRequestedEvent struct {
	QuoteID        uuid.UUID `json:"quote_id"`
	StopCount      int       `json:"stop_count"`
	IncludeReturn  bool      `json:"include_return"`
	EstimatedPrice float64   `json:"estimated_price"`
	DistanceKm     float64   `json:"distance_km"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DeliveryConfirmedEvent is published when a quote is confirmed into a
// pending delivery.
type DeliveryConfirmedEvent struct {
	DeliveryID     uuid.UUID `json:"delivery_id"`
	DeliveryNumber string    `json:"delivery_number"`
	StopCount      int       `json:"stop_count"`
	IncludeReturn  bool      `json:"include_return"`
	EstimatedPrice float64   `json:"estimated_price"`
	DistanceKm     float64   `json:"distance_km"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DeliveryCancelledEvent is published when the user cancels a pending delivery.
type DeliveryCancelledEvent struct {
	DeliveryID     uuid.UUID `json:"delivery_id"`
	DeliveryNumber string    `json:"delivery_number"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DeliveryCompletedEvent is published after a dispatch completion has been
// applied to the history.
type DeliveryCompletedEvent struct {
	DeliveryID     uuid.UUID `json:"delivery_id"`
	DeliveryNumber string    `json:"delivery_number"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DispatchCompletedEvent is the dispatch-side notification that a courier
// finished a delivery.
type DispatchCompletedEvent struct {
	DeliveryID  uuid.UUID `json:"delivery_id"`
	CompletedAt time.Time `json:"completed_at"`
	OccurredAt  time.Time `json:"occurred_at"`
}
