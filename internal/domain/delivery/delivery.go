package delivery

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const deliveryNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CalculationResult is the priced route returned by the quoting backend.
// The JSON field names are the external contract and must not change.
// A result is immutable once attached to a Delivery.
type CalculationResult struct {
	DistanceKm      float64 `json:"distancia_km"`
	DurationMinutes float64 `json:"tempo_minutos"`
	EstimatedPrice  float64 `json:"preco_estimado"`
	RouteMapURL     string  `json:"rota_mapa_url"`
}

// Delivery is the aggregate root for a confirmed quote request. It owns an
// immutable snapshot of the addresses and the calculation result as they
// were at confirmation time; only the status transitions afterwards.
type Delivery struct {
	id             uuid.UUID
	deliveryNumber string
	applicantName  string
	status         Status
	result         CalculationResult
	addresses      []Address
	includeReturn  bool
	scheduledAt    *time.Time

	createdAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time
	cancelledAt *time.Time
}

// generateDeliveryNumber creates a delivery number in the format "ENT-XXXXXX".
func generateDeliveryNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(deliveryNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate delivery number: %w", err)
		}
		result[i] = deliveryNumberChars[n.Int64()]
	}
	return "ENT-" + string(result), nil
}

// NewDelivery creates a new Delivery record with status=pending from a
// confirmed quote. The address list is snapshotted: later edits to the
// working form never alter a historical record.
func NewDelivery(
	applicantName string,
	result CalculationResult,
	addresses []Address,
	includeReturn bool,
	scheduledAt *time.Time,
) (*Delivery, error) {
	if len(addresses) < 2 {
		return nil, NewValidationError("a delivery needs a pickup and at least one destination")
	}
	for i, a := range addresses {
		if strings.TrimSpace(a.Value) == "" {
			return nil, NewValidationError(fmt.Sprintf("address for stop %d is required", i+1))
		}
	}
	if result.RouteMapURL == "" {
		return nil, NewValidationError("calculation result is missing the route map URL")
	}

	number, err := generateDeliveryNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Delivery{
		id:             uuid.New(),
		deliveryNumber: number,
		applicantName:  applicantName,
		status:         StatusPending,
		result:         result,
		addresses:      cloneAddresses(addresses),
		includeReturn:  includeReturn,
		scheduledAt:    scheduledAt,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructDelivery rebuilds a Delivery from persistence data (no validation).
func ReconstructDelivery(
	id uuid.UUID,
	deliveryNumber string,
	applicantName string,
	status Status,
	result CalculationResult,
	addresses []Address,
	includeReturn bool,
	scheduledAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
) *Delivery {
	return &Delivery{
		id:             id,
		deliveryNumber: deliveryNumber,
		applicantName:  applicantName,
		status:         status,
		result:         result,
		addresses:      addresses,
		includeReturn:  includeReturn,
		scheduledAt:    scheduledAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		completedAt:    completedAt,
		cancelledAt:    cancelledAt,
	}
}

// --- Getters ---

// ID returns the delivery's unique identifier.
func (d *Delivery) ID() uuid.UUID { return d.id }

// DeliveryNumber returns the human-readable delivery number.
func (d *Delivery) DeliveryNumber() string { return d.deliveryNumber }

// ApplicantName returns the name of the requesting customer.
func (d *Delivery) ApplicantName() string { return d.applicantName }

// Status returns the current delivery status.
func (d *Delivery) Status() Status { return d.status }

// Result returns the calculation result attached at confirmation time.
func (d *Delivery) Result() CalculationResult { return d.result }

// Addresses returns a copy of the address snapshot in route order.
func (d *Delivery) Addresses() []Address { return cloneAddresses(d.addresses) }

// IncludeReturn reports whether the route returns to the pickup point.
func (d *Delivery) IncludeReturn() bool { return d.includeReturn }

// ScheduledAt returns the scheduled time, or nil for an immediate request.
func (d *Delivery) ScheduledAt() *time.Time { return d.scheduledAt }

// CreatedAt returns the confirmation timestamp.
func (d *Delivery) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (d *Delivery) UpdatedAt() time.Time { return d.updatedAt }

// CompletedAt returns the time the delivery was completed, or nil.
func (d *Delivery) CompletedAt() *time.Time { return d.completedAt }

// CancelledAt returns the time the delivery was cancelled, or nil.
func (d *Delivery) CancelledAt() *time.Time { return d.cancelledAt }

// --- Behavior ---

// Complete transitions the delivery from pending to completed. The trigger
// comes from the dispatch side, there is no user-facing action for it.
func (d *Delivery) Complete() error {
	if !d.status.CanTransitionTo(StatusCompleted) {
		return NewInvalidStateError(string(d.status), string(StatusCompleted))
	}
	now := time.Now().UTC()
	d.status = StatusCompleted
	d.completedAt = &now
	d.updatedAt = now
	return nil
}

// Cancel transitions the delivery from pending to cancelled.
func (d *Delivery) Cancel() error {
	if !d.status.CanTransitionTo(StatusCancelled) {
		return NewInvalidStateError(string(d.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	d.status = StatusCancelled
	d.cancelledAt = &now
	d.updatedAt = now
	return nil
}
