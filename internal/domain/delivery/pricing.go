package delivery

import (
	"context"
	"time"
)

// ScheduleMode says whether a delivery should run immediately or at a
// scheduled instant.
type ScheduleMode string

const (
	ScheduleNow   ScheduleMode = "now"
	ScheduleLater ScheduleMode = "schedule"
)

// IsValid returns true for a recognized schedule mode.
func (m ScheduleMode) IsValid() bool {
	return m == ScheduleNow || m == ScheduleLater
}

// QuoteOptions carries the routing options of a quote request.
type QuoteOptions struct {
	IncludeReturn bool         `json:"include_return"`
	OptimizeRoute bool         `json:"optimize_route"`
	ScheduleMode  ScheduleMode `json:"schedule_mode"`
	ScheduledAt   *time.Time   `json:"scheduled_at,omitempty"`
	Reference     string       `json:"reference,omitempty"`
}

// QuotePlanner produces a priced route for an ordered stop list. The
// computation is delegated entirely to an external backend; results are
// trusted apart from the minimum fare clamp.
type QuotePlanner interface {
	// Quote returns distance, duration, price and a route map URL for the
	// given stops, or an error when the backend fails or responds with an
	// incomplete contract.
	Quote(ctx context.Context, addresses []Address, opts QuoteOptions) (CalculationResult, error)
}

// ApplyMinimumFare raises the estimated price to the floor when the backend
// quoted below it. Prices at or above the floor are returned unchanged.
func ApplyMinimumFare(result CalculationResult, floor float64) CalculationResult {
	if result.EstimatedPrice < floor {
		result.EstimatedPrice = floor
	}
	return result
}
