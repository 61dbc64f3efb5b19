// Package geocode keeps the free-text stops of a quote session reconciled
// with resolved coordinates without flooding the geocoding backend.
package geocode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deliverymaster/service-quote/internal/domain/delivery"
	"go.uber.org/zap"
)

// requestTimeout bounds one background geocode batch.
const requestTimeout = 15 * time.Second

// ListAccessor gives the reconciler synchronized access to the stop list it
// reconciles. Implementations hold the session lock around each call, so the
// reconciler itself never touches the list directly.
type ListAccessor interface {
	// PendingGeocodes returns copies of the stops that need resolution:
	// non-empty text and no coordinates yet.
	PendingGeocodes() []delivery.Address

	// ApplyCoordinates writes a geocode result back onto a stop, but only
	// when the stop still exists and its text still equals expectedText.
	ApplyCoordinates(id int64, expectedText string, coords delivery.Coordinates) bool

	// StopByID returns a copy of the stop and its 1-based list position.
	StopByID(id int64) (delivery.Address, int, bool)
}

// Reconciler batches geocode requests behind a quiet-period debounce. Each
// text edit resets the timer; once typing pauses for the quiet period, every
// unresolved stop is sent in one batch request. Responses are merged back by
// stop identity with a text-equality guard, so edits that race an in-flight
// request win.
type Reconciler struct {
	geocoder delivery.Geocoder
	list     ListAccessor
	quiet    time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewReconciler creates a Reconciler over the given list.
func NewReconciler(geocoder delivery.Geocoder, list ListAccessor, quiet time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		geocoder: geocoder,
		list:     list,
		quiet:    quiet,
		logger:   logger,
	}
}

// NotifyTextChanged arms or resets the quiet-period timer. Called on every
// address text edit so that at most one batch fires per pause in typing.
func (r *Reconciler) NotifyTextChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.quiet, r.flush)
}

// Close cancels any armed timer. Pending responses still in flight are
// harmless: the write-back guard rejects them once the session is gone.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// flush issues one batch request for everything currently unresolved. The
// batch path is speculative background work: failures are logged, never
// surfaced to the user.
func (r *Reconciler) flush() {
	pending := r.list.PendingGeocodes()
	if len(pending) == 0 {
		return
	}

	texts := make([]string, len(pending))
	for i, stop := range pending {
		texts[i] = stop.Value
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	results, err := r.geocoder.Geocode(ctx, texts)
	if err != nil {
		r.logger.Warn("background geocode batch failed",
			zap.Int("stops", len(texts)),
			zap.Error(err),
		)
		return
	}

	applied := 0
	for i, coords := range results {
		if coords == nil {
			continue
		}
		// Merge by the identity and text captured at snapshot time; a stop
		// edited or deleted while the request was in flight is skipped.
		if r.list.ApplyCoordinates(pending[i].ID, pending[i].Value, *coords) {
			applied++
		}
	}

	r.logger.Debug("geocode batch merged",
		zap.Int("requested", len(texts)),
		zap.Int("applied", applied),
	)
}

// Locate resolves a single stop on user request, bypassing the debounce.
// When the stop already has coordinates they are returned without a request:
// the caller only shifts focus to the existing marker. Failures on this path
// are user-visible.
func (r *Reconciler) Locate(ctx context.Context, id int64) (delivery.Coordinates, error) {
	stop, position, ok := r.list.StopByID(id)
	if !ok {
		return delivery.Coordinates{}, delivery.NewNotFoundError("stop", fmt.Sprintf("%d", id))
	}
	if stop.Coordinates != nil {
		return *stop.Coordinates, nil
	}

	locateErr := delivery.NewValidationError(fmt.Sprintf("could not locate stop %d", position))
	if stop.Value == "" {
		return delivery.Coordinates{}, locateErr
	}

	results, err := r.geocoder.Geocode(ctx, []string{stop.Value})
	if err != nil {
		r.logger.Warn("manual geocode failed", zap.Int64("stop_id", id), zap.Error(err))
		return delivery.Coordinates{}, locateErr
	}
	if len(results) != 1 || results[0] == nil {
		return delivery.Coordinates{}, locateErr
	}

	coords := *results[0]
	if !r.list.ApplyCoordinates(stop.ID, stop.Value, coords) {
		// Text changed while the request was in flight; the stale result
		// must not land, and the caller retries against the new text.
		return delivery.Coordinates{}, locateErr
	}
	return coords, nil
}
