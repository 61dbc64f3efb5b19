package delivery

import "context"

// HistoryRepository defines the persistence contract for the delivery
// history. The history is stored as one serialized list, newest-first:
// reads happen once at startup and every mutation overwrites the full
// snapshot (last write wins). No per-record operations exist.
type HistoryRepository interface {
	// LoadAll reads the full history list. A missing store yields an
	// empty list, not an error.
	LoadAll(ctx context.Context) ([]*Delivery, error)

	// SaveAll overwrites the stored history with the given list.
	SaveAll(ctx context.Context, deliveries []*Delivery) error
}
