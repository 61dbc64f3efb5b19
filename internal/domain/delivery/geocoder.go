package delivery

import "context"

// Geocoder resolves free-text addresses into coordinates.
type Geocoder interface {
	// Geocode resolves a batch of address texts. The result has the same
	// length and order as the input; entries the backend could not resolve
	// are nil. Any malformed response is reported as an error.
	Geocode(ctx context.Context, texts []string) ([]*Coordinates, error)
}
