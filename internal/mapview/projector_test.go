package mapview

import (
	"testing"

	"github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coords(lat, lng float64) *delivery.Coordinates {
	return &delivery.Coordinates{Lat: lat, Lng: lng}
}

func TestProjectNumbersMarkersByListPosition(t *testing.T) {
	addresses := []delivery.Address{
		{ID: 7, Value: "pickup", Coordinates: coords(-3.72, -38.51)},
		{ID: 2, Value: "typing..."},
		{ID: 5, Value: "dropoff", Coordinates: coords(-3.74, -38.53)},
	}

	plan := Project(addresses, 0)

	require.Len(t, plan.Markers, 2, "unresolved stops get no marker")
	assert.Equal(t, int64(7), plan.Markers[0].StopID)
	assert.Equal(t, 1, plan.Markers[0].Position)
	assert.Equal(t, int64(5), plan.Markers[1].StopID)
	assert.Equal(t, 3, plan.Markers[1].Position, "numbering follows list position, not marker count")

	require.Len(t, plan.Route, 2)
	assert.Equal(t, *addresses[0].Coordinates, plan.Route[0])
	assert.Equal(t, *addresses[2].Coordinates, plan.Route[1])
}

func TestProjectViewportModes(t *testing.T) {
	t.Run("default when nothing is resolved", func(t *testing.T) {
		plan := Project([]delivery.Address{{ID: 1, Value: "typing"}}, 0)
		assert.Equal(t, ViewportDefault, plan.Viewport.Mode)
		assert.Equal(t, defaultCenter, plan.Viewport.Center)
	})

	t.Run("fit frames all resolved markers", func(t *testing.T) {
		addresses := []delivery.Address{
			{ID: 1, Coordinates: coords(-3.70, -38.55)},
			{ID: 2, Coordinates: coords(-3.76, -38.50)},
		}
		plan := Project(addresses, 0)
		require.Equal(t, ViewportFit, plan.Viewport.Mode)
		require.NotNil(t, plan.Viewport.Bounds)
		assert.Equal(t, delivery.Coordinates{Lat: -3.76, Lng: -38.55}, plan.Viewport.Bounds.SouthWest)
		assert.Equal(t, delivery.Coordinates{Lat: -3.70, Lng: -38.50}, plan.Viewport.Bounds.NorthEast)
	})

	t.Run("focus zooms onto the focused marker", func(t *testing.T) {
		addresses := []delivery.Address{
			{ID: 1, Coordinates: coords(-3.70, -38.55)},
			{ID: 2, Coordinates: coords(-3.76, -38.50)},
		}
		plan := Project(addresses, 2)
		require.Equal(t, ViewportFocus, plan.Viewport.Mode)
		assert.Equal(t, *addresses[1].Coordinates, plan.Viewport.Center)
		assert.True(t, plan.Markers[1].Focused)
		assert.False(t, plan.Markers[0].Focused)
	})

	t.Run("focus on an unresolved stop falls back", func(t *testing.T) {
		addresses := []delivery.Address{
			{ID: 1, Coordinates: coords(-3.70, -38.55)},
			{ID: 2, Value: "typing"},
		}
		plan := Project(addresses, 2)
		assert.Equal(t, ViewportFit, plan.Viewport.Mode)
	})
}

func TestDetectSwapWithinThreshold(t *testing.T) {
	// Two markers well apart on screen at zoom 16.
	plan := Project([]delivery.Address{
		{ID: 1, Coordinates: coords(0, 0)},
		{ID: 2, Coordinates: coords(0, 0.01)},
	}, 0)

	// Drop essentially on top of marker 2.
	partner, ok := DetectSwap(plan, 1, delivery.Coordinates{Lat: 0, Lng: 0.0099}, 16)
	require.True(t, ok)
	assert.Equal(t, int64(2), partner)
}

func TestDetectSwapOutsideThreshold(t *testing.T) {
	plan := Project([]delivery.Address{
		{ID: 1, Coordinates: coords(0, 0)},
		{ID: 2, Coordinates: coords(0, 0.01)},
	}, 0)

	// Roughly 230px away from marker 2 at zoom 16.
	_, ok := DetectSwap(plan, 1, delivery.Coordinates{Lat: 0, Lng: 0.005}, 16)
	assert.False(t, ok)
}

func TestDetectSwapThresholdIsScreenRelative(t *testing.T) {
	plan := Project([]delivery.Address{
		{ID: 1, Coordinates: coords(0, 0)},
		{ID: 2, Coordinates: coords(0, 0.01)},
	}, 0)
	drop := delivery.Coordinates{Lat: 0, Lng: 0.005}

	// The same geographic drop misses at street zoom but hits when the map
	// is zoomed out and the markers sit pixels apart.
	_, ok := DetectSwap(plan, 1, drop, 16)
	assert.False(t, ok)

	partner, ok := DetectSwap(plan, 1, drop, 10)
	require.True(t, ok)
	assert.Equal(t, int64(2), partner)
}

func TestDetectSwapIgnoresDraggedMarker(t *testing.T) {
	// Only the dragged marker is resolved: nothing to swap with.
	plan := Project([]delivery.Address{
		{ID: 1, Coordinates: coords(0, 0)},
		{ID: 2, Value: "typing"},
	}, 0)

	_, ok := DetectSwap(plan, 1, delivery.Coordinates{Lat: 0, Lng: 0.00001}, 16)
	assert.False(t, ok)
}

func TestDetectSwapPicksNearestNeighbour(t *testing.T) {
	plan := Project([]delivery.Address{
		{ID: 1, Coordinates: coords(0, 0)},
		{ID: 2, Coordinates: coords(0, 0.01)},
		{ID: 3, Coordinates: coords(0, 0.0103)},
	}, 0)

	partner, ok := DetectSwap(plan, 1, delivery.Coordinates{Lat: 0, Lng: 0.0102}, 16)
	require.True(t, ok)
	assert.Equal(t, int64(3), partner)
}
