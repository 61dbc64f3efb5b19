// Package mapview derives the render plan of the interactive route map from
// the current stop list and focus selection. It never mutates the list: a
// drag gesture only ever proposes a swap of two stop IDs.
package mapview

import (
	"math"

	"github.com/deliverymaster/service-quote/internal/domain/delivery"
)

// SwapThresholdPx is the on-screen distance within which a dropped marker
// swaps places with its nearest neighbour. Pixel distance keeps the gesture
// consistent across zoom levels.
const SwapThresholdPx = 50.0

const (
	focusZoom      = 16
	defaultZoom    = 13
	fitMaxZoom     = 16
	fitPaddingPx   = 50
	tileSizePixels = 256.0
)

// defaultCenter is the fallback viewport (Fortaleza) when no stop has
// coordinates yet.
var defaultCenter = delivery.Coordinates{Lat: -3.7319, Lng: -38.5267}

// ViewportMode says how the map frames the markers.
type ViewportMode string

const (
	// ViewportDefault shows the default city view; no marker is resolved.
	ViewportDefault ViewportMode = "default"
	// ViewportFit frames all resolved markers with padding.
	ViewportFit ViewportMode = "fit"
	// ViewportFocus zooms close onto the focused marker.
	ViewportFocus ViewportMode = "focus"
)

// Marker is one numbered pin on the map.
type Marker struct {
	StopID      int64                `json:"stop_id"`
	Position    int                  `json:"position"`
	Coordinates delivery.Coordinates `json:"coordinates"`
	Label       string               `json:"label,omitempty"`
	Focused     bool                 `json:"focused"`
}

// Bounds is a south-west/north-east coordinate box.
type Bounds struct {
	SouthWest delivery.Coordinates `json:"south_west"`
	NorthEast delivery.Coordinates `json:"north_east"`
}

// Viewport is the derived camera state.
type Viewport struct {
	Mode      ViewportMode         `json:"mode"`
	Center    delivery.Coordinates `json:"center"`
	Zoom      int                  `json:"zoom"`
	Bounds    *Bounds              `json:"bounds,omitempty"`
	PaddingPx int                  `json:"padding_px,omitempty"`
	MaxZoom   int                  `json:"max_zoom,omitempty"`
}

// RenderPlan is everything the map client needs to draw one frame.
type RenderPlan struct {
	Markers  []Marker               `json:"markers"`
	Route    []delivery.Coordinates `json:"route"`
	Viewport Viewport               `json:"viewport"`
}

// Project derives the render plan for the given stops. Markers are numbered
// by current list position, not by ID, and the route line connects resolved
// stops in list order. focusedID <= 0 means no focus.
func Project(addresses []delivery.Address, focusedID int64) RenderPlan {
	var plan RenderPlan

	var focused *Marker
	for i, addr := range addresses {
		if addr.Coordinates == nil {
			continue
		}
		m := Marker{
			StopID:      addr.ID,
			Position:    i + 1,
			Coordinates: *addr.Coordinates,
			Label:       addr.Value,
			Focused:     addr.ID == focusedID,
		}
		plan.Markers = append(plan.Markers, m)
		plan.Route = append(plan.Route, m.Coordinates)
		if m.Focused {
			focused = &plan.Markers[len(plan.Markers)-1]
		}
	}

	switch {
	case focused != nil:
		plan.Viewport = Viewport{
			Mode:   ViewportFocus,
			Center: focused.Coordinates,
			Zoom:   focusZoom,
		}
	case len(plan.Markers) > 0:
		bounds := markerBounds(plan.Markers)
		plan.Viewport = Viewport{
			Mode: ViewportFit,
			Center: delivery.Coordinates{
				Lat: (bounds.SouthWest.Lat + bounds.NorthEast.Lat) / 2,
				Lng: (bounds.SouthWest.Lng + bounds.NorthEast.Lng) / 2,
			},
			Bounds:    &bounds,
			PaddingPx: fitPaddingPx,
			MaxZoom:   fitMaxZoom,
		}
	default:
		plan.Viewport = Viewport{
			Mode:   ViewportDefault,
			Center: defaultCenter,
			Zoom:   defaultZoom,
		}
	}

	return plan
}

// DetectSwap finds the marker nearest to the drop point of a dragged marker,
// measured in on-screen pixels at the given zoom level. It returns the ID of
// the swap partner when the drop lands within SwapThresholdPx. The caller
// routes the swap through the stop list; the dragged marker snaps back to
// the authoritative order on the next projection either way.
func DetectSwap(plan RenderPlan, draggedID int64, drop delivery.Coordinates, zoom int) (int64, bool) {
	dropX, dropY := pixelPoint(drop, zoom)

	var nearestID int64
	nearest := math.Inf(1)
	for _, m := range plan.Markers {
		if m.StopID == draggedID {
			continue
		}
		x, y := pixelPoint(m.Coordinates, zoom)
		dist := math.Hypot(x-dropX, y-dropY)
		if dist < nearest {
			nearest = dist
			nearestID = m.StopID
		}
	}

	if nearestID == 0 || nearest >= SwapThresholdPx {
		return 0, false
	}
	return nearestID, true
}

// pixelPoint projects coordinates to Web Mercator world pixels at a zoom
// level, the same mapping tile-based map clients use on screen.
func pixelPoint(c delivery.Coordinates, zoom int) (float64, float64) {
	scale := tileSizePixels * math.Exp2(float64(zoom))
	x := (c.Lng + 180.0) / 360.0 * scale

	sinLat := math.Sin(c.Lat * math.Pi / 180.0)
	// Clamp to keep the projection finite near the poles.
	sinLat = math.Max(-0.9999, math.Min(0.9999, sinLat))
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * scale

	return x, y
}

func markerBounds(markers []Marker) Bounds {
	b := Bounds{
		SouthWest: markers[0].Coordinates,
		NorthEast: markers[0].Coordinates,
	}
	for _, m := range markers[1:] {
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, m.Coordinates.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, m.Coordinates.Lng)
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, m.Coordinates.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, m.Coordinates.Lng)
	}
	return b
}
