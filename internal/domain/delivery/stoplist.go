package delivery

import "strings"

// StopList owns the ordered collection of route stops for a quote session.
// Stop IDs come from a monotonic counter, so an ID removed from the list is
// never handed out again, and reordering never reassigns IDs.
//
// StopList is not safe for concurrent use; callers synchronize access.
type StopList struct {
	nextID int64
	stops  []Address
}

// NewStopList creates a list seeded with the given number of empty stops.
// The two-stop minimum (pickup plus one destination) is a policy of the
// calling layer, not of the list itself.
func NewStopList(initial int) *StopList {
	l := &StopList{}
	for i := 0; i < initial; i++ {
		l.Add()
	}
	return l
}

// Add appends a new empty stop with a fresh ID and returns it.
func (l *StopList) Add() Address {
	l.nextID++
	stop := Address{ID: l.nextID}
	l.stops = append(l.stops, stop)
	return stop
}

// Remove deletes the stop with the given ID. It reports whether a stop
// was removed.
func (l *StopList) Remove(id int64) bool {
	for i, s := range l.stops {
		if s.ID == id {
			l.stops = append(l.stops[:i], l.stops[i+1:]...)
			return true
		}
	}
	return false
}

// SetText replaces the free-text address of a stop. Any previously
// resolved coordinates are cleared: changed text must be re-geocoded.
func (l *StopList) SetText(id int64, text string) bool {
	for i := range l.stops {
		if l.stops[i].ID == id {
			l.stops[i].Value = text
			l.stops[i].Coordinates = nil
			return true
		}
	}
	return false
}

// SetComplement updates the complement field. Coordinates are untouched.
func (l *StopList) SetComplement(id int64, complement string) bool {
	for i := range l.stops {
		if l.stops[i].ID == id {
			l.stops[i].Complement = complement
			return true
		}
	}
	return false
}

// SetInstructions updates the delivery instructions. Coordinates are untouched.
func (l *StopList) SetInstructions(id int64, instructions string) bool {
	for i := range l.stops {
		if l.stops[i].ID == id {
			l.stops[i].Instructions = instructions
			return true
		}
	}
	return false
}

// Swap exchanges the positions of two stops. It is a no-op when either ID
// is absent or both name the same stop.
func (l *StopList) Swap(idA, idB int64) bool {
	if idA == idB {
		return false
	}
	posA, posB := -1, -1
	for i, s := range l.stops {
		switch s.ID {
		case idA:
			posA = i
		case idB:
			posB = i
		}
	}
	if posA < 0 || posB < 0 {
		return false
	}
	l.stops[posA], l.stops[posB] = l.stops[posB], l.stops[posA]
	return true
}

// ResolveCoordinates writes geocoded coordinates onto a stop, but only when
// the stop still exists and its text still equals the text that was sent to
// the geocoder. A stale response for edited or deleted stops is discarded.
func (l *StopList) ResolveCoordinates(id int64, expectedText string, coords Coordinates) bool {
	for i := range l.stops {
		if l.stops[i].ID == id {
			if l.stops[i].Value != expectedText {
				return false
			}
			c := coords
			l.stops[i].Coordinates = &c
			return true
		}
	}
	return false
}

// Get returns a copy of the stop with the given ID.
func (l *StopList) Get(id int64) (Address, bool) {
	for _, s := range l.stops {
		if s.ID == id {
			if s.Coordinates != nil {
				c := *s.Coordinates
				s.Coordinates = &c
			}
			return s, true
		}
	}
	return Address{}, false
}

// Position returns the 1-based list position of a stop, or 0 if absent.
func (l *StopList) Position(id int64) int {
	for i, s := range l.stops {
		if s.ID == id {
			return i + 1
		}
	}
	return 0
}

// Len returns the number of stops.
func (l *StopList) Len() int {
	return len(l.stops)
}

// Addresses returns a deep copy of the stops in list order.
func (l *StopList) Addresses() []Address {
	return cloneAddresses(l.stops)
}

// Unresolved returns copies of the stops with non-empty text and no
// coordinates: the set a background geocode pass needs to resolve.
func (l *StopList) Unresolved() []Address {
	var out []Address
	for _, s := range l.stops {
		if strings.TrimSpace(s.Value) != "" && s.Coordinates == nil {
			out = append(out, s)
		}
	}
	return out
}
