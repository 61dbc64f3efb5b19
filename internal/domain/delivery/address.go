package delivery

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is one stop of a delivery route: the free-text location plus
// optional rider-facing metadata. Coordinates are nil until the text has
// been geocoded and are cleared whenever the text changes.
type Address struct {
	ID           int64        `json:"id"`
	Value        string       `json:"value"`
	Complement   string       `json:"complement"`
	Instructions string       `json:"instructions"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
}

// HasCoordinates reports whether the address has been geocoded.
func (a Address) HasCoordinates() bool {
	return a.Coordinates != nil
}

// cloneAddresses deep-copies an address slice so snapshots cannot alias
// the live working list.
func cloneAddresses(addresses []Address) []Address {
	out := make([]Address, len(addresses))
	for i, a := range addresses {
		out[i] = a
		if a.Coordinates != nil {
			c := *a.Coordinates
			out[i].Coordinates = &c
		}
	}
	return out
}
