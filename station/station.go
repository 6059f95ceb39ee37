package station

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Station is a docking station. AvailableSpots + BicyclesCount always equals
// Capacity; Dock and Undock are the only ways the counts move.
type Station struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       Location `json:"location"`
	Capacity       uint32   `json:"capacity"`
	AvailableSpots uint32   `json:"availableSpots"`
	BicyclesCount  uint32   `json:"bicyclesCount"`
}

// New returns an empty station with every spot free.
func New(id, name string, loc Location, capacity uint32) Station {
	return Station{
		ID:             id,
		Name:           name,
		Location:       loc,
		Capacity:       capacity,
		AvailableSpots: capacity,
	}
}

func (s Station) Full() bool {
	return s.AvailableSpots == 0
}

// Dock takes one spot for a bicycle. ok is false when the station is full.
func (s Station) Dock() (Station, bool) {
	if s.Full() {
		return s, false
	}
	s.AvailableSpots--
	s.BicyclesCount++
	return s, true
}

// Undock frees one spot. ok is false when no bicycle is docked.
func (s Station) Undock() (Station, bool) {
	if s.BicyclesCount == 0 {
		return s, false
	}
	s.AvailableSpots++
	s.BicyclesCount--
	return s, true
}

// Balanced reports whether the spot counts add up to the capacity.
func (s Station) Balanced() bool {
	return uint64(s.AvailableSpots)+uint64(s.BicyclesCount) == uint64(s.Capacity)
}
