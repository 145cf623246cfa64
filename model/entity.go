package model

// Status describes the liveness of a monitored peer.
type Status string

const (
	StatusActive        Status = "active"
	StatusTransitioning Status = "transitioning"
	StatusInactive      Status = "inactive"
)

// Coordinate is a geographic position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Entity is a monitored network participant as delivered by the data feed.
// Lat/Lon are pointers so that "missing" can be told apart from 0,0.
type Entity struct {
	ID      string `json:"id"`
	Key     string `json:"key,omitempty"`     // optional secondary key, e.g. a public key
	Address string `json:"address,omitempty"` // host:port or bare host
	Name    string `json:"name,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`

	Status     Status            `json:"status,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Coordinate returns the entity position. ok is false when either axis is missing.
func (e Entity) Coordinate() (Coordinate, bool) {
	if e.Lat == nil || e.Lon == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *e.Lat, Lon: *e.Lon}, true
}

// NewEntity is a small constructor used by tests and tools that always have a position.
func NewEntity(id string, lat, lon float64) Entity {
	return Entity{ID: id, Lat: &lat, Lon: &lon, Status: StatusActive}
}
