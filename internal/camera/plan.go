package camera

import (
	"math"
	"time"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/model"
)

// Band selects flight timing for moves up to MaxDistanceKm. The last band
// of a plan catches everything beyond the previous ones.
type Band struct {
	Name          string        `yaml:"name"`
	MaxDistanceKm float64       `yaml:"max_distance_km"`
	Duration      time.Duration `yaml:"duration"`
	Easing        Easing        `yaml:"easing"`
	Curve         float64       `yaml:"curve"`
	Speed         float64       `yaml:"speed"`
}

// ZoomLevels maps destination cluster size to a target zoom so that
// cluster members are distinguishable on arrival.
type ZoomLevels struct {
	Regional        float64 `yaml:"regional"`
	City            float64 `yaml:"city"`
	Street          float64 `yaml:"street"`
	SmallClusterMax int     `yaml:"small_cluster_max"`

	RegionalPitch float64 `yaml:"regional_pitch"`
	CityPitch     float64 `yaml:"city_pitch"`
	StreetPitch   float64 `yaml:"street_pitch"`
}

// PlannerConfig bundles band and zoom tuning.
type PlannerConfig struct {
	Bands []Band     `yaml:"bands"`
	Zoom  ZoomLevels `yaml:"zoom"`
}

// DefaultPlannerConfig returns the four distance bands used by the dashboard:
// near-instant inside a cluster up to multi-second cross-hemisphere jumps.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Bands: []Band{
			{Name: "cluster", MaxDistanceKm: 1, Duration: 350 * time.Millisecond, Easing: EaseInOutCubic, Curve: 1.0, Speed: 0.8},
			{Name: "regional", MaxDistanceKm: 500, Duration: 1200 * time.Millisecond, Easing: EaseInOutCubic, Curve: 1.0, Speed: 0.8},
			{Name: "continental", MaxDistanceKm: 5000, Duration: 2200 * time.Millisecond, Easing: EaseOutQuint, Curve: 1.6, Speed: 1.6},
			{Name: "global", MaxDistanceKm: math.Inf(1), Duration: 3500 * time.Millisecond, Easing: EaseOutQuint, Curve: 1.6, Speed: 1.6},
		},
		Zoom: ZoomLevels{
			Regional:        6,
			City:            14,
			Street:          16.5,
			SmallClusterMax: 7,
			RegionalPitch:   0,
			CityPitch:       20,
			StreetPitch:     40,
		},
	}
}

// Flight is a planned directed move.
// EntityID is empty for flights to a bare coordinate.
type Flight struct {
	Command    Command
	EntityID   string
	Band       string
	DistanceKm float64
}

// BandFor returns the band a move of distanceKm falls into.
func (c PlannerConfig) BandFor(distanceKm float64) Band {
	bands := c.Bands
	if len(bands) == 0 {
		bands = DefaultPlannerConfig().Bands
	}
	for _, b := range bands {
		if distanceKm < b.MaxDistanceKm {
			return b
		}
	}
	return bands[len(bands)-1]
}

// ZoomFor returns target zoom and pitch for a destination cluster size.
func (c PlannerConfig) ZoomFor(clusterSize int) (zoom, pitch float64) {
	z := c.Zoom
	switch {
	case clusterSize <= 1:
		return z.Regional, z.RegionalPitch
	case clusterSize <= z.SmallClusterMax:
		return z.City, z.CityPitch
	default:
		return z.Street, z.StreetPitch
	}
}

// Plan computes a flight from the current camera center to a layout point.
func (c PlannerConfig) Plan(from model.Coordinate, bearing float64, to model.LayoutPoint) Flight {
	dist := core.DistanceKm(from, to.Display)
	band := c.BandFor(dist)
	zoom, pitch := c.ZoomFor(to.ClusterSize)
	return Flight{
		EntityID:   to.EntityID,
		Band:       band.Name,
		DistanceKm: dist,
		Command: Command{
			Center:   to.Display,
			Zoom:     zoom,
			Pitch:    pitch,
			Bearing:  bearing,
			Duration: band.Duration,
			Easing:   band.Easing,
			Curve:    band.Curve,
			Speed:    band.Speed,
			Origin:   OriginProgrammatic,
		},
	}
}

// PlanCenter computes a flight to an arbitrary coordinate at a given zoom.
func (c PlannerConfig) PlanCenter(from model.Coordinate, bearing float64, to model.Coordinate, zoom float64) Flight {
	dist := core.DistanceKm(from, to)
	band := c.BandFor(dist)
	return Flight{
		Band:       band.Name,
		DistanceKm: dist,
		Command: Command{
			Center:   to,
			Zoom:     zoom,
			Bearing:  bearing,
			Duration: band.Duration,
			Easing:   band.Easing,
			Curve:    band.Curve,
			Speed:    band.Speed,
			Origin:   OriginProgrammatic,
		},
	}
}
