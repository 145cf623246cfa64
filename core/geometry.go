package core

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/signalsfoundry/peerglobe/model"
)

// EarthRadiusKm is the sphere radius shared with orb/geo so offsets and
// distances agree (kilometres).
const EarthRadiusKm = orb.EarthRadius / 1000

// metresPerDegreeLat is the length of one degree of latitude on that sphere.
const metresPerDegreeLat = orb.EarthRadius * math.Pi / 180

// minCosLat keeps longitude scaling finite at the poles.
const minCosLat = 1e-6

// ToPoint converts a coordinate to an orb point (lon, lat order).
func ToPoint(c model.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point back to a coordinate.
func FromPoint(p orb.Point) model.Coordinate {
	return model.Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(a, b model.Coordinate) float64 {
	return geo.DistanceHaversine(ToPoint(a), ToPoint(b))
}

// DistanceKm returns the great-circle distance between two coordinates in kilometres.
func DistanceKm(a, b model.Coordinate) float64 {
	return DistanceMeters(a, b) / 1000
}

// ValidCoordinate reports whether c is finite and inside the lat/lon ranges.
func ValidCoordinate(c model.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// polarLatitude is where OffsetMeters switches to a polar plane; longitude
// scaling blows up past it.
const polarLatitude = 89.5

// OffsetMeters moves origin by distance metres along a compass bearing
// (0° = north, clockwise) using a local tangent-plane approximation.
// The approximation is exact enough for the sub-kilometre offsets of a cluster bubble.
// Close to a pole the offset is applied in an azimuthal equidistant plane
// centred on the pole, so distinct offsets stay distinct on the globe.
func OffsetMeters(origin model.Coordinate, bearingDeg, distance float64) model.Coordinate {
	if distance == 0 {
		return origin
	}
	theta := bearingDeg * math.Pi / 180
	north := distance * math.Cos(theta)
	east := distance * math.Sin(theta)

	if math.Abs(origin.Lat) >= polarLatitude {
		return offsetPolar(origin, north, east)
	}

	cosLat := math.Cos(origin.Lat * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}

	lat := origin.Lat + north/metresPerDegreeLat
	lon := origin.Lon + east/(metresPerDegreeLat*cosLat)
	return model.Coordinate{Lat: lat, Lon: WrapLongitude(lon)}
}

// offsetPolar projects origin onto a plane tangent at the nearer pole, moves
// it by the north/east components in origin's local frame and projects back.
// The frame follows origin's meridian, which also fixes it at the pole itself.
func offsetPolar(origin model.Coordinate, north, east float64) model.Coordinate {
	sign := 1.0
	if origin.Lat < 0 {
		sign = -1
	}
	sinL, cosL := math.Sincos(origin.Lon * math.Pi / 180)
	r := (90 - sign*origin.Lat) * metresPerDegreeLat

	x := r*sinL - sign*sinL*north + cosL*east
	y := -sign*r*cosL + cosL*north + sign*sinL*east

	rr := math.Hypot(x, y)
	lat := sign * (90 - rr/metresPerDegreeLat)
	lon := math.Atan2(x, -sign*y) * 180 / math.Pi
	return model.Coordinate{Lat: lat, Lon: WrapLongitude(lon)}
}

// WrapLongitude normalises a longitude into [-180, 180).
func WrapLongitude(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// NormalizeBearing maps an angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
