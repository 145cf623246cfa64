package surface

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/model"
)

// tileSize matches the 512px world width at zoom 0 used by vector map surfaces.
const tileSize = 512

// radiusPixels is the globe radius on screen at the given zoom.
func radiusPixels(zoom float64) float64 {
	return tileSize * math.Exp2(zoom) / (2 * math.Pi)
}

func toVector(c model.Coordinate) r3.Vector {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)).Vector
}

func toCoordinate(v r3.Vector) model.Coordinate {
	ll := s2.LatLngFromPoint(s2.Point{Vector: v})
	return model.Coordinate{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}

// basis returns the local east and north unit vectors at c.
func basis(c model.Coordinate) (east, north r3.Vector) {
	lat := c.Lat * math.Pi / 180
	lon := c.Lon * math.Pi / 180
	east = r3.Vector{X: -math.Sin(lon), Y: math.Cos(lon), Z: 0}
	north = r3.Vector{
		X: -math.Sin(lat) * math.Cos(lon),
		Y: -math.Sin(lat) * math.Sin(lon),
		Z: math.Cos(lat),
	}
	return east, north
}

// project maps a coordinate onto the viewport with an orthographic globe
// projection centered on center. Points on the far hemisphere are not visible.
func project(p, center model.Coordinate, zoom, bearing float64, vp model.Viewport) (model.ScreenPoint, error) {
	v := toVector(p)
	c := toVector(center)
	if v.Dot(c) < 0 {
		return model.ScreenPoint{}, camera.ErrNotVisible
	}
	east, north := basis(center)
	x, y := v.Dot(east), v.Dot(north)

	b := bearing * math.Pi / 180
	rx := x*math.Cos(b) - y*math.Sin(b)
	ry := x*math.Sin(b) + y*math.Cos(b)

	r := radiusPixels(zoom)
	return model.ScreenPoint{
		X: vp.Width/2 + rx*r,
		Y: vp.Height/2 - ry*r,
	}, nil
}

// interpolate moves along the great circle from a to b.
func interpolate(t float64, a, b model.Coordinate) model.Coordinate {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	pa := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon))
	pb := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return toCoordinate(s2.Interpolate(t, pa, pb).Vector)
}

// shortestTurn returns the signed bearing delta from a to b in (-180, 180].
func shortestTurn(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}
