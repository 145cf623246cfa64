// Package surface provides a headless rendering surface: a camera with
// orthographic globe projection and animated flights driven by the frame
// scheduler. It stands in for a map canvas in tests, demos and the server.
package surface

import (
	"math"
	"time"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/model"
	"github.com/signalsfoundry/peerglobe/timectrl"
)

const (
	flightLoop = "surface-flight"

	MinZoom = 0
	MaxZoom = 22
)

type flight struct {
	from    camera.Command
	to      camera.Command
	arc     float64
	start   time.Time
	settled func()
	handle  *timectrl.Handle
}

// Headless is an in-memory camera. It is not safe for concurrent use; the
// engine goroutine owns it.
type Headless struct {
	frames *timectrl.FrameScheduler
	vp     model.Viewport

	center  model.Coordinate
	zoom    float64
	bearing float64
	pitch   float64

	active    *flight
	listeners []func(camera.Change)
}

// NewHeadless returns a surface looking at center from zoom.
func NewHeadless(frames *timectrl.FrameScheduler, vp model.Viewport, center model.Coordinate, zoom float64) *Headless {
	return &Headless{frames: frames, vp: vp, center: center, zoom: clampZoom(zoom)}
}

func (h *Headless) Center() model.Coordinate { return h.center }
func (h *Headless) Zoom() float64            { return h.zoom }
func (h *Headless) Bearing() float64         { return h.bearing }
func (h *Headless) Pitch() float64           { return h.pitch }
func (h *Headless) Viewport() model.Viewport { return h.vp }

// SetViewport resizes the surface.
func (h *Headless) SetViewport(vp model.Viewport) { h.vp = vp }

// InFlight reports whether an animated flight is running.
func (h *Headless) InFlight() bool { return h.active != nil }

// OnChange registers fn to receive every camera change.
func (h *Headless) OnChange(fn func(camera.Change)) {
	h.listeners = append(h.listeners, fn)
}

// Project implements camera.Surface.
func (h *Headless) Project(c model.Coordinate) (model.ScreenPoint, error) {
	return project(c, h.center, h.zoom, h.bearing, h.vp)
}

// JumpTo implements camera.Surface. It cancels any running flight.
func (h *Headless) JumpTo(cmd camera.Command) {
	h.cancelFlight()
	h.apply(cmd.Center, cmd.Zoom, cmd.Bearing, cmd.Pitch)
	h.emit(cmd.Origin)
}

// FlyTo implements camera.Surface. A zero duration jumps and settles on the
// next frame.
func (h *Headless) FlyTo(cmd camera.Command, settled func()) {
	h.cancelFlight()
	f := &flight{
		from: camera.Command{
			Center:  h.center,
			Zoom:    h.zoom,
			Bearing: h.bearing,
			Pitch:   h.pitch,
		},
		to:      cmd,
		arc:     arcDepth(cmd.Curve, core.DistanceKm(h.center, cmd.Center)),
		settled: settled,
	}
	h.active = f
	f.handle = h.frames.Loop(flightLoop, func(fr timectrl.Frame) error {
		h.advance(f, fr.Now)
		return nil
	})
}

// Pan moves the camera as a user drag would.
func (h *Headless) Pan(dLat, dLon float64) {
	h.cancelFlight()
	c := h.center
	c.Lat = math.Max(-85, math.Min(85, c.Lat+dLat))
	c.Lon = core.WrapLongitude(c.Lon + dLon)
	h.apply(c, h.zoom, h.bearing, h.pitch)
	h.emit(camera.OriginUser)
}

// ZoomBy changes zoom as a wheel or pinch gesture would.
func (h *Headless) ZoomBy(delta float64) {
	h.cancelFlight()
	h.apply(h.center, h.zoom+delta, h.bearing, h.pitch)
	h.emit(camera.OriginUser)
}

func (h *Headless) advance(f *flight, now time.Time) {
	if h.active != f {
		return
	}
	if f.start.IsZero() {
		f.start = now
	}
	t := 1.0
	if f.to.Duration > 0 {
		t = float64(now.Sub(f.start)) / float64(f.to.Duration)
	}
	if t >= 1 {
		h.apply(f.to.Center, f.to.Zoom, f.to.Bearing, f.to.Pitch)
		h.active = nil
		f.handle.Cancel()
		h.emit(f.to.Origin)
		if f.settled != nil {
			f.settled()
		}
		return
	}

	e := f.to.Easing.Apply(t)
	zoom := f.from.Zoom + (f.to.Zoom-f.from.Zoom)*e - f.arc*math.Sin(math.Pi*e)
	h.apply(
		interpolate(e, f.from.Center, f.to.Center),
		zoom,
		f.from.Bearing+shortestTurn(f.from.Bearing, f.to.Bearing)*e,
		f.from.Pitch+(f.to.Pitch-f.from.Pitch)*e,
	)
	h.emit(f.to.Origin)
}

func (h *Headless) cancelFlight() {
	if h.active == nil {
		return
	}
	h.active.handle.Cancel()
	h.active = nil
}

func (h *Headless) apply(center model.Coordinate, zoom, bearing, pitch float64) {
	h.center = model.Coordinate{Lat: center.Lat, Lon: core.WrapLongitude(center.Lon)}
	h.zoom = clampZoom(zoom)
	h.bearing = core.NormalizeBearing(bearing)
	h.pitch = math.Max(0, math.Min(60, pitch))
}

func (h *Headless) emit(origin camera.Origin) {
	change := camera.Change{Origin: origin, Center: h.center, Zoom: h.zoom, Bearing: h.bearing}
	for _, fn := range h.listeners {
		fn(change)
	}
}

// arcDepth is how many zoom levels a flight backs out at its midpoint.
func arcDepth(curve, distanceKm float64) float64 {
	if curve <= 0 || distanceKm <= 0 {
		return 0
	}
	return curve * math.Min(4, math.Log2(1+distanceKm/100))
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
