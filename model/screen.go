package model

import "math"

// ScreenPoint is a position in viewport pixels, origin top-left.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean pixel distance between two points.
func (p ScreenPoint) DistanceTo(o ScreenPoint) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Viewport is the size of the rendering surface in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
