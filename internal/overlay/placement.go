package overlay

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/peerglobe/model"
)

// Side is the horizontal half of the viewport the panel sits in.
type Side int

const (
	SideRight Side = iota
	SideLeft
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Config tunes panel placement and motion.
type Config struct {
	PanelWidth  float64 `yaml:"panel_width"`
	PanelHeight float64 `yaml:"panel_height"`

	Margin       float64 `yaml:"margin"`
	NarrowWidth  float64 `yaml:"narrow_width"`
	NarrowTop    float64 `yaml:"narrow_top"`
	NarrowBottom float64 `yaml:"narrow_bottom"`

	// Easing factor shrinks from NearFactor to FarFactor as the panel's
	// distance to its target grows from 0 to FactorRange pixels.
	NearFactor   float64 `yaml:"near_factor"`
	FarFactor    float64 `yaml:"far_factor"`
	FactorRange  float64 `yaml:"factor_range"`
	SnapDistance float64 `yaml:"snap_distance"`

	CurveRatio float64 `yaml:"curve_ratio"`
	MaxCurve   float64 `yaml:"max_curve"`
}

// DefaultConfig returns the dashboard's panel geometry.
func DefaultConfig() Config {
	return Config{
		PanelWidth:   320,
		PanelHeight:  220,
		Margin:       16,
		NarrowWidth:  768,
		NarrowTop:    72,
		NarrowBottom: 96,
		NearFactor:   0.5,
		FarFactor:    0.12,
		FactorRange:  400,
		SnapDistance: 0.5,
		CurveRatio:   0.2,
		MaxCurve:     80,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PanelWidth <= 0 {
		c.PanelWidth = d.PanelWidth
	}
	if c.PanelHeight <= 0 {
		c.PanelHeight = d.PanelHeight
	}
	if c.Margin <= 0 {
		c.Margin = d.Margin
	}
	if c.NarrowWidth <= 0 {
		c.NarrowWidth = d.NarrowWidth
	}
	if c.NarrowTop <= 0 {
		c.NarrowTop = d.NarrowTop
	}
	if c.NarrowBottom <= 0 {
		c.NarrowBottom = d.NarrowBottom
	}
	if c.NearFactor <= 0 {
		c.NearFactor = d.NearFactor
	}
	if c.FarFactor <= 0 {
		c.FarFactor = d.FarFactor
	}
	if c.FactorRange <= 0 {
		c.FactorRange = d.FactorRange
	}
	if c.SnapDistance <= 0 {
		c.SnapDistance = d.SnapDistance
	}
	if c.CurveRatio <= 0 {
		c.CurveRatio = d.CurveRatio
	}
	if c.MaxCurve <= 0 {
		c.MaxCurve = d.MaxCurve
	}
	return c
}

// Placement is where the panel should be for a given anchor.
type Placement struct {
	Panel  model.ScreenPoint // top-left corner
	Side   Side
	Bottom bool
}

// Place puts the panel on the horizontal side opposite the anchor, in the
// vertical corner opposite the anchor's half.
func (c Config) Place(anchor model.ScreenPoint, vp model.Viewport) Placement {
	top, bottom := c.Margin, c.Margin
	if vp.Width < c.NarrowWidth {
		top, bottom = c.NarrowTop, c.NarrowBottom
	}

	var p Placement
	if anchor.X < vp.Width/2 {
		p.Side = SideRight
		p.Panel.X = vp.Width - c.Margin - c.PanelWidth
	} else {
		p.Side = SideLeft
		p.Panel.X = c.Margin
	}
	if anchor.Y < vp.Height/2 {
		p.Bottom = true
		p.Panel.Y = vp.Height - bottom - c.PanelHeight
	} else {
		p.Panel.Y = top
	}
	return p
}

// Factor returns the per-frame interpolation factor for a panel that is
// distance pixels away from its target.
func (c Config) Factor(distance float64) float64 {
	t := distance / c.FactorRange
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return c.NearFactor + (c.FarFactor-c.NearFactor)*t
}

// Approach moves cur one frame towards target. It snaps exactly onto the
// target once the remaining distance drops below SnapDistance.
func (c Config) Approach(cur, target model.ScreenPoint) (model.ScreenPoint, bool) {
	d := cur.DistanceTo(target)
	if d < c.SnapDistance {
		return target, true
	}
	f := c.Factor(d)
	next := model.ScreenPoint{
		X: cur.X + (target.X-cur.X)*f,
		Y: cur.Y + (target.Y-cur.Y)*f,
	}
	if next.DistanceTo(target) < c.SnapDistance {
		return target, true
	}
	return next, false
}

// Attachment returns the midpoint of the panel edge nearest the anchor.
func (c Config) Attachment(panel model.ScreenPoint, side Side) model.ScreenPoint {
	y := panel.Y + c.PanelHeight/2
	if side == SideRight {
		return model.ScreenPoint{X: panel.X, Y: y}
	}
	return model.ScreenPoint{X: panel.X + c.PanelWidth, Y: y}
}

// GuideControl returns the quadratic control point bending the guide line
// away from the straight segment between from and to.
func (c Config) GuideControl(from, to model.ScreenPoint) model.ScreenPoint {
	mid := model.ScreenPoint{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2}
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return mid
	}
	offset := math.Min(length*c.CurveRatio, c.MaxCurve)
	return model.ScreenPoint{
		X: mid.X - dy/length*offset,
		Y: mid.Y + dx/length*offset,
	}
}

// GuidePath renders the guide line as an SVG quadratic path.
func (c Config) GuidePath(from, to model.ScreenPoint) string {
	ctrl := c.GuideControl(from, to)
	return fmt.Sprintf("M %.1f %.1f Q %.1f %.1f %.1f %.1f", from.X, from.Y, ctrl.X, ctrl.Y, to.X, to.Y)
}
