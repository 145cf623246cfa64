// Package camera plans and issues directed camera moves over the globe layout
// and tracks which entity the user is navigating.
package camera

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/peerglobe/model"
)

// ErrNotVisible is returned by Surface.Project when the coordinate is on the far
// side of the globe or outside the viewport.
var ErrNotVisible = errors.New("camera: coordinate not visible")

// Origin tells programmatic camera writes apart from user-driven ones.
type Origin int

const (
	OriginUser Origin = iota
	OriginProgrammatic
)

func (o Origin) String() string {
	if o == OriginProgrammatic {
		return "programmatic"
	}
	return "user"
}

// Easing is a named timing curve for animated flights.
type Easing int

const (
	EaseLinear Easing = iota
	EaseInOutCubic
	EaseOutCubic
	EaseOutQuint
)

// Apply maps linear progress t in [0,1] to eased progress.
func (e Easing) Apply(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	switch e {
	case EaseInOutCubic:
		if t < 0.5 {
			return 4 * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 3)/2
	case EaseOutCubic:
		return 1 - math.Pow(1-t, 3)
	case EaseOutQuint:
		return 1 - math.Pow(1-t, 5)
	default:
		return t
	}
}

func (e Easing) String() string {
	switch e {
	case EaseInOutCubic:
		return "ease-in-out-cubic"
	case EaseOutCubic:
		return "ease-out-cubic"
	case EaseOutQuint:
		return "ease-out-quint"
	default:
		return "linear"
	}
}

// ParseEasing resolves an easing name as printed by String.
func ParseEasing(name string) (Easing, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return EaseLinear, nil
	case "ease-in-out-cubic":
		return EaseInOutCubic, nil
	case "ease-out-cubic":
		return EaseOutCubic, nil
	case "ease-out-quint":
		return EaseOutQuint, nil
	}
	return EaseLinear, fmt.Errorf("camera: unknown easing %q", name)
}

// UnmarshalText lets easings be configured by name.
func (e *Easing) UnmarshalText(text []byte) error {
	v, err := ParseEasing(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (e Easing) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Command is a camera write. Duration zero means jump immediately.
type Command struct {
	Center   model.Coordinate
	Zoom     float64
	Pitch    float64
	Bearing  float64
	Duration time.Duration
	Easing   Easing
	// Curve and Speed shape the zoom-out/zoom-in arc of a fly-to.
	Curve  float64
	Speed  float64
	Origin Origin
}

// Change is the notification a Surface emits after the camera moved.
type Change struct {
	Origin  Origin
	Center  model.Coordinate
	Zoom    float64
	Bearing float64
}

// Surface is the rendering-surface boundary. The surface owns camera state;
// the engine only issues commands and reads center and zoom.
type Surface interface {
	Center() model.Coordinate
	Zoom() float64
	Bearing() float64
	Viewport() model.Viewport

	// JumpTo applies cmd immediately.
	JumpTo(cmd Command)
	// FlyTo animates towards cmd and calls settled once the camera is
	// stationary. A later FlyTo or JumpTo supersedes an unfinished flight,
	// whose settled callback is then never called.
	FlyTo(cmd Command, settled func())
	// Project maps a coordinate to viewport pixels.
	Project(c model.Coordinate) (model.ScreenPoint, error)
}
