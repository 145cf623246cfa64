// Package rotation slowly spins the globe while the user is not interacting.
package rotation

import (
	"context"
	"time"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/model"
	"github.com/signalsfoundry/peerglobe/timectrl"
)

// State of the scheduler.
type State int

const (
	// Idle: waiting for the first entity load to settle.
	Idle State = iota
	Rotating
	// Stopped stays stopped until Reset.
	Stopped
)

func (s State) String() string {
	switch s {
	case Rotating:
		return "rotating"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Reason records why rotation stopped.
type Reason int

const (
	ReasonDrag Reason = iota
	ReasonZoom
	ReasonNavigation
	ReasonClick
	ReasonUserCamera
	ReasonShutdown
)

func (r Reason) String() string {
	switch r {
	case ReasonDrag:
		return "drag"
	case ReasonZoom:
		return "zoom"
	case ReasonNavigation:
		return "navigation"
	case ReasonClick:
		return "click"
	case ReasonUserCamera:
		return "user_camera"
	default:
		return "shutdown"
	}
}

// Camera is the part of the surface rotation writes to.
type Camera interface {
	Center() model.Coordinate
	Zoom() float64
	Bearing() float64
	JumpTo(cmd camera.Command)
}

// Config tunes rotation speed.
type Config struct {
	DegreesPerSecond float64       `yaml:"degrees_per_second"`
	MaxFrameGap      time.Duration `yaml:"max_frame_gap"`
}

// DefaultConfig returns 3 degrees per second with gaps clamped to 250ms.
func DefaultConfig() Config {
	return Config{DegreesPerSecond: 3, MaxFrameGap: 250 * time.Millisecond}
}

const loopName = "rotation"

// Scheduler owns the rotation state machine and its frame loop.
// It is not safe for concurrent use.
type Scheduler struct {
	cam    Camera
	frames *timectrl.FrameScheduler
	cfg    Config
	log    logging.Logger

	state  State
	reason Reason
	loop   *timectrl.Handle
	last   time.Time

	// OnStateChange, if set, is called after every transition.
	OnStateChange func(from, to State, reason Reason)
}

// NewScheduler returns an Idle scheduler.
func NewScheduler(cam Camera, frames *timectrl.FrameScheduler, cfg Config, log logging.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.DegreesPerSecond == 0 {
		cfg.DegreesPerSecond = def.DegreesPerSecond
	}
	if cfg.MaxFrameGap <= 0 {
		cfg.MaxFrameGap = def.MaxFrameGap
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Scheduler{cam: cam, frames: frames, cfg: cfg, log: log}
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// LastReason returns why rotation last stopped.
func (s *Scheduler) LastReason() Reason { return s.reason }

// LoadSettled is called once entity data has loaded. It starts rotating
// from Idle unless a selection is already active.
func (s *Scheduler) LoadSettled(selectionActive bool) {
	if s.state != Idle || selectionActive {
		return
	}
	s.transition(Rotating, s.reason)
}

// Interrupt stops rotation. It is safe to call in any state.
func (s *Scheduler) Interrupt(reason Reason) {
	if s.state == Stopped {
		return
	}
	s.transition(Stopped, reason)
}

// Reset resumes rotation regardless of the current state.
func (s *Scheduler) Reset() {
	if s.state == Rotating {
		return
	}
	s.transition(Rotating, s.reason)
}

// OnCameraChange stops rotation for user-driven camera changes.
// Programmatic changes, including rotation's own writes, are ignored.
func (s *Scheduler) OnCameraChange(change camera.Change) {
	if change.Origin != camera.OriginUser {
		return
	}
	s.Interrupt(ReasonUserCamera)
}

// Close cancels the frame loop.
func (s *Scheduler) Close() {
	s.stopLoop()
}

func (s *Scheduler) transition(to State, reason Reason) {
	from := s.state
	s.state = to
	s.reason = reason
	if to == Rotating {
		s.startLoop()
	} else {
		s.stopLoop()
	}
	s.log.Debug(context.Background(), "rotation state",
		logging.String("from", from.String()),
		logging.String("to", to.String()),
		logging.String("reason", reason.String()),
	)
	if s.OnStateChange != nil {
		s.OnStateChange(from, to, reason)
	}
}

func (s *Scheduler) startLoop() {
	if s.loop != nil && s.loop.Active() {
		return
	}
	s.last = time.Time{}
	s.loop = s.frames.Loop(loopName, s.frame)
}

func (s *Scheduler) stopLoop() {
	if s.loop == nil {
		return
	}
	s.loop.Cancel()
	s.loop = nil
}

func (s *Scheduler) frame(f timectrl.Frame) error {
	if s.state != Rotating {
		return nil
	}
	var dt time.Duration
	if !s.last.IsZero() {
		dt = f.Now.Sub(s.last)
		if dt < 0 {
			dt = 0
		}
		if dt > s.cfg.MaxFrameGap {
			dt = s.cfg.MaxFrameGap
		}
	}
	s.last = f.Now
	if dt == 0 {
		return nil
	}

	center := s.cam.Center()
	center.Lon = core.WrapLongitude(center.Lon + s.cfg.DegreesPerSecond*dt.Seconds())
	s.cam.JumpTo(camera.Command{
		Center:  center,
		Zoom:    s.cam.Zoom(),
		Bearing: s.cam.Bearing(),
		Origin:  camera.OriginProgrammatic,
	})
	return nil
}
