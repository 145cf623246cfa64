package rotation

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/model"
	"github.com/signalsfoundry/peerglobe/timectrl"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeCamera struct {
	center model.Coordinate
	writes []camera.Command
}

func (c *fakeCamera) Center() model.Coordinate { return c.center }
func (c *fakeCamera) Zoom() float64            { return 2 }
func (c *fakeCamera) Bearing() float64         { return 0 }
func (c *fakeCamera) JumpTo(cmd camera.Command) {
	c.center = cmd.Center
	c.writes = append(c.writes, cmd)
}

func newRotating(t *testing.T) (*Scheduler, *fakeCamera, *timectrl.FrameScheduler) {
	t.Helper()
	cam := &fakeCamera{}
	frames := timectrl.NewFrameScheduler()
	s := NewScheduler(cam, frames, DefaultConfig(), nil)
	s.LoadSettled(false)
	if s.State() != Rotating {
		t.Fatalf("state = %v, want rotating", s.State())
	}
	return s, cam, frames
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLoadSettledWithSelectionStaysIdle(t *testing.T) {
	frames := timectrl.NewFrameScheduler()
	s := NewScheduler(&fakeCamera{}, frames, DefaultConfig(), nil)
	s.LoadSettled(true)
	if s.State() != Idle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if frames.Active() != 0 {
		t.Fatalf("active loops = %d, want 0", frames.Active())
	}
}

func TestRotationAdvancesByElapsedTime(t *testing.T) {
	_, cam, frames := newRotating(t)

	frames.Step(t0)
	if cam.center.Lon != 0 || len(cam.writes) != 0 {
		t.Fatalf("first frame moved the camera to %+v", cam.center)
	}
	frames.Step(t0.Add(100 * time.Millisecond))
	if !almostEqual(cam.center.Lon, 0.3) {
		t.Fatalf("lon = %v, want 0.3", cam.center.Lon)
	}
	for _, w := range cam.writes {
		if w.Origin != camera.OriginProgrammatic {
			t.Fatalf("rotation wrote with origin %v", w.Origin)
		}
	}
}

func TestFrameGapIsClamped(t *testing.T) {
	_, cam, frames := newRotating(t)
	frames.Step(t0)
	frames.Step(t0.Add(10 * time.Second))
	if !almostEqual(cam.center.Lon, 0.75) {
		t.Fatalf("lon = %v, want 0.75 after clamped gap", cam.center.Lon)
	}
}

func TestLongitudeWraps(t *testing.T) {
	_, cam, frames := newRotating(t)
	cam.center.Lon = 179.9
	frames.Step(t0)
	frames.Step(t0.Add(100 * time.Millisecond))
	if !almostEqual(cam.center.Lon, -179.8) {
		t.Fatalf("lon = %v, want -179.8", cam.center.Lon)
	}
}

func TestStoppedNeverAdvances(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Scheduler)
	}{
		{"drag", func(s *Scheduler) { s.Interrupt(ReasonDrag) }},
		{"zoom", func(s *Scheduler) { s.Interrupt(ReasonZoom) }},
		{"navigation", func(s *Scheduler) { s.Interrupt(ReasonNavigation) }},
		{"click", func(s *Scheduler) { s.Interrupt(ReasonClick) }},
		{"user camera", func(s *Scheduler) { s.OnCameraChange(camera.Change{Origin: camera.OriginUser}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, cam, frames := newRotating(t)
			frames.Step(t0)
			frames.Step(t0.Add(16 * time.Millisecond))
			tt.stop(s)
			if s.State() != Stopped {
				t.Fatalf("state = %v, want stopped", s.State())
			}
			before := cam.center
			for i := 2; i < 1200; i++ {
				frames.Step(t0.Add(time.Duration(i) * 16 * time.Millisecond))
			}
			if cam.center != before {
				t.Fatalf("center moved from %+v to %+v while stopped", before, cam.center)
			}
			if frames.Active() != 0 {
				t.Fatalf("active loops = %d, want 0", frames.Active())
			}
		})
	}
}

func TestProgrammaticCameraChangeIgnored(t *testing.T) {
	s, _, _ := newRotating(t)
	s.OnCameraChange(camera.Change{Origin: camera.OriginProgrammatic})
	if s.State() != Rotating {
		t.Fatalf("state = %v, want rotating", s.State())
	}
}

func TestStoppedStaysStoppedUntilReset(t *testing.T) {
	s, cam, frames := newRotating(t)
	s.Interrupt(ReasonDrag)
	s.LoadSettled(false)
	if s.State() != Stopped {
		t.Fatalf("LoadSettled restarted rotation")
	}

	s.Reset()
	if s.State() != Rotating {
		t.Fatalf("state after Reset = %v, want rotating", s.State())
	}
	frames.Step(t0)
	if len(cam.writes) != 0 {
		t.Fatalf("first frame after Reset moved the camera")
	}
	frames.Step(t0.Add(time.Second))
	if !almostEqual(cam.center.Lon, 0.75) {
		t.Fatalf("lon = %v, want 0.75", cam.center.Lon)
	}
}

func TestDoubleStartKeepsSingleLoop(t *testing.T) {
	s, _, frames := newRotating(t)
	s.Reset()
	s.LoadSettled(false)
	if frames.Active() != 1 {
		t.Fatalf("active loops = %d, want 1", frames.Active())
	}
	s.Close()
	if frames.Active() != 0 {
		t.Fatalf("active loops after Close = %d, want 0", frames.Active())
	}
}

func TestStateChangeCallback(t *testing.T) {
	frames := timectrl.NewFrameScheduler()
	s := NewScheduler(&fakeCamera{}, frames, DefaultConfig(), nil)
	var got []State
	s.OnStateChange = func(_, to State, _ Reason) { got = append(got, to) }

	s.LoadSettled(false)
	s.Interrupt(ReasonClick)
	s.Interrupt(ReasonDrag)
	s.Reset()

	want := []State{Rotating, Stopped, Rotating}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
	if s.LastReason() != ReasonClick {
		t.Fatalf("last reason = %v, want click", s.LastReason())
	}
}
