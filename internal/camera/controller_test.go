package camera

import (
	"fmt"
	"strings"
	"testing"

	"github.com/signalsfoundry/peerglobe/model"
)

type flyCall struct {
	cmd     Command
	settled func()
}

type fakeSurface struct {
	center  model.Coordinate
	zoom    float64
	bearing float64
	flights []flyCall
}

func (s *fakeSurface) Center() model.Coordinate { return s.center }
func (s *fakeSurface) Zoom() float64            { return s.zoom }
func (s *fakeSurface) Bearing() float64         { return s.bearing }
func (s *fakeSurface) Viewport() model.Viewport { return model.Viewport{Width: 1280, Height: 800} }
func (s *fakeSurface) JumpTo(cmd Command)       { s.center, s.zoom = cmd.Center, cmd.Zoom }
func (s *fakeSurface) FlyTo(cmd Command, settled func()) {
	s.flights = append(s.flights, flyCall{cmd: cmd, settled: settled})
}
func (s *fakeSurface) Project(model.Coordinate) (model.ScreenPoint, error) {
	return model.ScreenPoint{}, ErrNotVisible
}

// land finishes the most recent flight.
func (s *fakeSurface) land() {
	last := s.flights[len(s.flights)-1]
	s.center, s.zoom = last.cmd.Center, last.cmd.Zoom
	last.settled()
}

type fakeLayout struct {
	points map[string]model.LayoutPoint
	alias  map[string]string
}

func (l fakeLayout) Point(id string) (model.LayoutPoint, bool) {
	p, ok := l.points[id]
	return p, ok
}

func (l fakeLayout) Lookup(identifier string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(identifier))
	if _, ok := l.points[key]; ok {
		return key, true
	}
	id, ok := l.alias[key]
	return id, ok
}

func layoutOf(n int) (fakeLayout, []string) {
	l := fakeLayout{points: map[string]model.LayoutPoint{}, alias: map[string]string{}}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("e%d", i)
		ids[i] = id
		c := model.Coordinate{Lat: float64(i), Lon: float64(i * 10)}
		l.points[id] = model.LayoutPoint{EntityID: id, True: c, Display: c, ClusterSize: 1}
	}
	return l, ids
}

func sequentialTokens() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestController(n int) (*Controller, *fakeSurface) {
	surf := &fakeSurface{zoom: 2}
	c := NewController(surf, WithTokenSource(sequentialTokens()))
	l, ids := layoutOf(n)
	c.SetNavigable(l, ids)
	return c, surf
}

func TestNavigateToOutOfRangeIsNoop(t *testing.T) {
	c, surf := newTestController(3)
	for _, idx := range []int{-1, 3, 100} {
		if c.NavigateTo(idx) {
			t.Fatalf("NavigateTo(%d) = true, want false", idx)
		}
	}
	if len(surf.flights) != 0 {
		t.Fatalf("got %d flights, want 0", len(surf.flights))
	}
	if st := c.State(); st.CurrentIndex != -1 || st.SelectedEntityID != "" {
		t.Fatalf("state changed: %+v", st)
	}
}

func TestEmptyListIsNoop(t *testing.T) {
	surf := &fakeSurface{}
	c := NewController(surf)
	if c.Next() || c.Previous() || c.NavigateTo(0) || c.NavigateByExternalID("x") {
		t.Fatalf("expected every operation to be a no-op on an empty list")
	}
	if len(surf.flights) != 0 {
		t.Fatalf("got %d flights, want 0", len(surf.flights))
	}
}

func TestSelectionCommitsOnlyOnSettle(t *testing.T) {
	c, surf := newTestController(3)
	if !c.NavigateTo(2) {
		t.Fatalf("NavigateTo(2) = false")
	}
	if st := c.State(); st.CurrentIndex != -1 || !st.InFlight {
		t.Fatalf("state before settle = %+v, want index -1 in flight", st)
	}
	surf.land()
	st := c.State()
	if st.CurrentIndex != 2 || st.SelectedEntityID != "e2" || st.InFlight {
		t.Fatalf("state after settle = %+v", st)
	}
}

func TestStaleTokenIgnored(t *testing.T) {
	var committed []string
	surf := &fakeSurface{}
	c := NewController(surf,
		WithTokenSource(sequentialTokens()),
		WithHooks(Hooks{Committed: func(id string, _ int, _ bool) { committed = append(committed, id) }}),
	)
	l, ids := layoutOf(4)
	c.SetNavigable(l, ids)

	c.NavigateTo(1)
	c.NavigateTo(3)
	if got := c.PendingToken(); got != "t2" {
		t.Fatalf("pending token = %q, want t2", got)
	}

	surf.flights[0].settled()
	if st := c.State(); st.SelectedEntityID != "" {
		t.Fatalf("stale flight committed %q", st.SelectedEntityID)
	}
	if c.Settled("t1") {
		t.Fatalf("Settled(t1) = true for superseded token")
	}

	surf.flights[1].settled()
	if st := c.State(); st.SelectedEntityID != "e3" || st.CurrentIndex != 3 {
		t.Fatalf("state = %+v, want e3 at 3", st)
	}
	if len(committed) != 1 || committed[0] != "e3" {
		t.Fatalf("committed = %v, want [e3]", committed)
	}
}

func TestNextWrapsAround(t *testing.T) {
	c, surf := newTestController(5)
	c.NavigateTo(4)
	surf.land()

	c.Next()
	surf.land()
	if st := c.State(); st.CurrentIndex != 0 {
		t.Fatalf("index after Next from 4 = %d, want 0", st.CurrentIndex)
	}

	c.Previous()
	surf.land()
	if st := c.State(); st.CurrentIndex != 4 {
		t.Fatalf("index after Previous from 0 = %d, want 4", st.CurrentIndex)
	}
}

func TestStepWithoutSelectionStartsAtFirst(t *testing.T) {
	for _, dir := range []string{"next", "previous"} {
		t.Run(dir, func(t *testing.T) {
			c, surf := newTestController(5)
			if dir == "next" {
				c.Next()
			} else {
				c.Previous()
			}
			surf.land()
			if st := c.State(); st.CurrentIndex != 0 {
				t.Fatalf("index = %d, want 0", st.CurrentIndex)
			}
		})
	}
}

func TestRepeatedNextDuringFlightAdvancesFromTarget(t *testing.T) {
	c, surf := newTestController(5)
	c.NavigateTo(1)
	surf.land()

	c.Next()
	c.Next()
	surf.land()
	if st := c.State(); st.CurrentIndex != 3 {
		t.Fatalf("index = %d, want 3", st.CurrentIndex)
	}
}

func TestNavigateByExternalID(t *testing.T) {
	c, surf := newTestController(3)
	l := c.layout.(fakeLayout)
	l.alias["10.0.0.7"] = "e1"

	if c.NavigateByExternalID("   ") {
		t.Fatalf("blank identifier should be ignored")
	}
	if c.NavigateByExternalID("unknown") {
		t.Fatalf("unknown identifier should be ignored")
	}
	if len(surf.flights) != 0 {
		t.Fatalf("got %d flights on misses, want 0", len(surf.flights))
	}
	if !c.NavigateByExternalID(" 10.0.0.7 ") {
		t.Fatalf("alias lookup failed")
	}
	surf.land()
	if st := c.State(); st.SelectedEntityID != "e1" {
		t.Fatalf("selected = %q, want e1", st.SelectedEntityID)
	}
}

func TestSetNavigableKeepsOrClearsSelection(t *testing.T) {
	cleared := 0
	surf := &fakeSurface{}
	c := NewController(surf, WithHooks(Hooks{SelectionCleared: func() { cleared++ }}))
	l, ids := layoutOf(4)
	c.SetNavigable(l, ids)
	c.NavigateTo(2)
	surf.land()

	// e2 moves to the front.
	if c.SetNavigable(l, []string{"e2", "e0"}) {
		t.Fatalf("selection cleared while still navigable")
	}
	if st := c.State(); st.CurrentIndex != 0 || st.SelectedEntityID != "e2" {
		t.Fatalf("state = %+v, want e2 at 0", st)
	}

	if !c.SetNavigable(l, []string{"e0", "e1"}) {
		t.Fatalf("selection kept after entity left the list")
	}
	if st := c.State(); st.CurrentIndex != -1 || st.SelectedEntityID != "" {
		t.Fatalf("state = %+v, want cleared", st)
	}
	if cleared != 1 {
		t.Fatalf("SelectionCleared calls = %d, want 1", cleared)
	}
}

func TestPendingFlightToVanishedEntityIsDropped(t *testing.T) {
	c, surf := newTestController(3)
	c.NavigateTo(2)

	smaller, ids := layoutOf(2)
	c.SetNavigable(smaller, ids)
	surf.land()
	if st := c.State(); st.SelectedEntityID != "" {
		t.Fatalf("vanished entity committed: %+v", st)
	}
}

func TestCenterOnKeepsSelection(t *testing.T) {
	settled := 0
	surf := &fakeSurface{zoom: 4}
	c := NewController(surf, WithHooks(Hooks{CenterSettled: func() { settled++ }}))
	l, ids := layoutOf(3)
	c.SetNavigable(l, ids)
	c.NavigateTo(1)
	surf.land()

	c.CenterOn(model.Coordinate{Lat: 48.85, Lon: 2.35}, 0)
	last := surf.flights[len(surf.flights)-1].cmd
	if last.Zoom != surf.zoom {
		t.Fatalf("zoom = %v, want current zoom %v", last.Zoom, surf.zoom)
	}
	surf.land()
	if st := c.State(); st.SelectedEntityID != "e1" || st.CurrentIndex != 1 {
		t.Fatalf("CenterOn changed selection: %+v", st)
	}
	if settled != 1 {
		t.Fatalf("CenterSettled calls = %d, want 1", settled)
	}
}

func TestFlightStartedHookSeesPlan(t *testing.T) {
	var started []Flight
	surf := &fakeSurface{center: model.Coordinate{Lat: 51.5, Lon: -0.12}}
	c := NewController(surf, WithHooks(Hooks{FlightStarted: func(f Flight) { started = append(started, f) }}))
	l := fakeLayout{points: map[string]model.LayoutPoint{
		"syd": {EntityID: "syd", Display: model.Coordinate{Lat: -33.87, Lon: 151.21}, ClusterSize: 9},
	}}
	c.SetNavigable(l, []string{"syd"})
	c.NavigateTo(0)

	if len(started) != 1 {
		t.Fatalf("FlightStarted calls = %d, want 1", len(started))
	}
	f := started[0]
	if f.Band != "global" {
		t.Fatalf("band = %q, want global", f.Band)
	}
	if f.Command.Zoom != 16.5 || f.Command.Easing != EaseOutQuint {
		t.Fatalf("command = %+v", f.Command)
	}
	if f.Command.Origin != OriginProgrammatic {
		t.Fatalf("origin = %v, want programmatic", f.Command.Origin)
	}
}
