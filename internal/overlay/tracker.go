// Package overlay keeps a detail panel and its guide line attached to the
// selected entity while the globe moves underneath it.
package overlay

import (
	"context"

	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/model"
	"github.com/signalsfoundry/peerglobe/timectrl"
)

// Projector maps coordinates to viewport pixels.
type Projector interface {
	Project(c model.Coordinate) (model.ScreenPoint, error)
	Viewport() model.Viewport
}

// Sink receives the overlay's per-frame output. Open and Close bracket one
// selection; the setters are the only calls made per frame.
type Sink interface {
	Open(entityID string)
	Close()
	SetVisible(visible bool)
	SetPanelPosition(p model.ScreenPoint)
	SetAnchor(p model.ScreenPoint)
	SetGuidePath(path string)
}

// Status is a snapshot of the tracker for publishing.
type Status struct {
	EntityID  string            `json:"entity_id,omitempty"`
	Visible   bool              `json:"visible"`
	Suspended bool              `json:"suspended"`
	Side      string            `json:"side,omitempty"`
	Anchor    model.ScreenPoint `json:"anchor"`
	Panel     model.ScreenPoint `json:"panel"`
	GuidePath string            `json:"guide_path,omitempty"`
}

// DiscardSink ignores all overlay output.
type DiscardSink struct{}

func (DiscardSink) Open(string)                        {}
func (DiscardSink) Close()                             {}
func (DiscardSink) SetVisible(bool)                    {}
func (DiscardSink) SetPanelPosition(model.ScreenPoint) {}
func (DiscardSink) SetAnchor(model.ScreenPoint)        {}
func (DiscardSink) SetGuidePath(string)                {}

const loopName = "overlay"

// Tracker projects the selected entity every frame and eases the panel
// towards its placement.
type Tracker struct {
	proj   Projector
	sink   Sink
	frames *timectrl.FrameScheduler
	cfg    Config
	log    logging.Logger

	entityID  string
	coord     model.Coordinate
	loop      *timectrl.Handle
	suspended bool

	visible bool
	placed  bool
	side    Side
	panel   model.ScreenPoint
	anchor  model.ScreenPoint
	path    string

	// OnSnap, if set, is called each time the panel lands on its target.
	OnSnap func()
}

// NewTracker returns an idle tracker.
func NewTracker(proj Projector, sink Sink, frames *timectrl.FrameScheduler, cfg Config, log logging.Logger) *Tracker {
	if log == nil {
		log = logging.Noop()
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &Tracker{proj: proj, sink: sink, frames: frames, cfg: cfg.withDefaults(), log: log}
}

// Track attaches the overlay to an entity at its display coordinate. The
// sink is opened once per selection; tracking the same entity again only
// updates the coordinate.
func (t *Tracker) Track(entityID string, coord model.Coordinate) {
	if entityID == "" {
		t.Clear()
		return
	}
	if entityID != t.entityID {
		if t.entityID != "" {
			t.sink.Close()
		}
		t.entityID = entityID
		t.placed = false
		t.visible = false
		t.sink.Open(entityID)
		t.log.Debug(context.Background(), "overlay opened", logging.String("entity_id", entityID))
	}
	t.coord = coord
	t.suspended = false
	t.startLoop()
}

// Clear removes the overlay.
func (t *Tracker) Clear() {
	t.stopLoop()
	if t.entityID == "" {
		return
	}
	t.sink.Close()
	t.entityID = ""
	t.suspended = false
	t.visible = false
	t.placed = false
}

// Suspend hides the overlay without dropping the selection.
func (t *Tracker) Suspend() {
	if t.entityID == "" || t.suspended {
		return
	}
	t.suspended = true
	t.stopLoop()
	t.setVisible(false)
	t.placed = false
}

// Resume shows a suspended overlay again.
func (t *Tracker) Resume() {
	if t.entityID == "" || !t.suspended {
		return
	}
	t.suspended = false
	t.startLoop()
}

// Status returns the current overlay state.
func (t *Tracker) Status() Status {
	st := Status{
		EntityID:  t.entityID,
		Visible:   t.visible,
		Suspended: t.suspended,
	}
	if t.placed {
		st.Side = t.side.String()
		st.Anchor = t.anchor
		st.Panel = t.panel
		st.GuidePath = t.path
	}
	return st
}

// Close cancels the frame loop and closes the sink.
func (t *Tracker) Close() {
	t.Clear()
}

func (t *Tracker) startLoop() {
	if t.loop != nil && t.loop.Active() {
		return
	}
	t.loop = t.frames.Loop(loopName, t.frame)
}

func (t *Tracker) stopLoop() {
	if t.loop == nil {
		return
	}
	t.loop.Cancel()
	t.loop = nil
}

func (t *Tracker) setVisible(v bool) {
	if t.visible == v {
		return
	}
	t.visible = v
	t.sink.SetVisible(v)
}

func (t *Tracker) frame(timectrl.Frame) error {
	if t.entityID == "" || t.suspended {
		return nil
	}
	vp := t.proj.Viewport()
	anchor, err := t.proj.Project(t.coord)
	if err != nil || !inside(anchor, vp) {
		// Not yet available; try again next frame.
		t.setVisible(false)
		t.placed = false
		return nil
	}

	target := t.cfg.Place(anchor, vp)
	// A side switch retargets at once; the panel glides there like any other move.
	if !t.placed {
		t.panel = target.Panel
		t.snapped()
	} else {
		next, snapped := t.cfg.Approach(t.panel, target.Panel)
		if snapped && t.panel != target.Panel {
			t.snapped()
		}
		t.panel = next
	}
	t.side = target.Side
	t.anchor = anchor
	t.placed = true

	t.sink.SetPanelPosition(t.panel)
	t.sink.SetAnchor(anchor)
	t.path = t.cfg.GuidePath(anchor, t.cfg.Attachment(t.panel, t.side))
	t.sink.SetGuidePath(t.path)
	t.setVisible(true)
	return nil
}

func (t *Tracker) snapped() {
	if t.OnSnap != nil {
		t.OnSnap()
	}
}

func inside(p model.ScreenPoint, vp model.Viewport) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= vp.Width && p.Y <= vp.Height
}
