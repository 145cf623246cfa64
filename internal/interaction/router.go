// Package interaction routes user input to navigation, rotation and the
// host's detail callbacks.
package interaction

import (
	"context"
	"strings"

	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/rotation"
	"github.com/signalsfoundry/peerglobe/timectrl"
)

// Navigator is the navigation surface the router drives.
type Navigator interface {
	Select(id string) bool
	NavigateToEntity(id string) bool
	NavigateByExternalID(identifier string) bool
	Next() bool
	Previous() bool
	ClearSelection()
	Selected() (string, bool)
}

// Rotation is interrupted by any user interaction.
type Rotation interface {
	Interrupt(reason rotation.Reason)
}

// Callbacks are optional host hooks.
type Callbacks struct {
	// Detail, when set, receives entity clicks instead of a camera flight.
	Detail func(entityID string)
	// OpenDetail opens the full detail view for the selection.
	OpenDetail func(entityID string)
}

// Key identifies a navigation key.
type Key string

const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

// Flags are the router's transient input flags.
type Flags struct {
	// Handled is set when an entity click consumed the current input event.
	Handled bool
	Dragging bool
	// SuppressClick swallows the surface click that ends a drag.
	SuppressClick bool
}

const resetLoop = "interaction-reset"

// Router turns raw interaction events into engine actions. Flags raised
// during one frame are cleared on the next.
type Router struct {
	nav    Navigator
	rot    Rotation
	frames *timectrl.FrameScheduler
	cb     Callbacks
	log    logging.Logger

	flags        Flags
	reset        *timectrl.Handle
	lastExternal string
}

// NewRouter wires a router.
func NewRouter(nav Navigator, rot Rotation, frames *timectrl.FrameScheduler, cb Callbacks, log logging.Logger) *Router {
	if log == nil {
		log = logging.Noop()
	}
	return &Router{nav: nav, rot: rot, frames: frames, cb: cb, log: log}
}

// Flags returns the current flags.
func (r *Router) Flags() Flags { return r.flags }

// SetCallbacks replaces the host callbacks.
func (r *Router) SetCallbacks(cb Callbacks) { r.cb = cb }

// EntityClick handles a click on an entity marker.
func (r *Router) EntityClick(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	r.flags.Handled = true
	r.scheduleReset()
	r.rot.Interrupt(rotation.ReasonClick)

	if !r.nav.Select(id) {
		r.log.Debug(context.Background(), "click on unknown entity", logging.String("entity_id", id))
		return false
	}
	if r.cb.Detail != nil {
		r.cb.Detail(id)
		return true
	}
	return r.nav.NavigateToEntity(id)
}

// DragStart stops rotation and suppresses surface clicks until the drag ends.
func (r *Router) DragStart() {
	r.flags.Dragging = true
	r.flags.SuppressClick = true
	r.rot.Interrupt(rotation.ReasonDrag)
}

// DragEnd ends a drag. The click that ends it is still suppressed.
func (r *Router) DragEnd() {
	if !r.flags.Dragging {
		return
	}
	r.flags.Dragging = false
	r.scheduleReset()
}

// Zoom handles wheel and pinch zoom.
func (r *Router) Zoom() {
	r.rot.Interrupt(rotation.ReasonZoom)
}

// KeyPress steps through the navigable list on arrow keys.
func (r *Router) KeyPress(k Key) bool {
	switch k {
	case KeyArrowLeft:
		return r.nav.Previous()
	case KeyArrowRight:
		return r.nav.Next()
	}
	return false
}

// ExternalNavigate navigates once for each distinct external value.
func (r *Router) ExternalNavigate(value string) bool {
	value = strings.TrimSpace(value)
	if value == r.lastExternal {
		return false
	}
	r.lastExternal = value
	if value == "" {
		return false
	}
	return r.nav.NavigateByExternalID(value)
}

// SurfaceClick clears the selection unless the click was already handled
// or ends a drag.
func (r *Router) SurfaceClick() bool {
	if r.flags.Handled || r.flags.Dragging || r.flags.SuppressClick {
		return false
	}
	if _, ok := r.nav.Selected(); !ok {
		return false
	}
	r.nav.ClearSelection()
	return true
}

// OpenDetail invokes the open-detail callback for the current selection.
func (r *Router) OpenDetail() bool {
	id, ok := r.nav.Selected()
	if !ok || r.cb.OpenDetail == nil {
		return false
	}
	r.cb.OpenDetail(id)
	return true
}

// Close cancels a pending flag reset.
func (r *Router) Close() {
	r.reset.Cancel()
	r.reset = nil
}

func (r *Router) scheduleReset() {
	if r.reset.Active() {
		return
	}
	r.reset = r.frames.Once(resetLoop, func(timectrl.Frame) error {
		r.flags.Handled = false
		if !r.flags.Dragging {
			r.flags.SuppressClick = false
		}
		return nil
	})
}
