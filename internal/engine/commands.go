package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/internal/interaction"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/observability"
	"github.com/signalsfoundry/peerglobe/model"
)

// Sentinel errors for command validation.
var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Every exported command below runs on the engine goroutine. The bool
// results report whether the command changed anything; no-ops are not errors.

// NavigateTo flies to the entity at index in the navigable list.
func (e *Engine) NavigateTo(ctx context.Context, index int) (bool, error) {
	return e.boolCmd(ctx, "engine.navigate_to", func() bool { return e.nav.NavigateTo(index) },
		attribute.Int("index", index))
}

// Next flies to the following navigable entity.
func (e *Engine) Next(ctx context.Context) (bool, error) {
	return e.boolCmd(ctx, "engine.next", e.nav.Next)
}

// Previous flies to the preceding navigable entity.
func (e *Engine) Previous(ctx context.Context) (bool, error) {
	return e.boolCmd(ctx, "engine.previous", e.nav.Previous)
}

// NavigateByExternalID resolves an ID, key or address and flies to it.
func (e *Engine) NavigateByExternalID(ctx context.Context, identifier string) (bool, error) {
	return e.boolCmd(ctx, "engine.navigate_external", func() bool { return e.nav.NavigateByExternalID(identifier) },
		attribute.String("identifier", identifier))
}

// ExternalNavigate is NavigateByExternalID deduplicated per distinct value,
// for hosts that re-send the same navigation target.
func (e *Engine) ExternalNavigate(ctx context.Context, value string) (bool, error) {
	return e.boolCmd(ctx, "engine.external_navigate", func() bool { return e.router.ExternalNavigate(value) })
}

// CenterOn flies to a coordinate without changing the selection. zoom <= 0
// keeps the current zoom.
func (e *Engine) CenterOn(ctx context.Context, c model.Coordinate, zoom float64) error {
	if !core.ValidCoordinate(c) {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	_, err := e.boolCmd(ctx, "engine.center_on", func() bool { return e.nav.CenterOn(c, zoom) != "" })
	return err
}

// SetScan draws scan edges from reference to targets and narrows navigation
// to the targets that resolve.
func (e *Engine) SetScan(ctx context.Context, scan model.ScanPayload) error {
	if !core.ValidCoordinate(scan.Reference) {
		return fmt.Errorf("%w: scan reference %v,%v", ErrInvalidCoordinate, scan.Reference.Lat, scan.Reference.Lon)
	}
	targets := make([]string, 0, len(scan.Targets))
	for _, t := range scan.Targets {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	scan.Targets = targets
	_, err := e.boolCmd(ctx, "engine.set_scan", func() bool {
		e.scan = &scan
		e.refreshNavigable()
		return true
	}, attribute.Int("targets", len(targets)))
	return err
}

// ClearScan restores navigation over all entities.
func (e *Engine) ClearScan(ctx context.Context) (bool, error) {
	return e.boolCmd(ctx, "engine.clear_scan", func() bool {
		if e.scan == nil {
			return false
		}
		e.scan = nil
		e.refreshNavigable()
		return true
	})
}

// ClickEntity routes a click on an entity marker.
func (e *Engine) ClickEntity(ctx context.Context, id string) (bool, error) {
	return e.boolCmd(ctx, "engine.click_entity", func() bool { return e.router.EntityClick(id) },
		attribute.String("entity_id", id))
}

// ClickSurface routes a click on empty globe.
func (e *Engine) ClickSurface(ctx context.Context) (bool, error) {
	return e.boolCmd(ctx, "engine.click_surface", e.router.SurfaceClick)
}

// ClearSelection drops the selection regardless of input flags.
func (e *Engine) ClearSelection(ctx context.Context) error {
	_, err := e.boolCmd(ctx, "engine.clear_selection", func() bool {
		e.nav.ClearSelection()
		return true
	})
	return err
}

// Drag applies a user drag of dLat/dLon degrees as one gesture.
func (e *Engine) Drag(ctx context.Context, dLat, dLon float64) error {
	_, err := e.boolCmd(ctx, "engine.drag", func() bool {
		e.router.DragStart()
		e.surface.Pan(dLat, dLon)
		e.router.DragEnd()
		return true
	})
	return err
}

// Zoom applies a user wheel or pinch zoom.
func (e *Engine) Zoom(ctx context.Context, delta float64) error {
	_, err := e.boolCmd(ctx, "engine.zoom", func() bool {
		e.router.Zoom()
		e.surface.ZoomBy(delta)
		return true
	})
	return err
}

// KeyPress routes a navigation key.
func (e *Engine) KeyPress(ctx context.Context, key string) (bool, error) {
	k := interaction.Key(key)
	if k != interaction.KeyArrowLeft && k != interaction.KeyArrowRight {
		return false, fmt.Errorf("%w: unsupported key %q", ErrInvalidArgument, key)
	}
	return e.boolCmd(ctx, "engine.key", func() bool { return e.router.KeyPress(k) })
}

// OpenDetail invokes the open-detail callback for the selection.
func (e *Engine) OpenDetail(ctx context.Context) (bool, error) {
	return e.boolCmd(ctx, "engine.open_detail", e.router.OpenDetail)
}

// ResetRotation restarts auto-rotation. A flight still in progress is
// abandoned, since the rotation loop takes over the camera.
func (e *Engine) ResetRotation(ctx context.Context) error {
	_, err := e.boolCmd(ctx, "engine.reset_rotation", func() bool {
		if e.nav.Abandon() {
			e.reattachOverlay()
		}
		e.rot.Reset()
		return true
	})
	return err
}

// SetViewport resizes the surface.
func (e *Engine) SetViewport(ctx context.Context, vp model.Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return fmt.Errorf("%w: viewport %vx%v", ErrInvalidArgument, vp.Width, vp.Height)
	}
	_, err := e.boolCmd(ctx, "engine.set_viewport", func() bool {
		e.surface.SetViewport(vp)
		return true
	})
	return err
}

func (e *Engine) boolCmd(ctx context.Context, name string, fn func() bool, attrs ...attribute.KeyValue) (bool, error) {
	var changed bool
	err := e.exec(ctx, func() error {
		spanCtx, span := observability.StartSpan(ctx, name, attrs...)
		defer span.End()
		changed = fn()
		span.SetAttributes(attribute.Bool("changed", changed))
		if changed {
			e.publish(time.Time{}, true)
			e.log.Debug(spanCtx, "command applied", logging.String("command", name))
		}
		return nil
	})
	return changed, err
}
