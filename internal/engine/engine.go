// Package engine hosts the globe: it owns the surface, navigation, rotation,
// overlay and interaction state on a single goroutine and publishes a
// read-only State for transports.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/internal/interaction"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/observability"
	"github.com/signalsfoundry/peerglobe/internal/overlay"
	"github.com/signalsfoundry/peerglobe/internal/rotation"
	"github.com/signalsfoundry/peerglobe/internal/surface"
	"github.com/signalsfoundry/peerglobe/kb"
	"github.com/signalsfoundry/peerglobe/model"
	"github.com/signalsfoundry/peerglobe/timectrl"
)

// ErrStopped is returned by commands once Run has returned.
var ErrStopped = errors.New("engine: stopped")

// loadZoomOut is how much further out the camera waits before the load-in move.
const loadZoomOut = 1.0

// Options configures an Engine. Zero values select defaults.
type Options struct {
	FrameInterval   time.Duration
	PublishInterval time.Duration

	Viewport model.Viewport
	Start    camera.Command

	// LoadSettle is the duration of the load-in move to Start once the first
	// entities arrive. Rotation begins when it settles. Negative skips it.
	LoadSettle time.Duration

	Planner  camera.PlannerConfig
	Rotation rotation.Config
	Overlay  overlay.Config

	Sink      overlay.Sink
	Callbacks interaction.Callbacks

	Logger  logging.Logger
	Metrics *observability.GlobeCollector

	// Ticks replaces the frame ticker, mainly for tests.
	Ticks <-chan time.Time
	// Publish receives state changes on the engine goroutine. Continuous
	// camera motion is throttled to PublishInterval.
	Publish func(State)
}

func (o Options) withDefaults() Options {
	if o.FrameInterval <= 0 {
		o.FrameInterval = time.Second / 60
	}
	if o.PublishInterval <= 0 {
		o.PublishInterval = 250 * time.Millisecond
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = model.Viewport{Width: 1280, Height: 800}
	}
	if o.Start.Zoom <= 0 {
		o.Start.Zoom = 1.5
	}
	if o.LoadSettle == 0 {
		o.LoadSettle = 1500 * time.Millisecond
	}
	if len(o.Planner.Bands) == 0 {
		o.Planner = camera.DefaultPlannerConfig()
	}
	if o.Logger == nil {
		o.Logger = logging.Noop()
	}
	return o
}

type command struct {
	fn   func() error
	done chan error
}

// Engine is the globe host.
type Engine struct {
	opts Options
	log  logging.Logger
	kb   *kb.KnowledgeBase

	frames  *timectrl.FrameScheduler
	surface *surface.Headless
	nav     *camera.Controller
	rot     *rotation.Scheduler
	overlay *overlay.Tracker
	router  *interaction.Router

	cmds    chan command
	stopped chan struct{}
	once    sync.Once

	// Owned by the engine goroutine.
	snap          kb.Snapshot
	scan          *model.ScanPayload
	scanEdges     []model.ConnectionEdge
	revision      uint64
	loaded        bool
	lastPublished State
	lastPublishAt time.Time

	mu     sync.RWMutex
	state  State
	layout LayoutView
}

// New wires an engine over a knowledge base. Call Run to start it.
func New(knowledge *kb.KnowledgeBase, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		opts:    opts,
		log:     opts.Logger,
		kb:      knowledge,
		cmds:    make(chan command, 64),
		stopped: make(chan struct{}),
	}

	e.frames = timectrl.NewFrameScheduler(timectrl.WithErrorHandler(e.frameError))
	startZoom := opts.Start.Zoom
	if opts.LoadSettle > 0 {
		startZoom -= loadZoomOut
	}
	e.surface = surface.NewHeadless(e.frames, opts.Viewport, opts.Start.Center, startZoom)
	e.nav = camera.NewController(e.surface,
		camera.WithLogger(e.log),
		camera.WithPlanner(opts.Planner),
		camera.WithHooks(camera.Hooks{
			FlightStarted:    e.onFlightStarted,
			Committed:        e.onCommitted,
			SelectionCleared: e.onSelectionCleared,
			CenterSettled:    e.onCenterSettled,
		}),
	)
	e.rot = rotation.NewScheduler(e.surface, e.frames, opts.Rotation, e.log)
	e.rot.OnStateChange = func(_, to rotation.State, _ rotation.Reason) {
		opts.Metrics.SetRotationState(int(to))
	}
	e.overlay = overlay.NewTracker(e.surface, opts.Sink, e.frames, opts.Overlay, e.log)
	e.overlay.OnSnap = opts.Metrics.IncOverlaySnap
	e.router = interaction.NewRouter(e.nav, e.rot, e.frames, opts.Callbacks, e.log)
	e.surface.OnChange(e.onCameraChange)

	e.applySnapshot(context.Background(), knowledge.Snapshot())
	return e
}

// Run drives the engine until ctx is cancelled. Entity replacements in the
// knowledge base are picked up through a subscription.
func (e *Engine) Run(ctx context.Context) error {
	defer e.once.Do(func() { close(e.stopped) })

	unsubscribe := e.kb.Subscribe(func(ev kb.Event) {
		snap := ev.Snapshot
		_ = e.exec(ctx, func() error {
			e.applySnapshot(ctx, snap)
			return nil
		})
	})
	defer unsubscribe()

	ticks := e.opts.Ticks
	if ticks == nil {
		ticker := time.NewTicker(e.opts.FrameInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	e.log.Info(ctx, "engine started",
		logging.Duration("frame_interval", e.opts.FrameInterval),
		logging.Int("entities", len(e.snap.Layout.Entities)),
	)
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			e.log.Info(context.Background(), "engine stopped")
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd.done <- cmd.fn()
		case now := <-ticks:
			e.step(now)
		}
	}
}

// State returns the latest published state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Layout returns the current drawable layout.
func (e *Engine) Layout() LayoutView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layout
}

// exec runs fn on the engine goroutine and waits for it.
func (e *Engine) exec(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
}

func (e *Engine) step(now time.Time) {
	e.frames.Step(now)
	e.opts.Metrics.IncFrame()
	e.publish(now, false)
}

func (e *Engine) shutdown() {
	e.router.Close()
	e.overlay.Close()
	e.rot.Close()
}

func (e *Engine) frameError(loop string, err error) {
	e.log.Error(context.Background(), "frame callback failed",
		logging.String("loop", loop),
		logging.Err(err),
	)
	e.opts.Metrics.IncFrameError(loop)
}

func (e *Engine) applySnapshot(ctx context.Context, snap kb.Snapshot) {
	_, span := observability.StartSpan(ctx, "engine.apply_layout",
		attribute.Int64("version", int64(snap.Version)),
		attribute.Int("entities", len(snap.Layout.Entities)),
	)
	defer span.End()

	e.snap = snap
	report := snap.Layout.Report
	e.opts.Metrics.ObserveLayout(len(snap.Layout.Entities), len(snap.Layout.Clusters), report.Dropped(), snap.BuildDuration)
	if report.Dropped() > 0 {
		e.log.Debug(ctx, "entities filtered",
			logging.Int("input", report.Input),
			logging.Int("missing_id", report.MissingID),
			logging.Int("missing_coords", report.MissingCoords),
			logging.Int("out_of_range", report.OutOfRange),
			logging.Int("duplicate_id", report.DuplicateID),
			logging.Int("duplicate_key", report.DuplicateKey),
		)
	}

	e.refreshNavigable()

	if !e.loaded && len(snap.Layout.Entities) > 0 {
		e.loaded = true
		e.loadIn()
	}
	e.publish(time.Time{}, true)
}

// loadIn eases the camera onto the start view. A directed flight or user
// gesture issued meanwhile cancels it, and rotation then stays off until reset.
func (e *Engine) loadIn() {
	settle := func() {
		_, selected := e.nav.Selected()
		e.rot.LoadSettled(selected)
		e.publish(time.Time{}, true)
	}
	if e.opts.LoadSettle < 0 {
		settle()
		return
	}
	cmd := e.opts.Start
	cmd.Duration = e.opts.LoadSettle
	cmd.Easing = camera.EaseOutCubic
	cmd.Origin = camera.OriginProgrammatic
	e.surface.FlyTo(cmd, settle)
}

// refreshNavigable recomputes the navigable list and scan edges for the
// current snapshot and scan, then re-attaches the overlay.
func (e *Engine) refreshNavigable() {
	e.revision++
	ids := e.snap.Layout.EntityIDs()
	e.scanEdges = nil
	if e.scan != nil {
		e.scanEdges = core.ScanEdges(e.snap.Layout.Index, *e.scan)
		ids = resolvedTargets(e.snap, e.scan.Targets)
	}
	e.nav.SetNavigable(e.snap, ids)

	if id, ok := e.nav.Selected(); ok {
		if p, ok := e.snap.Point(id); ok && e.nav.PendingToken() == "" {
			e.overlay.Track(id, p.Display)
		}
	}
}

func resolvedTargets(snap kb.Snapshot, targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, ok := snap.Point(t); !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		ids = append(ids, t)
	}
	return ids
}

func (e *Engine) onFlightStarted(f camera.Flight) {
	e.opts.Metrics.IncFlight(f.Band)
	e.rot.Interrupt(rotation.ReasonNavigation)
	if f.EntityID != "" {
		e.overlay.Clear()
	} else {
		e.overlay.Suspend()
	}
}

func (e *Engine) onCommitted(id string, _ int, flown bool) {
	if flown {
		e.opts.Metrics.IncFlightSettled()
	}
	if p, ok := e.snap.Point(id); ok {
		e.overlay.Track(id, p.Display)
	}
	e.publish(time.Time{}, true)
}

func (e *Engine) onSelectionCleared() {
	e.overlay.Clear()
	e.publish(time.Time{}, true)
}

func (e *Engine) onCenterSettled() {
	e.overlay.Resume()
}

func (e *Engine) onCameraChange(change camera.Change) {
	e.rot.OnCameraChange(change)
	if change.Origin != camera.OriginUser || !e.nav.Abandon() {
		return
	}
	// The user took the camera mid-flight.
	e.reattachOverlay()
}

// reattachOverlay points the overlay back at the last committed selection
// after a flight was abandoned.
func (e *Engine) reattachOverlay() {
	if id, ok := e.nav.Selected(); ok {
		if p, ok := e.snap.Point(id); ok {
			e.overlay.Track(id, p.Display)
			return
		}
	}
	e.overlay.Clear()
}

func (e *Engine) currentState() State {
	report := e.snap.Layout.Report
	st := State{
		Version:        e.snap.Version,
		LayoutRevision: e.revision,
		Entities:       len(e.snap.Layout.Entities),
		Clusters:       len(e.snap.Layout.Clusters),
		Dropped:        report.Dropped(),
		Navigation:     e.nav.State(),
		Rotation:       e.rot.State().String(),
		Overlay:        e.overlay.Status(),
		Camera: CameraState{
			Center:  e.surface.Center(),
			Zoom:    e.surface.Zoom(),
			Bearing: e.surface.Bearing(),
		},
	}
	if e.scan != nil {
		st.Scan = ScanState{
			Active:    true,
			Reference: e.scan.Reference,
			Targets:   len(e.nav.Navigable()),
			Edges:     len(e.scanEdges),
		}
	}
	return st
}

// publish stores the state for readers and forwards it to the Publish hook.
// force publishes discrete changes immediately; continuous motion is
// forwarded at most once per PublishInterval.
func (e *Engine) publish(now time.Time, force bool) {
	st := e.currentState()

	e.mu.Lock()
	e.state = st
	if e.layout.Revision != e.revision {
		e.layout = LayoutView{
			Version:   e.snap.Version,
			Revision:  e.revision,
			Points:    e.snap.Layout.Points,
			Edges:     e.snap.Layout.Edges,
			ScanEdges: e.scanEdges,
		}
	}
	e.mu.Unlock()

	if e.opts.Publish == nil || st == e.lastPublished {
		return
	}
	if !force && st.discrete() == e.lastPublished.discrete() {
		if now.IsZero() || now.Sub(e.lastPublishAt) < e.opts.PublishInterval {
			return
		}
	}
	e.lastPublished = st
	if !now.IsZero() {
		e.lastPublishAt = now
	}
	e.opts.Publish(st)
}
