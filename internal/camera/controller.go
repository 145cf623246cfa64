package camera

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/model"
)

// Layout is the read side of the current layout the controller navigates.
// kb.Snapshot satisfies it.
type Layout interface {
	Point(id string) (model.LayoutPoint, bool)
	Lookup(identifier string) (string, bool)
}

// Hooks let the host react to navigation. Any of them may be nil.
type Hooks struct {
	// FlightStarted runs before the surface is asked to fly.
	FlightStarted func(f Flight)
	// Committed runs when the selection changes to entityID, either because
	// a flight settled (flown) or through Select. index is -1 when the
	// entity is not navigable.
	Committed func(entityID string, index int, flown bool)
	// SelectionCleared runs whenever a selection is dropped.
	SelectionCleared func()
	// CenterSettled runs when a CenterOn flight settles.
	CenterSettled func()
}

// State is the externally visible navigation state.
type State struct {
	CurrentIndex     int    `json:"current_index"`
	Total            int    `json:"total"`
	SelectedEntityID string `json:"selected_entity_id,omitempty"`
	InFlight         bool   `json:"in_flight"`
	FlightBand       string `json:"flight_band,omitempty"`
}

type pendingFlight struct {
	token    string
	entityID string // empty for CenterOn
	band     string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for navigation decisions.
func WithLogger(log logging.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHooks installs host callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// WithPlanner overrides the flight planning configuration.
func WithPlanner(p PlannerConfig) Option {
	return func(c *Controller) { c.plan = p }
}

// WithTokenSource overrides flight token generation.
func WithTokenSource(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newToken = fn
		}
	}
}

// Controller tracks the navigable entity list and the current selection, and
// turns navigation requests into directed camera flights. Selection is only
// committed once the flight for the latest request settles.
//
// Controller is not safe for concurrent use; the engine goroutine owns it.
type Controller struct {
	surface  Surface
	plan     PlannerConfig
	log      logging.Logger
	hooks    Hooks
	newToken func() string

	layout    Layout
	navigable []string
	position  map[string]int

	current  int
	selected string
	pending  *pendingFlight
}

// NewController returns a controller driving surface.
func NewController(surface Surface, opts ...Option) *Controller {
	c := &Controller{
		surface:  surface,
		plan:     DefaultPlannerConfig(),
		log:      logging.Noop(),
		newToken: uuid.NewString,
		position: map[string]int{},
		current:  -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the committed navigation state.
func (c *Controller) State() State {
	return State{
		CurrentIndex:     c.current,
		Total:            len(c.navigable),
		SelectedEntityID: c.selected,
		InFlight:         c.pending != nil,
		FlightBand:       c.pendingBand(),
	}
}

// Selected returns the committed selection, if any.
func (c *Controller) Selected() (string, bool) {
	return c.selected, c.selected != ""
}

// Navigable returns the navigable entity IDs in order.
func (c *Controller) Navigable() []string {
	return c.navigable
}

// PendingToken returns the token of the flight the controller is waiting on.
func (c *Controller) PendingToken() string {
	if c.pending == nil {
		return ""
	}
	return c.pending.token
}

func (c *Controller) pendingBand() string {
	if c.pending == nil {
		return ""
	}
	return c.pending.band
}

// SetNavigable replaces the layout and the ordered navigable list. The
// current selection survives when its entity is still navigable; otherwise it
// is cleared. It reports whether the selection was cleared.
func (c *Controller) SetNavigable(layout Layout, ids []string) bool {
	c.layout = layout
	c.navigable = append(c.navigable[:0:0], ids...)
	c.position = make(map[string]int, len(ids))
	for i, id := range c.navigable {
		if _, dup := c.position[id]; !dup {
			c.position[id] = i
		}
	}

	if c.pending != nil && c.pending.entityID != "" {
		if _, ok := c.point(c.pending.entityID); !ok {
			c.log.Debug(context.Background(), "dropping flight to vanished entity",
				logging.String("entity_id", c.pending.entityID))
			c.pending = nil
		}
	}

	if c.selected == "" {
		c.current = -1
		return false
	}
	if idx, ok := c.position[c.selected]; ok {
		c.current = idx
		return false
	}
	c.log.Debug(context.Background(), "selected entity left the navigable list",
		logging.String("entity_id", c.selected))
	c.clearSelection()
	return true
}

// NavigateTo flies to the entity at index in the navigable list. Out of
// range indexes and entities without a layout point are ignored.
func (c *Controller) NavigateTo(index int) bool {
	if index < 0 || index >= len(c.navigable) {
		return false
	}
	return c.flyToEntity(c.navigable[index])
}

// NavigateToEntity flies to an entity by ID, whether or not it is navigable.
func (c *Controller) NavigateToEntity(id string) bool {
	return c.flyToEntity(id)
}

// Next advances to the following entity, wrapping at the end.
func (c *Controller) Next() bool {
	return c.step(1)
}

// Previous moves to the preceding entity, wrapping at the start.
func (c *Controller) Previous() bool {
	return c.step(-1)
}

// NavigateByExternalID resolves identifier against entity IDs, keys and
// addresses and navigates to the match. A miss is a silent no-op.
func (c *Controller) NavigateByExternalID(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || c.layout == nil || len(c.navigable) == 0 {
		return false
	}
	id, ok := c.layout.Lookup(identifier)
	if !ok {
		c.log.Debug(context.Background(), "external navigation missed", logging.String("identifier", identifier))
		return false
	}
	return c.flyToEntity(id)
}

// CenterOn flies to an arbitrary coordinate without changing the selection.
func (c *Controller) CenterOn(coord model.Coordinate, zoom float64) string {
	if c.surface == nil {
		return ""
	}
	if zoom <= 0 {
		zoom = c.surface.Zoom()
	}
	flight := c.plan.PlanCenter(c.surface.Center(), c.surface.Bearing(), coord, zoom)
	return c.launch(flight, "")
}

// Select commits a selection immediately without moving the camera.
// Any flight in progress stops counting.
func (c *Controller) Select(id string) bool {
	if _, ok := c.point(id); !ok {
		return false
	}
	c.pending = nil
	c.commit(id, false)
	return true
}

// ClearSelection drops the current selection and any pending flight.
func (c *Controller) ClearSelection() {
	c.pending = nil
	if c.selected != "" {
		c.clearSelection()
	}
}

// Abandon forgets the pending flight without committing it, for example
// when the user grabs the camera mid-flight. It reports whether a flight
// was pending.
func (c *Controller) Abandon() bool {
	if c.pending == nil {
		return false
	}
	c.pending = nil
	return true
}

// Settled is called when the surface reports the flight identified by token
// as finished. Tokens other than the latest are ignored.
func (c *Controller) Settled(token string) bool {
	if c.pending == nil || c.pending.token != token {
		c.log.Debug(context.Background(), "ignoring stale flight", logging.String("token", token))
		return false
	}
	p := c.pending
	c.pending = nil

	if p.entityID == "" {
		if c.hooks.CenterSettled != nil {
			c.hooks.CenterSettled()
		}
		return true
	}
	if _, ok := c.point(p.entityID); !ok {
		return false
	}
	c.commit(p.entityID, true)
	return true
}

func (c *Controller) step(delta int) bool {
	n := len(c.navigable)
	if n == 0 {
		return false
	}
	base := c.current
	if c.pending != nil && c.pending.entityID != "" {
		if idx, ok := c.position[c.pending.entityID]; ok {
			base = idx
		}
	}
	if base < 0 {
		return c.NavigateTo(0)
	}
	next := ((base+delta)%n + n) % n
	return c.NavigateTo(next)
}

func (c *Controller) flyToEntity(id string) bool {
	if c.surface == nil || len(c.navigable) == 0 {
		return false
	}
	point, ok := c.point(id)
	if !ok {
		return false
	}
	flight := c.plan.Plan(c.surface.Center(), c.surface.Bearing(), point)
	c.launch(flight, id)
	return true
}

func (c *Controller) launch(flight Flight, entityID string) string {
	token := c.newToken()
	c.pending = &pendingFlight{token: token, entityID: entityID, band: flight.Band}

	if c.hooks.FlightStarted != nil {
		c.hooks.FlightStarted(flight)
	}
	c.log.Debug(context.Background(), "camera flight",
		logging.String("token", token),
		logging.String("entity_id", entityID),
		logging.String("band", flight.Band),
		logging.Float64("distance_km", flight.DistanceKm),
		logging.Duration("duration", flight.Command.Duration),
	)
	c.surface.FlyTo(flight.Command, func() { c.Settled(token) })
	return token
}

func (c *Controller) point(id string) (model.LayoutPoint, bool) {
	if c.layout == nil || id == "" {
		return model.LayoutPoint{}, false
	}
	return c.layout.Point(id)
}

func (c *Controller) commit(id string, flown bool) {
	c.selected = id
	idx, ok := c.position[id]
	if !ok {
		idx = -1
	}
	c.current = idx
	if c.hooks.Committed != nil {
		c.hooks.Committed(id, idx, flown)
	}
}

func (c *Controller) clearSelection() {
	c.selected = ""
	c.current = -1
	if c.hooks.SelectionCleared != nil {
		c.hooks.SelectionCleared()
	}
}
