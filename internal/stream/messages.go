package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/peerglobe/model"
)

// Outbound message types.
const (
	TypeLayout = "layout"
	TypeState  = "state"
	TypeAck    = "ack"
	TypeError  = "error"
)

// Inbound request types.
const (
	RequestNavigate       = "navigate"
	RequestClickEntity    = "click_entity"
	RequestClickSurface   = "click_surface"
	RequestKey            = "key"
	RequestCenterOn       = "center_on"
	RequestClearSelection = "clear_selection"
	RequestOpenDetail     = "open_detail"
	RequestDrag           = "drag"
	RequestZoom           = "zoom"
)

const commandTimeout = 5 * time.Second

// ErrReadOnly is returned for requests on a hub without Commands.
var ErrReadOnly = errors.New("stream is read-only")

// Commands is the subset of engine commands reachable from the browser.
type Commands interface {
	ExternalNavigate(ctx context.Context, value string) (bool, error)
	ClickEntity(ctx context.Context, id string) (bool, error)
	ClickSurface(ctx context.Context) (bool, error)
	KeyPress(ctx context.Context, key string) (bool, error)
	CenterOn(ctx context.Context, c model.Coordinate, zoom float64) error
	ClearSelection(ctx context.Context) error
	OpenDetail(ctx context.Context) (bool, error)
	Drag(ctx context.Context, dLat, dLon float64) error
	Zoom(ctx context.Context, delta float64) error
}

// Envelope wraps every outbound message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Request is an inbound client event. Fields are read per Type.
type Request struct {
	Type      string  `json:"type"`
	RequestID string  `json:"request_id,omitempty"`
	Value     string  `json:"value,omitempty"`
	EntityID  string  `json:"entity_id,omitempty"`
	Key       string  `json:"key,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	Zoom      float64 `json:"zoom,omitempty"`
	Delta     float64 `json:"delta,omitempty"`
}

// Ack acknowledges a request that was applied.
type Ack struct {
	RequestID string `json:"request_id,omitempty"`
	Type      string `json:"type"`
	Changed   bool   `json:"changed"`
}

type errorReply struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

func encode(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: data})
}

func (h *Hub) dispatch(ctx context.Context, req Request) (Ack, error) {
	ack := Ack{RequestID: req.RequestID, Type: req.Type}
	if h.cmds == nil {
		return ack, ErrReadOnly
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var err error
	switch req.Type {
	case RequestNavigate:
		ack.Changed, err = h.cmds.ExternalNavigate(ctx, req.Value)
	case RequestClickEntity:
		ack.Changed, err = h.cmds.ClickEntity(ctx, req.EntityID)
	case RequestClickSurface:
		ack.Changed, err = h.cmds.ClickSurface(ctx)
	case RequestKey:
		ack.Changed, err = h.cmds.KeyPress(ctx, req.Key)
	case RequestCenterOn:
		err = h.cmds.CenterOn(ctx, model.Coordinate{Lat: req.Lat, Lon: req.Lon}, req.Zoom)
		ack.Changed = err == nil
	case RequestClearSelection:
		err = h.cmds.ClearSelection(ctx)
		ack.Changed = err == nil
	case RequestOpenDetail:
		ack.Changed, err = h.cmds.OpenDetail(ctx)
	case RequestDrag:
		err = h.cmds.Drag(ctx, req.Lat, req.Lon)
		ack.Changed = err == nil
	case RequestZoom:
		err = h.cmds.Zoom(ctx, req.Delta)
		ack.Changed = err == nil
	default:
		err = fmt.Errorf("unknown request type %q", req.Type)
	}
	return ack, err
}
