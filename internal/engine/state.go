package engine

import (
	"github.com/signalsfoundry/peerglobe/internal/camera"
	"github.com/signalsfoundry/peerglobe/internal/overlay"
	"github.com/signalsfoundry/peerglobe/model"
)

// State is the published, read-only view of the engine.
type State struct {
	Version uint64 `json:"version"`
	// LayoutRevision changes whenever Layout() would return something new,
	// including scan edge changes within one version.
	LayoutRevision uint64         `json:"layout_revision"`
	Entities       int            `json:"entities"`
	Clusters       int            `json:"clusters"`
	Dropped        int            `json:"dropped"`
	Navigation     camera.State   `json:"navigation"`
	Rotation       string         `json:"rotation"`
	Overlay        overlay.Status `json:"overlay"`
	Camera         CameraState    `json:"camera"`
	Scan           ScanState      `json:"scan"`
}

// CameraState is the surface camera at publish time.
type CameraState struct {
	Center  model.Coordinate `json:"center"`
	Zoom    float64          `json:"zoom"`
	Bearing float64          `json:"bearing"`
}

// ScanState summarises an active scan.
type ScanState struct {
	Active    bool             `json:"active"`
	Reference model.Coordinate `json:"reference"`
	Targets   int              `json:"targets"`
	Edges     int              `json:"edges"`
}

// LayoutView is the drawable layout: display points plus every edge.
type LayoutView struct {
	Version   uint64                 `json:"version"`
	Revision  uint64                 `json:"revision"`
	Points    []model.LayoutPoint    `json:"points"`
	Edges     []model.ConnectionEdge `json:"edges"`
	ScanEdges []model.ConnectionEdge `json:"scan_edges"`
}

// discrete strips the continuously moving parts so that state changes
// worth an immediate publish can be detected.
func (s State) discrete() State {
	s.Camera = CameraState{}
	s.Overlay.Anchor = model.ScreenPoint{}
	s.Overlay.Panel = model.ScreenPoint{}
	s.Overlay.GuidePath = ""
	return s
}
