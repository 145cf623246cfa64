package model

// LayoutPoint is an entity's true coordinate plus its deterministic display offset.
// Display is the only coordinate the camera and renderer consume.
type LayoutPoint struct {
	EntityID    string     `json:"entity_id"`
	True        Coordinate `json:"true"`
	Display     Coordinate `json:"display"`
	ClusterKey  string     `json:"cluster_key"`
	ClusterSize int        `json:"cluster_size"`

	// Ring and Slot locate the point inside its cluster bubble. Ring 0 is the center.
	Ring int `json:"ring"`
	Slot int `json:"slot"`
}

// EdgeKind classifies a ConnectionEdge.
type EdgeKind string

const (
	EdgeHub  EdgeKind = "hub"
	EdgeRing EdgeKind = "ring"
	EdgeScan EdgeKind = "scan"
)

// ConnectionEdge is a line drawn between two display coordinates.
type ConnectionEdge struct {
	ID             string     `json:"id"`
	From           Coordinate `json:"from"`
	To             Coordinate `json:"to"`
	Kind           EdgeKind   `json:"kind"`
	TargetEntityID string     `json:"target_entity_id"`
}

// ScanPayload draws radial connections from Reference to an ordered target subset.
type ScanPayload struct {
	Reference Coordinate `json:"reference"`
	Targets   []string   `json:"targets"`
}
