package core

import "github.com/signalsfoundry/peerglobe/model"

// LayoutOptions bundles the knobs of the normalise → group → layout pipeline.
type LayoutOptions struct {
	ClusterPrecision int
	Ring             RingOptions
}

// DefaultLayoutOptions returns ~100 m clustering and the default ring packing.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{ClusterPrecision: DefaultClusterPrecision, Ring: DefaultRingOptions()}
}

// LayoutResult is everything derived from one entity list.
type LayoutResult struct {
	Entities []model.Entity
	Report   NormalizeReport
	Clusters []Cluster
	Points   []model.LayoutPoint
	Index    map[string]model.LayoutPoint
	Edges    []model.ConnectionEdge
}

// BuildLayout runs the full pipeline over a raw entity list.
func BuildLayout(raw []model.Entity, opts LayoutOptions) LayoutResult {
	entities, report := Normalize(raw)
	clusters := Group(entities, opts.ClusterPrecision)
	points := Layout(clusters, opts.Ring)
	return LayoutResult{
		Entities: entities,
		Report:   report,
		Clusters: clusters,
		Points:   points,
		Index:    IndexPoints(points),
		Edges:    ClusterEdges(points),
	}
}

// EntityIDs returns the IDs of the normalised entities in input order.
func (r LayoutResult) EntityIDs() []string {
	ids := make([]string, len(r.Entities))
	for i, e := range r.Entities {
		ids[i] = e.ID
	}
	return ids
}
