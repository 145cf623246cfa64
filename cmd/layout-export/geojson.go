package main

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/signalsfoundry/peerglobe/core"
	"github.com/signalsfoundry/peerglobe/model"
)

// buildCollection emits one Point per layout point at its display coordinate
// and one LineString per edge.
func buildCollection(result core.LayoutResult, withEdges bool, scanEdges []model.ConnectionEdge) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, p := range result.Points {
		f := geojson.NewPointFeature(position(p.Display))
		f.ID = p.EntityID
		f.SetProperty("kind", "entity")
		f.SetProperty("entity_id", p.EntityID)
		f.SetProperty("cluster_key", p.ClusterKey)
		f.SetProperty("cluster_size", p.ClusterSize)
		f.SetProperty("ring", p.Ring)
		f.SetProperty("slot", p.Slot)
		f.SetProperty("true_lat", p.True.Lat)
		f.SetProperty("true_lon", p.True.Lon)
		fc.AddFeature(f)
	}

	var edges []model.ConnectionEdge
	if withEdges {
		edges = append(edges, result.Edges...)
	}
	edges = append(edges, scanEdges...)
	for _, e := range edges {
		f := geojson.NewLineStringFeature([][]float64{position(e.From), position(e.To)})
		f.ID = e.ID
		f.SetProperty("kind", string(e.Kind))
		f.SetProperty("target_entity_id", e.TargetEntityID)
		fc.AddFeature(f)
	}
	return fc
}

// GeoJSON positions are lon, lat.
func position(c model.Coordinate) []float64 {
	return []float64{c.Lon, c.Lat}
}
