package core

import (
	"fmt"

	"github.com/signalsfoundry/peerglobe/model"
)

const (
	// Clusters in this size range also get ring edges so they read as a small mesh.
	minRingEdgeCluster = 3
	maxRingEdgeCluster = 7
)

// ClusterEdges derives hub and ring edges inside every multi-member cluster.
// Points must come from Layout; the ring center is the point on ring 0.
func ClusterEdges(points []model.LayoutPoint) []model.ConnectionEdge {
	var order []string
	byKey := make(map[string][]model.LayoutPoint)
	for _, p := range points {
		if p.ClusterSize <= 1 {
			continue
		}
		if _, ok := byKey[p.ClusterKey]; !ok {
			order = append(order, p.ClusterKey)
		}
		byKey[p.ClusterKey] = append(byKey[p.ClusterKey], p)
	}

	var edges []model.ConnectionEdge
	for _, key := range order {
		members := byKey[key]

		var center *model.LayoutPoint
		spokes := make([]model.LayoutPoint, 0, len(members))
		for i := range members {
			if members[i].Ring == 0 && center == nil {
				center = &members[i]
				continue
			}
			spokes = append(spokes, members[i])
		}
		if center == nil || len(spokes) == 0 {
			continue
		}

		for _, m := range spokes {
			edges = append(edges, model.ConnectionEdge{
				ID:             fmt.Sprintf("hub-%s-%s", key, m.EntityID),
				From:           center.Display,
				To:             m.Display,
				Kind:           model.EdgeHub,
				TargetEntityID: m.EntityID,
			})
		}

		size := len(members)
		if size < minRingEdgeCluster || size > maxRingEdgeCluster {
			continue
		}
		for i, m := range spokes {
			next := spokes[(i+1)%len(spokes)]
			edges = append(edges, model.ConnectionEdge{
				ID:             fmt.Sprintf("ring-%s-%d", key, i),
				From:           m.Display,
				To:             next.Display,
				Kind:           model.EdgeRing,
				TargetEntityID: next.EntityID,
			})
		}
	}
	return edges
}

// ScanEdges draws one radial edge from the scan reference to each target's
// display coordinate. Targets without a layout point are skipped. Edge IDs
// include the target's position in the payload so duplicates stay unique.
func ScanEdges(index map[string]model.LayoutPoint, scan model.ScanPayload) []model.ConnectionEdge {
	edges := make([]model.ConnectionEdge, 0, len(scan.Targets))
	for i, id := range scan.Targets {
		p, ok := index[id]
		if !ok {
			continue
		}
		edges = append(edges, model.ConnectionEdge{
			ID:             fmt.Sprintf("scan-%d-%s", i, id),
			From:           scan.Reference,
			To:             p.Display,
			Kind:           model.EdgeScan,
			TargetEntityID: id,
		})
	}
	return edges
}

// IndexPoints maps entity IDs to their layout points.
func IndexPoints(points []model.LayoutPoint) map[string]model.LayoutPoint {
	index := make(map[string]model.LayoutPoint, len(points))
	for _, p := range points {
		index[p.EntityID] = p
	}
	return index
}
