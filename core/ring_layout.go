package core

import (
	"github.com/signalsfoundry/peerglobe/model"
)

// RingOptions tunes the polar-ring packing of a cluster bubble.
type RingOptions struct {
	// SpacingMeters is the radial distance between consecutive rings.
	SpacingMeters float64
	// TwistDegrees rotates ring k by k*TwistDegrees so slots on
	// neighbouring rings do not line up radially.
	TwistDegrees float64
}

// DefaultRingOptions returns the packing used by the dashboard.
func DefaultRingOptions() RingOptions {
	return RingOptions{SpacingMeters: 150, TwistDegrees: 15}
}

func (o RingOptions) withDefaults() RingOptions {
	def := DefaultRingOptions()
	if o.SpacingMeters <= 0 {
		o.SpacingMeters = def.SpacingMeters
	}
	return o
}

// Offset places one cluster member relative to its true coordinate.
type Offset struct {
	Ring           int
	Slot           int
	BearingDeg     float64
	DistanceMeters float64
}

// RingCapacity returns the number of slots on ring k: 1 for the center, 6k otherwise.
func RingCapacity(ring int) int {
	if ring <= 0 {
		return 1
	}
	return 6 * ring
}

// RingsFor returns how many rings (excluding the center) a cluster of n members occupies.
func RingsFor(n int) int {
	rings := 0
	remaining := n - 1
	for remaining > 0 {
		rings++
		remaining -= RingCapacity(rings)
	}
	return rings
}

// MaxPackingRadius is the largest offset any member of an n-member cluster can receive.
func MaxPackingRadius(n int, opts RingOptions) float64 {
	opts = opts.withDefaults()
	return float64(RingsFor(n)) * opts.SpacingMeters
}

// LayoutCluster computes the offsets for a cluster of n members in member order.
// It is a pure function: the same n and options always yield the same offsets.
// Member 0 stays at the center; the rest fill rings 1, 2, ... in turn, and the
// members of a partially filled ring are spread evenly around it.
func LayoutCluster(n int, opts RingOptions) []Offset {
	if n <= 0 {
		return nil
	}
	opts = opts.withDefaults()

	out := make([]Offset, 0, n)
	out = append(out, Offset{})

	remaining := n - 1
	for ring := 1; remaining > 0; ring++ {
		count := RingCapacity(ring)
		if remaining < count {
			count = remaining
		}
		step := 360.0 / float64(count)
		twist := float64(ring) * opts.TwistDegrees
		radius := float64(ring) * opts.SpacingMeters
		for slot := 0; slot < count; slot++ {
			out = append(out, Offset{
				Ring:           ring,
				Slot:           slot,
				BearingDeg:     NormalizeBearing(float64(slot)*step + twist),
				DistanceMeters: radius,
			})
		}
		remaining -= count
	}
	return out
}

// Layout assigns a LayoutPoint to every member of every cluster. A cluster of
// one keeps its true coordinate.
func Layout(clusters []Cluster, opts RingOptions) []model.LayoutPoint {
	total := 0
	for _, c := range clusters {
		total += c.Size()
	}
	points := make([]model.LayoutPoint, 0, total)

	for _, c := range clusters {
		offsets := LayoutCluster(c.Size(), opts)
		for i, member := range c.Members {
			coord, ok := member.Coordinate()
			if !ok {
				continue
			}
			off := offsets[i]
			points = append(points, model.LayoutPoint{
				EntityID:    member.ID,
				True:        coord,
				Display:     OffsetMeters(coord, off.BearingDeg, off.DistanceMeters),
				ClusterKey:  c.Key,
				ClusterSize: c.Size(),
				Ring:        off.Ring,
				Slot:        off.Slot,
			})
		}
	}
	return points
}
