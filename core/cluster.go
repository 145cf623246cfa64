package core

import (
	"math"
	"strconv"

	"github.com/signalsfoundry/peerglobe/model"
)

// DefaultClusterPrecision rounds to 3 decimal places, roughly 100 m of latitude.
const DefaultClusterPrecision = 3

// Cluster is a group of entities sharing an approximately identical coordinate.
// Members keep first-seen order; Members[0] is the ring center.
type Cluster struct {
	Key     string
	Members []model.Entity
}

// Size returns the current membership count.
func (c Cluster) Size() int { return len(c.Members) }

// ClusterKey rounds c to the given number of decimal places and renders it as "lat,lon".
func ClusterKey(c model.Coordinate, precision int) string {
	if precision < 0 {
		precision = 0
	}
	scale := math.Pow(10, float64(precision))
	// Adding 0 turns a rounded -0 into +0 so both sides of the equator share a key.
	lat := math.Round(c.Lat*scale)/scale + 0
	lon := math.Round(c.Lon*scale)/scale + 0
	return strconv.FormatFloat(lat, 'f', precision, 64) + "," + strconv.FormatFloat(lon, 'f', precision, 64)
}

// Group buckets already-normalised entities by cluster key. Clusters are
// returned in the order their first member was seen. Entities without a
// coordinate are skipped.
func Group(entities []model.Entity, precision int) []Cluster {
	index := make(map[string]int)
	var clusters []Cluster

	for _, e := range entities {
		coord, ok := e.Coordinate()
		if !ok {
			continue
		}
		key := ClusterKey(coord, precision)
		i, exists := index[key]
		if !exists {
			i = len(clusters)
			index[key] = i
			clusters = append(clusters, Cluster{Key: key})
		}
		clusters[i].Members = append(clusters[i].Members, e)
	}
	return clusters
}
