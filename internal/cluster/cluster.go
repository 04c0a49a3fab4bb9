// Package cluster groups joined address points into structures by
// proximity.
package cluster

import (
	"github.com/paulmach/orb"

	"github.com/sells-group/addrcluster/internal/geo"
	"github.com/sells-group/addrcluster/internal/model"
)

// DefaultRadius is the grouping distance in drawing units.
const DefaultRadius = 0.17

// Unassigned marks a point that has no cluster yet.
const Unassigned = -1

// Assignment maps every point to a cluster id. IDs are dense, starting at
// zero, in the order their anchors appear.
type Assignment struct {
	IDs     []int // cluster id per point, parallel to the input
	Anchors []int // anchor point index per cluster id
}

// Len returns the number of clusters.
func (a Assignment) Len() int {
	return len(a.Anchors)
}

// Sizes returns the member count per cluster id.
func (a Assignment) Sizes() []int {
	sizes := make([]int, len(a.Anchors))
	for _, id := range a.IDs {
		if id >= 0 && id < len(sizes) {
			sizes[id]++
		}
	}
	return sizes
}

// Members returns the point indices of each cluster, in input order.
func (a Assignment) Members() [][]int {
	members := make([][]int, len(a.Anchors))
	for i, id := range a.IDs {
		if id >= 0 && id < len(members) {
			members[id] = append(members[id], i)
		}
	}
	return members
}

// Assign runs a single pass over points in order. An unassigned point
// becomes the anchor of a new cluster, and every point within radius of it
// (inclusive) takes that cluster, overwriting any earlier cluster. Earlier
// anchors are never overwritten: a point within radius of an anchor was
// assigned when that anchor ran.
func Assign(points []model.JoinedPoint, radius float64) Assignment {
	if len(points) == 0 {
		return Assignment{}
	}

	coords := make([]orb.Point, len(points))
	for i, p := range points {
		coords[i] = orb.Point{p.X, p.Y}
	}
	idx := geo.NewIndex(coords)

	ids := make([]int, len(points))
	for i := range ids {
		ids[i] = Unassigned
	}

	var anchors []int
	for i := range points {
		if ids[i] != Unassigned {
			continue
		}
		id := len(anchors)
		anchors = append(anchors, i)
		ids[i] = id
		for _, j := range idx.Within(coords[i], radius) {
			ids[j] = id
		}
	}

	return Assignment{IDs: ids, Anchors: anchors}
}
