// Package geo provides the spatial join between boundary polygons and
// address points, and the radius index used for proximity clustering.
package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/addrcluster/internal/boundary"
	"github.com/sells-group/addrcluster/internal/model"
)

// ring is a boundary polygon prepared for repeated containment tests.
type ring struct {
	index  int
	bounds *geom.Bounds
	flat   []float64
}

func (r ring) intersects(c geom.Coord) bool {
	return r.bounds.OverlapsPoint(geom.XY, c) && xy.IsPointInRing(geom.XY, c, r.flat)
}

func prepare(set boundary.Set) []ring {
	rings := make([]ring, 0, len(set))
	for _, p := range set {
		if p.Geom == nil || p.Geom.NumLinearRings() == 0 {
			continue
		}
		rings = append(rings, ring{
			index:  p.Index,
			bounds: p.Geom.Bounds(),
			flat:   p.Geom.LinearRing(0).FlatCoords(),
		})
	}
	return rings
}

// Join returns the points that intersect at least one polygon, in input
// order. Points on an edge or vertex intersect. Each point keeps only the
// first polygon it matched.
func Join(set boundary.Set, points []model.AddressPoint) []model.JoinedPoint {
	if len(set) == 0 || len(points) == 0 {
		return nil
	}

	rings := prepare(set)
	var out []model.JoinedPoint
	for _, p := range points {
		c := geom.Coord{p.X, p.Y}
		for _, r := range rings {
			if r.intersects(c) {
				out = append(out, model.JoinedPoint{AddressPoint: p, Polygon: r.index})
				break
			}
		}
	}
	return out
}
