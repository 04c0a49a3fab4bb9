package geo

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
)

// Index answers closed-ball radius queries over a fixed point set. Build
// one per run; it is never shared.
type Index struct {
	tree *quadtree.Quadtree
	n    int
}

type entry struct {
	i int
	p orb.Point
}

func (e entry) Point() orb.Point { return e.p }

// NewIndex indexes pts by position in the slice.
func NewIndex(pts []orb.Point) *Index {
	bound := orb.MultiPoint(pts).Bound().Pad(1)
	tree := quadtree.New(bound)
	for i, p := range pts {
		// bound covers every point, so Add cannot fail
		_ = tree.Add(entry{i: i, p: p})
	}
	return &Index{tree: tree, n: len(pts)}
}

// Len returns the number of indexed points.
func (x *Index) Len() int {
	return x.n
}

// Within returns, in ascending order, the indices of every point whose
// distance to center is at most r.
func (x *Index) Within(center orb.Point, r float64) []int {
	if r < 0 || x.n == 0 {
		return nil
	}

	box := orb.Bound{
		Min: orb.Point{center[0] - r, center[1] - r},
		Max: orb.Point{center[0] + r, center[1] + r},
	}
	r2 := r * r

	var out []int
	for _, found := range x.tree.InBound(nil, box) {
		e := found.(entry)
		if planar.DistanceSquared(center, e.p) <= r2 {
			out = append(out, e.i)
		}
	}
	sort.Ints(out)
	return out
}
