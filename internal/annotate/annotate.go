// Package annotate draws color-coded cluster markers onto a copy of the
// source drawing.
package annotate

import (
	"github.com/sells-group/addrcluster/internal/classify"
	"github.com/sells-group/addrcluster/internal/cluster"
	"github.com/sells-group/addrcluster/internal/dxf"
	"github.com/sells-group/addrcluster/internal/model"
)

// MarkerRadius is the radius of every marker circle in drawing units.
const MarkerRadius = 0.5

// ACI color numbers per bucket.
const (
	ColorHouse     = 7  // white
	ColorApartment = 30 // orange
	ColorBuilding  = 3  // green
)

// r12 is the last release without entity handles or subclass markers.
const r12 = "AC1009"

// Options controls marker placement.
type Options struct {
	Layer string // default "0"
}

// Color returns the marker color for a bucket.
func Color(b classify.Bucket) int {
	switch b {
	case classify.Apartment:
		return ColorApartment
	case classify.Building:
		return ColorBuilding
	default:
		return ColorHouse
	}
}

// Annotate returns a copy of doc with one CIRCLE per joined point, colored
// by the bucket of the point's cluster. doc is not modified.
func Annotate(doc *dxf.Document, points []model.JoinedPoint, a cluster.Assignment, opts Options) *dxf.Document {
	out := doc.Clone()
	if len(points) == 0 {
		return out
	}
	if opts.Layer == "" {
		opts.Layer = "0"
	}

	var (
		handles []string
		owner   string
	)
	if v := out.Version(); v != "" && v > r12 {
		handles, _ = out.ReserveHandles(len(points))
		owner, _ = out.ModelSpaceHandle()
	}

	sizes := a.Sizes()
	markers := make([]dxf.Entity, 0, len(points))
	for i, p := range points {
		size := 1
		if i < len(a.IDs) && a.IDs[i] >= 0 {
			size = sizes[a.IDs[i]]
		}
		h := ""
		if i < len(handles) {
			h = handles[i]
		}
		markers = append(markers, circle(p, Color(classify.BucketOf(size)), opts.Layer, h, owner))
	}
	out.AppendEntities(markers...)
	return out
}

// circle builds a marker. Handle, owner and subclass markers are written
// only when handle is set.
func circle(p model.JoinedPoint, color int, layer, handle, owner string) dxf.Entity {
	var pairs []dxf.Pair
	if handle != "" {
		pairs = append(pairs, dxf.Pair{Code: 5, Value: handle})
		if owner != "" {
			pairs = append(pairs, dxf.Pair{Code: 330, Value: owner})
		}
		pairs = append(pairs, dxf.Pair{Code: 100, Value: "AcDbEntity"})
	}
	pairs = append(pairs,
		dxf.Pair{Code: 8, Value: layer},
		dxf.Pair{Code: 62, Value: dxf.Str(float64(color))},
	)
	if handle != "" {
		pairs = append(pairs, dxf.Pair{Code: 100, Value: "AcDbCircle"})
	}
	pairs = append(pairs,
		dxf.Pair{Code: 10, Value: dxf.Str(p.X)},
		dxf.Pair{Code: 20, Value: dxf.Str(p.Y)},
		dxf.Pair{Code: 30, Value: "0"},
		dxf.Pair{Code: 40, Value: dxf.Str(MarkerRadius)},
	)
	return dxf.NewEntity("CIRCLE", pairs...)
}
