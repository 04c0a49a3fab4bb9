package pipeline

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/addrcluster/internal/annotate"
	"github.com/sells-group/addrcluster/internal/classify"
	"github.com/sells-group/addrcluster/internal/dxf"
)

// Annotate returns a copy of doc with the run's markers added.
func (r *Result) Annotate(doc *dxf.Document, opts annotate.Options) *dxf.Document {
	return annotate.Annotate(doc, r.Joined, r.Assignment, opts)
}

// FeatureCollection returns one Point feature per joined point.
func (r *Result) FeatureCollection() *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(r.Joined))}
	sizes := r.Assignment.Sizes()

	for i, p := range r.Joined {
		id, size := -1, 0
		if i < len(r.Assignment.IDs) {
			id = r.Assignment.IDs[i]
			if id >= 0 {
				size = sizes[id]
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{p.X, p.Y}),
			Properties: map[string]any{
				"row":      p.Row,
				"cluster":  id,
				"size":     size,
				"bucket":   string(classify.BucketOf(size)),
				"district": p.District,
				"polygon":  p.Polygon,
			},
		})
	}
	return fc
}

// GeoJSON encodes FeatureCollection.
func (r *Result) GeoJSON() ([]byte, error) {
	data, err := json.Marshal(r.FeatureCollection())
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: encode geojson")
	}
	return data, nil
}
