// Package boundary extracts closed boundary polygons from drawings and
// shapefiles.
package boundary

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/addrcluster/internal/dxf"
)

// Polygon is one closed boundary ring, kept verbatim from its source.
type Polygon struct {
	Index   int    // position in the Set
	Ordinal int    // entity position in ENTITIES, or shapefile record number
	Source  string // entity type or "shp"
	Geom    *geom.Polygon
}

// Set is the ordered collection of boundary polygons for one run.
type Set []Polygon

// Load reads boundaries from a .dxf, .shp or zipped shapefile.
func Load(path string) (Set, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		doc, err := dxf.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return Extract(doc)
	case ".shp":
		return FromShapefile(path)
	case ".zip":
		return FromArchive(path)
	default:
		return nil, eris.Errorf("boundary: unsupported boundary file %s", path)
	}
}

// newPolygon closes the ring when the last vertex differs from the first
// and returns nil for rings with fewer than three vertices.
func newPolygon(coords [][2]float64) *geom.Polygon {
	if len(coords) > 1 && coords[0] == coords[len(coords)-1] {
		coords = coords[:len(coords)-1]
	}
	if len(coords) < 3 {
		return nil
	}

	flat := make([]float64, 0, (len(coords)+1)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	flat = append(flat, coords[0][0], coords[0][1])

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

func (s Set) push(source string, g *geom.Polygon, ordinal int) Set {
	return append(s, Polygon{Index: len(s), Ordinal: ordinal, Source: source, Geom: g})
}
