package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrcluster/internal/model"
)

// FromShapefile reads polygon records from a shapefile. Every part of a
// multi-part record becomes its own polygon.
func FromShapefile(path string) (Set, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrMalformedDrawing, "boundary: open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	var set Set
	var skipped int
	for reader.Next() {
		record, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok || p == nil {
			skipped++
			continue
		}
		for _, coords := range polygonParts(p) {
			poly := newPolygon(coords)
			if poly == nil {
				skipped++
				continue
			}
			set = set.push("shp", poly, record)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(model.ErrMalformedDrawing, "boundary: read shapefile %s: %v", path, err)
	}

	zap.L().Debug("boundary: shapefile loaded",
		zap.String("path", path),
		zap.Int("polygons", len(set)),
		zap.Int("skipped", skipped),
	)
	return set, nil
}

// polygonParts splits a shapefile polygon into its rings.
func polygonParts(p *shp.Polygon) [][][2]float64 {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	parts := make([][][2]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || start >= end {
			continue
		}

		coords := make([][2]float64, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, [2]float64{p.Points[j].X, p.Points[j].Y})
		}
		parts = append(parts, coords)
	}
	return parts
}
