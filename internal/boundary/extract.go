package boundary

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrcluster/internal/dxf"
	"github.com/sells-group/addrcluster/internal/model"
)

// Polyline flag bits (group code 70).
const (
	flagClosed       = 1
	flagSplineVertex = 16 // on VERTEX: spline frame control point
	flag3DMesh       = 16 // on POLYLINE: polygon mesh
	flagPolyface     = 64
)

// Extract returns every closed LWPOLYLINE and POLYLINE in model space as a
// polygon, in stored order. Open polylines, paper-space entities, meshes
// and rings with fewer than three vertices are skipped.
func Extract(doc *dxf.Document) (Set, error) {
	log := zap.L().With(zap.String("component", "boundary.dxf"))

	var set Set
	var skipped int
	ents := doc.Entities()

	for i := 0; i < len(ents); i++ {
		e, ordinal := ents[i], i

		var (
			coords [][2]float64
			closed bool
			err    error
		)

		switch e.Type {
		case "LWPOLYLINE":
			coords, err = lwVertices(e)
			if err != nil {
				return nil, err
			}
			closed = e.Int(70)&flagClosed != 0

		case "POLYLINE":
			var next int
			coords, next, err = polylineVertices(ents, i)
			if err != nil {
				return nil, err
			}
			i = next
			if e.Int(70)&(flag3DMesh|flagPolyface) != 0 {
				skipped++
				continue
			}
			closed = e.Int(70)&flagClosed != 0

		default:
			continue
		}

		if e.Int(67) == 1 {
			skipped++
			continue
		}
		if !closed && (len(coords) < 2 || coords[0] != coords[len(coords)-1]) {
			log.Debug("skipping open polyline", zap.Int("entity", i), zap.String("type", e.Type))
			skipped++
			continue
		}

		poly := newPolygon(coords)
		if poly == nil {
			log.Debug("skipping degenerate ring", zap.Int("entity", i), zap.Int("vertices", len(coords)))
			skipped++
			continue
		}
		set = set.push(e.Type, poly, ordinal)
	}

	log.Debug("extracted boundaries", zap.Int("polygons", len(set)), zap.Int("skipped", skipped))
	return set, nil
}

// lwVertices reads the (10, 20) vertex pairs of an LWPOLYLINE.
func lwVertices(e dxf.Entity) ([][2]float64, error) {
	var coords [][2]float64
	for _, p := range e.Pairs {
		switch p.Code {
		case 10:
			x, err := parseCoord(e.Type, p)
			if err != nil {
				return nil, err
			}
			coords = append(coords, [2]float64{x, 0})
		case 20:
			if len(coords) == 0 {
				return nil, eris.Wrap(model.ErrMalformedDrawing, "boundary: LWPOLYLINE y coordinate before x")
			}
			y, err := parseCoord(e.Type, p)
			if err != nil {
				return nil, err
			}
			coords[len(coords)-1][1] = y
		}
	}
	return coords, nil
}

// polylineVertices reads the VERTEX records following the POLYLINE at
// ents[at]. It returns the index of the last record consumed.
func polylineVertices(ents []dxf.Entity, at int) ([][2]float64, int, error) {
	var coords [][2]float64
	j := at + 1
	for ; j < len(ents) && ents[j].Type == "VERTEX"; j++ {
		v := ents[j]
		if v.Int(70)&flagSplineVertex != 0 {
			continue
		}
		x, err := vertexCoord(v, 10)
		if err != nil {
			return nil, 0, err
		}
		y, err := vertexCoord(v, 20)
		if err != nil {
			return nil, 0, err
		}
		coords = append(coords, [2]float64{x, y})
	}
	if j < len(ents) && ents[j].Type == "SEQEND" {
		return coords, j, nil
	}
	return coords, j - 1, nil
}

func vertexCoord(v dxf.Entity, code int) (float64, error) {
	raw, ok := v.Value(code)
	if !ok {
		return 0, eris.Wrapf(model.ErrMalformedDrawing, "boundary: VERTEX missing group %d", code)
	}
	return parseCoord(v.Type, dxf.Pair{Code: code, Value: raw})
}

func parseCoord(typ string, p dxf.Pair) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
	if err != nil {
		return 0, eris.Wrapf(model.ErrMalformedDrawing, "boundary: %s group %d: invalid coordinate %q", typ, p.Code, p.Value)
	}
	return f, nil
}
