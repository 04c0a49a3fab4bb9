// Package dataset loads address point datasets from CSV and XLSX files.
package dataset

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrcluster/internal/model"
)

// Options selects columns and decoding for a dataset.
type Options struct {
	XColumn        string
	YColumn        string
	DistrictColumn string // empty: no district column
	Encoding       string // "utf-8" (default) or "big5"; CSV only
	Delimiter      rune   // default ','
	Sheet          string // XLSX sheet name; default first sheet
}

// DefaultOptions returns options for the standard X/Y column layout.
func DefaultOptions() Options {
	return Options{XColumn: "X", YColumn: "Y", Encoding: "utf-8", Delimiter: ','}
}

// Dataset is an ordered address point sequence. Row order is significant:
// it decides cluster anchor priority downstream.
type Dataset struct {
	Source      string
	Points      []model.AddressPoint
	HasDistrict bool // every point carries a district code
}

// Len returns the number of points.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Points)
}

// LoadFile picks the reader from the file extension.
func LoadFile(path string, opts Options) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		ds, err = ReadCSVFile(path, opts)
	case ".xlsx":
		ds, err = ReadXLSX(path, opts)
	default:
		return nil, eris.Errorf("dataset: unsupported dataset file %s", path)
	}
	if err != nil {
		return nil, err
	}
	ds.Source = path
	return ds, nil
}

// schema holds the resolved column positions. The district branch is
// decided here once, not per row.
type schema struct {
	x, y     int
	district int // -1 when absent
	xName    string
	yName    string
}

func newSchema(header []string, opts Options) (schema, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
				return i
			}
		}
		return -1
	}

	s := schema{
		x:        find(opts.XColumn),
		y:        find(opts.YColumn),
		district: -1,
		xName:    opts.XColumn,
		yName:    opts.YColumn,
	}
	if s.x < 0 || s.y < 0 {
		return s, eris.Wrapf(model.ErrInvalidRecord, "dataset: header must contain %q and %q columns", opts.XColumn, opts.YColumn)
	}

	if opts.DistrictColumn != "" {
		s.district = find(opts.DistrictColumn)
		if s.district < 0 {
			zap.L().Warn("dataset: district column not found, aggregating as a single district",
				zap.String("column", opts.DistrictColumn),
			)
		}
	}
	return s, nil
}

func (s schema) hasDistrict() bool {
	return s.district >= 0
}

// point converts one data row. row is the 0-based data row index.
func (s schema) point(row int, record []string) (model.AddressPoint, error) {
	x, err := s.coord(row, record, s.x, s.xName)
	if err != nil {
		return model.AddressPoint{}, err
	}
	y, err := s.coord(row, record, s.y, s.yName)
	if err != nil {
		return model.AddressPoint{}, err
	}

	p := model.AddressPoint{Row: row, X: x, Y: y}
	if s.hasDistrict() && s.district < len(record) {
		p.District = strings.TrimSpace(record[s.district])
	}
	return p, nil
}

func (s schema) coord(row int, record []string, idx int, name string) (float64, error) {
	if idx >= len(record) {
		return 0, eris.Wrapf(model.ErrInvalidRecord, "dataset: row %d: missing column %s", row+1, name)
	}
	raw := strings.TrimSpace(record[idx])
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Wrapf(model.ErrInvalidRecord, "dataset: row %d column %s: %q is not a coordinate", row+1, name, raw)
	}
	return f, nil
}

// fromRows builds a dataset from a header row followed by data rows.
func fromRows(rows [][]string, opts Options) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, eris.Wrap(model.ErrInvalidRecord, "dataset: missing header row")
	}
	s, err := newSchema(rows[0], opts)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Points: make([]model.AddressPoint, 0, len(rows)-1), HasDistrict: s.hasDistrict()}
	for i, record := range rows[1:] {
		p, err := s.point(i, record)
		if err != nil {
			return nil, err
		}
		ds.Points = append(ds.Points, p)
	}
	return ds, nil
}
