package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/addrcluster/internal/model"
)

// ReadCSVFile opens and reads a CSV dataset.
func ReadCSVFile(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(f, opts)
}

// ReadCSV reads a CSV dataset with a header row. A leading UTF-8 BOM is
// always honored; otherwise bytes are decoded per opts.Encoding.
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, dec))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Wrap(model.ErrInvalidRecord, "dataset: missing header row")
	}
	if err != nil {
		return nil, eris.Wrapf(model.ErrInvalidRecord, "dataset: read header: %v", err)
	}
	s, err := newSchema(header, opts)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{HasDistrict: s.hasDistrict()}
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(model.ErrInvalidRecord, "dataset: row %d: %v", row+1, err)
		}
		p, err := s.point(row, record)
		if err != nil {
			return nil, err
		}
		ds.Points = append(ds.Points, p)
	}
	return ds, nil
}

func decoder(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(transform.Nop), nil
	case "big5", "cp950":
		return unicode.BOMOverride(traditionalchinese.Big5.NewDecoder()), nil
	default:
		return nil, eris.Errorf("dataset: unsupported encoding %q", encoding)
	}
}
