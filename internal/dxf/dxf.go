// Package dxf reads and writes ASCII DXF drawings as an ordered list of
// group-code pairs. Pairs that are not touched are written back unchanged,
// so entities this package knows nothing about survive a round trip.
package dxf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrcluster/internal/model"
)

const binarySentinel = "AutoCAD Binary DXF"

// Pair is one group code and its value line.
type Pair struct {
	Code  int
	Value string
}

// Document is a parsed DXF drawing.
type Document struct {
	pairs []Pair
	crlf  bool
}

// ReadFile parses the DXF file at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dxf: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Parse(f)
}

// Parse reads an ASCII DXF document. Any structural problem is reported
// as model.ErrMalformedDrawing.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dxf: read")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed("empty document")
	}
	if bytes.HasPrefix(data, []byte(binarySentinel)) {
		return nil, malformed("binary DXF is not supported")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	lines := strings.Split(string(data), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines)%2 != 0 {
		return nil, malformed("dangling group code at line %d", len(lines))
	}

	doc := &Document{
		pairs: make([]Pair, 0, len(lines)/2),
		crlf:  bytes.Contains(data, []byte("\r\n")),
	}
	for i := 0; i < len(lines); i += 2 {
		codeLine := strings.TrimSpace(lines[i])
		code, err := strconv.Atoi(codeLine)
		if err != nil {
			return nil, malformed("line %d: invalid group code %q", i+1, codeLine)
		}
		doc.pairs = append(doc.pairs, Pair{Code: code, Value: strings.TrimSuffix(lines[i+1], "\r")})
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func malformed(format string, args ...any) error {
	return eris.Wrapf(model.ErrMalformedDrawing, "dxf: "+format, args...)
}

// validate checks SECTION/ENDSEC nesting and the terminating EOF.
func (d *Document) validate() error {
	inSection := false
	for i, p := range d.pairs {
		if p.Code != 0 {
			continue
		}
		switch strings.TrimSpace(p.Value) {
		case "SECTION":
			if inSection {
				return malformed("pair %d: nested SECTION", i)
			}
			if i+1 >= len(d.pairs) || d.pairs[i+1].Code != 2 {
				return malformed("pair %d: SECTION without name", i)
			}
			inSection = true
		case "ENDSEC":
			if !inSection {
				return malformed("pair %d: ENDSEC without SECTION", i)
			}
			inSection = false
		case "EOF":
			if inSection {
				return malformed("pair %d: EOF inside section", i)
			}
			if i != len(d.pairs)-1 {
				return malformed("pair %d: data after EOF", i)
			}
			return nil
		}
	}
	return malformed("missing EOF")
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	pairs := make([]Pair, len(d.pairs))
	copy(pairs, d.pairs)
	return &Document{pairs: pairs, crlf: d.crlf}
}

// Len returns the number of group-code pairs.
func (d *Document) Len() int {
	return len(d.pairs)
}

func isMarker(p Pair, name string) bool {
	return p.Code == 0 && strings.TrimSpace(p.Value) == name
}

// section returns the half-open pair range holding the body of the named
// section, excluding the SECTION/name pairs and the ENDSEC marker.
func (d *Document) section(name string) (start, end int, ok bool) {
	for i := 0; i+1 < len(d.pairs); i++ {
		if !isMarker(d.pairs[i], "SECTION") || d.pairs[i+1].Code != 2 ||
			!strings.EqualFold(strings.TrimSpace(d.pairs[i+1].Value), name) {
			continue
		}
		for j := i + 2; j < len(d.pairs); j++ {
			if isMarker(d.pairs[j], "ENDSEC") {
				return i + 2, j, true
			}
		}
	}
	return 0, 0, false
}

// records splits a section body into code-0 delimited records.
func (d *Document) records(name string) []Entity {
	start, end, ok := d.section(name)
	if !ok {
		return nil
	}

	var out []Entity
	for i := start; i < end; i++ {
		p := d.pairs[i]
		if p.Code == 0 {
			out = append(out, Entity{Type: strings.TrimSpace(p.Value)})
			continue
		}
		if len(out) == 0 {
			continue
		}
		last := &out[len(out)-1]
		last.Pairs = append(last.Pairs, p)
	}
	return out
}

// Entities returns the records of the ENTITIES section in stored order.
func (d *Document) Entities() []Entity {
	return d.records("ENTITIES")
}

// headerIndex returns the index of the first value pair of a header
// variable, or -1.
func (d *Document) headerIndex(name string) int {
	start, end, ok := d.section("HEADER")
	if !ok {
		return -1
	}
	for i := start; i+1 < end; i++ {
		if d.pairs[i].Code == 9 && strings.TrimSpace(d.pairs[i].Value) == name {
			return i + 1
		}
	}
	return -1
}

// HeaderVar returns the first value pair of a header variable such as
// $ACADVER.
func (d *Document) HeaderVar(name string) (Pair, bool) {
	idx := d.headerIndex(name)
	if idx < 0 {
		return Pair{}, false
	}
	return d.pairs[idx], true
}

// Version returns the $ACADVER value, e.g. AC1009 for R12.
func (d *Document) Version() string {
	p, ok := d.HeaderVar("$ACADVER")
	if !ok {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

// ModelSpaceHandle returns the handle of the *Model_Space block record.
func (d *Document) ModelSpaceHandle() (string, bool) {
	for _, rec := range d.records("TABLES") {
		if rec.Type != "BLOCK_RECORD" {
			continue
		}
		if name, _ := rec.Value(2); !strings.EqualFold(strings.TrimSpace(name), "*Model_Space") {
			continue
		}
		if h, ok := rec.Value(5); ok {
			return strings.TrimSpace(h), true
		}
	}
	return "", false
}

// ReserveHandles allocates n consecutive handles from $HANDSEED and
// advances the seed. It returns false when the drawing tracks no handles.
func (d *Document) ReserveHandles(n int) ([]string, bool) {
	idx := d.headerIndex("$HANDSEED")
	if idx < 0 {
		return nil, false
	}
	seed, err := strconv.ParseUint(strings.TrimSpace(d.pairs[idx].Value), 16, 64)
	if err != nil {
		return nil, false
	}

	handles := make([]string, n)
	for i := range handles {
		handles[i] = strings.ToUpper(strconv.FormatUint(seed+uint64(i), 16))
	}
	d.pairs[idx].Value = strings.ToUpper(strconv.FormatUint(seed+uint64(n), 16))
	return handles, true
}

// AppendEntities adds entities at the end of the ENTITIES section,
// creating the section when the drawing has none.
func (d *Document) AppendEntities(ents ...Entity) {
	if len(ents) == 0 {
		return
	}

	var add []Pair
	for _, e := range ents {
		add = append(add, Pair{Code: 0, Value: e.Type})
		add = append(add, e.Pairs...)
	}

	at, ok := d.entitiesEnd()
	if !ok {
		at = d.newSectionIndex()
		body := append([]Pair{{Code: 0, Value: "SECTION"}, {Code: 2, Value: "ENTITIES"}}, add...)
		add = append(body, Pair{Code: 0, Value: "ENDSEC"})
	}

	pairs := make([]Pair, 0, len(d.pairs)+len(add))
	pairs = append(pairs, d.pairs[:at]...)
	pairs = append(pairs, add...)
	pairs = append(pairs, d.pairs[at:]...)
	d.pairs = pairs
}

func (d *Document) entitiesEnd() (int, bool) {
	_, end, ok := d.section("ENTITIES")
	return end, ok
}

// newSectionIndex is where a missing ENTITIES section goes: before OBJECTS
// when present, otherwise before EOF.
func (d *Document) newSectionIndex() int {
	if start, _, ok := d.section("OBJECTS"); ok {
		return start - 2
	}
	return len(d.pairs) - 1
}

// WriteTo writes the document in ASCII DXF form.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	eol := "\n"
	if d.crlf {
		eol = "\r\n"
	}

	bw := bufio.NewWriter(w)
	var total int64
	for _, p := range d.pairs {
		n, err := fmt.Fprintf(bw, "%3d%s%s%s", p.Code, eol, p.Value, eol)
		total += int64(n)
		if err != nil {
			return total, eris.Wrap(err, "dxf: write")
		}
	}
	if err := bw.Flush(); err != nil {
		return total, eris.Wrap(err, "dxf: flush")
	}
	return total, nil
}

// Bytes returns the encoded document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// WriteFile writes the document to a new file at path.
func (d *Document) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dxf: create %s", path)
	}
	if _, err := d.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "dxf: close")
}
