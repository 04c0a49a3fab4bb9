package dxf

import (
	"strconv"
	"strings"
)

// Entity is one code-0 delimited record: its type marker and the pairs up
// to the next marker.
type Entity struct {
	Type  string
	Pairs []Pair
}

// NewEntity builds an entity from its type and pairs.
func NewEntity(typ string, pairs ...Pair) Entity {
	return Entity{Type: typ, Pairs: pairs}
}

// Value returns the first value stored under code.
func (e Entity) Value(code int) (string, bool) {
	for _, p := range e.Pairs {
		if p.Code == code {
			return p.Value, true
		}
	}
	return "", false
}

// Float returns the first value under code parsed as a float.
func (e Entity) Float(code int) (float64, bool) {
	v, ok := e.Value(code)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the first value under code parsed as an integer. A missing
// code reads as zero.
func (e Entity) Int(code int) int {
	v, ok := e.Value(code)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// Str formats a float the way group values are written.
func Str(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
