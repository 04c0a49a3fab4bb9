// Package model defines the address points, joined points, and result
// records shared by the analysis pipeline and its collaborators.
package model

// AllDistricts is the implicit district code used when a dataset carries
// no district column.
const AllDistricts = "ALL"

// AddressPoint is one row of an address dataset.
type AddressPoint struct {
	Row      int     `json:"row"` // 0-based data row index in the source dataset
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	District string  `json:"district,omitempty"`
}

// JoinedPoint is an AddressPoint that intersects a boundary polygon.
type JoinedPoint struct {
	AddressPoint
	Polygon int `json:"polygon"` // index of the first matching polygon in the boundary set
}
