package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ResultRecord holds per-bucket unit and structure counts for one run.
// Units are address points; structures are clusters.
type ResultRecord struct {
	NumHouses             int            `json:"num_houses" yaml:"num_houses"`
	NumHouseBuildings     int            `json:"num_house_buildings" yaml:"num_house_buildings"`
	NumApartments         int            `json:"num_apartments" yaml:"num_apartments"`
	NumApartmentBuildings int            `json:"num_apartment_buildings" yaml:"num_apartment_buildings"`
	NumBuildings          int            `json:"num_buildings" yaml:"num_buildings"`
	NumBuildingStructures int            `json:"num_building_structures" yaml:"num_building_structures"`
	TotalHouses           int            `json:"total_houses" yaml:"total_houses"`
	TotalBuildings        int            `json:"total_buildings" yaml:"total_buildings"`
	Districts             []DistrictStat `json:"districts" yaml:"districts"`
}

// IsZero reports whether every count is zero and no district is listed.
func (r ResultRecord) IsZero() bool {
	return r.TotalHouses == 0 && r.TotalBuildings == 0 && len(r.Districts) == 0
}

// DistrictStat is the per-district rollup. Connected and Rate are set only
// after a connected-dataset pass has been merged.
type DistrictStat struct {
	District   string `json:"district" yaml:"district"`
	TotalUnits int    `json:"total_units" yaml:"total_units"`
	Structures int    `json:"structures" yaml:"structures"`
	Connected  *int   `json:"connected_units,omitempty" yaml:"connected_units,omitempty"`
	Rate       *Rate  `json:"connection_rate,omitempty" yaml:"connection_rate,omitempty"`
}

// Rate is a connection percentage already rounded to 3 decimal places.
type Rate float64

// String formats the rate with exactly 3 decimals.
func (r Rate) String() string {
	return fmt.Sprintf("%.3f", float64(r))
}

// MarshalJSON writes the rate as a number with exactly 3 decimals.
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.RawMessage(r.String()), nil
}

// MarshalYAML writes the rate as a float scalar with exactly 3 decimals.
func (r Rate) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: r.String()}, nil
}
