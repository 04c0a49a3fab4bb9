// Package classify buckets clusters by household count and rolls the
// buckets up into result records.
package classify

import (
	"math"
	"sort"

	"github.com/sells-group/addrcluster/internal/cluster"
	"github.com/sells-group/addrcluster/internal/model"
)

// Bucket is the structure class of a cluster.
type Bucket string

// Structure classes.
const (
	House     Bucket = "house"
	Apartment Bucket = "apartment"
	Building  Bucket = "building"
)

// Size thresholds (units per cluster).
const (
	apartmentMin = 2
	apartmentMax = 6
)

// BucketOf returns the class for a cluster of the given size.
// Rules:
//   - house: exactly 1 unit
//   - apartment: 2 to 6 units
//   - building: 7 or more units
func BucketOf(size int) Bucket {
	switch {
	case size < apartmentMin:
		return House
	case size <= apartmentMax:
		return Apartment
	default:
		return Building
	}
}

// Summarize computes the bucket counts and district rollup for one
// clustered run. Empty input yields a zero record with no districts.
func Summarize(points []model.JoinedPoint, a cluster.Assignment, hasDistrict bool) model.ResultRecord {
	var rec model.ResultRecord
	for _, size := range a.Sizes() {
		if size == 0 {
			continue
		}
		switch BucketOf(size) {
		case House:
			rec.NumHouses += size
			rec.NumHouseBuildings++
		case Apartment:
			rec.NumApartments += size
			rec.NumApartmentBuildings++
		case Building:
			rec.NumBuildings += size
			rec.NumBuildingStructures++
		}
	}
	rec.TotalHouses = rec.NumHouses + rec.NumApartments + rec.NumBuildings
	rec.TotalBuildings = rec.NumHouseBuildings + rec.NumApartmentBuildings + rec.NumBuildingStructures
	rec.Districts = Districts(points, a, hasDistrict)
	return rec
}

// Districts groups clusters by the district of their anchor point and
// returns one entry per district code in ascending order. Without a
// district column every cluster falls into AllDistricts.
func Districts(points []model.JoinedPoint, a cluster.Assignment, hasDistrict bool) []model.DistrictStat {
	if len(points) == 0 || a.Len() == 0 {
		return []model.DistrictStat{}
	}

	sizes := a.Sizes()
	byCode := make(map[string]*model.DistrictStat)
	for id, anchor := range a.Anchors {
		if sizes[id] == 0 || anchor >= len(points) {
			continue
		}
		code := model.AllDistricts
		if hasDistrict {
			code = points[anchor].District
		}
		ds, ok := byCode[code]
		if !ok {
			ds = &model.DistrictStat{District: code}
			byCode[code] = ds
		}
		ds.TotalUnits += sizes[id]
		ds.Structures++
	}

	out := make([]model.DistrictStat, 0, len(byCode))
	for _, ds := range byCode {
		out = append(out, *ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// MergeConnected sets the connected unit count and connection rate on
// each district of base from the matching district of connected.
// Districts missing from connected get zero connected units; districts
// only in connected are dropped.
func MergeConnected(base, connected []model.DistrictStat) []model.DistrictStat {
	units := make(map[string]int, len(connected))
	for _, c := range connected {
		units[c.District] += c.TotalUnits
	}

	out := make([]model.DistrictStat, len(base))
	for i, ds := range base {
		n := units[ds.District]
		rate := ConnectionRate(n, ds.TotalUnits)
		ds.Connected = &n
		ds.Rate = &rate
		out[i] = ds
	}
	return out
}

// ConnectionRate returns connected/total as a percentage rounded to 3
// decimal places, or 0 when total is 0.
func ConnectionRate(connected, total int) model.Rate {
	if total == 0 {
		return 0
	}
	pct := float64(connected) / float64(total) * 100
	return model.Rate(math.RoundToEven(pct*1000) / 1000)
}
