// Package spatial holds the side-effect-free geometry queries used to decide
// which partitions and regions are worth looking at. Everything here works on
// axis-aligned boxes and great-circle distance; nothing does true polygon
// containment.
package spatial

import "math"

// BBox is an axis-aligned bounding box in degrees.
type BBox struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Center returns the midpoint of the box as (lat, lng).
func (b BBox) Center() (float64, float64) {
	return (b.North + b.South) / 2, (b.East + b.West) / 2
}

// Contains reports whether (lat, lng) lies inside the box, edges included.
func (b BBox) Contains(lat, lng float64) bool {
	return lat <= b.North && lat >= b.South && lng <= b.East && lng >= b.West
}

// Intersects reports whether two boxes overlap. Touching edges count.
func (b BBox) Intersects(q BBox) bool {
	return !(b.South > q.North ||
		b.North < q.South ||
		b.West > q.East ||
		b.East < q.West)
}

// Extend grows the box to include (lat, lng).
func (b BBox) Extend(lat, lng float64) BBox {
	if lat > b.North {
		b.North = lat
	}
	if lat < b.South {
		b.South = lat
	}
	if lng > b.East {
		b.East = lng
	}
	if lng < b.West {
		b.West = lng
	}
	return b
}

// Empty is the identity for Extend: any point extends it to a degenerate box.
func Empty() BBox {
	return BBox{North: -90, South: 90, East: -180, West: 180}
}

// Valid reports whether the box has been extended by at least one point.
func (b BBox) Valid() bool {
	return b.North >= b.South && b.East >= b.West
}

// Constants for the radius approximation.
const (
	MilesPerDegreeLat = 69.0
	EarthRadiusMiles  = 3958.8
)

// BoundingBoxForRadius approximates the box around a circle of radiusMiles
// centred on (lat, lng). It is only a pre-filter; final membership always
// goes through GreatCircleDistanceMiles.
func BoundingBoxForRadius(lat, lng, radiusMiles float64) BBox {
	latDelta := radiusMiles / MilesPerDegreeLat
	lngDelta := radiusMiles / (MilesPerDegreeLat * math.Cos(toRad(lat)))
	return BBox{
		North: lat + latDelta,
		South: lat - latDelta,
		East:  lng + lngDelta,
		West:  lng - lngDelta,
	}
}

// GreatCircleDistanceMiles is the haversine distance between two points.
func GreatCircleDistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
