// Package geometry loads postal-code polygon documents one partition at a
// time and keeps the parsed regions resident for the life of the process.
package geometry

import (
	"errors"

	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrPartitionUnavailable means the partition could not be fetched or
	// parsed. Nothing is cached, so a later call may retry.
	ErrPartitionUnavailable = errors.New("geometry partition unavailable")
	ErrUnknownPartition     = errors.New("unknown geometry partition")
)

// Region is one assignable postal-code polygon. Regions are created once when
// their partition loads and are never mutated afterwards.
type Region struct {
	ID        string
	Partition string
	Geometry  orb.Geometry // orb.Polygon or orb.MultiPolygon
	BBox      spatial.BBox

	// Centroid is the midpoint of BBox, not the area centroid.
	CentroidLat float64
	CentroidLng float64
}

// Bounds satisfies spatial.Bounded.
func (r Region) Bounds() spatial.BBox { return r.BBox }

// Contains runs a true point-in-polygon test against the region's geometry.
func (r Region) Contains(lat, lng float64) bool {
	if !r.BBox.Contains(lat, lng) {
		return false
	}
	pt := orb.Point{lng, lat}
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

// Partition is a coarse group of regions fetched as one document. Its bounds
// are known statically so it can be selected before any region data exists.
type Partition struct {
	ID     string       `yaml:"id"`
	Name   string       `yaml:"name"`
	Source string       `yaml:"source"` // file name / object key of the document
	Bounds spatial.BBox `yaml:"bounds"`
}
