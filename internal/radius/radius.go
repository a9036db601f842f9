// Package radius resolves the regions around a point and commits them to a
// location, either overwriting other owners or filling gaps only.
package radius

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/metrics"
	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
)

var (
	ErrInvalidRequest = errors.New("invalid radius request")
	ErrUnknownMode    = errors.New("unknown commit mode")
)

type Mode string

const (
	Overwrite Mode = "overwrite"
	Fill      Mode = "fill"
)

// Loader supplies resident geometry, loading partitions on demand.
type Loader interface {
	Partitions() geometry.PartitionTable
	EnsureAll(ctx context.Context, partitionIDs []string) ([]geometry.Region, error)
}

// Assigner is the bulk half of the assignment store.
type Assigner interface {
	BulkAssign(regions []string, locationID string) (territory.Outcome, error)
	BulkAssignUnassignedOnly(regions []string, locationID string) (territory.Outcome, error)
}

type Member struct {
	RegionID      string  `json:"regionId"`
	DistanceMiles float64 `json:"distanceMiles"`
}

func validate(lat, lng, miles float64) error {
	switch {
	case math.IsNaN(lat) || lat < -90 || lat > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalidRequest, lat)
	case math.IsNaN(lng) || lng < -180 || lng > 180:
		return fmt.Errorf("%w: longitude %v", ErrInvalidRequest, lng)
	case math.IsNaN(miles) || miles <= 0:
		return fmt.Errorf("%w: radius %v", ErrInvalidRequest, miles)
	}
	return nil
}

// Membership returns the regions whose centroid lies within miles of
// (lat, lng) by great-circle distance, nearest first. Every partition the
// radius box touches is loaded first; if any load fails the error is
// returned rather than a partial or empty list. An empty result with a nil
// error means nothing is in range.
func Membership(ctx context.Context, loader Loader, lat, lng, miles float64) ([]Member, error) {
	if err := validate(lat, lng, miles); err != nil {
		return nil, err
	}
	box := spatial.BoundingBoxForRadius(lat, lng, miles)
	partitions := loader.Partitions().Intersecting(box)
	if len(partitions) == 0 {
		metrics.RadiusRequestsTotal.WithLabelValues("empty").Inc()
		return []Member{}, nil
	}

	regions, err := loader.EnsureAll(ctx, partitions)
	if err != nil {
		metrics.RadiusRequestsTotal.WithLabelValues("error").Inc()
		log.Printf("[Radius] center=%.5f,%.5f radius=%.1fmi load failed: %v", lat, lng, miles, err)
		return nil, fmt.Errorf("load partitions %v: %w", partitions, err)
	}

	seen := make(map[string]bool)
	members := []Member{}
	for _, r := range spatial.RegionsVisibleIn(box, regions) {
		if seen[r.ID] {
			continue
		}
		d := spatial.GreatCircleDistanceMiles(lat, lng, r.CentroidLat, r.CentroidLng)
		if d <= miles {
			seen[r.ID] = true
			members = append(members, Member{RegionID: r.ID, DistanceMiles: d})
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].DistanceMiles != members[j].DistanceMiles {
			return members[i].DistanceMiles < members[j].DistanceMiles
		}
		return members[i].RegionID < members[j].RegionID
	})

	result := "ok"
	if len(members) == 0 {
		result = "empty"
	}
	metrics.RadiusRequestsTotal.WithLabelValues(result).Inc()
	return members, nil
}

// IDs extracts the region ids of members.
func IDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.RegionID
	}
	return ids
}

// Commit hands regions to locationID using mode.
func Commit(store Assigner, regions []string, locationID string, mode Mode) (territory.Outcome, error) {
	switch mode {
	case Overwrite:
		return store.BulkAssign(regions, locationID)
	case Fill:
		return store.BulkAssignUnassignedOnly(regions, locationID)
	default:
		return territory.Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Request is one auto-assign call.
type Request struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusMiles float64 `json:"radiusMiles"`
	LocationID  string  `json:"locationId"`
	Mode        Mode    `json:"mode"`
}

type Result struct {
	Members []Member          `json:"members"`
	Outcome territory.Outcome `json:"outcome"`
}

// Guard runs fn against the assignment store while holding whatever lock
// protects it.
type Guard func(fn func(Assigner) error) error

// Assign computes membership for req without the guard, then commits it
// through guard. The location id is not checked until commit, so an
// unknown location surfaces as territory.ErrLocationNotFound after
// geometry is loaded.
func Assign(ctx context.Context, loader Loader, guard Guard, req Request) (Result, error) {
	if req.Mode == "" {
		req.Mode = Overwrite
	}
	if req.Mode != Overwrite && req.Mode != Fill {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	members, err := Membership(ctx, loader, req.Lat, req.Lng, req.RadiusMiles)
	if err != nil {
		return Result{}, err
	}
	var out territory.Outcome
	err = guard(func(store Assigner) error {
		var err error
		out, err = Commit(store, IDs(members), req.LocationID, req.Mode)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	log.Printf("[Radius] location=%s mode=%s radius=%.1fmi members=%d changed=%d",
		req.LocationID, req.Mode, req.RadiusMiles, len(members), len(out.Changed))
	return Result{Members: members, Outcome: out}, nil
}
