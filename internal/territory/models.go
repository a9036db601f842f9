// Package territory holds the authoritative assignment state: the set of
// locations, the regions each one owns, and the region→location index.
package territory

import (
	"errors"
	"time"
)

var (
	ErrLocationNotFound  = errors.New("location not found")
	ErrDuplicateLocation = errors.New("duplicate location id")
	ErrInvalidSnapshot   = errors.New("invalid snapshot")
	ErrMissingColumn     = errors.New("missing required column")
	ErrInconsistentIndex = errors.New("assignment index out of sync")
)

// Location is a business site that can own regions.
type Location struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	FormattedAddress string    `json:"formattedAddress"`
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	Color            string    `json:"color"`
	Regions          []string  `json:"zipCodes"`
	CreatedAt        time.Time `json:"createdAt"`
}

// LocationPatch carries the fields UpdateLocation may change. Nil fields are
// left alone. Region ownership is not patchable.
type LocationPatch struct {
	Name             *string  `json:"name,omitempty"`
	Address          *string  `json:"address,omitempty"`
	FormattedAddress *string  `json:"formattedAddress,omitempty"`
	Lat              *float64 `json:"lat,omitempty"`
	Lng              *float64 `json:"lng,omitempty"`
	Color            *string  `json:"color,omitempty"`
}

type RadiusPreview struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusMiles float64 `json:"radiusMiles"`
}

// Selection is transient interaction state. It never affects ownership.
type Selection struct {
	ActiveLocationID   string         `json:"activeLocationId,omitempty"`
	Eraser             bool           `json:"eraserMode"`
	RadiusPreview      *RadiusPreview `json:"radiusPreview,omitempty"`
	ShowUnassignedOnly bool           `json:"showUnassignedOnly"`
}

// State is a deep copy of the store contents.
type State struct {
	Locations   []Location        `json:"locations"`
	Assignments map[string]string `json:"zipAssignments"`
	Selection   Selection         `json:"selection"`
}

// Outcome reports which regions changed owner. An empty Changed list is a
// logical no-op, not an error.
type Outcome struct {
	Changed []string `json:"changed"`
}

func (o Outcome) NoOp() bool { return len(o.Changed) == 0 }

// Change kinds published to listeners.
const (
	ChangeLocations   = "locations"
	ChangeAssignments = "assignments"
	ChangeSelection   = "selection"
	ChangeReplaced    = "replaced"
)

// Change describes one applied mutation.
type Change struct {
	Kind       string   `json:"kind"`
	Op         string   `json:"op"`
	Regions    []string `json:"regions,omitempty"`
	LocationID string   `json:"locationId,omitempty"`
}
