package territory

import (
	"encoding/json"
	"fmt"
	"time"
)

const SnapshotVersion = "1.0"

// Document is the portable export format.
type Document struct {
	Version    string             `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Locations  []DocumentLocation `json:"locations"`
	Metadata   DocumentMetadata   `json:"metadata"`
}

type DocumentLocation struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Color    string   `json:"color"`
	ZipCodes []string `json:"zipCodes"`
}

type DocumentMetadata struct {
	TotalLocations    int `json:"totalLocations"`
	TotalAssignedZips int `json:"totalAssignedZips"`
}

// Export captures the current locations and their regions.
func (s *Store) Export(at time.Time) Document {
	locs := s.Locations()
	doc := Document{
		Version:    SnapshotVersion,
		ExportedAt: at.UTC(),
		Locations:  make([]DocumentLocation, 0, len(locs)),
		Metadata: DocumentMetadata{
			TotalLocations:    len(locs),
			TotalAssignedZips: len(s.index),
		},
	}
	for _, l := range locs {
		zips := l.Regions
		if zips == nil {
			zips = []string{}
		}
		doc.Locations = append(doc.Locations, DocumentLocation{
			ID:       l.ID,
			Name:     l.Name,
			Address:  l.Address,
			Lat:      l.Lat,
			Lng:      l.Lng,
			Color:    l.Color,
			ZipCodes: zips,
		})
	}
	return doc
}

// ParseDocument decodes an export document. It requires a version and a
// locations array.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if doc.Version == "" || doc.Locations == nil {
		return Document{}, fmt.Errorf("%w: missing required fields", ErrInvalidSnapshot)
	}
	return doc, nil
}

// ImportDocument replaces the store contents with doc. Any persisted
// region→location map is ignored; ownership comes from each location's
// zipCodes.
func (s *Store) ImportDocument(doc Document) error {
	if doc.Version == "" || doc.Locations == nil {
		return fmt.Errorf("%w: missing required fields", ErrInvalidSnapshot)
	}
	created := s.now().UTC()
	locs := make([]Location, 0, len(doc.Locations))
	for _, d := range doc.Locations {
		locs = append(locs, Location{
			ID:               d.ID,
			Name:             d.Name,
			Address:          d.Address,
			FormattedAddress: d.Address,
			Lat:              d.Lat,
			Lng:              d.Lng,
			Color:            d.Color,
			Regions:          d.ZipCodes,
			CreatedAt:        created,
		})
	}
	return s.Import(locs)
}
