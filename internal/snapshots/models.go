package snapshots

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Snapshot is a saved export document.
type Snapshot struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Label             string    `json:"label"`
	Version           string    `gorm:"not null" json:"version"`
	ExportedAt        time.Time `json:"exported_at"`
	TotalLocations    int       `json:"total_locations"`
	TotalAssignedZips int       `json:"total_assigned_zips"`
	CreatedAt         time.Time `json:"created_at"`

	Locations []SnapshotLocation `gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE" json:"locations,omitempty"`
}

func (Snapshot) TableName() string {
	return "territory.snapshots"
}

// SnapshotLocation is one location of a snapshot with the regions it owned.
type SnapshotLocation struct {
	SnapshotID uuid.UUID      `gorm:"type:uuid;primaryKey" json:"snapshot_id"`
	Position   int            `gorm:"primaryKey" json:"position"`
	LocationID string         `gorm:"not null" json:"location_id"`
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	Lat        float64        `json:"lat"`
	Lng        float64        `json:"lng"`
	Color      string         `json:"color"`
	ZipCodes   pq.StringArray `gorm:"type:text[]" json:"zip_codes"`
}

func (SnapshotLocation) TableName() string {
	return "territory.snapshot_locations"
}
