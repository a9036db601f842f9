// Package snapshots stores export documents in Postgres so a territory plan
// can be restored later.
package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/db"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("snapshot not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(d *gorm.DB) *Repository {
	return &Repository{db: d}
}

// Migrate creates the schema and tables if missing.
func (r *Repository) Migrate() error {
	if err := db.EnsureSchema(r.db, db.Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := r.db.AutoMigrate(&Snapshot{}, &SnapshotLocation{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Save stores doc under label.
func (r *Repository) Save(ctx context.Context, label string, doc territory.Document) (Snapshot, error) {
	snap := Snapshot{
		ID:                uuid.New(),
		Label:             label,
		Version:           doc.Version,
		ExportedAt:        doc.ExportedAt,
		TotalLocations:    doc.Metadata.TotalLocations,
		TotalAssignedZips: doc.Metadata.TotalAssignedZips,
		CreatedAt:         time.Now().UTC(),
	}
	for i, l := range doc.Locations {
		snap.Locations = append(snap.Locations, SnapshotLocation{
			SnapshotID: snap.ID,
			Position:   i,
			LocationID: l.ID,
			Name:       l.Name,
			Address:    l.Address,
			Lat:        l.Lat,
			Lng:        l.Lng,
			Color:      l.Color,
			ZipCodes:   pq.StringArray(l.ZipCodes),
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&snap).Error
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	log.Printf("[Snapshots] saved id=%s label=%q locations=%d zips=%d",
		snap.ID, label, snap.TotalLocations, snap.TotalAssignedZips)
	snap.Locations = nil
	return snap, nil
}

// List returns snapshot headers, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []Snapshot
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Load rebuilds the export document saved as id.
func (r *Repository) Load(ctx context.Context, id uuid.UUID) (territory.Document, error) {
	var snap Snapshot
	err := r.db.WithContext(ctx).
		Preload("Locations", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		First(&snap, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return territory.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return territory.Document{}, fmt.Errorf("load snapshot: %w", err)
	}
	return toDocument(snap), nil
}

func toDocument(s Snapshot) territory.Document {
	doc := territory.Document{
		Version:    s.Version,
		ExportedAt: s.ExportedAt,
		Locations:  make([]territory.DocumentLocation, 0, len(s.Locations)),
		Metadata: territory.DocumentMetadata{
			TotalLocations:    s.TotalLocations,
			TotalAssignedZips: s.TotalAssignedZips,
		},
	}
	for _, l := range s.Locations {
		zips := []string(l.ZipCodes)
		if zips == nil {
			zips = []string{}
		}
		doc.Locations = append(doc.Locations, territory.DocumentLocation{
			ID:       l.LocationID,
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
