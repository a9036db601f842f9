// Package workspace owns one territory plan: the assignment store, the map
// view and the paint gesture in progress. Every store mutation goes through
// the workspace lock so the store only ever has one writer.
package workspace

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/geocoding"
	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/mapview"
	"github.com/EmpoweredVote/territory-backend/internal/paint"
	"github.com/EmpoweredVote/territory-backend/internal/snapshots"
	"github.com/EmpoweredVote/territory-backend/internal/territory"
	"github.com/google/uuid"
)

// Geometry is the region source used for viewport, paint and radius work.
type Geometry interface {
	Partitions() geometry.PartitionTable
	EnsureLoaded(ctx context.Context, partitionID string) ([]geometry.Region, error)
	EnsureAll(ctx context.Context, partitionIDs []string) ([]geometry.Region, error)
	LoadedPartitions() []string
	Reset()
}

// Feed receives every applied change and serves live subscribers.
type Feed interface {
	Publish(typ string, v any)
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// SnapshotRepository persists export documents.
type SnapshotRepository interface {
	Save(ctx context.Context, label string, doc territory.Document) (snapshots.Snapshot, error)
	List(ctx context.Context, limit int) ([]snapshots.Snapshot, error)
	Load(ctx context.Context, id uuid.UUID) (territory.Document, error)
}

type Options struct {
	Geometry     Geometry
	MinZoom      float64
	Geocoder     geocoding.Geocoder // nil disables address lookup
	GeocodeDelay time.Duration
	Feed         Feed               // optional
	Snapshots    SnapshotRepository // optional
	AdminHash    string
}

type Workspace struct {
	mu    sync.Mutex
	store *territory.Store
	paint *paint.Session

	geo          Geometry
	view         *mapview.View
	geocoder     geocoding.Geocoder
	geocodeDelay time.Duration
	feed         Feed
	snaps        SnapshotRepository
	adminHash    string

	jobsMu sync.Mutex
	jobs   map[string]*ImportJob

	now func() time.Time
}

func New(opts Options) *Workspace {
	minZoom := opts.MinZoom
	if minZoom <= 0 {
		minZoom = mapview.DefaultMinZoom
	}
	store := territory.NewStore()
	ws := &Workspace{
		store:        store,
		paint:        paint.NewSession(store),
		geo:          opts.Geometry,
		view:         mapview.New(opts.Geometry, minZoom),
		geocoder:     opts.Geocoder,
		geocodeDelay: opts.GeocodeDelay,
		feed:         opts.Feed,
		snaps:        opts.Snapshots,
		adminHash:    opts.AdminHash,
		jobs:         make(map[string]*ImportJob),
		now:          time.Now,
	}
	store.OnChange(ws.publish)
	return ws
}

func (ws *Workspace) publish(c territory.Change) {
	if ws.feed != nil {
		ws.feed.Publish("change", c)
	}
}

// with runs fn while holding the workspace lock.
func (ws *Workspace) with(fn func(s *territory.Store) error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return fn(ws.store)
}

// State is the full workspace view returned to clients.
type State struct {
	territory.State
	LoadedPartitions []string         `json:"loadedPartitions"`
	Viewport         mapview.Viewport `json:"viewport"`
	Painting         bool             `json:"painting"`
}

func (ws *Workspace) State() State {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return State{
		State:            ws.store.State(),
		LoadedPartitions: ws.geo.LoadedPartitions(),
		Viewport:         ws.view.Current(),
		Painting:         ws.paint.State() == paint.Active,
	}
}

// replace swaps in a whole document and abandons any gesture in progress.
func (ws *Workspace) replace(doc territory.Document) error {
	return ws.with(func(s *territory.Store) error {
		if err := s.ImportDocument(doc); err != nil {
			return err
		}
		ws.paint.End()
		return nil
	})
}

func (ws *Workspace) reset() {
	ws.with(func(s *territory.Store) error {
		s.Reset()
		ws.paint.End()
		return nil
	})
}
