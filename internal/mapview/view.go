// Package mapview tracks the current viewport and the set of regions
// rendered in it. The rendered set is what paint gestures resolve against.
package mapview

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"golang.org/x/sync/errgroup"
)

// DefaultMinZoom is the lowest zoom level at which regions are rendered.
const DefaultMinZoom = 7

type Viewport struct {
	Bounds spatial.BBox `json:"bounds"`
	Zoom   float64      `json:"zoom"`
}

// Loader loads partitions on demand.
type Loader interface {
	Partitions() geometry.PartitionTable
	EnsureLoaded(ctx context.Context, partitionID string) ([]geometry.Region, error)
}

// Frame is the outcome of one refresh.
type Frame struct {
	Viewport    Viewport `json:"viewport"`
	Regions     []string `json:"regions"`
	Partitions  []string `json:"partitions"`
	Unavailable []string `json:"unavailable,omitempty"`
	TooFar      bool     `json:"tooFar,omitempty"`
	// Stale is set when a newer viewport arrived while this one was loading;
	// the rendered set was left to the newer refresh.
	Stale bool `json:"stale,omitempty"`
}

type View struct {
	loader  Loader
	minZoom float64

	mu       sync.RWMutex
	seq      uint64
	current  Viewport
	rendered *geometry.Index
}

func New(loader Loader, minZoom float64) *View {
	return &View{
		loader:   loader,
		minZoom:  minZoom,
		rendered: geometry.NewIndex(nil),
	}
}

// Refresh makes vp the current viewport, loads the partitions it overlaps
// and renders the regions inside it. Partitions that fail to load are listed
// in Frame.Unavailable and may be retried by the next refresh. If another
// Refresh starts before this one finishes, this result is discarded.
func (v *View) Refresh(ctx context.Context, vp Viewport) (Frame, error) {
	v.mu.Lock()
	v.seq++
	mine := v.seq
	v.current = vp
	if vp.Zoom < v.minZoom {
		v.rendered = geometry.NewIndex(nil)
		v.mu.Unlock()
		return Frame{Viewport: vp, Regions: []string{}, TooFar: true}, nil
	}
	v.mu.Unlock()

	partitions := v.loader.Partitions().Intersecting(vp.Bounds)

	var (
		resMu       sync.Mutex
		loaded      []geometry.Region
		unavailable []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range partitions {
		g.Go(func() error {
			regions, err := v.loader.EnsureLoaded(gctx, id)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				unavailable = append(unavailable, id)
				return nil
			}
			loaded = append(loaded, regions...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Frame{}, err
	}
	sort.Strings(unavailable)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seq != mine {
		return Frame{Viewport: vp, Stale: true}, nil
	}

	visible := spatial.RegionsVisibleIn(v.current.Bounds, loaded)
	v.rendered = geometry.NewIndex(visible)
	if len(unavailable) > 0 {
		log.Printf("[MapView] partitions unavailable: %v", unavailable)
	}
	return Frame{
		Viewport:    v.current,
		Regions:     v.rendered.IDs(),
		Partitions:  partitions,
		Unavailable: unavailable,
	}, nil
}

// Current returns the latest requested viewport.
func (v *View) Current() Viewport {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// At resolves a coordinate against the rendered regions.
func (v *View) At(lat, lng float64) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rendered.At(lat, lng)
}

// Clear drops the rendered set, e.g. after geometry is reset.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	v.rendered = geometry.NewIndex(nil)
}
