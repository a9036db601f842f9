package geometry

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Store caches parsed partitions. Concurrent requests for the same partition
// share one fetch; failures are never cached.
type Store struct {
	fetcher    Fetcher
	partitions PartitionTable
	idProperty string

	group singleflight.Group

	mu     sync.RWMutex
	cache  map[string][]Region
	byID   map[string]Region
	resets uint64 // bumped by Reset so late loads don't repopulate
}

// NewStore creates a Store. An empty idProperty means DefaultRegionIDProperty.
func NewStore(f Fetcher, partitions PartitionTable, idProperty string) *Store {
	if idProperty == "" {
		idProperty = DefaultRegionIDProperty
	}
	return &Store{
		fetcher:    f,
		partitions: partitions,
		idProperty: idProperty,
		cache:      make(map[string][]Region),
		byID:       make(map[string]Region),
	}
}

// Partitions returns the static partition table.
func (s *Store) Partitions() PartitionTable { return s.partitions }

// EnsureLoaded returns the regions of a partition, loading it on first use.
// A failed load returns an error wrapping ErrPartitionUnavailable. The
// underlying fetch is not tied to ctx: a caller that gives up only stops
// waiting, other waiters still get the result.
func (s *Store) EnsureLoaded(ctx context.Context, partitionID string) ([]Region, error) {
	if regions, ok := s.cached(partitionID); ok {
		return regions, nil
	}

	p, ok := s.partitions[partitionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartition, partitionID)
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(partitionID, func() (any, error) {
		// Another flight may have finished between our cache check and here.
		if regions, ok := s.cached(partitionID); ok {
			return regions, nil
		}
		return s.load(loadCtx, p)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.GeometryCoalescedTotal.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Region), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EnsureAll loads every listed partition in parallel and returns their
// regions as one slice. It fails if any partition fails.
func (s *Store) EnsureAll(ctx context.Context, partitionIDs []string) ([]Region, error) {
	results := make([][]Region, len(partitionIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range partitionIDs {
		g.Go(func() error {
			regions, err := s.EnsureLoaded(gctx, id)
			if err != nil {
				return err
			}
			results[i] = regions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Region
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, p Partition) ([]Region, error) {
	s.mu.RLock()
	gen := s.resets
	s.mu.RUnlock()

	t0 := time.Now()
	doc, err := s.fetcher.Fetch(ctx, p)
	if err != nil {
		metrics.GeometryFetchTotal.WithLabelValues(p.ID, "fetch_error").Inc()
		log.Printf("[GeometryStore] partition=%s fetch failed: %v", p.ID, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrPartitionUnavailable, p.ID, err)
	}

	regions, skipped, err := ParseRegions(p.ID, doc, s.idProperty)
	if err != nil {
		metrics.GeometryFetchTotal.WithLabelValues(p.ID, "parse_error").Inc()
		log.Printf("[GeometryStore] partition=%s parse failed: %v", p.ID, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrPartitionUnavailable, p.ID, err)
	}

	metrics.GeometryFetchTotal.WithLabelValues(p.ID, "ok").Inc()
	metrics.GeometryLoadDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	log.Printf("[GeometryStore] partition=%s loaded regions=%d skipped=%d bytes=%d duration=%dms",
		p.ID, len(regions), skipped, len(doc), time.Since(t0).Milliseconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resets != gen {
		return regions, nil
	}
	s.cache[p.ID] = regions
	for _, r := range regions {
		s.byID[r.ID] = r
	}
	metrics.GeometryRegionsResident.Set(float64(len(s.byID)))
	return regions, nil
}

func (s *Store) cached(partitionID string) ([]Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regions, ok := s.cache[partitionID]
	return regions, ok
}

// LoadedPartitions lists resident partition ids, sorted.
func (s *Store) LoadedPartitions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.cache))
	for id := range s.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset evicts everything. Loads still in flight finish but are not cached.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]Region)
	s.byID = make(map[string]Region)
	s.resets++
	metrics.GeometryRegionsResident.Set(0)
}
