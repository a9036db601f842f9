package geometry

import (
	"sort"

	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/tidwall/rtree"
)

// Index is an R-tree over a fixed set of regions, used to resolve pointer
// positions and viewport boxes without scanning every region.
type Index struct {
	tr      rtree.RTree
	regions map[string]Region
}

// NewIndex indexes regions by bounding box. Later duplicates of an id win.
func NewIndex(regions []Region) *Index {
	ix := &Index{regions: make(map[string]Region, len(regions))}
	for _, r := range regions {
		if old, ok := ix.regions[r.ID]; ok {
			ix.tr.Delete(boxMin(old.BBox), boxMax(old.BBox), old.ID)
		}
		ix.regions[r.ID] = r
		ix.tr.Insert(boxMin(r.BBox), boxMax(r.BBox), r.ID)
	}
	return ix
}

func boxMin(b spatial.BBox) [2]float64 { return [2]float64{b.West, b.South} }
func boxMax(b spatial.BBox) [2]float64 { return [2]float64{b.East, b.North} }

// IDs returns every indexed id, sorted.
func (ix *Index) IDs() []string {
	ids := make([]string, 0, len(ix.regions))
	for id := range ix.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// At returns the regions whose true geometry contains (lat, lng). The
// bounding box only rejects; acceptance is point-in-polygon.
func (ix *Index) At(lat, lng float64) []string {
	pt := [2]float64{lng, lat}
	var hits []string
	ix.tr.Search(pt, pt, func(_, _ [2]float64, data interface{}) bool {
		id := data.(string)
		if r, ok := ix.regions[id]; ok && r.Contains(lat, lng) {
			hits = append(hits, id)
		}
		return true
	})
	sort.Strings(hits)
	return hits
}
