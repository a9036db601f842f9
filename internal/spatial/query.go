package spatial

import "sort"

// Bounded is anything with a precomputed bounding box.
type Bounded interface {
	Bounds() BBox
}

// PartitionsIntersecting returns the keys of every box in partitions that
// intersects query, sorted for stable iteration.
func PartitionsIntersecting(partitions map[string]BBox, query BBox) []string {
	out := make([]string, 0, len(partitions))
	for id, b := range partitions {
		if b.Intersects(query) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// RegionsVisibleIn filters candidates down to those whose bounding box
// intersects view. The input order is preserved.
func RegionsVisibleIn[T Bounded](view BBox, candidates []T) []T {
	var out []T
	for _, c := range candidates {
		if c.Bounds().Intersects(view) {
			out = append(out, c)
		}
	}
	return out
}
