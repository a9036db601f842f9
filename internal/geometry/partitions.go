package geometry

import (
	"fmt"
	"os"
	"sort"

	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/goccy/go-yaml"
)

// PartitionTable indexes partitions by id.
type PartitionTable map[string]Partition

// Bounds returns the static bounding box of every partition keyed by id.
func (t PartitionTable) Bounds() map[string]spatial.BBox {
	out := make(map[string]spatial.BBox, len(t))
	for id, p := range t {
		out[id] = p.Bounds
	}
	return out
}

// IDs returns the partition ids in sorted order.
func (t PartitionTable) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Intersecting returns the ids of partitions whose bounds touch box.
func (t PartitionTable) Intersecting(box spatial.BBox) []string {
	return spatial.PartitionsIntersecting(t.Bounds(), box)
}

// DefaultPartitions is the East Coast state table the boundary files were
// published for. Each document is expected at "<id>.json".
func DefaultPartitions() PartitionTable {
	rows := []struct {
		id, name                 string
		north, south, east, west float64
	}{
		{"me", "Maine", 47.46, 43.06, -66.95, -71.08},
		{"nh", "New Hampshire", 45.31, 42.70, -70.70, -72.56},
		{"vt", "Vermont", 45.02, 42.73, -71.47, -73.44},
		{"ma", "Massachusetts", 42.89, 41.24, -69.93, -73.51},
		{"ri", "Rhode Island", 42.02, 41.15, -71.12, -71.86},
		{"ct", "Connecticut", 42.05, 40.95, -71.79, -73.73},
		{"ny", "New York", 45.02, 40.50, -71.86, -79.76},
		{"nj", "New Jersey", 41.36, 38.93, -73.89, -75.56},
		{"pa", "Pennsylvania", 42.27, 39.72, -74.69, -80.52},
		{"de", "Delaware", 39.84, 38.45, -75.05, -75.79},
		{"md", "Maryland", 39.72, 37.91, -75.05, -79.49},
		{"va", "Virginia", 39.47, 36.54, -75.24, -83.68},
		{"nc", "North Carolina", 36.59, 33.84, -75.46, -84.32},
		{"sc", "South Carolina", 35.22, 32.03, -78.54, -83.35},
		{"ga", "Georgia", 35.00, 30.36, -80.84, -85.61},
		{"fl", "Florida", 31.00, 24.52, -80.03, -87.63},
		{"oh", "Ohio", 42.32, 38.40, -80.52, -84.82},
		{"wv", "West Virginia", 40.64, 37.20, -77.72, -82.64},
		{"al", "Alabama", 35.01, 30.22, -84.89, -88.47},
	}

	t := make(PartitionTable, len(rows))
	for _, r := range rows {
		t[r.id] = Partition{
			ID:     r.id,
			Name:   r.name,
			Source: r.id + ".json",
			Bounds: spatial.BBox{North: r.north, South: r.south, East: r.east, West: r.west},
		}
	}
	return t
}

type partitionFile struct {
	Partitions []Partition `yaml:"partitions"`
}

// LoadPartitions reads a YAML partition table. Entries without a source get
// "<id>.json".
//
//	partitions:
//	  - id: va
//	    name: Virginia
//	    bounds: {north: 39.47, south: 36.54, east: -75.24, west: -83.68}
func LoadPartitions(path string) (PartitionTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading partition table: %w", err)
	}
	return ParsePartitions(b)
}

// ParsePartitions decodes a YAML partition table.
func ParsePartitions(b []byte) (PartitionTable, error) {
	var f partitionFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decoding partition table: %w", err)
	}
	if len(f.Partitions) == 0 {
		return nil, fmt.Errorf("partition table has no entries")
	}

	t := make(PartitionTable, len(f.Partitions))
	for i, p := range f.Partitions {
		if p.ID == "" {
			return nil, fmt.Errorf("partition %d: id is required", i+1)
		}
		if _, dup := t[p.ID]; dup {
			return nil, fmt.Errorf("partition %d: duplicate id %q", i+1, p.ID)
		}
		if !p.Bounds.Valid() {
			return nil, fmt.Errorf("partition %q: bounds are inverted", p.ID)
		}
		if p.Source == "" {
			p.Source = p.ID + ".json"
		}
		t[p.ID] = p
	}
	return t, nil
}
