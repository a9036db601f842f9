package geometry

import (
	"fmt"
	"log"
	"strconv"

	"github.com/EmpoweredVote/territory-backend/internal/spatial"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultRegionIDProperty is the Census ZCTA property carried by the
// published state boundary files.
const DefaultRegionIDProperty = "ZCTA5CE10"

// ParseRegions decodes a GeoJSON FeatureCollection into Regions. Features
// without a region id or without polygonal geometry are skipped and counted,
// never fatal.
func ParseRegions(partitionID string, doc []byte, idProperty string) ([]Region, int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(doc)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding feature collection: %w", err)
	}

	regions := make([]Region, 0, len(fc.Features))
	skipped := 0
	for i, f := range fc.Features {
		id := regionID(f.Properties, idProperty)
		if id == "" {
			log.Printf("[GeometryStore] partition=%s feature=%d skipped: missing %s", partitionID, i, idProperty)
			skipped++
			continue
		}

		var rings []orb.Ring
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			rings = g
		case orb.MultiPolygon:
			for _, poly := range g {
				rings = append(rings, poly...)
			}
		default:
			log.Printf("[GeometryStore] partition=%s region=%s skipped: geometry %T is not polygonal", partitionID, id, f.Geometry)
			skipped++
			continue
		}

		box := ringBounds(rings)
		if !box.Valid() {
			log.Printf("[GeometryStore] partition=%s region=%s skipped: empty geometry", partitionID, id)
			skipped++
			continue
		}
		lat, lng := box.Center()
		regions = append(regions, Region{
			ID:          id,
			Partition:   partitionID,
			Geometry:    f.Geometry,
			BBox:        box,
			CentroidLat: lat,
			CentroidLng: lng,
		})
	}
	return regions, skipped, nil
}

// ringBounds is the min/max over every ring coordinate, holes and all parts
// of a multipolygon included.
func ringBounds(rings []orb.Ring) spatial.BBox {
	b := spatial.Empty()
	for _, ring := range rings {
		for _, pt := range ring {
			b = b.Extend(pt.Lat(), pt.Lon())
		}
	}
	return b
}

func regionID(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		// Some exports store ZCTAs as numbers; keep the five-digit form.
		return fmt.Sprintf("%05d", int64(v))
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
