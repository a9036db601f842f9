package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/radius"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	var (
		lat        = flag.Float64("lat", 0, "center latitude")
		lng        = flag.Float64("lng", 0, "center longitude")
		miles      = flag.Float64("radius", 10, "radius in miles")
		dir        = flag.String("dir", envOr("GEOMETRY_DIR", "public/geojson"), "directory of partition documents")
		partitions = flag.String("partitions", os.Getenv("PARTITIONS_FILE"), "optional YAML partition table")
		idProp     = flag.String("id-property", envOr("REGION_ID_PROPERTY", geometry.DefaultRegionIDProperty), "feature property holding the region id")
	)
	flag.Parse()

	if *lat == 0 && *lng == 0 {
		flag.Usage()
		os.Exit(2)
	}

	table := geometry.DefaultPartitions()
	if *partitions != "" {
		var err error
		if table, err = geometry.LoadPartitions(*partitions); err != nil {
			log.Fatalf("partitions: %v", err)
		}
	}
	store := geometry.NewStore(geometry.FileFetcher{Dir: *dir}, table, *idProp)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	t0 := time.Now()
	members, err := radius.Membership(ctx, store, *lat, *lng, *miles)
	if err != nil {
		log.Fatalf("membership: %v", err)
	}

	fmt.Printf("Regions within %.1f mi of %.5f,%.5f: %d (partitions loaded: %v, %s)\n\n",
		*miles, *lat, *lng, len(members), store.LoadedPartitions(), time.Since(t0).Round(time.Millisecond))
	for _, m := range members {
		fmt.Printf("  %s  %6.2f mi\n", m.RegionID, m.DistanceMiles)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
