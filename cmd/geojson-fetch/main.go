package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://raw.githubusercontent.com/OpenDataDE/State-zip-code-GeoJSON/master"

// upstreamFile is the published name for a state's boundary file, e.g.
// "nc_north_carolina_zip_codes_geo.min.json".
func upstreamFile(p geometry.Partition) string {
	name := strings.ReplaceAll(strings.ToLower(p.Name), " ", "_")
	return fmt.Sprintf("%s_%s_zip_codes_geo.min.json", p.ID, name)
}

func main() {
	_ = godotenv.Load(".env.local")

	var (
		dir        = flag.String("dir", envOr("GEOMETRY_DIR", "public/geojson"), "destination directory")
		baseURL    = flag.String("base-url", defaultBaseURL, "upstream repository of state boundary files")
		partitions = flag.String("partitions", os.Getenv("PARTITIONS_FILE"), "optional YAML partition table")
		only       = flag.String("only", "", "comma separated partition ids (default: all)")
		parallel   = flag.Int("parallel", 4, "concurrent downloads")
	)
	flag.Parse()

	table := geometry.DefaultPartitions()
	if *partitions != "" {
		var err error
		if table, err = geometry.LoadPartitions(*partitions); err != nil {
			log.Fatalf("partitions: %v", err)
		}
	}

	ids := table.IDs()
	if *only != "" {
		ids = strings.Split(*only, ",")
		sort.Strings(ids)
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("mkdir %s: %v", *dir, err)
	}

	fetcher := geometry.NewHTTPFetcher(*baseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	fmt.Printf("Downloading GeoJSON files for %d partitions...\n", len(ids))

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for _, id := range ids {
		p, ok := table[id]
		if !ok {
			fmt.Printf("  %s: unknown partition, skipping\n", id)
			failed.Add(1)
			continue
		}
		g.Go(func() error {
			out := filepath.Join(*dir, p.Source)
			if _, err := os.Stat(out); err == nil {
				fmt.Printf("  %s already exists, skipping\n", p.Source)
				return nil
			}

			upstream := p
			upstream.Source = upstreamFile(p)
			fmt.Printf("  Downloading %s...\n", p.Source)
			data, err := fetcher.Fetch(gctx, upstream)
			if err != nil {
				fmt.Printf("  FAILED %s: %v\n", p.Source, err)
				failed.Add(1)
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("  %s done (%.1f MB)\n", p.Source, float64(len(data))/1024/1024)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	if n := failed.Load(); n > 0 {
		fmt.Printf("Done with %d failures.\n", n)
		os.Exit(1)
	}
	fmt.Println("Done!")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
