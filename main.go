package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/config"
	"github.com/EmpoweredVote/territory-backend/internal/db"
	"github.com/EmpoweredVote/territory-backend/internal/feed"
	"github.com/EmpoweredVote/territory-backend/internal/geocoding"
	"github.com/EmpoweredVote/territory-backend/internal/geometry"
	"github.com/EmpoweredVote/territory-backend/internal/metrics"
	"github.com/EmpoweredVote/territory-backend/internal/middleware"
	"github.com/EmpoweredVote/territory-backend/internal/snapshots"
	"github.com/EmpoweredVote/territory-backend/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func newFetcher(ctx context.Context, cfg config.Config) (geometry.Fetcher, error) {
	var f geometry.Fetcher
	switch cfg.GeometrySource {
	case config.SourceHTTP:
		f = geometry.NewHTTPFetcher(cfg.GeometryBaseURL)
	case config.SourceS3:
		s3f, err := geometry.NewS3Fetcher(ctx, cfg.AWSRegion, cfg.GeometryS3Bucket, cfg.GeometryS3Prefix)
		if err != nil {
			return nil, err
		}
		f = s3f
	default:
		f = geometry.FileFetcher{Dir: cfg.GeometryDir}
	}

	if cfg.RedisAddr == "" {
		return f, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Not fatal: the cached fetcher falls through to the source.
		log.Printf("[Startup] redis %s unreachable: %v", cfg.RedisAddr, err)
	}
	return &geometry.RedisCachedFetcher{Next: f, Redis: rdb, TTL: cfg.CacheTTL}, nil
}

func newGeocoder(cfg config.Config) geocoding.Geocoder {
	switch cfg.Geocoder {
	case config.GeocoderGoogle:
		if g := geocoding.NewGoogleClient(cfg.GoogleAPIKey); g != nil {
			return g
		}
		return nil
	default:
		if cfg.GeocodeURL == "" {
			log.Println("[Startup] GEOCODE_URL not set; address lookup disabled")
			return nil
		}
		return geocoding.NewServiceClient(cfg.GeocodeURL)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	partitions := geometry.DefaultPartitions()
	if cfg.PartitionsFile != "" {
		if partitions, err = geometry.LoadPartitions(cfg.PartitionsFile); err != nil {
			log.Fatalf("partitions: %v", err)
		}
	}

	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		log.Fatalf("geometry source: %v", err)
	}

	hub := feed.NewHub(cfg.AllowedOrigins)
	go hub.Run(ctx)

	opts := workspace.Options{
		Geometry:     geometry.NewStore(fetcher, partitions, cfg.RegionIDProperty),
		MinZoom:      cfg.MinZoom,
		Geocoder:     newGeocoder(cfg),
		GeocodeDelay: cfg.GeocodeDelay,
		Feed:         hub,
		AdminHash:    cfg.AdminTokenHash,
	}

	if cfg.DatabaseURL != "" {
		gdb, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		repo := snapshots.NewRepository(gdb)
		if err := repo.Migrate(); err != nil {
			log.Fatalf("snapshots: %v", err)
		}
		opts.Snapshots = repo
	} else {
		log.Println("[Startup] DATABASE_URL not set; snapshots disabled")
	}

	ws := workspace.New(opts)

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/territory", ws.SetupRoutes())

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server listening on port :%s (geometry=%s partitions=%d)", cfg.Port, cfg.GeometrySource, len(partitions))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
