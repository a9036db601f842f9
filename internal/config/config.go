package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GeometrySource selects where partition documents come from.
type GeometrySource string

const (
	SourceFile GeometrySource = "file"
	SourceHTTP GeometrySource = "http"
	SourceS3   GeometrySource = "s3"
)

// GeocoderKind selects the geocoding backend.
type GeocoderKind string

const (
	GeocoderService GeocoderKind = "collaborator"
	GeocoderGoogle  GeocoderKind = "google"
)

var (
	ErrMissingGeometryURL    = errors.New("GEOMETRY_BASE_URL is required when GEOMETRY_SOURCE=http")
	ErrMissingGeometryBucket = errors.New("GEOMETRY_S3_BUCKET is required when GEOMETRY_SOURCE=s3")
	ErrMissingGoogleKey      = errors.New("GOOGLE_MAPS_API_KEY is required when GEOCODER=google")
)

// Config holds server configuration.
type Config struct {
	Port string

	GeometrySource   GeometrySource
	GeometryDir      string
	GeometryBaseURL  string
	GeometryS3Bucket string
	GeometryS3Prefix string
	AWSRegion        string
	RegionIDProperty string
	PartitionsFile   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	Geocoder     GeocoderKind
	GeocodeURL   string
	GoogleAPIKey string
	GeocodeDelay time.Duration

	MinZoom float64

	DatabaseURL    string
	AdminTokenHash string
	AllowedOrigins []string
}

// Load reads .env.local if present, then the environment.
//
// Environment variables:
//   - PORT (default 5050)
//   - GEOMETRY_SOURCE: "file", "http" or "s3" (default "file")
//   - GEOMETRY_DIR (default public/geojson), GEOMETRY_BASE_URL
//   - GEOMETRY_S3_BUCKET, GEOMETRY_S3_PREFIX, AWS_REGION
//   - REGION_ID_PROPERTY (default ZCTA5CE10), PARTITIONS_FILE
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, GEOMETRY_CACHE_TTL (default 24h)
//   - GEOCODER: "collaborator" or "google" (default "collaborator")
//   - GEOCODE_URL, GOOGLE_MAPS_API_KEY, GEOCODE_DELAY (default 100ms)
//   - MIN_ZOOM (default 7)
//   - DATABASE_URL, ADMIN_TOKEN_HASH, CORS_ALLOWED_ORIGINS (comma separated)
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Malformed numbers and durations are
// errors; missing values take defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Port:             get("PORT", "5050"),
		GeometrySource:   GeometrySource(strings.ToLower(get("GEOMETRY_SOURCE", string(SourceFile)))),
		GeometryDir:      get("GEOMETRY_DIR", "public/geojson"),
		GeometryBaseURL:  get("GEOMETRY_BASE_URL", ""),
		GeometryS3Bucket: get("GEOMETRY_S3_BUCKET", ""),
		GeometryS3Prefix: get("GEOMETRY_S3_PREFIX", ""),
		AWSRegion:        get("AWS_REGION", "us-east-1"),
		RegionIDProperty: get("REGION_ID_PROPERTY", "ZCTA5CE10"),
		PartitionsFile:   get("PARTITIONS_FILE", ""),
		RedisAddr:        get("REDIS_ADDR", ""),
		RedisPassword:    getenv("REDIS_PASSWORD"),
		Geocoder:         GeocoderKind(strings.ToLower(get("GEOCODER", string(GeocoderService)))),
		GeocodeURL:       get("GEOCODE_URL", ""),
		GoogleAPIKey:     get("GOOGLE_MAPS_API_KEY", ""),
		DatabaseURL:      get("DATABASE_URL", ""),
		AdminTokenHash:   get("ADMIN_TOKEN_HASH", ""),
	}

	var err error
	if c.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if c.CacheTTL, err = time.ParseDuration(get("GEOMETRY_CACHE_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("GEOMETRY_CACHE_TTL: %w", err)
	}
	if c.GeocodeDelay, err = time.ParseDuration(get("GEOCODE_DELAY", "100ms")); err != nil {
		return Config{}, fmt.Errorf("GEOCODE_DELAY: %w", err)
	}
	if c.MinZoom, err = strconv.ParseFloat(get("MIN_ZOOM", "7"), 64); err != nil {
		return Config{}, fmt.Errorf("MIN_ZOOM: %w", err)
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.AllowedOrigins = append(c.AllowedOrigins, o)
		}
	}
	return c, nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	switch c.GeometrySource {
	case SourceFile:
	case SourceHTTP:
		if c.GeometryBaseURL == "" {
			return ErrMissingGeometryURL
		}
	case SourceS3:
		if c.GeometryS3Bucket == "" {
			return ErrMissingGeometryBucket
		}
	default:
		return fmt.Errorf("unknown GEOMETRY_SOURCE %q", c.GeometrySource)
	}

	switch c.Geocoder {
	case GeocoderService:
		// An empty GEOCODE_URL disables geocoding; uploads then need lat/lng.
	case GeocoderGoogle:
		if c.GoogleAPIKey == "" {
			return ErrMissingGoogleKey
		}
	default:
		return fmt.Errorf("unknown GEOCODER %q", c.Geocoder)
	}
	return nil
}
