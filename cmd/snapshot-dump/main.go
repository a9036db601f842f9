package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/territory"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

var (
	dsn    = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	id     = flag.String("id", "", "snapshot id (default: most recent)")
	out    = flag.String("out", "", "output file (default: territories_<exportedAt>.json)")
	pretty = flag.Bool("pretty", true, "indent the JSON output")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	snapID, label, doc, err := loadSnapshot(ctx, db, *id)
	if errors.Is(err, sql.ErrNoRows) {
		fatalf("no snapshot found")
	}
	if err != nil {
		fatalf("load: %v", err)
	}

	var data []byte
	if *pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		fatalf("encode: %v", err)
	}

	path := *out
	if path == "" {
		path = territory.ExportFilename(doc.ExportedAt, "json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatalf("write: %v", err)
	}
	fmt.Printf("Wrote snapshot %s (%q) to %s: locations=%d zips=%d\n",
		snapID, label, path, doc.Metadata.TotalLocations, doc.Metadata.TotalAssignedZips)
}

func loadSnapshot(ctx context.Context, db *sql.DB, id string) (string, string, territory.Document, error) {
	var (
		snapID, label string
		doc           territory.Document
	)

	header := `SELECT id, label, version, exported_at, total_locations, total_assigned_zips
		FROM territory.snapshots `
	var row *sql.Row
	if id == "" {
		row = db.QueryRowContext(ctx, header+`ORDER BY created_at DESC LIMIT 1`)
	} else {
		row = db.QueryRowContext(ctx, header+`WHERE id = $1`, id)
	}
	if err := row.Scan(&snapID, &label, &doc.Version, &doc.ExportedAt,
		&doc.Metadata.TotalLocations, &doc.Metadata.TotalAssignedZips); err != nil {
		return "", "", doc, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT location_id, name, address, lat, lng, color, zip_codes
		FROM territory.snapshot_locations
		WHERE snapshot_id = $1
		ORDER BY position`, snapID)
	if err != nil {
		return "", "", doc, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	doc.Locations = []territory.DocumentLocation{}
	for rows.Next() {
		var (
			l    territory.DocumentLocation
			zips pq.StringArray
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Lat, &l.Lng, &l.Color, &zips); err != nil {
			return "", "", doc, fmt.Errorf("scan location: %w", err)
		}
		l.ZipCodes = []string(zips)
		if l.ZipCodes == nil {
			l.ZipCodes = []string{}
		}
		doc.Locations = append(doc.Locations, l)
	}
	return snapID, label, doc, rows.Err()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
