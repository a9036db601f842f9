// Package geocoding resolves free-text addresses to coordinates.
package geocoding

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EmpoweredVote/territory-backend/internal/metrics"
)

// Result is the outcome of one lookup. Failures are reported in-band with
// Success false and a message in Error.
type Result struct {
	Success          bool    `json:"success"`
	Lat              float64 `json:"lat,omitempty"`
	Lng              float64 `json:"lng,omitempty"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func failed(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Geocoder turns an address into a Result.
type Geocoder interface {
	Geocode(ctx context.Context, address string) Result
}

// DefaultDelay is the pause between consecutive lookups in a batch.
const DefaultDelay = 100 * time.Millisecond

// Item is one address in a batch.
type Item struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type ItemResult struct {
	Item
	Result Result `json:"result"`
}

// Progress is called before each lookup with a 1-based position.
type Progress func(current, total int, name string)

// Batch geocodes items one at a time, pausing delay after each call
// completes. A failed item does not stop the batch. If ctx ends, the
// remaining items are reported as failed with the context error.
func Batch(ctx context.Context, g Geocoder, items []Item, delay time.Duration, progress Progress) []ItemResult {
	if delay <= 0 {
		delay = DefaultDelay
	}
	out := make([]ItemResult, 0, len(items))

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return stopBatch(out, items, i, err)
		}
		if progress != nil {
			progress(i+1, len(items), it.Name)
		}
		out = append(out, ItemResult{Item: it, Result: Observe(ctx, g, it.Address)})

		if i == len(items)-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return stopBatch(out, items, i+1, ctx.Err())
		case <-t.C:
		}
	}
	return out
}

func stopBatch(out []ItemResult, items []Item, from int, err error) []ItemResult {
	for _, rest := range items[from:] {
		out = append(out, ItemResult{Item: rest, Result: failed("%v", err)})
	}
	log.Printf("[Geocode] batch stopped at %d/%d: %v", from, len(items), err)
	return out
}

// Observe runs one lookup and records its metrics.
func Observe(ctx context.Context, g Geocoder, address string) Result {
	t0 := time.Now()
	res := g.Geocode(ctx, address)
	metrics.GeocodeDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	if res.Success {
		metrics.GeocodeRequestsTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.GeocodeRequestsTotal.WithLabelValues("failed").Inc()
	}
	return res
}
