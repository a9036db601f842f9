package geometry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher retrieves the raw GeoJSON document for a partition.
type Fetcher interface {
	Fetch(ctx context.Context, p Partition) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, p Partition) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, p Partition) ([]byte, error) { return f(ctx, p) }

// FileFetcher reads partition documents from a local directory.
type FileFetcher struct {
	Dir string
}

func (f FileFetcher) Fetch(ctx context.Context, p Partition) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(f.Dir, p.Source))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.Source, err)
	}
	return b, nil
}

// HTTPFetcher downloads partition documents from BaseURL + "/" + source.
type HTTPFetcher struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with a generous timeout; state files
// run to tens of megabytes.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, p Partition) ([]byte, error) {
	u := f.BaseURL + "/" + p.Source
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", u, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return b, nil
}
