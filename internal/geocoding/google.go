package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const googleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// googleQPS is the per-key request cap the Geocoding API enforces.
const googleQPS = 50

// GoogleClient wraps the Google Maps Geocoding API.
type GoogleClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGoogleClient returns nil when apiKey is empty so callers can fall back
// to another geocoder.
func NewGoogleClient(apiKey string) *GoogleClient {
	if apiKey == "" {
		return nil
	}
	return &GoogleClient{
		apiKey:     apiKey,
		endpoint:   googleEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(googleQPS), 1),
	}
}

type googleResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Geocode waits for the client's request budget before calling the API, so
// concurrent callers sharing one client stay under the quota.
func (c *GoogleClient) Geocode(ctx context.Context, address string) Result {
	if err := c.limiter.Wait(ctx); err != nil {
		return failed("Network error: %v", err)
	}
	u := fmt.Sprintf("%s?address=%s&key=%s", c.endpoint, url.QueryEscape(address), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return failed("creating request: %v", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failed("Network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failed("geocoding API returned HTTP %d", resp.StatusCode)
	}

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return failed("decoding response: %v", err)
	}
	if gr.Status != "OK" || len(gr.Results) == 0 {
		if gr.Status == "ZERO_RESULTS" || (gr.Status == "OK" && len(gr.Results) == 0) {
			return failed("Address not found")
		}
		return failed("geocoding failed: status=%s", gr.Status)
	}

	top := gr.Results[0]
	formatted := top.FormattedAddress
	if formatted == "" {
		formatted = address
	}
	return Result{
		Success:          true,
		Lat:              top.Geometry.Location.Lat,
		Lng:              top.Geometry.Location.Lng,
		FormattedAddress: formatted,
	}
}
