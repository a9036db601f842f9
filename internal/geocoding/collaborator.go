package geocoding

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ServiceClient posts {"address": ...} to a geocoding endpoint that answers
// with a Result document.
type ServiceClient struct {
	url        string
	httpClient *http.Client
}

func NewServiceClient(url string) *ServiceClient {
	return &ServiceClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *ServiceClient) Geocode(ctx context.Context, address string) Result {
	body, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return failed("encoding request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return failed("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failed("Network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failed("Server error: %d", resp.StatusCode)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return failed("decoding response: %v", err)
	}
	if res.Success && res.FormattedAddress == "" {
		res.FormattedAddress = address
	}
	return res
}
