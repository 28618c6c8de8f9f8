package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Nominatim instance
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// preferredFields is the ordering used to assemble a short place name from
// the provider's free-form address components
var preferredFields = []string{
	"amenity", "shop", "tourism", "road", "neighbourhood", "suburb", "city", "country",
}

// Place is a reverse-geocoding result
type Place struct {
	// Name is a short label built from up to three address components
	Name string
	// DisplayName is the provider's full label, kept as a fallback
	DisplayName string
}

// Client queries a Nominatim-compatible reverse geocoder
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a reverse-geocoding client. Nominatim's usage policy
// requires an identifying User-Agent, so one is mandatory here.
func NewClient(baseURL, userAgent string) (*Client, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("geocoder user agent is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type reverseResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// Reverse converts coordinates into a place name
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &Place{
		Name:        shortName(body.Address, body.DisplayName),
		DisplayName: body.DisplayName,
	}, nil
}

// shortName picks the first three present preferred fields, falling back to
// the full display name when the address block has none of them
func shortName(address map[string]string, displayName string) string {
	var parts []string
	for _, field := range preferredFields {
		if value := strings.TrimSpace(address[field]); value != "" {
			parts = append(parts, value)
			if len(parts) == 3 {
				break
			}
		}
	}
	if len(parts) == 0 {
		return displayName
	}
	return strings.Join(parts, ", ")
}
