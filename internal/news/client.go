package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Result is one news search hit. Only the title is guaranteed; the rest is
// whatever the provider had.
type Result struct {
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	Date   string `json:"date,omitempty"`
	Source string `json:"source,omitempty"`
}

// Client queries a DuckDuckGo news proxy. The search engine has no official
// API, so deployments point this at a self-hosted proxy exposing the
// query/timelimit/max_results contract of the ddg news search.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a news search client
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("news search url is required")
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search runs a news query restricted to the past month and returns at most
// maxResults hits
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("timelimit", "m")
	params.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling news search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news search returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	results := body.Results
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	return results, nil
}
