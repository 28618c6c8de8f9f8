package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the OpenWeatherMap current-weather endpoint
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// defaultTimeout bounds a single provider call. Lookup retries one timed-out
// call, so a request can take up to twice this.
const defaultTimeout = 10 * time.Second

// Report is the slice of a provider response the journal cares about
type Report struct {
	TempC       float64
	Description string
	Humidity    int
}

// Summary renders the report the way the journal displays it
func (r *Report) Summary() string {
	temp := strconv.FormatFloat(r.TempC, 'f', -1, 64)
	return fmt.Sprintf("%s°C, %s (습도 %d%%)", temp, r.Description, r.Humidity)
}

// ProviderError is an application-level error reported by the weather
// provider (unknown city, bad key). The message is safe to show the user.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("weather provider returned status %d", e.StatusCode)
	}
	return e.Message
}

// Client queries an OpenWeatherMap-compatible provider
type Client struct {
	baseURL string
	apiKey  string
	lang    string
	client  *http.Client
}

// NewClient creates a weather client. lang controls the language of the
// condition description ("kr" matches the rest of the UI).
func NewClient(apiKey, baseURL, lang string) (*Client, error) {
	return NewClientWithTimeout(apiKey, baseURL, lang, defaultTimeout)
}

// NewClientWithTimeout creates a weather client with a custom per-call
// timeout for testing
func NewClientWithTimeout(apiKey, baseURL, lang string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("weather api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if lang == "" {
		lang = "kr"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		lang:    lang,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type weatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Message string `json:"message"`
}

// Lookup fetches current weather for a place name in metric units. Timeouts
// are retried once; provider-reported errors come back as *ProviderError.
func (c *Client) Lookup(ctx context.Context, place string) (*Report, error) {
	if place == "" {
		return nil, fmt.Errorf("place is required")
	}

	report, err := c.fetch(ctx, place)
	if err != nil && isTimeout(err) {
		report, err = c.fetch(ctx, place)
	}
	return report, err
}

func (c *Client) fetch(ctx context.Context, place string) (*Report, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	params.Set("lang", c.lang)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling weather API: %w", err)
	}
	defer resp.Body.Close()

	var body weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := body.Message
		if message == "" {
			message = "알 수 없는 오류"
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	report := &Report{
		TempC:    body.Main.Temp,
		Humidity: body.Main.Humidity,
	}
	if len(body.Weather) > 0 {
		report.Description = body.Weather[0].Description
	}

	return report, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
