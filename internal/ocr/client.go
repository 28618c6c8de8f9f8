package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the OCR.space parse endpoint
const DefaultBaseURL = "https://api.ocr.space/parse/image"

// ProviderError is an application-level failure reported by the OCR provider
// (processing failed, no text found). It is descriptive, not a transport
// fault, and its message is safe to show the user.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ocr provider: %s", e.Message)
}

// Client submits images to an OCR.space-compatible provider
type Client struct {
	baseURL  string
	apiKey   string
	language string
	engine   string
	client   *http.Client
}

// NewClient creates an OCR client. The language hint defaults to Korean and
// the engine selector to "2", which handles Korean receipts noticeably
// better than engine 1.
func NewClient(apiKey, baseURL, language, engine string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ocr api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = "kor"
	}
	if engine == "" {
		engine = "2"
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		language: language,
		engine:   engine,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// errorMessage absorbs the provider's inconsistent ErrorMessage field, which
// is sometimes a string and sometimes an array of strings
type errorMessage string

func (m *errorMessage) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = errorMessage(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*m = errorMessage(strings.Join(many, "; "))
		return nil
	}
	*m = errorMessage(string(data))
	return nil
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool         `json:"IsErroredOnProcessing"`
	ErrorMessage          errorMessage `json:"ErrorMessage"`
}

// ParseImage submits a JPEG image and returns the raw recognized text.
// Orientation detection and up-scaling are always enabled; receipts arrive
// photographed at every possible angle.
func (c *Client) ParseImage(ctx context.Context, jpegData []byte) (string, error) {
	form := url.Values{}
	form.Set("base64Image", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(jpegData))
	form.Set("language", c.language)
	form.Set("OCREngine", c.engine)
	form.Set("detectOrientation", "true")
	form.Set("scale", "true")

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ocr API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr API returned status %d", resp.StatusCode)
	}

	var body parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if body.IsErroredOnProcessing {
		message := string(body.ErrorMessage)
		if message == "" {
			message = "processing failed"
		}
		return "", &ProviderError{Message: message}
	}

	if len(body.ParsedResults) == 0 || strings.TrimSpace(body.ParsedResults[0].ParsedText) == "" {
		return "", &ProviderError{Message: "no text recognized"}
	}

	return body.ParsedResults[0].ParsedText, nil
}
