package llm

import "context"

// Options carries optional sampling controls for a completion. Nil fields
// leave the provider defaults in place.
type Options struct {
	Temperature     *float64
	MaxOutputTokens *int64
}

// Client defines the interface for language model providers
type Client interface {
	// Complete sends a single user prompt and returns the model's text reply
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	// Close closes the client and releases resources
	Close() error
}

// Temperature is a convenience for building Options literals
func Temperature(t float64) *float64 { return &t }

// MaxTokens is a convenience for building Options literals
func MaxTokens(n int64) *int64 { return &n }
