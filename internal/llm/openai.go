package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultTogetherBaseURL points at Together's OpenAI-compatible endpoint
const DefaultTogetherBaseURL = "https://api.together.xyz/v1"

// OpenAI implements the Client interface against any OpenAI-compatible
// chat-completion endpoint. Together hosts the Qwen model this project
// defaults to, but the base URL is configurable.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI-compatible client instance
func NewOpenAI(apiKey, baseURL, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultTogetherBaseURL
	}
	if modelName == "" {
		modelName = "Qwen/Qwen2.5-72B-Instruct-Turbo"
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(60*time.Second),
	)

	return &OpenAI{
		client: client,
		model:  modelName,
	}, nil
}

// Complete sends a single user prompt and returns the model's reply
func (o *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.MaxOutputTokens != nil {
		params.MaxTokens = openai.Int(*opts.MaxOutputTokens)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("calling chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close closes the client (no-op for the HTTP-backed client)
func (o *OpenAI) Close() error {
	return nil
}
