// Package llm provides OpenAI-compatible generation and embedding clients.
// The same wire protocol covers hosted OpenAI and local servers such as
// Ollama's /v1 endpoint; which one is used is a deployment choice.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the generation service responds without any completion.
var ErrNoChoices = errors.New("no completion choices returned")

// ClientConfig configures a generation client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
}

// Client is a free-text and structured generation client.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewClient creates a generation client. BaseURL may be empty for the
// default OpenAI endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("generation model not configured")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends prompt as a single user message and returns the trimmed
// completion text. Transport failures and timeouts surface as errors; the
// answer composer converts them into a user-visible error string.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateJSON sends a system instruction plus user text and requests a JSON
// object response. The raw JSON string is returned; schema validation happens
// at the caller's parse boundary.
func (c *Client) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("structured completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
