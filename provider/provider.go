package provider

import (
	"context"
	"errors"
	"time"

	"github.com/stackai/search-relay/models"
	openai_provider "github.com/stackai/search-relay/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
)

// Provider is the interface all LLM implementations must satisfy.
type Provider interface {
	Summarize(ctx context.Context, query string, organic []models.OrganicResult) (string, error)
}

// NewProvider creates an LLM client for the given provider name.
func NewProvider(client Client, apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) (Provider, error) {
	switch client {
	case OpenAI:
		if apiKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewOpenAIClient(apiKey, model, temperature, maxTokens, timeout), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
