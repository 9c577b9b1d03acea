// Package llm provides an abstraction over the supported language-model providers.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Client sends a conversation to a language model and returns the reply text.
type Client interface {
	Chat(ctx context.Context, cfg Config, messages []domain.ChatMessage, opts Options) (string, error)
}

// Config selects the provider and model for one request.
type Config struct {
	Provider string
	APIKey   string
	Endpoint string
	Model    string
}

// ConfigFromSettings converts request settings into a Config. Provider defaults to openai.
func ConfigFromSettings(s domain.LLMSettings) Config {
	provider := s.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}
	return Config{
		Provider: provider,
		APIKey:   s.APIKey,
		Endpoint: s.APIEndpoint,
		Model:    s.Model,
	}
}

// Options bounds a single completion.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// ConfigError reports an invalid provider configuration. It is raised before any network call.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid llm config (%s): %s", e.Field, e.Message)
}

// UpstreamError wraps a provider failure.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response")

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
