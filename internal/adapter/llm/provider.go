package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderAzure     = "azure"
	ProviderGemini    = "gemini"
	ProviderZAI       = "z-ai"
	ProviderOllama    = "ollama"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// DefaultModels maps providers to the model used when none is configured.
var DefaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderAzure:     "gpt-4",
	ProviderGemini:    "gemini-2.0-flash",
	ProviderZAI:       "gpt-4",
	ProviderOllama:    "llama3",
}

// ProviderClient dispatches Chat to the configured provider SDK.
type ProviderClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Client = (*ProviderClient)(nil)

// NewProviderClient creates a client whose provider calls time out after timeout.
func NewProviderClient(timeout time.Duration, logger *zap.Logger) *ProviderClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Validate checks cfg without touching the network.
func Validate(cfg Config) error {
	switch cfg.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama:
		return nil
	case ProviderAzure, ProviderZAI:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return &ConfigError{Field: "apiEndpoint", Message: cfg.Provider + " requires an API endpoint"}
		}
		return nil
	}
	return &ConfigError{Field: "provider", Message: "unsupported LLM provider: " + cfg.Provider}
}

// ModelFor returns the configured model or the provider default.
func ModelFor(cfg Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if m, ok := DefaultModels[cfg.Provider]; ok {
		return m
	}
	return "gpt-4"
}

// Chat implements Client.
func (p *ProviderClient) Chat(ctx context.Context, cfg Config, messages []domain.ChatMessage, opts Options) (string, error) {
	if err := Validate(cfg); err != nil {
		return "", err
	}
	model := ModelFor(cfg)
	start := time.Now()

	var (
		content string
		err     error
	)
	switch cfg.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderZAI, ProviderOllama:
		content, err = p.chatOpenAICompatible(ctx, cfg, model, messages, opts)
	case ProviderAnthropic:
		content, err = p.chatAnthropic(ctx, cfg, model, messages, opts)
	case ProviderGemini:
		content, err = p.chatGemini(ctx, cfg, model, messages, opts)
	}

	p.logger.Debug("llm call",
		zap.String("provider", cfg.Provider),
		zap.String("model", model),
		zap.Int("messages", len(messages)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return "", &UpstreamError{Provider: cfg.Provider, Err: err}
	}
	if content == "" {
		return "", &UpstreamError{Provider: cfg.Provider, Err: ErrEmptyResponse}
	}
	return content, nil
}
