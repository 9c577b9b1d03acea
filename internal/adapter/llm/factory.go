package llm

import (
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	// EnvLLMMode is the environment variable name for mode selection.
	EnvLLMMode = "AGENT_LLM_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewClient returns a MockClient when AGENT_LLM_MODE=MOCK, otherwise a ProviderClient.
func NewClient(timeout time.Duration, logger *zap.Logger) Client {
	if os.Getenv(EnvLLMMode) == ModeMock {
		if logger != nil {
			logger.Info("AGENT_LLM_MODE=MOCK detected, using mock LLM client")
		}
		return NewMockClient()
	}
	return NewProviderClient(timeout, logger)
}
