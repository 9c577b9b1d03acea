package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AGENT_SERVICE_PORT", "")
	t.Setenv("NEXTJS_BASE_URL", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, 8100, cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.NextJSBaseURL)
	assert.Equal(t, ":memory:", cfg.DatabaseURL)
	assert.Equal(t, 4000, cfg.RAGMaxTokens)
	assert.Equal(t, 5, cfg.RAGMaxDocs)
	assert.Equal(t, 5*1024*1024, cfg.KBMaxFileSize)
	assert.Equal(t, 500, cfg.KBChunkSize)
	assert.Equal(t, 50, cfg.KBChunkOverlap)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AGENT_SERVICE_PORT", "9000")
	t.Setenv("MAX_AGENT_ITERATIONS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("AUTONOMY_ENGINE", "rego")

	cfg := Load()
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5, cfg.MaxAgentIterations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "rego", cfg.AutonomyEngine)
}
