// Package config provides configuration for the agent service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the agent service configuration.
type Config struct {
	// Server settings
	Port        int
	CORSOrigins []string

	// Integration backend that serves /api/integrations/*
	NextJSBaseURL string

	// Database
	DatabaseURL string

	// Agent loop
	MaxAgentIterations int
	AutonomyEngine     string

	// Knowledge retrieval
	RAGMaxTokens int
	RAGMaxDocs   int

	// Knowledge ingestion
	KBMaxFileSize     int
	KBMaxContentChars int
	KBChunkSize       int
	KBChunkOverlap    int

	// Timeouts
	ToolTimeout   time.Duration
	LLMTimeout    time.Duration
	ScrapeTimeout time.Duration

	// Logging
	LogLevel string
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvInt("AGENT_SERVICE_PORT", 8100),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		NextJSBaseURL:      getEnv("NEXTJS_BASE_URL", "http://localhost:3000"),
		DatabaseURL:        getEnv("DATABASE_URL", ":memory:"),
		MaxAgentIterations: getEnvInt("MAX_AGENT_ITERATIONS", 5),
		AutonomyEngine:     getEnv("AUTONOMY_ENGINE", "builtin"),
		RAGMaxTokens:       getEnvInt("RAG_MAX_TOKENS", 4000),
		RAGMaxDocs:         getEnvInt("RAG_MAX_DOCS", 5),
		KBMaxFileSize:      getEnvInt("KB_MAX_FILE_SIZE", 5*1024*1024),
		KBMaxContentChars:  getEnvInt("KB_MAX_CONTENT_CHARS", 50000),
		KBChunkSize:        getEnvInt("KB_CHUNK_SIZE", 500),
		KBChunkOverlap:     getEnvInt("KB_CHUNK_OVERLAP", 50),
		ToolTimeout:        time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 30000)) * time.Millisecond,
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		ScrapeTimeout:      time.Duration(getEnvInt("SCRAPE_TIMEOUT_MS", 30000)) * time.Millisecond,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
