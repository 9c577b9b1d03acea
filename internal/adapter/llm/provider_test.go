package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

func testMessages() []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hello"},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Config{Provider: ProviderOpenAI}))
	assert.NoError(t, Validate(Config{Provider: ProviderOllama}))

	err := Validate(Config{Provider: "cohere"})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "unsupported LLM provider: cohere")

	assert.True(t, IsConfigError(Validate(Config{Provider: ProviderAzure})))
	assert.True(t, IsConfigError(Validate(Config{Provider: ProviderZAI, Endpoint: "  "})))
}

func TestModelFor(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-20250514", ModelFor(Config{Provider: ProviderAnthropic}))
	assert.Equal(t, "gemini-2.0-flash", ModelFor(Config{Provider: ProviderGemini}))
	assert.Equal(t, "llama3", ModelFor(Config{Provider: ProviderOllama}))
	assert.Equal(t, "custom", ModelFor(Config{Provider: ProviderOpenAI, Model: "custom"}))
}

func TestConfigFromSettingsDefaultsProvider(t *testing.T) {
	cfg := ConfigFromSettings(domain.LLMSettings{APIKey: "k"})
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "k", cfg.APIKey)
}

func TestChatRejectsUnsupportedProviderWithoutNetwork(t *testing.T) {
	client := NewProviderClient(time.Second, nil)
	_, err := client.Chat(context.Background(), Config{Provider: "nope"}, testMessages(), Options{})
	assert.True(t, IsConfigError(err))
}

func openAIHandler(t *testing.T, content string, seen *map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}
}

func TestChatZAICompatible(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		openAIHandler(t, "hi there", &body)(w, r)
	}))
	defer srv.Close()

	client := NewProviderClient(5*time.Second, nil)
	out, err := client.Chat(context.Background(),
		Config{Provider: ProviderZAI, APIKey: "secret", Endpoint: srv.URL + "/"},
		testMessages(), Options{Temperature: 0.3, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, "gpt-4", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestChatAzureDeploymentPath(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		assert.Equal(t, "azkey", r.Header.Get("api-key"))
		openAIHandler(t, "azure says hi", nil)(w, r)
	}))
	defer srv.Close()

	client := NewProviderClient(5*time.Second, nil)
	out, err := client.Chat(context.Background(),
		Config{Provider: ProviderAzure, APIKey: "azkey", Endpoint: srv.URL, Model: "gpt-4.1"},
		testMessages(), Options{Temperature: 0.1, MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "azure says hi", out)
	assert.True(t, strings.HasPrefix(gotURL, "/openai/deployments/gpt-4.1/chat/completions"), gotURL)
	assert.Contains(t, gotURL, "api-version=2024-02-01")
}

func TestChatEmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(openAIHandler(t, "", nil))
	defer srv.Close()

	client := NewProviderClient(5*time.Second, nil)
	_, err := client.Chat(context.Background(),
		Config{Provider: ProviderZAI, Endpoint: srv.URL}, testMessages(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
	assert.False(t, IsConfigError(err))
}

func TestChatUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewProviderClient(5*time.Second, nil)
	_, err := client.Chat(context.Background(),
		Config{Provider: ProviderZAI, Endpoint: srv.URL}, testMessages(), Options{})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, ProviderZAI, upstream.Provider)
}

func TestChatAnthropic(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ant-key", r.Header.Get("x-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-20250514",
			"content":     []map[string]any{{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 3, "output_tokens": 2},
		})
	}))
	defer srv.Close()

	client := NewProviderClient(5*time.Second, nil)
	out, err := client.Chat(context.Background(),
		Config{Provider: ProviderAnthropic, APIKey: "ant-key", Endpoint: srv.URL},
		testMessages(), Options{Temperature: 0.5, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, "be brief", body["system"])
	assert.Len(t, body["messages"], 1)
}

func TestNewClientMockMode(t *testing.T) {
	t.Setenv(EnvLLMMode, ModeMock)
	_, ok := NewClient(time.Second, nil).(*MockClient)
	assert.True(t, ok)

	t.Setenv(EnvLLMMode, "")
	_, ok = NewClient(time.Second, nil).(*ProviderClient)
	assert.True(t, ok)
}

func TestMockClientScript(t *testing.T) {
	m := NewMockClient("first")
	m.Enqueue(Reply{Err: ErrMockFailure})

	ctx := context.Background()
	out, err := m.Chat(ctx, Config{}, testMessages(), Options{MaxTokens: 1})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	_, err = m.Chat(ctx, Config{}, testMessages(), Options{})
	assert.ErrorIs(t, err, ErrMockFailure)

	out, err = m.Chat(ctx, Config{}, testMessages(), Options{})
	require.NoError(t, err)
	assert.Contains(t, out, `"hello"`)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, 1, calls[0].Options.MaxTokens)
}
