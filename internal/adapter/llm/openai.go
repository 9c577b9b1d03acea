package llm

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

const azureAPIVersion = "2024-02-01"

// openAIClientConfig builds the SDK config for the OpenAI-compatible providers.
func openAIClientConfig(cfg Config) openai.ClientConfig {
	switch cfg.Provider {
	case ProviderAzure:
		oc := openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
		oc.APIVersion = azureAPIVersion
		// deployment names are used verbatim
		oc.AzureModelMapperFunc = func(model string) string { return model }
		return oc
	case ProviderZAI:
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
		return oc
	case ProviderOllama:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOllamaEndpoint
		}
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = strings.TrimRight(endpoint, "/") + "/v1"
		return oc
	}
	return openai.DefaultConfig(cfg.APIKey)
}

func (p *ProviderClient) chatOpenAICompatible(ctx context.Context, cfg Config, model string, messages []domain.ChatMessage, opts Options) (string, error) {
	oc := openAIClientConfig(cfg)
	oc.HTTPClient = p.httpClient
	client := openai.NewClientWithConfig(oc)

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
