package llm

import (
	"context"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

func (p *ProviderClient) chatAnthropic(ctx context.Context, cfg Config, model string, messages []domain.ChatMessage, opts Options) (string, error) {
	clientOpts := []anthropic.ClientOption{anthropic.WithHTTPClient(p.httpClient)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")))
	}
	client := anthropic.NewClient(cfg.APIKey, clientOpts...)

	// The last system message wins; everything else is user or assistant.
	var system string
	msgs := make([]anthropic.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = m.Content
		case domain.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantTextMessage(m.Content))
		default:
			msgs = append(msgs, anthropic.NewUserTextMessage(m.Content))
		}
	}

	temperature := opts.Temperature
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: &temperature,
	}
	if system != "" {
		req.System = system
	}

	resp, err := client.CreateMessages(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	return sb.String(), nil
}
