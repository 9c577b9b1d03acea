package domain

import (
	"encoding/json"
	"fmt"
)

// ChatRequest is the body of POST /agent/chat.
type ChatRequest struct {
	Message               string        `json:"message"`
	History               []ChatMessage `json:"history"`
	Settings              ChatSettings  `json:"settings"`
	StoreData             *StoreData    `json:"store_data,omitempty"`
	AgentID               *AgentID      `json:"agent_id,omitempty"`
	PendingActionID       string        `json:"pending_action_id,omitempty"`
	PendingActionDecision string        `json:"pending_action_decision,omitempty"`
}

// ChatSettings carries the caller's provider, preference and integration settings.
type ChatSettings struct {
	LLM           LLMSettings        `json:"llm"`
	Preferences   PreferenceSettings `json:"preferences"`
	Integrations  Integrations       `json:"integrations"`
	KnowledgeDocs []KnowledgeDocRef  `json:"_knowledgeDocs"`
}

// LLMSettings selects the language-model provider.
type LLMSettings struct {
	Provider    string `json:"provider"`
	APIKey      string `json:"apiKey"`
	APIEndpoint string `json:"apiEndpoint"`
	Model       string `json:"model"`
}

// PreferenceSettings holds autonomy preferences.
type PreferenceSettings struct {
	AutonomyLevel         string `json:"autonomyLevel"`
	AutoSendEmails        bool   `json:"autoSendEmails"`
	AutoCreateJiraStories bool   `json:"autoCreateJiraStories"`
}

// Overrides converts the boolean settings to gate preferences.
func (p PreferenceSettings) Overrides() Preferences {
	return Preferences{
		PrefAutoSendEmails:        p.AutoSendEmails,
		PrefAutoCreateJiraStories: p.AutoCreateJiraStories,
	}
}

// Integrations reports which integrations are connected.
type Integrations struct {
	Confluence struct {
		Enabled bool `json:"enabled"`
	} `json:"confluence"`
}

// KnowledgeDocRef is a knowledge document supplied inline with a chat request.
type KnowledgeDocRef struct {
	ID            string   `json:"id"`
	SourceType    string   `json:"source_type"`
	SourceName    string   `json:"source_name"`
	Content       string   `json:"content"`
	ContentChunks []string `json:"-"`
}

// UnmarshalJSON accepts content_chunks as a list or as a JSON-encoded string.
// Undecodable chunk strings fall back to the whole content as one chunk.
func (k *KnowledgeDocRef) UnmarshalJSON(data []byte) error {
	type alias KnowledgeDocRef
	var raw struct {
		alias
		ContentChunks json.RawMessage `json:"content_chunks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*k = KnowledgeDocRef(raw.alias)
	if len(raw.ContentChunks) == 0 || string(raw.ContentChunks) == "null" {
		return nil
	}

	var chunks []string
	if err := json.Unmarshal(raw.ContentChunks, &chunks); err == nil {
		k.ContentChunks = chunks
		return nil
	}
	var encoded string
	if err := json.Unmarshal(raw.ContentChunks, &encoded); err != nil {
		return fmt.Errorf("content_chunks must be a list or string: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &chunks); err != nil {
		k.ContentChunks = []string{k.Content}
		return nil
	}
	k.ContentChunks = chunks
	return nil
}

// MarshalJSON writes content_chunks back as a list.
func (k KnowledgeDocRef) MarshalJSON() ([]byte, error) {
	type alias KnowledgeDocRef
	return json.Marshal(struct {
		alias
		ContentChunks []string `json:"content_chunks"`
	}{alias(k), k.ContentChunks})
}

// ChatResponse is the body returned by POST /agent/chat.
type ChatResponse struct {
	RequestID      string              `json:"request_id"`
	Response       string              `json:"response"`
	AgentID        AgentID             `json:"agent_id"`
	AgentName      string              `json:"agent_name"`
	ToolsExecuted  []ToolExecution     `json:"tools_executed"`
	PendingActions []PendingAction     `json:"pending_actions"`
	RAGContext     []RetrievedDocument `json:"rag_context"`
	Sources        []SourceAttribution `json:"sources"`
}

// ActionDecisionRequest is the body of POST /agent/action.
type ActionDecisionRequest struct {
	ActionID      string         `json:"action_id"`
	Decision      string         `json:"decision"`
	ToolName      string         `json:"tool_name"`
	ToolArguments map[string]any `json:"tool_arguments"`
}

// ActionDecisionResponse is the result of an approve or reject decision.
type ActionDecisionResponse struct {
	Status   string  `json:"status"`
	ActionID string  `json:"action_id"`
	Result   *string `json:"result,omitempty"`
	IsError  *bool   `json:"is_error,omitempty"`
}

// AgentSummary is the public description of an agent.
type AgentSummary struct {
	ID           AgentID  `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Icon         string   `json:"icon"`
	Color        string   `json:"color"`
	Capabilities []string `json:"capabilities"`
}

// ScrapeRequest is the body of POST /knowledge/scrape.
type ScrapeRequest struct {
	URL string `json:"url"`
}
