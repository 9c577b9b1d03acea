package domain

import (
	"encoding/json"
	"time"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolCall is a tool invocation parsed from model output.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolExecution records what happened to one tool call.
type ToolExecution struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Result    *string        `json:"result"`
	Status    ToolStatus     `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

// PendingAction is a gated tool call awaiting a human decision.
type PendingAction struct {
	ID            string         `json:"id"`
	AgentID       AgentID        `json:"agent_id"`
	ToolName      string         `json:"tool_name"`
	ToolArguments map[string]any `json:"tool_arguments"`
	Description   string         `json:"description"`
	Status        ActionStatus   `json:"status"`
	Result        *string        `json:"result"`
	CreatedAt     time.Time      `json:"created_at"`
}

// RetrievedDocument is a ranked passage injected into the prompt.
type RetrievedDocument struct {
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	Content    string  `json:"content"`
	Relevance  float64 `json:"relevance"`
}

// SourceAttribution ties a statement to its origin.
type SourceAttribution struct {
	SourceType  string   `json:"source_type"`
	SourceID    string   `json:"source_id"`
	SourceLabel string   `json:"source_label"`
	Excerpt     *string  `json:"excerpt,omitempty"`
	Relevance   *float64 `json:"relevance,omitempty"`
}

// AgentResponse is the terminal output of one loop run.
type AgentResponse struct {
	AgentID        AgentID              `json:"agent_id"`
	AgentName      string               `json:"agent_name"`
	Content        string               `json:"content"`
	ToolsExecuted  []ToolExecution      `json:"tools_executed"`
	PendingActions []PendingAction      `json:"pending_actions"`
	HandoffTo      *AgentID             `json:"handoff_to,omitempty"`
	RAGContext     []RetrievedDocument  `json:"rag_context"`
	Sources        []SourceAttribution  `json:"sources"`
	Iterations     int                  `json:"iterations"`
}

// Agent is the static definition of an agent persona.
type Agent struct {
	ID            AgentID  `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	Icon          string   `json:"icon" yaml:"icon"`
	Color         string   `json:"color" yaml:"color"`
	Temperature   float32  `json:"temperature" yaml:"temperature"`
	MaxIterations int      `json:"max_iterations" yaml:"max_iterations"`
	Tools         []string `json:"tools" yaml:"tools"`
	Capabilities  []string `json:"capabilities" yaml:"capabilities"`
}

// StoreData is a snapshot of the front-end's product state.
type StoreData struct {
	Initiatives  []map[string]any `json:"initiatives"`
	Risks        []map[string]any `json:"risks"`
	RoadmapItems []map[string]any `json:"roadmap_items"`
	Meetings     []map[string]any `json:"meetings"`
}

// KnowledgeDocument is an ingested file or scraped page.
type KnowledgeDocument struct {
	ID            string    `json:"id"`
	SourceType    string    `json:"source_type"`
	SourceName    string    `json:"source_name"`
	SourceURL     string    `json:"source_url,omitempty"`
	FileType      string    `json:"file_type,omitempty"`
	FileSize      int       `json:"file_size,omitempty"`
	Domain        string    `json:"domain,omitempty"`
	Content       string    `json:"content"`
	ContentChunks []string  `json:"content_chunks"`
	CharCount     int       `json:"char_count"`
	ChunkCount    int       `json:"chunk_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Event is emitted while a chat request is processed.
type Event struct {
	Type      EventType       `json:"type"`
	AgentID   AgentID         `json:"agent_id,omitempty"`
	Iteration int             `json:"iteration,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Ts        int64           `json:"ts"`
}
