package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/agentloop"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/knowledge"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/metrics"
)

const handoffContextChars = 500

// Chat routes the message, retrieves context, runs the selected agent and
// follows at most one handoff. obs may be nil.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest, obs agentloop.Observer) (*domain.ChatResponse, error) {
	resp, err := s.chat(ctx, req, obs)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrInvalidRequest) || llm.IsConfigError(err) {
			outcome = "invalid"
		}
		emit(obs, domain.EventError, "", map[string]string{"message": err.Error()})
	}
	metrics.ChatRequests.WithLabelValues(outcome).Inc()
	return resp, err
}

func (s *Service) chat(ctx context.Context, req domain.ChatRequest, obs agentloop.Observer) (*domain.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, invalidf("message is required")
	}
	level, err := domain.ParseAutonomyLevel(req.Settings.Preferences.AutonomyLevel)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if req.AgentID != nil && !req.AgentID.Valid() {
		return nil, invalidf("unknown agent: %q", *req.AgentID)
	}
	llmCfg := llm.ConfigFromSettings(req.Settings.LLM)
	if err := llm.Validate(llmCfg); err != nil {
		return nil, err
	}
	if req.PendingActionID != "" && req.PendingActionDecision != "" {
		if _, err := s.DecideAction(ctx, domain.ActionDecisionRequest{
			ActionID: req.PendingActionID,
			Decision: req.PendingActionDecision,
		}); err != nil {
			return nil, err
		}
	}

	requestID := newID("req_")
	prefs := req.Settings.Preferences.Overrides()

	decision := s.router.Route(ctx, req.Message, req.AgentID, llmCfg)
	emit(obs, domain.EventRouted, decision.Agent, map[string]string{"tier": string(decision.Tier)})
	agent, ok := s.agents.Get(decision.Agent)
	if !ok {
		return nil, fmt.Errorf("no definition for agent %s", decision.Agent)
	}

	docs := s.retriever.Retrieve(ctx, req.Message, llmCfg, knowledge.Sources{
		ConfluenceEnabled: req.Settings.Integrations.Confluence.Enabled,
		Documents:         s.knowledgeDocs(ctx, req.Settings.KnowledgeDocs),
	})
	ragText := knowledge.FormatContext(docs)

	history := req.History
	if history == nil {
		history = []domain.ChatMessage{}
	}
	result, err := s.runner.Run(ctx, agentloop.Request{
		Agent:         agent,
		SystemPrompt:  s.agents.BuildSystemPrompt(agent.ID, req.StoreData, ragText, agent.Tools),
		UserMessage:   req.Message,
		History:       history,
		LLMConfig:     llmCfg,
		Level:         level,
		Prefs:         prefs,
		MaxIterations: s.iterations(agent),
		RAGContext:    docs,
		Observer:      obs,
	})
	if err != nil {
		return nil, err
	}
	s.persist(ctx, requestID, result)

	if result.HandoffTo != nil && *result.HandoffTo != agent.ID {
		target, ok := s.agents.Get(*result.HandoffTo)
		if !ok {
			return nil, fmt.Errorf("no definition for agent %s", *result.HandoffTo)
		}
		emit(obs, domain.EventHandoff, agent.ID, map[string]string{"to": string(target.ID)})
		metrics.Handoffs.WithLabelValues(string(agent.ID), string(target.ID)).Inc()
		s.logger.Info("following handoff", zap.String("from", string(agent.ID)), zap.String("to", string(target.ID)))

		message := fmt.Sprintf("[Handoff from %s]\nOriginal request: %s\nContext from %s: %s",
			agent.Name, req.Message, agent.Name, truncateRunes(result.Content, handoffContextChars))
		second, err := s.runner.Run(ctx, agentloop.Request{
			Agent:         target,
			SystemPrompt:  s.agents.BuildSystemPrompt(target.ID, req.StoreData, ragText, target.Tools),
			UserMessage:   message,
			History:       []domain.ChatMessage{},
			LLMConfig:     llmCfg,
			Level:         level,
			Prefs:         prefs,
			MaxIterations: s.iterations(target),
			RAGContext:    docs,
			Observer:      obs,
		})
		if err != nil {
			return nil, err
		}
		s.persist(ctx, requestID, second)

		result.Content = fmt.Sprintf("**%s:**\n%s\n\n---\n\n**%s** (supplementary analysis):\n%s",
			agent.Name, result.Content, target.Name, second.Content)
		result.ToolsExecuted = append(result.ToolsExecuted, second.ToolsExecuted...)
		result.PendingActions = append(result.PendingActions, second.PendingActions...)
		result.Sources = append(result.Sources, second.Sources...)
	}

	return &domain.ChatResponse{
		RequestID:      requestID,
		Response:       result.Content,
		AgentID:        result.AgentID,
		AgentName:      result.AgentName,
		ToolsExecuted:  result.ToolsExecuted,
		PendingActions: result.PendingActions,
		RAGContext:     result.RAGContext,
		Sources:        result.Sources,
	}, nil
}

// iterations caps the agent's own budget by the service-wide limit.
func (s *Service) iterations(agent domain.Agent) int {
	n := agent.MaxIterations
	if limit := s.config.MaxAgentIterations; limit > 0 && n > limit {
		n = limit
	}
	return n
}

// knowledgeDocs returns the inline documents, or the stored ones when the request carries none.
func (s *Service) knowledgeDocs(ctx context.Context, inline []domain.KnowledgeDocRef) []domain.KnowledgeDocRef {
	if inline != nil || s.store == nil {
		return inline
	}
	stored, err := s.store.ListKnowledgeDocuments(ctx)
	if err != nil {
		s.logger.Warn("failed to list knowledge documents", zap.Error(err))
		return nil
	}
	refs := make([]domain.KnowledgeDocRef, 0, len(stored))
	for _, d := range stored {
		refs = append(refs, domain.KnowledgeDocRef{
			ID:            d.ID,
			SourceType:    d.SourceType,
			SourceName:    d.SourceName,
			Content:       d.Content,
			ContentChunks: d.ContentChunks,
		})
	}
	return refs
}

// persist stores the audit trail of a loop run. Storage failures never fail the request.
func (s *Service) persist(ctx context.Context, requestID string, resp *domain.AgentResponse) {
	if s.store == nil {
		return
	}
	for i := range resp.PendingActions {
		if err := s.store.CreatePendingAction(ctx, &resp.PendingActions[i]); err != nil {
			s.logger.Error("failed to save pending action", zap.String("action_id", resp.PendingActions[i].ID), zap.Error(err))
		}
	}
	for i := range resp.ToolsExecuted {
		if err := s.store.RecordToolExecution(ctx, requestID, resp.AgentID, &resp.ToolsExecuted[i]); err != nil {
			s.logger.Error("failed to record tool execution", zap.String("request_id", requestID), zap.Error(err))
		}
	}
}

// ListToolExecutions returns the audit trail recorded for a chat request.
func (s *Service) ListToolExecutions(ctx context.Context, requestID string) ([]domain.ToolExecution, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, invalidf("request_id is required")
	}
	if s.store == nil {
		return []domain.ToolExecution{}, nil
	}
	execs, err := s.store.ListToolExecutions(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool executions: %w", err)
	}
	return execs, nil
}

func emit(obs agentloop.Observer, typ domain.EventType, agent domain.AgentID, payload any) {
	if obs == nil {
		return
	}
	ev := domain.Event{Type: typ, AgentID: agent, Ts: time.Now().UnixMilli()}
	if b, err := json.Marshal(payload); err == nil {
		ev.Payload = b
	}
	obs(ev)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
