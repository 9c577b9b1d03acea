// Package agentloop runs one agent: model call, tool calls through the autonomy
// gate, results fed back, until the model answers without tools.
package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/autonomy"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/metrics"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/tools"
)

// MaxTokens is the output budget of every loop model call.
const MaxTokens = 4096

const continueInstruction = "\n\nPlease continue with your analysis based on these results. " +
	"If you have all the information you need, provide your final response without any tool calls."

var handoffPattern = regexp.MustCompile(`(?i)\[HANDOFF:\s*(strategy|discovery|risk|communications|advisor|thinker)\]`)

// Observer receives progress events. It is called synchronously from the loop.
type Observer func(domain.Event)

// Request is the input of one loop run.
type Request struct {
	Agent         domain.Agent
	SystemPrompt  string
	UserMessage   string
	History       []domain.ChatMessage
	LLMConfig     llm.Config
	Level         domain.AutonomyLevel
	Prefs         domain.Preferences
	MaxIterations int
	RAGContext    []domain.RetrievedDocument
	Observer      Observer
}

// Runner executes agent loops. It holds no per-run state.
type Runner struct {
	llm     llm.Client
	gate    autonomy.Gatekeeper
	invoker tools.Invoker
	logger  *zap.Logger
}

// New creates a runner.
func New(client llm.Client, gate autonomy.Gatekeeper, invoker tools.Invoker, logger *zap.Logger) *Runner {
	if gate == nil {
		gate = autonomy.Builtin{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{llm: client, gate: gate, invoker: invoker, logger: logger}
}

// run is the state owned by a single invocation.
type run struct {
	req      Request
	messages []domain.ChatMessage
	executed []domain.ToolExecution
	pending  []domain.PendingAction
}

// Run drives the loop for req.Agent. Tool failures are folded into the
// conversation; a model call failure aborts the run and is returned.
func (r *Runner) Run(ctx context.Context, req Request) (*domain.AgentResponse, error) {
	st := &run{req: req}
	st.messages = make([]domain.ChatMessage, 0, len(req.History)+2)
	st.messages = append(st.messages, domain.ChatMessage{Role: domain.RoleSystem, Content: req.SystemPrompt})
	st.messages = append(st.messages, req.History...)
	st.messages = append(st.messages, domain.ChatMessage{Role: domain.RoleUser, Content: req.UserMessage})

	opts := llm.Options{Temperature: req.Agent.Temperature, MaxTokens: MaxTokens}
	agentID := req.Agent.ID

	var final string
	iterations := 0
	for i := 0; i < req.MaxIterations; i++ {
		iterations = i + 1

		emit(req.Observer, domain.EventLLMCall, agentID, iterations, nil)
		reply, err := r.llm.Chat(ctx, req.LLMConfig, st.messages, opts)
		if err != nil {
			r.logger.Error("agent model call failed",
				zap.String("agent", string(agentID)), zap.Int("iteration", iterations), zap.Error(err))
			return nil, fmt.Errorf("agent %s iteration %d: %w", agentID, iterations, err)
		}

		calls := tools.ParseToolCalls(reply)
		if len(calls) == 0 {
			final = reply
			break
		}

		results := make([]string, 0, len(calls))
		for _, call := range calls {
			results = append(results, r.handleCall(ctx, st, iterations, call))
		}

		st.messages = append(st.messages,
			domain.ChatMessage{Role: domain.RoleAssistant, Content: reply},
			domain.ChatMessage{Role: domain.RoleUser, Content: "[Tool Results]\n" + strings.Join(results, "\n\n") + continueInstruction},
		)
	}

	if final == "" {
		emit(req.Observer, domain.EventLLMCall, agentID, iterations, map[string]any{"finalizing": true})
		reply, err := r.llm.Chat(ctx, req.LLMConfig, st.messages, opts)
		if err != nil {
			r.logger.Error("agent finalizing call failed", zap.String("agent", string(agentID)), zap.Error(err))
			return nil, fmt.Errorf("agent %s final call: %w", agentID, err)
		}
		final = tools.StripToolBlocks(reply)
	}

	metrics.LoopIterations.WithLabelValues(string(agentID)).Observe(float64(iterations))

	resp := &domain.AgentResponse{
		AgentID:        agentID,
		AgentName:      req.Agent.Name,
		Content:        final,
		ToolsExecuted:  nonNil(st.executed),
		PendingActions: nonNil(st.pending),
		HandoffTo:      DetectHandoff(final),
		RAGContext:     nonNil(req.RAGContext),
		Sources:        []domain.SourceAttribution{},
		Iterations:     iterations,
	}
	emit(req.Observer, domain.EventFinal, agentID, iterations, map[string]any{
		"content":    final,
		"handoff_to": resp.HandoffTo,
	})
	return resp, nil
}

// handleCall gates one tool call, records its outcome and returns the text fed back to the model.
func (r *Runner) handleCall(ctx context.Context, st *run, iteration int, call domain.ToolCall) string {
	req := st.req
	decision := r.gate.Decide(ctx, call.Name, req.Level, req.Prefs)
	emit(req.Observer, domain.EventToolDecision, req.Agent.ID, iteration, map[string]any{
		"tool":     call.Name,
		"decision": decision,
	})

	record := domain.ToolExecution{
		ToolName:  call.Name,
		Arguments: call.Arguments,
		Timestamp: time.Now().UTC(),
	}

	var text string
	switch decision {
	case domain.DecisionExecute:
		res := r.invoker.Execute(ctx, call.Name, call.Arguments)
		content := res.Content
		record.Result = &content
		record.Status = domain.ToolStatusExecuted
		if res.IsError {
			record.Status = domain.ToolStatusFailed
		}
		text = fmt.Sprintf("Tool \"%s\" result:\n%s", call.Name, res.Content)

	case domain.DecisionGate:
		action := domain.PendingAction{
			ID:            NewActionID(),
			AgentID:       req.Agent.ID,
			ToolName:      call.Name,
			ToolArguments: call.Arguments,
			Description:   r.invoker.Describe(call.Name, call.Arguments),
			Status:        domain.ActionStatusPending,
			CreatedAt:     record.Timestamp,
		}
		st.pending = append(st.pending, action)
		record.Status = domain.ToolStatusPending
		text = fmt.Sprintf("Tool \"%s\" requires approval. Action queued for user review.", call.Name)

	default:
		record.Status = domain.ToolStatusBlocked
		text = fmt.Sprintf("Tool \"%s\" would %s — but execution is disabled in %s mode.",
			call.Name, r.invoker.Describe(call.Name, call.Arguments), req.Level)
	}

	st.executed = append(st.executed, record)
	metrics.ToolDecisions.WithLabelValues(call.Name, string(record.Status)).Inc()
	emit(req.Observer, domain.EventToolResult, req.Agent.ID, iteration, record)
	r.logger.Debug("tool call handled",
		zap.String("agent", string(req.Agent.ID)),
		zap.String("tool", call.Name),
		zap.String("status", string(record.Status)))
	return text
}

// DetectHandoff returns the agent named by the first handoff marker in content.
func DetectHandoff(content string) *domain.AgentID {
	m := handoffPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	id := domain.AgentID(strings.ToLower(m[1]))
	return &id
}

// NewActionID returns a pending action identifier, "pa_" plus 12 hex digits.
func NewActionID() string {
	return "pa_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func emit(obs Observer, typ domain.EventType, agent domain.AgentID, iteration int, payload any) {
	if obs == nil {
		return
	}
	ev := domain.Event{Type: typ, AgentID: agent, Iteration: iteration, Ts: time.Now().UnixMilli()}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			ev.Payload = b
		}
	}
	obs(ev)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
