package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/autonomy"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Engine is the OPA policy engine for tool autonomy decisions.
type Engine struct {
	query  rego.PreparedEvalQuery
	logger *zap.Logger
}

var _ autonomy.Gatekeeper = (*Engine)(nil)

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string, logger *zap.Logger) (*Engine, error) {
	r := rego.New(
		rego.Query("data.autonomy.decision"),
		rego.Module("autonomy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{query: query, logger: logger}, nil
}

// Evaluate runs the policy against the input and returns the raw decision string.
func (e *Engine) Evaluate(ctx context.Context, input map[string]any) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "", fmt.Errorf("policy produced no decision")
	}

	val := results[0].Expressions[0].Value
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected decision type %T", val)
	}
	return s, nil
}

// Decide implements autonomy.Gatekeeper. Any evaluation failure blocks the call.
func (e *Engine) Decide(ctx context.Context, tool string, level domain.AutonomyLevel, prefs domain.Preferences) domain.GateDecision {
	p := make(map[string]any, len(prefs))
	for k, v := range prefs {
		p[string(k)] = v
	}
	input := map[string]any{
		"tool_name":   tool,
		"level":       string(level),
		"preferences": p,
	}

	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		e.logger.Warn("policy evaluation failed, blocking tool", zap.String("tool", tool), zap.Error(err))
		return domain.DecisionBlock
	}

	switch d := domain.GateDecision(decision); d {
	case domain.DecisionExecute, domain.DecisionGate, domain.DecisionBlock:
		return d
	}
	e.logger.Warn("policy returned unknown decision", zap.String("decision", decision))
	return domain.DecisionBlock
}

// DefaultPolicy mirrors autonomy.Decide.
const DefaultPolicy = `
package autonomy

default decision := "block"

read_only := {"jira_search_issues", "jira_get_issue", "confluence_search"}

overrides := {
	"email_send": "auto_send_emails",
	"jira_create_issue": "auto_create_jira_stories",
}

decision := "block" if {
	input.level in {"manual", "advisory"}
} else := "execute" if {
	input.level in {"full", "oversight"}
	input.tool_name in read_only
} else := "execute" if {
	input.level == "full"
} else := "execute" if {
	input.level == "oversight"
	key := overrides[input.tool_name]
	input.preferences[key] == true
} else := "gate" if {
	input.level == "oversight"
}
`
