// Package autonomy decides whether a tool call may run, needs approval, or is blocked.
package autonomy

import (
	"context"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Gatekeeper decides what happens to a proposed tool call.
type Gatekeeper interface {
	Decide(ctx context.Context, tool string, level domain.AutonomyLevel, prefs domain.Preferences) domain.GateDecision
}

// Decide applies the autonomy rules in order; the first match wins.
func Decide(tool string, level domain.AutonomyLevel, prefs domain.Preferences) domain.GateDecision {
	switch level {
	case domain.AutonomyManual, domain.AutonomyAdvisory:
		return domain.DecisionBlock
	case domain.AutonomyFull, domain.AutonomyOversight:
	default:
		return domain.DecisionBlock
	}

	name := domain.ToolName(tool)
	if name.ReadOnly() {
		return domain.DecisionExecute
	}
	if level == domain.AutonomyFull {
		return domain.DecisionExecute
	}

	if key, ok := name.OverrideKey(); ok && prefs[key] {
		return domain.DecisionExecute
	}
	return domain.DecisionGate
}

// Builtin is the Gatekeeper backed by Decide.
type Builtin struct{}

var _ Gatekeeper = Builtin{}

// Decide implements Gatekeeper.
func (Builtin) Decide(_ context.Context, tool string, level domain.AutonomyLevel, prefs domain.Preferences) domain.GateDecision {
	return Decide(tool, level, prefs)
}
