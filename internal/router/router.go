// Package router maps a user message to the agent that should handle it.
package router

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/metrics"
)

// DefaultAgent handles messages the classifier cannot place.
const DefaultAgent = domain.AgentStrategy

const (
	classifyMaxChars    = 500
	classifyTemperature = 0.1
	classifyMaxTokens   = 20
)

// Rule binds an agent to the phrases that select it.
type Rule struct {
	Agent   domain.AgentID
	Phrases []string
}

// Rules are checked in order and the first rule with any matching phrase wins.
// The order is a priority: synthesis before risk before communications, and so on.
var Rules = []Rule{
	{domain.AgentThinker, []string{
		"big picture", "what do we know", "summarize everything", "full analysis",
		"where does this come from", "trace", "cross-reference", "investigate",
		"connect the dots", "all sources", "comprehensive view", "deep dive",
		"source map", "what's missing",
	}},
	{domain.AgentRisk, []string{
		"risk", "blocker", "blocked", "mitigation", "threat", "vulnerability",
		"escalat", "severity", "probability", "impact analysis", "fmea",
		"risk matrix", "what could go wrong",
	}},
	{domain.AgentCommunications, []string{
		"email", "send message", "slack", "notify", "stakeholder update",
		"meeting summary", "announcement", "newsletter", "status update",
		"post to", "draft email", "send to", "share with",
	}},
	{domain.AgentDiscovery, []string{
		"discovery", "research", "market", "competitor", "opportunity",
		"customer need", "jobs to be done", "jtbd", "user interview",
		"hypothesis", "experiment", "validate", "porter",
	}},
	{domain.AgentStrategy, []string{
		"prioriti", "roadmap", "backlog", "okr", "kpi", "strategy", "sprint",
		"epic", "story", "rice", "wsjf", "plan", "quarter", "initiative",
		"feature", "requirement", "scope", "timeline", "jira", "create issue",
		"create ticket", "create story", "dependency", "alignment",
	}},
	{domain.AgentAdvisor, []string{
		"best practice", "advice", "recommend", "how should", "what's the best way",
		"methodology", "framework", "agile", "scrum", "safe", "kanban", "lean",
		"architecture", "pattern", "approach", "opinion", "guidance",
		"industry standard", "benchmark",
	}},
}

const classifyPrompt = `You are a request router. Given a user message, classify which specialized agent should handle it.

Available agents:
- strategy: Product strategy, prioritization, roadmap planning, OKRs, Jira operations
- discovery: Market research, customer needs, opportunity analysis, hypothesis validation
- risk: Risk assessment, mitigation planning, blocker identification, escalation
- communications: Emails, Slack messages, stakeholder updates, meeting summaries
- advisor: Best practices, methodology guidance, architecture advice, expert opinion
- thinker: Big-picture synthesis, cross-source analysis, information gathering, traceability

Respond with ONLY the agent name (one word, lowercase). If truly ambiguous, respond with "strategy" as the default.

User message: `

// Decision is the outcome of routing.
type Decision struct {
	Agent domain.AgentID
	Tier  domain.RouteTier
}

// Router resolves agents with keyword rules and an LLM fallback.
type Router struct {
	llm    llm.Client
	rules  []Rule
	logger *zap.Logger
}

// New creates a router over the default rule table.
func New(client llm.Client, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{llm: client, rules: Rules, logger: logger}
}

// Route picks the agent for message. It never fails.
func (r *Router) Route(ctx context.Context, message string, explicit *domain.AgentID, cfg llm.Config) Decision {
	d := r.route(ctx, message, explicit, cfg)
	metrics.RouteTotal.WithLabelValues(string(d.Agent), string(d.Tier)).Inc()
	r.logger.Debug("routed message", zap.String("agent", string(d.Agent)), zap.String("tier", string(d.Tier)))
	return d
}

func (r *Router) route(ctx context.Context, message string, explicit *domain.AgentID, cfg llm.Config) Decision {
	if explicit != nil {
		return Decision{Agent: *explicit, Tier: domain.RouteExplicit}
	}
	if agent, ok := MatchKeywords(r.rules, message); ok {
		return Decision{Agent: agent, Tier: domain.RouteKeyword}
	}
	if agent, ok := r.classify(ctx, message, cfg); ok {
		return Decision{Agent: agent, Tier: domain.RouteLLM}
	}
	return Decision{Agent: DefaultAgent, Tier: domain.RouteDefault}
}

// MatchKeywords returns the agent of the first rule with a phrase contained in message.
func MatchKeywords(rules []Rule, message string) (domain.AgentID, bool) {
	lower := strings.ToLower(message)
	for _, rule := range rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(lower, phrase) {
				return rule.Agent, true
			}
		}
	}
	return "", false
}

func (r *Router) classify(ctx context.Context, message string, cfg llm.Config) (domain.AgentID, bool) {
	if r.llm == nil {
		return "", false
	}
	prompt := classifyPrompt + truncateRunes(message, classifyMaxChars) + "\n\nAgent:"
	reply, err := r.llm.Chat(ctx, cfg,
		[]domain.ChatMessage{{Role: domain.RoleUser, Content: prompt}},
		llm.Options{Temperature: classifyTemperature, MaxTokens: classifyMaxTokens},
	)
	if err != nil {
		r.logger.Warn("router classification failed, using default", zap.Error(err))
		return "", false
	}

	name := strings.TrimRightFunc(strings.ToLower(strings.TrimSpace(reply)), unicode.IsPunct)
	agent := domain.AgentID(name)
	if !agent.Valid() {
		r.logger.Warn("router classification unparseable, using default", zap.String("reply", reply))
		return "", false
	}
	return agent, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
