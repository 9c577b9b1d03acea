// Package domain defines the core domain models for the agent service.
package domain

import (
	"fmt"
	"strings"
)

// AgentID identifies one of the specialised agents.
type AgentID string

const (
	AgentStrategy       AgentID = "strategy"
	AgentDiscovery      AgentID = "discovery"
	AgentRisk           AgentID = "risk"
	AgentCommunications AgentID = "communications"
	AgentAdvisor        AgentID = "advisor"
	AgentThinker        AgentID = "thinker"
)

// AllAgents lists every agent in declaration order.
var AllAgents = []AgentID{
	AgentStrategy,
	AgentDiscovery,
	AgentRisk,
	AgentCommunications,
	AgentAdvisor,
	AgentThinker,
}

// Valid reports whether a is a known agent.
func (a AgentID) Valid() bool {
	switch a {
	case AgentStrategy, AgentDiscovery, AgentRisk, AgentCommunications, AgentAdvisor, AgentThinker:
		return true
	}
	return false
}

// ParseAgentID parses a case-insensitive agent identifier.
func ParseAgentID(s string) (AgentID, error) {
	a := AgentID(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("unknown agent: %q", s)
	}
	return a, nil
}

// AutonomyLevel controls how much tool execution happens without approval.
type AutonomyLevel string

const (
	AutonomyFull      AutonomyLevel = "full"
	AutonomyOversight AutonomyLevel = "oversight"
	AutonomyAdvisory  AutonomyLevel = "advisory"
	AutonomyManual    AutonomyLevel = "manual"
)

// ParseAutonomyLevel parses an autonomy level. Empty input yields Oversight.
func ParseAutonomyLevel(s string) (AutonomyLevel, error) {
	if s == "" {
		return AutonomyOversight, nil
	}
	switch l := AutonomyLevel(strings.ToLower(s)); l {
	case AutonomyFull, AutonomyOversight, AutonomyAdvisory, AutonomyManual:
		return l, nil
	}
	return "", fmt.Errorf("unknown autonomy level: %q", s)
}

// GateDecision is the outcome of the autonomy gate.
type GateDecision string

const (
	DecisionExecute GateDecision = "execute"
	DecisionGate    GateDecision = "gate"
	DecisionBlock   GateDecision = "block"
)

// ToolStatus is the status of a tool execution record.
type ToolStatus string

const (
	ToolStatusExecuted ToolStatus = "executed"
	ToolStatusPending  ToolStatus = "pending"
	ToolStatusBlocked  ToolStatus = "blocked"
	ToolStatusFailed   ToolStatus = "failed"
)

// ActionStatus is the status of a pending action.
type ActionStatus string

const (
	ActionStatusPending  ActionStatus = "pending"
	ActionStatusApproved ActionStatus = "approved"
	ActionStatusRejected ActionStatus = "rejected"
	ActionStatusExecuted ActionStatus = "executed"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolName names one of the integration tools.
type ToolName string

const (
	ToolJiraSearchIssues        ToolName = "jira_search_issues"
	ToolJiraCreateIssue         ToolName = "jira_create_issue"
	ToolJiraGetIssue            ToolName = "jira_get_issue"
	ToolJiraAddComment          ToolName = "jira_add_comment"
	ToolSlackPostMessage        ToolName = "slack_post_message"
	ToolSlackSendMeetingSummary ToolName = "slack_send_meeting_summary"
	ToolConfluenceSearch        ToolName = "confluence_search"
	ToolConfluenceCreatePage    ToolName = "confluence_create_page"
	ToolEmailSend               ToolName = "email_send"
)

// AllTools lists every integration tool.
var AllTools = []ToolName{
	ToolJiraSearchIssues,
	ToolJiraCreateIssue,
	ToolJiraGetIssue,
	ToolJiraAddComment,
	ToolSlackPostMessage,
	ToolSlackSendMeetingSummary,
	ToolConfluenceSearch,
	ToolConfluenceCreatePage,
	ToolEmailSend,
}

// Known reports whether t is one of the integration tools.
func (t ToolName) Known() bool {
	switch t {
	case ToolJiraSearchIssues, ToolJiraCreateIssue, ToolJiraGetIssue, ToolJiraAddComment,
		ToolSlackPostMessage, ToolSlackSendMeetingSummary,
		ToolConfluenceSearch, ToolConfluenceCreatePage, ToolEmailSend:
		return true
	}
	return false
}

// ReadOnly reports whether the tool never changes remote state.
func (t ToolName) ReadOnly() bool {
	switch t {
	case ToolJiraSearchIssues, ToolJiraGetIssue, ToolConfluenceSearch:
		return true
	case ToolJiraCreateIssue, ToolJiraAddComment,
		ToolSlackPostMessage, ToolSlackSendMeetingSummary,
		ToolConfluenceCreatePage, ToolEmailSend:
		return false
	}
	return false
}

// PreferenceKey names a boolean user preference that lifts the oversight gate.
type PreferenceKey string

const (
	PrefAutoSendEmails        PreferenceKey = "auto_send_emails"
	PrefAutoCreateJiraStories PreferenceKey = "auto_create_jira_stories"
)

// OverrideKey returns the preference that allows t to run without approval
// under oversight, if any.
func (t ToolName) OverrideKey() (PreferenceKey, bool) {
	switch t {
	case ToolEmailSend:
		return PrefAutoSendEmails, true
	case ToolJiraCreateIssue:
		return PrefAutoCreateJiraStories, true
	}
	return "", false
}

// Preferences holds per-tool override flags.
type Preferences map[PreferenceKey]bool

// RouteTier records which router stage chose the agent.
type RouteTier string

const (
	RouteExplicit RouteTier = "explicit"
	RouteKeyword  RouteTier = "keyword"
	RouteLLM      RouteTier = "llm"
	RouteDefault  RouteTier = "default"
)

// EventType is the type of a loop event.
type EventType string

const (
	EventRouted       EventType = "routed"
	EventLLMCall      EventType = "llm_call"
	EventToolDecision EventType = "tool_decision"
	EventToolResult   EventType = "tool_result"
	EventHandoff      EventType = "handoff"
	EventFinal        EventType = "final"
	EventError        EventType = "error"
	EventResponse     EventType = "response"
)
