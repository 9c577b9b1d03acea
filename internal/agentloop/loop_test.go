package agentloop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/autonomy"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/tools"
)

type recordingInvoker struct {
	results map[string]tools.Result
	calls   []string
}

func (r *recordingInvoker) Execute(_ context.Context, name string, _ map[string]any) tools.Result {
	r.calls = append(r.calls, name)
	if res, ok := r.results[name]; ok {
		return res
	}
	return tools.Result{Content: `{"ok":true}`}
}

func (r *recordingInvoker) Describe(name string, args map[string]any) string {
	return tools.Describe(name, args)
}

var testAgent = domain.Agent{ID: domain.AgentCommunications, Name: "Communications Agent", Temperature: 0.5}

func toolBlock(name, args string) string {
	return "Working on it.\n```tool\n{\"name\": \"" + name + "\", \"arguments\": " + args + "}\n```"
}

func newRequest(level domain.AutonomyLevel, maxIter int) Request {
	return Request{
		Agent:         testAgent,
		SystemPrompt:  "sys",
		UserMessage:   "hello",
		History:       []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "earlier"}},
		Level:         level,
		Prefs:         domain.Preferences{},
		MaxIterations: maxIter,
	}
}

func TestNoToolCallsFinishesFirstIteration(t *testing.T) {
	mock := llm.NewMockClient("All done [handoff: Risk]")
	r := New(mock, autonomy.Builtin{}, &recordingInvoker{}, nil)

	resp, err := r.Run(context.Background(), newRequest(domain.AutonomyFull, 4))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Iterations)
	assert.Equal(t, "All done [handoff: Risk]", resp.Content)
	require.NotNil(t, resp.HandoffTo)
	assert.Equal(t, domain.AgentRisk, *resp.HandoffTo)
	assert.Empty(t, resp.ToolsExecuted)
	assert.NotNil(t, resp.PendingActions)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleAssistant, Content: "earlier"},
		{Role: domain.RoleUser, Content: "hello"},
	}, calls[0].Messages)
	assert.Equal(t, llm.Options{Temperature: 0.5, MaxTokens: 4096}, calls[0].Options)
}

func TestAlwaysToolModelStopsAfterMaxIterations(t *testing.T) {
	for _, n := range []int{1, 3, 5} {
		mock := llm.NewMockClient()
		mock.Respond = func(llm.Call) (string, error) {
			return toolBlock("jira_search_issues", `{"jql": "project = X"}`), nil
		}
		inv := &recordingInvoker{}
		r := New(mock, autonomy.Builtin{}, inv, nil)

		resp, err := r.Run(context.Background(), newRequest(domain.AutonomyFull, n))
		require.NoError(t, err)
		assert.Equal(t, n, resp.Iterations)
		assert.Len(t, mock.Calls(), n+1)
		assert.Len(t, inv.calls, n)
		assert.Equal(t, "Working on it.", resp.Content)
		assert.Nil(t, resp.HandoffTo)
	}
}

func TestConversationGrowsWithToolResults(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("confluence_search", `{"query": "pricing"}`), "Final answer")
	inv := &recordingInvoker{results: map[string]tools.Result{"confluence_search": {Content: "[]"}}}
	r := New(mock, autonomy.Builtin{}, inv, nil)

	resp, err := r.Run(context.Background(), newRequest(domain.AutonomyOversight, 4))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Iterations)
	assert.Equal(t, "Final answer", resp.Content)

	require.Len(t, resp.ToolsExecuted, 1)
	rec := resp.ToolsExecuted[0]
	assert.Equal(t, domain.ToolStatusExecuted, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, "[]", *rec.Result)

	second := mock.Calls()[1].Messages
	require.Len(t, second, 5)
	assert.Equal(t, domain.RoleAssistant, second[3].Role)
	assert.Equal(t, domain.RoleUser, second[4].Role)
	assert.Equal(t, "[Tool Results]\nTool \"confluence_search\" result:\n[]"+continueInstruction, second[4].Content)
}

func TestManualModeBlocksWithoutPendingAction(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("email_send", `{"to": "a@b.c", "subject": "Hi"}`), "ok")
	inv := &recordingInvoker{}
	r := New(mock, autonomy.Builtin{}, inv, nil)

	resp, err := r.Run(context.Background(), newRequest(domain.AutonomyManual, 3))
	require.NoError(t, err)
	require.Len(t, resp.ToolsExecuted, 1)
	assert.Equal(t, domain.ToolStatusBlocked, resp.ToolsExecuted[0].Status)
	assert.Nil(t, resp.ToolsExecuted[0].Result)
	assert.Empty(t, resp.PendingActions)
	assert.Empty(t, inv.calls)

	feedback := mock.Calls()[1].Messages[4].Content
	assert.Contains(t, feedback, `Tool "email_send" would send email to a@b.c: "Hi" — but execution is disabled in manual mode.`)
}

func TestOversightQueuesWriteTools(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("jira_create_issue", `{"summary": "Add SSO", "issueType": "Story"}`), "queued")
	inv := &recordingInvoker{}
	r := New(mock, autonomy.Builtin{}, inv, nil)

	req := newRequest(domain.AutonomyOversight, 3)
	req.Prefs = domain.Preferences{domain.PrefAutoCreateJiraStories: false}
	resp, err := r.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.PendingActions, 1)
	pa := resp.PendingActions[0]
	assert.Equal(t, domain.ActionStatusPending, pa.Status)
	assert.Equal(t, domain.AgentCommunications, pa.AgentID)
	assert.Equal(t, "jira_create_issue", pa.ToolName)
	assert.Equal(t, `create a Jira Story: "Add SSO"`, pa.Description)
	assert.Regexp(t, `^pa_[0-9a-f]{12}$`, pa.ID)

	require.Len(t, resp.ToolsExecuted, 1)
	assert.Equal(t, domain.ToolStatusPending, resp.ToolsExecuted[0].Status)
	assert.Empty(t, inv.calls)
}

func TestOversightOverrideExecutes(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("email_send", `{"to": "x"}`), "sent")
	inv := &recordingInvoker{}
	r := New(mock, autonomy.Builtin{}, inv, nil)

	req := newRequest(domain.AutonomyOversight, 3)
	req.Prefs = domain.Preferences{domain.PrefAutoSendEmails: true}
	resp, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"email_send"}, inv.calls)
	assert.Equal(t, domain.ToolStatusExecuted, resp.ToolsExecuted[0].Status)
}

func TestAdvisoryBlocksReadOnlyTools(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("jira_get_issue", `{"issueKey": "X-1"}`), "advice only")
	inv := &recordingInvoker{}
	r := New(mock, autonomy.Builtin{}, inv, nil)

	resp, err := r.Run(context.Background(), newRequest(domain.AutonomyAdvisory, 3))
	require.NoError(t, err)
	assert.Empty(t, inv.calls)
	require.Len(t, resp.ToolsExecuted, 1)
	assert.Equal(t, domain.ToolStatusBlocked, resp.ToolsExecuted[0].Status)
	assert.Empty(t, resp.PendingActions)
}

func TestFailedToolDoesNotAbort(t *testing.T) {
	reply := toolBlock("jira_get_issue", `{"issueKey": "X-1"}`) +
		"\n```tool\n{\"name\": \"confluence_search\", \"arguments\": {\"query\": \"q\"}}\n```"
	mock := llm.NewMockClient(reply, "recovered")
	inv := &recordingInvoker{results: map[string]tools.Result{"jira_get_issue": {Content: "Error: not found", IsError: true}}}
	r := New(mock, autonomy.Builtin{}, inv, nil)

	resp, err := r.Run(context.Background(), newRequest(domain.AutonomyFull, 3))
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, []string{"jira_get_issue", "confluence_search"}, inv.calls)

	require.Len(t, resp.ToolsExecuted, 2)
	assert.Equal(t, domain.ToolStatusFailed, resp.ToolsExecuted[0].Status)
	assert.Equal(t, "Error: not found", *resp.ToolsExecuted[0].Result)
	assert.Equal(t, domain.ToolStatusExecuted, resp.ToolsExecuted[1].Status)

	feedback := mock.Calls()[1].Messages[4].Content
	assert.Contains(t, feedback, "Tool \"jira_get_issue\" result:\nError: not found\n\nTool \"confluence_search\" result:")
}

func TestModelErrorPropagates(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("jira_search_issues", `{"jql": "a"}`))
	upstream := &llm.UpstreamError{Provider: "openai", Err: errors.New("timeout")}
	mock.Enqueue(llm.Reply{Err: upstream})
	r := New(mock, autonomy.Builtin{}, &recordingInvoker{}, nil)

	resp, err := r.Run(context.Background(), newRequest(domain.AutonomyFull, 3))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
}

func TestObserverSeesEveryStep(t *testing.T) {
	mock := llm.NewMockClient(toolBlock("confluence_search", `{"query": "q"}`), "done")
	r := New(mock, autonomy.Builtin{}, &recordingInvoker{}, nil)

	var types []domain.EventType
	req := newRequest(domain.AutonomyFull, 3)
	req.Observer = func(ev domain.Event) { types = append(types, ev.Type) }
	_, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{
		domain.EventLLMCall, domain.EventToolDecision, domain.EventToolResult,
		domain.EventLLMCall, domain.EventFinal,
	}, types)
}

func TestDetectHandoff(t *testing.T) {
	assert.Nil(t, DetectHandoff("no marker"))
	assert.Nil(t, DetectHandoff("[HANDOFF: marketing]"))
	got := DetectHandoff("see [handoff:THINKER] and [HANDOFF: risk]")
	require.NotNil(t, got)
	assert.Equal(t, domain.AgentThinker, *got)
}

func TestNewActionIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewActionID()
		assert.True(t, strings.HasPrefix(id, "pa_"))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
