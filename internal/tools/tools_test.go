package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

func TestParseToolCalls(t *testing.T) {
	text := "Let me look.\n```tool\n{\"name\": \"jira_search_issues\", \"arguments\": {\"jql\": \"project = X\"}}\n```\n" +
		"and\n```tool {\"name\": \"confluence_search\", \"arguments\": {\"query\": \"roadmap\"}}```\n" +
		"```tool\n{\"name\": \"missing_args\"}\n```\n" +
		"```tool\nnot json\n```\n" +
		"```json\n{\"name\": \"ignored\", \"arguments\": {}}\n```"

	calls := ParseToolCalls(text)
	want := []domain.ToolCall{
		{Name: "jira_search_issues", Arguments: map[string]any{"jql": "project = X"}},
		{Name: "confluence_search", Arguments: map[string]any{"query": "roadmap"}},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("ParseToolCalls mismatch (-want +got):\n%s", diff)
	}
}

func TestParseToolCallsNone(t *testing.T) {
	assert.Empty(t, ParseToolCalls("Just an answer."))
	assert.Empty(t, ParseToolCalls("```tool\n{\"name\": 1, \"arguments\": {}}\n```"))
}

func TestStripToolBlocks(t *testing.T) {
	text := "Before\n```tool\n{\"name\": \"x\", \"arguments\": {}}\n```\nAfter  "
	assert.Equal(t, "Before\n\nAfter", StripToolBlocks(text))
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"jira_create_issue", map[string]any{"summary": "Login"}, `create a Jira Story: "Login"`},
		{"jira_create_issue", map[string]any{"summary": "Crash", "issueType": "Bug"}, `create a Jira Bug: "Crash"`},
		{"jira_add_comment", map[string]any{"issueKey": "PPO-1"}, "add a comment to PPO-1"},
		{"jira_search_issues", map[string]any{"jql": "status = Open"}, "search Jira issues with: status = Open"},
		{"jira_get_issue", map[string]any{"issueKey": "PPO-2"}, "get details of PPO-2"},
		{"slack_post_message", map[string]any{"text": "hi"}, `send a Slack message: "hi..."`},
		{"slack_send_meeting_summary", map[string]any{"title": "Sync"}, `post meeting summary "Sync" to Slack`},
		{"confluence_search", map[string]any{"query": "okr"}, `search Confluence for: "okr"`},
		{"confluence_create_page", map[string]any{"title": "Notes"}, `create Confluence page: "Notes"`},
		{"email_send", map[string]any{"to": "a@b.c", "subject": "Hello"}, `send email to a@b.c: "Hello"`},
		{"teleport", nil, "execute teleport"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Describe(tc.tool, tc.args), tc.tool)
	}

	long := strings.Repeat("x", 120)
	assert.Equal(t, `send a Slack message: "`+strings.Repeat("x", 80)+`..."`, Describe("slack_post_message", map[string]any{"text": long}))
}

func TestCatalogCoversAllTools(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, len(domain.AllTools))
	for i, def := range defs {
		assert.Equal(t, domain.AllTools[i], def.Name)
		assert.Equal(t, def.Name.ReadOnly(), def.ReadOnly)
	}
}

func TestValidateArguments(t *testing.T) {
	assert.NoError(t, ValidateArguments("jira_create_issue", map[string]any{"summary": "x", "labels": "a,b"}))
	assert.NoError(t, ValidateArguments("jira_create_issue", map[string]any{"summary": "x", "labels": []any{"a"}}))
	assert.Error(t, ValidateArguments("jira_create_issue", map[string]any{}))
	assert.Error(t, ValidateArguments("email_send", map[string]any{"to": 5, "subject": "s"}))
	assert.Error(t, ValidateArguments("nope", nil))
	assert.NoError(t, ValidateArguments("jira_search_issues", nil))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	exec := func(ctx context.Context, args map[string]any) Result { return Result{Content: "ok"} }

	require.NoError(t, r.Register("a", exec))
	assert.Error(t, r.Register("a", exec))
	assert.Error(t, r.Register("", exec))
	assert.Error(t, r.Register("b", nil))
	_, ok := r.Lookup("a")
	assert.True(t, ok)

	assert.Equal(t, Result{Content: "ok"}, r.Execute(context.Background(), "a", nil))
	assert.Equal(t, Result{Content: "Unknown tool: z", IsError: true}, r.Execute(context.Background(), "z", nil))
}

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

func newBackend(t *testing.T, status int, response string, captured *[]capturedRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cr := capturedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.NoError(t, json.Unmarshal(b, &cr.Body))
		}
		*captured = append(*captured, cr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
}

func TestHTTPInvokerGetRequests(t *testing.T) {
	var captured []capturedRequest
	srv := newBackend(t, http.StatusOK, `{"issues":[{"key":"PPO-1"}]}`, &captured)
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL+"/", 5*time.Second, nil)
	ctx := context.Background()

	res := inv.Execute(ctx, "jira_search_issues", map[string]any{"jql": "project = PPO & x"})
	assert.False(t, res.IsError)
	assert.Equal(t, "{\n  \"issues\": [\n    {\n      \"key\": \"PPO-1\"\n    }\n  ]\n}", res.Content)

	inv.Execute(ctx, "jira_get_issue", map[string]any{"issueKey": "PPO-1"})
	inv.Execute(ctx, "confluence_search", map[string]any{"query": "road map"})

	require.Len(t, captured, 3)
	assert.Equal(t, http.MethodGet, captured[0].Method)
	assert.Equal(t, "/api/integrations/jira", captured[0].Path)
	assert.Equal(t, "action=issues&jql=project%20%3D%20PPO%20%26%20x", captured[0].Query)
	assert.Equal(t, "action=issue&issueKey=PPO-1", captured[1].Query)
	assert.Equal(t, "/api/integrations/confluence", captured[2].Path)
	assert.Equal(t, "action=search&q=road%20map", captured[2].Query)
}

func TestHTTPInvokerPostBodies(t *testing.T) {
	var captured []capturedRequest
	srv := newBackend(t, http.StatusOK, `{"ok":true}`, &captured)
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL, 5*time.Second, nil)
	ctx := context.Background()

	inv.Execute(ctx, "jira_create_issue", map[string]any{"summary": "S", "labels": "a, b"})
	inv.Execute(ctx, "slack_send_meeting_summary", map[string]any{
		"title": "Sync", "actionItems": `["ship it"]`, "decisions": []any{"go"},
	})
	inv.Execute(ctx, "email_send", map[string]any{"to": "x@y.z", "subject": "Hi", "body": "<p>Hello</p>"})

	require.Len(t, captured, 3)
	assert.Equal(t, map[string]any{
		"action": "create", "summary": "S", "description": "", "issueType": "Story",
		"labels": []any{"a", "b"},
	}, captured[0].Body)
	assert.Equal(t, map[string]any{
		"action": "meeting-summary",
		"meeting": map[string]any{
			"title": "Sync", "summary": "", "actionItems": []any{"ship it"}, "decisions": []any{"go"},
		},
	}, captured[1].Body)
	assert.Equal(t, "/api/integrations/email", captured[2].Path)
	assert.Equal(t, "<p>Hello</p>", captured[2].Body["html"])
}

func TestHTTPInvokerErrors(t *testing.T) {
	var captured []capturedRequest
	srv := newBackend(t, http.StatusBadGateway, `{"error":"Jira not connected"}`, &captured)
	defer srv.Close()

	inv := NewHTTPInvoker(srv.URL, 5*time.Second, nil)
	ctx := context.Background()

	assert.Equal(t, Result{Content: "Error: Jira not connected", IsError: true},
		inv.Execute(ctx, "jira_search_issues", map[string]any{"jql": ""}))
	assert.Equal(t, Result{Content: "Unknown tool: teleport", IsError: true},
		inv.Execute(ctx, "teleport", nil))

	res := inv.Execute(ctx, "jira_create_issue", map[string]any{})
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Content, "Invalid arguments for jira_create_issue"))

	res = inv.Execute(ctx, "slack_send_meeting_summary", map[string]any{"title": "x", "actionItems": "not json"})
	assert.True(t, res.IsError)
	assert.Len(t, captured, 1)

	srv.Close()
	res = inv.Execute(ctx, "jira_search_issues", nil)
	assert.True(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.Content, "Tool execution failed: "))
}

func TestHTTPInvokerReplaceExecutor(t *testing.T) {
	inv := NewHTTPInvoker("http://unused", time.Second, nil)
	inv.Registry().Replace("email_send", func(ctx context.Context, args map[string]any) Result {
		return Result{Content: "sent to " + argString(args, "to", "")}
	})
	res := inv.Execute(context.Background(), "email_send", map[string]any{"to": "a@b.c", "subject": "s"})
	assert.Equal(t, "sent to a@b.c", res.Content)
}
