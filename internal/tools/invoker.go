package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/metrics"
)

// Invoker executes and describes integration tool calls.
type Invoker interface {
	Execute(ctx context.Context, toolName string, args map[string]any) Result
	Describe(toolName string, args map[string]any) string
}

// HTTPInvoker calls the integration routes of the front-end backend.
type HTTPInvoker struct {
	baseURL  string
	client   *http.Client
	registry *Registry
	logger   *zap.Logger
}

var _ Invoker = (*HTTPInvoker)(nil)

// NewHTTPInvoker creates an invoker for the backend at baseURL with every catalog tool registered.
func NewHTTPInvoker(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTPInvoker{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		registry: NewRegistry(),
		logger:   logger,
	}

	h.registry.MustRegister(string(domain.ToolJiraSearchIssues), h.jiraSearchIssues)
	h.registry.MustRegister(string(domain.ToolJiraCreateIssue), h.jiraCreateIssue)
	h.registry.MustRegister(string(domain.ToolJiraGetIssue), h.jiraGetIssue)
	h.registry.MustRegister(string(domain.ToolJiraAddComment), h.jiraAddComment)
	h.registry.MustRegister(string(domain.ToolSlackPostMessage), h.slackPostMessage)
	h.registry.MustRegister(string(domain.ToolSlackSendMeetingSummary), h.slackSendMeetingSummary)
	h.registry.MustRegister(string(domain.ToolConfluenceSearch), h.confluenceSearch)
	h.registry.MustRegister(string(domain.ToolConfluenceCreatePage), h.confluenceCreatePage)
	h.registry.MustRegister(string(domain.ToolEmailSend), h.emailSend)
	return h
}

// Registry exposes the executor registry so individual tools can be replaced.
func (h *HTTPInvoker) Registry() *Registry {
	return h.registry
}

// Describe implements Invoker.
func (h *HTTPInvoker) Describe(toolName string, args map[string]any) string {
	return Describe(toolName, args)
}

// Execute implements Invoker.
func (h *HTTPInvoker) Execute(ctx context.Context, toolName string, args map[string]any) Result {
	start := time.Now()
	res := h.execute(ctx, toolName, args)

	outcome := "ok"
	if res.IsError {
		outcome = "error"
		h.logger.Warn("tool execution failed", zap.String("tool", toolName), zap.String("content", res.Content))
	}
	metrics.ToolCallDuration.WithLabelValues(toolName, outcome).Observe(time.Since(start).Seconds())
	return res
}

func (h *HTTPInvoker) execute(ctx context.Context, toolName string, args map[string]any) Result {
	if _, ok := Lookup(toolName); !ok {
		return Result{Content: "Unknown tool: " + toolName, IsError: true}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateArguments(toolName, args); err != nil {
		return Result{Content: fmt.Sprintf("Invalid arguments for %s: %v", toolName, err), IsError: true}
	}
	return h.registry.Execute(ctx, toolName, args)
}

func (h *HTTPInvoker) jiraSearchIssues(ctx context.Context, args map[string]any) Result {
	return h.get(ctx, "/api/integrations/jira?action=issues&jql="+queryEscape(argString(args, "jql", "")))
}

func (h *HTTPInvoker) jiraCreateIssue(ctx context.Context, args map[string]any) Result {
	return h.post(ctx, "/api/integrations/jira", map[string]any{
		"action":      "create",
		"summary":     argString(args, "summary", ""),
		"description": argString(args, "description", ""),
		"issueType":   argString(args, "issueType", "Story"),
		"labels":      labels(args["labels"]),
	})
}

func (h *HTTPInvoker) jiraGetIssue(ctx context.Context, args map[string]any) Result {
	return h.get(ctx, "/api/integrations/jira?action=issue&issueKey="+queryEscape(argString(args, "issueKey", "")))
}

func (h *HTTPInvoker) jiraAddComment(ctx context.Context, args map[string]any) Result {
	return h.post(ctx, "/api/integrations/jira", map[string]any{
		"action":   "comment",
		"issueKey": argString(args, "issueKey", ""),
		"body":     argString(args, "body", ""),
	})
}

func (h *HTTPInvoker) slackPostMessage(ctx context.Context, args map[string]any) Result {
	return h.post(ctx, "/api/integrations/slack", map[string]any{
		"action":  "message",
		"text":    argString(args, "text", ""),
		"channel": args["channel"],
	})
}

func (h *HTTPInvoker) slackSendMeetingSummary(ctx context.Context, args map[string]any) Result {
	actionItems, err := jsonList(args["actionItems"])
	if err != nil {
		return Result{Content: "Tool execution failed: invalid actionItems: " + err.Error(), IsError: true}
	}
	decisions, err := jsonList(args["decisions"])
	if err != nil {
		return Result{Content: "Tool execution failed: invalid decisions: " + err.Error(), IsError: true}
	}
	return h.post(ctx, "/api/integrations/slack", map[string]any{
		"action": "meeting-summary",
		"meeting": map[string]any{
			"title":       argString(args, "title", ""),
			"summary":     argString(args, "summary", ""),
			"actionItems": actionItems,
			"decisions":   decisions,
		},
	})
}

func (h *HTTPInvoker) confluenceSearch(ctx context.Context, args map[string]any) Result {
	return h.get(ctx, "/api/integrations/confluence?action=search&q="+queryEscape(argString(args, "query", "")))
}

func (h *HTTPInvoker) confluenceCreatePage(ctx context.Context, args map[string]any) Result {
	return h.post(ctx, "/api/integrations/confluence", map[string]any{
		"action":   "create-page",
		"title":    argString(args, "title", ""),
		"body":     argString(args, "body", ""),
		"spaceKey": args["spaceKey"],
	})
}

func (h *HTTPInvoker) emailSend(ctx context.Context, args map[string]any) Result {
	return h.post(ctx, "/api/integrations/email", map[string]any{
		"action":  "send",
		"to":      argString(args, "to", ""),
		"subject": argString(args, "subject", ""),
		"html":    argString(args, "body", ""),
	})
}

func (h *HTTPInvoker) get(ctx context.Context, endpoint string) Result {
	return h.do(ctx, http.MethodGet, endpoint, nil)
}

func (h *HTTPInvoker) post(ctx context.Context, endpoint string, body map[string]any) Result {
	return h.do(ctx, http.MethodPost, endpoint, body)
}

func (h *HTTPInvoker) do(ctx context.Context, method, endpoint string, body map[string]any) Result {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Result{Content: "Tool execution failed: " + err.Error(), IsError: true}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+endpoint, reader)
	if err != nil {
		return Result{Content: "Tool execution failed: " + err.Error(), IsError: true}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{Content: "Tool execution failed: " + err.Error(), IsError: true}
	}
	defer resp.Body.Close()

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{Content: "Tool execution failed: invalid JSON response: " + err.Error(), IsError: true}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := "Request failed"
		if obj, ok := data.(map[string]any); ok {
			if e, ok := obj["error"]; ok && e != nil {
				msg = fmt.Sprint(e)
			}
		}
		return Result{Content: "Error: " + msg, IsError: true}
	}

	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return Result{Content: "Tool execution failed: " + err.Error(), IsError: true}
	}
	return Result{Content: string(pretty)}
}

// queryEscape percent-encodes spaces as %20 rather than '+'.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// labels accepts a comma-separated string or a list.
func labels(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if t == "" {
			return out
		}
		for _, l := range strings.Split(t, ",") {
			out = append(out, strings.TrimSpace(l))
		}
	case []any:
		for _, l := range t {
			out = append(out, fmt.Sprint(l))
		}
	}
	return out
}

// jsonList decodes a JSON-encoded string; other values pass through. Missing means empty list.
func jsonList(v any) (any, error) {
	if v == nil {
		return []any{}, nil
	}
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
