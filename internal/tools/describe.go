package tools

import (
	"fmt"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Describe renders what a tool call would do, for approval prompts and blocked notices.
func Describe(toolName string, args map[string]any) string {
	switch domain.ToolName(toolName) {
	case domain.ToolJiraCreateIssue:
		return fmt.Sprintf(`create a Jira %s: "%s"`, argString(args, "issueType", "Story"), argString(args, "summary", ""))
	case domain.ToolJiraAddComment:
		return "add a comment to " + argString(args, "issueKey", "")
	case domain.ToolJiraSearchIssues:
		return "search Jira issues with: " + argString(args, "jql", "")
	case domain.ToolJiraGetIssue:
		return "get details of " + argString(args, "issueKey", "")
	case domain.ToolSlackPostMessage:
		return fmt.Sprintf(`send a Slack message: "%s..."`, truncateRunes(argString(args, "text", ""), 80))
	case domain.ToolSlackSendMeetingSummary:
		return fmt.Sprintf(`post meeting summary "%s" to Slack`, argString(args, "title", ""))
	case domain.ToolConfluenceSearch:
		return fmt.Sprintf(`search Confluence for: "%s"`, argString(args, "query", ""))
	case domain.ToolConfluenceCreatePage:
		return fmt.Sprintf(`create Confluence page: "%s"`, argString(args, "title", ""))
	case domain.ToolEmailSend:
		return fmt.Sprintf(`send email to %s: "%s"`, argString(args, "to", ""), argString(args, "subject", ""))
	}
	return "execute " + toolName
}

// argString reads args[key] as text. Missing keys yield def; non-strings are formatted.
func argString(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
