package tools

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Definition describes one integration tool.
type Definition struct {
	Name        domain.ToolName `json:"name"`
	Integration string          `json:"integration"`
	Description string          `json:"description"`
	ReadOnly    bool            `json:"read_only"`
	Schema      string          `json:"-"`

	compiled *gojsonschema.Schema
}

var catalog = []*Definition{
	{
		Name:        domain.ToolJiraSearchIssues,
		Integration: "jira",
		Description: "Search Jira issues with a JQL query",
		Schema:      `{"type":"object","properties":{"jql":{"type":"string"}}}`,
	},
	{
		Name:        domain.ToolJiraCreateIssue,
		Integration: "jira",
		Description: "Create a Jira issue (Story, Task, Bug or Epic)",
		Schema: `{"type":"object","required":["summary"],"properties":{
			"summary":{"type":"string","minLength":1},
			"description":{"type":"string"},
			"issueType":{"type":"string"},
			"labels":{"type":["string","array"],"items":{"type":"string"}}}}`,
	},
	{
		Name:        domain.ToolJiraGetIssue,
		Integration: "jira",
		Description: "Get the details of a Jira issue by key",
		Schema:      `{"type":"object","required":["issueKey"],"properties":{"issueKey":{"type":"string","minLength":1}}}`,
	},
	{
		Name:        domain.ToolJiraAddComment,
		Integration: "jira",
		Description: "Add a comment to a Jira issue",
		Schema: `{"type":"object","required":["issueKey","body"],"properties":{
			"issueKey":{"type":"string","minLength":1},
			"body":{"type":"string"}}}`,
	},
	{
		Name:        domain.ToolSlackPostMessage,
		Integration: "slack",
		Description: "Post a message to a Slack channel",
		Schema: `{"type":"object","required":["text"],"properties":{
			"text":{"type":"string"},
			"channel":{"type":["string","null"]}}}`,
	},
	{
		Name:        domain.ToolSlackSendMeetingSummary,
		Integration: "slack",
		Description: "Post a formatted meeting summary to Slack",
		Schema: `{"type":"object","required":["title"],"properties":{
			"title":{"type":"string"},
			"summary":{"type":"string"},
			"actionItems":{"type":["string","array"]},
			"decisions":{"type":["string","array"]}}}`,
	},
	{
		Name:        domain.ToolConfluenceSearch,
		Integration: "confluence",
		Description: "Search Confluence pages",
		Schema:      `{"type":"object","required":["query"],"properties":{"query":{"type":"string"}}}`,
	},
	{
		Name:        domain.ToolConfluenceCreatePage,
		Integration: "confluence",
		Description: "Create a Confluence page",
		Schema: `{"type":"object","required":["title"],"properties":{
			"title":{"type":"string","minLength":1},
			"body":{"type":"string"},
			"spaceKey":{"type":["string","null"]}}}`,
	},
	{
		Name:        domain.ToolEmailSend,
		Integration: "email",
		Description: "Send an email",
		Schema: `{"type":"object","required":["to","subject"],"properties":{
			"to":{"type":"string","minLength":1},
			"subject":{"type":"string"},
			"body":{"type":"string"}}}`,
	},
}

var catalogByName = func() map[domain.ToolName]*Definition {
	m := make(map[domain.ToolName]*Definition, len(catalog))
	for _, def := range catalog {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def.Schema))
		if err != nil {
			panic(fmt.Sprintf("invalid schema for %s: %v", def.Name, err))
		}
		def.compiled = schema
		def.ReadOnly = def.Name.ReadOnly()
		m[def.Name] = def
	}
	return m
}()

// Catalog returns the tool definitions in declaration order.
func Catalog() []Definition {
	out := make([]Definition, 0, len(catalog))
	for _, def := range catalog {
		out = append(out, *def)
	}
	return out
}

// Lookup returns the definition for a tool name.
func Lookup(name string) (*Definition, bool) {
	def, ok := catalogByName[domain.ToolName(name)]
	return def, ok
}

// ValidateArguments checks args against the tool's argument schema.
func ValidateArguments(name string, args map[string]any) error {
	def, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := def.compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("failed to validate arguments: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
