// Package tools parses, describes and executes integration tool calls.
package tools

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

var toolBlockRe = regexp.MustCompile("```tool\\s*\\n?([\\s\\S]*?)```")

// ParseToolCalls extracts tool calls from fenced ```tool blocks in model output.
// Blocks that are not a JSON object with both "name" and "arguments" are skipped.
func ParseToolCalls(text string) []domain.ToolCall {
	var calls []domain.ToolCall
	for _, m := range toolBlockRe.FindAllStringSubmatch(text, -1) {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &raw); err != nil {
			continue
		}
		rawName, hasName := raw["name"]
		rawArgs, hasArgs := raw["arguments"]
		if !hasName || !hasArgs {
			continue
		}

		var name string
		if err := json.Unmarshal(rawName, &name); err != nil {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			continue
		}
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, domain.ToolCall{Name: name, Arguments: args})
	}
	return calls
}

// StripToolBlocks removes ```tool blocks and trims the result.
func StripToolBlocks(text string) string {
	return strings.TrimSpace(toolBlockRe.ReplaceAllString(text, ""))
}
