package agents

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

const (
	maxListedItems    = 10
	maxListedMeetings = 5
)

// BuildSystemPrompt joins the persona prompt with the product snapshot, the
// retrieved knowledge section and the session's tool list. Empty inputs are omitted.
func (r *Registry) BuildSystemPrompt(id domain.AgentID, store *domain.StoreData, ragText string, tools []string) string {
	parts := []string{r.BasePrompt(id)}

	if store != nil {
		parts = append(parts, productContext(store))
	}
	if ragText != "" {
		parts = append(parts, "\n\n---\n"+ragText)
	}
	if len(tools) > 0 {
		parts = append(parts, "\n\nAvailable tools for this session: "+strings.Join(tools, ", "))
	}
	return strings.Join(parts, "\n")
}

func productContext(store *domain.StoreData) string {
	lines := []string{"\n\n---\n## Current Product Context\n"}

	if len(store.Initiatives) > 0 {
		lines = append(lines, "### Initiatives")
		for _, it := range head(store.Initiatives, maxListedItems) {
			lines = append(lines, fmt.Sprintf("- **%s** (status: %s, value: %s, effort: %s)",
				field(it, "title", "Untitled"), field(it, "status", "?"),
				field(it, "businessValue", "?"), field(it, "effort", "?")))
		}
	}
	if len(store.Risks) > 0 {
		lines = append(lines, "\n### Active Risks")
		for _, it := range head(store.Risks, maxListedItems) {
			lines = append(lines, fmt.Sprintf("- **%s** (severity: %s, status: %s)",
				field(it, "title", "Untitled"), field(it, "severity", "?"), field(it, "status", "?")))
		}
	}
	if len(store.RoadmapItems) > 0 {
		lines = append(lines, "\n### Roadmap Items")
		for _, it := range head(store.RoadmapItems, maxListedItems) {
			lines = append(lines, fmt.Sprintf("- **%s** (status: %s, progress: %s%%)",
				field(it, "title", "Untitled"), field(it, "status", "?"), field(it, "progress", "0")))
		}
	}
	if len(store.Meetings) > 0 {
		lines = append(lines, "\n### Recent Meetings")
		for _, it := range head(store.Meetings, maxListedMeetings) {
			lines = append(lines, fmt.Sprintf("- **%s** (status: %s, date: %s)",
				field(it, "title", "Untitled"), field(it, "status", "?"), field(it, "date", "?")))
		}
	}
	return strings.Join(lines, "\n")
}

func head(items []map[string]any, n int) []map[string]any {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// field renders m[key], or def when the key is absent or null.
func field(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
