package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

func TestLoadDefinesEveryAgent(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, len(domain.AllAgents))
	for i, id := range domain.AllAgents {
		assert.Equal(t, id, all[i].ID)
		prompt := r.BasePrompt(id)
		assert.True(t, strings.HasSuffix(prompt, "1. 2. 3. only for sequential numbered steps"), id)
		assert.Contains(t, prompt, "STRICT MARKDOWN FORMATTING RULES", id)
	}

	strategy, ok := r.Get(domain.AgentStrategy)
	require.True(t, ok)
	assert.Equal(t, "Strategy Agent", strategy.Name)
	assert.InDelta(t, 0.3, strategy.Temperature, 1e-6)
	assert.Equal(t, 5, strategy.MaxIterations)
	assert.Equal(t, []string{"jira_search_issues", "jira_get_issue", "jira_create_issue", "confluence_search", "confluence_create_page"}, strategy.Tools)

	comms, _ := r.Get(domain.AgentCommunications)
	assert.Len(t, comms.Tools, len(domain.AllTools))

	advisor, _ := r.Get(domain.AgentAdvisor)
	assert.Empty(t, advisor.Tools)
	assert.NotNil(t, advisor.Tools)
	assert.Equal(t, 3, advisor.MaxIterations)
}

func TestPersonaHandoffHints(t *testing.T) {
	r := MustLoad()
	assert.Contains(t, r.BasePrompt(domain.AgentStrategy), "[HANDOFF: thinker]")
	assert.Contains(t, r.BasePrompt(domain.AgentDiscovery), "[HANDOFF: risk]")
	assert.Contains(t, r.BasePrompt(domain.AgentRisk), "[HANDOFF: communications]")
	assert.Contains(t, r.BasePrompt(domain.AgentAdvisor), "[HANDOFF: strategy]")
	assert.Contains(t, r.BasePrompt(domain.AgentThinker), "```tool\n")
}

func TestBuildSystemPromptBaseOnly(t *testing.T) {
	r := MustLoad()
	assert.Equal(t, r.BasePrompt(domain.AgentAdvisor), r.BuildSystemPrompt(domain.AgentAdvisor, nil, "", nil))
}

func TestBuildSystemPromptSections(t *testing.T) {
	r := MustLoad()
	store := &domain.StoreData{
		Initiatives: []map[string]any{{"title": "Payments", "status": "active", "businessValue": 8.0}},
		RoadmapItems: []map[string]any{{"title": "Q3 launch", "status": "planned"}},
		Meetings:     []map[string]any{{"status": "done", "date": "2024-05-01"}},
	}
	got := r.BuildSystemPrompt(domain.AgentStrategy, store, "## Relevant Knowledge Base Documents\n", []string{"jira_search_issues", "confluence_search"})

	base := r.BasePrompt(domain.AgentStrategy)
	want := base + "\n" +
		"\n\n---\n## Current Product Context\n\n" +
		"### Initiatives\n" +
		"- **Payments** (status: active, value: 8, effort: ?)\n" +
		"\n### Roadmap Items\n" +
		"- **Q3 launch** (status: planned, progress: 0%)\n" +
		"\n### Recent Meetings\n" +
		"- **Untitled** (status: done, date: 2024-05-01)" +
		"\n" + "\n\n---\n## Relevant Knowledge Base Documents\n" +
		"\n" + "\n\nAvailable tools for this session: jira_search_issues, confluence_search"
	assert.Equal(t, want, got)
}

func TestBuildSystemPromptCapsLists(t *testing.T) {
	r := MustLoad()
	store := &domain.StoreData{}
	for i := 0; i < 12; i++ {
		store.Risks = append(store.Risks, map[string]any{"title": "r", "severity": "high"})
		store.Meetings = append(store.Meetings, map[string]any{"title": "m"})
	}
	got := r.BuildSystemPrompt(domain.AgentRisk, store, "", nil)
	assert.Equal(t, 10, strings.Count(got, "- **r** (severity: high, status: ?)"))
	assert.Equal(t, 5, strings.Count(got, "- **m** (status: ?, date: ?)"))
	assert.NotContains(t, got, "### Initiatives")

	empty := r.BuildSystemPrompt(domain.AgentRisk, &domain.StoreData{}, "", nil)
	assert.True(t, strings.HasSuffix(empty, "## Current Product Context\n"))
}
