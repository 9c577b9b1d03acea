// Package agents holds the static agent personas and assembles their system prompts.
package agents

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

//go:embed agents.yaml
var definitionsYAML []byte

//go:embed prompts/*.md
var promptFS embed.FS

// Registry is an immutable lookup of agent definitions and base prompts.
type Registry struct {
	order   []domain.AgentID
	agents  map[domain.AgentID]domain.Agent
	prompts map[domain.AgentID]string
}

type definitionsFile struct {
	Agents []domain.Agent `yaml:"agents"`
}

// Load parses the embedded definitions and prompts. Every agent identity must
// be defined exactly once, and every tool it lists must be a known tool.
func Load() (*Registry, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(definitionsYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse agent definitions: %w", err)
	}

	rules, err := promptFS.ReadFile("prompts/markdown_rules.md")
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown rules: %w", err)
	}

	r := &Registry{
		agents:  make(map[domain.AgentID]domain.Agent, len(file.Agents)),
		prompts: make(map[domain.AgentID]string, len(file.Agents)),
	}
	for _, a := range file.Agents {
		if !a.ID.Valid() {
			return nil, fmt.Errorf("unknown agent id %q", a.ID)
		}
		if _, dup := r.agents[a.ID]; dup {
			return nil, fmt.Errorf("agent %q defined twice", a.ID)
		}
		for _, tool := range a.Tools {
			if !domain.ToolName(tool).Known() {
				return nil, fmt.Errorf("agent %q lists unknown tool %q", a.ID, tool)
			}
		}
		if a.Tools == nil {
			a.Tools = []string{}
		}

		body, err := promptFS.ReadFile("prompts/" + string(a.ID) + ".md")
		if err != nil {
			return nil, fmt.Errorf("missing prompt for agent %q: %w", a.ID, err)
		}
		r.order = append(r.order, a.ID)
		r.agents[a.ID] = a
		r.prompts[a.ID] = strings.TrimRight(string(body), "\n") + strings.TrimRight(string(rules), "\n")
	}

	for _, id := range domain.AllAgents {
		if _, ok := r.agents[id]; !ok {
			return nil, fmt.Errorf("agent %q has no definition", id)
		}
	}
	return r, nil
}

// MustLoad is Load for program start-up.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the definition of id.
func (r *Registry) Get(id domain.AgentID) (domain.Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// All returns every definition in declaration order.
func (r *Registry) All() []domain.Agent {
	out := make([]domain.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// BasePrompt returns the static persona prompt of id.
func (r *Registry) BasePrompt(id domain.AgentID) string {
	return r.prompts[id]
}
