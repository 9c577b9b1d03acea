package tools

import (
	"context"
	"fmt"
	"sync"
)

// Result is the normalized outcome of a tool execution.
type Result struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// ExecutorFunc executes one tool.
type ExecutorFunc func(ctx context.Context, args map[string]any) Result

// Registry stores tool executors keyed by tool name.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]ExecutorFunc
}

// NewRegistry creates an empty tool executor registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]ExecutorFunc),
	}
}

// Register adds a new executor for a tool name.
func (r *Registry) Register(toolName string, exec ExecutorFunc) error {
	if toolName == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[toolName]; exists {
		return fmt.Errorf("executor already registered for %s", toolName)
	}
	r.executors[toolName] = exec
	return nil
}

// MustRegister adds an executor or panics.
func (r *Registry) MustRegister(toolName string, exec ExecutorFunc) {
	if err := r.Register(toolName, exec); err != nil {
		panic(err)
	}
}

// Replace registers exec, overwriting any existing executor.
func (r *Registry) Replace(toolName string, exec ExecutorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[toolName] = exec
}

// Lookup returns the executor for a tool name.
func (r *Registry) Lookup(toolName string) (ExecutorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[toolName]
	return exec, ok
}

// Execute runs the executor for the tool name. Unknown tools yield an error result.
func (r *Registry) Execute(ctx context.Context, toolName string, args map[string]any) Result {
	exec, ok := r.Lookup(toolName)
	if !ok {
		return Result{Content: "Unknown tool: " + toolName, IsError: true}
	}
	return exec(ctx, args)
}
