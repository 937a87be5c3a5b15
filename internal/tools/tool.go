// Package tools holds the fixed catalogue of capabilities the assistant can
// invoke: the static personal documents, the ski-day record, and the three
// remote integrations (Strava, Spotify, Hardcover).
package tools

import (
	"context"
	"encoding/json"

	"github.com/dwern/persona/internal/llm"
)

// Tool is one capability in the catalogue.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns the natural-language description the model uses to
	// decide when to invoke the tool.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input.
	InputSchema() json.RawMessage

	// Execute runs the tool and returns human-readable text suitable for
	// direct inclusion in a follow-up prompt.
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// Registry is the catalogue, built once at startup and never mutated.
// Registration order is preserved so the catalogue reads stably in prompts.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names replace in place.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns model-ready tool definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}
