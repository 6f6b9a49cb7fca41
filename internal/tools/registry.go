// Package tools implements the Tool Registry (C2) and Tool Invoker (C3).
//
// Every built-in tool follows the action-dispatch pattern from spec §4.2:
// a single tool name, and an input shape {action, <id-fields>?, data?}. The
// action set and required fields are external API and must be reproduced
// exactly (spec §6), so each handler validates its own fields directly
// rather than relying solely on schema validation — the jsonschema-v6
// validation in Invoker is a second, schema-level line of defense (§D.9),
// not the only one.
package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallResult is the MCP tool-call result shape: content blocks plus the
// isError discriminant (spec §4.1).
type CallResult struct {
	Content []mcp.Content `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// TextResult builds a successful single-text-block result.
func TextResult(text string) *CallResult {
	return &CallResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// JSONResult builds a successful result whose text content is v marshaled
// as JSON, matching how project_manager/queue_manager return structured
// payloads (lists, stats) as text/json content blocks.
func JSONResult(v any) (*CallResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return TextResult(string(b)), nil
}

// Handler executes one tool invocation. args is the raw "arguments" object
// from the tools/call request; projectID is the session's bound project, if
// any, resolved before the handler runs.
type Handler func(ctx context.Context, args map[string]any, projectID *int64) (*CallResult, error)

// Descriptor is the catalog entry advertised by tools/list.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Tool binds a Descriptor to its Handler.
type Tool struct {
	Descriptor
	Handle Handler
}

// Registry is the immutable, ordered tool catalog (spec §4.2). Registration
// only happens at construction time — Register is unexported from outside
// the builtins package on purpose, so the catalog can never change at
// runtime (spec §5, "Tool Registry is immutable at runtime").
type Registry struct {
	order []string
	byName map[string]*Tool
}

// NewRegistry builds a Registry from tools, preserving their given order —
// tools/list must return a stable order (spec §8).
func NewRegistry(toolsInOrder ...*Tool) *Registry {
	r := &Registry{byName: make(map[string]*Tool, len(toolsInOrder))}
	for _, t := range toolsInOrder {
		r.order = append(r.order, t.Name)
		r.byName[t.Name] = t
	}
	return r
}

// Get performs an O(1) lookup by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// List returns every tool's Descriptor in catalog order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Descriptor)
	}
	return out
}

// Names returns the catalog's tool names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// objectSchema is a small helper for building the {type: object, properties,
// required} JSON Schema shape every built-in tool's inputSchema uses.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectProp(description string) map[string]any {
	return map[string]any{"type": "object", "description": description}
}
