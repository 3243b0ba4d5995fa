// Package tools implements the named operations the generative model can
// request: the registry that maps tool names to handlers, the explicit
// execution context handlers receive, and the handler groups for each
// generation stage plus session control.
package tools

import (
	"context"
	"fmt"

	"protoforge/internal/types"
)

// ToolCategory groups tools by the stage they serve.
type ToolCategory string

const (
	CategorySpec      ToolCategory = "spec"
	CategoryBoard     ToolCategory = "board"
	CategoryEnclosure ToolCategory = "enclosure"
	CategoryFirmware  ToolCategory = "firmware"
	CategoryControl   ToolCategory = "control"
)

// HandlerFunc is the signature every tool handler implements. Handlers
// mutate project state through the context and return a JSON-encodable
// result. A returned error becomes a structured {error} payload in the
// conversation; it does not abort the turn.
type HandlerFunc func(ctx context.Context, tc *Context, args map[string]any) (any, error)

// Tool is one registered operation.
type Tool struct {
	Name        string
	Description string
	Category    ToolCategory
	InputSchema map[string]any
	Execute     HandlerFunc
}

// Validate checks that a tool is well-formed before registration.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Description == "" {
		return fmt.Errorf("tool %s has no description", t.Name)
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	return nil
}

// Definition renders the tool for the model protocol.
func (t *Tool) Definition() types.ToolDefinition {
	schema := t.InputSchema
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return types.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}
}

// objectSchema is a small helper for declaring input schemas.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Argument accessors. The model sends JSON, so numbers arrive as float64
// and everything needs a type check.

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func floatArg(args map[string]any, key string) (float64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func stringSliceArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
