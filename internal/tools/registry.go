package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"protoforge/internal/logging"
	"protoforge/internal/types"
)

// Registry holds all available tools and provides lookup. It is
// thread-safe, though registration normally happens once at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool

	byCategory map[ToolCategory][]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		byCategory: make(map[ToolCategory][]*Tool),
	}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}

	r.tools[tool.Name] = tool
	r.byCategory[tool.Category] = append(r.byCategory[tool.Category], tool)

	logging.ToolsDebug("registered tool %s (category=%s)", tool.Name, tool.Category)
	return nil
}

// MustRegister registers a tool and panics on error. For static
// registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions renders every registered tool for the model protocol, in
// stable name order.
func (r *Registry) Definitions() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]types.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs a tool by name. A panicking handler is converted to an
// error so one bad call can't take down the loop.
func (r *Registry) Execute(ctx context.Context, tc *Context, name string, args map[string]any) (result any, err error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, rec)
			logging.Tools("tool %s panicked: %v", name, rec)
		}
	}()

	start := time.Now()
	logging.ToolsDebug("executing %s with %d args", name, len(args))
	result, err = tool.Execute(ctx, tc, args)
	if err != nil {
		logging.Tools("tool %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	logging.ToolsDebug("tool %s done in %s", name, time.Since(start).Round(time.Millisecond))
	return result, nil
}

// DefaultRegistry builds the registry with every tool the orchestrator
// exposes to the model.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerSpecTools(r)
	registerBoardTools(r)
	registerEnclosureTools(r)
	registerFirmwareTools(r)
	registerControlTools(r)
	return r
}
