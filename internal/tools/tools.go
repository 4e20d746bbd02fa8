// Package tools defines the tools available to the chat pipeline.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/fernwey/atlas-travel-agent/internal/catalog"
	"github.com/fernwey/atlas-travel-agent/internal/events"
	"github.com/fernwey/atlas-travel-agent/internal/knowledge"
	"github.com/fernwey/atlas-travel-agent/internal/weather"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Registry holds available tools.
type Registry struct {
	tools   map[string]*Tool
	catalog *catalog.Catalog
	kb      *knowledge.Base
	weather *weather.Service
	bus     *events.Bus
	logger  *slog.Logger
}

// NewRegistry creates a tool registry over the catalog, knowledge base
// and weather service.
func NewRegistry(cat *catalog.Catalog, kb *knowledge.Base, ws *weather.Service, bus *events.Bus, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:   make(map[string]*Tool),
		catalog: cat,
		kb:      kb,
		weather: ws,
		bus:     bus,
		logger:  logger,
	}
	r.registerBuiltins()
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all tools in the function-call shape the advisor expects.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, name := range r.Names() {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with JSON-encoded arguments. Failures are
// typed: *UnknownToolError, *BadArgumentsError or *ExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", &UnknownToolError{Name: name}
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", &BadArgumentsError{Tool: name, Reason: "invalid JSON", Err: err}
		}
	}

	start := time.Now()
	result, err := tool.Handler(ctx, args)
	elapsed := time.Since(start)

	if r.bus != nil {
		r.bus.Publish(events.Event{
			Timestamp: time.Now(),
			Source:    events.SourceServer,
			Kind:      events.KindToolCall,
			Data: map[string]any{
				"tool":        name,
				"ok":          err == nil,
				"duration_ms": elapsed.Milliseconds(),
			},
		})
	}

	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "error", err)
		return "", err
	}

	r.logger.Debug("tool executed", "tool", name, "elapsed", elapsed)
	return result, nil
}
