package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"llmtools/internal/logging"
)

// Registry maps tool names and transport data tags to tools. Arguments are
// checked against each tool's compiled schema before Execute runs. Safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Tool
	byDataTag map[uint32]*Tool
	schemas   map[string]*gojsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]*Tool),
		byDataTag: make(map[uint32]*Tool),
		schemas:   make(map[string]*gojsonschema.Schema),
	}
}

// Register validates tool, compiles its schema and adds it. Names and
// non-zero data tags must be unique.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	schema, err := compileSchema(tool.Schema)
	if err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidSchema, tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.tools[tool.Name]; dup {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	if tool.DataTag != 0 {
		if owner, taken := r.byDataTag[tool.DataTag]; taken {
			return fmt.Errorf("%w: 0x%x claimed by %s", ErrDataTagInUse, tool.DataTag, owner.Name)
		}
		r.byDataTag[tool.DataTag] = tool
	}
	r.tools[tool.Name] = tool
	r.schemas[tool.Name] = schema

	logging.ToolsDebug("registered %s (tag=0x%x)", tool.Name, tool.DataTag)
	return nil
}

// MustRegister is Register for wiring code that cannot proceed without the tool.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("register %s: %v", tool.Name, err))
	}
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// ByDataTag returns the tool bound to a data tag, or nil.
func (r *Registry) ByDataTag(tag uint32) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byDataTag[tag]
}

// All returns the registered tools ordered by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute looks name up and runs it. It fails with ErrToolNotFound for an
// unknown name.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return r.ExecuteTool(ctx, tool, args)
}

// ExecuteTool validates args and runs tool. Empty args are treated as {}.
// A validation failure is returned both as the error and in the result.
func (r *Registry) ExecuteTool(ctx context.Context, tool *Tool, args json.RawMessage) (*ToolResult, error) {
	start := time.Now()
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	res := &ToolResult{ToolName: tool.Name}
	if err := r.validateArgs(tool, args); err != nil {
		logging.ToolsWarn("%s rejected arguments: %v", tool.Name, err)
		res.Error = err
	} else {
		res.Result, res.Error = tool.Execute(ctx, args)
	}

	elapsed := time.Since(start)
	res.DurationMs = elapsed.Milliseconds()
	logging.ToolsDebug("%s finished in %v (ok=%v)", tool.Name, elapsed, res.Error == nil)
	return res, res.Error
}

// validateArgs checks args against the tool's compiled schema.
func (r *Registry) validateArgs(tool *Tool, args json.RawMessage) error {
	r.mu.RLock()
	schema := r.schemas[tool.Name]
	r.mu.RUnlock()

	if schema == nil {
		// Tool passed to ExecuteTool without registration.
		var err error
		if schema, err = compileSchema(tool.Schema); err != nil {
			return fmt.Errorf("%w for %s: %v", ErrInvalidSchema, tool.Name, err)
		}
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgs, strings.Join(msgs, "; "))
}

func compileSchema(s ToolSchema) (*gojsonschema.Schema, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
}
