// Package tools provides the registry for LLM function-calling tools.
//
// A tool receives one JSON argument object produced by an orchestration layer,
// performs one side effect and returns a string result. Arguments stay as raw
// JSON until the tool decodes them so that object key order survives.
//
// Architecture:
//
//	args (JSON) → Registry.Execute → schema validation → Tool.Execute → result string
package tools

import (
	"context"
	"encoding/json"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	// Items describes array element schema (required for type="array")
	Items *Property `json:"items,omitempty"`

	// Properties and Required describe nested objects.
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`

	// AdditionalProperties constrains the values of free-form objects.
	AdditionalProperties *Property `json:"additionalProperties,omitempty"`
}

// ToolSchema defines the JSON schema for tool arguments.
// The top level is always an object.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string

	// Properties describes each parameter.
	Properties map[string]Property
}

// MarshalJSON renders the schema as a JSON Schema object document.
func (s ToolSchema) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		props = map[string]Property{}
	}
	doc := struct {
		Type       string              `json:"type"`
		Properties map[string]Property `json:"properties"`
		Required   []string            `json:"required,omitempty"`
	}{
		Type:       "object",
		Properties: props,
		Required:   s.Required,
	}
	return json.Marshal(doc)
}

// ExecuteFunc is the signature for tool execution.
// Returns the result string and any error.
type ExecuteFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Tool defines a function-calling tool.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	// Used for LLM tool calling and documentation.
	Description string

	// DataTag routes transport messages to the tool. Zero means untagged.
	DataTag uint32

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the string output from the tool.
	Result string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
