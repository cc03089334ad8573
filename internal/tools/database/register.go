package database

import (
	"context"
	"encoding/json"

	"llmtools/internal/tools"
)

const (
	// ToolName is the registry name of the gateway tool.
	ToolName = "postgres_db"

	// DataTag is the transport tag the tool answers on.
	DataTag uint32 = 0x77
)

// Description outlines the tool for LLM function calling.
const Description = `Connect to PostgreSQL database and perform various operations. The operations are:
- query: Execute a SQL query.
- create_table: Create a new table.
- insert_entry: Insert a new entry into a table.
- delete_table: Delete a table.
- update_entry: Update an entry in a table.
- delete_entry: Delete an entry from a table.
- list_tables: List all tables in the database.
- get_table_schema: Get the schema of a table.
`

// Tool returns the postgres_db tool bound to gw. Its result is always a
// JSON Result; gateway failures are error payloads, not Go errors.
func Tool(gw *Gateway) *tools.Tool {
	return &tools.Tool{
		Name:        ToolName,
		Description: Description,
		DataTag:     DataTag,
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			return gw.Handle(ctx, args).String(), nil
		},
		Schema: Schema(),
	}
}

// Schema describes the union of all descriptor fields. Only "operation" is
// required; which other fields matter depends on it.
func Schema() tools.ToolSchema {
	return tools.ToolSchema{
		Required: []string{"operation"},
		Properties: map[string]tools.Property{
			"operation": {
				Type:        "string",
				Description: "One of: query, create_table, insert_entry, delete_table, update_entry, delete_entry, list_tables, get_table_schema",
			},
			"sql": {
				Type:        "string",
				Description: "SQL to run read-only (query)",
			},
			"tableName": {
				Type:        "string",
				Description: "Target table (all operations except query and list_tables)",
			},
			"columns": {
				Type:        "array",
				Description: "Column definitions (create_table)",
				Items: &tools.Property{
					Type:     "object",
					Required: []string{"name", "type"},
					Properties: map[string]tools.Property{
						"name": {Type: "string", Description: "Column name"},
						"type": {Type: "string", Description: "PostgreSQL column type"},
					},
				},
			},
			"values": {
				Type:        "object",
				Description: "Column to value map (insert_entry, update_entry)",
			},
			"conditions": {
				Type:        "object",
				Description: "Column to value map joined with AND (update_entry, delete_entry)",
			},
		},
	}
}

// RegisterAll registers the database tools.
func RegisterAll(registry *tools.Registry, gw *Gateway) error {
	return registry.Register(Tool(gw))
}
