package database

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operation kinds.
const (
	OpQuery          = "query"
	OpCreateTable    = "create_table"
	OpInsertEntry    = "insert_entry"
	OpDeleteTable    = "delete_table"
	OpUpdateEntry    = "update_entry"
	OpDeleteEntry    = "delete_entry"
	OpListTables     = "list_tables"
	OpGetTableSchema = "get_table_schema"
)

// Operations lists the supported kinds in dispatch order.
var Operations = []string{
	OpQuery, OpCreateTable, OpInsertEntry, OpDeleteTable,
	OpUpdateEntry, OpDeleteEntry, OpListTables, OpGetTableSchema,
}

// Descriptor is one decoded operation request. The set of implementations
// is closed; anything unrecognized decodes to UnknownOperation.
type Descriptor interface {
	// Operation returns the kind tag.
	Operation() string
	// Table returns the target table, or "" when the kind has none.
	Table() string

	descriptor()
}

// QueryArgs runs caller SQL inside a read-only transaction.
type QueryArgs struct {
	SQL string `json:"sql"`
}

// ColumnDef is one column of a create_table request. Type is passed through
// verbatim.
type ColumnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateTableArgs creates a table from column definitions.
type CreateTableArgs struct {
	TableName string      `json:"tableName"`
	Columns   []ColumnDef `json:"columns"`
}

// InsertEntryArgs inserts one row.
type InsertEntryArgs struct {
	TableName string  `json:"tableName"`
	Values    *Record `json:"values"`
}

// DeleteTableArgs drops a table if it exists.
type DeleteTableArgs struct {
	TableName string `json:"tableName"`
}

// UpdateEntryArgs updates rows matching every condition.
type UpdateEntryArgs struct {
	TableName  string  `json:"tableName"`
	Values     *Record `json:"values"`
	Conditions *Record `json:"conditions"`
}

// DeleteEntryArgs deletes rows matching every condition.
type DeleteEntryArgs struct {
	TableName  string  `json:"tableName"`
	Conditions *Record `json:"conditions"`
}

// ListTablesArgs lists tables in the public schema.
type ListTablesArgs struct{}

// GetTableSchemaArgs describes the columns of one table.
type GetTableSchemaArgs struct {
	TableName string `json:"tableName"`
}

// UnknownOperation carries a kind tag outside the supported set.
type UnknownOperation struct {
	Name string
}

func (QueryArgs) Operation() string          { return OpQuery }
func (CreateTableArgs) Operation() string    { return OpCreateTable }
func (InsertEntryArgs) Operation() string    { return OpInsertEntry }
func (DeleteTableArgs) Operation() string    { return OpDeleteTable }
func (UpdateEntryArgs) Operation() string    { return OpUpdateEntry }
func (DeleteEntryArgs) Operation() string    { return OpDeleteEntry }
func (ListTablesArgs) Operation() string     { return OpListTables }
func (GetTableSchemaArgs) Operation() string { return OpGetTableSchema }
func (u UnknownOperation) Operation() string { return u.Name }

func (QueryArgs) Table() string            { return "" }
func (a CreateTableArgs) Table() string    { return a.TableName }
func (a InsertEntryArgs) Table() string    { return a.TableName }
func (a DeleteTableArgs) Table() string    { return a.TableName }
func (a UpdateEntryArgs) Table() string    { return a.TableName }
func (a DeleteEntryArgs) Table() string    { return a.TableName }
func (ListTablesArgs) Table() string       { return "" }
func (a GetTableSchemaArgs) Table() string { return a.TableName }
func (UnknownOperation) Table() string     { return "" }

func (QueryArgs) descriptor()          {}
func (CreateTableArgs) descriptor()    {}
func (InsertEntryArgs) descriptor()    {}
func (DeleteTableArgs) descriptor()    {}
func (UpdateEntryArgs) descriptor()    {}
func (DeleteEntryArgs) descriptor()    {}
func (ListTablesArgs) descriptor()     {}
func (GetTableSchemaArgs) descriptor() {}
func (UnknownOperation) descriptor()   {}

// ParseDescriptor decodes a JSON argument object. The "operation" field
// selects the concrete type; fields that do not belong to it are ignored.
// An unrecognized, missing or non-string tag yields UnknownOperation, not an
// error.
func ParseDescriptor(raw []byte) (Descriptor, error) {
	var head struct {
		Operation json.RawMessage `json:"operation"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	op := operationName(head.Operation)
	switch op {
	case OpQuery:
		return decodeAs[QueryArgs](raw)
	case OpCreateTable:
		return decodeAs[CreateTableArgs](raw)
	case OpInsertEntry:
		a, err := decodeAs[InsertEntryArgs](raw)
		normalizeRecord(a.Values)
		return a, err
	case OpDeleteTable:
		return decodeAs[DeleteTableArgs](raw)
	case OpUpdateEntry:
		a, err := decodeAs[UpdateEntryArgs](raw)
		normalizeRecord(a.Values)
		normalizeRecord(a.Conditions)
		return a, err
	case OpDeleteEntry:
		a, err := decodeAs[DeleteEntryArgs](raw)
		normalizeRecord(a.Conditions)
		return a, err
	case OpListTables:
		return ListTablesArgs{}, nil
	case OpGetTableSchema:
		return decodeAs[GetTableSchemaArgs](raw)
	default:
		return UnknownOperation{Name: op}, nil
	}
}

// operationName reads the tag. A non-string tag is kept as its JSON text so
// that it reports as an unknown operation.
func operationName(tag json.RawMessage) string {
	tag = bytes.TrimSpace(tag)
	if len(tag) == 0 || bytes.Equal(tag, []byte("null")) {
		return ""
	}
	var name string
	if err := json.Unmarshal(tag, &name); err == nil {
		return name
	}
	return string(tag)
}

func decodeAs[T Descriptor](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%s: %w", v.Operation(), err)
	}
	return v, nil
}
