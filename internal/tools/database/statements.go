package database

import (
	"strconv"
	"strings"
)

// Statement is SQL text plus its positional parameters.
type Statement struct {
	SQL  string
	Args []any
}

const (
	listTablesSQL = "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"

	tableSchemaSQL = "SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position"
)

func createTableStatement(table string, cols []ColumnDef) Statement {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
	}
	return Statement{
		SQL:  "CREATE TABLE " + table + " (" + strings.Join(defs, ", ") + ")",
		Args: []any{},
	}
}

func dropTableStatement(table string) Statement {
	return Statement{SQL: "DROP TABLE IF EXISTS " + table, Args: []any{}}
}

func insertStatement(table string, values *Record) Statement {
	cols, args := entries(values)
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = placeholder(i + 1)
	}
	return Statement{
		SQL:  "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ",") + ") RETURNING *",
		Args: nonNil(args),
	}
}

// updateStatement numbers SET parameters first, then WHERE parameters.
// An empty condition map yields "WHERE  RETURNING *", which the server
// rejects.
func updateStatement(table string, values, conditions *Record) Statement {
	setCols, setArgs := entries(values)
	whereCols, whereArgs := entries(conditions)

	set := assignments(setCols, 1)
	where := assignments(whereCols, len(setCols)+1)

	return Statement{
		SQL:  "UPDATE " + table + " SET " + strings.Join(set, ", ") + " WHERE " + strings.Join(where, " AND ") + " RETURNING *",
		Args: nonNil(append(setArgs, whereArgs...)),
	}
}

func deleteEntryStatement(table string, conditions *Record) Statement {
	cols, args := entries(conditions)
	return Statement{
		SQL:  "DELETE FROM " + table + " WHERE " + strings.Join(assignments(cols, 1), " AND ") + " RETURNING *",
		Args: nonNil(args),
	}
}

func tableSchemaStatement(table string) Statement {
	return Statement{SQL: tableSchemaSQL, Args: []any{table}}
}

func assignments(cols []string, start int) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c + "=" + placeholder(start+i)
	}
	return out
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
