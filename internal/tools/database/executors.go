package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"llmtools/internal/logging"
)

// Query runs caller SQL in a READ ONLY transaction that is always rolled
// back, so nothing it does can be committed. The text goes through the
// extended protocol, so the server rejects multiple statements at parse time
// and a COMMIT inside it cannot end the transaction.
func (g *Gateway) Query(ctx context.Context, a QueryArgs) Result {
	return g.execute(ctx, LabelQuery, a, func(conn Conn) Result {
		tx, err := conn.BeginReadOnly(ctx)
		if err != nil {
			return failed(LabelQuery, err)
		}
		defer func() {
			if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				logging.GatewayWarn("query rollback: %v", err)
			}
		}()

		rows, err := tx.Query(ctx, a.SQL, pgx.QueryExecModeDescribeExec)
		if err != nil {
			return failed(LabelQuery, err)
		}
		recs, err := collectRecords(rows)
		if err != nil {
			return failed(LabelQuery, err)
		}
		return Result{Rows: recs}
	})
}

// CreateTable runs CREATE TABLE with the given column definitions.
func (g *Gateway) CreateTable(ctx context.Context, a CreateTableArgs) Result {
	return g.execute(ctx, LabelCreateTable, a, func(conn Conn) Result {
		st := createTableStatement(a.TableName, a.Columns)
		if _, err := conn.Exec(ctx, st.SQL, st.Args...); err != nil {
			return failed(LabelCreateTable, err)
		}

		described := make([]string, len(a.Columns))
		for i, c := range a.Columns {
			described[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
		}
		return Result{Message: fmt.Sprintf("Table \"%s\" created successfully with columns: %s",
			a.TableName, strings.Join(described, ", "))}
	})
}

// InsertEntry inserts one row and returns it.
func (g *Gateway) InsertEntry(ctx context.Context, a InsertEntryArgs) Result {
	return g.execute(ctx, LabelInsertEntry, a, func(conn Conn) Result {
		st := insertStatement(a.TableName, a.Values)
		recs, err := queryRecords(ctx, conn, st)
		if err != nil {
			return failed(LabelInsertEntry, err)
		}
		res := Result{Message: fmt.Sprintf("Inserted into table \"%s\"", a.TableName)}
		if len(recs) > 0 {
			res.Row = recs[0]
		}
		return res
	})
}

// DeleteTable drops a table. A missing table is not an error.
func (g *Gateway) DeleteTable(ctx context.Context, a DeleteTableArgs) Result {
	return g.execute(ctx, LabelDeleteTable, a, func(conn Conn) Result {
		st := dropTableStatement(a.TableName)
		if _, err := conn.Exec(ctx, st.SQL, st.Args...); err != nil {
			return failed(LabelDeleteTable, err)
		}
		return Result{Message: fmt.Sprintf("Table \"%s\" deleted successfully", a.TableName)}
	})
}

// UpdateEntry updates matching rows and returns them.
func (g *Gateway) UpdateEntry(ctx context.Context, a UpdateEntryArgs) Result {
	return g.execute(ctx, LabelUpdateEntry, a, func(conn Conn) Result {
		recs, err := queryRecords(ctx, conn, updateStatement(a.TableName, a.Values, a.Conditions))
		if err != nil {
			return failed(LabelUpdateEntry, err)
		}
		return Result{Message: fmt.Sprintf("Updated entry in table \"%s\"", a.TableName), Rows: recs}
	})
}

// DeleteEntry deletes matching rows and returns them.
func (g *Gateway) DeleteEntry(ctx context.Context, a DeleteEntryArgs) Result {
	return g.execute(ctx, LabelDeleteEntry, a, func(conn Conn) Result {
		recs, err := queryRecords(ctx, conn, deleteEntryStatement(a.TableName, a.Conditions))
		if err != nil {
			return failed(LabelDeleteEntry, err)
		}
		return Result{Message: fmt.Sprintf("Deleted entry from table \"%s\"", a.TableName), Rows: recs}
	})
}

// ListTables returns table names in the public schema.
func (g *Gateway) ListTables(ctx context.Context) Result {
	return g.execute(ctx, LabelListTables, ListTablesArgs{}, func(conn Conn) Result {
		recs, err := queryRecords(ctx, conn, Statement{SQL: listTablesSQL})
		if err != nil {
			return failed(LabelListTables, err)
		}
		names := make([]string, 0, len(recs))
		for _, r := range recs {
			v, _ := r.Get("table_name")
			switch name := v.(type) {
			case string:
				names = append(names, name)
			case []byte:
				names = append(names, string(name))
			default:
				names = append(names, fmt.Sprint(name))
			}
		}
		return Result{Tables: names}
	})
}

// GetTableSchema describes a table's columns. An unknown table yields an
// empty schema.
func (g *Gateway) GetTableSchema(ctx context.Context, a GetTableSchemaArgs) Result {
	return g.execute(ctx, LabelGetSchema, a, func(conn Conn) Result {
		recs, err := queryRecords(ctx, conn, tableSchemaStatement(a.TableName))
		if err != nil {
			return failed(LabelGetSchema, err)
		}
		return Result{Schema: recs}
	})
}

func queryRecords(ctx context.Context, q Querier, st Statement) ([]*Record, error) {
	rows, err := q.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}
