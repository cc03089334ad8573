package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// MsgNotInitialized is the error payload when no connection string is set.
const MsgNotInitialized = "Database connection not initialized"

// Failure labels, one per operation.
const (
	LabelQuery       = "Query"
	LabelCreateTable = "Create table"
	LabelInsertEntry = "Insert entry"
	LabelDeleteTable = "Delete table"
	LabelUpdateEntry = "Update entry"
	LabelDeleteEntry = "Delete entry"
	LabelListTables  = "List tables"
	LabelGetSchema   = "Get schema"
)

// ErrInvalidIdentifier is returned by StrictPolicy.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrNoPool is returned by PoolManager methods when no pool exists.
var ErrNoPool = errors.New("no database pool")

func notInitialized() Result {
	return Result{Error: MsgNotInitialized}
}

func unknownOperation(kind string) Result {
	return Result{Error: "Unknown operation: " + kind}
}

func invalidArguments(err error) Result {
	return Result{Error: "Invalid arguments: " + err.Error()}
}

func failed(label string, err error) Result {
	return Result{Error: fmt.Sprintf("%s failed: %s", label, driverMessage(err))}
}

// driverMessage prefers the server's message over pgx's decorated error text.
func driverMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}
