// Package database implements the postgres_db tool: a gateway that accepts
// one tagged operation descriptor, builds parameterized SQL for it, runs it on
// a pooled PostgreSQL connection and folds the outcome into a Result.
//
// Eight operations are supported: query, create_table, insert_entry,
// delete_table, update_entry, delete_entry, list_tables and get_table_schema.
//
// Trust boundary: table names, column names and column types are concatenated
// into SQL text unquoted. Only values are bound as parameters. Callers must not
// let untrusted free text reach identifier fields, or must configure
// StrictPolicy, which rejects anything that is not a plain identifier before a
// connection is acquired.
//
// Every path through Dispatch returns a Result. Driver failures, acquire
// failures and panics inside an executor become error payloads; a missing
// connection string becomes "Database connection not initialized".
package database
