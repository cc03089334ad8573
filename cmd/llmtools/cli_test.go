package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"llmtools/internal/audit"
	"llmtools/internal/config"
	"llmtools/internal/tools/database"
)

// setupCLI resets the globals PersistentPreRunE would set.
func setupCLI(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	timeout = time.Minute
	execPretty, describeRaw = false, false
	batchParallel, auditLimit = 4, 20

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	return cmd, &out
}

func TestExecCmd_Unconfigured(t *testing.T) {
	cmd, out := setupCLI(t)

	require.NoError(t, runExec(cmd, []string{`{"operation":"list_tables"}`}))
	assert.Equal(t, `{"error":"Database connection not initialized"}`+"\n", out.String())
}

func TestExecCmd_Stdin(t *testing.T) {
	cmd, out := setupCLI(t)
	cmd.SetIn(strings.NewReader(`{"operation":"vacuum"}` + "\n"))

	require.NoError(t, runExec(cmd, []string{"-"}))
	assert.Equal(t, `{"error":"Unknown operation: vacuum"}`+"\n", out.String())
}

func TestExecCmd_InvalidArguments(t *testing.T) {
	cmd, out := setupCLI(t)

	require.NoError(t, runExec(cmd, []string{`{"sql":"SELECT 1"}`}))
	var payload map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Contains(t, payload["error"], "invalid arguments")
}

func TestExecCmd_Pretty(t *testing.T) {
	cmd, out := setupCLI(t)
	execPretty = true

	require.NoError(t, runExec(cmd, []string{`{"operation":"list_tables"}`}))
	assert.Contains(t, out.String(), "error: Database connection not initialized")
}

func TestBatchCmd_PreservesInputOrder(t *testing.T) {
	cmd, out := setupCLI(t)
	batchParallel = 2

	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"operation":"first"},
		{"operation":"list_tables"},
		{"operation":"third"},
		{}
	]`), 0644))

	require.NoError(t, runBatch(cmd, []string{path}))

	var results []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 4)
	assert.Equal(t, "Unknown operation: first", results[0]["error"])
	assert.Equal(t, "Database connection not initialized", results[1]["error"])
	assert.Equal(t, "Unknown operation: third", results[2]["error"])
	assert.Contains(t, results[3]["error"], "invalid arguments")
}

func TestBatchCmd_RejectsNonArray(t *testing.T) {
	cmd, _ := setupCLI(t)
	cmd.SetIn(strings.NewReader(`{"operation":"list_tables"}`))

	assert.Error(t, runBatch(cmd, nil))
}

func TestDescribeCmd_Raw(t *testing.T) {
	cmd, out := setupCLI(t)
	describeRaw = true

	require.NoError(t, runDescribe(cmd, nil))

	var defs []struct {
		Name       string `json:"name"`
		Parameters struct {
			Type       string                     `json:"type"`
			Required   []string                   `json:"required"`
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &defs))
	require.Len(t, defs, 1)
	def := defs[0]
	assert.Equal(t, "postgres_db", def.Name)
	assert.Equal(t, "object", def.Parameters.Type)
	assert.Equal(t, []string{"operation"}, def.Parameters.Required)
	for _, field := range []string{"operation", "sql", "tableName", "columns", "values", "conditions"} {
		assert.Contains(t, def.Parameters.Properties, field)
	}
}

func TestDescribeCmd_Markdown(t *testing.T) {
	cmd, out := setupCLI(t)

	require.NoError(t, runDescribe(cmd, nil))
	assert.Contains(t, out.String(), "postgres_db")
	assert.Contains(t, out.String(), "get_table_schema")
}

func TestToolMarkdown(t *testing.T) {
	md := toolMarkdown(database.Tool(nil))
	assert.True(t, strings.HasPrefix(md, "# postgres_db\n"))
	assert.Contains(t, md, "Data tag: `0x77`")
	assert.Contains(t, md, "| `operation` | string | yes |")
	assert.Contains(t, md, "| `sql` | string |  |")
}

func TestAuditCmd_ListsRecordedOperations(t *testing.T) {
	cmd, out := setupCLI(t)
	cfg.Audit.Enabled = true
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.db")

	require.NoError(t, runExec(cmd, []string{`{"operation":"delete_table","tableName":"users"}`}))
	out.Reset()

	require.NoError(t, runAudit(cmd, nil))
	assert.Contains(t, out.String(), "delete_table")
	assert.Contains(t, out.String(), "users")
	assert.Contains(t, out.String(), "Database connection not initialized")
}

func TestAuditCmd_Empty(t *testing.T) {
	cmd, out := setupCLI(t)
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.db")

	require.NoError(t, runAudit(cmd, nil))
	assert.Equal(t, "no audit entries\n", out.String())
}

func TestServeCmd_RequiresNATS(t *testing.T) {
	cmd, _ := setupCLI(t)
	serveNATSURL = ""
	cfg.NATS.URL = ""

	assert.ErrorContains(t, runServe(cmd, nil), "NATS URL")
}

func TestNewRuntime(t *testing.T) {
	_, _ = setupCLI(t)

	cfg.Database.IdentifierPolicy = "paranoid"
	_, err := newRuntime(cfg)
	assert.Error(t, err)

	cfg.Database.IdentifierPolicy = config.PolicyStrict
	cfg.Metrics.Enabled = true
	rt, err := newRuntime(cfg)
	require.NoError(t, err)
	defer rt.Close()

	assert.True(t, rt.registry.Has(database.ToolName))
	assert.NotNil(t, rt.metrics)
	assert.Nil(t, rt.audit)
	assert.False(t, rt.pools.Configured())
}

func TestRenderResult(t *testing.T) {
	rows := renderResult(database.Result{Rows: []*database.Record{
		database.RecordOf("name", "Ann", "age", int64(30)),
		database.RecordOf("name", "Bob", "age", nil),
	}})
	assert.Contains(t, rows, "name")
	assert.Contains(t, rows, "Ann")
	assert.Contains(t, rows, "NULL")
	assert.Contains(t, rows, "(2 rows)")
	assert.Less(t, strings.Index(rows, "name"), strings.Index(rows, "age"))

	inserted := renderResult(database.Result{Message: `Inserted into table "users"`, Row: database.RecordOf("id", int64(1))})
	assert.Contains(t, inserted, `Inserted into table "users"`)
	assert.Contains(t, inserted, "(1 rows)")

	assert.Contains(t, renderResult(database.Result{Rows: []*database.Record{}}), "(0 rows)")
	assert.Contains(t, renderResult(database.Result{Tables: []string{"users", "orders"}}), "orders")
	assert.Contains(t, renderResult(database.Result{Error: "Query failed: boom"}), "error: Query failed: boom")
}

func TestRenderAudit(t *testing.T) {
	out := renderAudit([]audit.Entry{{Seq: 7, Operation: "query", Success: true, DurationMs: 12}})
	assert.Contains(t, out, "query")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "12ms")
}
