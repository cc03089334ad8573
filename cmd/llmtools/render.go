package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"llmtools/internal/audit"
	"llmtools/internal/tools"
	"llmtools/internal/tools/database"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// renderResult draws a Result for humans: the message, then any rows,
// table names or schema as a table.
func renderResult(res database.Result) string {
	if res.IsError() {
		return errorStyle.Render("error: " + res.Error)
	}

	var parts []string
	if res.Message != "" {
		parts = append(parts, messageStyle.Render(res.Message))
	}
	if res.Row != nil {
		parts = append(parts, recordsTable([]*database.Record{res.Row}))
	}
	if res.Rows != nil {
		parts = append(parts, recordsTable(res.Rows))
	}
	if res.Tables != nil {
		t := newTable("table")
		for _, name := range res.Tables {
			t.Row(name)
		}
		parts = append(parts, t.String())
	}
	if res.Schema != nil {
		parts = append(parts, recordsTable(res.Schema))
	}
	return strings.Join(parts, "\n")
}

// recordsTable uses the first record's keys, in order, as headers.
func recordsTable(records []*database.Record) string {
	if len(records) == 0 {
		return "(0 rows)"
	}

	var headers []string
	for p := records[0].Oldest(); p != nil; p = p.Next() {
		headers = append(headers, p.Key)
	}

	t := newTable(headers...)
	for _, r := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := r.Get(h); ok {
				row[i] = formatCell(v)
			}
		}
		t.Row(row...)
	}
	return fmt.Sprintf("%s\n(%d rows)", t.String(), len(records))
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

func renderAudit(entries []audit.Entry) string {
	if len(entries) == 0 {
		return "no audit entries"
	}
	t := newTable("seq", "time", "operation", "table", "ok", "duration", "error")
	for _, e := range entries {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		t.Row(
			fmt.Sprint(e.Seq),
			time.UnixMilli(e.CreatedAtMs).Format(time.DateTime),
			e.Operation,
			e.TableName,
			ok,
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			e.Error,
		)
	}
	return t.String()
}

// toolMarkdown documents a tool and its parameters.
func toolMarkdown(tool *tools.Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", tool.Name)
	fmt.Fprintf(&b, "Data tag: `0x%x`\n\n", tool.DataTag)
	b.WriteString(tool.Description)
	b.WriteString("\n## Parameters\n\n")
	b.WriteString("| name | type | required | description |\n")
	b.WriteString("|---|---|---|---|\n")

	required := make(map[string]bool, len(tool.Schema.Required))
	for _, r := range tool.Schema.Required {
		required[r] = true
	}
	names := make([]string, 0, len(tool.Schema.Properties))
	for name := range tool.Schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := tool.Schema.Properties[name]
		req := ""
		if required[name] {
			req = "yes"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", name, p.Type, req, p.Description)
	}
	return b.String()
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
