package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"llmtools/internal/tools"
	"llmtools/internal/tools/database"
)

var describeRaw bool

// describeCmd documents the registered tools
var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the tool description and parameters",
	Long: `Renders each tool's description and parameter table as markdown.
With --raw, prints the function-calling definitions (name, description and
JSON schema) for wiring into an LLM client.`,
	Args: cobra.NoArgs,
	RunE: runDescribe,
}

// functionDef is the function-calling shape LLM clients expect.
type functionDef struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  tools.ToolSchema `json:"parameters"`
}

func runDescribe(cmd *cobra.Command, args []string) error {
	// Describing needs no connection, so the gateway stays unconfigured.
	registry := tools.NewRegistry()
	if err := database.RegisterAll(registry, database.New(nil)); err != nil {
		return err
	}
	all := registry.All()

	if describeRaw {
		defs := make([]functionDef, len(all))
		for i, t := range all {
			defs[i] = functionDef{Name: t.Name, Description: t.Description, Parameters: t.Schema}
		}
		out, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	docs := make([]string, len(all))
	for i, t := range all {
		docs[i] = toolMarkdown(t)
	}
	rendered, err := renderMarkdown(strings.Join(docs, "\n---\n\n"))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
