package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"llmtools/internal/audit"
)

var auditLimit int

// auditCmd lists the audit trail
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent operations from the audit trail",
	Long: `Shows the most recent operations recorded in the audit database
(audit.path, LLMTOOLS_AUDIT_PATH). Entries are written by exec, batch and
serve when audit.enabled is true.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	store, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(commandContext(cmd), auditLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderAudit(entries))
	return nil
}
