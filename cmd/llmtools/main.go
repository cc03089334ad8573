package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"llmtools/internal/config"
	"llmtools/internal/logging"
)

var (
	// Global flags
	configPath string
	envFiles   []string
	verbose    bool
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "llmtools",
	Short: "llmtools - PostgreSQL operations gateway for LLM tool calling",
	Long: `llmtools exposes a PostgreSQL database to LLM function calling through a
single tool, postgres_db. Every request is a JSON descriptor naming one
operation; every reply is a JSON object, either a success payload or
{"error": "..."}.

Operations: query (read-only), create_table, insert_entry, delete_table,
update_entry, delete_entry, list_tables, get_table_schema.

Set DATABASE_URL (or database.url in the config file) to connect.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFiles...); err != nil {
			return err
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Zap()
		logging.BootDebug("config loaded from %q (database configured=%v)", configPath, cfg.Database.PoolConfigured())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "llmtools.yaml", "Config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Dotenv files to load (default: .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout for exec and batch")

	execCmd.Flags().BoolVar(&execPretty, "pretty", false, "Render rows as a table instead of JSON")
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "p", 4, "Maximum concurrent operations")
	describeCmd.Flags().BoolVar(&describeRaw, "raw", false, "Print the JSON schema instead of rendered markdown")
	serveCmd.Flags().StringVar(&serveNATSURL, "nats-url", "", "NATS server URL (overrides config)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Metrics listen address (overrides config, enables metrics)")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of entries to show")

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.BootError("%s: %v", rootCmd.Name(), err)
		logging.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
