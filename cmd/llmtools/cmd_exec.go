package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"llmtools/internal/tools"
	"llmtools/internal/tools/database"
)

var (
	execPretty    bool
	batchParallel int
)

// execCmd runs one descriptor
var execCmd = &cobra.Command{
	Use:   "exec [descriptor-json|-]",
	Short: "Run one postgres_db operation",
	Long: `Runs a single operation descriptor and prints the JSON result.
With no argument or "-", the descriptor is read from stdin.

Examples:
  llmtools exec '{"operation":"list_tables"}'
  llmtools exec --pretty '{"operation":"query","sql":"SELECT * FROM users"}'
  echo '{"operation":"get_table_schema","tableName":"users"}' | llmtools exec -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExec,
}

// batchCmd runs an array of descriptors
var batchCmd = &cobra.Command{
	Use:   "batch [file|-]",
	Short: "Run a JSON array of operations concurrently",
	Long: `Reads a JSON array of descriptors from a file (or stdin) and runs them
concurrently, at most --parallel at a time. Results are printed as a JSON
array in input order. Operations are independent: no ordering between them
is guaranteed and there is no shared transaction.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func runExec(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read descriptor: %w", err)
		}
	} else {
		raw = []byte(args[0])
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	out := execute(ctx, rt.registry, raw)
	if execPretty {
		var res database.Result
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderResult(res))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read batch: %w", err)
	}

	var descriptors []json.RawMessage
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return fmt.Errorf("batch must be a JSON array of descriptors: %w", err)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	results := make([]json.RawMessage, len(descriptors))
	g, gctx := errgroup.WithContext(ctx)
	if batchParallel > 0 {
		g.SetLimit(batchParallel)
	}
	for i, d := range descriptors {
		g.Go(func() error {
			results[i] = json.RawMessage(execute(gctx, rt.registry, d))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if logger != nil {
		logger.Debug("batch complete", zap.Int("operations", len(descriptors)), zap.Int("parallel", batchParallel))
	}

	out, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// execute runs the database tool and always yields a JSON document.
func execute(ctx context.Context, registry *tools.Registry, raw []byte) string {
	res, err := registry.Execute(ctx, database.ToolName, json.RawMessage(strings.TrimSpace(string(raw))))
	if err != nil {
		return tools.ErrorJSON(err)
	}
	return res.Result
}

// commandContext tolerates commands run without Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
