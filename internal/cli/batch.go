package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nandavh/toolpipe/pkg/pipeline"
)

var (
	batchItemsJSON   string
	batchItemsFile   string
	batchCorrelation string
	batchTimeout     time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <tool>",
	Short: "Invoke a batchable tool over a sequence of argument maps",
	Long: `Invoke a batchable tool with a JSON array of argument objects. Items run
concurrently up to the configured worker bound; the printed output always
has one entry per input item, in input order. Failed items carry a
structured error in their slot instead of a value.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchItemsJSON, "items", "", "batch items as a JSON array of objects")
	batchCmd.Flags().StringVar(&batchItemsFile, "items-file", "", "file containing the JSON array of items")
	batchCmd.Flags().StringVar(&batchCorrelation, "correlation-id", "", "correlation ID to attach (generated when empty)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "whole-batch timeout (e.g. 30s; 0 disables)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	raw := []byte(batchItemsJSON)
	if batchItemsFile != "" {
		data, err := os.ReadFile(batchItemsFile)
		if err != nil {
			return fmt.Errorf("failed to read items file: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		return fmt.Errorf("either --items or --items-file is required")
	}

	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("items must be a JSON array of objects: %w", err)
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	opts := callOptions(batchCorrelation, batchTimeout)
	results, err := rt.registry.InvokeBatch(context.Background(), args[0], items, opts...)
	if err != nil {
		return err
	}

	printJSON(pipeline.RenderBatch(results))

	for _, res := range results {
		if res.Error != nil {
			return ErrReported
		}
	}
	return nil
}
