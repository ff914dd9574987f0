package cli

import (
	"context"
	"fmt"

	"github.com/nandavh/toolpipe/internal/audit"
	"github.com/spf13/cobra"
)

var (
	historyLimit       int
	historyCorrelation string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent invocation records",
	Long: `Show the persisted audit trail. By default the most recent records are
printed newest first; --correlation-id narrows the output to one call and
its batch items.`,
	RunE: runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats <tool>",
	Short: "Show aggregated outcome counts for one tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of records")
	historyCmd.Flags().StringVar(&historyCorrelation, "correlation-id", "", "show the records for one correlation ID")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := context.Background()
	records, err := queryHistory(ctx, rt)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}
	printJSON(records)
	return nil
}

func queryHistory(ctx context.Context, rt *runtime) ([]audit.Record, error) {
	if historyCorrelation != "" {
		return rt.store.ByCorrelation(ctx, historyCorrelation)
	}
	return rt.store.Recent(ctx, historyLimit)
}

func runStats(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	stats, err := rt.store.Stats(context.Background(), args[0])
	if err != nil {
		return err
	}
	printJSON(stats)
	return nil
}
