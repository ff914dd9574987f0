package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	callArgsJSON      string
	callCorrelationID string
	callTimeout       time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke a single tool",
	Long: `Invoke one registered tool with a JSON object of arguments. The result
value or the structured error payload is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgsJSON, "args", "{}", "tool arguments as a JSON object")
	callCmd.Flags().StringVar(&callCorrelationID, "correlation-id", "", "correlation ID to attach (generated when empty)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 0, "invocation timeout (e.g. 5s; 0 disables)")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(callArgsJSON), &toolArgs); err != nil {
		return fmt.Errorf("--args must be a JSON object: %w", err)
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	opts := callOptions(callCorrelationID, callTimeout)
	value, perr := rt.registry.Invoke(context.Background(), args[0], toolArgs, opts...)
	if perr != nil {
		printJSON(perr)
		return ErrReported
	}

	printJSON(value)
	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
