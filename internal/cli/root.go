package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// ErrReported marks a failure whose details were already printed (e.g. a
// structured error payload on stdout). main exits non-zero without printing
// it again.
var ErrReported = errors.New("invocation failed")

// IsReported reports whether an error from Execute was already shown to
// the user.
func IsReported(err error) bool {
	return errors.Is(err, ErrReported)
}

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolpipe",
	Short: "Toolpipe - composable tool invocation pipeline",
	Long: `Toolpipe runs registered tools through a fixed middleware pipeline:
argument coercion, an exception boundary, audit logging, and bounded
batch fan-out for batchable tools.`,
	Version: version,
	// Runtime failures are reported by main; cobra only parses.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.toolpipe/toolpipe.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
