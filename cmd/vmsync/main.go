package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	vmerrors "github.com/vango-dev/vmsync/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global output flags.
var (
	noColor     bool
	errorFormat = "pretty"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err, errorFormat)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vmsync",
		Short: "Watch and drive server view models from the terminal",
		Long: `vmsync connects to a view-model hub over WebSocket.

It keeps a local copy of a server view model in sync and can
push changes back to it. Useful for:

  • Inspecting the state a view model sends
  • Sending updates without a UI
  • Exposing Prometheus metrics for a long-running watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				vmerrors.DisableColors()
			}
			switch errorFormat {
			case "pretty", "compact", "json":
				return nil
			default:
				return fmt.Errorf("unknown error format %q (want pretty, compact or json)", errorFormat)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&errorFormat, "error-format", errorFormat, "Error output: pretty, compact or json")

	rootCmd.AddCommand(
		watchCmd(),
		dispatchCmd(),
		errorsCmd(),
		versionCmd(),
	)
	return rootCmd
}

// reportError writes err to w. Coded errors use the registry formatting.
func reportError(w io.Writer, err error, format string) {
	var se *vmerrors.SyncError
	if !errors.As(err, &se) {
		if format == "json" {
			fmt.Fprintf(w, "{\"message\":%q}\n", err.Error())
			return
		}
		fmt.Fprintf(w, "%s %s\n", paint("\033[31m", "Error:"), err)
		return
	}

	switch format {
	case "json":
		fmt.Fprintln(w, se.FormatJSON())
	case "compact":
		fmt.Fprintf(w, "%s %s\n", paint("\033[31m", "Error:"), se.FormatCompact())
	default:
		fmt.Fprint(w, se.Format())
	}
}

// compactError renders err on one line for warnings printed mid-stream.
func compactError(err error) string {
	var se *vmerrors.SyncError
	if errors.As(err, &se) {
		return se.FormatCompact()
	}
	return err.Error()
}

// paint wraps text in an ANSI color unless --no-color is set.
func paint(code, text string) string {
	if noColor {
		return text
	}
	return code + text + "\033[0m"
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", paint("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", paint("\033[31m", "✗"), fmt.Sprintf(format, args...))
}
