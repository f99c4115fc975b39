// Schedflow - queue-driven meeting aggregation and scheduling worker.
// Consumes calendar events from SQS, classifies them against the user's
// history, expands linked meetings across attendee calendars, and
// submits consolidated requests to the external optimizer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	configPath string
	logLevel   string
	logJSON    bool
)

func main() {
	root := &cobra.Command{
		Use:     "schedflow",
		Short:   "Meeting aggregation and scheduling worker",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	root.AddCommand(newServeCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
