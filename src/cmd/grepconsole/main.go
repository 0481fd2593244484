// Package main provides the grepconsole CLI: run a command and grep its output
// live, grep piped input, or grep output published by other processes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"grepconsole/src/config"
	"grepconsole/src/logger"
)

var (
	// Application configuration
	appConfig *config.Config
	// Logger for commands that do not own the terminal
	log logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grepconsole",
	Short: "grepconsole - live grep consoles over process output",
	Long: `grepconsole runs a command and shows its output next to a grep console
that follows it live. Grep consoles can be refined, chained and pinned so they
reopen with the next run of the same run configuration.

It supports two modes:
- Local Mode: in-memory broker, everything in one process (default)
- Distributed Mode: Redpanda carries output and matches between processes

Mode is auto-detected based on REDPANDA_BROKERS environment variable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			return wrapError(err)
		}
		log = logger.NewConsoleLogger(appConfig.Verbose)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pipeCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(pinCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
