package main

import (
	"context"

	"github.com/spf13/cobra"

	"grepconsole/src/logger"
	"grepconsole/src/mcp"
	"grepconsole/src/pipeline"
)

// mcpCmd serves the grep tools over the Model Context Protocol
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve grep tools over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout with the tools
grep_text, list_pinned_greps and pin_grep. Pins are shared with 'run --name'
when DATABASE_URL is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := pipeline.OpenStore(context.Background(), appConfig)
		if err != nil {
			return wrapError(err)
		}
		defer st.Close()

		// Stdout carries the protocol; logs go to stderr only when verbose.
		var serverLog logger.Logger = logger.NewSilentLogger()
		if appConfig.Verbose {
			serverLog = log
		}
		return mcp.NewServer(st, appConfig.Profile(), serverLog).Run()
	},
}
