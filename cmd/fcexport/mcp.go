package main

import (
	"context"

	"github.com/spf13/cobra"

	_ "fcexport/internal/export/sources"
	mcpserver "fcexport/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the export pipeline over the Model Context Protocol (stdio)",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	svc.RestartWatchers(context.Background())
	defer svc.Stop()

	srv := mcpserver.New(mcpserver.Deps{Exports: svc, Log: log})
	return srv.ServeStdio()
}
