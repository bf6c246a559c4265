package main

import (
	"github.com/spf13/cobra"

	"github.com/retio-ai/pagemap/internal/mcpserver"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pagemap",
		Short:         "Turn live web pages into structured, token-budgeted maps for agents",
		Version:       mcpserver.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBuildCmd())
	root.AddCommand(newServeCmd())
	return root
}
