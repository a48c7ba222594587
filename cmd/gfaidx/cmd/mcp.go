package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"gfa_index/pkg/mcptools"
	"gfa_index/pkg/query"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve index queries as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		s := mcptools.NewServer("gfaidx-mcp", "0.1.0", query.NewEngine(idx))
		return server.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
