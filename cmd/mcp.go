package cmd

import (
	"github.com/huangsam/examlens/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the examlens MCP server",
	Long:  `Launch an MCP server on stdio that lets AI agents run exam analyses, key lookups and student matching as tools.`,
	// Logs go to stderr, so stdio stays free for the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, logger)
	},
}
