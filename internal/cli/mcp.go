package cli

import (
	"github.com/spf13/cobra"

	"voice-assistant/internal/mcpserver"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant as an MCP server over stdio",
		RunE:  runMCP,
	})
}

func runMCP(cmd *cobra.Command, _ []string) error {
	rt, err := build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	var (
		n mcpserver.NotesLister
		r mcpserver.RemindersLister
	)
	if rt.notes != nil {
		n = rt.notes
	}
	if rt.reminders != nil {
		r = rt.reminders
	}
	return mcpserver.New(rt.session, n, r, log.Named("mcp")).Run(cmd.Context())
}
