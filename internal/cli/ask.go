package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voice-assistant/internal/assistant"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "ask <utterance...>",
		Short: "Route a single utterance and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	})
}

func runAsk(cmd *cobra.Command, args []string) error {
	rt, err := build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	resp := rt.session.Ask(cmd.Context(), assistant.SourceConsole, 0, strings.Join(args, " "))
	if resp.Exit {
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
	return err
}
