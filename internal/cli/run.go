package cli

import (
	"os"

	"github.com/spf13/cobra"

	"voice-assistant/internal/assistant"
	"voice-assistant/internal/voice"
)

const speakerName = "Assistant"

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the interactive console loop (default)",
		RunE:  runConsole,
	})
}

func runConsole(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	listener := voice.NewConsoleListener(os.Stdin)
	defer listener.Close()

	app := assistant.NewApp(assistant.AppOptions{
		Session:        rt.session,
		Listener:       listener,
		Speaker:        voice.NewConsoleSpeaker(cmd.OutOrStdout(), speakerName),
		Scheduler:      rt.sched,
		WakePhrase:     cfg.WakePhrase,
		StandbyPhrases: cfg.StandbyPhrases,
		PollInterval:   cfg.PollInterval,
		Logger:         log.Named("console"),
	})
	if err := rt.scheduleReminders(app.Notify); err != nil {
		return err
	}
	return app.Run(ctx)
}
