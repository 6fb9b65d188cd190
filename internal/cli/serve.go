package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voice-assistant/internal/assistant"
	"voice-assistant/internal/httpapi"
)

var serveWithTelegram bool

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, optionally alongside the Telegram bot",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&serveWithTelegram, "telegram", false, "Also run the Telegram bot")
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := httpapi.New(httpapi.Config{
		Addr:    cfg.HTTPAddr,
		Token:   cfg.HTTPToken,
		Session: rt.session,
		Logger:  log.Named("http"),
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	notify := assistant.LogNotifier(log)
	if serveWithTelegram {
		bot, err := newBot(rt)
		if err != nil {
			return err
		}
		notify = assistant.Broadcast(notify, bot.Notify)
		g.Go(func() error { return bot.Start(ctx) })
	}
	if err := rt.scheduleReminders(notify); err != nil {
		return err
	}
	rt.sched.Start()
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}
