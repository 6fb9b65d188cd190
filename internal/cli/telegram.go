package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"voice-assistant/internal/telegram"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "telegram",
		Short: "Serve the assistant as a Telegram bot",
		RunE:  runTelegram,
	})
}

func newBot(rt *runtime) (*telegram.Bot, error) {
	if cfg.TelegramBotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	return telegram.New(
		cfg.TelegramBotToken,
		rt.session,
		telegram.NewAllowlist(cfg.TelegramAllowedUsers),
		cfg.TelegramNotifyChat,
		log.Named("telegram"),
	)
}

func runTelegram(cmd *cobra.Command, _ []string) error {
	rt, err := build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	bot, err := newBot(rt)
	if err != nil {
		return err
	}
	if err := rt.scheduleReminders(bot.Notify); err != nil {
		return err
	}
	rt.sched.Start()
	return bot.Start(cmd.Context())
}
