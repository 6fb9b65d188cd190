// Package telegram is a typed-text front end: each message from an
// allowed user is one utterance, and due reminders are pushed to a chat.
package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"voice-assistant/internal/assistant"
	"voice-assistant/internal/router"
)

const (
	startReply        = "Hi! Send me anything you would say to the assistant. Try \"help\"."
	deniedReply       = "Sorry, you are not allowed to use this assistant."
	lockedReply       = "System locked."
	unlockedReply     = "System unlocked."
	wrongPassReply    = "Wrong password."
	noPassReply       = "No password is set. Set one on the host with `assistant passwd`."
	unlockUsageReply  = "Usage: /unlock <password>"
	lockFailedReply   = "Could not change the lock state."
	goodbyeReply      = "Goodbye. Message me whenever you need something."
	statusLocked      = "The system is locked."
	statusUnlocked    = "The system is unlocked."
	unknownCmdReply   = "Unknown command. Just type what you want, or use /lock, /unlock, /status."
	emptyMessageReply = "Say something and I'll do my best."
)

// Session is what the bot needs from the assistant.
type Session interface {
	Ask(ctx context.Context, source string, userID int64, query string) router.Response
	Lock() error
	Unlock(password string) error
	Locked() bool
}

type Bot struct {
	api        *tgbotapi.BotAPI
	s          sender
	del        deleteSender
	session    Session
	allow      *Allowlist
	notifyChat int64
	log        *zap.Logger
}

func New(botToken string, session Session, allow *Allowlist, notifyChat int64, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if allow.Len() == 0 {
		log.Warn("telegram allowlist is empty; every message will be refused")
	}
	return &Bot{
		api:        api,
		s:          botAPISender{api: api},
		del:        api,
		session:    session,
		allow:      allow,
		notifyChat: notifyChat,
		log:        log,
	}, nil
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()
	b.log.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
			}
		}
	}
}

// Notify pushes text to the configured notification chat. It is a no-op
// when no chat is configured.
func (b *Bot) Notify(_ context.Context, text string) error {
	if b.notifyChat == 0 {
		return nil
	}
	_, err := b.s.Send(tgbotapi.NewMessage(b.notifyChat, text))
	return err
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if !b.allow.IsAllowed(msg.From.ID) {
		b.log.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		b.sendMessage(msg.Chat.ID, deniedReply)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.sendMessage(msg.Chat.ID, emptyMessageReply)
		return
	}

	resp := b.session.Ask(ctx, assistant.SourceTelegram, msg.From.ID, text)
	b.log.Debug("telegram turn",
		zap.Int64("user_id", msg.From.ID),
		zap.String("intent", resp.Intent.String()),
		zap.String("route", string(resp.Route)))
	if resp.Exit {
		b.sendMessage(msg.Chat.ID, goodbyeReply)
		return
	}
	b.sendMessage(msg.Chat.ID, resp.Text)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.sendMessage(chatID, startReply)
	case "status":
		if b.session.Locked() {
			b.sendMessage(chatID, statusLocked)
		} else {
			b.sendMessage(chatID, statusUnlocked)
		}
	case "lock":
		if err := b.session.Lock(); err != nil {
			b.log.Error("failed to lock", zap.Error(err))
			b.sendMessage(chatID, lockFailedReply)
			return
		}
		b.sendMessage(chatID, lockedReply)
	case "unlock":
		// the password should not linger in the chat
		b.deleteMessage(chatID, msg.MessageID)
		password := strings.TrimSpace(msg.CommandArguments())
		if password == "" {
			b.sendMessage(chatID, unlockUsageReply)
			return
		}
		err := b.session.Unlock(password)
		switch {
		case err == nil:
			b.sendMessage(chatID, unlockedReply)
		case errors.Is(err, assistant.ErrWrongPassword):
			b.log.Warn("wrong unlock password", zap.Int64("user_id", msg.From.ID))
			b.sendMessage(chatID, wrongPassReply)
		case errors.Is(err, assistant.ErrNoPassword):
			b.sendMessage(chatID, noPassReply)
		default:
			b.log.Error("failed to unlock", zap.Error(err))
			b.sendMessage(chatID, lockFailedReply)
		}
	default:
		b.sendMessage(chatID, unknownCmdReply)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.log.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if b.del == nil {
		return
	}
	if _, err := b.del.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Warn("failed to delete message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
