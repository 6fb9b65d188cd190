// Package plugins holds optional handlers that register themselves for one
// or more intents at startup.
package plugins

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voice-assistant/internal/intent"
	"voice-assistant/internal/llm"
	"voice-assistant/internal/memory"
	"voice-assistant/internal/router"
)

const (
	ChatName         = "chat"
	chatSystemPrompt = "You are a helpful voice assistant. Answer in at most three short sentences."
	chatTimeout      = 20 * time.Second
)

// Chat answers CONVERSATION queries with a hosted chat model, replacing
// the default backend once registered.
type Chat struct {
	backend *llm.Backend
}

func NewChat(client llm.Client, log *zap.Logger) *Chat {
	return &Chat{backend: llm.NewBackend(client, chatSystemPrompt, chatTimeout, log)}
}

func (c *Chat) Name() string { return ChatName }

func (c *Chat) Intents() []intent.Intent { return []intent.Intent{intent.Conversation} }

func (c *Chat) Handle(ctx context.Context, query string, mem memory.Ref) router.Result {
	history, ok := router.HistoryFrom(ctx)
	if !ok {
		history = mem.Context()
	}
	return router.Reply(c.backend.Reply(ctx, llm.Request{
		Query:   query,
		History: history,
		Profile: mem.Profile(),
		Facts:   mem.Facts(),
	}))
}

// Register adds every plugin to reg in order. Later plugins override
// earlier ones for shared intents.
func Register(reg *router.Registry, log *zap.Logger, ps ...router.Plugin) {
	for _, p := range ps {
		for _, i := range p.Intents() {
			if prev := reg.Owner(i); prev != "" && prev != p.Name() && log != nil {
				log.Info("plugin overrides handler", zap.String("plugin", p.Name()),
					zap.String("intent", string(i)), zap.String("previous", prev))
			}
		}
		reg.RegisterPlugin(p)
		if log != nil {
			log.Info("plugin registered", zap.String("plugin", p.Name()), zap.Any("intents", p.Intents()))
		}
	}
}
