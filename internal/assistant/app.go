package assistant

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"voice-assistant/internal/voice"
)

const (
	onlineReply  = "Assistant online."
	wakeReply    = "Yes, I'm listening."
	standbyReply = "Okay, standby mode."
	goodbyeReply = "Okay, shutting down. Goodbye."

	defaultPollInterval = 300 * time.Millisecond
)

// Pending runs scheduled work that has come due.
type Pending interface {
	RunPending(ctx context.Context) int
}

type AppOptions struct {
	Session  *Session
	Listener voice.Listener
	Speaker  voice.Speaker
	// Scheduler is polled between utterances. Optional.
	Scheduler Pending
	// WakePhrase, when set, starts the loop in standby until it is heard.
	WakePhrase string
	// StandbyPhrases return an awake loop to standby. Matched exactly,
	// ignoring case. Only used with a wake phrase.
	StandbyPhrases []string
	PollInterval   time.Duration
	Logger         *zap.Logger
}

// App is the single-user console loop.
type App struct {
	session  *Session
	listener voice.Listener
	speaker  voice.Speaker
	sched    Pending
	wake     string
	standby  map[string]struct{}
	poll     time.Duration
	log      *zap.Logger
}

func NewApp(opts AppOptions) *App {
	a := &App{
		session:  opts.Session,
		listener: opts.Listener,
		speaker:  opts.Speaker,
		sched:    opts.Scheduler,
		wake:     normalize(opts.WakePhrase),
		standby:  make(map[string]struct{}, len(opts.StandbyPhrases)),
		poll:     opts.PollInterval,
		log:      opts.Logger,
	}
	for _, p := range opts.StandbyPhrases {
		if p = normalize(p); p != "" {
			a.standby[p] = struct{}{}
		}
	}
	if a.poll <= 0 {
		a.poll = defaultPollInterval
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// Run drives the loop until an exit intent, the end of input or ctx is
// done. Only an input failure is returned as an error.
func (a *App) Run(ctx context.Context) error {
	a.say(ctx, onlineReply)
	awake := a.wake == ""

	for {
		if a.sched != nil {
			a.sched.RunPending(ctx)
		}

		query, err := a.listener.Listen(ctx, a.poll)
		switch {
		case errors.Is(err, io.EOF):
			a.log.Info("input closed")
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}
		if query == "" {
			continue
		}
		norm := normalize(query)

		if !awake {
			if strings.Contains(norm, a.wake) {
				awake = true
				a.say(ctx, wakeReply)
			}
			continue
		}
		if _, ok := a.standby[norm]; ok && a.wake != "" {
			awake = false
			a.say(ctx, standbyReply)
			continue
		}

		a.log.Debug("heard", zap.String("query", query))
		resp := a.session.Ask(ctx, SourceConsole, 0, query)
		if resp.Exit {
			a.say(ctx, goodbyeReply)
			return nil
		}
		a.say(ctx, resp.Text)
	}
}

// Notify speaks an announcement; it is the console's Notifier.
func (a *App) Notify(ctx context.Context, text string) error {
	return a.speaker.Say(ctx, text)
}

func (a *App) say(ctx context.Context, text string) {
	if err := a.speaker.Say(ctx, text); err != nil {
		a.log.Warn("failed to speak", zap.Error(err))
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), ".!?,"))
}
