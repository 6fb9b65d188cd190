// Package handlers provides the built-in command handlers and wires them
// into a router registry.
package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voice-assistant/internal/calculator"
	"voice-assistant/internal/intent"
	"voice-assistant/internal/memory"
	"voice-assistant/internal/router"
)

type WeatherService interface {
	Answer(ctx context.Context, query string) string
}

type NotesService interface {
	Handle(ctx context.Context, query string) (string, error)
}

type RemindersService interface {
	Handle(query string) (string, error)
}

type FilesService interface {
	Handle(command string) (string, error)
}

// Deps are the collaborators behind the built-in handlers. A nil service
// leaves its intent unregistered, so those queries fall through to
// conversation.
type Deps struct {
	Now       func() time.Time
	Location  *time.Location
	Weather   WeatherService
	Notes     NotesService
	Reminders RemindersService
	Files     FilesService
	Logger    *zap.Logger
}

// RegisterDefaults installs the built-in handlers on reg.
func RegisterDefaults(reg *router.Registry, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	reg.Register(intent.Time, Time(d.Now, d.Location))
	reg.Register(intent.Date, Date(d.Now, d.Location))
	reg.Register(intent.Help, Help)
	reg.Register(intent.Exit, Exit)
	reg.Register(intent.Calculator, Calculator)
	reg.Register(intent.Memory, Memory)

	if d.Weather != nil {
		reg.Register(intent.Weather, Weather(d.Weather))
	}
	if d.Notes != nil {
		reg.Register(intent.Notes, Notes(d.Notes))
	}
	if d.Reminders != nil {
		reg.Register(intent.Reminders, Reminders(d.Reminders))
	}
	if d.Files != nil {
		reg.Register(intent.Files, Files(d.Files))
	}
	d.Logger.Debug("built-in handlers registered", zap.Any("intents", reg.Intents()))
}

func Time(now func() time.Time, loc *time.Location) router.Handler {
	return func(context.Context, string, memory.Ref) router.Result {
		return router.Reply("It is " + now().In(loc).Format("03:04 PM") + ".")
	}
}

func Date(now func() time.Time, loc *time.Location) router.Handler {
	return func(context.Context, string, memory.Ref) router.Result {
		return router.Reply("Today is " + now().In(loc).Format("Monday, 02 January 2006") + ".")
	}
}

const helpText = "You can talk to me normally or give commands.\n" +
	"Examples: time, date, weather in Delhi, take a note, remind me to stretch in 10 minutes, " +
	"calculate 12 plus 7, create file todo.txt, remember that I like tea, exit."

func Help(context.Context, string, memory.Ref) router.Result {
	return router.Reply(helpText)
}

func Exit(context.Context, string, memory.Ref) router.Result {
	return router.Exit()
}

func Calculator(_ context.Context, query string, _ memory.Ref) router.Result {
	return router.Reply(calculator.Answer(query))
}

func Weather(svc WeatherService) router.Handler {
	return func(ctx context.Context, query string, _ memory.Ref) router.Result {
		return router.Reply(svc.Answer(ctx, query))
	}
}

func Notes(svc NotesService) router.Handler {
	return func(ctx context.Context, query string, _ memory.Ref) router.Result {
		return fromReply(svc.Handle(ctx, query))
	}
}

func Reminders(svc RemindersService) router.Handler {
	return func(_ context.Context, query string, _ memory.Ref) router.Result {
		return fromReply(svc.Handle(query))
	}
}

func Files(svc FilesService) router.Handler {
	return func(_ context.Context, query string, _ memory.Ref) router.Result {
		return fromReply(svc.Handle(query))
	}
}

func fromReply(text string, err error) router.Result {
	if err != nil {
		return router.Fail(err)
	}
	return router.Reply(text)
}
