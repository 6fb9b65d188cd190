package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"voice-assistant/internal/assistant"
	"voice-assistant/internal/config"
	"voice-assistant/internal/files"
	"voice-assistant/internal/handlers"
	"voice-assistant/internal/intent"
	"voice-assistant/internal/llm"
	"voice-assistant/internal/memory"
	"voice-assistant/internal/notes"
	"voice-assistant/internal/plugins"
	"voice-assistant/internal/reminders"
	"voice-assistant/internal/router"
	"voice-assistant/internal/scheduler"
	"voice-assistant/internal/security"
	"voice-assistant/internal/transcript"
	"voice-assistant/internal/weather"
)

const weatherRequestsPerMinute = 30

// runtime is everything a front end needs, built once per process.
type runtime struct {
	cfg       *config.Config
	log       *zap.Logger
	loc       *time.Location
	gate      *security.Gate
	notes     *notes.Store
	reminders *reminders.Manager
	session   *assistant.Session
	sched     *scheduler.Scheduler
}

func openGate(c *config.Config) (*security.Gate, error) {
	repo, err := security.NewFileRepository(c.SecurityPath())
	if err != nil {
		return nil, fmt.Errorf("open security state: %w", err)
	}
	return security.NewGate(repo)
}

func openRecorder(c *config.Config, l *zap.Logger) transcript.Recorder {
	rec, err := transcript.NewFileRecorder(c.TranscriptPath())
	if err != nil {
		l.Warn("transcript disabled", zap.Error(err))
		return transcript.Discard{}
	}
	return rec
}

// build wires the full assistant. Optional services that fail to start are
// logged and left out, so their intents fall back to conversation.
func build(ctx context.Context, c *config.Config, l *zap.Logger) (*runtime, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}

	gate, err := openGate(c)
	if err != nil {
		return nil, err
	}

	var mem memory.Ref = memory.None{}
	if store, err := memory.Open(c.MemoryPath(), c.MemoryMaxContext); err != nil {
		l.Warn("running without memory", zap.Error(err))
	} else {
		mem = store
	}

	classifier, err := newClassifier(c)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewFactory(c).CreateClient(ctx, string(c.LLMProvider), c.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	backend := llm.NewBackend(client, readSystemPrompt(c.SystemPromptPath, l), c.LLMTimeout, l.Named("llm"))

	rt := &runtime{cfg: c, log: l, loc: loc, gate: gate}

	forecast := weather.New(weather.Options{
		APIKey:            c.OpenWeatherAPIKey,
		DefaultCity:       c.WeatherDefaultCity,
		RequestsPerMinute: weatherRequestsPerMinute,
		Logger:            l.Named("weather"),
	})
	deps := handlers.Deps{Location: loc, Logger: l, Weather: forecast}

	if store, err := notes.Open(c.NotesPath()); err != nil {
		l.Warn("notes disabled", zap.Error(err))
	} else {
		rt.notes = store
		deps.Notes = store
	}

	if repo, err := reminders.NewFileRepository(c.RemindersPath()); err != nil {
		l.Warn("reminders disabled", zap.Error(err))
	} else if m, err := reminders.NewManager(repo, c.Timezone, reminders.WithCity(c.WeatherDefaultCity)); err != nil {
		l.Warn("reminders disabled", zap.Error(err))
	} else {
		rt.reminders = m
		deps.Reminders = m
	}

	if fm, err := files.NewManager(c.FilesBaseDir); err != nil {
		l.Warn("file commands disabled", zap.Error(err))
	} else {
		deps.Files = fm
	}

	reg := router.NewRegistry()
	handlers.RegisterDefaults(reg, deps)
	if c.ChatPluginEnabled {
		if c.OpenAIAPIKey == "" {
			l.Warn("chat plugin enabled without OPENAI_API_KEY; skipping")
		} else {
			chat := llm.NewOpenAI(llm.OpenAIOptions{APIKey: c.OpenAIAPIKey, Model: c.ChatPluginModel})
			plugins.Register(reg, l, plugins.NewChat(chat, l.Named("chat")))
		}
	}

	r, err := router.New(router.Options{
		Classifier: classifier,
		Gate:       gate,
		Memory:     mem,
		Registry:   reg,
		Backend:    backend,
		Threshold:  &c.RouterThreshold,
		Logger:     l.Named("router"),
	})
	if err != nil {
		return nil, err
	}
	l.Debug("router ready",
		zap.Float64("floor", classifier.Floor()),
		zap.Float64("threshold", c.RouterThreshold),
		zap.Any("intents", reg.Intents()))

	rt.session = assistant.NewSession(r, gate, openRecorder(c, l), l)
	rt.sched = scheduler.New(l.Named("scheduler"), scheduler.WithLocation(loc))
	return rt, nil
}

// scheduleReminders registers the due-reminder check with notify as the
// delivery channel.
func (rt *runtime) scheduleReminders(notify assistant.Notifier) error {
	if rt.reminders == nil {
		return nil
	}
	job := assistant.ReminderJob(rt.reminders, time.Now, notify, rt.log)
	if err := rt.sched.Every(assistant.ReminderJobName, rt.cfg.ReminderCheckSpec, job); err != nil {
		return err
	}
	if next, ok := rt.sched.NextRun(assistant.ReminderJobName); ok {
		rt.log.Info("reminder checks scheduled", zap.String("spec", rt.cfg.ReminderCheckSpec), zap.Time("next", next))
	}
	return nil
}

func (rt *runtime) Close() {
	rt.sched.Stop()
	if rt.notes != nil {
		if err := rt.notes.Close(); err != nil {
			rt.log.Warn("failed to close notes", zap.Error(err))
		}
	}
}

func newClassifier(c *config.Config) (*intent.Classifier, error) {
	opts := []intent.Option{intent.WithFloor(c.ClassifierFloor)}
	if c.KeywordsPath != "" {
		kw, err := intent.LoadKeywords(c.KeywordsPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, intent.WithKeywords(kw))
	}
	return intent.NewClassifier(opts...), nil
}

func readSystemPrompt(path string, l *zap.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.Warn("system prompt unreadable; using default", zap.String("path", path), zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
