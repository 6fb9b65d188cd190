// Package assistant ties the router, the security gate and the transcript
// together into sessions that any front end can drive.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"voice-assistant/internal/router"
	"voice-assistant/internal/security"
	"voice-assistant/internal/transcript"
)

const (
	SourceConsole  = "console"
	SourceTelegram = "telegram"
	SourceHTTP     = "http"
	SourceMCP      = "mcp"
)

var (
	ErrNoPassword    = errors.New("no password has been set")
	ErrWrongPassword = errors.New("wrong password")
	ErrEmptyPassword = errors.New("password must not be empty")
)

// Processor answers one utterance. *router.Router satisfies it.
type Processor interface {
	Process(ctx context.Context, query string) router.Response
}

// Session serialises utterances from every front end through one router
// and records each routed turn.
type Session struct {
	mu     sync.Mutex
	router Processor
	gate   *security.Gate
	rec    transcript.Recorder
	now    func() time.Time
	log    *zap.Logger
}

func NewSession(p Processor, gate *security.Gate, rec transcript.Recorder, log *zap.Logger) *Session {
	if rec == nil {
		rec = transcript.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{router: p, gate: gate, rec: rec, now: time.Now, log: log}
}

// Ask routes query on behalf of a front end. Blank queries are not
// recorded.
func (s *Session) Ask(ctx context.Context, source string, userID int64, query string) router.Response {
	s.mu.Lock()
	resp := s.router.Process(ctx, query)
	s.mu.Unlock()

	if resp.Route == router.RouteEmpty {
		return resp
	}
	ev := transcript.Event{
		Timestamp:  s.now().UTC(),
		Source:     source,
		UserID:     userID,
		Query:      query,
		Reply:      resp.Text,
		Intent:     resp.Intent.String(),
		Confidence: resp.Confidence,
		Route:      string(resp.Route),
	}
	if resp.Route == router.RouteDenied {
		ev.Query = ""
	}
	if err := s.rec.Append(ev); err != nil {
		s.log.Warn("failed to record turn", zap.String("source", source), zap.Error(err))
	}
	return resp
}

func (s *Session) Locked() bool { return s.gate.IsLocked() }

func (s *Session) Lock() error {
	if err := s.gate.Lock(); err != nil {
		return err
	}
	s.log.Info("system locked")
	return nil
}

// Unlock requires the stored password. Without one the system cannot be
// unlocked remotely; set it first with SetPassword.
func (s *Session) Unlock(password string) error {
	if !s.gate.HasCredential() {
		return ErrNoPassword
	}
	if !s.gate.VerifyCredential(security.HashCredential(password)) {
		s.log.Warn("unlock attempt with wrong password")
		return ErrWrongPassword
	}
	if err := s.gate.Unlock(); err != nil {
		return err
	}
	s.log.Info("system unlocked")
	return nil
}

// SetPassword replaces the stored password. current is ignored when no
// password has been set yet.
func (s *Session) SetPassword(current, next string) error {
	if strings.TrimSpace(next) == "" {
		return ErrEmptyPassword
	}
	if s.gate.HasCredential() && !s.gate.VerifyCredential(security.HashCredential(current)) {
		return ErrWrongPassword
	}
	return s.gate.SetCredential(security.HashCredential(next))
}
