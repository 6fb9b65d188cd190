package router

import (
	"context"

	"voice-assistant/internal/intent"
	"voice-assistant/internal/memory"
)

type resultKind int

const (
	kindReply resultKind = iota
	kindDone
	kindExit
	kindFail
)

// Result is the tagged outcome of a handler.
type Result struct {
	kind resultKind
	text string
	err  error
}

// Reply carries a user-facing response. An empty reply counts as Done.
func Reply(text string) Result { return Result{kind: kindReply, text: text} }

// Done acknowledges a command that has nothing to say.
func Done() Result { return Result{kind: kindDone} }

// Exit asks the session to terminate.
func Exit() Result { return Result{kind: kindExit} }

// Fail reports a handler fault. The error is logged, never shown.
func Fail(err error) Result { return Result{kind: kindFail, err: err} }

func (r Result) IsExit() bool { return r.kind == kindExit }
func (r Result) Err() error { return r.err }
func (r Result) Text() string { return r.text }
func (r Result) Failed() bool { return r.kind == kindFail }

// Handler answers one utterance for a given intent.
type Handler func(ctx context.Context, query string, mem memory.Ref) Result

// Plugin contributes handlers for one or more intents.
type Plugin interface {
	Name() string
	Intents() []intent.Intent
	Handle(ctx context.Context, query string, mem memory.Ref) Result
}
