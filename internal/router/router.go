// Package router decides, per utterance, whether a command handler or the
// conversational backend answers, and keeps short-term memory in step.
package router

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"voice-assistant/internal/intent"
	"voice-assistant/internal/llm"
	"voice-assistant/internal/memory"
)

// DefaultThreshold is the confidence below which a classified command is
// handed to the conversational backend instead.
const DefaultThreshold = 0.45

const (
	LockedReply  = "The system is locked. Unlock it first."
	FailureReply = "Something went wrong while processing that command."
	DoneReply    = "Done."
)

const codingInstruction = "Answer like a senior developer. Be concise and code-first."

var codingKeywords = []string{
	"code", "function", "python", "bug", "error",
	"optimize", "logic", "algorithm", "class",
	"api", "async", "database", "sql", "javascript",
}

type Route string

const (
	RouteEmpty        Route = "empty"
	RouteExit         Route = "exit"
	RouteDenied       Route = "denied"
	RouteCommand      Route = "command"
	RouteConversation Route = "conversation"
	RouteFailed       Route = "failed"
)

// Response is the outcome of one utterance. When Exit is set the session
// should terminate and Text is empty.
type Response struct {
	Text       string
	Exit       bool
	Intent     intent.Intent
	Confidence float64
	Route      Route
}

// Classifier produces one classification per utterance.
type Classifier interface {
	Parse(text string) intent.Classification
}

// Gate reports whether an operation of a given sensitivity may run.
type Gate interface {
	Allow(sensitive bool) bool
}

// Conversational answers free-form text. Implementations never fail.
type Conversational interface {
	Reply(ctx context.Context, req llm.Request) string
}

type Router struct {
	classifier Classifier
	gate       Gate
	mem        memory.Ref
	registry   *Registry
	backend    Conversational
	threshold  float64
	log        *zap.Logger
}

type Options struct {
	Classifier Classifier
	Gate       Gate
	// Memory defaults to memory.None{}.
	Memory    memory.Ref
	Registry  *Registry
	Backend   Conversational
	// Threshold must lie in [0,1]; nil means DefaultThreshold.
	Threshold *float64
	Logger    *zap.Logger
}

func New(opts Options) (*Router, error) {
	if opts.Classifier == nil {
		return nil, fmt.Errorf("router: classifier is required")
	}
	if opts.Gate == nil {
		return nil, fmt.Errorf("router: security gate is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("router: conversational backend is required")
	}
	if t := opts.Threshold; t != nil && (*t < 0 || *t > 1) {
		return nil, fmt.Errorf("router: threshold %.2f outside [0,1]", *t)
	}
	r := &Router{
		classifier: opts.Classifier,
		gate:       opts.Gate,
		mem:        opts.Memory,
		registry:   opts.Registry,
		backend:    opts.Backend,
		threshold:  DefaultThreshold,
		log:        opts.Logger,
	}
	if r.mem == nil {
		r.mem = memory.None{}
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	if opts.Threshold != nil {
		r.threshold = *opts.Threshold
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r, nil
}

// Process classifies query once and produces the reply. It never panics
// and never returns an error: every failure becomes a fixed reply.
func (r *Router) Process(ctx context.Context, query string) (resp Response) {
	resp = Response{Intent: intent.Conversation}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic while routing", zap.String("intent", string(resp.Intent)), zap.Any("panic", p))
			resp.Text, resp.Exit, resp.Route = FailureReply, false, RouteFailed
		}
	}()

	cls := r.classifier.Parse(query)
	resp.Intent, resp.Confidence = cls.Intent, cls.Confidence

	if strings.TrimSpace(query) == "" {
		resp.Route = RouteEmpty
		return resp
	}

	// EXIT leaves memory untouched.
	if cls.Intent == intent.Exit {
		resp.Exit, resp.Route = true, RouteExit
		return resp
	}

	if !r.gate.Allow(intent.RequiresSecurity(cls.Intent)) {
		r.log.Info("sensitive intent refused while locked", zap.String("intent", string(cls.Intent)))
		resp.Text, resp.Route = LockedReply, RouteDenied
		return resp
	}

	history := r.mem.Context()
	r.record(memory.RoleUser, query)

	var res Result
	switch {
	case isCodingQuery(query):
		resp.Route = RouteConversation
		res = r.converse(ctx, query, codingInstruction, history)
	case cls.Intent == intent.Conversation || cls.Confidence < r.threshold:
		resp.Route = RouteConversation
		res = r.converse(ctx, query, "", history)
	default:
		if h, ok := r.registry.Lookup(cls.Intent); ok {
			resp.Route = RouteCommand
			res = r.invoke(ctx, cls.Intent, h, query)
		} else {
			resp.Route = RouteConversation
			res = r.converse(ctx, query, "", history)
		}
	}

	switch res.kind {
	case kindExit:
		resp.Exit, resp.Route = true, RouteExit
		return resp
	case kindFail:
		r.log.Error("handler failed", zap.String("intent", string(cls.Intent)), zap.Error(res.err))
		resp.Text, resp.Route = FailureReply, RouteFailed
	case kindDone:
		resp.Text = DoneReply
	default:
		resp.Text = res.text
		if strings.TrimSpace(resp.Text) == "" {
			resp.Text = DoneReply
		}
	}

	r.record(memory.RoleAssistant, resp.Text)
	r.log.Debug("routed",
		zap.String("intent", string(cls.Intent)),
		zap.Float64("confidence", cls.Confidence),
		zap.String("route", string(resp.Route)))
	return resp
}

// converse prefers a handler registered for Conversation (a plugin) over
// the backend.
func (r *Router) converse(ctx context.Context, query, instruction string, history []memory.Message) Result {
	if h, ok := r.registry.Lookup(intent.Conversation); ok {
		q := query
		if instruction != "" {
			q = instruction + "\n" + query
		}
		return r.invoke(withHistory(ctx, history), intent.Conversation, h, q)
	}
	return Reply(r.backend.Reply(ctx, llm.Request{
		Instruction: instruction,
		Query:       query,
		History:     history,
		Profile:     r.mem.Profile(),
		Facts:       r.mem.Facts(),
	}))
}

type historyKey struct{}

func withHistory(ctx context.Context, history []memory.Message) context.Context {
	return context.WithValue(ctx, historyKey{}, history)
}

// HistoryFrom returns the conversation window as it stood before the
// current utterance was recorded. ok is false outside a routed
// conversation.
func HistoryFrom(ctx context.Context) (history []memory.Message, ok bool) {
	history, ok = ctx.Value(historyKey{}).([]memory.Message)
	return history, ok
}

func (r *Router) invoke(ctx context.Context, i intent.Intent, h Handler, query string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Fail(fmt.Errorf("handler for %s panicked: %v", i, p))
		}
	}()
	return h(ctx, query, r.mem)
}

func (r *Router) record(role memory.Role, content string) {
	if err := r.mem.AddMessage(role, content); err != nil {
		r.log.Warn("failed to persist message", zap.String("role", string(role)), zap.Error(err))
	}
}

func isCodingQuery(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range codingKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
