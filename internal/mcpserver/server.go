// Package mcpserver exposes the assistant to MCP clients over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"voice-assistant/internal/assistant"
	"voice-assistant/internal/notes"
	"voice-assistant/internal/reminders"
	"voice-assistant/internal/router"
)

const (
	ServerName    = "voice-assistant"
	ServerVersion = "1.0.0"

	lockedText = "The system is locked. Unlock it first."
)

type Session interface {
	Ask(ctx context.Context, source string, userID int64, query string) router.Response
	Locked() bool
}

type NotesLister interface {
	List(ctx context.Context) ([]notes.Note, error)
}

type RemindersLister interface {
	All() ([]reminders.Reminder, error)
	Describe(r reminders.Reminder) string
}

type Server struct {
	session   Session
	notes     NotesLister
	reminders RemindersLister
	log       *zap.Logger
}

type askArgs struct {
	Query string `json:"query"`
}

type noArgs struct{}

// New wires the tools. A nil lister leaves its tool out.
func New(session Session, n NotesLister, r RemindersLister, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{session: session, notes: n, reminders: r, log: log}
}

// MCP builds the protocol server with every available tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Sends one utterance to the assistant and returns its reply, exactly as if it had been spoken",
	}, s.Ask)

	if s.notes != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_notes",
			Description: "Lists the saved notes, oldest first. Refused while the assistant is locked",
		}, s.ListNotes)
	}
	if s.reminders != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_reminders",
			Description: "Lists pending reminders ordered by time. Refused while the assistant is locked",
		}, s.ListReminders)
	}
	return server
}

// Run serves over stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server starting on stdio")
	return s.MCP().Run(ctx, mcp.NewStdioTransport())
}

func (s *Server) Ask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[askArgs]) (*mcp.CallToolResultFor[any], error) {
	query := strings.TrimSpace(params.Arguments.Query)
	if query == "" {
		return errorResult("query parameter is required"), nil
	}
	resp := s.session.Ask(ctx, assistant.SourceMCP, 0, query)
	text := resp.Text
	if resp.Exit {
		text = "Goodbye."
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta: map[string]any{
			"intent":     resp.Intent.String(),
			"confidence": resp.Confidence,
			"route":      string(resp.Route),
			"exit":       resp.Exit,
		},
	}, nil
}

func (s *Server) ListNotes(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[noArgs]) (*mcp.CallToolResultFor[any], error) {
	if s.session.Locked() {
		return errorResult(lockedText), nil
	}
	items, err := s.notes.List(ctx)
	if err != nil {
		s.log.Error("failed to list notes", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to list notes: %v", err)), nil
	}
	if len(items) == 0 {
		return textResult("No notes saved.", 0), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d notes:\n", len(items))
	for i, n := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n.String())
	}
	return textResult(b.String(), len(items)), nil
}

func (s *Server) ListReminders(_ context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[noArgs]) (*mcp.CallToolResultFor[any], error) {
	if s.session.Locked() {
		return errorResult(lockedText), nil
	}
	items, err := s.reminders.All()
	if err != nil {
		s.log.Error("failed to list reminders", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}
	if len(items) == 0 {
		return textResult("No reminders set.", 0), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d reminders:\n", len(items))
	for i, r := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.reminders.Describe(r))
	}
	return textResult(b.String(), len(items)), nil
}

func textResult(text string, total int) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta:    map[string]any{"total": total},
	}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
