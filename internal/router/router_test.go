package router

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/intent"
	"voice-assistant/internal/llm"
	"voice-assistant/internal/memory"
	"voice-assistant/internal/security"
)

type fakeBackend struct {
	reply string
	reqs  []llm.Request
}

func (f *fakeBackend) Reply(ctx context.Context, req llm.Request) string {
	f.reqs = append(f.reqs, req)
	return f.reply
}

type spy struct {
	calls  int
	result Result
	got    string
}

func (s *spy) handle(ctx context.Context, query string, mem memory.Ref) Result {
	s.calls++
	s.got = query
	return s.result
}

type failingLLM struct{ err error }

func (f failingLLM) Generate(context.Context, []llm.Message) (llm.Response, error) {
	return llm.Response{}, f.err
}

type fixture struct {
	router   *Router
	gate     *security.Gate
	mem      *memory.Store
	registry *Registry
	backend  *fakeBackend
}

type fixedClassifier struct{ cls intent.Classification }

func (c fixedClassifier) Parse(string) intent.Classification { return c.cls }

type panickingClassifier struct{}

func (panickingClassifier) Parse(string) intent.Classification { panic("boom") }

func threshold(v float64) *float64 { return &v }

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	gate, err := security.NewGate(nil)
	require.NoError(t, err)
	mem, err := memory.NewInMemory(12)
	require.NoError(t, err)
	f := &fixture{gate: gate, mem: mem, registry: NewRegistry(), backend: &fakeBackend{reply: "chat reply"}}

	o := Options{
		Classifier: intent.NewClassifier(),
		Gate:       gate,
		Memory:     mem,
		Registry:   f.registry,
		Backend:    f.backend,
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.router, err = New(o)
	require.NoError(t, err)
	return f
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Classifier: intent.NewClassifier()})
	assert.Error(t, err)
	gate, _ := security.NewGate(nil)
	_, err = New(Options{Classifier: intent.NewClassifier(), Gate: gate})
	assert.Error(t, err)
}

func TestProcess_CommandDispatch(t *testing.T) {
	f := newFixture(t)
	s := &spy{result: Reply("It is 10:00 AM.")}
	f.registry.Register(intent.Time, s.handle)

	resp := f.router.Process(context.Background(), "what is the time")
	assert.Equal(t, "It is 10:00 AM.", resp.Text)
	assert.Equal(t, intent.Time, resp.Intent)
	assert.GreaterOrEqual(t, resp.Confidence, 0.5)
	assert.Equal(t, RouteCommand, resp.Route)
	assert.Equal(t, 1, s.calls)
	assert.Equal(t, "what is the time", s.got)
	assert.Empty(t, f.backend.reqs)

	assert.Equal(t, []memory.Message{
		{Role: memory.RoleUser, Content: "what is the time"},
		{Role: memory.RoleAssistant, Content: "It is 10:00 AM."},
	}, f.mem.Context())
}

func TestProcess_LockedSensitiveIntentNeverReachesHandler(t *testing.T) {
	f := newFixture(t)
	s := &spy{result: Reply("deleted")}
	f.registry.Register(intent.Files, s.handle)
	require.NoError(t, f.gate.Lock())

	resp := f.router.Process(context.Background(), "delete file x")
	assert.Equal(t, LockedReply, resp.Text)
	assert.Equal(t, RouteDenied, resp.Route)
	assert.Zero(t, s.calls)
	assert.Zero(t, f.mem.Len())
}

func TestProcess_LockedGatesNotesAndReminders(t *testing.T) {
	f := newFixture(t)
	notes := &spy{result: Reply("notes")}
	reminders := &spy{result: Reply("reminders")}
	f.registry.Register(intent.Notes, notes.handle)
	f.registry.Register(intent.Reminders, reminders.handle)
	require.NoError(t, f.gate.Lock())

	assert.Equal(t, LockedReply, f.router.Process(context.Background(), "read my notes").Text)
	assert.Equal(t, LockedReply, f.router.Process(context.Background(), "show reminders").Text)
	assert.Zero(t, notes.calls+reminders.calls)
}

func TestProcess_LockedAllowsInsensitiveIntents(t *testing.T) {
	f := newFixture(t)
	s := &spy{result: Reply("time")}
	f.registry.Register(intent.Time, s.handle)
	require.NoError(t, f.gate.Lock())

	resp := f.router.Process(context.Background(), "what is the time")
	assert.Equal(t, "time", resp.Text)
	assert.Equal(t, 1, s.calls)
}

func TestProcess_ExitSkipsMemoryAndSecurity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mem.AddMessage(memory.RoleUser, "earlier"))
	require.NoError(t, f.gate.Lock())
	before := f.mem.Len()

	resp := f.router.Process(context.Background(), "exit")
	assert.True(t, resp.Exit)
	assert.Equal(t, RouteExit, resp.Route)
	assert.Empty(t, resp.Text)
	assert.Equal(t, before, f.mem.Len())
}

func TestProcess_ConversationFallsToBackend(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mem.AddMessage(memory.RoleUser, "earlier"))
	require.NoError(t, f.mem.RememberFact("likes chai"))

	resp := f.router.Process(context.Background(), "how are you")
	assert.Equal(t, "chat reply", resp.Text)
	assert.Equal(t, RouteConversation, resp.Route)
	assert.Equal(t, intent.Conversation, resp.Intent)

	require.Len(t, f.backend.reqs, 1)
	req := f.backend.reqs[0]
	assert.Equal(t, "how are you", req.Query)
	assert.Empty(t, req.Instruction)
	// history excludes the utterance being answered
	assert.Equal(t, []memory.Message{{Role: memory.RoleUser, Content: "earlier"}}, req.History)
	assert.Equal(t, []string{"likes chai"}, req.Facts)

	msgs := f.mem.Context()
	require.Len(t, msgs, 3)
	assert.Equal(t, memory.Message{Role: memory.RoleAssistant, Content: "chat reply"}, msgs[2])
}

func TestProcess_LowConfidenceGoesToConversation(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Threshold = threshold(0.6) })
	s := &spy{result: Reply("time")}
	f.registry.Register(intent.Time, s.handle)

	resp := f.router.Process(context.Background(), "what is the time")
	assert.Equal(t, intent.Time, resp.Intent)
	assert.Equal(t, RouteConversation, resp.Route)
	assert.Zero(t, s.calls)
	assert.Len(t, f.backend.reqs, 1)
}

func TestProcess_CodingOverrideBeatsCommand(t *testing.T) {
	f := newFixture(t)
	s := &spy{result: Reply("sunny")}
	f.registry.Register(intent.Weather, s.handle)

	resp := f.router.Process(context.Background(), "weather api returns a bug")
	assert.Equal(t, RouteConversation, resp.Route)
	assert.Equal(t, intent.Weather, resp.Intent)
	assert.Zero(t, s.calls)
	require.Len(t, f.backend.reqs, 1)
	assert.Equal(t, codingInstruction, f.backend.reqs[0].Instruction)
}

func TestProcess_MissingHandlerFallsBack(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Process(context.Background(), "what is the time")
	assert.Equal(t, "chat reply", resp.Text)
	assert.Equal(t, RouteConversation, resp.Route)
}

func TestProcess_DoneAndEmptyReplies(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(intent.Time, (&spy{result: Done()}).handle)
	f.registry.Register(intent.Date, (&spy{result: Reply("")}).handle)

	assert.Equal(t, DoneReply, f.router.Process(context.Background(), "time").Text)
	assert.Equal(t, DoneReply, f.router.Process(context.Background(), "date").Text)
}

func TestProcess_HandlerFailureIsContained(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(intent.Time, (&spy{result: Fail(errors.New("clock broke"))}).handle)
	f.registry.Register(intent.Date, func(context.Context, string, memory.Ref) Result {
		panic("calendar exploded")
	})

	resp := f.router.Process(context.Background(), "time")
	assert.Equal(t, FailureReply, resp.Text)
	assert.Equal(t, RouteFailed, resp.Route)

	resp = f.router.Process(context.Background(), "date")
	assert.Equal(t, FailureReply, resp.Text)
	assert.False(t, resp.Exit)
}

func TestProcess_HandlerMayRequestExit(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(intent.Help, (&spy{result: Exit()}).handle)
	resp := f.router.Process(context.Background(), "help")
	assert.True(t, resp.Exit)
}

func TestProcess_BackendConnectionFailure(t *testing.T) {
	gate, _ := security.NewGate(nil)
	mem, _ := memory.NewInMemory(12)
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	r, err := New(Options{
		Classifier: intent.NewClassifier(),
		Gate:       gate,
		Memory:     mem,
		Backend:    llm.NewBackend(failingLLM{err: refused}, "", time.Second, nil),
	})
	require.NoError(t, err)

	resp := r.Process(context.Background(), "tell me a joke")
	assert.Equal(t, llm.ConnectionApology, resp.Text)
	assert.Equal(t, RouteConversation, resp.Route)
}

type chatPlugin struct{ calls int }

func (p *chatPlugin) Name() string { return "chat" }
func (p *chatPlugin) Intents() []intent.Intent { return []intent.Intent{intent.Conversation} }
func (p *chatPlugin) Handle(ctx context.Context, q string, mem memory.Ref) Result {
	p.calls++
	return Reply("plugin: " + q)
}

func TestProcess_ConversationPluginReplacesBackend(t *testing.T) {
	f := newFixture(t)
	p := &chatPlugin{}
	f.registry.RegisterPlugin(p)

	resp := f.router.Process(context.Background(), "how are you")
	assert.Equal(t, "plugin: how are you", resp.Text)
	assert.Empty(t, f.backend.reqs)

	resp = f.router.Process(context.Background(), "fix this python bug")
	assert.Equal(t, "plugin: "+codingInstruction+"\nfix this python bug", resp.Text)
	assert.Equal(t, 2, p.calls)
}

func TestProcess_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Process(context.Background(), "   ")
	assert.Equal(t, RouteEmpty, resp.Route)
	assert.Empty(t, resp.Text)
	assert.Zero(t, f.mem.Len())
	assert.Empty(t, f.backend.reqs)
}

func TestProcess_WithoutMemory(t *testing.T) {
	gate, _ := security.NewGate(nil)
	backend := &fakeBackend{reply: "hi"}
	r, err := New(Options{Classifier: intent.NewClassifier(), Gate: gate, Backend: backend})
	require.NoError(t, err)

	assert.Equal(t, "hi", r.Process(context.Background(), "hello there").Text)
	require.Len(t, backend.reqs, 1)
	assert.Empty(t, backend.reqs[0].History)
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	first := &spy{result: Reply("first")}
	second := &spy{result: Reply("second")}
	reg.Register(intent.Time, first.handle)
	reg.Register(intent.Time, second.handle)

	h, ok := reg.Lookup(intent.Time)
	require.True(t, ok)
	assert.Equal(t, "second", h(context.Background(), "", memory.None{}).Text())
	assert.Equal(t, "builtin", reg.Owner(intent.Time))

	reg.RegisterPlugin(&chatPlugin{})
	assert.Equal(t, "chat", reg.Owner(intent.Conversation))
	assert.Equal(t, []intent.Intent{intent.Conversation, intent.Time}, reg.Intents())
}

func TestNew_RejectsThresholdOutsideUnitRange(t *testing.T) {
	gate, err := security.NewGate(nil)
	require.NoError(t, err)
	for _, v := range []float64{-0.1, 1.5} {
		_, err := New(Options{Classifier: intent.NewClassifier(), Gate: gate, Backend: &fakeBackend{}, Threshold: threshold(v)})
		assert.Error(t, err, "threshold %v", v)
	}
}

func TestProcess_ZeroThresholdKeepsLowConfidenceCommands(t *testing.T) {
	low := fixedClassifier{cls: intent.Classification{Intent: intent.Time, Confidence: 0.1}}
	f := newFixture(t, func(o *Options) {
		o.Classifier = low
		o.Threshold = threshold(0)
	})
	s := &spy{result: Reply("noon")}
	f.registry.Register(intent.Time, s.handle)

	resp := f.router.Process(context.Background(), "time?")
	assert.Equal(t, "noon", resp.Text)
	assert.Equal(t, RouteCommand, resp.Route)
	assert.Equal(t, 1, s.calls)
	assert.Empty(t, f.backend.reqs)
}

func TestProcess_UnsetThresholdUsesDefault(t *testing.T) {
	below := fixedClassifier{cls: intent.Classification{Intent: intent.Time, Confidence: DefaultThreshold - 0.01}}
	f := newFixture(t, func(o *Options) { o.Classifier = below })
	s := &spy{result: Reply("noon")}
	f.registry.Register(intent.Time, s.handle)

	resp := f.router.Process(context.Background(), "time?")
	assert.Equal(t, RouteConversation, resp.Route)
	assert.Zero(t, s.calls)
}

func TestProcess_ClassifierPanicIsContained(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Classifier = panickingClassifier{} })

	var resp Response
	require.NotPanics(t, func() { resp = f.router.Process(context.Background(), "what time is it") })
	assert.Equal(t, FailureReply, resp.Text)
	assert.Equal(t, RouteFailed, resp.Route)
	assert.Equal(t, intent.Conversation, resp.Intent)
	assert.False(t, resp.Exit)
	assert.Zero(t, f.mem.Len())
}

type historySpy struct {
	history []memory.Message
	ok      bool
}

func (h *historySpy) Name() string { return "history" }
func (h *historySpy) Intents() []intent.Intent { return []intent.Intent{intent.Conversation} }
func (h *historySpy) Handle(ctx context.Context, q string, mem memory.Ref) Result {
	h.history, h.ok = HistoryFrom(ctx)
	return Reply("sure")
}

func TestProcess_ConversationPluginSeesHistoryWithoutCurrentQuery(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mem.AddMessage(memory.RoleUser, "tell me a joke"))
	require.NoError(t, f.mem.AddMessage(memory.RoleAssistant, "why did the chicken cross the road"))
	p := &historySpy{}
	f.registry.RegisterPlugin(p)

	f.router.Process(context.Background(), "tell me a joke")
	require.True(t, p.ok)
	assert.Equal(t, []memory.Message{
		{Role: memory.RoleUser, Content: "tell me a joke"},
		{Role: memory.RoleAssistant, Content: "why did the chicken cross the road"},
	}, p.history)

	_, ok := HistoryFrom(context.Background())
	assert.False(t, ok)
}
