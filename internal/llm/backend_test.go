package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/memory"
)

type fakeLLM struct {
	resp  Response
	err   error
	calls int
	got   []Message
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []Message) (Response, error) {
	f.calls++
	f.got = msgs
	return f.resp, f.err
}

func TestBackend_BuildsPromptFromContext(t *testing.T) {
	fake := &fakeLLM{resp: Response{Content: "  namaste  "}}
	b := NewBackend(fake, "be brief", time.Second, nil)

	reply := b.Reply(context.Background(), Request{
		Instruction: "Answer like a senior developer.",
		Query:       "why is my loop slow",
		History: []memory.Message{
			{Role: memory.RoleUser, Content: "hi"},
			{Role: memory.RoleAssistant, Content: "hello"},
		},
		Profile: map[string]string{"name": "Asha"},
		Facts:   []string{"likes chai"},
	})
	assert.Equal(t, "namaste", reply)

	require.Len(t, fake.got, 4)
	assert.Equal(t, RoleSystem, fake.got[0].Role)
	assert.Contains(t, fake.got[0].Content, "be brief")
	assert.Contains(t, fake.got[0].Content, "- name: Asha")
	assert.Contains(t, fake.got[0].Content, "- likes chai")
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, fake.got[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "hello"}, fake.got[2])
	assert.Equal(t, Message{Role: RoleUser, Content: "Answer like a senior developer.\nwhy is my loop slow"}, fake.got[3])
}

func TestBackend_DefaultSystemPrompt(t *testing.T) {
	fake := &fakeLLM{resp: Response{Content: "ok"}}
	NewBackend(fake, "", 0, nil).Reply(context.Background(), Request{Query: "hi"})
	require.NotEmpty(t, fake.got)
	assert.Equal(t, DefaultSystemPrompt, fake.got[0].Content)
}

func TestBackend_EmptyQuerySkipsCall(t *testing.T) {
	fake := &fakeLLM{}
	assert.Equal(t, "", NewBackend(fake, "", 0, nil).Reply(context.Background(), Request{Query: "  "}))
	assert.Zero(t, fake.calls)
}

func TestBackend_FailureApologies(t *testing.T) {
	cases := []struct {
		name string
		resp Response
		err  error
		want string
	}{
		{"connection", Response{}, fmt.Errorf("wrapped: %w", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}), ConnectionApology},
		{"timeout", Response{}, fmt.Errorf("wrapped: %w", context.DeadlineExceeded), TimeoutApology},
		{"empty content", Response{Content: "   "}, nil, EmptyReplyApology},
		{"empty sentinel", Response{}, ErrEmptyResponse, EmptyReplyApology},
		{"other", Response{}, errors.New("boom"), InternalApology},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBackend(&fakeLLM{resp: tc.resp, err: tc.err}, "", time.Second, nil)
			assert.Equal(t, tc.want, b.Reply(context.Background(), Request{Query: "hello"}))
		})
	}
}

func TestBackend_RealConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewOllama("http://"+addr+"/v1", "llama3", 0.7, 0.9)
	b := NewBackend(client, "", 2*time.Second, nil)
	assert.Equal(t, ConnectionApology, b.Reply(context.Background(), Request{Query: "hello"}))
}

func TestBackend_RealTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	b := NewBackend(NewOllama(srv.URL+"/v1", "llama3", 0.7, 0.9), "", 50*time.Millisecond, nil)
	assert.Equal(t, TimeoutApology, b.Reply(context.Background(), Request{Query: "hello"}))
}

func TestOpenAIClient_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "https://example.org", r.Header.Get("HTTP-Referer"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"hi there"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "m", Referrer: "https://example.org", Temperature: 0.5})
	resp, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 5, resp.TotalTokens)
	assert.Equal(t, "m", body["model"])
	assert.InDelta(t, 0.5, body["temperature"], 1e-6)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL+"/v1", "m", 0, 0).Generate(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailureEmpty, Classify(ErrEmptyResponse))
	assert.Equal(t, FailureTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, FailureConnection, Classify(&net.DNSError{Err: "no such host", Name: "x"}))
	assert.Equal(t, FailureOther, Classify(errors.New("x")))
	assert.Equal(t, "timeout", FailureTimeout.String())
}
