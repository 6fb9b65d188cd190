// Package memory keeps the assistant's short-term conversation window and
// its long-term profile and facts.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxContext is the default size of the recent-message window.
const DefaultMaxContext = 12

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Ref is the memory capability handed to the router and to handlers.
// Callers without memory pass None.
type Ref interface {
	AddMessage(role Role, content string) error
	Context() []Message
	ClearContext() error
	SetProfile(key, value string) error
	Profile() map[string]string
	RememberFact(fact string) error
	Facts() []string
}

// record is the on-disk document.
type record struct {
	Profile map[string]string `json:"profile"`
	Facts   []string          `json:"facts"`
	Recent  []Message         `json:"recent"`
}

// Store is a file-backed Ref. Every mutation rewrites the whole file and
// is undone in memory when the write fails.
type Store struct {
	mu      sync.RWMutex
	path    string
	max     int
	profile map[string]string
	facts   []string
	recent  []Message
}

// Open loads the store from path. A missing, unreadable or malformed file
// yields an empty store; Open only fails on an invalid capacity.
func Open(path string, maxContext int) (*Store, error) {
	if maxContext <= 0 {
		return nil, fmt.Errorf("max context must be positive, got %d", maxContext)
	}
	s := &Store{
		path:    path,
		max:     maxContext,
		profile: make(map[string]string),
	}
	s.load()
	return s, nil
}

// NewInMemory returns a store that is never persisted.
func NewInMemory(maxContext int) (*Store, error) {
	return Open("", maxContext)
}

func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return
	}
	if rec.Profile != nil {
		s.profile = rec.Profile
	}
	seen := make(map[string]bool, len(rec.Facts))
	for _, f := range rec.Facts {
		if !seen[f] {
			seen[f] = true
			s.facts = append(s.facts, f)
		}
	}
	s.recent = trim(rec.Recent, s.max)
}

func (s *Store) AddMessage(role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(func() {
		s.recent = trim(append(s.recent, Message{Role: role, Content: content}), s.max)
	})
}

// Context returns the recent window, oldest first.
func (s *Store) Context() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.recent))
	copy(out, s.recent)
	return out
}

// Len is the number of messages in the recent window.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recent)
}

func (s *Store) ClearContext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(func() { s.recent = nil })
}

func (s *Store) SetProfile(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(func() { s.profile[key] = value })
}

func (s *Store) Profile() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.profile))
	for k, v := range s.profile {
		out[k] = v
	}
	return out
}

// RememberFact adds fact unless an identical string is already stored.
func (s *Store) RememberFact(fact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.facts {
		if f == fact {
			return nil
		}
	}
	return s.mutateLocked(func() { s.facts = append(s.facts, fact) })
}

func (s *Store) Facts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.facts))
	copy(out, s.facts)
	return out
}

// mutateLocked applies fn and persists the result, restoring the previous
// state if the write fails.
func (s *Store) mutateLocked(fn func()) error {
	profile := make(map[string]string, len(s.profile))
	for k, v := range s.profile {
		profile[k] = v
	}
	facts := append([]string(nil), s.facts...)
	recent := append([]Message(nil), s.recent...)

	fn()
	if err := s.saveLocked(); err != nil {
		s.profile, s.facts, s.recent = profile, facts, recent
		return err
	}
	return nil
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	rec := record{Profile: s.profile, Facts: s.facts, Recent: s.recent}
	if rec.Facts == nil {
		rec.Facts = []string{}
	}
	if rec.Recent == nil {
		rec.Recent = []Message{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write memory: %w", err)
	}
	return nil
}

func trim(msgs []Message, limit int) []Message {
	if len(msgs) <= limit {
		return msgs
	}
	out := make([]Message, limit)
	copy(out, msgs[len(msgs)-limit:])
	return out
}

// ErrNoMemory is returned by None for writes that cannot be honoured.
var ErrNoMemory = errors.New("no memory attached")

// None is the explicit "no memory" variant of Ref. Conversation writes are
// silently dropped; long-term writes report ErrNoMemory.
type None struct{}

func (None) AddMessage(Role, string) error { return nil }
func (None) Context() []Message { return nil }
func (None) ClearContext() error { return nil }
func (None) SetProfile(string, string) error { return ErrNoMemory }
func (None) Profile() map[string]string { return map[string]string{} }
func (None) RememberFact(string) error { return ErrNoMemory }
func (None) Facts() []string { return nil }
