// Package transcript keeps an append-only log of routed turns and derives
// daily usage statistics from it.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one routed utterance and the reply it produced. Denied turns
// are stored without their query text.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	UserID     int64     `json:"user_id,omitempty"`
	Query      string    `json:"query,omitempty"`
	Reply      string    `json:"reply,omitempty"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Route      string    `json:"route"`
}

// Recorder persists events. LoadEvents returns them in append order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Append(event Event) error
	LoadEvents() ([]Event, error)
}

// FileRecorder writes one JSON object per line.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure transcript dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to init transcript file: %w", err)
	}
	_ = f.Close()
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) Append(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(event); err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	return nil
}

// LoadEvents skips lines that do not decode.
func (r *FileRecorder) LoadEvents() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open read: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	var events []Event
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return events, nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Append(Event) error { return nil }
func (Discard) LoadEvents() ([]Event, error) { return nil, nil }
