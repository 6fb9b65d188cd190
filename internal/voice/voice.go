// Package voice defines the input and output ends of a spoken session.
// Speech recognition and synthesis live outside this module; the console
// implementations stand in for them with typed lines.
package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Listener yields one utterance at a time.
type Listener interface {
	// Listen waits at most timeout for an utterance. An empty string with
	// a nil error means nothing was heard. io.EOF means the input is gone.
	Listen(ctx context.Context, timeout time.Duration) (string, error)
}

type Speaker interface {
	Say(ctx context.Context, text string) error
}

// ConsoleListener reads newline-separated utterances from a reader on a
// background goroutine so that Listen can time out.
type ConsoleListener struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
	err   error
}

func NewConsoleListener(r io.Reader) *ConsoleListener {
	l := &ConsoleListener{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go l.read(r)
	return l
}

func (l *ConsoleListener) read(r io.Reader) {
	defer close(l.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case l.lines <- line:
		case <-l.done:
			return
		}
	}
	l.err = sc.Err()
}

func (l *ConsoleListener) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", fmt.Errorf("read input: %w", l.err)
			}
			return "", io.EOF
		}
		return line, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the reader goroutine once its current read returns.
func (l *ConsoleListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// ConsoleSpeaker prints replies prefixed with the assistant's name.
type ConsoleSpeaker struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

func NewConsoleSpeaker(w io.Writer, name string) *ConsoleSpeaker {
	return &ConsoleSpeaker{w: w, name: name}
}

// Say skips blank text.
func (s *ConsoleSpeaker) Say(_ context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.name != "" {
		_, err = fmt.Fprintf(s.w, "%s: %s\n", s.name, text)
	} else {
		_, err = fmt.Fprintln(s.w, text)
	}
	return err
}
