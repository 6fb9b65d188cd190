package notes

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var addPrefixRe = regexp.MustCompile(`(?i)^(?:please\s+)?(?:take|make|add|write|save)\s+(?:a\s+)?notes?\b(?:\s+that|\s*:)?\s*|^note(?:\s+that|\s*:)?\s+|^likh(?:o)?\s+`)

// Handle executes a spoken notes command and returns the reply.
func (s *Store) Handle(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)

	if loc := addPrefixRe.FindStringIndex(q); loc != nil {
		content := strings.TrimSpace(q[loc[1]:])
		if content == "" {
			return "What should I write? Say: take a note, followed by the text.", nil
		}
		if _, err := s.Add(ctx, content); err != nil {
			return "", err
		}
		return "Note saved successfully.", nil
	}

	if strings.Contains(lower, "delete") || strings.Contains(lower, "clear") {
		n, err := s.DeleteAll(ctx)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "You don't have any notes to delete.", nil
		}
		return "All your notes have been deleted.", nil
	}

	items, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "You don't have any notes yet.", nil
	}
	lines := make([]string, len(items))
	for i, n := range items {
		lines[i] = n.String()
	}
	return fmt.Sprintf("You have %d notes: %s", len(items), strings.Join(lines, "; ")), nil
}
