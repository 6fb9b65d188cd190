package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule binds an intent to the keywords that vote for it.
type Rule struct {
	Intent Intent
	Words  []string
}

// Keywords is an ordered keyword table. Order matters for tie-breaking.
type Keywords []Rule

// DefaultKeywords returns the built-in table in enumeration order.
func DefaultKeywords() Keywords {
	return Keywords{
		{Intent: Time, Words: []string{"time", "samay"}},
		{Intent: Date, Words: []string{"date", "aaj", "today"}},
		{Intent: Weather, Words: []string{"weather", "mausam", "temperature", "rain"}},
		{Intent: Notes, Words: []string{"note", "notes", "likh", "padho"}},
		{Intent: Reminders, Words: []string{"reminder", "remind", "yaad"}},
		{Intent: Files, Words: []string{"file", "folder", "directory", "delete file"}},
		{Intent: Help, Words: []string{"help", "commands", "what can you do"}},
		{Intent: Exit, Words: []string{"exit", "quit", "bye", "goodbye"}},
		{Intent: Calculator, Words: []string{"calculate", "plus", "minus", "into", "divide", "+", "-", "*", "/"}},
		{Intent: Memory, Words: []string{"remember that", "my name is", "call me", "about me", "forget our conversation"}},
	}
}

// Words returns the keywords configured for i.
func (k Keywords) Words(i Intent) []string {
	for _, r := range k {
		if r.Intent == i {
			return r.Words
		}
	}
	return nil
}

// LoadKeywords overlays a YAML keyword file on the defaults. The file maps
// intent names to keyword lists:
//
//	weather: [weather, forecast, barish]
//	exit: [exit, quit, bye]
//
// Intents missing from the file keep their default keywords. The
// enumeration order never depends on the file.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}

	overrides := make(map[Intent][]string, len(raw))
	for name, words := range raw {
		i, err := ParseIntent(name)
		if err != nil {
			return nil, err
		}
		if i == Conversation {
			return nil, fmt.Errorf("conversation is a fallback and takes no keywords")
		}
		overrides[i] = words
	}

	table := DefaultKeywords()
	for idx, r := range table {
		if words, ok := overrides[r.Intent]; ok {
			table[idx].Words = words
		}
	}
	return table, nil
}
