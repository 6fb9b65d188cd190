package intent

import (
	"fmt"
	"strings"
)

// Intent is a routing key for an utterance.
type Intent string

const (
	Time         Intent = "time"
	Date         Intent = "date"
	Weather      Intent = "weather"
	Notes        Intent = "notes"
	Reminders    Intent = "reminders"
	Files        Intent = "files"
	Help         Intent = "help"
	Exit         Intent = "exit"
	Calculator   Intent = "calculator"
	Memory       Intent = "memory"
	Conversation Intent = "conversation"
)

// Ordered lists the scored intents in the order used for scoring and
// tie-breaking. Conversation is never scored.
var Ordered = []Intent{
	Time,
	Date,
	Weather,
	Notes,
	Reminders,
	Files,
	Help,
	Exit,
	Calculator,
	Memory,
}

var sensitive = map[Intent]bool{
	Files:     true,
	Notes:     true,
	Reminders: true,
}

// RequiresSecurity reports whether handling the intent touches protected
// resources and must be refused while the system is locked.
func RequiresSecurity(i Intent) bool {
	return sensitive[i]
}

func (i Intent) String() string { return string(i) }

// ParseIntent resolves a name (case-insensitive) to a known intent.
func ParseIntent(s string) (Intent, error) {
	name := Intent(strings.ToLower(strings.TrimSpace(s)))
	if name == Conversation {
		return Conversation, nil
	}
	for _, i := range Ordered {
		if i == name {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown intent: %q", s)
}

// Classification is the classifier output for a single utterance.
type Classification struct {
	Intent     Intent
	Confidence float64
}
