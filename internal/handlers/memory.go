package handlers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"voice-assistant/internal/memory"
	"voice-assistant/internal/router"
)

var (
	rememberRe = regexp.MustCompile(`(?i)\bremember that\s+(.+)`)
	nameRe     = regexp.MustCompile(`(?i)\b(?:my name is|call me)\s+(.+)`)
	forgetRe   = regexp.MustCompile(`(?i)\bforget (?:our|this|the) (?:conversation|chat)\b`)
)

const noMemoryReply = "I can't remember things right now."

// Memory stores facts and the user's name, and recites what it knows.
func Memory(_ context.Context, query string, mem memory.Ref) router.Result {
	if forgetRe.MatchString(query) {
		if err := mem.ClearContext(); err != nil {
			return memoryFailure(err)
		}
		return router.Reply("Okay, I've forgotten our conversation. I still remember what you told me about yourself.")
	}

	if m := nameRe.FindStringSubmatch(query); m != nil {
		name := trimUtterance(m[1])
		if name == "" {
			return router.Reply("What should I call you?")
		}
		if err := mem.SetProfile("name", name); err != nil {
			return memoryFailure(err)
		}
		return router.Reply(fmt.Sprintf("Nice to meet you, %s.", name))
	}

	if m := rememberRe.FindStringSubmatch(query); m != nil {
		fact := trimUtterance(m[1])
		if fact == "" {
			return router.Reply("What should I remember?")
		}
		if err := mem.RememberFact(fact); err != nil {
			return memoryFailure(err)
		}
		return router.Reply(fmt.Sprintf("Okay, I'll remember that %s.", fact))
	}

	return router.Reply(describeUser(mem))
}

func describeUser(mem memory.Ref) string {
	profile := mem.Profile()
	facts := mem.Facts()
	if len(profile) == 0 && len(facts) == 0 {
		return "I don't know anything about you yet."
	}
	var parts []string
	if name := profile["name"]; name != "" {
		parts = append(parts, fmt.Sprintf("Your name is %s.", name))
	}
	if len(facts) > 0 {
		parts = append(parts, "You told me: "+strings.Join(facts, "; ")+".")
	}
	if len(parts) == 0 {
		return "I don't know much about you yet."
	}
	return strings.Join(parts, " ")
}

func memoryFailure(err error) router.Result {
	if errors.Is(err, memory.ErrNoMemory) {
		return router.Reply(noMemoryReply)
	}
	return router.Fail(err)
}

func trimUtterance(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!?")
}
