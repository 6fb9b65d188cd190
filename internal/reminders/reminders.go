// Package reminders stores timed reminders and answers spoken reminder
// commands.
package reminders

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimezone = "Asia/Kolkata"
	DefaultTag      = "uncategorized"
)

type Reminder struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
	City string    `json:"city,omitempty"`
	Tag  string    `json:"tag"`
}

type Manager struct {
	repo   Repository
	parser *Parser
	city   string
	now    func() time.Time

	mu sync.Mutex
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCity labels new reminders with a place name.
func WithCity(city string) Option {
	return func(m *Manager) { m.city = city }
}

func NewManager(repo Repository, timezone string, opts ...Option) (*Manager, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	parser, err := NewParser(timezone)
	if err != nil {
		return nil, err
	}
	m := &Manager{repo: repo, parser: parser, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Add stores a reminder. The instant is kept in UTC.
func (m *Manager) Add(text string, at time.Time, tag string) (Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reminder{}, fmt.Errorf("reminder text is empty")
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		tag = DefaultTag
	}
	r := Reminder{
		ID:   uuid.NewString(),
		Text: text,
		Time: at.UTC(),
		City: m.city,
		Tag:  tag,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.repo.Upsert(r); err != nil {
		return Reminder{}, fmt.Errorf("save reminder: %w", err)
	}
	return r, nil
}

// All returns every reminder ordered by time.
func (m *Manager) All() ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.repo.LoadAll()
	if err != nil {
		return nil, err
	}
	sortByTime(items)
	return items, nil
}

func (m *Manager) Upcoming(now time.Time) ([]Reminder, error) {
	return m.filter(func(r Reminder) bool { return r.Time.After(now) })
}

func (m *Manager) Expired(now time.Time) ([]Reminder, error) {
	return m.filter(func(r Reminder) bool { return !r.Time.After(now) })
}

func (m *Manager) ByTag(tag string) ([]Reminder, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return m.filter(func(r Reminder) bool { return strings.EqualFold(r.Tag, tag) })
}

func (m *Manager) filter(keep func(Reminder) bool) ([]Reminder, error) {
	items, err := m.All()
	if err != nil {
		return nil, err
	}
	var out []Reminder
	for _, r := range items {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Manager) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo.ReplaceAll(nil)
}

// CheckDue removes and returns every reminder whose time is not after now.
// The store is only rewritten when something fired.
func (m *Manager) CheckDue(now time.Time) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.repo.LoadAll()
	if err != nil {
		return nil, err
	}
	var due, rest []Reminder
	for _, r := range items {
		if r.Time.After(now) {
			rest = append(rest, r)
		} else {
			due = append(due, r)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	if err := m.repo.ReplaceAll(rest); err != nil {
		return nil, fmt.Errorf("remove fired reminders: %w", err)
	}
	sortByTime(due)
	return due, nil
}

// Announce is the sentence spoken when r fires.
func (m *Manager) Announce(r Reminder) string {
	local := r.Time.In(m.parser.Location())
	return fmt.Sprintf("Reminder: %s (set for %s)", r.Text, local.Format("02 January 2006, 03:04 PM MST"))
}

// Describe renders r for listings.
func (m *Manager) Describe(r Reminder) string {
	local := r.Time.In(m.parser.Location())
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s", r.Text, local.Format("02 January 2006, 03:04 PM"))
	if r.City != "" {
		fmt.Fprintf(&b, " in %s", r.City)
	}
	fmt.Fprintf(&b, " under %s tag", r.Tag)
	return b.String()
}

func sortByTime(items []Reminder) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Time.Before(items[j].Time) })
}

var (
	setPrefixRe = regexp.MustCompile(`^(?:please\s+)?(?:remind me(?: to| about)?|set (?:a )?reminder(?: to| for)?|add (?:a )?reminder(?: to| for)?)\s+`)
	tagSuffixRe = regexp.MustCompile(`\s+(?:tag|tagged|under tag|category)\s+([\w-]+)$`)
	whenRe      = regexp.MustCompile(`(?:^|\s+)((?:in\s+(?:\d+|an?|one)\s+\w+)|(?:(?:today|tomorrow|next\s+\w+)(?:\s+at\s+[\d:]+\s*(?:am|pm)?)?)|(?:at\s+[\d:]+\s*(?:am|pm)?))$`)
	showTagRe   = regexp.MustCompile(`\btag(?:ged)?\s+([\w-]+)`)
)

// Handle executes a spoken reminder command and returns the reply.
func (m *Manager) Handle(query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	switch {
	case setPrefixRe.MatchString(q):
		return m.handleSet(q)
	case strings.Contains(q, "delete") || strings.Contains(q, "clear") || strings.Contains(q, "remove"):
		if err := m.DeleteAll(); err != nil {
			return "", err
		}
		return "All reminders have been deleted.", nil
	case strings.Contains(q, "upcoming"):
		items, err := m.Upcoming(m.now())
		if err != nil {
			return "", err
		}
		return m.list(items, "You have no upcoming reminders.", "upcoming reminders"), nil
	case strings.Contains(q, "expired") || strings.Contains(q, "old reminders"):
		items, err := m.Expired(m.now())
		if err != nil {
			return "", err
		}
		return m.list(items, "You have no expired reminders.", "expired reminders"), nil
	}

	if sm := showTagRe.FindStringSubmatch(q); sm != nil {
		items, err := m.ByTag(sm[1])
		if err != nil {
			return "", err
		}
		return m.list(items,
			fmt.Sprintf("No reminders found with tag '%s'.", sm[1]),
			fmt.Sprintf("reminders with tag '%s'", sm[1])), nil
	}

	items, err := m.All()
	if err != nil {
		return "", err
	}
	return m.list(items, "You have no reminders saved.", "reminders"), nil
}

func (m *Manager) handleSet(q string) (string, error) {
	rest := setPrefixRe.ReplaceAllString(q, "")

	tag := DefaultTag
	if tm := tagSuffixRe.FindStringSubmatch(rest); tm != nil {
		tag = tm[1]
		rest = tagSuffixRe.ReplaceAllString(rest, "")
	}

	wm := whenRe.FindStringSubmatchIndex(rest)
	if wm == nil {
		return "Sorry, I couldn't understand the reminder time.", nil
	}
	text := strings.TrimSpace(rest[:wm[0]])
	when := rest[wm[2]:wm[3]]
	if text == "" {
		return "What should I remind you about?", nil
	}

	at, err := m.parser.Parse(when, m.now())
	if err != nil {
		return "Sorry, I couldn't understand the reminder time.", nil
	}
	r, err := m.Add(text, at, tag)
	if err != nil {
		return "", err
	}
	local := r.Time.In(m.parser.Location())
	return fmt.Sprintf("Reminder set for %s under category '%s'.",
		local.Format("Monday, 02 January 2006 at 03:04 PM"), r.Tag), nil
}

func (m *Manager) list(items []Reminder, none, label string) string {
	if len(items) == 0 {
		return none
	}
	parts := make([]string, len(items))
	for i, r := range items {
		parts[i] = m.Describe(r)
	}
	return fmt.Sprintf("You have %d %s: %s.", len(items), label, strings.Join(parts, "; "))
}
