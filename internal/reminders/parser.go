package reminders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parser converts spoken time expressions into absolute instants in its
// timezone.
type Parser struct {
	location *time.Location
}

// NewParser creates a parser for an IANA timezone name, e.g. "Asia/Kolkata".
func NewParser(timezone string) (*Parser, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Parser{location: loc}, nil
}

func (p *Parser) Location() *time.Location { return p.location }

var (
	inDurationRe = regexp.MustCompile(`^in (\d+|an?|one) (sec|secs|second|seconds|min|mins|minute|minutes|hour|hours|hr|hrs|day|days|week|weeks)$`)
	clockRe      = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	dayAtRe      = regexp.MustCompile(`^(today|tomorrow|next \w+)(?: at (.+))?$`)
)

// defaultHour is used for "tomorrow" or "next friday" without a clock time.
const defaultHour = 9

// Parse understands:
//
//	in 10 minutes | in an hour | in 2 days
//	at 18:30 | at 6 pm | at 6:15am
//	today at 5 pm | tomorrow | tomorrow at 9:00 | next monday at 10
//
// A bare clock time that has already passed today means tomorrow.
func (p *Parser) Parse(expr string, base time.Time) (time.Time, error) {
	expr = strings.Join(strings.Fields(strings.ToLower(expr)), " ")
	base = base.In(p.location)

	if strings.HasPrefix(expr, "in ") {
		return p.parseInDuration(expr, base)
	}

	if strings.HasPrefix(expr, "at ") {
		h, m, err := parseClock(strings.TrimPrefix(expr, "at "))
		if err != nil {
			return time.Time{}, err
		}
		t := p.at(base, h, m)
		if !t.After(base) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}

	if m := dayAtRe.FindStringSubmatch(expr); m != nil {
		day, err := p.parseDay(m[1], base)
		if err != nil {
			return time.Time{}, err
		}
		hour, minute := defaultHour, 0
		if m[2] != "" {
			if hour, minute, err = parseClock(m[2]); err != nil {
				return time.Time{}, err
			}
		}
		return p.at(day, hour, minute), nil
	}

	return time.Time{}, fmt.Errorf("unrecognised time expression: %q", expr)
}

func (p *Parser) parseInDuration(expr string, base time.Time) (time.Time, error) {
	m := inDurationRe.FindStringSubmatch(expr)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid duration format: %q", expr)
	}
	amount := 1
	if n, err := strconv.Atoi(m[1]); err == nil {
		amount = n
	}
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "sec"):
		return base.Add(time.Duration(amount) * time.Second), nil
	case strings.HasPrefix(unit, "min"):
		return base.Add(time.Duration(amount) * time.Minute), nil
	case strings.HasPrefix(unit, "h"):
		return base.Add(time.Duration(amount) * time.Hour), nil
	case strings.HasPrefix(unit, "day"):
		return base.AddDate(0, 0, amount), nil
	case strings.HasPrefix(unit, "week"):
		return base.AddDate(0, 0, amount*7), nil
	}
	return time.Time{}, fmt.Errorf("unknown time unit: %q", unit)
}

func (p *Parser) parseDay(word string, base time.Time) (time.Time, error) {
	switch word {
	case "today":
		return base, nil
	case "tomorrow":
		return base.AddDate(0, 0, 1), nil
	}
	weekdays := map[string]time.Weekday{
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
		"sunday":    time.Sunday,
	}
	name := strings.TrimPrefix(word, "next ")
	target, ok := weekdays[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown weekday: %q", name)
	}
	days := int(target - base.Weekday())
	if days <= 0 {
		days += 7
	}
	return base.AddDate(0, 0, days), nil
}

func (p *Parser) at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, p.location)
}

func parseClock(s string) (int, int, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid clock time: %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("invalid hour: %d am", hour)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("invalid hour: %d pm", hour)
		}
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock time: %q", s)
	}
	return hour, minute, nil
}
