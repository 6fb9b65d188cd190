package transcript

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DailyStats summarises one calendar day of turns.
type DailyStats struct {
	Date        string         `json:"date"`
	TotalTurns  int            `json:"total_turns"`
	UniqueUsers int            `json:"unique_users"`
	BySource    map[string]int `json:"by_source"`
	ByIntent    map[string]int `json:"by_intent"`
	ByRoute     map[string]int `json:"by_route"`
}

// AnalyzeDay counts the events that fall on day, in day's location.
func AnalyzeDay(events []Event, day time.Time) *DailyStats {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:     start.Format("2006-01-02"),
		BySource: make(map[string]int),
		ByIntent: make(map[string]int),
		ByRoute:  make(map[string]int),
	}
	users := make(map[string]bool)

	for _, ev := range events {
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		stats.TotalTurns++
		stats.BySource[ev.Source]++
		stats.ByIntent[ev.Intent]++
		stats.ByRoute[ev.Route]++
		users[fmt.Sprintf("%s/%d", ev.Source, ev.UserID)] = true
	}
	stats.UniqueUsers = len(users)
	return stats
}

// Summary renders the stats as plain text.
func (ds *DailyStats) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Assistant usage for %s\n", ds.Date)
	fmt.Fprintf(&sb, "Turns: %d, users: %d\n", ds.TotalTurns, ds.UniqueUsers)
	writeCounts(&sb, "By source", ds.BySource)
	writeCounts(&sb, "By intent", ds.ByIntent)
	writeCounts(&sb, "By route", ds.ByRoute)
	return sb.String()
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(sb, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(sb, "- %s: %d\n", k, counts[k])
	}
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
