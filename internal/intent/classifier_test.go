package intent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyInput(t *testing.T) {
	c := NewClassifier()
	for _, in := range []string{"", "   ", "\t\n"} {
		got := c.Parse(in)
		assert.Equal(t, Classification{Intent: Conversation}, got, "input %q", in)
	}
}

func TestParse_NoMatchesIsConversationZero(t *testing.T) {
	c := NewClassifier()
	for _, in := range []string{"how are you", "tell me a story", "kya haal hai"} {
		got := c.Parse(in)
		assert.Equal(t, Conversation, got.Intent, "input %q", in)
		assert.Zero(t, got.Confidence, "input %q", in)
	}
}

func TestParse_SingleKeywordHit(t *testing.T) {
	got := NewClassifier().Parse("what is the time")
	assert.Equal(t, Time, got.Intent)
	assert.GreaterOrEqual(t, got.Confidence, 0.5)
}

func TestParse_CaseInsensitive(t *testing.T) {
	got := NewClassifier().Parse("WEATHER in Delhi")
	assert.Equal(t, Weather, got.Intent)
	assert.Equal(t, 0.5, got.Confidence)
}

func TestParse_ScoreCapsAtOne(t *testing.T) {
	got := NewClassifier().Parse("weather temperature rain mausam")
	assert.Equal(t, Weather, got.Intent)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestParse_SubstringMatching(t *testing.T) {
	// "notes" also contains "note": two hits
	got := NewClassifier().Parse("read my notes")
	assert.Equal(t, Notes, got.Intent)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestParse_HighestScoreWins(t *testing.T) {
	// files: "file" + "delete file" = 1.0 beats any single hit
	got := NewClassifier().Parse("delete file x")
	assert.Equal(t, Files, got.Intent)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestParse_TieKeepsEnumerationOrder(t *testing.T) {
	// one hit each for time and weather; time comes first
	got := NewClassifier().Parse("weather at this time")
	assert.Equal(t, Time, got.Intent)

	// one hit each for date and exit; date comes first
	got = NewClassifier().Parse("bye for today")
	assert.Equal(t, Date, got.Intent)
}

func TestParse_BelowFloorFallsBackWithScore(t *testing.T) {
	c := NewClassifier(WithHitWeight(0.2))
	got := c.Parse("what is the time")
	assert.Equal(t, Conversation, got.Intent)
	assert.InDelta(t, 0.2, got.Confidence, 1e-9)

	// two hits reach 0.4 and clear the floor
	got = c.Parse("weather and rain")
	assert.Equal(t, Weather, got.Intent)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
}

func TestParse_CustomFloor(t *testing.T) {
	c := NewClassifier(WithFloor(0.6))
	got := c.Parse("what is the time")
	assert.Equal(t, Classification{Intent: Conversation, Confidence: 0.5}, got)
}

func TestRequiresSecurity(t *testing.T) {
	for _, i := range []Intent{Files, Notes, Reminders} {
		assert.True(t, RequiresSecurity(i), "%s", i)
	}
	for _, i := range []Intent{Time, Date, Weather, Help, Exit, Calculator, Memory, Conversation} {
		assert.False(t, RequiresSecurity(i), "%s", i)
	}
}

func TestParseIntent(t *testing.T) {
	i, err := ParseIntent(" Weather ")
	require.NoError(t, err)
	assert.Equal(t, Weather, i)

	i, err = ParseIntent("conversation")
	require.NoError(t, err)
	assert.Equal(t, Conversation, i)

	_, err = ParseIntent("teleport")
	assert.Error(t, err)
}

func TestLoadKeywords_OverlaysDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(p, []byte("weather: [forecast, barish]\n"), 0o644))

	table, err := LoadKeywords(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"forecast", "barish"}, table.Words(Weather))
	assert.Equal(t, DefaultKeywords().Words(Time), table.Words(Time))

	for idx, r := range table {
		assert.Equal(t, Ordered[idx], r.Intent)
	}

	got := NewClassifier(WithKeywords(table)).Parse("kal barish hogi?")
	assert.Equal(t, Weather, got.Intent)
}

func TestLoadKeywords_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadKeywords(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("teleport: [beam]\n"), 0o644))
	_, err = LoadKeywords(unknown)
	assert.Error(t, err)

	conv := filepath.Join(dir, "conv.yaml")
	require.NoError(t, os.WriteFile(conv, []byte("conversation: [hi]\n"), 0o644))
	_, err = LoadKeywords(conv)
	assert.Error(t, err)
}
