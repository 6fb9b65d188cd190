package reminders

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reminders.json")
	repo, err := NewFileRepository(path)
	require.NoError(t, err)
	m, err := NewManager(repo, "UTC", WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return m, path
}

func TestFileRepository_CRUD(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "nested", "reminders.json"))
	require.NoError(t, err)

	items, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, items)

	a := Reminder{ID: "a", Text: "one", Time: testNow, Tag: DefaultTag}
	b := Reminder{ID: "b", Text: "two", Time: testNow, Tag: DefaultTag}
	require.NoError(t, repo.Upsert(a))
	require.NoError(t, repo.Upsert(b))
	a.Text = "uno"
	require.NoError(t, repo.Upsert(a))

	items, err = repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "uno", items[0].Text)

	require.NoError(t, repo.Remove("a"))
	items, _ = repo.LoadAll()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestFileRepository_MalformedFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	repo, err := NewFileRepository(path)
	require.NoError(t, err)
	items, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestManager_SetAndList(t *testing.T) {
	m, path := newTestManager(t)

	reply, err := m.Handle("Remind me to call mom in 10 minutes tag family")
	require.NoError(t, err)
	assert.Equal(t, "Reminder set for Wednesday, 01 May 2024 at 10:10 AM under category 'family'.", reply)

	reply, err = m.Handle("remind me to water plants at 18:30")
	require.NoError(t, err)
	assert.Contains(t, reply, "06:30 PM")
	assert.Contains(t, reply, "'uncategorized'")

	items, err := m.All()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "call mom", items[0].Text)
	assert.Equal(t, "family", items[0].Tag)
	assert.Equal(t, time.UTC, items[0].Time.Location())
	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {")

	reply, err = m.Handle("show my reminders")
	require.NoError(t, err)
	assert.Equal(t, "You have 2 reminders: call mom at 01 May 2024, 10:10 AM under family tag; water plants at 01 May 2024, 06:30 PM under uncategorized tag.", reply)
}

func TestManager_SetRejectsBadInput(t *testing.T) {
	m, _ := newTestManager(t)

	reply, err := m.Handle("remind me to stretch whenever")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't understand the reminder time.", reply)

	reply, err = m.Handle("remind me in 5 minutes")
	require.NoError(t, err)
	assert.Equal(t, "What should I remind you about?", reply)

	items, _ := m.All()
	assert.Empty(t, items)
}

func TestManager_Filters(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Add("past", testNow.Add(-time.Hour), "work")
	require.NoError(t, err)
	_, err = m.Add("future", testNow.Add(time.Hour), "home")
	require.NoError(t, err)

	reply, _ := m.Handle("show upcoming reminders")
	assert.Contains(t, reply, "1 upcoming reminders: future")

	reply, _ = m.Handle("show expired reminders")
	assert.Contains(t, reply, "1 expired reminders: past")

	reply, _ = m.Handle("show reminders tag work")
	assert.Contains(t, reply, "1 reminders with tag 'work': past")

	reply, _ = m.Handle("show reminders tag garden")
	assert.Equal(t, "No reminders found with tag 'garden'.", reply)

	reply, _ = m.Handle("delete all reminders")
	assert.Equal(t, "All reminders have been deleted.", reply)
	reply, _ = m.Handle("show reminders")
	assert.Equal(t, "You have no reminders saved.", reply)
}

func TestManager_CheckDue(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Add("later", testNow.Add(time.Hour), "")
	require.NoError(t, err)
	_, err = m.Add("second", testNow.Add(-time.Minute), "")
	require.NoError(t, err)
	_, err = m.Add("first", testNow.Add(-time.Hour), "")
	require.NoError(t, err)

	due, err := m.CheckDue(testNow)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "first", due[0].Text)
	assert.Equal(t, "second", due[1].Text)
	assert.Equal(t, "Reminder: first (set for 01 May 2024, 09:00 AM UTC)", m.Announce(due[0]))

	// fired reminders are gone
	due, err = m.CheckDue(testNow)
	require.NoError(t, err)
	assert.Empty(t, due)

	left, _ := m.All()
	require.Len(t, left, 1)
	assert.Equal(t, "later", left[0].Text)
}

func TestManager_DescribeIncludesCity(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "r.json"))
	require.NoError(t, err)
	m, err := NewManager(repo, "Asia/Kolkata", WithCity("Lucknow"))
	require.NoError(t, err)

	r, err := m.Add("tea", time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.Equal(t, "tea at 01 May 2024, 09:30 AM in Lucknow under uncategorized tag", m.Describe(r))
	assert.Contains(t, m.Announce(r), "IST")
}
