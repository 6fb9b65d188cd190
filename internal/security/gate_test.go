package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	state   State
	saves   int
	failing bool
}

func (m *memRepo) Load() (State, error) { return m.state, nil }

func (m *memRepo) Save(st State) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.saves++
	m.state = st
	return nil
}

func TestGate_LockUnlockWriteThrough(t *testing.T) {
	repo := &memRepo{}
	g, err := NewGate(repo)
	require.NoError(t, err)
	assert.False(t, g.IsLocked())

	require.NoError(t, g.Lock())
	assert.True(t, g.IsLocked())
	assert.True(t, repo.state.Locked)

	// locking twice is permitted
	require.NoError(t, g.Lock())
	assert.True(t, g.IsLocked())

	require.NoError(t, g.Unlock())
	assert.False(t, g.IsLocked())
	assert.False(t, repo.state.Locked)
	assert.Equal(t, 3, repo.saves)
}

func TestGate_VerifyCredential(t *testing.T) {
	g, err := NewGate(&memRepo{})
	require.NoError(t, err)

	assert.False(t, g.VerifyCredential(""))
	assert.False(t, g.VerifyCredential(HashCredential("secret")))
	assert.False(t, g.HasCredential())

	require.NoError(t, g.SetCredential(HashCredential("secret")))
	assert.True(t, g.HasCredential())
	assert.True(t, g.VerifyCredential(HashCredential("secret")))
	assert.False(t, g.VerifyCredential(HashCredential("guess")))
}

func TestGate_Allow(t *testing.T) {
	g, err := NewGate(nil)
	require.NoError(t, err)

	assert.True(t, g.Allow(false))
	assert.True(t, g.Allow(true))

	require.NoError(t, g.Lock())
	assert.True(t, g.Allow(false))
	assert.False(t, g.Allow(true))
}

func TestGate_SaveFailureRollsBack(t *testing.T) {
	repo := &memRepo{failing: true}
	g, err := NewGate(repo)
	require.NoError(t, err)

	assert.Error(t, g.Lock())
	assert.False(t, g.IsLocked())
}

func TestFileRepository_PersistsAcrossGates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "security.json")
	repo, err := NewFileRepository(p)
	require.NoError(t, err)

	g, err := NewGate(repo)
	require.NoError(t, err)
	require.NoError(t, g.SetCredential(HashCredential("pw")))
	require.NoError(t, g.Lock())

	repo2, err := NewFileRepository(p)
	require.NoError(t, err)
	g2, err := NewGate(repo2)
	require.NoError(t, err)
	assert.True(t, g2.IsLocked())
	assert.True(t, g2.VerifyCredential(HashCredential("pw")))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"locked\": true")
}

func TestFileRepository_MalformedFileIsDefault(t *testing.T) {
	p := filepath.Join(t.TempDir(), "security.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o600))

	repo, err := NewFileRepository(p)
	require.NoError(t, err)
	st, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}
