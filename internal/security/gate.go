package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// State is the persisted lock status.
type State struct {
	Locked         bool   `json:"locked"`
	CredentialHash string `json:"password_hash,omitempty"`
}

// Gate tracks the locked flag and the credential hash. Every mutation is
// written through to the repository before the call returns.
//
// The gate only compares hashes; deciding who may call Unlock is left to
// the caller.
type Gate struct {
	mu    sync.RWMutex
	repo  Repository
	state State
}

// NewGate loads the state once. A nil repository keeps the state in memory.
func NewGate(repo Repository) (*Gate, error) {
	g := &Gate{repo: repo}
	if repo != nil {
		st, err := repo.Load()
		if err != nil {
			return nil, fmt.Errorf("load security state: %w", err)
		}
		g.state = st
	}
	return g, nil
}

func (g *Gate) IsLocked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Locked
}

func (g *Gate) Lock() error {
	return g.mutate(func(st *State) { st.Locked = true })
}

func (g *Gate) Unlock() error {
	return g.mutate(func(st *State) { st.Locked = false })
}

func (g *Gate) SetCredential(hash string) error {
	return g.mutate(func(st *State) { st.CredentialHash = hash })
}

// HasCredential reports whether a credential has ever been set.
func (g *Gate) HasCredential() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.CredentialHash != ""
}

// VerifyCredential never succeeds when no credential is stored.
func (g *Gate) VerifyCredential(hash string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state.CredentialHash == "" {
		return false
	}
	return g.state.CredentialHash == hash
}

// Allow reports whether an operation of the given sensitivity may run.
func (g *Gate) Allow(sensitive bool) bool {
	if !sensitive {
		return true
	}
	return !g.IsLocked()
}

func (g *Gate) mutate(fn func(*State)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.state
	fn(&g.state)
	if g.repo == nil {
		return nil
	}
	if err := g.repo.Save(g.state); err != nil {
		g.state = prev
		return fmt.Errorf("save security state: %w", err)
	}
	return nil
}

// HashCredential derives the stored form of a password.
func HashCredential(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
