package telegram

// Allowlist holds the Telegram user IDs that may talk to the assistant.
// An empty list admits nobody. It is fixed at construction.
type Allowlist struct {
	ids map[int64]struct{}
}

func NewAllowlist(ids []int64) *Allowlist {
	a := &Allowlist{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
	return a
}

func (a *Allowlist) IsAllowed(userID int64) bool {
	_, ok := a.ids[userID]
	return ok
}

func (a *Allowlist) Len() int { return len(a.ids) }
