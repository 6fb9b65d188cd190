package reminders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Repository interface {
	LoadAll() ([]Reminder, error)
	Upsert(r Reminder) error
	Remove(id string) error
	ReplaceAll(items []Reminder) error
}

// FileRepository keeps every reminder in one indented JSON array that is
// rewritten in full on each change.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) LoadAll() ([]Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Upsert(item Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	updated := false
	for i, it := range items {
		if it.ID == item.ID {
			items[i] = item
			updated = true
			break
		}
	}
	if !updated {
		items = append(items, item)
	}
	return r.saveUnlocked(items)
}

func (r *FileRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return r.saveUnlocked(out)
}

func (r *FileRepository) ReplaceAll(items []Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(items)
}

// loadUnlocked treats an empty or malformed file as no reminders.
func (r *FileRepository) loadUnlocked() ([]Reminder, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read reminders: %w", err)
	}
	var items []Reminder
	if err := json.Unmarshal(data, &items); err != nil {
		return []Reminder{}, nil
	}
	return items, nil
}

func (r *FileRepository) saveUnlocked(items []Reminder) error {
	if items == nil {
		items = []Reminder{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write reminders: %w", err)
	}
	return nil
}
