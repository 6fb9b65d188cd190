// Package files performs spoken file operations inside one base directory.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrOutsideBase = errors.New("path escapes the base directory")
	ErrNoName      = errors.New("file name is empty")
)

// Manager resolves every name against base and refuses anything that
// would leave it.
type Manager struct {
	base string
}

func NewManager(base string) (*Manager, error) {
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("ensure base dir: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	return &Manager{base: resolved}, nil
}

func (m *Manager) Base() string { return m.base }

// CleanName strips quotes and filler words such as "named" or "the".
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, `"'`)
	for _, prefix := range []string{"named ", "called ", "the "} {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
		}
	}
	return strings.Trim(name, `"'`)
}

func (m *Manager) resolve(name string) (string, error) {
	name = CleanName(name)
	if name == "" {
		return "", ErrNoName
	}
	p := filepath.Join(m.base, filepath.FromSlash(name))
	if !m.within(p) {
		return "", ErrOutsideBase
	}
	resolved, err := evalExisting(p)
	if err != nil {
		return "", err
	}
	if !m.within(resolved) {
		return "", ErrOutsideBase
	}
	return p, nil
}

func (m *Manager) within(p string) bool {
	rel, err := filepath.Rel(m.base, p)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting follows symlinks in the longest existing prefix of p and
// appends the components that do not exist yet. A dangling link reports
// ErrOutsideBase since its target cannot be checked.
func evalExisting(p string) (string, error) {
	cur, rest := p, ""
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			return "", ErrOutsideBase
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func (m *Manager) Create(name string) error {
	p, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return f.Close()
}

func (m *Manager) Delete(name string) error {
	p, err := m.resolve(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", name)
	}
	return os.Remove(p)
}

func (m *Manager) Read(name string) (string, error) {
	p, err := m.resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (m *Manager) Rename(from, to string) error {
	src, err := m.resolve(from)
	if err != nil {
		return err
	}
	dst, err := m.resolve(to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.Rename(src, dst)
}

// List returns the regular files directly inside the base directory.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.base)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Handle executes a spoken file command and returns the reply. Only
// unexpected I/O failures are returned as errors.
func (m *Manager) Handle(command string) (string, error) {
	cmd := strings.TrimSpace(command)
	lower := strings.ToLower(cmd)

	switch {
	case strings.HasPrefix(lower, "create file"):
		name := CleanName(cmd[len("create file"):])
		if name == "" {
			return "Please provide a filename to create.", nil
		}
		if err := m.Create(name); err != nil {
			return m.explain(err, name)
		}
		return fmt.Sprintf("File %s created.", name), nil

	case strings.HasPrefix(lower, "delete file"):
		name := CleanName(cmd[len("delete file"):])
		if name == "" {
			return "Please provide a filename to delete.", nil
		}
		if err := m.Delete(name); err != nil {
			return m.explain(err, name)
		}
		return fmt.Sprintf("File %s deleted.", name), nil

	case strings.HasPrefix(lower, "read file"):
		name := CleanName(cmd[len("read file"):])
		if name == "" {
			return "Please provide a filename to read.", nil
		}
		content, err := m.Read(name)
		if err != nil {
			return m.explain(err, name)
		}
		if content == "" {
			return fmt.Sprintf("%s is empty.", name), nil
		}
		return fmt.Sprintf("Content of %s: %s", name, content), nil

	case strings.HasPrefix(lower, "rename file"):
		rest := cmd[len("rename file"):]
		idx := strings.Index(strings.ToLower(rest), " to ")
		if idx < 0 {
			return "Please use format: rename file OLD to NEW", nil
		}
		from, to := CleanName(rest[:idx]), CleanName(rest[idx+len(" to "):])
		if from == "" || to == "" {
			return "Please specify both old and new filenames.", nil
		}
		if err := m.Rename(from, to); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "Original file not found.", nil
			}
			return m.explain(err, from)
		}
		return fmt.Sprintf("File renamed from %s to %s.", from, to), nil

	case strings.Contains(lower, "list"):
		names, err := m.List()
		if err != nil {
			return "", fmt.Errorf("list files: %w", err)
		}
		if len(names) == 0 {
			return "No files found in the current directory.", nil
		}
		return "Files in directory: " + strings.Join(names, ", "), nil
	}
	return "File command not recognized.", nil
}

func (m *Manager) explain(err error, name string) (string, error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "File not found.", nil
	case errors.Is(err, ErrOutsideBase):
		return fmt.Sprintf("I can only work with files inside %s.", m.base), nil
	case errors.Is(err, ErrNoName):
		return "Please provide a filename.", nil
	}
	return "", fmt.Errorf("file %s: %w", name, err)
}
