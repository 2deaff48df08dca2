// Package workspace manages per-session scratch directories for intermediate
// fill artifacts (substituted sections, merged drafts, final documents).
package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is an isolated directory owned by a single fill request
type Session struct {
	ID      string    `json:"id"`
	Dir     string    `json:"dir"`
	Created time.Time `json:"created"`
}

// Path returns name resolved inside the session directory
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

// Manager creates and tracks sessions under a root directory
type Manager struct {
	root     string
	logger   *log.Logger
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates the root directory if needed
func NewManager(root string, logger *log.Logger) (*Manager, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "mcp-pdf-filler")
	}
	if logger == nil {
		logger = log.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", absRoot, err)
	}

	return &Manager{
		root:     absRoot,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Root returns the absolute workspace root
func (m *Manager) Root() string {
	return m.root
}

// Open creates a new uniquely named session directory
func (m *Manager) Open() (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	s := &Session{ID: id, Dir: dir, Created: time.Now()}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns an open session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns open sessions ordered by creation time
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Close removes a session directory and everything in it
func (m *Manager) Close(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("failed to remove session directory %s: %w", s.Dir, err)
	}
	return nil
}

// CloseAll removes every open session, logging failures
func (m *Manager) CloseAll() {
	for _, s := range m.List() {
		if err := m.Close(s.ID); err != nil {
			m.logger.Printf("Warning: %v", err)
		}
	}
}

// Sweep removes session directories under the root older than maxAge,
// including ones left behind by earlier processes.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read workspace root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		m.mu.Lock()
		delete(m.sessions, entry.Name())
		m.mu.Unlock()

		if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
			m.logger.Printf("Warning: failed to remove stale session %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
