package sections

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

// catalogFile is the on-disk layout of a FileStore
type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// FileStore keeps the catalog in a YAML file. Relative template paths are
// resolved against the file's directory.
type FileStore struct {
	path string
	base string

	mu        sync.RWMutex
	templates map[string]Template
}

var _ Store = (*FileStore)(nil)

// OpenFileStore loads path. A missing file is an empty catalog that is
// created on the first Put.
func OpenFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}
	s := &FileStore{
		path:      abs,
		base:      filepath.Dir(abs),
		templates: make(map[string]Template),
	}

	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", abs, err)
	}
	for _, t := range cf.Templates {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", abs, err)
		}
		if _, dup := s.templates[t.ID]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate template id %q", abs, t.ID)
		}
		s.templates[t.ID] = t
	}
	return s, nil
}

func (s *FileStore) resolve(t Template) Template {
	if !filepath.IsAbs(t.Path) {
		t.Path = filepath.Join(s.base, t.Path)
	}
	return t
}

// List implements Store
func (s *FileStore) List(_ context.Context, docType string) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		if docType == "" || t.DocType == docType {
			out = append(out, s.resolve(t))
		}
	}
	sortTemplates(out)
	return out, nil
}

// Get implements Store
func (s *FileStore) Get(_ context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return Template{}, notFound(id)
	}
	return s.resolve(t), nil
}

// Put implements Store
func (s *FileStore) Put(_ context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.templates[t.ID]
	s.templates[t.ID] = t
	if err := s.flush(); err != nil {
		if had {
			s.templates[t.ID] = prev
		} else {
			delete(s.templates, t.ID)
		}
		return err
	}
	return nil
}

// Delete implements Store
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.templates[id]
	if !ok {
		return notFound(id)
	}
	delete(s.templates, id)
	if err := s.flush(); err != nil {
		s.templates[id] = prev
		return err
	}
	return nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) flush() error {
	cf := catalogFile{Templates: make([]Template, 0, len(s.templates))}
	for _, t := range s.templates {
		cf.Templates = append(cf.Templates, t)
	}
	sortTemplates(cf.Templates)

	return workspace.WriteAtomic(s.path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cf); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return enc.Close()
	})
}
