package sections

import (
	"context"
	"fmt"
	"log"

	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
)

// Backend names accepted by Open
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a catalog backend
type Options struct {
	Backend     string
	File        string
	Redis       RedisOptions
	PostgresDSN string
}

// Open returns the Store for opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		if opts.File == "" {
			return nil, fmt.Errorf("catalog file is required for the file backend")
		}
		return OpenFileStore(opts.File)
	case BackendRedis:
		return OpenRedisStore(ctx, opts.Redis)
	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres dsn is required for the postgres backend")
		}
		return OpenPostgresStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", opts.Backend)
	}
}

// Selector picks templates out of a catalog
type Selector struct {
	store  Store
	logger *log.Logger
}

// NewSelector creates a selector over store
func NewSelector(store Store, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{store: store, logger: logger}
}

// Candidates returns the visible PDF templates for docType in catalog
// order. Entries of any other MIME type are skipped.
func (s *Selector) Candidates(ctx context.Context, docType string) ([]Template, error) {
	all, err := s.store.List(ctx, docType)
	if err != nil {
		return nil, err
	}
	out := make([]Template, 0, len(all))
	for _, t := range all {
		if !t.Visible {
			continue
		}
		if !t.IsPDF() {
			s.logger.Printf("Warning: skipping template %s with type %s", t.ID, t.MimeType)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Select returns the template to fill for docType. pages restricts the
// choice to templates declaring that page count (0 accepts any). The
// default entry wins, otherwise the first in catalog order.
func (s *Selector) Select(ctx context.Context, docType string, pages int) (Template, error) {
	if docType == "" {
		return Template{}, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "select", "doc_type is required")
	}
	candidates, err := s.Candidates(ctx, docType)
	if err != nil {
		return Template{}, err
	}

	var chosen *Template
	for i := range candidates {
		t := &candidates[i]
		if pages > 0 && t.Pages != pages {
			continue
		}
		if t.Default {
			return *t, nil
		}
		if chosen == nil {
			chosen = t
		}
	}
	if chosen == nil {
		msg := fmt.Sprintf("no visible PDF template for %q", docType)
		if pages > 0 {
			msg = fmt.Sprintf("no visible %d page PDF template for %q", pages, docType)
		}
		return Template{}, pdferrors.New(pdferrors.ErrorTypeNotFound, "select", msg).WithField(docType)
	}
	return *chosen, nil
}

// Lookup returns the template with id. Hidden and non-PDF entries are
// refused, as Select would skip them.
func (s *Selector) Lookup(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return Template{}, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "lookup", "template_id is required")
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Template{}, err
	}
	if !t.Visible {
		return Template{}, pdferrors.New(pdferrors.ErrorTypeNotFound, "lookup", "template is hidden").WithField(id)
	}
	if !t.IsPDF() {
		return Template{}, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "lookup",
			fmt.Sprintf("template has type %s, want %s", t.MimeType, MimePDF)).WithField(id)
	}
	return t, nil
}

// Copy writes every template of src into dst, replacing entries with the
// same id, and returns how many were written. Paths are copied as src
// resolves them.
func Copy(ctx context.Context, dst, src Store) (int, error) {
	templates, err := src.List(ctx, "")
	if err != nil {
		return 0, err
	}
	for i, t := range templates {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := dst.Put(ctx, t); err != nil {
			return i, fmt.Errorf("failed to store template %s: %w", t.ID, err)
		}
	}
	return len(templates), nil
}
