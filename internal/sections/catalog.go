// Package sections keeps the catalog of section templates and selects the
// template to fill for a document type.
package sections

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-filler/internal/fields"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
)

// MimePDF is the only template type the substitution engine accepts
const MimePDF = "application/pdf"

// Template is one catalog entry
type Template struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	DocType  string         `json:"doc_type" yaml:"doc_type"`
	Path     string         `json:"path" yaml:"path"`
	MimeType string         `json:"mime_type" yaml:"mime_type"`
	Pages    int            `json:"pages,omitempty" yaml:"pages,omitempty"`
	Visible  bool           `json:"visible" yaml:"visible"`
	Default  bool           `json:"default,omitempty" yaml:"default,omitempty"`
	Order    int            `json:"order,omitempty" yaml:"order,omitempty"`
	Fields   []fields.Field `json:"fields,omitempty" yaml:"fields,omitempty"`
	Uploaded time.Time      `json:"uploaded,omitempty" yaml:"uploaded,omitempty"`
}

// IsPDF reports whether the template can be fed to the substitution engine
func (t Template) IsPDF() bool {
	return strings.EqualFold(t.MimeType, MimePDF)
}

// Validate checks required fields and fills the MIME type default
func (t *Template) Validate() error {
	switch {
	case t.ID == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "catalog", "template id is required")
	case t.DocType == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "catalog", "template doc_type is required").WithField(t.ID)
	case t.Path == "":
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "catalog", "template path is required").WithField(t.ID)
	case t.Pages < 0:
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "catalog", fmt.Sprintf("invalid page count %d", t.Pages)).WithField(t.ID)
	}
	if t.MimeType == "" {
		t.MimeType = MimePDF
	}
	return nil
}

// Store persists catalog entries
type Store interface {
	// List returns the templates of docType ("" for all) in catalog order
	List(ctx context.Context, docType string) ([]Template, error)
	// Get returns a template by id or a NotFound error
	Get(ctx context.Context, id string) (Template, error)
	Put(ctx context.Context, t Template) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// sortTemplates orders by doc type, then Order, then ID
func sortTemplates(ts []Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.DocType != b.DocType {
			return a.DocType < b.DocType
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
}

func notFound(id string) error {
	return pdferrors.New(pdferrors.ErrorTypeNotFound, "catalog", "template not found").WithField(id)
}
