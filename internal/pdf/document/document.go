// Package document opens a PDF for in-place editing: locating text,
// redacting regions from page content and drawing replacement text.
// Edits stay on the open handle until Save writes a new file.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

// Document is an open PDF. It is not safe for concurrent use.
type Document struct {
	path     string
	data     []byte
	ctx      *model.Context
	text     *pdf.Reader
	pages    map[int]*Page
	inserted map[string]*insertedFont
	saved    bool
	closed   bool
}

// Open reads path into memory and parses it. The file itself is never
// written by this package.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pdferrors.NotFound("open", path, err)
		}
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "open", err).WithPath(path)
	}
	return OpenBytes(path, data)
}

// OpenBytes parses an in-memory PDF. name is used in error messages.
func OpenBytes(name string, data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "open", fmt.Errorf("failed to read PDF context: %w", err)).WithPath(name)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "open", fmt.Errorf("failed to ensure page count: %w", err)).WithPath(name)
	}

	return &Document{
		path:     name,
		data:     data,
		ctx:      ctx,
		pages:    make(map[int]*Page),
		inserted: make(map[string]*insertedFont),
	}, nil
}

// Path returns the path the document was opened from
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

// Page returns the page at the 0-based index
func (d *Document) Page(index int) (*Page, error) {
	if d.closed {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "page", "document is closed").WithPath(d.path)
	}
	if index < 0 || index >= d.ctx.PageCount {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "page",
			fmt.Sprintf("page index %d out of range (document has %d pages)", index, d.ctx.PageCount)).WithPath(d.path)
	}
	if p, ok := d.pages[index]; ok {
		return p, nil
	}

	p, err := newPage(d, index)
	if err != nil {
		return nil, err
	}
	d.pages[index] = p
	return p, nil
}

// Pages returns every page in order
func (d *Document) Pages() ([]*Page, error) {
	out := make([]*Page, 0, d.PageCount())
	for i := 0; i < d.PageCount(); i++ {
		p, err := d.Page(i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *Document) textReader() (*pdf.Reader, error) {
	if d.text == nil {
		r, err := openTextReader(d.data)
		if err != nil {
			return nil, err
		}
		d.text = r
	}
	return d.text, nil
}

// font returns the shared font object used by Insert for base
func (d *Document) font(base string) (*insertedFont, error) {
	if f, ok := d.inserted[base]; ok {
		return f, nil
	}
	f := newInsertedFont(base)
	ref, err := d.ctx.IndRefForNewObject(f.dict())
	if err != nil {
		return nil, fmt.Errorf("failed to add font %s: %w", base, err)
	}
	f.ref = ref
	d.inserted[base] = f
	return f, nil
}

// Modified reports whether any page has pending edits
func (d *Document) Modified() bool {
	for _, p := range d.pages {
		if p.dirty {
			return true
		}
	}
	return false
}

// Save writes the edited document to path atomically. A document can be
// saved once; the source file is left untouched.
func (d *Document) Save(path string) error {
	if d.closed {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "save", "document is closed").WithPath(d.path)
	}
	if d.saved {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "save", "document was already saved").WithPath(d.path)
	}

	for i := 0; i < d.PageCount(); i++ {
		p, ok := d.pages[i]
		if !ok || !p.dirty {
			continue
		}
		if err := p.commit(); err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "save", err).WithPath(d.path).WithPage(i + 1)
		}
	}

	err := workspace.WriteAtomic(path, func(w io.Writer) error {
		return api.WriteContext(d.ctx, w)
	})
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "save", err).WithPath(path)
	}
	d.saved = true
	return nil
}

// Close releases the document. It is safe to call more than once.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.pages = nil
	d.text = nil
	d.ctx = nil
	d.data = nil
	return nil
}
