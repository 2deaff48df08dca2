package document

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/content"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
)

// DefaultFontSize is used when a TextStyle has no size
const DefaultFontSize = 11.0

// TextStyle controls inserted text
type TextStyle struct {
	Font  string  `json:"font,omitempty"` // standard 14 font name
	Size  float64 `json:"size,omitempty"`
	Color Color   `json:"color"`
}

// Page is one page of an open Document
type Page struct {
	doc   *Document
	index int
	dict  types.Dict
	res   types.Dict

	llx, lly, urx, ury float64

	glyphs       []glyph
	glyphsLoaded bool

	stream []byte
	fonts  map[string]content.Font
	added  map[string]*insertedFont
	dirty  bool
}

func newPage(d *Document, index int) (*Page, error) {
	dict, _, inh, err := d.ctx.PageDict(index+1, false)
	if err != nil || dict == nil {
		if err == nil {
			err = fmt.Errorf("missing page dictionary")
		}
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "page", err).WithPath(d.path).WithPage(index + 1)
	}

	p := &Page{
		doc:   d,
		index: index,
		dict:  dict,
		fonts: make(map[string]content.Font),
		added: make(map[string]*insertedFont),
	}
	p.llx, p.lly, p.urx, p.ury = pageBox(d.ctx, dict, inh)

	if o, ok := dict.Find("Resources"); ok {
		if res, err := d.ctx.DereferenceDict(o); err == nil {
			p.res = res
		}
	} else if inh != nil {
		p.res = inh.Resources
	}
	return p, nil
}

// pageBox returns the media box corners, defaulting to US Letter
func pageBox(ctx *model.Context, dict types.Dict, inh *model.InheritedPageAttrs) (llx, lly, urx, ury float64) {
	if o, ok := dict.Find("MediaBox"); ok {
		if arr, err := ctx.DereferenceArray(o); err == nil && len(arr) == 4 {
			var v [4]float64
			valid := true
			for i, el := range arr {
				n, err := ctx.DereferenceNumber(el)
				if err != nil {
					valid = false
					break
				}
				v[i] = n
			}
			if valid {
				return math.Min(v[0], v[2]), math.Min(v[1], v[3]), math.Max(v[0], v[2]), math.Max(v[1], v[3])
			}
		}
	}
	if inh != nil && inh.MediaBox != nil {
		r := inh.MediaBox
		return r.LL.X, r.LL.Y, r.UR.X, r.UR.Y
	}
	return 0, 0, 612, 792
}

// Index returns the 0-based page index
func (p *Page) Index() int { return p.index }

// Width returns the page width in points
func (p *Page) Width() float64 { return p.urx - p.llx }

// Height returns the page height in points
func (p *Page) Height() float64 { return p.ury - p.lly }

func (p *Page) loadGlyphs() error {
	if p.glyphsLoaded {
		return nil
	}
	r, err := p.doc.textReader()
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "locate", err).WithPath(p.doc.path)
	}
	glyphs, err := extractGlyphs(r, p.index+1, p.llx, p.ury)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "locate", err).WithPath(p.doc.path).WithPage(p.index + 1)
	}
	p.glyphs = glyphs
	p.glyphsLoaded = true
	return nil
}

// Locate returns the bounds of every occurrence of literal on the page, in
// reading order. Matching is exact and never spans lines. No match is an
// empty result, not an error.
func (p *Page) Locate(literal string) ([]Rect, error) {
	if literal == "" {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "locate", "empty search literal")
	}
	if err := p.loadGlyphs(); err != nil {
		return nil, err
	}
	return search(p.glyphs, literal), nil
}

// Text returns the page text, one line per baseline
func (p *Page) Text() (string, error) {
	if err := p.loadGlyphs(); err != nil {
		return "", err
	}
	return pageText(p.glyphs), nil
}

// loadStream decodes the page content on first edit. The original content
// is wrapped in q/Q so appended operators start from the default state.
func (p *Page) loadStream() error {
	if p.stream != nil {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString("q\n")

	if o, ok := p.dict.Find("Contents"); ok {
		o, err := p.doc.ctx.Dereference(o)
		if err != nil {
			return err
		}
		var parts types.Array
		switch v := o.(type) {
		case types.StreamDict:
			parts = types.Array{v}
		case types.Array:
			parts = v
		}
		for _, part := range parts {
			obj, err := p.doc.ctx.Dereference(part)
			if err != nil {
				return err
			}
			sd, ok := obj.(types.StreamDict)
			if !ok {
				continue
			}
			if err := sd.Decode(); err != nil {
				return fmt.Errorf("failed to decode content stream: %w", err)
			}
			buf.Write(sd.Content)
			buf.WriteByte('\n')
		}
	}

	buf.WriteString("Q\n")
	p.stream = buf.Bytes()
	return nil
}

func (p *Page) fontFor(name string) content.Font {
	if f, ok := p.added[name]; ok {
		return f
	}
	if f, ok := p.fonts[name]; ok {
		return f
	}

	var f content.Font
	if p.res != nil {
		if o, ok := p.res.Find("Font"); ok {
			if fonts, err := p.doc.ctx.DereferenceDict(o); err == nil && fonts != nil {
				if fo, ok := fonts.Find(name); ok {
					f = fontMetrics(p.doc.ctx, fo)
				}
			}
		}
	}
	p.fonts[name] = f
	return f
}

// toUser converts a top-left space rectangle to PDF user space corners
func (p *Page) toUser(r Rect) (x0, y0, x1, y1 float64) {
	return r.X0 + p.llx, p.ury - r.Y1, r.X1 + p.llx, p.ury - r.Y0
}

// Redact removes the text under r grown by pad from the page content and
// paints the area white. Glyphs are removed when their centre lies inside
// the area. It returns the number of glyphs removed from the content
// stream. An area without extent is a no-op.
func (p *Page) Redact(r Rect, pad Padding) (int, error) {
	area := r.Pad(pad)
	if area.IsEmpty() {
		return 0, nil
	}
	if err := p.loadGlyphs(); err != nil {
		return 0, err
	}
	if err := p.loadStream(); err != nil {
		return 0, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "redact", err).WithPath(p.doc.path).WithPage(p.index + 1)
	}

	x0, y0, x1, y1 := p.toUser(area)
	out, removed, err := content.Filter(p.stream, p.fontFor, func(g content.Glyph) bool {
		return g.CenterX >= x0 && g.CenterX <= x1 && g.CenterY >= y0 && g.CenterY <= y1
	})
	if err != nil {
		return 0, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "redact", err).WithPath(p.doc.path).WithPage(p.index + 1)
	}

	var w content.Writer
	w.Op("q")
	w.Op("rg", "1", "1", "1")
	w.Op("re", content.Number(x0), content.Number(y0), content.Number(x1-x0), content.Number(y1-y0))
	w.Op("f")
	w.Op("Q")
	p.stream = append(out, w.Bytes()...)

	kept := make([]glyph, 0, len(p.glyphs))
	for _, g := range p.glyphs {
		if !area.Contains(g.centerX(), g.centerY()) {
			kept = append(kept, g)
		}
	}
	p.glyphs = kept
	p.dirty = true
	return removed, nil
}

// Insert draws text with its baseline starting at pt. Text is not wrapped.
// Characters outside WinAnsiEncoding are drawn as '?'.
func (p *Page) Insert(pt Point, text string, style TextStyle) error {
	if text == "" {
		return nil
	}

	style, err := normalizeStyle(style)
	if err != nil {
		return err
	}
	if err := p.loadGlyphs(); err != nil {
		return err
	}
	if err := p.loadStream(); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "insert", err).WithPath(p.doc.path).WithPage(p.index + 1)
	}

	f, err := p.doc.font(style.Font)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "insert", err).WithPath(p.doc.path)
	}
	name := p.resourceName(f)
	codes, runes := winAnsi(text)

	x, y := pt.X+p.llx, p.ury-pt.Y
	c := style.Color

	var w content.Writer
	w.Op("q")
	w.Op("rg", content.Number(c.R), content.Number(c.G), content.Number(c.B))
	w.Op("BT")
	w.Op("Tf", content.Name(name), content.Number(style.Size))
	w.Op("Td", content.Number(x), content.Number(y))
	w.Op("Tj", content.Hex(codes))
	w.Op("ET")
	w.Op("Q")
	p.stream = append(p.stream, w.Bytes()...)

	cx := pt.X
	for i, code := range codes {
		adv := f.Width(int(code)) * style.Size / 1000
		p.glyphs = append(p.glyphs, glyph{
			x:        cx,
			baseline: pt.Y,
			width:    adv,
			size:     style.Size,
			text:     string(runes[i]),
		})
		cx += adv
	}
	p.dirty = true
	return nil
}

// SupportedFont reports whether name is a standard 14 font Insert can draw
// with WinAnsi encoding.
func SupportedFont(name string) bool {
	return isCoreFont(name) && name != "Symbol" && name != "ZapfDingbats"
}

func normalizeStyle(style TextStyle) (TextStyle, error) {
	if style.Font == "" {
		style.Font = DefaultFont
	}
	if style.Size == 0 {
		style.Size = DefaultFontSize
	}
	if style.Size < 0 {
		return style, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "insert", fmt.Sprintf("invalid font size %g", style.Size))
	}
	if !SupportedFont(style.Font) {
		return style, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "insert", fmt.Sprintf("unsupported font %q", style.Font))
	}
	if !style.Color.valid() {
		return style, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "insert", "color components must be within [0, 1]")
	}
	return style, nil
}

// resourceName returns the page font resource name for f, picking a name
// that does not collide with fonts already on the page.
func (p *Page) resourceName(f *insertedFont) string {
	for name, added := range p.added {
		if added == f {
			return name
		}
	}

	base := "FL" + strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, f.base)

	name := base
	for i := 1; p.fontResourceExists(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	p.added[name] = f
	return name
}

func (p *Page) fontResourceExists(name string) bool {
	if _, ok := p.added[name]; ok {
		return true
	}
	if p.res == nil {
		return false
	}
	o, ok := p.res.Find("Font")
	if !ok {
		return false
	}
	fonts, err := p.doc.ctx.DereferenceDict(o)
	if err != nil || fonts == nil {
		return false
	}
	_, ok = fonts.Find(name)
	return ok
}

// commit stores the edited content stream and font resources in the page
// dictionary. Shared resource dictionaries are copied, never modified.
func (p *Page) commit() error {
	ctx := p.doc.ctx

	sd, err := ctx.NewStreamDictForBuf(p.stream)
	if err != nil {
		return fmt.Errorf("failed to create content stream: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("failed to encode content stream: %w", err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("failed to add content stream: %w", err)
	}
	p.dict["Contents"] = *ref

	if len(p.added) == 0 {
		return nil
	}

	res := types.Dict{}
	for k, v := range p.res {
		res[k] = v
	}
	fonts := types.Dict{}
	if o, ok := res.Find("Font"); ok {
		existing, err := ctx.DereferenceDict(o)
		if err != nil {
			return fmt.Errorf("failed to read font resources: %w", err)
		}
		for k, v := range existing {
			fonts[k] = v
		}
	}
	for name, f := range p.added {
		fonts[name] = *f.ref
	}
	res["Font"] = fonts
	p.dict["Resources"] = res
	p.res = res
	return nil
}

// MeasureText returns the width in points of text set in the standard 14
// font base at size.
func MeasureText(text, base string, size float64) float64 {
	if base == "" {
		base = DefaultFont
	}
	codes, _ := winAnsi(text)
	return newInsertedFont(base).measure(codes, size)
}
