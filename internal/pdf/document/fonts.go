package document

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/content"
)

// DefaultFont is used when a TextStyle names no font
const DefaultFont = "Helvetica"

const defaultGlyphWidth = 500.0

// coreWidth returns the advance of r in the standard 14 font base, in
// thousandths of an em.
func coreWidth(base string, r rune) float64 {
	if w := font.TextWidth(string(r), base, 1000); w > 0 {
		return w
	}
	if r == ' ' {
		return 278
	}
	return defaultGlyphWidth
}

// isCoreFont reports whether name is one of the standard 14 fonts
func isCoreFont(name string) bool {
	return font.IsCoreFont(name)
}

// winAnsi encodes s for a WinAnsiEncoding font. Runes outside the code page
// become '?'. The returned runes are what a text extractor will read back.
func winAnsi(s string) ([]byte, []rune) {
	codes := make([]byte, 0, len(s))
	runes := make([]rune, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b, r = '?', '?'
		}
		codes = append(codes, b)
		runes = append(runes, r)
	}
	return codes, runes
}

func charmapDecode(c byte) rune {
	return charmap.Windows1252.DecodeByte(c)
}

// insertedFont is a standard 14 font with WinAnsiEncoding added for Insert
type insertedFont struct {
	base   string
	widths [256]float64
	ref    *types.IndirectRef
}

func newInsertedFont(base string) *insertedFont {
	f := &insertedFont{base: base}
	for c := 32; c < 256; c++ {
		f.widths[c] = coreWidth(base, charmapDecode(byte(c)))
	}
	return f
}

func (f *insertedFont) CodeLength() int { return 1 }

func (f *insertedFont) Width(code int) float64 {
	if code < 0 || code > 255 {
		return defaultGlyphWidth
	}
	return f.widths[code]
}

// measure returns the width of codes at size in points
func (f *insertedFont) measure(codes []byte, size float64) float64 {
	var w float64
	for _, c := range codes {
		w += f.widths[c]
	}
	return w * size / 1000
}

func (f *insertedFont) dict() types.Dict {
	widths := make(types.Array, 0, 224)
	for c := 32; c < 256; c++ {
		widths = append(widths, types.Integer(int(f.widths[c]+0.5)))
	}
	return types.Dict{
		"Type":      types.Name("Font"),
		"Subtype":   types.Name("Type1"),
		"BaseFont":  types.Name(f.base),
		"Encoding":  types.Name("WinAnsiEncoding"),
		"FirstChar": types.Integer(32),
		"LastChar":  types.Integer(255),
		"Widths":    widths,
	}
}

// simpleFont holds /Widths metrics of a single byte font
type simpleFont struct {
	first  int
	widths []float64
	base   string
}

func (f *simpleFont) CodeLength() int { return 1 }

func (f *simpleFont) Width(code int) float64 {
	if i := code - f.first; f.widths != nil && i >= 0 && i < len(f.widths) {
		return f.widths[i]
	}
	if f.base != "" {
		return coreWidth(f.base, rune(code))
	}
	return defaultGlyphWidth
}

// cidFont holds /W metrics of a Type0 font with two byte codes
type cidFont struct {
	dw     float64
	widths map[int]float64
}

func (f *cidFont) CodeLength() int { return 2 }

func (f *cidFont) Width(code int) float64 {
	if w, ok := f.widths[code]; ok {
		return w
	}
	return f.dw
}

// fontMetrics builds interpreter metrics for a font resource. Unknown or
// broken fonts return nil, which the interpreter treats as a fixed width font.
func fontMetrics(ctx *model.Context, obj types.Object) content.Font {
	d, err := ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return nil
	}

	if nameEntry(ctx, d, "Subtype") == "Type0" {
		return cidMetrics(ctx, d)
	}

	f := &simpleFont{}
	if base := stripSubset(nameEntry(ctx, d, "BaseFont")); isCoreFont(base) {
		f.base = base
	}
	if o, ok := d.Find("FirstChar"); ok {
		if n, err := ctx.DereferenceNumber(o); err == nil {
			f.first = int(n)
		}
	}
	if o, ok := d.Find("Widths"); ok {
		if arr, err := ctx.DereferenceArray(o); err == nil {
			f.widths = make([]float64, len(arr))
			for i, w := range arr {
				if n, err := ctx.DereferenceNumber(w); err == nil {
					f.widths[i] = n
				}
			}
		}
	}
	return f
}

func cidMetrics(ctx *model.Context, d types.Dict) content.Font {
	f := &cidFont{dw: 1000, widths: map[int]float64{}}

	o, ok := d.Find("DescendantFonts")
	if !ok {
		return f
	}
	arr, err := ctx.DereferenceArray(o)
	if err != nil || len(arr) == 0 {
		return f
	}
	desc, err := ctx.DereferenceDict(arr[0])
	if err != nil || desc == nil {
		return f
	}

	if o, ok := desc.Find("DW"); ok {
		if n, err := ctx.DereferenceNumber(o); err == nil {
			f.dw = n
		}
	}
	o, ok = desc.Find("W")
	if !ok {
		return f
	}
	w, err := ctx.DereferenceArray(o)
	if err != nil {
		return f
	}

	// W is a sequence of "c [w1 w2 ...]" and "cfirst clast w" groups
	for i := 0; i < len(w); {
		first, err := ctx.DereferenceNumber(w[i])
		if err != nil || i+1 >= len(w) {
			break
		}
		if list, err := ctx.DereferenceArray(w[i+1]); err == nil && list != nil {
			for j, v := range list {
				if n, err := ctx.DereferenceNumber(v); err == nil {
					f.widths[int(first)+j] = n
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, err1 := ctx.DereferenceNumber(w[i+1])
		width, err2 := ctx.DereferenceNumber(w[i+2])
		if err1 != nil || err2 != nil {
			break
		}
		for c := int(first); c <= int(last); c++ {
			f.widths[c] = width
		}
		i += 3
	}
	return f
}

func nameEntry(ctx *model.Context, d types.Dict, key string) string {
	o, ok := d.Find(key)
	if !ok {
		return ""
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return ""
	}
	if n, ok := o.(types.Name); ok {
		return string(n)
	}
	return ""
}

// stripSubset removes a subset tag such as "ABCDEF+" from a base font name
func stripSubset(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}
