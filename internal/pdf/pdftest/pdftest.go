// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/font"
)

// Letter page size in points
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// TextItem is a line of Helvetica text drawn with its baseline at (X, Y)
// in PDF user space (origin bottom-left).
type TextItem struct {
	X, Y float64
	Size float64
	Text string
	// Runs, when set, replaces Text with one Tj per entry in a single text object
	Runs []string
}

// PageSpec describes one page
type PageSpec struct {
	Width, Height float64
	Texts         []TextItem
}

// Text is shorthand for a TextItem
func Text(x, y, size float64, s string) TextItem {
	return TextItem{X: x, Y: y, Size: size, Text: s}
}

// Runs is shorthand for a TextItem shown by several consecutive Tj operators
func Runs(x, y, size float64, parts ...string) TextItem {
	return TextItem{X: x, Y: y, Size: size, Runs: parts}
}

// Page returns a Letter sized page showing texts
func Page(texts ...TextItem) PageSpec {
	return PageSpec{Width: LetterWidth, Height: LetterHeight, Texts: texts}
}

// HelveticaWidth returns the advance of byte c in thousandths of an em
func HelveticaWidth(c byte) int {
	if w := int(font.TextWidth(string(rune(c)), "Helvetica", 1000)); w > 0 {
		return w
	}
	return 556
}

// Fixture controls how Build writes a document
type Fixture struct {
	// OmitWidths writes the font without /FirstChar, /LastChar and /Widths,
	// which is allowed for the standard 14 fonts
	OmitWidths bool
}

// Build renders pages into a PDF file image
func Build(pages ...PageSpec) []byte {
	return Fixture{}.Build(pages...)
}

// Build renders pages into a PDF file image
func (f Fixture) Build(pages ...PageSpec) []byte {
	var objects []string

	// 1 catalog, 2 page tree, 3 font; pages and contents follow in pairs
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		helveticaDict(!f.OmitWidths),
	)

	for i, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 || h == 0 {
			w, h = LetterWidth, LetterHeight
		}
		stream := contentStream(p.Texts)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", w, h, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func helveticaDict(withWidths bool) string {
	if !withWidths {
		return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	}
	widths := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		widths = append(widths, fmt.Sprint(HelveticaWidth(byte(c))))
	}
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + strings.Join(widths, " ") + "] >>"
}

func contentStream(texts []TextItem) string {
	var b strings.Builder
	for _, t := range texts {
		size := t.Size
		if size == 0 {
			size = 12
		}
		runs := t.Runs
		if len(runs) == 0 {
			runs = []string{t.Text}
		}
		fmt.Fprintf(&b, "BT /F1 %g Tf %g %g Td", size, t.X, t.Y)
		for _, r := range runs {
			fmt.Fprintf(&b, " (%s) Tj", escape(r))
		}
		b.WriteString(" ET\n")
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// WriteFile builds pages into dir/name and returns the path
func WriteFile(t testing.TB, dir, name string, pages ...PageSpec) string {
	t.Helper()
	return Fixture{}.WriteFile(t, dir, name, pages...)
}

// WriteFile builds pages into dir/name and returns the path
func (f Fixture) WriteFile(t testing.TB, dir, name string, pages ...PageSpec) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Build(pages...), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

// Pages returns n Letter pages each labelled "<label> page <i>" at the top
func Pages(label string, n int) []PageSpec {
	out := make([]PageSpec, n)
	for i := range out {
		out[i] = Page(Text(72, 720, 14, fmt.Sprintf("%s page %d", label, i+1)))
	}
	return out
}
