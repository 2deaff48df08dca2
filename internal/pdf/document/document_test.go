package document

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/pdftest"
)

func offerLetter(t *testing.T, dir string) string {
	t.Helper()
	return pdftest.WriteFile(t, dir, "offer.pdf",
		pdftest.Page(
			pdftest.Text(72, 720, 12, "Dear { client_name },"),
			pdftest.Text(72, 700, 12, "Date: { date }"),
			pdftest.Text(72, 680, 12, "Welcome aboard."),
		),
		pdftest.Page(
			pdftest.Text(72, 720, 12, "Signed by { client_name }"),
		),
	)
}

func openFixture(t *testing.T, path string) *Document {
	t.Helper()
	doc, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	doc := openFixture(t, offerLetter(t, dir))

	assert.Equal(t, 2, doc.PageCount())
	p, err := doc.Page(0)
	require.NoError(t, err)
	assert.Equal(t, 612.0, p.Width())
	assert.Equal(t, 792.0, p.Height())
	assert.Equal(t, 0, p.Index())

	_, err = doc.Page(2)
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidInput))
	_, err = doc.Page(-1)
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidInput))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.pdf"))
	assert.True(t, errors.Is(err, pdferrors.ErrNotFound))

	junk := filepath.Join(dir, "junk.pdf")
	require.NoError(t, os.WriteFile(junk, []byte("not a pdf"), 0o644))
	_, err = Open(junk)
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidDocument))
}

func TestPage_Locate(t *testing.T) {
	doc := openFixture(t, offerLetter(t, t.TempDir()))
	p, err := doc.Page(0)
	require.NoError(t, err)

	rects, err := p.Locate("{ client_name }")
	require.NoError(t, err)
	require.Len(t, rects, 1)

	r := rects[0]
	wantWidth := MeasureText("{ client_name }", "Helvetica", 12)
	dear := MeasureText("Dear ", "Helvetica", 12)
	assert.InDelta(t, 72+dear, r.X0, 0.5)
	assert.InDelta(t, wantWidth, r.Width(), 0.5)
	// baseline 720 in user space is 72 from the top
	assert.InDelta(t, 72-ascentRatio*12, r.Y0, 0.01)
	assert.InDelta(t, 72+descentRatio*12, r.Y1, 0.01)

	none, err := p.Locate("{ missing }")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = p.Locate("")
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidInput))

	// matching is case sensitive
	upper, err := p.Locate("{ CLIENT_NAME }")
	require.NoError(t, err)
	assert.Empty(t, upper)

	text, err := p.Text()
	require.NoError(t, err)
	assert.Equal(t, "Dear { client_name },\nDate: { date }\nWelcome aboard.", text)
}

func TestPage_LocateWithoutWidths(t *testing.T) {
	tests := []struct {
		name string
		item pdftest.TextItem
	}{
		{"single show", pdftest.Text(72, 720, 12, "Dear { client_name }, hi")},
		{"split shows", pdftest.Runs(72, 720, 12, "Dear ", "{ client_name }", ", hi")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := pdftest.Fixture{OmitWidths: true}
			doc := openFixture(t, fixture.WriteFile(t, t.TempDir(), "bare.pdf", pdftest.Page(tt.item)))
			p, err := doc.Page(0)
			require.NoError(t, err)

			text, err := p.Text()
			require.NoError(t, err)
			assert.Equal(t, "Dear { client_name }, hi", text)

			rects, err := p.Locate("{ client_name }")
			require.NoError(t, err)
			require.Len(t, rects, 1)
			assert.InDelta(t, 72+MeasureText("Dear ", "Helvetica", 12), rects[0].X0, 0.5)
			assert.InDelta(t, MeasureText("{ client_name }", "Helvetica", 12), rects[0].Width(), 0.5)

			removed, err := p.Redact(rects[0], Uniform(1))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, removed, len("{client_name}"))
			text, err = p.Text()
			require.NoError(t, err)
			assert.NotContains(t, text, "client_name")
			assert.Contains(t, text, "Dear")
		})
	}
}

func TestPage_RedactRemovesText(t *testing.T) {
	dir := t.TempDir()
	input := offerLetter(t, dir)
	original, err := os.ReadFile(input)
	require.NoError(t, err)

	doc := openFixture(t, input)
	p, err := doc.Page(0)
	require.NoError(t, err)

	rects, err := p.Locate("{ client_name }")
	require.NoError(t, err)
	require.Len(t, rects, 1)

	removed, err := p.Redact(rects[0], Uniform(1))
	require.NoError(t, err)
	assert.Equal(t, len("{ client_name }"), removed)
	assert.True(t, doc.Modified())

	after, err := p.Locate("client_name")
	require.NoError(t, err)
	assert.Empty(t, after, "redacted text must not be locatable on the open handle")

	dear, err := p.Locate("Dear")
	require.NoError(t, err)
	assert.Len(t, dear, 1)

	output := filepath.Join(dir, "redacted.pdf")
	require.NoError(t, doc.Save(output))

	current, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(original, current), "source file must not change")

	saved := openFixture(t, output)
	sp, err := saved.Page(0)
	require.NoError(t, err)
	gone, err := sp.Locate("client_name")
	require.NoError(t, err)
	assert.Empty(t, gone, "redacted text must not be extractable from the saved file")

	kept, err := sp.Locate("Welcome aboard.")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	// the second page was not edited
	sp2, err := saved.Page(1)
	require.NoError(t, err)
	signed, err := sp2.Locate("{ client_name }")
	require.NoError(t, err)
	assert.Len(t, signed, 1)
}

func TestPage_RedactDegenerate(t *testing.T) {
	doc := openFixture(t, offerLetter(t, t.TempDir()))
	p, err := doc.Page(0)
	require.NoError(t, err)

	removed, err := p.Redact(Rect{X0: 100, Y0: 100, X1: 100, Y1: 120}, Padding{})
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = p.Redact(Rect{X0: 100, Y0: 100, X1: 110, Y1: 120}, Uniform(-6))
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.False(t, doc.Modified())
}

func TestPage_Insert(t *testing.T) {
	dir := t.TempDir()
	doc := openFixture(t, offerLetter(t, dir))
	p, err := doc.Page(1)
	require.NoError(t, err)

	err = p.Insert(Point{X: 100, Y: 200}, "Jane Doe", TextStyle{Size: 14})
	require.NoError(t, err)

	rects, err := p.Locate("Jane Doe")
	require.NoError(t, err)
	require.Len(t, rects, 1)
	assert.InDelta(t, 100, rects[0].X0, 0.01)
	assert.InDelta(t, MeasureText("Jane Doe", "Helvetica", 14), rects[0].Width(), 0.01)
	assert.InDelta(t, 200+descentRatio*14, rects[0].Y1, 0.01)

	output := filepath.Join(dir, "inserted.pdf")
	require.NoError(t, doc.Save(output))

	saved := openFixture(t, output)
	sp, err := saved.Page(1)
	require.NoError(t, err)
	found, err := sp.Locate("Jane Doe")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.InDelta(t, 100, found[0].X0, 0.5)
	assert.InDelta(t, rects[0].Width(), found[0].Width(), 0.5)
}

func TestPage_InsertValidation(t *testing.T) {
	doc := openFixture(t, offerLetter(t, t.TempDir()))
	p, err := doc.Page(0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		style TextStyle
	}{
		{"unknown font", TextStyle{Font: "Comic Sans"}},
		{"symbolic font", TextStyle{Font: "ZapfDingbats"}},
		{"negative size", TextStyle{Size: -2}},
		{"color out of range", TextStyle{Color: Color{R: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Insert(Point{X: 10, Y: 10}, "x", tt.style)
			assert.True(t, errors.Is(err, pdferrors.ErrInvalidInput))
		})
	}

	require.NoError(t, p.Insert(Point{X: 10, Y: 10}, "", TextStyle{}))
	assert.False(t, doc.Modified())
}

func TestPage_InsertNonWinAnsi(t *testing.T) {
	doc := openFixture(t, offerLetter(t, t.TempDir()))
	p, err := doc.Page(0)
	require.NoError(t, err)

	require.NoError(t, p.Insert(Point{X: 300, Y: 400}, "Zoë 東", TextStyle{}))
	found, err := p.Locate("Zoë ?")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestPage_EditsAreDeterministic(t *testing.T) {
	input := offerLetter(t, t.TempDir())

	edit := func() []byte {
		doc := openFixture(t, input)
		p, err := doc.Page(0)
		require.NoError(t, err)
		rects, err := p.Locate("{ date }")
		require.NoError(t, err)
		require.Len(t, rects, 1)
		_, err = p.Redact(rects[0], WithTrailing(3, 10))
		require.NoError(t, err)
		require.NoError(t, p.Insert(Point{X: rects[0].X0, Y: rects[0].Y1}, "January 02, 2026", TextStyle{}))
		return p.stream
	}

	first := edit()
	second := edit()
	assert.Equal(t, string(first), string(second))
	assert.True(t, strings.HasPrefix(string(first), "q\n"))
}

func TestDocument_SaveAndClose(t *testing.T) {
	dir := t.TempDir()
	doc, err := Open(offerLetter(t, dir))
	require.NoError(t, err)

	out := filepath.Join(dir, "copy.pdf")
	require.NoError(t, doc.Save(out))
	assert.FileExists(t, out)
	assert.True(t, errors.Is(doc.Save(filepath.Join(dir, "again.pdf")), pdferrors.ErrInvalidInput))

	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())
	assert.Zero(t, doc.PageCount())
	_, err = doc.Page(0)
	assert.Error(t, err)

	reopened := openFixture(t, out)
	assert.Equal(t, 2, reopened.PageCount())
}

func TestGeometry(t *testing.T) {
	r := Rect{X0: 10, Y0: 20, X1: 50, Y1: 32}
	assert.Equal(t, 40.0, r.Width())
	assert.Equal(t, 12.0, r.Height())
	assert.True(t, r.Contains(10, 20))
	assert.False(t, r.Contains(51, 25))

	padded := r.Pad(WithTrailing(3, 10))
	assert.Equal(t, Rect{X0: 7, Y0: 17, X1: 63, Y1: 35}, padded)
	assert.True(t, Rect{X0: 5, Y0: 5, X1: 5, Y1: 9}.IsEmpty())

	assert.InDelta(t, 2*MeasureText("Hello", "", 10), MeasureText("Hello", "Helvetica", 20), 1e-9)
	assert.Greater(t, MeasureText("WWW", "Helvetica", 10), MeasureText("iii", "Helvetica", 10))
}
