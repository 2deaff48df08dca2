package document

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// glyph is one extracted character in top-left page space
type glyph struct {
	x        float64
	baseline float64
	width    float64
	size     float64
	text     string
}

// Glyph boxes extend above and below the baseline by these shares of the font size
const (
	ascentRatio  = 0.8
	descentRatio = 0.2
	// centre of a glyph used for redaction hit tests, above the baseline
	centerRatio = 0.3
)

func (g glyph) centerX() float64 { return g.x + g.width/2 }
func (g glyph) centerY() float64 { return g.baseline - centerRatio*g.size }

func (g glyph) bounds() Rect {
	return Rect{
		X0: g.x,
		Y0: g.baseline - ascentRatio*g.size,
		X1: g.x + g.width,
		Y1: g.baseline + descentRatio*g.size,
	}
}

// openTextReader parses the document bytes for positioned text extraction
func openTextReader(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open text layer: %w", err)
	}
	return r, nil
}

// extractGlyphs reads the positioned characters of page pageNum (1-based)
// and converts them into top-left space using the page box.
func extractGlyphs(r *pdf.Reader, pageNum int, llx, ury float64) (glyphs []glyph, err error) {
	// the text extractor panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			glyphs = nil
			err = fmt.Errorf("text extraction failed on page %d: %v", pageNum, rec)
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return nil, nil
	}

	var run widthlessRun
	for _, t := range page.Content().Text {
		if t.S == "" {
			continue
		}
		x, w := t.X-llx, t.W
		if w <= 0 {
			w = estimateWidth(t.Font, t.S, t.FontSize)
			x = run.place(t, x, w)
		} else {
			run.reset()
		}
		glyphs = append(glyphs, glyph{
			x:        x,
			baseline: ury - t.Y,
			width:    w,
			size:     math.Abs(t.FontSize),
			text:     t.S,
		})
	}
	return glyphs, nil
}

// widthlessRun positions glyphs of fonts without a width table. The
// extractor advances its text position by the table widths, so such glyphs
// all report the origin of their text object, moved only by character
// spacing and kerning. Each glyph is placed after the estimated advance of
// the one before it, keeping those small moves.
type widthlessRun struct {
	active bool
	rawX   float64
	rawY   float64
	width  float64
	end    float64
}

func (r *widthlessRun) reset() { r.active = false }

// place returns the x of glyph t with estimated width w; x is its reported
// position in page space
func (r *widthlessRun) place(t pdf.Text, x, w float64) float64 {
	if r.active && math.Abs(t.Y-r.rawY) < 0.01 {
		if dx := t.X - r.rawX; math.Abs(dx) < r.width {
			x = r.end + dx
		}
	}
	*r = widthlessRun{active: true, rawX: t.X, rawY: t.Y, width: w, end: x + w}
	return x
}

// estimateWidth is used for fonts that carry no width table
func estimateWidth(fontName, s string, size float64) float64 {
	base := stripSubset(fontName)
	var w float64
	for _, r := range s {
		if isCoreFont(base) {
			w += coreWidth(base, r)
		} else {
			w += defaultGlyphWidth
		}
	}
	return w * math.Abs(size) / 1000
}

// textLine is a run of glyphs sharing a baseline. idx maps every byte of
// text to its glyph, or -1 for a reconstructed word space.
type textLine struct {
	text strings.Builder
	idx  []int
}

func (l *textLine) add(s string, glyphIndex int) {
	l.text.WriteString(s)
	for i := 0; i < len(s); i++ {
		l.idx = append(l.idx, glyphIndex)
	}
}

func (l *textLine) endsWithSpace() bool {
	s := l.text.String()
	return s == "" || strings.HasSuffix(s, " ")
}

// buildLines groups glyphs in content order into lines. A baseline jump or
// a move backwards starts a new line; a horizontal gap wider than
// spaceGapRatio of the font size inserts a space.
func buildLines(glyphs []glyph) []*textLine {
	const (
		baselineTolerance = 0.3
		spaceGapRatio     = 0.15
	)

	var lines []*textLine
	var cur *textLine
	prev := -1

	for i, g := range glyphs {
		if cur != nil && prev >= 0 {
			p := glyphs[prev]
			size := math.Max(math.Max(g.size, p.size), 1)
			end := p.x + p.width
			sameLine := math.Abs(g.baseline-p.baseline) <= baselineTolerance*size && g.x >= end-0.5*size
			if !sameLine {
				cur = nil
			} else if g.x-end > spaceGapRatio*size && g.text != " " && !cur.endsWithSpace() {
				cur.add(" ", -1)
			}
		}
		if cur == nil {
			cur = &textLine{}
			lines = append(lines, cur)
		}
		cur.add(g.text, i)
		prev = i
	}
	return lines
}

// search returns the bounds of every non-overlapping occurrence of literal
func search(glyphs []glyph, literal string) []Rect {
	var out []Rect
	for _, line := range buildLines(glyphs) {
		s := line.text.String()
		for start := 0; start <= len(s)-len(literal); {
			j := strings.Index(s[start:], literal)
			if j < 0 {
				break
			}
			j += start

			var r Rect
			found := false
			for _, gi := range line.idx[j : j+len(literal)] {
				if gi < 0 {
					continue
				}
				b := glyphs[gi].bounds()
				if !found {
					r, found = b, true
					continue
				}
				r.X0 = math.Min(r.X0, b.X0)
				r.Y0 = math.Min(r.Y0, b.Y0)
				r.X1 = math.Max(r.X1, b.X1)
				r.Y1 = math.Max(r.Y1, b.Y1)
			}
			if found {
				out = append(out, r)
			}
			start = j + len(literal)
		}
	}
	return out
}

// pageText renders glyph lines separated by newlines
func pageText(glyphs []glyph) string {
	lines := buildLines(glyphs)
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text.String()
	}
	return strings.Join(parts, "\n")
}
