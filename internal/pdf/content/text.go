package content

import (
	"strings"
)

// Font supplies glyph metrics to the text interpreter
type Font interface {
	// CodeLength is the number of bytes per character code (1 or 2)
	CodeLength() int
	// Width returns the advance of code in thousandths of a text space unit
	Width(code int) float64
}

// FontLookup resolves a font resource name. A nil result falls back to a
// fixed 500 unit single byte font.
type FontLookup func(name string) Font

// Glyph is a shown character in user space
type Glyph struct {
	Code    []byte
	CenterX float64
	CenterY float64
}

type fallbackFont struct{}

func (fallbackFont) CodeLength() int        { return 1 }
func (fallbackFont) Width(code int) float64 { return 500 }

type graphicsState struct {
	ctm      Matrix
	font     Font
	fontSize float64
	charSp   float64
	wordSp   float64
	hScale   float64
	leading  float64
	rise     float64
}

type textInterpreter struct {
	fonts FontLookup
	gs    graphicsState
	stack []graphicsState
	tm    Matrix
	tlm   Matrix
}

func newTextInterpreter(fonts FontLookup) *textInterpreter {
	return &textInterpreter{
		fonts: fonts,
		gs:    graphicsState{ctm: Identity, font: fallbackFont{}, hScale: 1},
		tm:    Identity,
		tlm:   Identity,
	}
}

// shown is one character code of a show operation with its advance in
// unscaled text space.
type shown struct {
	code    []byte
	advance float64
	removed bool
}

// apply updates state for every operator except the show operators, which
// the caller handles through show.
func (ti *textInterpreter) apply(op Operation) {
	switch op.Operator {
	case "q":
		ti.stack = append(ti.stack, ti.gs)
	case "Q":
		if n := len(ti.stack); n > 0 {
			ti.gs = ti.stack[n-1]
			ti.stack = ti.stack[:n-1]
		}
	case "cm":
		if v, ok := op.Numbers(6); ok {
			ti.gs.ctm = Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.Mul(ti.gs.ctm)
		}
	case "BT":
		ti.tm, ti.tlm = Identity, Identity
	case "Tf":
		if len(op.Operands) == 2 && op.Operands[0].Type == TokenName {
			if size, ok := op.Operands[1].Number(); ok {
				ti.gs.fontSize = size
				ti.gs.font = fallbackFont{}
				if ti.fonts != nil {
					if f := ti.fonts(op.Operands[0].Value); f != nil {
						ti.gs.font = f
					}
				}
			}
		}
	case "Tc":
		if v, ok := op.Numbers(1); ok {
			ti.gs.charSp = v[0]
		}
	case "Tw":
		if v, ok := op.Numbers(1); ok {
			ti.gs.wordSp = v[0]
		}
	case "Tz":
		if v, ok := op.Numbers(1); ok {
			ti.gs.hScale = v[0] / 100
		}
	case "TL":
		if v, ok := op.Numbers(1); ok {
			ti.gs.leading = v[0]
		}
	case "Ts":
		if v, ok := op.Numbers(1); ok {
			ti.gs.rise = v[0]
		}
	case "Td":
		if v, ok := op.Numbers(2); ok {
			ti.moveLine(v[0], v[1])
		}
	case "TD":
		if v, ok := op.Numbers(2); ok {
			ti.gs.leading = -v[1]
			ti.moveLine(v[0], v[1])
		}
	case "Tm":
		if v, ok := op.Numbers(6); ok {
			ti.tm = Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			ti.tlm = ti.tm
		}
	case "T*":
		ti.nextLine()
	case "'":
		ti.nextLine()
	case "\"":
		if len(op.Operands) == 3 {
			if aw, ok := op.Operands[0].Number(); ok {
				ti.gs.wordSp = aw
			}
			if ac, ok := op.Operands[1].Number(); ok {
				ti.gs.charSp = ac
			}
		}
		ti.nextLine()
	}
}

func (ti *textInterpreter) moveLine(tx, ty float64) {
	ti.tlm = Translate(tx, ty).Mul(ti.tlm)
	ti.tm = ti.tlm
}

func (ti *textInterpreter) nextLine() {
	ti.moveLine(0, -ti.gs.leading)
}

// show advances the text matrix over s, asking remove for each glyph
func (ti *textInterpreter) show(s string, remove func(Glyph) bool) []shown {
	gs := &ti.gs
	n := gs.font.CodeLength()
	if n < 1 {
		n = 1
	}

	var out []shown
	for i := 0; i+n <= len(s); i += n {
		raw := []byte(s[i : i+n])
		code := 0
		for _, b := range raw {
			code = code<<8 | int(b)
		}
		w0 := gs.font.Width(code) / 1000

		trm := Matrix{gs.fontSize * gs.hScale, 0, 0, gs.fontSize, 0, gs.rise}.Mul(ti.tm).Mul(gs.ctm)
		cx, cy := trm.Apply(w0/2, 0.3)

		tx := w0*gs.fontSize + gs.charSp
		if n == 1 && code == ' ' {
			tx += gs.wordSp
		}

		out = append(out, shown{
			code:    raw,
			advance: tx,
			removed: remove != nil && remove(Glyph{Code: raw, CenterX: cx, CenterY: cy}),
		})
		ti.tm = Translate(tx*gs.hScale, 0).Mul(ti.tm)
	}
	return out
}

// adjust applies a TJ displacement in thousandths of text space
func (ti *textInterpreter) adjust(n float64) {
	tx := -n / 1000 * ti.gs.fontSize * ti.gs.hScale
	ti.tm = Translate(tx, 0).Mul(ti.tm)
}

// tjBuilder assembles a TJ array from kept codes and displacements
type tjBuilder struct {
	parts   []string
	pending []byte
	shift   float64
}

func (b *tjBuilder) keep(code []byte) {
	if b.shift != 0 {
		b.flushShift()
	}
	b.pending = append(b.pending, code...)
}

func (b *tjBuilder) move(n float64) {
	if len(b.pending) > 0 {
		b.parts = append(b.parts, Hex(b.pending))
		b.pending = nil
	}
	b.shift += n
}

func (b *tjBuilder) flushShift() {
	if s := Number(b.shift); s != "0" {
		b.parts = append(b.parts, s)
	}
	b.shift = 0
}

func (b *tjBuilder) String() string {
	if len(b.pending) > 0 {
		b.parts = append(b.parts, Hex(b.pending))
		b.pending = nil
	}
	if b.shift != 0 {
		b.flushShift()
	}
	return "[" + strings.Join(b.parts, " ") + "]"
}

// removedShift converts a removed glyph advance into a TJ displacement
func (ti *textInterpreter) removedShift(advance float64) float64 {
	return -advance * 1000 / ti.gs.fontSize
}

// Filter rewrites data without the glyphs for which remove returns true.
// Show operators that lose glyphs are re-emitted as TJ arrays whose
// displacements keep the remaining glyphs in place. All other operations
// are copied unchanged. It returns the new stream and the removed count.
func Filter(data []byte, fonts FontLookup, remove func(Glyph) bool) ([]byte, int, error) {
	ops, err := Parse(data)
	if err != nil {
		return nil, 0, err
	}

	ti := newTextInterpreter(fonts)
	var w Writer
	removed := 0

	for _, op := range ops {
		switch op.Operator {
		case "Tj", "'", "\"":
			ti.apply(op)
			if len(op.Operands) == 0 || !op.Operands[len(op.Operands)-1].IsString() {
				w.Raw(data[op.Start:op.End])
				continue
			}
			glyphs := ti.show(op.Operands[len(op.Operands)-1].Value, remove)
			if countRemoved(glyphs) == 0 || ti.gs.fontSize == 0 {
				w.Raw(data[op.Start:op.End])
				continue
			}
			removed += countRemoved(glyphs)

			switch op.Operator {
			case "'":
				w.Op("T*")
			case "\"":
				w.Op("Tw", Number(ti.gs.wordSp))
				w.Op("Tc", Number(ti.gs.charSp))
				w.Op("T*")
			}
			var b tjBuilder
			ti.collect(&b, glyphs)
			w.Op("TJ", b.String())

		case "TJ":
			if len(op.Operands) != 1 || op.Operands[0].Type != TokenArrayStart {
				w.Raw(data[op.Start:op.End])
				continue
			}
			var b tjBuilder
			count := 0
			for _, el := range op.Operands[0].Elems {
				if el.IsString() {
					glyphs := ti.show(el.Value, remove)
					count += countRemoved(glyphs)
					ti.collect(&b, glyphs)
				} else if n, ok := el.Number(); ok {
					ti.adjust(n)
					b.move(n)
				}
			}
			if count == 0 || ti.gs.fontSize == 0 {
				w.Raw(data[op.Start:op.End])
				continue
			}
			removed += count
			w.Op("TJ", b.String())

		default:
			ti.apply(op)
			w.Raw(data[op.Start:op.End])
		}
	}

	return w.Bytes(), removed, nil
}

func (ti *textInterpreter) collect(b *tjBuilder, glyphs []shown) {
	for _, g := range glyphs {
		if g.removed {
			b.move(ti.removedShift(g.advance))
		} else {
			b.keep(g.code)
		}
	}
}

func countRemoved(glyphs []shown) int {
	n := 0
	for _, g := range glyphs {
		if g.removed {
			n++
		}
	}
	return n
}

// Glyphs reports every glyph shown by data in user space
func Glyphs(data []byte, fonts FontLookup) ([]Glyph, error) {
	var out []Glyph
	_, _, err := Filter(data, fonts, func(g Glyph) bool {
		out = append(out, g)
		return false
	})
	return out, err
}
