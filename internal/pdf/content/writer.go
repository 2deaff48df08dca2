package content

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
)

// Writer accumulates content stream operations
type Writer struct {
	buf bytes.Buffer
}

// Raw appends source bytes followed by a newline
func (w *Writer) Raw(b []byte) {
	w.buf.Write(b)
	w.buf.WriteByte('\n')
}

// Op writes operands followed by the operator
func (w *Writer) Op(operator string, operands ...string) {
	for _, o := range operands {
		w.buf.WriteString(o)
		w.buf.WriteByte(' ')
	}
	w.buf.WriteString(operator)
	w.buf.WriteByte('\n')
}

// Bytes returns the accumulated stream
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Number formats f with at most four decimals and no trailing zeros
func Number(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

// Hex encodes raw string bytes as a PDF hex string
func Hex(b []byte) string {
	return "<" + hex.EncodeToString(b) + ">"
}

// Name encodes a PDF name, escaping bytes outside the regular range
func Name(n string) string {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || IsDelimiter(c) {
			b.WriteByte('#')
			b.WriteString(hex.EncodeToString([]byte{c}))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
