package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_NextToken(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  TokenType
		wantValue string
	}{
		{"integer", "42", TokenNumber, "42"},
		{"negative real", "-3.5", TokenNumber, "-3.5"},
		{"name", "/F1", TokenName, "F1"},
		{"name with hex escape", "/A#20B", TokenName, "A B"},
		{"literal string", "(Hello)", TokenString, "Hello"},
		{"nested parens", "(a(b)c)", TokenString, "a(b)c"},
		{"escapes", `(a\)b\nc)`, TokenString, "a)b\nc"},
		{"octal escape", `(\101\102)`, TokenString, "AB"},
		{"hex string", "<48656C6C6F>", TokenHexString, "Hello"},
		{"odd hex string", "<414>", TokenHexString, "A@"},
		{"keyword", "Tj", TokenKeyword, "Tj"},
		{"array start", "[", TokenArrayStart, "["},
		{"dict start", "<<", TokenDictStart, "<<"},
		{"comment skipped", "% note\n12", TokenNumber, "12"},
		{"empty", "   ", TokenEOF, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := NewLexer([]byte(tt.input)).NextToken()
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, tok.Type)
			assert.Equal(t, tt.wantValue, tok.Value)
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	inputs := []string{"(unterminated", "<4G>", "<41", ")"}
	for _, input := range inputs {
		_, err := NewLexer([]byte(input)).NextToken()
		if err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestLexer_TokenSpans(t *testing.T) {
	src := []byte("BT /F1 12 Tf (Hi) Tj ET")
	l := NewLexer(src)

	var spans []string
	for {
		tok, err := l.NextToken()
		require.NoError(t, err)
		if tok.Type == TokenEOF {
			break
		}
		spans = append(spans, string(src[tok.Start:tok.End]))
	}

	assert.Equal(t, []string{"BT", "/F1", "12", "Tf", "(Hi)", "Tj", "ET"}, spans)
}

func TestParse_Operations(t *testing.T) {
	src := []byte("q 1 0 0 1 10 20 cm BT /F1 12 Tf [(A) -250 (B)] TJ ET Q")
	ops, err := Parse(src)
	require.NoError(t, err)

	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	assert.Equal(t, []string{"q", "cm", "BT", "Tf", "TJ", "ET", "Q"}, names)

	tj := ops[4]
	require.Len(t, tj.Operands, 1)
	require.Len(t, tj.Operands[0].Elems, 3)
	assert.Equal(t, "A", tj.Operands[0].Elems[0].Value)
	n, ok := tj.Operands[0].Elems[1].Number()
	assert.True(t, ok)
	assert.Equal(t, -250.0, n)
	assert.Equal(t, "[(A) -250 (B)] TJ", string(src[tj.Start:tj.End]))

	cm, ok := ops[1].Numbers(6)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0, 1, 10, 20}, cm)
}

func TestParse_InlineImageAndDicts(t *testing.T) {
	src := []byte("/OC <</MCID 0>> BDC EMC\nBI /W 2 /H 1 /BPC 8 /CS /G ID \x00EI\xff EI\nQ")
	ops, err := Parse(src)
	require.NoError(t, err)

	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	assert.Equal(t, []string{"BDC", "EMC", "BI", "Q"}, names)
	assert.Equal(t, TokenDictStart, ops[0].Operands[1].Type)
	assert.Equal(t, "<</MCID 0>>", string(src[ops[0].Operands[1].Start:ops[0].Operands[1].End]))
	assert.True(t, string(src[ops[2].Start:ops[2].End]) == "BI /W 2 /H 1 /BPC 8 /CS /G ID \x00EI\xff EI")
}

func TestWriterFormatting(t *testing.T) {
	assert.Equal(t, "12", Number(12))
	assert.Equal(t, "0.5", Number(0.5))
	assert.Equal(t, "-3.1416", Number(-3.14159))
	assert.Equal(t, "0", Number(-0.00001))
	assert.Equal(t, "<4142>", Hex([]byte("AB")))
	assert.Equal(t, "/F#20x", Name("F x"))
}
