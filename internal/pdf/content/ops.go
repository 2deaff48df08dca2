package content

import (
	"strconv"
)

// Operand is a single operand of a content stream operator. Arrays carry
// their elements; dictionaries are kept as an opaque source span.
type Operand struct {
	Token
	Elems []Operand
}

// Number returns the numeric value of the operand, false if it is not a number
func (o Operand) Number() (float64, bool) {
	if o.Type != TokenNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(o.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsString reports whether the operand is a literal or hex string
func (o Operand) IsString() bool {
	return o.Type == TokenString || o.Type == TokenHexString
}

// Operation is an operator with its operands. Start and End delimit the
// whole operation in the source so it can be copied through unchanged.
type Operation struct {
	Operator string
	Operands []Operand
	Start    int
	End      int
}

// Numbers returns the operands as floats. ok is false if the operand count
// differs from n or any operand is not numeric.
func (op Operation) Numbers(n int) ([]float64, bool) {
	if len(op.Operands) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, o := range op.Operands {
		f, ok := o.Number()
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Parse splits a decoded content stream into operations. Inline images
// (BI ... ID ... EI) are returned as a single BI operation.
func Parse(data []byte) ([]Operation, error) {
	l := NewLexer(data)
	var ops []Operation
	var operands []Operand
	opStart := -1

	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			break
		}
		if opStart < 0 {
			opStart = tok.Start
		}

		switch tok.Type {
		case TokenKeyword:
			switch tok.Value {
			case "true", "false", "null":
				operands = append(operands, Operand{Token: tok})
				continue
			case "BI":
				end, err := skipInlineImage(l)
				if err != nil {
					return nil, err
				}
				ops = append(ops, Operation{Operator: "BI", Start: opStart, End: end})
			default:
				ops = append(ops, Operation{Operator: tok.Value, Operands: operands, Start: opStart, End: tok.End})
			}
			operands = nil
			opStart = -1
		case TokenArrayStart:
			arr, err := parseArray(l, tok)
			if err != nil {
				return nil, err
			}
			operands = append(operands, arr)
		case TokenDictStart:
			dict, err := skipDict(l, tok)
			if err != nil {
				return nil, err
			}
			operands = append(operands, dict)
		case TokenArrayEnd, TokenDictEnd, TokenInlineImage:
			return nil, newParseError("unexpected "+tok.Type.String(), tok.Start)
		default:
			operands = append(operands, Operand{Token: tok})
		}
	}

	// trailing operands without an operator are dropped
	return ops, nil
}

func parseArray(l *Lexer, open Token) (Operand, error) {
	arr := Operand{Token: Token{Type: TokenArrayStart, Value: "[", Start: open.Start}}
	for {
		tok, err := l.NextToken()
		if err != nil {
			return Operand{}, err
		}
		switch tok.Type {
		case TokenEOF:
			return Operand{}, newParseError("unterminated array", open.Start)
		case TokenArrayEnd:
			arr.End = tok.End
			return arr, nil
		case TokenArrayStart:
			inner, err := parseArray(l, tok)
			if err != nil {
				return Operand{}, err
			}
			arr.Elems = append(arr.Elems, inner)
		case TokenDictStart:
			inner, err := skipDict(l, tok)
			if err != nil {
				return Operand{}, err
			}
			arr.Elems = append(arr.Elems, inner)
		default:
			arr.Elems = append(arr.Elems, Operand{Token: tok})
		}
	}
}

func skipDict(l *Lexer, open Token) (Operand, error) {
	depth := 1
	for depth > 0 {
		tok, err := l.NextToken()
		if err != nil {
			return Operand{}, err
		}
		switch tok.Type {
		case TokenEOF:
			return Operand{}, newParseError("unterminated dictionary", open.Start)
		case TokenDictStart:
			depth++
		case TokenDictEnd:
			depth--
		}
	}
	return Operand{Token: Token{Type: TokenDictStart, Value: "<<", Start: open.Start, End: l.Position()}}, nil
}

// skipInlineImage consumes tokens after BI through the closing EI and
// returns the end offset of EI.
func skipInlineImage(l *Lexer) (int, error) {
	sawData := false
	for {
		tok, err := l.NextToken()
		if err != nil {
			return 0, err
		}
		switch {
		case tok.Type == TokenEOF:
			return 0, newParseError("unterminated inline image", tok.Start)
		case tok.Type == TokenInlineImage:
			sawData = true
		case sawData && tok.Type == TokenKeyword && tok.Value == "EI":
			return tok.End, nil
		}
	}
}
