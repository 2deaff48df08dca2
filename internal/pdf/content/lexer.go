package content

import (
	"bytes"
	"encoding/hex"
	"strconv"
)

// Lexer tokenizes a decoded page content stream held in memory
type Lexer struct {
	data []byte
	pos  int
	// set after an ID keyword so the next token is the raw image payload
	inlineData bool
}

// NewLexer creates a lexer over data
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

func (l *Lexer) hasNext() bool {
	return l.pos < len(l.data)
}

func (l *Lexer) current() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	return l.data[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.data) {
		return 0
	}
	return l.data[l.pos+1]
}

func (l *Lexer) skipWhitespace() {
	for l.hasNext() && IsWhitespace(l.current()) {
		l.pos++
	}
}

// skipComment skips a comment line starting with %
func (l *Lexer) skipComment() {
	for l.hasNext() && l.current() != lineFeedChar && l.current() != carriageReturnChar {
		l.pos++
	}
}

// Position returns the current offset in the input
func (l *Lexer) Position() int {
	return l.pos
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	if l.inlineData {
		l.inlineData = false
		return l.readInlineImageData()
	}

	for l.hasNext() {
		if IsWhitespace(l.current()) {
			l.skipWhitespace()
		} else if l.current() == percentSign {
			l.skipComment()
		} else {
			break
		}
	}

	if !l.hasNext() {
		return Token{Type: TokenEOF, Start: l.pos, End: l.pos}, nil
	}

	start := l.pos

	switch l.current() {
	case leftParen:
		return l.readLiteralString()
	case leftAngle:
		if l.peek() == leftAngle {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: "<<", Start: start, End: l.pos}, nil
		}
		return l.readHexString()
	case rightAngle:
		if l.peek() == rightAngle {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: ">>", Start: start, End: l.pos}, nil
		}
		return Token{}, newParseError("unexpected '>'", start)
	case leftSquare:
		l.pos++
		return Token{Type: TokenArrayStart, Value: "[", Start: start, End: l.pos}, nil
	case rightSquare:
		l.pos++
		return Token{Type: TokenArrayEnd, Value: "]", Start: start, End: l.pos}, nil
	case leftCurly, rightCurly:
		// PostScript calculator braces only occur inside function streams
		l.pos++
		return Token{Type: TokenKeyword, Value: string(l.data[start]), Start: start, End: l.pos}, nil
	case solidus:
		return l.readName()
	case rightParen:
		return Token{}, newParseError("unbalanced ')'", start)
	default:
		ch := l.current()
		if isDigit(ch) || ch == '+' || ch == '-' || ch == '.' {
			return l.readNumber()
		}
		return l.readKeyword()
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// readLiteralString reads a literal string enclosed in parentheses
func (l *Lexer) readLiteralString() (Token, error) {
	start := l.pos
	var buffer bytes.Buffer

	l.pos++ // opening parenthesis
	depth := 1

	for l.hasNext() {
		ch := l.current()

		if ch == leftParen {
			depth++
			buffer.WriteByte(ch)
		} else if ch == rightParen {
			depth--
			if depth == 0 {
				l.pos++
				return Token{Type: TokenString, Value: buffer.String(), Start: start, End: l.pos}, nil
			}
			buffer.WriteByte(ch)
		} else if ch == '\\' {
			l.pos++
			if !l.hasNext() {
				break
			}

			switch esc := l.current(); esc {
			case 'n':
				buffer.WriteByte('\n')
			case 'r':
				buffer.WriteByte('\r')
			case 't':
				buffer.WriteByte('\t')
			case 'b':
				buffer.WriteByte('\b')
			case 'f':
				buffer.WriteByte('\f')
			case '(', ')', '\\':
				buffer.WriteByte(esc)
			case lineFeedChar:
			case carriageReturnChar:
				if l.peek() == lineFeedChar {
					l.pos++
				}
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2 && l.peek() >= '0' && l.peek() <= '7'; i++ {
						l.pos++
						val = val*8 + int(l.current()-'0')
					}
					buffer.WriteByte(byte(val))
				} else {
					buffer.WriteByte(esc)
				}
			}
		} else {
			buffer.WriteByte(ch)
		}

		l.pos++
	}

	return Token{}, newParseError("unterminated literal string", start)
}

// readHexString reads a hexadecimal string enclosed in angle brackets
func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	var digits []byte

	l.pos++ // opening angle bracket

	for l.hasNext() && l.current() != rightAngle {
		ch := l.current()
		if !IsWhitespace(ch) {
			if !isHexDigit(ch) {
				return Token{}, newParseError("invalid hex digit in hex string", l.pos)
			}
			digits = append(digits, ch)
		}
		l.pos++
	}

	if !l.hasNext() {
		return Token{}, newParseError("unterminated hex string", start)
	}
	l.pos++ // closing angle bracket

	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	decoded := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(decoded, digits); err != nil {
		return Token{}, newParseError(err.Error(), start)
	}

	return Token{Type: TokenHexString, Value: string(decoded), Start: start, End: l.pos}, nil
}

// readName reads a name object starting with /
func (l *Lexer) readName() (Token, error) {
	start := l.pos
	var buffer bytes.Buffer

	l.pos++ // solidus

	for l.hasNext() && IsRegular(l.current()) {
		if l.current() == '#' && l.pos+2 < len(l.data) && isHexDigit(l.data[l.pos+1]) && isHexDigit(l.data[l.pos+2]) {
			val, _ := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8)
			buffer.WriteByte(byte(val))
			l.pos += 3
			continue
		}
		buffer.WriteByte(l.current())
		l.pos++
	}

	return Token{Type: TokenName, Value: buffer.String(), Start: start, End: l.pos}, nil
}

// readNumber reads an integer or real value
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos

	if l.current() == '+' || l.current() == '-' {
		l.pos++
	}
	for l.hasNext() && (isDigit(l.current()) || l.current() == '.') {
		l.pos++
	}

	return Token{Type: TokenNumber, Value: string(l.data[start:l.pos]), Start: start, End: l.pos}, nil
}

// readKeyword reads an operator or one of true, false, null
func (l *Lexer) readKeyword() (Token, error) {
	start := l.pos

	for l.hasNext() && IsRegular(l.current()) {
		l.pos++
	}

	keyword := string(l.data[start:l.pos])
	if keyword == "ID" {
		l.inlineData = true
	}

	return Token{Type: TokenKeyword, Value: keyword, Start: start, End: l.pos}, nil
}

// readInlineImageData consumes the payload after ID up to the EI that closes it.
// EI must be surrounded by whitespace to count as the terminator.
func (l *Lexer) readInlineImageData() (Token, error) {
	// a single whitespace byte separates ID from the data
	if l.hasNext() && IsWhitespace(l.current()) {
		l.pos++
	}
	start := l.pos

	for i := start; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > start && !IsWhitespace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !IsWhitespace(l.data[i+2]) {
			continue
		}
		l.pos = i
		return Token{Type: TokenInlineImage, Value: string(l.data[start:i]), Start: start, End: i}, nil
	}

	return Token{}, newParseError("inline image without EI", start)
}
