package content

import (
	"fmt"
)

// TokenType represents the type of a lexical token in a content stream
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenHexString
	TokenName
	TokenKeyword
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenInlineImage // binary payload between ID and EI
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenHexString:
		return "HEXSTRING"
	case TokenName:
		return "NAME"
	case TokenKeyword:
		return "KEYWORD"
	case TokenArrayStart:
		return "ARRAY_START"
	case TokenArrayEnd:
		return "ARRAY_END"
	case TokenDictStart:
		return "DICT_START"
	case TokenDictEnd:
		return "DICT_END"
	case TokenInlineImage:
		return "INLINE_IMAGE"
	default:
		return "UNKNOWN"
	}
}

// Token is a lexical token. Value holds the decoded bytes for strings
// (literal escapes resolved, hex digits converted) and the raw text otherwise.
// Start and End delimit the token in the source buffer.
type Token struct {
	Type  TokenType
	Value string
	Start int
	End   int
}

// ParseError reports malformed content stream syntax
type ParseError struct {
	Message  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("content stream parse error at position %d: %s", e.Position, e.Message)
	}
	return fmt.Sprintf("content stream parse error: %s", e.Message)
}

func newParseError(msg string, pos int) *ParseError {
	return &ParseError{Message: msg, Position: pos}
}

const (
	nullChar           = '\000'
	tabChar            = '\t'
	lineFeedChar       = '\n'
	formFeedChar       = '\f'
	carriageReturnChar = '\r'
	spaceChar          = ' '

	leftParen   = '('
	rightParen  = ')'
	leftAngle   = '<'
	rightAngle  = '>'
	leftSquare  = '['
	rightSquare = ']'
	leftCurly   = '{'
	rightCurly  = '}'
	solidus     = '/'
	percentSign = '%'
)

// IsWhitespace checks if a character is PDF whitespace
func IsWhitespace(ch byte) bool {
	return ch == nullChar || ch == tabChar || ch == lineFeedChar ||
		ch == formFeedChar || ch == carriageReturnChar || ch == spaceChar
}

// IsDelimiter checks if a character is a PDF delimiter
func IsDelimiter(ch byte) bool {
	return ch == leftParen || ch == rightParen || ch == leftAngle || ch == rightAngle ||
		ch == leftSquare || ch == rightSquare || ch == leftCurly || ch == rightCurly ||
		ch == solidus || ch == percentSign
}

// IsRegular checks if a character is neither whitespace nor a delimiter
func IsRegular(ch byte) bool {
	return !IsWhitespace(ch) && !IsDelimiter(ch)
}
