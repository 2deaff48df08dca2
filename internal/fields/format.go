// Package fields turns collected form values into substitution rules.
// Values are formatted here (amounts, dates, indefinite articles) so the
// substitution engine only ever sees final text.
package fields

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Date layouts used by templates
const (
	LongDate     = "January 02, 2006"
	DayMonthYear = "02 January 2006"
	ISODate      = "2006-01-02"
)

// inputLayouts are accepted by ParseDate, most specific first
var inputLayouts = []string{
	time.RFC3339,
	ISODate,
	LongDate,
	"January 2, 2006",
	DayMonthYear,
	"2 January 2006",
	"01/02/2006",
}

// Formatter formats values for one locale
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	seps    separators
}

// separators are the decimal and grouping marks of a locale
type separators struct {
	decimal rune
	group   rune
}

var englishSeparators = separators{decimal: '.', group: ','}

// NewFormatter returns a formatter for a BCP 47 locale such as "en-US".
// An empty locale selects English.
func NewFormatter(locale string) (*Formatter, error) {
	tag := language.English
	if locale != "" {
		t, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		tag = t
	}
	printer := message.NewPrinter(tag)
	return &Formatter{tag: tag, printer: printer, seps: localeSeparators(printer)}, nil
}

// localeSeparators reads the marks back from formatted sample numbers
func localeSeparators(p *message.Printer) separators {
	seps := englishSeparators
	if r, ok := firstMark(p.Sprint(number.Decimal(1.5, number.Scale(1)))); ok {
		seps.decimal = r
	}
	if r, ok := firstMark(p.Sprint(number.Decimal(1000000))); ok && r != seps.decimal {
		seps.group = r
	} else if seps.decimal == ',' {
		seps.group = '.'
	}
	return seps
}

func firstMark(s string) (rune, bool) {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return r, true
		}
	}
	return 0, false
}

// Locale returns the formatter's language tag
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// FormatAmount renders v with grouping separators and two decimals,
// e.g. 50000 -> "50,000.00" in English.
func (f *Formatter) FormatAmount(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// ParseAmount reads an amount written with the formatter's locale marks,
// e.g. "50.000,5" for de-DE or "50,000.5" for en-US.
func (f *Formatter) ParseAmount(s string) (float64, error) {
	return parseAmount(s, f.seps)
}

// ParseAmount accepts plain or grouped English numbers ("50000", "50,000.5").
func ParseAmount(s string) (float64, error) {
	return parseAmount(s, englishSeparators)
}

func parseAmount(s string, seps separators) (float64, error) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == seps.group || r == '_' || unicode.IsSpace(r):
			return -1
		case r == seps.decimal:
			return '.'
		}
		return r
	}, s)
	if clean == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// FormatDate renders t with layout, LongDate when layout is empty
func FormatDate(t time.Time, layout string) string {
	if layout == "" {
		layout = LongDate
	}
	return t.Format(layout)
}

// ParseDate accepts ISO dates, RFC 3339 timestamps and the long forms
// templates print.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Article returns "an" when word starts with a vowel letter and "a"
// otherwise.
func Article(word string) string {
	for _, r := range strings.TrimSpace(word) {
		switch unicode.ToLower(r) {
		case 'a', 'e', 'i', 'o', 'u':
			return "an"
		}
		return "a"
	}
	return "a"
}

// WithArticle prefixes word with its indefinite article
func WithArticle(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	return Article(word) + " " + word
}
