package substitute

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Strategy derives one search literal from a placeholder
type Strategy struct {
	Name  string
	Apply func(string) string
}

// Strategies are tried in this order; the first that yields a match on a
// page wins for that page.
var Strategies = []Strategy{
	{Name: "exact", Apply: func(s string) string { return s }},
	{Name: "trimmed", Apply: strings.TrimSpace},
	{Name: "upper", Apply: func(s string) string { return cases.Upper(language.Und).String(strings.TrimSpace(s)) }},
	{Name: "lower", Apply: func(s string) string { return cases.Lower(language.Und).String(strings.TrimSpace(s)) }},
	{Name: "collapsed", Apply: func(s string) string { return strings.Join(strings.Fields(s), " ") }},
	{Name: "no-whitespace", Apply: func(s string) string { return strings.Join(strings.Fields(s), "") }},
}

// Variation is a search literal and the strategy that produced it
type Variation struct {
	Strategy string
	Literal  string
}

// Variations returns the distinct non-empty literals for placeholder in
// strategy order.
func Variations(placeholder string) []Variation {
	seen := make(map[string]bool, len(Strategies))
	out := make([]Variation, 0, len(Strategies))
	for _, s := range Strategies {
		v := s.Apply(placeholder)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, Variation{Strategy: s.Name, Literal: v})
	}
	return out
}
