package substitute

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
)

// Replacement records one redacted and redrawn placeholder occurrence
type Replacement struct {
	Page        int           `json:"page"` // 1-based
	Placeholder string        `json:"placeholder"`
	Variation   string        `json:"variation"`
	Literal     string        `json:"literal"`
	Rect        document.Rect `json:"rect"`
	FontSize    float64       `json:"font_size"`
}

// Miss records a rule that matched nothing on a page
type Miss struct {
	Page        int    `json:"page"` // 1-based
	Placeholder string `json:"placeholder"`
}

// Report summarizes a substitution pass
type Report struct {
	Input        string        `json:"input"`
	Output       string        `json:"output"`
	Pages        int           `json:"pages"`
	Replacements []Replacement `json:"replacements"`
	Misses       []Miss        `json:"misses"`
}

// Matched returns the placeholders replaced at least once, in the order of
// their first replacement: page by page, then rule order within a page.
func (r *Report) Matched() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rep := range r.Replacements {
		if !seen[rep.Placeholder] {
			seen[rep.Placeholder] = true
			out = append(out, rep.Placeholder)
		}
	}
	return out
}

// Unmatched returns placeholders of rules that matched on no page at all
func (r *Report) Unmatched(rules []Rule) []string {
	matched := make(map[string]bool)
	for _, p := range r.Matched() {
		matched[p] = true
	}
	var out []string
	for _, rule := range rules {
		if !matched[rule.Placeholder] {
			out = append(out, rule.Placeholder)
		}
	}
	return out
}

// Summary returns a one line description of the pass
func (r *Report) Summary() string {
	return fmt.Sprintf("%d replacement(s) across %d page(s), %d page/rule miss(es)",
		len(r.Replacements), r.Pages, len(r.Misses))
}
