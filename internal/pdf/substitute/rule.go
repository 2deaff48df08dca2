package substitute

import (
	"fmt"
	"log"
	"sort"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
)

// Rule replaces every occurrence of Placeholder with Value. The offsets and
// font size override the pass defaults when set.
type Rule struct {
	Placeholder string   `json:"placeholder" yaml:"placeholder"`
	Value       string   `json:"value" yaml:"value"`
	XOffset     *float64 `json:"x_offset,omitempty" yaml:"x_offset,omitempty"`
	YOffset     *float64 `json:"y_offset,omitempty" yaml:"y_offset,omitempty"`
	FontSize    *float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	// AutoShrink reduces the font size until Value fits the placeholder width
	AutoShrink bool `json:"auto_shrink,omitempty" yaml:"auto_shrink,omitempty"`
}

// Float returns a pointer to v, for Rule overrides
func Float(v float64) *float64 {
	return &v
}

// RulesFromMap builds rules for a placeholder to value map, ordered by
// placeholder so passes are reproducible.
func RulesFromMap(values map[string]string) []Rule {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make([]Rule, len(keys))
	for i, k := range keys {
		rules[i] = Rule{Placeholder: k, Value: values[k]}
	}
	return rules
}

func validateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Placeholder == "" {
			return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "substitute", fmt.Sprintf("rule %d has an empty placeholder", i))
		}
		if seen[r.Placeholder] {
			return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "substitute", "duplicate rule").WithField(r.Placeholder)
		}
		if r.FontSize != nil && *r.FontSize <= 0 {
			return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "substitute", fmt.Sprintf("invalid font size %g", *r.FontSize)).WithField(r.Placeholder)
		}
		seen[r.Placeholder] = true
	}
	return nil
}

// Options are the defaults for one substitution pass
type Options struct {
	XOffset  float64        `json:"x_offset"`
	YOffset  float64        `json:"y_offset"`
	FontSize float64        `json:"font_size"`
	Font     string         `json:"font"`
	Color    document.Color `json:"color"`
	// Padding grows each matched rectangle before redaction; nil uses the default
	Padding     *document.Padding `json:"padding,omitempty"`
	MinFontSize float64           `json:"min_font_size"`
	ShrinkStep  float64           `json:"shrink_step"`
}

// DefaultOptions returns the pass defaults: 11pt black Helvetica, 3pt
// padding with 10pt more on the trailing edge, shrinking in 0.5pt steps
// down to 4pt.
func DefaultOptions() Options {
	pad := document.WithTrailing(3, 10)
	return Options{
		FontSize:    document.DefaultFontSize,
		Font:        document.DefaultFont,
		Color:       document.Black,
		Padding:     &pad,
		MinFontSize: 4,
		ShrinkStep:  0.5,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Padding == nil {
		o.Padding = def.Padding
	}
	if o.FontSize <= 0 {
		o.FontSize = def.FontSize
	}
	if o.Font == "" {
		o.Font = def.Font
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = def.MinFontSize
	}
	if o.ShrinkStep <= 0 {
		o.ShrinkStep = def.ShrinkStep
	}
	return o
}

// resolved is a rule with its overrides applied
type resolved struct {
	Rule
	xOffset  float64
	yOffset  float64
	fontSize float64
}

func resolve(r Rule, o Options) resolved {
	out := resolved{Rule: r, xOffset: o.XOffset, yOffset: o.YOffset, fontSize: o.FontSize}
	if r.XOffset != nil {
		out.xOffset = *r.XOffset
	}
	if r.YOffset != nil {
		out.yOffset = *r.YOffset
	}
	if r.FontSize != nil {
		out.fontSize = *r.FontSize
	}
	return out
}

func loggerOrDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}
