package fields

import (
	"fmt"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
)

// Kind selects how a raw form value is formatted
type Kind string

const (
	KindText    Kind = "text"
	KindAmount  Kind = "amount"
	KindDate    Kind = "date"
	KindArticle Kind = "article" // text prefixed with "a" or "an"
)

// Field binds a form value to a placeholder on a template
type Field struct {
	Name        string `json:"name" yaml:"name"`
	Placeholder string `json:"placeholder" yaml:"placeholder"`
	Kind        Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	// Layout is the output date layout for KindDate, LongDate when empty
	Layout   string `json:"layout,omitempty" yaml:"layout,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`

	XOffset    *float64 `json:"x_offset,omitempty" yaml:"x_offset,omitempty"`
	YOffset    *float64 `json:"y_offset,omitempty" yaml:"y_offset,omitempty"`
	FontSize   *float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	AutoShrink bool     `json:"auto_shrink,omitempty" yaml:"auto_shrink,omitempty"`
}

// Format renders raw for the field's kind
func (f *Formatter) Format(field Field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	var out string
	switch field.Kind {
	case "", KindText:
		out = raw
	case KindAmount:
		v, err := f.ParseAmount(raw)
		if err != nil {
			return "", err
		}
		out = f.FormatAmount(v)
	case KindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return "", err
		}
		out = FormatDate(t, field.Layout)
	case KindArticle:
		out = WithArticle(raw)
	default:
		return "", fmt.Errorf("unknown field kind %q", field.Kind)
	}
	return field.Prefix + out, nil
}

// Rules formats values and returns one rule per field in field order.
// A missing value fails unless the field is optional, in which case the
// field is skipped.
func (f *Formatter) Rules(fields []Field, values map[string]string) ([]substitute.Rule, error) {
	rules := make([]substitute.Rule, 0, len(fields))
	for _, field := range fields {
		if field.Placeholder == "" {
			return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "fields", "field has no placeholder").WithField(field.Name)
		}

		raw, ok := values[field.Name]
		if !ok || strings.TrimSpace(raw) == "" {
			if field.Optional {
				continue
			}
			return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "fields", "missing value").WithField(field.Name)
		}

		value, err := f.Format(field, raw)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "fields", err).WithField(field.Name)
		}

		rules = append(rules, substitute.Rule{
			Placeholder: field.Placeholder,
			Value:       value,
			XOffset:     field.XOffset,
			YOffset:     field.YOffset,
			FontSize:    field.FontSize,
			AutoShrink:  field.AutoShrink || field.Kind == KindArticle,
		})
	}
	return rules, nil
}
