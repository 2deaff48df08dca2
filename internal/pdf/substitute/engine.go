// Package substitute replaces placeholder text in PDF templates: every
// match is redacted from the page content and the replacement value is
// drawn in its place.
package substitute

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
)

// Engine runs substitution passes
type Engine struct {
	logger *log.Logger
}

// NewEngine creates an engine that reports misses to logger
// (log.Default() when nil).
func NewEngine(logger *log.Logger) *Engine {
	return &Engine{logger: loggerOrDefault(logger)}
}

// Substitute applies rules to every page of input and writes the result to
// output. Placeholders that match nothing on a page are recorded in the
// report and logged; they never fail the pass. The input file is not
// modified and output is only created when the whole pass succeeds.
func (e *Engine) Substitute(ctx context.Context, input, output string, rules []Rule, opts Options) (*Report, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	if err := checkDistinct(input, output); err != nil {
		return nil, err
	}
	opts = opts.normalized()

	doc, err := document.Open(input)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	report := &Report{
		Input:        input,
		Output:       output,
		Pages:        doc.PageCount(),
		Replacements: []Replacement{},
		Misses:       []Miss{},
	}

	for i := 0; i < doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := doc.Page(i)
		if err != nil {
			return nil, err
		}
		for _, rule := range rules {
			if err := e.applyRule(page, resolve(rule, opts), opts, report); err != nil {
				return nil, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := doc.Save(output); err != nil {
		return nil, err
	}
	return report, nil
}

// applyRule replaces the matches of the first variation that is found on page
func (e *Engine) applyRule(page *document.Page, rule resolved, opts Options, report *Report) error {
	pageNum := page.Index() + 1

	var (
		rects     []document.Rect
		variation Variation
	)
	for _, v := range Variations(rule.Placeholder) {
		found, err := page.Locate(v.Literal)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			rects, variation = found, v
			break
		}
	}

	if len(rects) == 0 {
		report.Misses = append(report.Misses, Miss{Page: pageNum, Placeholder: rule.Placeholder})
		e.logger.Printf("Warning: placeholder %q not found on page %d", rule.Placeholder, pageNum)
		return nil
	}

	for _, r := range rects {
		size := rule.fontSize
		if rule.AutoShrink {
			size = FitFontSize(rule.Value, opts.Font, size, r.Width(), opts.MinFontSize, opts.ShrinkStep)
		}

		if _, err := page.Redact(r, *opts.Padding); err != nil {
			return err
		}

		pt := document.Point{
			X: r.X0 + rule.xOffset,
			Y: r.Y0 + r.Height()/2 + rule.yOffset,
		}
		style := document.TextStyle{Font: opts.Font, Size: size, Color: opts.Color}
		if err := page.Insert(pt, rule.Value, style); err != nil {
			return err
		}

		report.Replacements = append(report.Replacements, Replacement{
			Page:        pageNum,
			Placeholder: rule.Placeholder,
			Variation:   variation.Strategy,
			Literal:     variation.Literal,
			Rect:        r,
			FontSize:    size,
		})
	}
	return nil
}

// FitFontSize shrinks size by step while text set in font is wider than
// width, stopping at minSize.
func FitFontSize(text, font string, size, width, minSize, step float64) float64 {
	if step <= 0 {
		return size
	}
	for size > minSize && document.MeasureText(text, font, size) > width {
		size -= step
	}
	if size < minSize {
		size = minSize
	}
	return size
}

func checkDistinct(input, output string) error {
	if input == "" || output == "" {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "substitute", "input and output paths are required")
	}
	in, err := filepath.Abs(input)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "substitute", err).WithPath(input)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "substitute", err).WithPath(output)
	}
	if in == out {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, "substitute",
			fmt.Sprintf("output must differ from the template %s", input))
	}
	return nil
}
