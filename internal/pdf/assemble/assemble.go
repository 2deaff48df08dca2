// Package assemble concatenates filled sections into one document and
// applies the operator's page selection to the merged result.
package assemble

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

// Section is one entry of a merge list. Pages is the expected page count,
// 0 when not checked.
type Section struct {
	Path  string `json:"path" yaml:"path"`
	Pages int    `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Span locates a section inside the merged document
type Span struct {
	Path  string `json:"path"`
	First int    `json:"first"` // 1-based page in the merged document
	Count int    `json:"count"`
}

// MergeResult describes a merged document
type MergeResult struct {
	Output string `json:"output"`
	Pages  int    `json:"pages"`
	Spans  []Span `json:"spans"`
}

// SelectionResult describes a finalized document
type SelectionResult struct {
	Output string `json:"output"`
	Pages  int    `json:"pages"`
	// Kept holds the 1-based merged page numbers that were retained
	Kept []int `json:"kept"`
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Merge concatenates paths in order into out.
func Merge(ctx context.Context, paths []string, out string) (*MergeResult, error) {
	sections := make([]Section, len(paths))
	for i, p := range paths {
		sections[i] = Section{Path: p}
	}
	return MergeSections(ctx, sections, out)
}

// MergeSections concatenates sections in order into out. Every section
// must exist before anything is written; a missing file fails the merge
// with a NotFound error naming it and no output is created.
func MergeSections(ctx context.Context, sections []Section, out string) (*MergeResult, error) {
	if len(sections) == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "merge", "merge list is empty")
	}
	if out == "" {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "merge", "output path is required")
	}

	for _, s := range sections {
		if err := checkExists("merge", s.Path); err != nil {
			return nil, err
		}
	}

	conf := newConfig()
	readers := make([]io.ReadSeeker, 0, len(sections))
	defer func() { closeAll(readers) }()
	result := &MergeResult{Output: out, Spans: make([]Span, 0, len(sections))}

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := os.Open(s.Path)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "merge", err).WithPath(s.Path)
		}
		readers = append(readers, f)

		n, err := api.PageCount(f, conf)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "merge", fmt.Errorf("failed to read PDF context: %w", err)).WithPath(s.Path)
		}
		if s.Pages > 0 && n != s.Pages {
			return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "merge",
				fmt.Sprintf("section has %d pages, expected %d", n, s.Pages)).WithPath(s.Path)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "merge", err).WithPath(s.Path)
		}

		result.Spans = append(result.Spans, Span{Path: s.Path, First: result.Pages + 1, Count: n})
		result.Pages += n
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := workspace.WriteAtomic(out, func(w io.Writer) error {
		if len(readers) == 1 {
			return rewrite(readers[0], w, conf)
		}
		return api.MergeRaw(readers, w, false, conf)
	})
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "merge", err).WithPath(out)
	}
	return result, nil
}

// Finalize writes the pages of merged whose include entry is true to out,
// in their original order. include must have one entry per page.
func Finalize(ctx context.Context, merged string, include []bool, out string) (*SelectionResult, error) {
	if out == "" {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "finalize", "output path is required")
	}
	if err := checkExists("finalize", merged); err != nil {
		return nil, err
	}

	f, err := os.Open(merged)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "finalize", err).WithPath(merged)
	}
	defer f.Close()

	conf := newConfig()
	n, err := api.PageCount(f, conf)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "finalize", fmt.Errorf("failed to read PDF context: %w", err)).WithPath(merged)
	}
	if len(include) != n {
		return nil, pdferrors.New(pdferrors.ErrorTypeInclusionVectorMismatch, "finalize",
			fmt.Sprintf("inclusion vector has %d entries, document has %d pages", len(include), n)).WithPath(merged)
	}

	kept := Selected(include)
	if len(kept) == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeEmptySelection, "finalize", "no pages selected").WithPath(merged)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "finalize", err).WithPath(merged)
	}

	selected := make([]string, len(kept))
	for i, p := range kept {
		selected[i] = strconv.Itoa(p)
	}

	err = workspace.WriteAtomic(out, func(w io.Writer) error {
		return api.Collect(f, w, selected, conf)
	})
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "finalize", err).WithPath(out)
	}
	return &SelectionResult{Output: out, Pages: len(kept), Kept: kept}, nil
}

// IncludeAll returns the default inclusion vector for n pages
func IncludeAll(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// Selected returns the 1-based page numbers marked true in include
func Selected(include []bool) []int {
	var out []int
	for i, keep := range include {
		if keep {
			out = append(out, i+1)
		}
	}
	return out
}

// PageCount returns the number of pages in the PDF at path
func PageCount(path string) (int, error) {
	if err := checkExists("page_count", path); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, "page_count", err).WithPath(path)
	}
	defer f.Close()

	n, err := api.PageCount(f, newConfig())
	if err != nil {
		return 0, pdferrors.Wrap(pdferrors.ErrorTypeInvalidDocument, "page_count", fmt.Errorf("failed to read PDF context: %w", err)).WithPath(path)
	}
	return n, nil
}

func checkExists(op, path string) error {
	if path == "" {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, op, "empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pdferrors.NotFound(op, path, err)
		}
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, op, err).WithPath(path)
	}
	if info.IsDir() {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, op, "path is a directory").WithPath(path)
	}
	return nil
}

// rewrite copies a single document through pdfcpu
func rewrite(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
	pdfCtx, err := api.ReadContext(rs, conf)
	if err != nil {
		return fmt.Errorf("failed to read PDF context: %w", err)
	}
	return api.WriteContext(pdfCtx, w)
}

func closeAll(readers []io.ReadSeeker) {
	for _, r := range readers {
		if c, ok := r.(io.Closer); ok {
			c.Close()
		}
	}
}
