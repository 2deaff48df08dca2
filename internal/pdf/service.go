package pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-filler/internal/fields"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/assemble"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/pipeline"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

// Options configures a Service
type Options struct {
	MaxFileSize       int64
	TemplateDirectory string
	Locale            string
	Defaults          substitute.Options
	Sessions          *workspace.Manager
	Store             sections.Store
	Logger            *log.Logger
}

// Service handles PDF fill operations by orchestrating the substitution,
// assembly and catalog components. Every path is checked against the
// template directory and the session work directory.
type Service struct {
	maxFileSize       int64
	templateDirectory string
	defaults          substitute.Options
	pathValidator     *security.PathValidator
	engine            *substitute.Engine
	formatter         *fields.Formatter
	store             sections.Store
	selector          *sections.Selector
	sessions          *workspace.Manager
	runner            *pipeline.Runner
	logger            *log.Logger
}

// NewService creates a new PDF fill service with all components
func NewService(opts Options) (*Service, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("template store cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	pathValidator, err := security.NewPathValidator(opts.TemplateDirectory, opts.Sessions.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	formatter, err := fields.NewFormatter(opts.Locale)
	if err != nil {
		return nil, err
	}

	engine := substitute.NewEngine(opts.Logger)
	selector := sections.NewSelector(opts.Store, opts.Logger)

	return &Service{
		maxFileSize:       opts.MaxFileSize,
		templateDirectory: pathValidator.Roots()[0],
		defaults:          opts.Defaults,
		pathValidator:     pathValidator,
		engine:            engine,
		formatter:         formatter,
		store:             opts.Store,
		selector:          selector,
		sessions:          opts.Sessions,
		runner:            pipeline.NewRunner(selector, engine, formatter, opts.Sessions, opts.Defaults, opts.Logger),
		logger:            opts.Logger,
	}, nil
}

// GetMaxFileSize returns the maximum input size in bytes
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Close removes open sessions and releases the catalog
func (s *Service) Close() error {
	s.sessions.CloseAll()
	return s.store.Close()
}

// sessionRelative joins a relative path to the session directory when a
// session is named. Inputs fall back to the template directory when the
// file is not in the session.
func (s *Service) sessionRelative(sessionID, path string, input bool) (string, error) {
	if sessionID == "" || path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", pdferrors.New(pdferrors.ErrorTypeNotFound, "session", "session not found: "+sessionID)
	}
	candidate := filepath.Join(session.Dir, path)
	if input {
		if _, err := os.Stat(candidate); err != nil {
			return path, nil
		}
	}
	return candidate, nil
}

func (s *Service) inputPath(op, sessionID, path string) (string, error) {
	p, err := s.sessionRelative(sessionID, path, true)
	if err != nil {
		return "", err
	}
	resolved, err := s.pathValidator.ResolveInput(p, s.maxFileSize)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", pdferrors.NotFound(op, path, err)
		}
		return "", pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, op,
			fmt.Errorf("security validation failed: %w", err)).WithPath(path)
	}
	return resolved, nil
}

func (s *Service) outputPath(op, sessionID, path string) (string, error) {
	if path == "" {
		return "", pdferrors.New(pdferrors.ErrorTypeInvalidInput, op, "output path is required")
	}
	p, err := s.sessionRelative(sessionID, path, false)
	if err != nil {
		return "", err
	}
	resolved, err := s.pathValidator.ResolveOutput(p)
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.ErrorTypeInvalidInput, op,
			fmt.Errorf("security validation failed: %w", err)).WithPath(path)
	}
	return resolved, nil
}

// LocateText returns the rectangle of every occurrence of req.Text
func (s *Service) LocateText(ctx context.Context, req LocateTextRequest) (*LocateTextResult, error) {
	if req.Text == "" {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "locate", "text cannot be empty")
	}
	path, err := s.inputPath("locate", req.SessionID, req.Path)
	if err != nil {
		return nil, err
	}

	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	first, last := 1, doc.PageCount()
	if req.Page != 0 {
		if req.Page < 0 || req.Page > doc.PageCount() {
			return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "locate",
				fmt.Sprintf("page %d out of range (document has %d pages)", req.Page, doc.PageCount())).WithPath(req.Path)
		}
		first, last = req.Page, req.Page
	}

	result := &LocateTextResult{Path: path, Text: req.Text, Pages: doc.PageCount(), Matches: []TextMatch{}}
	for n := first; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := doc.Page(n - 1)
		if err != nil {
			return nil, err
		}
		rects, err := page.Locate(req.Text)
		if err != nil {
			return nil, err
		}
		for _, r := range rects {
			result.Matches = append(result.Matches, TextMatch{Page: n, Rect: r})
		}
	}
	result.TotalCount = len(result.Matches)
	return result, nil
}

// Substitute runs one placeholder substitution pass. Request offsets
// override the configured defaults; rule overrides win over both.
func (s *Service) Substitute(ctx context.Context, req SubstituteRequest) (*SubstituteResult, error) {
	rules := append([]substitute.Rule(nil), req.Rules...)
	rules = append(rules, substitute.RulesFromMap(req.Values)...)
	if len(rules) == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "substitute", "at least one rule is required")
	}

	input, err := s.inputPath("substitute", req.SessionID, req.Input)
	if err != nil {
		return nil, err
	}
	output, err := s.outputPath("substitute", req.SessionID, req.Output)
	if err != nil {
		return nil, err
	}

	opts := s.defaults
	if req.XOffset != nil {
		opts.XOffset = *req.XOffset
	}
	if req.YOffset != nil {
		opts.YOffset = *req.YOffset
	}
	if req.FontSize != nil {
		opts.FontSize = *req.FontSize
	}

	report, err := s.engine.Substitute(ctx, input, output, rules, opts)
	if err != nil {
		return nil, err
	}
	return &SubstituteResult{
		Report:    report,
		Summary:   report.Summary(),
		Unmatched: report.Unmatched(rules),
	}, nil
}

// Merge concatenates req.Paths in order. Every input is checked before
// anything is written.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*assemble.MergeResult, error) {
	if len(req.Paths) == 0 {
		return nil, pdferrors.New(pdferrors.ErrorTypeInvalidInput, "merge", "merge list is empty")
	}
	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		resolved, err := s.inputPath("merge", req.SessionID, p)
		if err != nil {
			return nil, err
		}
		paths = append(paths, resolved)
	}
	output, err := s.outputPath("merge", req.SessionID, req.Output)
	if err != nil {
		return nil, err
	}
	return assemble.Merge(ctx, paths, output)
}

// Finalize keeps the pages of req.Input selected by req.Include
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (*assemble.SelectionResult, error) {
	input, err := s.inputPath("finalize", req.SessionID, req.Input)
	if err != nil {
		return nil, err
	}
	output, err := s.outputPath("finalize", req.SessionID, req.Output)
	if err != nil {
		return nil, err
	}
	return assemble.Finalize(ctx, input, req.Include, output)
}

// PageCount returns the number of pages in a PDF
func (s *Service) PageCount(req PageCountRequest) (*PageCountResult, error) {
	path, err := s.inputPath("page_count", req.SessionID, req.Path)
	if err != nil {
		return nil, err
	}
	n, err := assemble.PageCount(path)
	if err != nil {
		return nil, err
	}
	return &PageCountResult{Path: path, Pages: n}, nil
}

// ListTemplates returns catalog entries for a doc type, or all of them
func (s *Service) ListTemplates(ctx context.Context, req TemplateListRequest) (*TemplateListResult, error) {
	templates, err := s.store.List(ctx, req.DocType)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []sections.Template{}
	}
	return &TemplateListResult{DocType: req.DocType, Templates: templates, TotalCount: len(templates)}, nil
}

// SelectTemplate returns the template that would be filled for a doc type,
// or the catalog entry named by req.TemplateID
func (s *Service) SelectTemplate(ctx context.Context, req TemplateSelectRequest) (*sections.Template, error) {
	if req.TemplateID == "" {
		t, err := s.selector.Select(ctx, req.DocType, req.Pages)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	t, err := s.selector.Lookup(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := checkTemplate("select", t, req.DocType, req.Pages); err != nil {
		return nil, err
	}
	return &t, nil
}

// checkTemplate rejects a named template that contradicts the doc type or
// page count also given in the request
func checkTemplate(op string, t sections.Template, docType string, pages int) error {
	if docType != "" && t.DocType != docType {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, op,
			fmt.Sprintf("template %s is a %s template, not %s", t.ID, t.DocType, docType))
	}
	if pages > 0 && t.Pages != pages {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, op,
			fmt.Sprintf("template %s has %d page(s), not %d", t.ID, t.Pages, pages))
	}
	return nil
}

func (s *Service) startJob(ctx context.Context, req GenerateRequest) (*pipeline.Job, error) {
	if req.TemplateID == "" {
		return s.runner.Start(ctx, req.DocType, req.Pages)
	}
	job, err := s.runner.StartTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := checkTemplate("generate", job.Template, req.DocType, req.Pages); err != nil {
		if derr := s.runner.Discard(job); derr != nil {
			s.logger.Printf("Warning: %v", derr)
		}
		return nil, err
	}
	return job, nil
}

// OpenSession creates a private workspace directory
func (s *Service) OpenSession() (*SessionResult, error) {
	session, err := s.sessions.Open()
	if err != nil {
		return nil, err
	}
	return &SessionResult{ID: session.ID, Dir: session.Dir, Created: session.Created}, nil
}

// CloseSession removes a workspace and everything in it
func (s *Service) CloseSession(id string) error {
	return s.sessions.Close(id)
}

// Generate produces a finished document for req.DocType, or from the
// template named by req.TemplateID, in one call. The job's workspace is
// removed whether or not it succeeds.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	output, err := s.outputPath("generate", "", req.Output)
	if err != nil {
		return nil, err
	}
	appendix := make([]assemble.Section, 0, len(req.Appendix))
	for _, p := range req.Appendix {
		resolved, err := s.inputPath("generate", "", p)
		if err != nil {
			return nil, err
		}
		appendix = append(appendix, assemble.Section{Path: resolved})
	}

	job, err := s.startJob(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if job.Stage != pipeline.StageDelivered {
			if err := s.runner.Discard(job); err != nil {
				s.logger.Printf("Warning: %v", err)
			}
		}
	}()

	if err := s.runner.Substitute(ctx, job, req.Values); err != nil {
		return nil, err
	}
	if err := s.runner.Merge(ctx, job, appendix...); err != nil {
		return nil, err
	}
	if err := s.runner.Finalize(ctx, job, req.Include); err != nil {
		return nil, err
	}
	if err := s.runner.Deliver(job, output); err != nil {
		return nil, err
	}

	s.logger.Printf("generated %s from template %s: %s", output, job.Template.ID, job.Report.Summary())
	return &GenerateResult{
		Template:  job.Template.ID,
		Output:    output,
		Report:    job.Report,
		Unmatched: job.Report.Unmatched(job.Rules),
		Merge:     job.Merge,
		Selection: job.Selection,
	}, nil
}
