// Package pipeline drives one document through template selection,
// substitution, merge and finalization inside a private workspace.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/a3tai/mcp-pdf-filler/internal/fields"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/assemble"
	pdferrors "github.com/a3tai/mcp-pdf-filler/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

// Stage is the position of a job in the pipeline
type Stage int

const (
	StageTemplateSelected Stage = iota
	StageSubstituted
	StageMerged
	StageFinalized
	StageDelivered
)

func (s Stage) String() string {
	switch s {
	case StageTemplateSelected:
		return "TEMPLATE_SELECTED"
	case StageSubstituted:
		return "SUBSTITUTED"
	case StageMerged:
		return "MERGED"
	case StageFinalized:
		return "FINALIZED"
	case StageDelivered:
		return "DELIVERED"
	default:
		return "UNKNOWN"
	}
}

// Job is one document moving through the pipeline. Each stage writes its
// output into the job's session directory.
type Job struct {
	Template sections.Template
	Session  *workspace.Session
	Stage    Stage

	Filled    string
	Merged    string
	Final     string
	Rules     []substitute.Rule
	Report    *substitute.Report
	Merge     *assemble.MergeResult
	Selection *assemble.SelectionResult
}

// ID returns the job's session id
func (j *Job) ID() string {
	return j.Session.ID
}

// Converter turns a non-PDF template (for example DOCX) into a PDF.
// No implementation ships with this module.
type Converter interface {
	ConvertToPDF(ctx context.Context, input, output string) error
}

// Runner executes pipeline stages
type Runner struct {
	selector  *sections.Selector
	engine    *substitute.Engine
	formatter *fields.Formatter
	sessions  *workspace.Manager
	options   substitute.Options
	logger    *log.Logger
}

// NewRunner wires the pipeline collaborators
func NewRunner(selector *sections.Selector, engine *substitute.Engine, formatter *fields.Formatter,
	sessions *workspace.Manager, options substitute.Options, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		selector:  selector,
		engine:    engine,
		formatter: formatter,
		sessions:  sessions,
		options:   options,
		logger:    logger,
	}
}

func expect(job *Job, stage Stage, op string) error {
	if job == nil {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, op, "no job")
	}
	if job.Stage != stage {
		return pdferrors.New(pdferrors.ErrorTypeInvalidInput, op,
			fmt.Sprintf("job %s is %s, expected %s", job.ID(), job.Stage, stage))
	}
	return nil
}

// Start selects the template for docType and opens the job's workspace
func (r *Runner) Start(ctx context.Context, docType string, pages int) (*Job, error) {
	tpl, err := r.selector.Select(ctx, docType, pages)
	if err != nil {
		return nil, err
	}
	return r.open(tpl)
}

// StartTemplate opens a job for the catalog entry with id
func (r *Runner) StartTemplate(ctx context.Context, id string) (*Job, error) {
	tpl, err := r.selector.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.open(tpl)
}

func (r *Runner) open(tpl sections.Template) (*Job, error) {
	session, err := r.sessions.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	r.logger.Printf("job %s: selected template %s for %s", session.ID, tpl.ID, tpl.DocType)
	return &Job{Template: tpl, Session: session, Stage: StageTemplateSelected}, nil
}

// Substitute fills the job's template. values are keyed by field name when
// the template declares fields, otherwise by placeholder literal.
func (r *Runner) Substitute(ctx context.Context, job *Job, values map[string]string) error {
	if err := expect(job, StageTemplateSelected, "substitute"); err != nil {
		return err
	}

	var rules []substitute.Rule
	if len(job.Template.Fields) > 0 {
		var err error
		if rules, err = r.formatter.Rules(job.Template.Fields, values); err != nil {
			return err
		}
	} else {
		rules = substitute.RulesFromMap(values)
	}

	out := job.Session.Path("filled.pdf")
	report, err := r.engine.Substitute(ctx, job.Template.Path, out, rules, r.options)
	if err != nil {
		return err
	}
	if missing := report.Unmatched(rules); len(missing) > 0 {
		r.logger.Printf("Warning: job %s: placeholders matched nowhere: %v", job.ID(), missing)
	}

	job.Filled, job.Rules, job.Report, job.Stage = out, rules, report, StageSubstituted
	return nil
}

// Merge appends the static sections after the filled template
func (r *Runner) Merge(ctx context.Context, job *Job, appendix ...assemble.Section) error {
	if err := expect(job, StageSubstituted, "merge"); err != nil {
		return err
	}

	list := append([]assemble.Section{{Path: job.Filled}}, appendix...)
	out := job.Session.Path("merged.pdf")
	result, err := assemble.MergeSections(ctx, list, out)
	if err != nil {
		return err
	}

	job.Merged, job.Merge, job.Stage = out, result, StageMerged
	return nil
}

// Finalize keeps the merged pages selected by include; nil keeps them all
func (r *Runner) Finalize(ctx context.Context, job *Job, include []bool) error {
	if err := expect(job, StageMerged, "finalize"); err != nil {
		return err
	}
	if include == nil {
		include = assemble.IncludeAll(job.Merge.Pages)
	}

	out := job.Session.Path("final.pdf")
	result, err := assemble.Finalize(ctx, job.Merged, include, out)
	if err != nil {
		return err
	}

	job.Final, job.Selection, job.Stage = out, result, StageFinalized
	return nil
}

// Deliver copies the final document to dest and removes the workspace
func (r *Runner) Deliver(job *Job, dest string) error {
	if err := expect(job, StageFinalized, "deliver"); err != nil {
		return err
	}

	src, err := os.Open(job.Final)
	if err != nil {
		return fmt.Errorf("failed to open final document: %w", err)
	}
	err = workspace.WriteAtomic(dest, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
	src.Close()
	if err != nil {
		return fmt.Errorf("failed to deliver %s: %w", dest, err)
	}

	job.Final, job.Stage = dest, StageDelivered
	return r.Discard(job)
}

// Discard removes the job's workspace at any stage
func (r *Runner) Discard(job *Job) error {
	if job == nil || job.Session == nil {
		return nil
	}
	return r.sessions.Close(job.Session.ID)
}
