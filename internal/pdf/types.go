package pdf

import (
	"time"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/assemble"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
)

// Request Types

// LocateTextRequest represents a request to find a literal string in a PDF
type LocateTextRequest struct {
	Path string `json:"path"`
	Text string `json:"text"`
	// Page limits the search to one 1-based page; 0 searches every page
	Page      int    `json:"page,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// SubstituteRequest represents a placeholder substitution pass. Values is a
// shorthand for rules without overrides.
type SubstituteRequest struct {
	Input     string            `json:"input"`
	Output    string            `json:"output"`
	Rules     []substitute.Rule `json:"rules,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
	XOffset   *float64          `json:"x_offset,omitempty"`
	YOffset   *float64          `json:"y_offset,omitempty"`
	FontSize  *float64          `json:"font_size,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
}

// MergeRequest represents a request to concatenate PDFs in order
type MergeRequest struct {
	Paths     []string `json:"paths"`
	Output    string   `json:"output"`
	SessionID string   `json:"session_id,omitempty"`
}

// FinalizeRequest represents a request to keep the pages selected by Include
type FinalizeRequest struct {
	Input     string `json:"input"`
	Include   []bool `json:"include"`
	Output    string `json:"output"`
	SessionID string `json:"session_id,omitempty"`
}

// PageCountRequest represents a request to count the pages of a PDF
type PageCountRequest struct {
	Path      string `json:"path"`
	SessionID string `json:"session_id,omitempty"`
}

// TemplateListRequest lists catalog entries, optionally for one doc type
type TemplateListRequest struct {
	DocType string `json:"doc_type,omitempty"`
}

// TemplateSelectRequest picks the template to fill for a doc type, or
// names one directly by TemplateID
type TemplateSelectRequest struct {
	DocType    string `json:"doc_type,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// GenerateRequest runs the whole pipeline: select, substitute, merge the
// appendix, finalize and deliver to Output.
type GenerateRequest struct {
	DocType    string            `json:"doc_type,omitempty"`
	Pages      int               `json:"pages,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Values     map[string]string `json:"values"`
	Appendix   []string          `json:"appendix,omitempty"`
	// Include selects pages of the merged document; nil keeps them all
	Include []bool `json:"include,omitempty"`
	Output  string `json:"output"`
}

// Result Types

// TextMatch is one occurrence of the searched text
type TextMatch struct {
	Page int           `json:"page"` // 1-based
	Rect document.Rect `json:"rect"`
}

// LocateTextResult represents the rectangles of every occurrence
type LocateTextResult struct {
	Path       string      `json:"path"`
	Text       string      `json:"text"`
	Pages      int         `json:"pages"`
	Matches    []TextMatch `json:"matches"`
	TotalCount int         `json:"total_count"`
}

// SubstituteResult represents the outcome of a substitution pass
type SubstituteResult struct {
	Report    *substitute.Report `json:"report"`
	Summary   string             `json:"summary"`
	Unmatched []string           `json:"unmatched,omitempty"`
}

// PageCountResult represents the page count of a PDF
type PageCountResult struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

// TemplateListResult represents catalog entries
type TemplateListResult struct {
	DocType    string              `json:"doc_type,omitempty"`
	Templates  []sections.Template `json:"templates"`
	TotalCount int                 `json:"total_count"`
}

// SessionResult describes a workspace session
type SessionResult struct {
	ID      string    `json:"id"`
	Dir     string    `json:"dir"`
	Created time.Time `json:"created"`
}

// GenerateResult represents a delivered document
type GenerateResult struct {
	Template  string                    `json:"template"`
	Output    string                    `json:"output"`
	Report    *substitute.Report        `json:"report"`
	Unmatched []string                  `json:"unmatched,omitempty"`
	Merge     *assemble.MergeResult     `json:"merge"`
	Selection *assemble.SelectionResult `json:"selection"`
}

// ToolInfo describes an available MCP tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	TemplateDirectory string     `json:"template_directory"`
	WorkDirectory     string     `json:"work_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	Font              string     `json:"font"`
	FontSize          float64    `json:"font_size"`
	Locale            string     `json:"locale"`
	Templates         int        `json:"templates"`
	OpenSessions      int        `json:"open_sessions"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	UsageGuidance     string     `json:"usage_guidance"`
}
