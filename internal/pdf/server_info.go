package pdf

import (
	"context"
	"fmt"
)

// availableTools lists the MCP tools with usage notes
var availableTools = []ToolInfo{
	{
		Name:        "pdf_locate_text",
		Description: "Find every occurrence of a literal string in a PDF",
		Usage:       "Use this tool to check where a placeholder sits before substituting it.",
		Parameters: "path (required): PDF path, text (required): literal to find, " +
			"page (optional): 1-based page, session_id (optional)",
	},
	{
		Name:        "pdf_substitute",
		Description: "Replace placeholders in a PDF template with values",
		Usage: "Use this tool to fill a template. Placeholders are removed from the page content and the " +
			"value is drawn at the same spot. Unmatched placeholders are reported, not fatal.",
		Parameters: "input (required), output (required), rules (optional): JSON array of " +
			"{placeholder, value, x_offset, y_offset, font_size, auto_shrink}, values (optional): JSON object " +
			"placeholder to value, x_offset/y_offset/font_size (optional) pass defaults, session_id (optional)",
	},
	{
		Name:        "pdf_merge",
		Description: "Concatenate PDFs in order",
		Usage:       "Use this tool to assemble sections. All inputs are checked before the output is written.",
		Parameters:  "paths (required): JSON array of PDF paths, output (required), session_id (optional)",
	},
	{
		Name:        "pdf_finalize",
		Description: "Keep only the selected pages of a PDF",
		Usage:       "Use this tool after merging. The include vector needs one boolean per page.",
		Parameters:  "input (required), include (required): JSON array of booleans, output (required), session_id (optional)",
	},
	{
		Name:        "pdf_page_count",
		Description: "Count the pages in a PDF",
		Usage:       "Use this tool to size an inclusion vector.",
		Parameters:  "path (required), session_id (optional)",
	},
	{
		Name:        "template_list",
		Description: "List catalog templates",
		Usage:       "Use this tool to discover templates and their fields.",
		Parameters:  "doc_type (optional): filter by document type",
	},
	{
		Name:        "template_select",
		Description: "Pick the template for a document type",
		Usage:       "Use this tool to see which template document_generate will fill.",
		Parameters:  "doc_type or template_id (one required), pages (optional): required page count",
	},
	{
		Name:        "document_generate",
		Description: "Select, fill, merge, finalize and deliver a document in one call",
		Usage:       "Use this tool when the catalog template declares fields for your values.",
		Parameters: "doc_type or template_id (one required), values (required): JSON object field to value, output (required), " +
			"pages (optional), appendix (optional): JSON array of PDF paths, include (optional): JSON array of booleans",
	},
	{
		Name:        "session_open",
		Description: "Open a private workspace directory",
		Usage:       "Use this tool before multi-step fills; pass the returned session_id to later calls.",
		Parameters:  "none",
	},
	{
		Name:        "session_close",
		Description: "Delete a workspace directory",
		Usage:       "Use this tool once the final document has been copied out.",
		Parameters:  "session_id (required)",
	},
}

// AvailableTools returns the tool descriptions reported by ServerInfo
func AvailableTools() []ToolInfo {
	return append([]ToolInfo(nil), availableTools...)
}

// ServerInfo returns configuration, tools and usage guidance
func (s *Service) ServerInfo(ctx context.Context, serverName, version string) (*ServerInfoResult, error) {
	templates := 0
	if list, err := s.store.List(ctx, ""); err != nil {
		// Don't fail completely if the catalog is unreachable
		s.logger.Printf("Warning: failed to list templates: %v", err)
	} else {
		templates = len(list)
	}

	usageGuidance := `PDF Fill MCP Server Usage Guide:

1. DISCOVER TEMPLATES:
   - Use 'template_list' to see templates, their doc types and fields
   - Use 'template_select' to see which template a doc type resolves to

2. ONE CALL FILL:
   - Use 'document_generate' with doc_type (or template_id), values and output

3. STEP BY STEP FILL:
   - Use 'session_open' and pass its session_id to the calls below
   - Use 'pdf_locate_text' to check a placeholder exists
   - Use 'pdf_substitute' to replace placeholders
   - Use 'pdf_merge' to append static sections
   - Use 'pdf_page_count' and 'pdf_finalize' to drop unwanted pages
   - Use 'session_close' when done

IMPORTANT NOTES:
- Relative paths resolve against the template directory, or the session directory with a session_id
- Templates are never modified; outputs must end in .pdf
- Placeholders are matched exactly, then trimmed, upper or lower case, with collapsed spaces and without spaces
- The server can handle files up to ` + fmt.Sprintf("%d", s.maxFileSize/(1024*1024)) + `MB`

	return &ServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		TemplateDirectory: s.templateDirectory,
		WorkDirectory:     s.sessions.Root(),
		MaxFileSize:       s.maxFileSize,
		Font:              s.defaults.Font,
		FontSize:          s.defaults.FontSize,
		Locale:            s.formatter.Locale(),
		Templates:         templates,
		OpenSessions:      len(s.sessions.List()),
		AvailableTools:    AvailableTools(),
		UsageGuidance:     usageGuidance,
	}, nil
}
