package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-filler/internal/config"
	"github.com/a3tai/mcp-pdf-filler/internal/descriptions"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer

	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	sessionParam := mcp.WithString("session_id",
		mcp.Description("Optional session; relative paths resolve inside its workspace"),
	)

	pdfLocateTextTool := mcp.NewTool(
		"pdf_locate_text",
		mcp.WithDescription(descriptions.PDFLocateTextDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF path, absolute or relative to the template directory"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Literal text to find"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page to search (all pages if omitted)"),
		),
		sessionParam,
	)
	s.mcpServer.AddTool(pdfLocateTextTool, s.handlePDFLocateText)

	pdfSubstituteTool := mcp.NewTool(
		"pdf_substitute",
		mcp.WithDescription(descriptions.PDFSubstituteDescription),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Template PDF"),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("PDF to write; must differ from input"),
		),
		mcp.WithArray("rules",
			mcp.Description("Rules: [{placeholder, value, x_offset?, y_offset?, font_size?, auto_shrink?}]"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithObject("values",
			mcp.Description("Placeholder to value map, for rules without overrides"),
		),
		mcp.WithNumber("x_offset", mcp.Description("Horizontal shift of inserted text in points")),
		mcp.WithNumber("y_offset", mcp.Description("Downward shift of inserted text in points")),
		mcp.WithNumber("font_size", mcp.Description("Font size of inserted text in points")),
		sessionParam,
	)
	s.mcpServer.AddTool(pdfSubstituteTool, s.handlePDFSubstitute)

	pdfMergeTool := mcp.NewTool(
		"pdf_merge",
		mcp.WithDescription(descriptions.PDFMergeDescription),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("PDFs to concatenate, in order"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("PDF to write"),
		),
		sessionParam,
	)
	s.mcpServer.AddTool(pdfMergeTool, s.handlePDFMerge)

	pdfFinalizeTool := mcp.NewTool(
		"pdf_finalize",
		mcp.WithDescription(descriptions.PDFFinalizeDescription),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Merged PDF"),
		),
		mcp.WithArray("include",
			mcp.Required(),
			mcp.Description("One boolean per page; true keeps the page"),
			mcp.Items(map[string]any{"type": "boolean"}),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("PDF to write"),
		),
		sessionParam,
	)
	s.mcpServer.AddTool(pdfFinalizeTool, s.handlePDFFinalize)

	pdfPageCountTool := mcp.NewTool(
		"pdf_page_count",
		mcp.WithDescription(descriptions.PDFPageCountDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF path"),
		),
		sessionParam,
	)
	s.mcpServer.AddTool(pdfPageCountTool, s.handlePDFPageCount)

	templateListTool := mcp.NewTool(
		"template_list",
		mcp.WithDescription(descriptions.TemplateListDescription),
		mcp.WithString("doc_type",
			mcp.Description("Only list templates of this document type"),
		),
	)
	s.mcpServer.AddTool(templateListTool, s.handleTemplateList)

	templateSelectTool := mcp.NewTool(
		"template_select",
		mcp.WithDescription(descriptions.TemplateSelectDescription),
		mcp.WithString("doc_type",
			mcp.Description("Document type, e.g. offer or proposal"),
		),
		mcp.WithString("template_id",
			mcp.Description("Catalog id of a specific template (instead of or checked against doc_type)"),
		),
		mcp.WithNumber("pages",
			mcp.Description("Required page count (any if omitted)"),
		),
	)
	s.mcpServer.AddTool(templateSelectTool, s.handleTemplateSelect)

	documentGenerateTool := mcp.NewTool(
		"document_generate",
		mcp.WithDescription(descriptions.DocumentGenerateDescription),
		mcp.WithString("doc_type",
			mcp.Description("Document type to generate"),
		),
		mcp.WithString("template_id",
			mcp.Description("Catalog id of the template to fill (instead of or checked against doc_type)"),
		),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Field name to raw value map"),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("PDF to deliver"),
		),
		mcp.WithNumber("pages",
			mcp.Description("Required template page count"),
		),
		mcp.WithArray("appendix",
			mcp.Description("Static section PDFs appended after the filled template"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("include",
			mcp.Description("One boolean per merged page (all pages if omitted)"),
			mcp.Items(map[string]any{"type": "boolean"}),
		),
	)
	s.mcpServer.AddTool(documentGenerateTool, s.handleDocumentGenerate)

	sessionOpenTool := mcp.NewTool(
		"session_open",
		mcp.WithDescription(descriptions.SessionOpenDescription),
	)
	s.mcpServer.AddTool(sessionOpenTool, s.handleSessionOpen)

	sessionCloseTool := mcp.NewTool(
		"session_close",
		mcp.WithDescription(descriptions.SessionCloseDescription),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to remove"),
		),
	)
	s.mcpServer.AddTool(sessionCloseTool, s.handleSessionClose)

	pdfServerInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.PDFServerInfoDescription),
	)
	s.mcpServer.AddTool(pdfServerInfoTool, s.handlePDFServerInfo)
}

// Handler functions
func (s *Server) handlePDFLocateText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.LocateTextRequest{
		Path:      path,
		Text:      text,
		Page:      request.GetInt("page", 0),
		SessionID: request.GetString("session_id", ""),
	}
	result, err := s.pdfService.LocateText(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatLocateTextResult(result)), nil
}

func (s *Server) handlePDFSubstitute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := request.RequireString("input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.SubstituteRequest{
		Input:     input,
		Output:    output,
		SessionID: request.GetString("session_id", ""),
	}
	args := request.GetArguments()
	if err := decodeArgument(args, "rules", &req.Rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := decodeArgument(args, "values", &req.Values); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.XOffset = optionalFloat(request, "x_offset")
	req.YOffset = optionalFloat(request, "y_offset")
	req.FontSize = optionalFloat(request, "font_size")

	result, err := s.pdfService.Substitute(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSubstituteResult(result)), nil
}

func (s *Server) handlePDFMerge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.MergeRequest{Output: output, SessionID: request.GetString("session_id", "")}
	if err := requireArgument(request.GetArguments(), "paths", &req.Paths); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.Merge(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Merged %d file(s) into: %s\n", len(result.Spans), result.Output)
	responseText += fmt.Sprintf("Pages: %d\n", result.Pages)
	for i, span := range result.Spans {
		responseText += fmt.Sprintf("%d. %s: pages %d-%d\n", i+1, span.Path, span.First, span.First+span.Count-1)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFFinalize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := request.RequireString("input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.FinalizeRequest{Input: input, Output: output, SessionID: request.GetString("session_id", "")}
	if err := requireArgument(request.GetArguments(), "include", &req.Include); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.Finalize(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Finalized document: %s\n", result.Output)
	responseText += fmt.Sprintf("Pages: %d\n", result.Pages)
	responseText += fmt.Sprintf("Kept pages: %v\n", result.Kept)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFPageCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PageCountRequest{Path: path, SessionID: request.GetString("session_id", "")}
	result, err := s.pdfService.PageCount(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s has %d page(s)\n", result.Path, result.Pages)), nil
}

func (s *Server) handleTemplateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.TemplateListRequest{DocType: request.GetString("doc_type", "")}
	result, err := s.pdfService.ListTemplates(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatTemplateListResult(result)), nil
}

func (s *Server) handleTemplateSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.TemplateSelectRequest{
		DocType:    request.GetString("doc_type", ""),
		TemplateID: request.GetString("template_id", ""),
		Pages:      request.GetInt("pages", 0),
	}
	if req.DocType == "" && req.TemplateID == "" {
		return mcp.NewToolResultError(errTemplateRequired), nil
	}
	result, err := s.pdfService.SelectTemplate(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Selected template: %s (%s)\n", result.ID, result.Name)
	responseText += fmt.Sprintf("Path: %s\n", result.Path)
	responseText += fmt.Sprintf("Pages: %d\n", result.Pages)
	for _, f := range result.Fields {
		responseText += fmt.Sprintf("  • %s [%s] replaces %q\n", f.Name, kindOrText(string(f.Kind)), f.Placeholder)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleDocumentGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.GenerateRequest{
		DocType:    request.GetString("doc_type", ""),
		TemplateID: request.GetString("template_id", ""),
		Output:     output,
		Pages:      request.GetInt("pages", 0),
	}
	if req.DocType == "" && req.TemplateID == "" {
		return mcp.NewToolResultError(errTemplateRequired), nil
	}
	args := request.GetArguments()
	if err := requireArgument(args, "values", &req.Values); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := decodeArgument(args, "appendix", &req.Appendix); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := decodeArgument(args, "include", &req.Include); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.Generate(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Generated %s from template %s\n", result.Output, result.Template)
	responseText += fmt.Sprintf("Substitution: %s\n", result.Report.Summary())
	responseText += fmt.Sprintf("Merged pages: %d, kept pages: %v\n", result.Merge.Pages, result.Selection.Kept)
	if len(result.Unmatched) > 0 {
		responseText += fmt.Sprintf("Warning: placeholders not found: %v\n", result.Unmatched)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSessionOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.OpenSession()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Session: %s\n", result.ID)
	responseText += fmt.Sprintf("Directory: %s\n", result.Dir)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSessionClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.pdfService.CloseSession(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s\n", id)), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatLocateTextResult(result *pdf.LocateTextResult) string {
	text := fmt.Sprintf("Found %d occurrence(s) of %q in: %s\n", result.TotalCount, result.Text, result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	for i, m := range result.Matches {
		text += fmt.Sprintf("%d. Page %d: %s\n", i+1, m.Page, m.Rect)
	}
	return text
}

func (s *Server) formatSubstituteResult(result *pdf.SubstituteResult) string {
	report := result.Report
	text := fmt.Sprintf("Wrote: %s\n", report.Output)
	text += fmt.Sprintf("Template: %s\n", report.Input)
	text += result.Summary + "\n"

	if len(report.Replacements) > 0 {
		text += "\nReplacements:\n"
		for i, r := range report.Replacements {
			text += fmt.Sprintf("%d. Page %d: %q via %s at %s, %gpt\n",
				i+1, r.Page, r.Placeholder, r.Variation, r.Rect, r.FontSize)
		}
	}
	if len(result.Unmatched) > 0 {
		text += fmt.Sprintf("\nWarning: placeholders not found on any page: %v\n", result.Unmatched)
	}
	return text
}

func (s *Server) formatTemplateListResult(result *pdf.TemplateListResult) string {
	text := fmt.Sprintf("Found %d template(s)", result.TotalCount)
	if result.DocType != "" {
		text += fmt.Sprintf(" for %s", result.DocType)
	}
	text += "\n"

	for i, t := range result.Templates {
		text += fmt.Sprintf("\n%d. %s (%s)\n", i+1, t.ID, t.DocType)
		if t.Name != "" {
			text += fmt.Sprintf("   Name: %s\n", t.Name)
		}
		text += fmt.Sprintf("   Path: %s\n", t.Path)
		text += fmt.Sprintf("   Pages: %d, visible: %t, default: %t\n", t.Pages, t.Visible, t.Default)
		for _, f := range t.Fields {
			text += fmt.Sprintf("   • %s [%s] replaces %q\n", f.Name, kindOrText(string(f.Kind)), f.Placeholder)
		}
	}
	return text
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Template Directory: %s\n", result.TemplateDirectory)
	text += fmt.Sprintf("🗂️  Work Directory: %s\n", result.WorkDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔤 Font: %s %gpt, locale %s\n", result.Font, result.FontSize, result.Locale)
	text += fmt.Sprintf("📚 Templates: %d, open sessions: %d\n\n", result.Templates, result.OpenSessions)

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

func kindOrText(kind string) string {
	if kind == "" {
		return "text"
	}
	return kind
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode serves MCP over stdin/stdout until ctx is done
func (s *Server) runStdioMode(ctx context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF fill MCP server in stdio mode")
		log.Printf("Template directory: %s", s.config.TemplateDirectory)
	}

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))
	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	log.Printf("Starting PDF fill MCP server on http://%s", addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: server shutdown: %v", err)
		}
		return ctx.Err()
	}
}
