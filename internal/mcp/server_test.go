package mcp

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-filler/internal/config"
	"github.com/a3tai/mcp-pdf-filler/internal/fields"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

// newTestServer builds a server over a template directory holding an offer
// letter, a two page terms section and a catalog with one proposal cover.
func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	templates := t.TempDir()
	logger := log.New(&bytes.Buffer{}, "", 0)

	pdftest.WriteFile(t, templates, "offer.pdf", pdftest.Page(
		pdftest.Text(72, 720, 12, "Dear { client_name },"),
	))
	pdftest.WriteFile(t, templates, "terms.pdf", pdftest.Pages("terms", 2)...)
	cover := pdftest.WriteFile(t, templates, "cover.pdf", pdftest.Page(
		pdftest.Text(72, 720, 14, "Proposal for {client}"),
	))

	store, err := sections.OpenFileStore(filepath.Join(templates, "catalog.yaml"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	err = store.Put(context.Background(), sections.Template{
		ID: "proposal-cover", DocType: "proposal", Path: cover, Pages: 1, Visible: true,
		Fields: []fields.Field{{Name: "client", Placeholder: "{client}"}},
	})
	if err != nil {
		t.Fatalf("failed to add template: %v", err)
	}

	sessions, err := workspace.NewManager(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}

	cfg := &config.Config{
		Mode:              "stdio",
		Host:              "127.0.0.1",
		TemplateDirectory: templates,
		Version:           "1.0.0",
		ServerName:        "test-server",
		LogLevel:          "info",
		MaxFileSize:       1024 * 1024,
	}
	pdfService, err := pdf.NewService(pdf.Options{
		MaxFileSize:       cfg.MaxFileSize,
		TemplateDirectory: templates,
		Defaults:          substitute.DefaultOptions(),
		Sessions:          sessions,
		Store:             store,
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("Failed to create PDF service: %v", err)
	}
	t.Cleanup(func() { pdfService.Close() })

	server, err := NewServer(cfg, pdfService)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server, cfg
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	server, cfg := newTestServer(t)

	if server.config != cfg {
		t.Error("server config not set correctly")
	}
	if server.mcpServer == nil {
		t.Error("mcpServer should be initialized")
	}

	if _, err := NewServer(cfg, nil); err == nil {
		t.Error("expected error for nil pdfService")
	}
	if _, err := NewServer(nil, server.pdfService); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestServer_Handlers(t *testing.T) {
	server, _ := newTestServer(t)

	type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

	tests := []struct {
		name      string
		handler   handler
		args      map[string]interface{}
		wantError bool
		contains  []string
	}{
		{
			name:     "locate text",
			handler:  server.handlePDFLocateText,
			args:     map[string]interface{}{"path": "offer.pdf", "text": "{ client_name }"},
			contains: []string{"Found 1 occurrence(s)", "Page 1:"},
		},
		{
			name:      "locate text without path",
			handler:   server.handlePDFLocateText,
			args:      map[string]interface{}{"text": "x"},
			wantError: true,
			contains:  []string{"path"},
		},
		{
			name:    "substitute with rules array",
			handler: server.handlePDFSubstitute,
			args: map[string]interface{}{
				"input":  "offer.pdf",
				"output": "rules.pdf",
				"rules": []interface{}{
					map[string]interface{}{"placeholder": "{ client_name }", "value": "Jane Doe", "y_offset": 8},
				},
			},
			contains: []string{"1 replacement(s)", `"{ client_name }" via exact`},
		},
		{
			name:    "substitute with values as json text",
			handler: server.handlePDFSubstitute,
			args: map[string]interface{}{
				"input":     "offer.pdf",
				"output":    "values.pdf",
				"values":    `{"{ CLIENT_NAME }": "Jane Doe", "{ missing }": "x"}`,
				"font_size": 10,
			},
			contains: []string{"Warning: placeholders not found on any page: [{ missing }]"},
		},
		{
			name:      "substitute with malformed rules",
			handler:   server.handlePDFSubstitute,
			args:      map[string]interface{}{"input": "offer.pdf", "output": "bad.pdf", "rules": "[{"},
			wantError: true,
			contains:  []string{"invalid rules"},
		},
		{
			name:     "merge",
			handler:  server.handlePDFMerge,
			args:     map[string]interface{}{"paths": []interface{}{"offer.pdf", "terms.pdf"}, "output": "merged.pdf"},
			contains: []string{"Merged 2 file(s)", "Pages: 3", "pages 2-3"},
		},
		{
			name:      "merge without paths",
			handler:   server.handlePDFMerge,
			args:      map[string]interface{}{"output": "merged.pdf"},
			wantError: true,
			contains:  []string{`"paths"`},
		},
		{
			name:      "merge with missing file",
			handler:   server.handlePDFMerge,
			args:      map[string]interface{}{"paths": []interface{}{"offer.pdf", "gone.pdf"}, "output": "x.pdf"},
			wantError: true,
			contains:  []string{"gone.pdf"},
		},
		{
			name:     "finalize",
			handler:  server.handlePDFFinalize,
			args:     map[string]interface{}{"input": "terms.pdf", "include": []interface{}{false, true}, "output": "final.pdf"},
			contains: []string{"Kept pages: [2]"},
		},
		{
			name:      "finalize with wrong vector length",
			handler:   server.handlePDFFinalize,
			args:      map[string]interface{}{"input": "terms.pdf", "include": "[true]", "output": "final.pdf"},
			wantError: true,
			contains:  []string{"inclusion vector"},
		},
		{
			name:     "page count",
			handler:  server.handlePDFPageCount,
			args:     map[string]interface{}{"path": "terms.pdf"},
			contains: []string{"has 2 page(s)"},
		},
		{
			name:     "template list",
			handler:  server.handleTemplateList,
			args:     map[string]interface{}{},
			contains: []string{"Found 1 template(s)", "proposal-cover (proposal)", `client [text] replaces "{client}"`},
		},
		{
			name:     "template select",
			handler:  server.handleTemplateSelect,
			args:     map[string]interface{}{"doc_type": "proposal"},
			contains: []string{"Selected template: proposal-cover"},
		},
		{
			name:      "template select unknown type",
			handler:   server.handleTemplateSelect,
			args:      map[string]interface{}{"doc_type": "invoice"},
			wantError: true,
		},
		{
			name:     "template select by id",
			handler:  server.handleTemplateSelect,
			args:     map[string]interface{}{"template_id": "proposal-cover"},
			contains: []string{"Selected template: proposal-cover"},
		},
		{
			name:      "template select by id with other doc type",
			handler:   server.handleTemplateSelect,
			args:      map[string]interface{}{"template_id": "proposal-cover", "doc_type": "offer"},
			wantError: true,
			contains:  []string{"not offer"},
		},
		{
			name:      "template select without type or id",
			handler:   server.handleTemplateSelect,
			args:      map[string]interface{}{},
			wantError: true,
			contains:  []string{"doc_type or template_id is required"},
		},
		{
			name:    "document generate by template id",
			handler: server.handleDocumentGenerate,
			args: map[string]interface{}{
				"template_id": "proposal-cover",
				"values":      map[string]interface{}{"client": "Acme Corp"},
				"output":      "acme-by-id.pdf",
			},
			contains: []string{"from template proposal-cover", "Merged pages: 1, kept pages: [1]"},
		},
		{
			name:      "document generate without type or id",
			handler:   server.handleDocumentGenerate,
			args:      map[string]interface{}{"values": map[string]interface{}{}, "output": "x.pdf"},
			wantError: true,
			contains:  []string{"doc_type or template_id is required"},
		},
		{
			name:    "document generate",
			handler: server.handleDocumentGenerate,
			args: map[string]interface{}{
				"doc_type": "proposal",
				"values":   map[string]interface{}{"client": "Acme Corp"},
				"appendix": []interface{}{"terms.pdf"},
				"output":   "acme.pdf",
			},
			contains: []string{"from template proposal-cover", "Merged pages: 3, kept pages: [1 2 3]"},
		},
		{
			name:      "document generate without values",
			handler:   server.handleDocumentGenerate,
			args:      map[string]interface{}{"doc_type": "proposal", "output": "acme.pdf"},
			wantError: true,
			contains:  []string{`"values"`},
		},
		{
			name:      "session close unknown",
			handler:   server.handleSessionClose,
			args:      map[string]interface{}{"session_id": "not-a-uuid"},
			wantError: true,
		},
		{
			name:     "server info",
			handler:  server.handlePDFServerInfo,
			args:     map[string]interface{}{},
			contains: []string{"test-server v1.0.0", "pdf_substitute", "document_generate", "Templates: 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if result == nil {
				t.Fatal("result should not be nil")
			}
			if result.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v: %s", result.IsError, tt.wantError, extractTextFromResult(result))
			}

			text := extractTextFromResult(result)
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("result missing %q:\n%s", want, text)
				}
			}
		})
	}
}

func TestDecodeArgument(t *testing.T) {
	args := map[string]interface{}{
		"native": []interface{}{true, false},
		"text":   "[false, true]",
		"broken": "[true,",
		"null":   nil,
	}

	var include []bool
	if err := decodeArgument(args, "native", &include); err != nil || len(include) != 2 || !include[0] {
		t.Errorf("decodeArgument(native) = %v, %v", include, err)
	}
	include = nil
	if err := decodeArgument(args, "text", &include); err != nil || len(include) != 2 || !include[1] {
		t.Errorf("decodeArgument(text) = %v, %v", include, err)
	}
	if err := decodeArgument(args, "broken", &include); err == nil {
		t.Error("expected error for malformed JSON")
	}

	include = nil
	if err := decodeArgument(args, "absent", &include); err != nil || include != nil {
		t.Errorf("decodeArgument(absent) = %v, %v", include, err)
	}
	if err := requireArgument(args, "null", &include); err == nil {
		t.Error("expected error for null required argument")
	}
}

func TestOptionalFloat(t *testing.T) {
	request := callRequest(map[string]interface{}{"y_offset": 8.0, "x_offset": 0})

	if v := optionalFloat(request, "y_offset"); v == nil || *v != 8 {
		t.Errorf("optionalFloat(y_offset) = %v, want 8", v)
	}
	if v := optionalFloat(request, "x_offset"); v == nil || *v != 0 {
		t.Errorf("optionalFloat(x_offset) = %v, want 0", v)
	}
	if v := optionalFloat(request, "font_size"); v != nil {
		t.Errorf("optionalFloat(font_size) = %v, want nil", *v)
	}
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
