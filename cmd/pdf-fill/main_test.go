package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/assemble"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
)

// runCLI runs the command line and returns the exit code, stdout and stderr
func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, log.New(&stderr, "", 0))
	return code, stdout.String(), stderr.String()
}

func writeOffer(t *testing.T, dir string) string {
	return pdftest.WriteFile(t, dir, "offer.pdf",
		pdftest.Page(
			pdftest.Text(72, 700, 12, "Dear { client_name },"),
			pdftest.Text(72, 660, 12, "Date: { date }"),
		),
	)
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"no arguments", nil, 2, "Usage: pdf-fill"},
		{"help", []string{"--help"}, 0, "Commands:"},
		{"unknown command", []string{"explode"}, 2, `unknown command "explode"`},
		{"missing required flag", []string{"substitute", "--input", "a.pdf"}, 2, "--output is required"},
		{"bad flag", []string{"count", "--nope"}, 2, "unknown flag"},
		{"substitute without rules", []string{"substitute", "-i", "a.pdf", "-o", "b.pdf"}, 2, "no rules"},
		{"malformed assignment", []string{"substitute", "-i", "a.pdf", "-o", "b.pdf", "--set", "novalue"}, 2, "want placeholder=value"},
		{"merge without inputs", []string{"merge", "-o", "out.pdf"}, 2, "Usage: pdf-fill merge"},
		{"finalize needs one selection", []string{"finalize", "-i", "a.pdf", "-o", "b.pdf"}, 2, "exactly one of"},
		{"count without file", []string{"count"}, 2, "Usage: pdf-fill count"},
		{"finalize without input", []string{"finalize", "-o", "x.pdf", "--keep", "1"}, 2, "--input is required"},
		{"locate without text", []string{"locate", "-i", "a.pdf"}, 2, "Usage: pdf-fill locate [flags]"},
		{"catalog without action", []string{"catalog"}, 2, "Usage: pdf-fill catalog"},
		{"catalog unknown action", []string{"catalog", "sync"}, 2, `unknown catalog action "sync"`},
		{"catalog import without file", []string{"catalog", "import"}, 2, "import takes one catalog file"},
		{"catalog remove without id", []string{"catalog", "remove"}, 2, "at least one template id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(tt.args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestRun_Substitute(t *testing.T) {
	dir := t.TempDir()
	input := writeOffer(t, dir)
	output := filepath.Join(dir, "filled.pdf")

	code, stdout, stderr := runCLI("substitute", "-i", input, "-o", output,
		"--set", "{ client_name }=Jane Doe", "--set", "{ signature }=J. Doe")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "Wrote "+output)
	assert.Contains(t, stdout, "Not found: { signature }")
	_, err := os.Stat(output)
	assert.NoError(t, err)
}

func TestRun_SubstituteRulesFile(t *testing.T) {
	dir := t.TempDir()
	input := writeOffer(t, dir)
	output := filepath.Join(dir, "filled.pdf")
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(`
- placeholder: "{ client_name }"
  value: Jane Doe
  y_offset: 8
- placeholder: "{ date }"
  value: 17 October 2026
`), 0o644))

	code, stdout, stderr := runCLI("substitute", "-i", input, "-o", output, "--rules", rules, "--json")
	require.Equal(t, 0, code, stderr)

	var report substitute.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, output, report.Output)
	assert.Equal(t, []string{"{ client_name }", "{ date }"}, report.Matched())
}

func TestRun_SubstituteMissingInput(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI("substitute", "-i", filepath.Join(dir, "absent.pdf"),
		"-o", filepath.Join(dir, "out.pdf"), "--set", "a=b")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestRun_MergeFinalizeCount(t *testing.T) {
	dir := t.TempDir()
	cover := pdftest.WriteFile(t, dir, "cover.pdf", pdftest.Pages("cover", 1)...)
	terms := pdftest.WriteFile(t, dir, "terms.pdf", pdftest.Pages("terms", 2)...)
	merged := filepath.Join(dir, "merged.pdf")

	code, stdout, stderr := runCLI("merge", "-o", merged, cover, terms)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "3 page(s)")
	assert.Contains(t, stdout, "pages 2-3")

	tests := []struct {
		name string
		args []string
		kept []int
	}{
		{"include vector", []string{"--include", "true,false,true"}, []int{1, 3}},
		{"keep pages", []string{"--keep", "2,3"}, []int{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final := filepath.Join(t.TempDir(), "final.pdf")
			args := append([]string{"finalize", "-i", merged, "-o", final, "--json"}, tt.args...)
			code, stdout, stderr := runCLI(args...)
			require.Equal(t, 0, code, stderr)

			var result assemble.SelectionResult
			require.NoError(t, json.Unmarshal([]byte(stdout), &result))
			assert.Equal(t, tt.kept, result.Kept)

			code, stdout, _ = runCLI("count", final)
			assert.Equal(t, 0, code)
			assert.Equal(t, "2\n", stdout)
		})
	}

	t.Run("keep out of range", func(t *testing.T) {
		code, _, stderr := runCLI("finalize", "-i", merged, "-o", filepath.Join(t.TempDir(), "x.pdf"), "--keep", "4")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "out of range")
	})

	t.Run("vector length mismatch", func(t *testing.T) {
		code, _, stderr := runCLI("finalize", "-i", merged, "-o", filepath.Join(t.TempDir(), "x.pdf"), "--include", "true")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "Error:")
	})
}

func TestRun_Locate(t *testing.T) {
	dir := t.TempDir()
	input := writeOffer(t, dir)

	code, stdout, stderr := runCLI("locate", "-i", input, "-t", "{ date }")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "page 1: ")

	code, stdout, _ = runCLI("locate", "-i", input, "-t", "{ missing }")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "not found")
}

func TestRun_Catalog(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "source.yaml")
	require.NoError(t, os.WriteFile(source, []byte(`templates:
  - id: offer
    doc_type: offer
    path: offer.pdf
    pages: 1
    visible: true
  - id: nda
    doc_type: nda
    path: /srv/nda.pdf
`), 0o644))
	target := filepath.Join(dir, "seeded", "catalog.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))

	code, stdout, stderr := runCLI("catalog", "import", "--catalog", target, source)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Imported 2 template(s) into the file catalog")

	code, stdout, stderr = runCLI("catalog", "list", "--catalog", target, "--json")
	require.Equal(t, 0, code, stderr)
	var listed []sections.Template
	require.NoError(t, json.Unmarshal([]byte(stdout), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "nda", listed[0].ID)
	assert.Equal(t, filepath.Join(dir, "offer.pdf"), listed[1].Path)

	code, stdout, _ = runCLI("catalog", "list", "--catalog", target, "--doc-type", "nda")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "/srv/nda.pdf (hidden)")
	assert.NotContains(t, stdout, "offer")

	code, stdout, stderr = runCLI("catalog", "remove", "--catalog", target, "nda")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Removed nda")

	code, _, stderr = runCLI("catalog", "remove", "--catalog", target, "nda")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "template not found")

	code, _, stderr = runCLI("catalog", "list", "--backend", "etcd")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown catalog backend")
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"{a}=1", "{b}=x=y", "{c}="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"{a}": "1", "{b}": "x=y", "{c}": ""}, values)

	_, err = parseAssignments([]string{"=v"})
	assert.Error(t, err)
}
