// Command pdf-fill runs single fill operations from the command line:
// substituting placeholders, merging sections and selecting pages. It also
// seeds and maintains the template catalog used by the MCP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-pdf-filler/internal/config"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/assemble"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
)

type command struct {
	summary string
	run     func(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error
}

var commands = map[string]command{
	"substitute": {"replace placeholders in a template", runSubstitute},
	"merge":      {"concatenate PDFs in order", runMerge},
	"finalize":   {"keep selected pages of a PDF", runFinalize},
	"locate":     {"print the rectangles of a literal", runLocate},
	"count":      {"print the page count of a PDF", runCount},
	"catalog":    {"import, list or remove catalog templates", runCatalog},
}

var commandOrder = []string{"substitute", "merge", "finalize", "locate", "count", "catalog"}

var errUsage = errors.New("usage")

func main() {
	logger := log.New(os.Stderr, "", 0)
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, logger))
}

// run dispatches a subcommand and returns the process exit code
func run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(logger.Writer())
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		logger.Printf("Error: unknown command %q\n", args[0])
		printUsage(logger.Writer())
		return 2
	}

	if err := cmd.run(ctx, args[1:], out, logger); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		logger.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: pdf-fill <command> [flags]\n\nCommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nRun 'pdf-fill <command> --help' for command flags.\n")
}

func newFlagSet(name string, logger *log.Logger) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(logger.Writer())
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdf-fill %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and reports flag errors as usage errors
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func required(fs *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		if !fs.Changed(name) {
			fmt.Fprintf(fs.Output(), "Error: --%s is required\n", name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func runSubstitute(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error {
	fs := newFlagSet("substitute", logger)
	input := fs.StringP("input", "i", "", "template PDF")
	output := fs.StringP("output", "o", "", "PDF to write")
	rulesFile := fs.String("rules", "", "YAML or JSON file with a list of rules")
	sets := fs.StringArray("set", nil, "placeholder=value, repeatable")
	opts := substitute.DefaultOptions()
	fs.Float64Var(&opts.XOffset, "xoffset", 0, "horizontal shift of inserted text in points")
	fs.Float64Var(&opts.YOffset, "yoffset", 0, "downward shift of inserted text in points")
	fs.StringVar(&opts.Font, "font", document.DefaultFont, "standard 14 font for inserted text")
	fs.Float64Var(&opts.FontSize, "fontsize", document.DefaultFontSize, "font size of inserted text")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "input", "output"); err != nil {
		return err
	}

	var rules []substitute.Rule
	if *rulesFile != "" {
		loaded, err := loadRules(*rulesFile)
		if err != nil {
			return err
		}
		rules = append(rules, loaded...)
	}
	values, err := parseAssignments(*sets)
	if err != nil {
		fmt.Fprintf(fs.Output(), "Error: %v\n", err)
		return errUsage
	}
	rules = append(rules, substitute.RulesFromMap(values)...)
	if len(rules) == 0 {
		fmt.Fprintln(fs.Output(), "Error: no rules; use --rules or --set")
		return errUsage
	}

	report, err := substitute.NewEngine(logger).Substitute(ctx, *input, *output, rules, opts)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, report)
	}

	fmt.Fprintf(out, "Wrote %s: %s\n", report.Output, report.Summary())
	if missing := report.Unmatched(rules); len(missing) > 0 {
		fmt.Fprintf(out, "Not found: %s\n", strings.Join(missing, ", "))
	}
	return nil
}

// loadRules reads a YAML or JSON rule list
func loadRules(path string) ([]substitute.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	var rules []substitute.Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", path, err)
	}
	return rules, nil
}

func parseAssignments(sets []string) (map[string]string, error) {
	values := make(map[string]string, len(sets))
	for _, s := range sets {
		placeholder, value, ok := strings.Cut(s, "=")
		if !ok || placeholder == "" {
			return nil, fmt.Errorf("invalid --set %q, want placeholder=value", s)
		}
		values[placeholder] = value
	}
	return values, nil
}

func runMerge(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error {
	fs := newFlagSet("merge", logger)
	output := fs.StringP("output", "o", "", "PDF to write")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdf-fill merge -o out.pdf a.pdf b.pdf ...\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "output"); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	result, err := assemble.Merge(ctx, fs.Args(), *output)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, result)
	}

	fmt.Fprintf(out, "Wrote %s: %d page(s)\n", result.Output, result.Pages)
	for _, span := range result.Spans {
		fmt.Fprintf(out, "  %s: pages %d-%d\n", span.Path, span.First, span.First+span.Count-1)
	}
	return nil
}

func runFinalize(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error {
	fs := newFlagSet("finalize", logger)
	input := fs.StringP("input", "i", "", "merged PDF")
	output := fs.StringP("output", "o", "", "PDF to write")
	include := fs.BoolSlice("include", nil, "one boolean per page, e.g. 1,0,1")
	keep := fs.IntSlice("keep", nil, "1-based pages to keep, e.g. 1,3,4")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "input", "output"); err != nil {
		return err
	}
	if fs.Changed("include") == fs.Changed("keep") {
		fmt.Fprintln(fs.Output(), "Error: use exactly one of --include and --keep")
		return errUsage
	}

	vector := *include
	if fs.Changed("keep") {
		n, err := assemble.PageCount(*input)
		if err != nil {
			return err
		}
		vector = make([]bool, n)
		for _, p := range *keep {
			if p < 1 || p > n {
				return fmt.Errorf("page %d out of range (document has %d pages)", p, n)
			}
			vector[p-1] = true
		}
	}

	result, err := assemble.Finalize(ctx, *input, vector, *output)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "Wrote %s: kept pages %v\n", result.Output, result.Kept)
	return nil
}

func runLocate(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error {
	fs := newFlagSet("locate", logger)
	input := fs.StringP("input", "i", "", "PDF to search")
	text := fs.StringP("text", "t", "", "literal to find")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "input", "text"); err != nil {
		return err
	}

	doc, err := document.Open(*input)
	if err != nil {
		return err
	}
	defer doc.Close()

	found := 0
	for i := 0; i < doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := doc.Page(i)
		if err != nil {
			return err
		}
		rects, err := page.Locate(*text)
		if err != nil {
			return err
		}
		for _, r := range rects {
			fmt.Fprintf(out, "page %d: %s\n", i+1, r)
			found++
		}
	}
	if found == 0 {
		fmt.Fprintf(out, "%q not found\n", *text)
	}
	return nil
}

func runCount(_ context.Context, args []string, out io.Writer, logger *log.Logger) error {
	fs := newFlagSet("count", logger)
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: pdf-fill count file.pdf")
		return errUsage
	}

	n, err := assemble.PageCount(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, n)
	return nil
}

var catalogActions = []string{"import", "list", "remove"}

func runCatalog(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error {
	fs := newFlagSet("catalog", logger)
	backend := fs.String("backend", sections.BackendFile, "catalog backend: file, redis or postgres")
	file := fs.String("catalog", config.DefaultCatalogFile, "catalog file for the file backend")
	redisAddr := fs.String("redis-addr", config.DefaultRedisAddr, "redis address")
	redisPassword := fs.String("redis-password", "", "redis password")
	redisDB := fs.Int("redis-db", 0, "redis database")
	postgresDSN := fs.String("postgres-dsn", "", "postgres connection string")
	docType := fs.String("doc-type", "", "list only this document type")
	asJSON := fs.Bool("json", false, "print the listing as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdf-fill catalog %s [flags] [args]\n", strings.Join(catalogActions, "|"))
		fmt.Fprintf(fs.Output(), "  import catalog.yaml   copy every template of a YAML catalog into the backend\n")
		fmt.Fprintf(fs.Output(), "  list                  print the templates in the backend\n")
		fmt.Fprintf(fs.Output(), "  remove id...          delete templates by id\n")
		fs.PrintDefaults()
	}
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	action, rest := fs.Arg(0), fs.Args()[1:]

	switch action {
	case "import":
		if len(rest) != 1 {
			fmt.Fprintln(fs.Output(), "Error: import takes one catalog file")
			return errUsage
		}
	case "remove":
		if len(rest) == 0 {
			fmt.Fprintln(fs.Output(), "Error: remove takes at least one template id")
			return errUsage
		}
	case "list":
	default:
		fmt.Fprintf(fs.Output(), "Error: unknown catalog action %q\n", action)
		fs.Usage()
		return errUsage
	}

	store, err := sections.Open(ctx, sections.Options{
		Backend: *backend,
		File:    *file,
		Redis: sections.RedisOptions{
			Addr:     *redisAddr,
			Password: *redisPassword,
			DB:       *redisDB,
		},
		PostgresDSN: *postgresDSN,
	})
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	switch action {
	case "import":
		src, err := sections.OpenFileStore(rest[0])
		if err != nil {
			return err
		}
		n, err := sections.Copy(ctx, store, src)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d template(s) into the %s catalog\n", n, *backend)
	case "remove":
		for _, id := range rest {
			if err := store.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %s\n", id)
		}
	case "list":
		templates, err := store.List(ctx, *docType)
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(out, templates)
		}
		for _, t := range templates {
			hidden := ""
			if !t.Visible {
				hidden = " (hidden)"
			}
			fmt.Fprintf(out, "%s\t%s\t%d page(s)\t%s%s\n", t.ID, t.DocType, t.Pages, t.Path, hidden)
		}
	}
	return nil
}
