package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/FocuswithJustin/BibleSpeak/core/annotate"
	"github.com/FocuswithJustin/BibleSpeak/core/dom"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/core/scanner"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/overlay"
	"github.com/FocuswithJustin/BibleSpeak/internal/workerpool"
)

// expandInputs resolves file arguments and doublestar patterns to a
// de-duplicated list of files. A pattern matching nothing is an error.
func expandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, &errors.NotFoundError{Resource: "input", ID: pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// readPage parses an HTML file and returns its document and body. body is
// nil for documents without one.
func readPage(path string) (doc, body *html.Node, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	n, err := dom.Parse(f)
	if err != nil {
		return nil, nil, errors.NewParse("HTML", path, err)
	}
	b, err := dom.Body(n)
	if err != nil {
		return n, nil, nil
	}
	return n, b, nil
}

// ScanCmd lists the names found in each input.
type ScanCmd struct {
	DictFlags
	Inputs []string `arg:"" help:"HTML files or glob patterns (** matches directories)"`
	JSON   bool     `help:"Print a JSON object of file -> names"`
}

func (c *ScanCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dict, err := c.load(cfg)
	if err != nil {
		return err
	}
	files, err := expandInputs(c.Inputs)
	if err != nil {
		return err
	}

	sc := scanner.New(dict)
	results := make(map[string][]string, len(files))
	for _, path := range files {
		_, body, err := readPage(path)
		if err != nil {
			return err
		}
		names := []string{}
		if body != nil {
			names = sc.Scan(dom.Snapshot(body, overlay.Skip))
		}
		results[path] = names
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, path := range files {
		names := results[path]
		fmt.Fprintf(stdout, "%s: %d names\n", path, len(names))
		for _, name := range names {
			e, _ := dict.Lookup(name)
			fmt.Fprintf(stdout, "  %s (%s)\n", name, e.Pronunciation)
		}
	}
	return nil
}

// AnnotateCmd writes annotated copies of its inputs.
type AnnotateCmd struct {
	DictFlags
	Inputs  []string `arg:"" help:"HTML files or glob patterns (** matches directories)"`
	Out     string   `short:"o" required:"" help:"Output directory" type:"path"`
	Names   []string `help:"Annotate only these names (default: every name found)" sep:","`
	Workers int      `help:"Parallel workers (0 = one per CPU)" default:"0"`
	Quiet   bool     `short:"q" help:"Hide the progress bar"`
}

type annotateResult struct {
	path    string
	out     string
	found   int
	enabled []string
	err     error
}

func (c *AnnotateCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dict, err := c.load(cfg)
	if err != nil {
		return err
	}
	files, err := expandInputs(c.Inputs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return errors.NewIO("create directory", c.Out, err)
	}

	engine := annotate.New(dict, overlay.Skip)
	sc := scanner.New(dict)
	workers := c.Workers
	if workers <= 0 {
		workers = workerpool.DefaultWorkers
	}

	progress := newReporter(c.Quiet)
	progress.Start(len(files), "Annotating")
	done := 0
	results, err := workerpool.Map(context.Background(), workers, files,
		func(_ context.Context, path string) annotateResult {
			return c.annotateFile(sc, engine, path)
		},
		func(r annotateResult) {
			done++
			progress.Update(done, filepath.Base(r.path))
		})
	progress.Finish()
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			logging.Error("annotate failed", "path", r.path, "error", r.err)
			continue
		}
		fmt.Fprintf(stdout, "%s -> %s (%d found, %d annotated)\n", r.path, r.out, r.found, len(r.enabled))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func (c *AnnotateCmd) annotateFile(sc *scanner.Scanner, engine *annotate.Engine, path string) annotateResult {
	r := annotateResult{path: path, out: filepath.Join(c.Out, outputName(path))}
	doc, body, err := readPage(path)
	if err != nil {
		r.err = err
		return r
	}
	if body != nil {
		found := sc.Scan(dom.Snapshot(body, overlay.Skip))
		r.found = len(found)
		selection := found
		if len(c.Names) > 0 {
			want := annotate.NewNameSet(c.Names...)
			selection = selection[:0:0]
			for _, name := range found {
				if want.Has(name) {
					selection = append(selection, name)
				}
			}
		}
		r.enabled = engine.Enable(body, selection, annotate.NameSet{}).Sorted()
	}
	out, err := dom.Render(doc)
	if err != nil {
		r.err = err
		return r
	}
	if err := os.MkdirAll(filepath.Dir(r.out), 0o755); err != nil {
		r.err = errors.NewIO("create directory", filepath.Dir(r.out), err)
		return r
	}
	if err := os.WriteFile(r.out, []byte(out), 0o644); err != nil {
		r.err = errors.NewIO("write", r.out, err)
	}
	return r
}

// outputName keeps relative input paths under the output directory and
// falls back to the base name for absolute or parent-relative inputs.
func outputName(path string) string {
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return filepath.Base(clean)
	}
	return clean
}
