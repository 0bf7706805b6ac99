package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/scrape"
	"github.com/FocuswithJustin/BibleSpeak/internal/suggest"
	"github.com/FocuswithJustin/BibleSpeak/internal/validation"
)

// DictGroup contains dictionary maintenance commands.
type DictGroup struct {
	Validate DictValidateCmd `cmd:"" help:"Validate the manual dictionary"`
	Organize DictOrganizeCmd `cmd:"" help:"Alphabetise both dictionary files in place"`
	Update   DictUpdateCmd   `cmd:"" help:"Rebuild the curated dictionary from the pronunciation site"`
	Suggest  DictSuggestCmd  `cmd:"" help:"Suggest pronunciations for names missing from the dictionary"`
	Pack     DictPackCmd     `cmd:"" help:"Write compressed copies of both dictionary files"`
}

// DictValidateCmd checks the manual tier.
type DictValidateCmd struct {
	DictFlags
	JSON bool `help:"Print the report as JSON"`
}

func (c *DictValidateCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, manual := c.paths(cfg)
	report, err := dictionary.ValidateManualFile(manual)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}
	if !report.OK() {
		return fmt.Errorf("%s: %d errors", manual, len(report.Errors))
	}
	return nil
}

func printReport(r *dictionary.Report) {
	if r.Missing {
		fmt.Fprintf(stdout, "%s not found (manual dictionary is optional)\n", r.Path)
		return
	}
	for _, e := range r.Errors {
		fmt.Fprintf(stdout, "ERROR: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(stdout, "WARNING: %s\n", w)
	}
	if r.OK() {
		fmt.Fprintf(stdout, "%s: %d entries OK", r.Path, r.Entries)
		if len(r.Warnings) > 0 {
			fmt.Fprintf(stdout, " (%d warnings)", len(r.Warnings))
		}
		fmt.Fprintln(stdout)
	}
}

// DictOrganizeCmd sorts both tiers.
type DictOrganizeCmd struct {
	DictFlags
}

func (c *DictOrganizeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	curated, manual := c.paths(cfg)
	counts, err := dictionary.Organize(curated, manual)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, counts.String())
	return nil
}

// DictUpdateCmd scrapes the curated tier.
type DictUpdateCmd struct {
	Out     string `short:"o" help:"Output file (default: configured curated dictionary)" type:"path"`
	BaseURL string `name:"base-url" help:"Pronunciation site (default from config)"`
	Letters string `help:"Index letters to fetch" default:"abcdefghijklmnopqrstuvwxyz"`
	Workers int    `help:"Parallel fetches (default from config)"`
	Quiet   bool   `short:"q" help:"Hide the progress bar"`
}

func (c *DictUpdateCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cfg.Dictionary.Curated
	if c.Out != "" {
		out = c.Out
	}
	if err := validation.ValidateDictionaryPath(out); err != nil {
		return err
	}
	scfg := scrape.Config{
		BaseURL: cfg.Scrape.BaseURL,
		Workers: cfg.Scrape.Workers,
		Timeout: cfg.Scrape.Timeout.Std(),
		Letters: c.Letters,
	}
	if c.BaseURL != "" {
		scfg.BaseURL = c.BaseURL
	}
	if c.Workers > 0 {
		scfg.Workers = c.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	progress := newReporter(c.Quiet)
	stage := ""
	entries, report, err := scrape.New(scfg).Update(ctx, func(p scrape.Progress) {
		if p.Stage != stage {
			if stage != "" {
				progress.Finish()
			}
			stage = p.Stage
			progress.Start(p.Total, "Fetching "+p.Stage+" pages")
		}
		progress.Update(p.Done, p.Item)
	})
	if stage != "" {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.NewIO("create directory", filepath.Dir(out), err)
	}
	if err := dictionary.WriteFile(out, entries); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %d entries to %s (%d letters, %d names, %d without pronunciation, %d failed fetches)\n",
		report.Entries, out, report.Letters, report.Names, report.Skipped, report.Failed)
	return nil
}

// DictSuggestCmd asks a chat model for missing pronunciations.
type DictSuggestCmd struct {
	DictFlags
	Names   []string `arg:"" help:"Names to suggest pronunciations for"`
	Add     bool     `help:"Append accepted suggestions to the manual dictionary"`
	Force   bool     `help:"With --add, also append suggestions that have format warnings"`
	Model   string   `help:"Chat model (default from config)"`
	BaseURL string   `name:"base-url" help:"OpenAI-compatible API base URL (default from config)"`
}

func (c *DictSuggestCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	curatedPath, manualPath := c.paths(cfg)
	curated, err := dictionary.ReadFile(curatedPath)
	if err != nil {
		return err
	}
	apiKey := os.Getenv(cfg.Suggest.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("set %s to use suggestions", cfg.Suggest.APIKeyEnv)
	}
	scfg := suggest.Config{APIKey: apiKey, BaseURL: cfg.Suggest.BaseURL, Model: cfg.Suggest.Model}
	if c.Model != "" {
		scfg.Model = c.Model
	}
	if c.BaseURL != "" {
		scfg.BaseURL = c.BaseURL
	}
	s, err := suggest.New(scfg, curated)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var failed int
	for _, name := range c.Names {
		sg, err := s.Suggest(ctx, name)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(stdout, "%s: %s\n", sg.Name, sg.Pronunciation)
		for _, w := range sg.Warnings {
			fmt.Fprintf(stdout, "  WARNING: %s\n", w)
		}
		if !c.Add {
			continue
		}
		if !sg.OK() && !c.Force {
			fmt.Fprintf(stdout, "  not added (use --force to add anyway)\n")
			continue
		}
		if err := suggest.AppendManual(manualPath, sg.Name, sg.Pronunciation); err != nil {
			failed++
			fmt.Fprintf(stdout, "  not added: %v\n", err)
			continue
		}
		fmt.Fprintf(stdout, "  added to %s\n", manualPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d names failed", failed, len(c.Names))
	}
	return nil
}

// DictPackCmd writes .json.xz copies of both tiers after validating the
// manual tier.
type DictPackCmd struct {
	DictFlags
	Out string `short:"o" required:"" help:"Output directory" type:"path"`
}

func (c *DictPackCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	curatedPath, manualPath := c.paths(cfg)

	report, err := dictionary.ValidateManualFile(manualPath)
	if err != nil {
		return err
	}
	if !report.OK() {
		printReport(report)
		return fmt.Errorf("%s: fix %d errors before packing", manualPath, len(report.Errors))
	}

	curated, err := dictionary.ReadFile(curatedPath)
	if err != nil {
		return err
	}
	manual, err := dictionary.ReadFile(manualPath)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	if manual == nil {
		manual = map[string]dictionary.Entry{}
	}

	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return errors.NewIO("create directory", c.Out, err)
	}
	curatedOut := filepath.Join(c.Out, dictionary.CuratedFile+".xz")
	manualOut := filepath.Join(c.Out, dictionary.ManualFile+".xz")
	if err := dictionary.WriteFile(curatedOut, curated); err != nil {
		return err
	}
	if err := dictionary.WriteFile(manualOut, manual); err != nil {
		return err
	}
	counts := dictionary.Counts{Curated: len(curated), Manual: len(manual)}
	fmt.Fprintf(stdout, "Packed %s and %s\n%s\n", curatedOut, manualOut, counts)
	return nil
}
