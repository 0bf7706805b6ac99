package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter shows progress of a batch of files or fetches.
type Reporter interface {
	Start(total int, what string)
	Update(current int, message string)
	Finish()
}

// newReporter returns a progress bar on a terminal, line output under CI,
// and nothing when quiet is set.
func newReporter(quiet bool) Reporter {
	switch {
	case quiet:
		return nopReporter{}
	case os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "":
		return &lineReporter{w: os.Stderr}
	default:
		return &barReporter{}
	}
}

type barReporter struct {
	bar *progressbar.ProgressBar
}

func (r *barReporter) Start(total int, what string) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(what),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *barReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// lineReporter prints one line per update, for CI logs.
type lineReporter struct {
	w     io.Writer
	total int
	what  string
}

func (r *lineReporter) Start(total int, what string) {
	r.total, r.what = total, what
	fmt.Fprintf(r.w, "%s: %d items\n", what, total)
}

func (r *lineReporter) Update(current int, message string) {
	fmt.Fprintf(r.w, "[%d/%d] %s\n", current, r.total, message)
}

func (r *lineReporter) Finish() {
	fmt.Fprintf(r.w, "%s: done\n", r.what)
}

type nopReporter struct{}

func (nopReporter) Start(int, string)  {}
func (nopReporter) Update(int, string) {}
func (nopReporter) Finish()            {}
