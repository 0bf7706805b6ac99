// Package scrape rebuilds the curated dictionary from the pronunciation
// site: one index page per letter lists the names, and each name has a
// page whose pronunciation panel holds the respelling.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/workerpool"
)

// Letters are the index pages fetched by default.
const Letters = "abcdefghijklmnopqrstuvwxyz"

// Selectors for the site's markup.
const (
	indexLinkSelector     = "a[aria-label]"
	indexTitleSelector    = "h2.title"
	pronunciationSelector = ".col.span_6.audioright"
)

// Config configures a Scraper.
type Config struct {
	BaseURL   string
	Workers   int
	Timeout   time.Duration
	Letters   string
	UserAgent string
	Client    *http.Client
}

// Stage names reported to progress callbacks.
const (
	StageIndex         = "index"
	StagePronunciation = "pronunciation"
)

// Progress describes one finished fetch.
type Progress struct {
	Stage string
	Done  int
	Total int
	Item  string
	Err   error
}

// Report summarises an update.
type Report struct {
	Letters  int
	Names    int
	Entries  int
	Skipped  int // names whose page is missing or has no pronunciation
	Failed   int // fetches that failed
	Duration time.Duration
}

// Scraper fetches names and pronunciations.
type Scraper struct {
	cfg    Config
	client *http.Client
}

// New returns a Scraper. Zero values take defaults.
func New(cfg Config) *Scraper {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Letters == "" {
		cfg.Letters = Letters
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "BibleSpeak dictionary updater"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Scraper{cfg: cfg, client: client}
}

// PronunciationURL is the page of name, which is also the link stored with
// the entry.
func PronunciationURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/" + name + "-pronunciation/"
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewParse("URL", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewIO("fetch", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &errors.StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.NewParse("HTML", rawURL, err)
	}
	return doc, nil
}

// NamesByLetter lists the names on a letter's index page, deduplicated and
// sorted.
func (s *Scraper) NamesByLetter(ctx context.Context, letter string) ([]string, error) {
	doc, err := s.fetch(ctx, s.cfg.BaseURL+"/"+letter+"-words/")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	doc.Find(indexLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		label, _ := sel.Attr("aria-label")
		add(label)
	})
	doc.Find(indexTitleSelector).Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Pronunciation reads a name's respelling: the second line of the
// pronunciation panel. ok is false when the page has none.
func (s *Scraper) Pronunciation(ctx context.Context, name string) (string, bool, error) {
	doc, err := s.fetch(ctx, s.cfg.BaseURL+"/"+url.PathEscape(name)+"-pronunciation/")
	if err != nil {
		return "", false, err
	}
	return extractPronunciation(doc)
}

func extractPronunciation(doc *goquery.Document) (string, bool, error) {
	panel := doc.Find(pronunciationSelector).First()
	if panel.Length() == 0 {
		return "", false, nil
	}
	lines := strings.Split(strings.TrimSpace(panel.Text()), "\n")
	if len(lines) < 2 {
		return "", false, nil
	}
	p := strings.TrimSpace(lines[1])
	return p, p != "", nil
}

type letterResult struct {
	letter string
	names  []string
	err    error
}

type nameResult struct {
	name          string
	pronunciation string
	ok            bool
	err           error
}

// Update fetches every letter index and every listed name, returning the
// curated entries. Individual fetch failures are counted and logged; the
// update fails only when ctx ends or no index page could be read.
func (s *Scraper) Update(ctx context.Context, progress func(Progress)) (map[string]dictionary.Entry, Report, error) {
	start := time.Now()
	var report Report
	if progress == nil {
		progress = func(Progress) {}
	}

	letters := strings.Split(s.cfg.Letters, "")
	done := 0
	indexes, err := workerpool.Map(ctx, s.cfg.Workers, letters,
		func(ctx context.Context, letter string) letterResult {
			names, err := s.NamesByLetter(ctx, letter)
			return letterResult{letter: letter, names: names, err: err}
		},
		func(r letterResult) {
			done++
			progress(Progress{Stage: StageIndex, Done: done, Total: len(letters), Item: strings.ToUpper(r.letter), Err: r.err})
		})
	if err != nil {
		return nil, report, err
	}

	seen := make(map[string]struct{})
	var names []string
	for _, r := range indexes {
		if r.err != nil {
			report.Failed++
			logging.Warn("letter index fetch failed", "letter", r.letter, "error", r.err)
			continue
		}
		report.Letters++
		for _, name := range r.names {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	if report.Letters == 0 {
		return nil, report, fmt.Errorf("no letter index could be fetched from %s", s.cfg.BaseURL)
	}
	report.Names = len(names)

	done = 0
	results, err := workerpool.Map(ctx, s.cfg.Workers, names,
		func(ctx context.Context, name string) nameResult {
			p, ok, err := s.Pronunciation(ctx, name)
			return nameResult{name: name, pronunciation: p, ok: ok, err: err}
		},
		func(r nameResult) {
			done++
			progress(Progress{Stage: StagePronunciation, Done: done, Total: len(names), Item: r.name, Err: r.err})
		})
	if err != nil {
		return nil, report, err
	}

	entries := make(map[string]dictionary.Entry, len(results))
	for _, r := range results {
		switch {
		case errors.Is(r.err, errors.ErrNotFound):
			report.Skipped++
		case r.err != nil:
			report.Failed++
			logging.Warn("pronunciation fetch failed", "name", r.name, "error", r.err)
		case !r.ok:
			report.Skipped++
		default:
			entries[r.name] = dictionary.Entry{
				Name:          r.name,
				Pronunciation: r.pronunciation,
				Link:          PronunciationURL(s.cfg.BaseURL, r.name),
			}
		}
	}
	report.Entries = len(entries)
	report.Duration = time.Since(start)
	logging.Info("dictionary scrape complete",
		"letters", report.Letters,
		"names", report.Names,
		"entries", report.Entries,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds())
	return entries, report, nil
}
