// Package annotate inserts and removes pronunciation annotations in an HTML
// document.
//
// Enabling a name rewrites every whole-word occurrence (with an optional
// possessive) from
//
//	Paul's letter
//
// into
//
//	Paul's (<a class="bible-speak-pronunciation" href="...">PAWL</a>) letter
//
// in two phases: text substitution first, then promotion of the inserted
// pronunciation to its own element. Disabling removes exactly what enabling
// inserted and restores the original text. The caller's enabled set, not the
// document, is the record of which names are live.
package annotate

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/dom"
	"github.com/FocuswithJustin/BibleSpeak/core/scanner"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// Classes carried by inserted annotation elements.
const (
	ClassPronunciation = "bible-speak-pronunciation"
	ClassManual        = "bible-speak-manual"
)

var annotationSelector = cascadia.MustCompile(
	"a." + ClassPronunciation + "[href], span." + ClassPronunciation)

// skipAnnotations keeps already inserted pronunciations out of matching.
var skipAnnotations dom.Filter = func(n *html.Node) bool {
	return n.Type == html.ElementNode && dom.HasClass(n, ClassPronunciation)
}

// Engine applies enable/disable operations for one dictionary.
// It holds no per-page state; all methods are safe for concurrent use on
// different documents.
type Engine struct {
	dict    *dictionary.Dictionary
	exclude dom.Filter

	mu       sync.Mutex
	patterns map[string]*namePatterns
}

type namePatterns struct {
	entry   dictionary.Entry
	surface *regexp.Regexp // name + possessive
	prefix  *regexp.Regexp // name + possessive + " (" at end of text
}

// New returns an Engine. Subtrees matched by exclude (overlay elements,
// for instance) are never read or rewritten, in addition to scripts,
// styles and other non-content elements.
func New(dict *dictionary.Dictionary, exclude dom.Filter) *Engine {
	return &Engine{
		dict:     dict,
		exclude:  dom.AnyOf(dom.SkipNonContent, exclude),
		patterns: make(map[string]*namePatterns),
	}
}

func (e *Engine) lookup(name string) *namePatterns {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.patterns[name]; ok {
		return p
	}
	entry, ok := e.dict.Lookup(name)
	if !ok {
		return nil
	}
	surface := scanner.NamePattern(name) + scanner.Possessive
	p := &namePatterns{entry: entry}
	var err error
	if p.surface, err = regexp.Compile(surface); err == nil {
		p.prefix, err = regexp.Compile(surface + ` \($`)
	}
	if err != nil {
		logging.Warn("skipping unmatchable dictionary name", "name", name, "error", err)
		p = nil
	}
	e.patterns[name] = p
	return p
}

// span is a match of one name inside a text node.
type span struct {
	start, end int
	name       string
}

// findSpans returns the non-overlapping matches of all names in text,
// leftmost first and the longer match on ties, so the result does not
// depend on the order of names.
func findSpans(text string, names []string, pats map[string]*namePatterns) []span {
	var all []span
	for _, name := range names {
		for _, loc := range pats[name].surface.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			all = append(all, span{start: loc[0], end: loc[1], name: name})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		if all[i].end != all[j].end {
			return all[i].end > all[j].end
		}
		return all[i].name < all[j].name
	})
	out := all[:0]
	last := -1
	for _, s := range all {
		if s.start < last {
			continue
		}
		out = append(out, s)
		last = s.end
	}
	return out
}

// Enable annotates every occurrence of names under body and returns the new
// enabled set. Names already in enabled, and names not in the dictionary,
// are ignored. Only names that produced at least one annotation are added.
func (e *Engine) Enable(body *html.Node, names []string, enabled NameSet) NameSet {
	pats := make(map[string]*namePatterns)
	var pending []string
	for _, name := range names {
		if enabled.Has(name) {
			continue
		}
		if _, dup := pats[name]; dup {
			continue
		}
		p := e.lookup(name)
		if p == nil {
			continue
		}
		pats[name] = p
		pending = append(pending, name)
	}
	if len(pending) == 0 {
		return enabled.Clone()
	}
	sort.Strings(pending)

	touched := e.substitute(body, pending, pats)
	counts := e.promote(touched)

	out := enabled.Clone()
	total := 0
	for name, n := range counts {
		out[name] = struct{}{}
		total += n
	}
	logging.AnnotationChange("enable", len(pending), len(counts), total)
	return out
}

// rewrite records a text node changed by phase one and where each inserted
// pronunciation sits in its new content.
type rewrite struct {
	node    *html.Node
	inserts []insert
}

// insert spans one pronunciation: text[start:end] is the pronunciation and
// text[end] the closing parenthesis.
type insert struct {
	start, end int
	name       string
	entry      dictionary.Entry
}

// substitute is phase one: it rewrites matching text nodes in place,
// appending " (pronunciation)" after each surface form, and returns the
// rewritten nodes in document order.
func (e *Engine) substitute(body *html.Node, pending []string, pats map[string]*namePatterns) []rewrite {
	var touched []rewrite
	for _, n := range dom.TextNodes(body, dom.AnyOf(e.exclude, skipAnnotations)) {
		spans := findSpans(n.Data, pending, pats)
		if len(spans) == 0 {
			continue
		}
		rw := rewrite{node: n}
		var sb strings.Builder
		prev := 0
		for _, s := range spans {
			sb.WriteString(n.Data[prev:s.end])
			sb.WriteString(" (")
			entry := pats[s.name].entry
			start := sb.Len()
			sb.WriteString(entry.Pronunciation)
			rw.inserts = append(rw.inserts, insert{start: start, end: sb.Len(), name: s.name, entry: entry})
			sb.WriteString(")")
			prev = s.end
		}
		sb.WriteString(n.Data[prev:])
		n.Data = sb.String()
		touched = append(touched, rw)
	}
	return touched
}

// promote is phase two: it splits each rewritten node at the recorded
// insertions into a leading text run ending in " (", an annotation element
// holding the pronunciation, and a trailing text run starting with ")".
// Parenthesised text already on the page is never promoted. It returns the
// number of elements created per name.
func (e *Engine) promote(touched []rewrite) map[string]int {
	counts := make(map[string]int)
	for _, rw := range touched {
		text := rw.node.Data
		var parts []*html.Node
		prev := 0
		for _, in := range rw.inserts {
			parts = append(parts, dom.NewText(text[prev:in.start]), newAnnotation(in.entry))
			prev = in.end
			counts[in.name]++
		}
		parts = append(parts, dom.NewText(text[prev:]))
		dom.Replace(rw.node, parts...)
	}
	return counts
}

func newAnnotation(entry dictionary.Entry) *html.Node {
	var el *html.Node
	if entry.IsManual() {
		el = dom.NewElement(atom.Span, "class", ClassPronunciation+" "+ClassManual)
	} else {
		el = dom.NewElement(atom.A,
			"href", entry.Link,
			"target", "_blank",
			"rel", "noopener noreferrer",
			"class", ClassPronunciation)
	}
	el.AppendChild(dom.NewText(entry.Pronunciation))
	return el
}

// Disable removes the annotations of names from body and returns the new
// enabled set. A nil names slice means every enabled name. Names that are
// not enabled are ignored. An annotation whose neighbouring text does not
// look exactly like what Enable produced is left untouched.
func (e *Engine) Disable(body *html.Node, names []string, enabled NameSet) NameSet {
	var targets []string
	if names == nil {
		targets = enabled.Sorted()
	} else {
		for _, name := range names {
			if enabled.Has(name) {
				targets = append(targets, name)
			}
		}
	}
	if len(targets) == 0 {
		return enabled.Clone()
	}

	removed, skipped := 0, 0
	for _, name := range targets {
		p := e.lookup(name)
		if p == nil {
			continue
		}
		for _, el := range dom.Elements(body, e.exclude, func(n *html.Node) bool { return isAnnotationFor(n, p.entry) }) {
			if unwrap(el, p.prefix) {
				removed++
			} else {
				skipped++
				logging.Debug("annotation left in place", "name", name, "reason", "unexpected surrounding text")
			}
		}
	}

	var out NameSet
	if names == nil {
		out = NameSet{}
	} else {
		out = enabled.Minus(NewNameSet(targets...))
	}
	logging.AnnotationChange("disable", len(targets), len(targets), removed, "skipped", skipped)
	return out
}

// isAnnotationFor reports whether n is an annotation element for entry:
// the right kind of element, the pronunciation as its text and, for links,
// the stored target.
func isAnnotationFor(n *html.Node, entry dictionary.Entry) bool {
	if !annotationSelector.Match(n) {
		return false
	}
	if entry.IsManual() {
		if n.DataAtom != atom.Span {
			return false
		}
	} else {
		if n.DataAtom != atom.A {
			return false
		}
		if href, _ := dom.Attr(n, "href"); href != entry.Link {
			return false
		}
	}
	return dom.TextContent(n) == entry.Pronunciation
}

// unwrap removes el when it sits between "<surface> (" and ")" text runs,
// merging the restored text back into one node.
func unwrap(el *html.Node, prefix *regexp.Regexp) bool {
	prev, next := el.PrevSibling, el.NextSibling
	if prev == nil || next == nil || prev.Type != html.TextNode || next.Type != html.TextNode {
		return false
	}
	if !prefix.MatchString(prev.Data) || !strings.HasPrefix(next.Data, ")") {
		return false
	}
	prev.Data = strings.TrimSuffix(prev.Data, " (") + next.Data[1:]
	dom.Remove(el)
	dom.Remove(next)
	return true
}

// Plan is the difference between a target selection and the enabled set.
type Plan struct {
	Disable []string
	Enable  []string
}

// Diff computes which names to disable and enable to move from enabled to
// selection. Names in both are untouched.
func Diff(selection []string, enabled NameSet) Plan {
	target := NewNameSet(selection...)
	return Plan{
		Disable: enabled.Minus(target).Sorted(),
		Enable:  target.Minus(enabled).Sorted(),
	}
}

// Reconcile moves the document from enabled to selection by disabling and
// then enabling only the difference, so annotations that are already
// correct keep their identity.
func (e *Engine) Reconcile(body *html.Node, selection []string, enabled NameSet) (NameSet, Plan) {
	plan := Diff(selection, enabled)
	out := enabled.Clone()
	if len(plan.Disable) > 0 {
		out = e.Disable(body, plan.Disable, out)
	}
	if len(plan.Enable) > 0 {
		out = e.Enable(body, plan.Enable, out)
	}
	return out, plan
}
