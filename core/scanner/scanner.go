// Package scanner detects which dictionary names occur in a page's rendered
// text.
//
// Matching is case-insensitive and bounded by word boundaries, so a name
// never matches inside a longer word. Inflected forms ("Pharisees" for
// "Pharisee") are therefore not detected.
package scanner

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// Scanner holds the compiled word patterns of one dictionary. It is safe
// for concurrent use.
type Scanner struct {
	dict *dictionary.Dictionary

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New returns a Scanner for dict. Patterns are compiled on first use.
func New(dict *dictionary.Dictionary) *Scanner {
	return &Scanner{
		dict:     dict,
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Scan is a convenience for New(dict).Scan(text).
func Scan(dict *dictionary.Dictionary, text string) []string {
	return New(dict).Scan(text)
}

// Scan returns the distinct canonical names occurring in text, sorted
// case-insensitively. It has no side effects.
func (s *Scanner) Scan(text string) []string {
	if text == "" || s.dict.Len() == 0 {
		return []string{}
	}
	lower := strings.ToLower(text)

	found := []string{}
	for _, name := range s.dict.Names() {
		// Cheap substring check before the regexp; a word match implies
		// a case-folded substring match for ASCII names.
		if first := strings.Fields(strings.ToLower(name)); len(first) > 0 && !strings.Contains(lower, first[0]) {
			continue
		}
		re := s.pattern(name)
		if re == nil {
			continue
		}
		if re.MatchString(text) {
			found = append(found, name)
		}
	}
	SortNames(found)
	logging.Debug("page scanned", "dictionary_size", s.dict.Len(), "found", len(found))
	return found
}

func (s *Scanner) pattern(name string) *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if re, ok := s.patterns[name]; ok {
		return re
	}
	re, err := WordRegexp(name)
	if err != nil {
		logging.Warn("skipping unmatchable dictionary name", "name", name, "error", err)
	}
	s.patterns[name] = re
	return re
}

// SortNames sorts names case-insensitively for display, breaking ties by
// byte order so the result is deterministic.
func SortNames(names []string) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(names, func(i, j int) bool {
		if r := c.CompareString(names[i], names[j]); r != 0 {
			return r < 0
		}
		return names[i] < names[j]
	})
}
