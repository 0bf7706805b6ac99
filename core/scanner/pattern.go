package scanner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Possessive is the regular expression fragment for an optional possessive
// suffix: 's, a bare trailing apostrophe, or their typographic forms.
// Alternatives are tried in order, so "Paul's" keeps the s.
const Possessive = `(?i:'s\b|’s\b|'|’)?`

// NamePattern returns the regular expression source matching name as a
// whole word, case-insensitively. Runs of whitespace inside multi-word
// names match any run of ASCII whitespace or no-break spaces in the text,
// the same characters Snapshot folds to a plain space.
func NamePattern(name string) string {
	fields := strings.Fields(name)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	body := strings.Join(quoted, `[\s\x{00A0}]+`)

	var sb strings.Builder
	sb.WriteString(`(?i:`)
	if first, _ := utf8.DecodeRuneInString(name); isWordRune(first) {
		sb.WriteString(`\b`)
	}
	sb.WriteString(body)
	if last, _ := utf8.DecodeLastRuneInString(name); isWordRune(last) {
		sb.WriteString(`\b`)
	}
	sb.WriteString(`)`)
	return sb.String()
}

// isWordRune matches the ASCII definition of \b used by package regexp.
func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

// WordRegexp compiles the whole-word pattern for name.
func WordRegexp(name string) (*regexp.Regexp, error) {
	return regexp.Compile(NamePattern(name))
}

// SurfaceRegexp compiles the pattern for name followed by an optional
// possessive. The whole match is the surface form as written on the page.
func SurfaceRegexp(name string) (*regexp.Regexp, error) {
	return regexp.Compile(NamePattern(name) + Possessive)
}
