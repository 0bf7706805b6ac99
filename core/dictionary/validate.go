package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
)

// Report is the outcome of validating a manual dictionary file.
// Errors block packaging; warnings only flag style problems.
type Report struct {
	Path     string   `json:"path"`
	Missing  bool     `json:"missing,omitempty"`
	Entries  int      `json:"entries"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK reports whether validation passed.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// ValidateManualFile validates the manual tier on disk. A missing file is
// valid, since the tier is optional.
func ValidateManualFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Report{Path: path, Missing: true}, nil
		}
		return nil, errors.NewIO("read", path, err)
	}
	r := ValidateManual(data)
	r.Path = path
	return r, nil
}

// ValidateManual checks raw manual-tier JSON: every value must be an
// object with a non-empty string pronunciation and no link.
func ValidateManual(data []byte) *Report {
	r := &Report{}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("invalid JSON syntax: %v", err))
		return r
	}
	obj, ok := root.(map[string]any)
	if !ok {
		r.Errors = append(r.Errors, "root element must be a JSON object")
		return r
	}
	r.Entries = len(obj)

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, ok := obj[name].(map[string]any)
		if !ok {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: value must be an object", name))
			continue
		}
		raw, ok := entry["pronunciation"]
		if !ok {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: missing required field 'pronunciation'", name))
			continue
		}
		p, ok := raw.(string)
		if !ok {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: 'pronunciation' must be a string", name))
			continue
		}
		if strings.TrimSpace(p) == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: 'pronunciation' cannot be empty", name))
			continue
		}
		if _, ok := entry["link"]; ok {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: manual entries must not have a 'link' field", name))
		}
		r.Warnings = append(r.Warnings, PronunciationWarnings(name, p)...)
	}
	return r
}

// PronunciationWarnings checks a pronunciation against the house style:
// hyphen-separated syllables, CAPS for the stressed syllable, letters and
// hyphens only.
func PronunciationWarnings(name, p string) []string {
	var out []string

	if !strings.Contains(p, "-") && len(p) > 4 {
		out = append(out, fmt.Sprintf("%s: missing hyphens for syllable separation", name))
	}

	var upper, lower bool
	for _, r := range p {
		if unicode.IsUpper(r) {
			upper = true
		} else if unicode.IsLower(r) {
			lower = true
		}
	}
	if upper != lower {
		out = append(out, fmt.Sprintf("%s: should use mixed case (CAPS for stressed syllables)", name))
	}

	bad := map[rune]bool{}
	for _, r := range p {
		if r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		bad[r] = true
	}
	if len(bad) > 0 {
		chars := make([]string, 0, len(bad))
		for r := range bad {
			chars = append(chars, fmt.Sprintf("%q", r))
		}
		sort.Strings(chars)
		out = append(out, fmt.Sprintf("%s: contains unexpected characters: %s", name, strings.Join(chars, ", ")))
	}
	return out
}
