// Package validation checks user-supplied paths, page URLs, page ids and
// dictionary names before they reach the page host or the dictionary tools.
package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Limits applied to user input.
const (
	// MaxPageSize is the largest page body the host accepts (8 MB).
	MaxPageSize = 8 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// MaxURLLength is the maximum allowed page URL length.
	MaxURLLength = 2048
	// MaxNameLength is the maximum length of a dictionary name.
	MaxNameLength = 64
)

// Common validation errors.
var (
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidURL       = errors.New("invalid page URL")
	ErrPrivateAddress   = errors.New("address not allowed")
	ErrInvalidPageID    = errors.New("invalid page id")
	ErrInvalidName      = errors.New("invalid name")
)

// ValidatePath checks a local path for length and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if r == 0 {
			return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks a single path component.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// ValidateDictionaryPath accepts .json and .json.xz dictionary files.
func ValidateDictionaryPath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	base := filepath.Base(path)
	if err := ValidateFilename(base); err != nil {
		return err
	}
	lower := strings.ToLower(base)
	if !strings.HasSuffix(lower, ".json") && !strings.HasSuffix(lower, ".json.xz") {
		return fmt.Errorf("%w: %s is not a .json or .json.xz file", ErrInvalidFilename, base)
	}
	return nil
}

// ValidatePageURL parses a page URL the host is asked to fetch. Only http
// and https URLs with a host and no credentials are accepted. Unless
// allowPrivate is set, loopback, private and link-local addresses are
// rejected; hostnames are checked as given and not resolved.
func ValidatePageURL(raw string, allowPrivate bool) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(raw) > MaxURLLength {
		return nil, fmt.Errorf("%w: too long", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: credentials not allowed", ErrInvalidURL)
	}
	if !allowPrivate && isPrivateHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, u.Hostname())
	}
	return u, nil
}

func isPrivateHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// ValidatePageID checks that id is a canonical UUID.
func ValidatePageID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != strings.ToLower(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPageID, id)
	}
	return nil
}

// ValidateName checks a dictionary key: letters, spaces, hyphens, periods
// and apostrophes, starting with a letter.
func ValidateName(name string) error {
	if strings.TrimSpace(name) != name || name == "" {
		return fmt.Errorf("%w: empty or padded %q", ErrInvalidName, name)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r):
		case i == 0:
			return fmt.Errorf("%w: %q must start with a letter", ErrInvalidName, name)
		case r == ' ', r == '-', r == '.', r == '\'', r == '’':
		default:
			return fmt.Errorf("%w: character %q in %q", ErrInvalidName, r, name)
		}
	}
	return nil
}

// SanitizeUserInput trims whitespace and drops control characters other
// than newline and tab.
func SanitizeUserInput(input string) string {
	input = strings.TrimSpace(input)
	var b strings.Builder
	for _, r := range input {
		if r >= 0x20 && r != 0x7f || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
