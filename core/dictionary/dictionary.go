// Package dictionary holds the immutable name -> pronunciation mapping used
// to detect and annotate biblical proper names.
//
// A Dictionary is built from two tiers: a curated file scraped from the
// pronunciation site (entries carry a link) and an optional manual file
// (entries carry no link). Curated entries win on key collision.
package dictionary

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/blake3"
)

// Entry is a single dictionary record.
type Entry struct {
	Name          string `json:"-"`
	Pronunciation string `json:"pronunciation"`
	Link          string `json:"link,omitempty"`
}

// IsManual reports whether the entry came from the manual tier and must be
// rendered as plain styled text instead of a hyperlink.
func (e Entry) IsManual() bool {
	return e.Link == ""
}

// Dictionary maps canonical names to entries. It is never mutated after
// construction.
type Dictionary struct {
	entries map[string]Entry
	names   []string
}

// New builds a Dictionary from the two tiers. Either map may be nil.
// Curated entries override manual entries that share a key.
func New(curated, manual map[string]Entry) *Dictionary {
	d := &Dictionary{entries: make(map[string]Entry, len(curated)+len(manual))}
	for name, e := range manual {
		e.Name = name
		e.Link = ""
		d.entries[name] = e
	}
	for name, e := range curated {
		e.Name = name
		d.entries[name] = e
	}
	d.names = make([]string, 0, len(d.entries))
	for name := range d.entries {
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)
	return d
}

// Empty returns a dictionary with no entries.
func Empty() *Dictionary {
	return New(nil, nil)
}

// Lookup returns the entry stored under the exact canonical name.
func (d *Dictionary) Lookup(name string) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	e, ok := d.entries[name]
	return e, ok
}

// Names returns the canonical names in byte order.
func (d *Dictionary) Names() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the mapping, keyed by canonical name.
func (d *Dictionary) Entries() map[string]Entry {
	out := make(map[string]Entry, d.Len())
	if d == nil {
		return out
	}
	for k, v := range d.entries {
		out[k] = v
	}
	return out
}

// Subset returns the entries for the given names, skipping unknown ones.
func (d *Dictionary) Subset(names []string) map[string]Entry {
	out := make(map[string]Entry, len(names))
	for _, n := range names {
		if e, ok := d.Lookup(n); ok {
			out[n] = e
		}
	}
	return out
}

// Fingerprint returns a BLAKE3 digest of the merged content. Two
// dictionaries with the same entries have the same fingerprint.
func (d *Dictionary) Fingerprint() string {
	h := blake3.New()
	for _, name := range d.Names() {
		e := d.entries[name]
		// Encoding a fixed struct cannot fail.
		line, _ := json.Marshal([3]string{name, e.Pronunciation, e.Link})
		h.Write(line)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalJSON encodes the dictionary in the on-disk source format.
func (d *Dictionary) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Entries())
}
