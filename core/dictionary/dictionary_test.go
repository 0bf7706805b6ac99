package dictionary

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewMergePrecedence(t *testing.T) {
	curated := map[string]Entry{
		"Paul":  {Pronunciation: "PAWL", Link: "https://biblespeak.org/paul-pronunciation/"},
		"Silas": {Pronunciation: "SAI-luhs", Link: "https://biblespeak.org/silas-pronunciation/"},
	}
	manual := map[string]Entry{
		"Paul":      {Pronunciation: "pawl"},
		"Tertullus": {Pronunciation: "ter-TUHL-uhs", Link: "ignored"},
	}

	d := New(curated, manual)

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	paul, ok := d.Lookup("Paul")
	if !ok {
		t.Fatal("Lookup(Paul) not found")
	}
	if paul.Pronunciation != "PAWL" || paul.IsManual() {
		t.Errorf("curated entry should win, got %+v", paul)
	}
	tert, _ := d.Lookup("Tertullus")
	if !tert.IsManual() {
		t.Errorf("manual entry must not carry a link, got %+v", tert)
	}
	if tert.Name != "Tertullus" {
		t.Errorf("Name = %q, want Tertullus", tert.Name)
	}
	if diff := cmp.Diff([]string{"Paul", "Silas", "Tertullus"}, d.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := d.Lookup("paul"); ok {
		t.Error("Lookup should be case-sensitive on canonical keys")
	}
}

func TestNilDictionary(t *testing.T) {
	var d *Dictionary
	if d.Len() != 0 || d.Names() != nil {
		t.Error("nil dictionary should be empty")
	}
	if _, ok := d.Lookup("Paul"); ok {
		t.Error("nil dictionary Lookup should miss")
	}
	if Empty().Len() != 0 {
		t.Error("Empty() should have no entries")
	}
}

func TestFingerprint(t *testing.T) {
	a := New(map[string]Entry{"Paul": {Pronunciation: "PAWL"}}, nil)
	b := New(nil, map[string]Entry{"Paul": {Pronunciation: "PAWL"}})
	c := New(map[string]Entry{"Paul": {Pronunciation: "PAWL", Link: "x"}}, nil)

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical content should have identical fingerprints")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different links should change the fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a.Fingerprint()))
	}
}

func TestSubset(t *testing.T) {
	d := New(map[string]Entry{"Paul": {Pronunciation: "PAWL"}, "Silas": {Pronunciation: "SAI-luhs"}}, nil)
	got := d.Subset([]string{"Silas", "Nobody"})
	if len(got) != 1 || got["Silas"].Pronunciation != "SAI-luhs" {
		t.Errorf("Subset() = %+v", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	curated := writeFile(t, dir, CuratedFile, `{
  "Paul": {"pronunciation": "PAWL", "link": "https://biblespeak.org/paul-pronunciation/"},
  "Empty": {"pronunciation": "  "}
}`)
	manual := writeFile(t, dir, ManualFile, `{"Paul": {"pronunciation": "pahl"}, "Zoheth": {"pronunciation": "ZOH-heth"}}`)

	d, err := Load(curated, manual)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Paul", "Zoheth"}, d.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if e, _ := d.Lookup("Paul"); e.Pronunciation != "PAWL" {
		t.Errorf("Paul = %+v, want curated entry", e)
	}

	t.Run("missing manual is empty", func(t *testing.T) {
		d, err := Load(curated, filepath.Join(dir, "nope.json"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if d.Len() != 1 {
			t.Errorf("Len() = %d, want 1", d.Len())
		}
	})

	t.Run("missing curated fails", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"), manual)
		if !errors.Is(err, errors.ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("malformed manual fails", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.json", `{"Paul": `)
		_, err := Load(curated, bad)
		var pe *errors.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Load() error = %v, want ParseError", err)
		}
		if pe.Path != bad {
			t.Errorf("ParseError.Path = %q, want %q", pe.Path, bad)
		}
	})
}

func TestWriteFileXZRoundTrip(t *testing.T) {
	dir := t.TempDir()
	entries := map[string]Entry{
		"Abednego": {Pronunciation: "uh-BED-nee-goh", Link: "https://biblespeak.org/abednego-pronunciation/"},
		"Zoheth":   {Pronunciation: "ZOH-heth"},
	}
	for _, name := range []string{"bundle.json", "bundle.json.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(path, entries); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if got["Abednego"].Link != entries["Abednego"].Link || got["Zoheth"].Pronunciation != "ZOH-heth" {
				t.Errorf("ReadFile() = %+v", got)
			}
		})
	}
}

func TestEncodeSortedAndUnescaped(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, map[string]Entry{
		"Zebulun": {Pronunciation: "ZEB-yoo-luhn"},
		"Ahab":    {Pronunciation: "AY-hab", Link: "https://x/?a=1&b=2"},
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := buf.String()
	if strings.Index(out, "Ahab") > strings.Index(out, "Zebulun") {
		t.Error("keys should be alphabetised")
	}
	if !strings.Contains(out, "a=1&b=2") {
		t.Error("'&' should not be HTML-escaped")
	}
	if !strings.Contains(out, "\n  \"Ahab\"") {
		t.Errorf("expected two-space indentation, got:\n%s", out)
	}
}
