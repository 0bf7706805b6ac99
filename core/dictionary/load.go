package dictionary

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
)

// Default file names, matching the extension package layout.
const (
	CuratedFile = "names_pronunciations.json"
	ManualFile  = "manual_pronunciations.json"
)

// Decode reads a name -> {pronunciation, link?} JSON document.
func Decode(r io.Reader) (map[string]Entry, error) {
	var raw map[string]Entry
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewParse("JSON", "", err)
	}
	out := make(map[string]Entry, len(raw))
	for name, e := range raw {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(e.Pronunciation) == "" {
			continue
		}
		e.Name = name
		out[name] = e
	}
	return out, nil
}

// ReadFile decodes a dictionary file. Files ending in .xz are decompressed
// first.
func ReadFile(path string) (map[string]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "dictionary file", ID: path, Err: err}
		}
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewParse("xz", path, err)
		}
		r = xr
	}

	entries, err := Decode(r)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return entries, nil
}

// Load reads both tiers and merges them. The curated file is required; a
// missing manual file is treated as empty.
func Load(curatedPath, manualPath string) (*Dictionary, error) {
	curated, err := ReadFile(curatedPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading curated dictionary")
	}

	var manual map[string]Entry
	if manualPath != "" {
		manual, err = ReadFile(manualPath)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				return nil, errors.Wrap(err, "loading manual dictionary")
			}
			manual = nil
		}
	}

	d := New(curated, manual)
	logging.DictionaryLoaded(curatedPath, len(curated), len(manual), "merged", d.Len())
	return d, nil
}

// Encode writes entries as alphabetised, two-space indented JSON with
// non-ASCII characters kept as-is.
func Encode(w io.Writer, entries map[string]Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// encoding/json sorts map keys.
	if err := enc.Encode(entries); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile writes entries to path, compressing when the path ends in .xz.
// The file is replaced atomically.
func WriteFile(path string, entries map[string]Entry) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dictionary-*")
	if err != nil {
		return errors.NewIO("create temp file in", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var w io.Writer = tmp
	var xw *xz.Writer
	if strings.EqualFold(filepath.Ext(path), ".xz") {
		xw, err = xz.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			return errors.NewIO("compress", path, err)
		}
		w = xw
	}

	if err := Encode(w, entries); err != nil {
		tmp.Close()
		return errors.NewIO("write", path, err)
	}
	if xw != nil {
		if err := xw.Close(); err != nil {
			tmp.Close()
			return errors.NewIO("compress", path, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIO("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.NewIO("rename", path, err)
	}
	return nil
}
