package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/FocuswithJustin/BibleSpeak/core/errors"
)

// Counts summarises the two tiers after organizing.
type Counts struct {
	Curated int
	Manual  int
}

// Total returns the combined entry count.
func (c Counts) Total() int {
	return c.Curated + c.Manual
}

// String formats the counts the way the packaging script expects.
func (c Counts) String() string {
	return fmt.Sprintf("BibleSpeak.org: %d; Manual: %d; Total: %d", c.Curated, c.Manual, c.Total())
}

// Organize alphabetises both dictionary files in place and returns their
// entry counts. Values are kept verbatim, including fields this package
// does not know about. A missing manual file counts as zero entries.
func Organize(curatedPath, manualPath string) (Counts, error) {
	var c Counts
	n, err := organizeFile(curatedPath)
	if err != nil {
		return c, err
	}
	c.Curated = n

	if manualPath != "" {
		n, err = organizeFile(manualPath)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return c, err
		}
		c.Manual = n
	}
	return c, nil
}

func organizeFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &errors.NotFoundError{Resource: "dictionary file", ID: path, Err: err}
		}
		return 0, errors.NewIO("read", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, errors.NewParse("JSON", path, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return 0, errors.NewIO("encode", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.NewIO("stat", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return 0, errors.NewIO("write", path, err)
	}
	return len(raw), nil
}
