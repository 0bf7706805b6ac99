// Package suggest asks a chat model for pronunciations of names the
// curated dictionary lacks, prompting with curated examples so the answer
// follows the same respelling style.
package suggest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
	"github.com/FocuswithJustin/BibleSpeak/core/errors"
	"github.com/FocuswithJustin/BibleSpeak/internal/logging"
	"github.com/FocuswithJustin/BibleSpeak/internal/validation"
)

// DefaultExamples is the number of curated entries shown to the model.
const DefaultExamples = 15

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4oMini

// Config configures a Suggester.
type Config struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible API; empty means OpenAI.
	BaseURL    string
	Model      string
	Examples   int
	HTTPClient *http.Client
}

// Suggestion is a model answer checked against the house style.
type Suggestion struct {
	Name          string
	Pronunciation string
	Warnings      []string
}

// OK reports whether the suggestion passed the format checks.
func (s Suggestion) OK() bool {
	return len(s.Warnings) == 0
}

// Suggester produces pronunciations for unknown names.
type Suggester struct {
	client   *openai.Client
	model    string
	curated  map[string]dictionary.Entry
	examples []dictionary.Entry
}

// New returns a Suggester prompting with examples drawn from curated.
func New(cfg Config, curated map[string]dictionary.Entry) (*Suggester, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewValidation("api_key", "an API key is required")
	}
	if len(curated) == 0 {
		return nil, errors.NewValidation("curated", "no curated entries to use as examples")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	n := cfg.Examples
	if n <= 0 {
		n = DefaultExamples
	}
	return &Suggester{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		curated:  curated,
		examples: Examples(curated, n),
	}, nil
}

// Examples picks n entries spread evenly across name lengths, so the model
// sees short and long names alike. The choice is deterministic.
func Examples(curated map[string]dictionary.Entry, n int) []dictionary.Entry {
	all := make([]dictionary.Entry, 0, len(curated))
	for name, e := range curated {
		e.Name = name
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if len(all[i].Name) != len(all[j].Name) {
			return len(all[i].Name) < len(all[j].Name)
		}
		return all[i].Name < all[j].Name
	})
	if n >= len(all) {
		return all
	}
	out := make([]dictionary.Entry, 0, n)
	if n == 1 {
		return append(out, all[len(all)/2])
	}
	step := float64(len(all)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, all[int(float64(i)*step+0.5)])
	}
	return out
}

// Prompt builds the user message for name.
func Prompt(name string, examples []dictionary.Entry) string {
	var b strings.Builder
	b.WriteString("Here are pronunciation examples for biblical names:\n")
	for _, e := range examples {
		fmt.Fprintf(&b, "- %s: %s\n", e.Name, e.Pronunciation)
	}
	fmt.Fprintf(&b, "\nGenerate a similar phonetic pronunciation for: %s\n", name)
	b.WriteString("Answer with the pronunciation only.")
	return b.String()
}

const systemPrompt = "You write phonetic respellings of biblical names. " +
	"Separate syllables with hyphens and write the stressed syllable in capitals."

// Suggest asks the model for name's pronunciation.
func (s *Suggester) Suggest(ctx context.Context, name string) (Suggestion, error) {
	name = validation.SanitizeUserInput(name)
	if err := validation.ValidateName(name); err != nil {
		return Suggestion{}, err
	}
	if _, ok := s.curated[name]; ok {
		return Suggestion{}, errors.NewValidation("name", name+" is already in the curated dictionary")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(name, s.examples)},
		},
		MaxTokens:   32,
		Temperature: 0.2,
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest %s: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("suggest %s: empty response", name)
	}
	p := cleanAnswer(name, resp.Choices[0].Message.Content)
	if p == "" {
		return Suggestion{}, fmt.Errorf("suggest %s: model returned no pronunciation", name)
	}
	sg := Suggestion{
		Name:          name,
		Pronunciation: p,
		Warnings:      dictionary.PronunciationWarnings(name, p),
	}
	logging.Debug("pronunciation suggested",
		"name", name,
		"pronunciation", p,
		"warnings", len(sg.Warnings),
		"model", s.model)
	return sg, nil
}

// cleanAnswer keeps the first non-empty line and strips an echoed name,
// list markers, quotes and a trailing period.
func cleanAnswer(name, answer string) string {
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "-* ")
		if rest, ok := strings.CutPrefix(line, name+":"); ok {
			line = rest
		}
		line = strings.Trim(strings.TrimSpace(line), "\"'`“”")
		return strings.TrimSuffix(line, ".")
	}
	return ""
}

// AppendManual adds name to the manual dictionary file at path, creating it
// when missing. Existing names are rejected. Manual entries carry no link.
func AppendManual(path, name, pronunciation string) error {
	if err := validation.ValidateDictionaryPath(path); err != nil {
		return err
	}
	entries, err := dictionary.ReadFile(path)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return err
		}
		entries = make(map[string]dictionary.Entry)
	}
	if _, ok := entries[name]; ok {
		return errors.NewValidation("name", name+" already has a manual pronunciation")
	}
	entries[name] = dictionary.Entry{Name: name, Pronunciation: pronunciation}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIO("create directory", dir, err)
	}
	if err := dictionary.WriteFile(path, entries); err != nil {
		return err
	}
	logging.Info("manual pronunciation added", "name", name, "path", path)
	return nil
}
