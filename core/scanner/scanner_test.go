package scanner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/BibleSpeak/core/dictionary"
)

func testDict(names ...string) *dictionary.Dictionary {
	m := make(map[string]dictionary.Entry, len(names))
	for _, n := range names {
		m[n] = dictionary.Entry{Pronunciation: "X"}
	}
	return dictionary.New(m, nil)
}

func TestScan(t *testing.T) {
	dict := testDict("Pharisee", "Paul", "abel", "Mary Magdalene", "Ai", "Zoheth")

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plural does not match",
			text: "The Pharisees questioned him.",
			want: []string{},
		},
		{
			name: "case-insensitive",
			text: "PAUL wrote; Abel offered.",
			want: []string{"abel", "Paul"},
		},
		{
			name: "possessive still matches the name",
			text: "Paul's letter",
			want: []string{"Paul"},
		},
		{
			name: "substring inside word",
			text: "Again and again, the aisle was Paulette's.",
			want: []string{},
		},
		{
			name: "multi-word name across line break",
			text: "Mary\nMagdalene stood there",
			want: []string{"Mary Magdalene"},
		},
		{
			name: "deduplicated",
			text: "Ai. Ai! ai?",
			want: []string{"Ai"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scan(dict, tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanDeterministic(t *testing.T) {
	dict := testDict("Silas", "silas", "Aaron", "barnabas", "Zoheth")
	text := "Aaron met Silas and Barnabas, then zoheth."
	s := New(dict)
	first := s.Scan(text)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, s.Scan(text)); diff != "" {
			t.Fatalf("Scan() not deterministic (-first +got):\n%s", diff)
		}
	}
	want := []string{"Aaron", "barnabas", "Silas", "silas", "Zoheth"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Scan() order mismatch (-want +got):\n%s", diff)
	}
}

func TestSurfaceRegexp(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"Paul", "Paul's letter", "Paul's"},
		{"Paul", "paul wrote", "paul"},
		{"James", "James' house", "James'"},
		{"James", "James’s house", "James’s"},
		{"Paul", "Paul'sx", "Paul'"},
		{"Paul", "Pauline", ""},
		{"Mary Magdalene", "Mary\u00a0Magdalene wept", "Mary\u00a0Magdalene"},
		{"Mary Magdalene", "Mary \n Magdalene", "Mary \n Magdalene"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			re, err := SurfaceRegexp(tt.name)
			if err != nil {
				t.Fatalf("SurfaceRegexp() error = %v", err)
			}
			if got := re.FindString(tt.text); got != tt.want {
				t.Errorf("FindString(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSortNames(t *testing.T) {
	names := []string{"zoheth", "Abel", "aaron", "Zebulun", "abel"}
	SortNames(names)
	want := []string{"aaron", "Abel", "abel", "Zebulun", "zoheth"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("SortNames() mismatch (-want +got):\n%s", diff)
	}
}
