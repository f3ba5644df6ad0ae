package blog

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 30, 15, 4, 5, 0, time.UTC) }

func post(title, date, tags string) string {
	return "---\ntitle: \"" + title + "\"\ndate: " + date + "\ntags: " + tags + "\n---\nbody of " + title
}

func loadDocs(t *testing.T, docs map[string]string, opts LoadOptions) *Store {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return Load(context.Background(), docs, opts)
}

func ids(posts []PostSummary) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestLoad_SortsNewestFirst(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"a": post("A", "2024-01-01", `["x"]`),
		"b": post("B", "2024-03-01", `["x"]`),
		"c": post("C", "2024-02-01", `["x"]`),
	}, LoadOptions{})

	if got := ids(s.All()); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Fatalf("order = %v", got)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestLoad_EqualDatesOrderedBySlug(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"zeta":  post("Z", "2024-01-01", "[]"),
		"alpha": post("A", "2024-01-01", "[]"),
		"mid":   post("M", "2024-01-01", "[]"),
	}, LoadOptions{})

	if got := ids(s.All()); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestLoad_UnparseableDateSortsLast(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"old":   post("Old", "1999-01-01", "[]"),
		"weird": post("Weird", "someday", "[]"),
	}, LoadOptions{})

	if got := ids(s.All()); !reflect.DeepEqual(got, []string{"old", "weird"}) {
		t.Fatalf("order = %v", got)
	}
	p, _ := s.Get("weird")
	if p.Date != "someday" {
		t.Fatalf("date should be kept as written, got %q", p.Date)
	}
	if !p.Published().Equal(time.Unix(0, 0)) {
		t.Fatalf("Published = %v", p.Published())
	}
}

func TestLoad_Defaults(t *testing.T) {
	body := strings.Repeat("x", 200)
	s := loadDocs(t, map[string]string{"bare": body}, LoadOptions{})

	p, ok := s.Get("bare")
	if !ok {
		t.Fatal("bare post missing")
	}
	if p.Title != DefaultTitle {
		t.Errorf("title = %q", p.Title)
	}
	if p.Date != "2025-06-30" {
		t.Errorf("date = %q", p.Date)
	}
	if p.Tags == nil || len(p.Tags) != 0 {
		t.Errorf("tags = %#v, want empty non-nil", p.Tags)
	}
	if want := strings.Repeat("x", 150) + "..."; p.Excerpt != want {
		t.Errorf("excerpt = %q", p.Excerpt)
	}
	if p.ReadingTime != "1 min read" {
		t.Errorf("reading time = %q", p.ReadingTime)
	}
	if p.Body != body {
		t.Errorf("body changed")
	}
}

func TestLoad_ShortBodyExcerptStillGetsEllipsis(t *testing.T) {
	s := loadDocs(t, map[string]string{"short": "---\ntitle: T\n---\nHi."}, LoadOptions{})
	p, _ := s.Get("short")
	if p.Excerpt != "Hi...." {
		t.Fatalf("excerpt = %q", p.Excerpt)
	}
}

func TestLoad_ExcerptCountsCharactersNotBytes(t *testing.T) {
	body := strings.Repeat("é", 160)
	s := loadDocs(t, map[string]string{"fr": body}, LoadOptions{})
	p, _ := s.Get("fr")
	if want := strings.Repeat("é", 150) + "..."; p.Excerpt != want {
		t.Fatalf("excerpt = %q", p.Excerpt)
	}
}

func TestLoad_WrongTypedFieldsFallBack(t *testing.T) {
	raw := "---\ntitle: [\"not\", \"a string\"]\ntags: go\nexcerpt: \"Given\"\n---\nbody"
	s := loadDocs(t, map[string]string{"odd": raw}, LoadOptions{})
	p, _ := s.Get("odd")
	if p.Title != DefaultTitle {
		t.Errorf("title = %q", p.Title)
	}
	if len(p.Tags) != 0 {
		t.Errorf("tags = %v", p.Tags)
	}
	if p.Excerpt != "Given" {
		t.Errorf("excerpt = %q", p.Excerpt)
	}
}

func TestLoad_SkipsFailedDocuments(t *testing.T) {
	docs := map[string]string{
		"good-1": post("G1", "2024-01-01", "[]"),
		"bad":    "boom",
		"good-2": post("G2", "2024-02-01", "[]"),
	}
	parse := func(raw string) (Document, error) {
		if raw == "boom" {
			return Document{}, errors.New("cannot parse")
		}
		return ParseDocument(raw)
	}

	var skipped []string
	s := loadDocs(t, docs, LoadOptions{
		Parse:  parse,
		OnSkip: func(id string, err error) { skipped = append(skipped, id) },
	})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if s.Has("bad") {
		t.Fatal("failed document should not be in the store")
	}
	if !reflect.DeepEqual(skipped, []string{"bad"}) {
		t.Fatalf("skipped = %v", skipped)
	}
}

func TestLoad_PanickingParserIsContained(t *testing.T) {
	parse := func(raw string) (Document, error) {
		if raw == "panic" {
			panic("parser exploded")
		}
		return ParseDocument(raw)
	}
	var skipErr error
	s := loadDocs(t, map[string]string{
		"ok":    post("OK", "2024-01-01", "[]"),
		"crash": "panic",
	}, LoadOptions{Parse: parse, OnSkip: func(_ string, err error) { skipErr = err }})

	if s.Len() != 1 || !s.Has("ok") {
		t.Fatalf("expected only ok, got %v", ids(s.All()))
	}
	if skipErr == nil || !strings.Contains(skipErr.Error(), "parser exploded") {
		t.Fatalf("skip err = %v", skipErr)
	}
}

func TestLoad_InvalidEncodingSkipped(t *testing.T) {
	var skipErr error
	s := loadDocs(t, map[string]string{
		"ok":     post("OK", "2024-01-01", "[]"),
		"binary": "\xff\xfe\x00",
	}, LoadOptions{OnSkip: func(_ string, err error) { skipErr = err }})

	if s.Len() != 1 {
		t.Fatalf("Len = %d", s.Len())
	}
	if !errors.Is(skipErr, ErrInvalidEncoding) {
		t.Fatalf("skip err = %v", skipErr)
	}
}

func TestLoad_Empty(t *testing.T) {
	s := loadDocs(t, nil, LoadOptions{})
	if s.Len() != 0 || len(s.All()) != 0 || len(s.Tags()) != 0 {
		t.Fatal("empty input should give an empty store")
	}
	if s.All() == nil || s.Tags() == nil {
		t.Fatal("queries should return empty slices, not nil")
	}
}

func TestStore_Get(t *testing.T) {
	s := loadDocs(t, map[string]string{"hello": post("Hello", "2024-01-15", `["a","b"]`)}, LoadOptions{})

	p, ok := s.Get("hello")
	if !ok {
		t.Fatal("Get(hello) not found")
	}
	if p.Title != "Hello" || p.Date != "2024-01-15" || p.Body != "body of Hello" {
		t.Fatalf("post = %+v", p)
	}

	p.Tags[0] = "mutated"
	again, _ := s.Get("hello")
	if again.Tags[0] != "a" {
		t.Fatal("Get must not expose internal slices")
	}

	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get(missing) should report !ok")
	}
	if s.Has("missing") || !s.Has("hello") {
		t.Fatal("Has mismatch")
	}
}

func TestStore_ByTag(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"one":   post("One", "2024-01-01", `["Go","ops"]`),
		"two":   post("Two", "2024-02-01", `["go"]`),
		"three": post("Three", "2024-03-01", `["rust"]`),
	}, LoadOptions{})

	tests := []struct {
		tag  string
		want []string
	}{
		{"go", []string{"two", "one"}},
		{"GO", []string{"two", "one"}},
		{"Ops", []string{"one"}},
		{"python", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := s.ByTag(tt.tag)
		if got == nil {
			t.Errorf("ByTag(%q) returned nil", tt.tag)
			continue
		}
		if !reflect.DeepEqual(ids(got), tt.want) {
			t.Errorf("ByTag(%q) = %v, want %v", tt.tag, ids(got), tt.want)
		}
	}
}

func TestStore_Tags(t *testing.T) {
	docs := map[string]string{
		"newer": post("N", "2024-02-01", `["Go","b",""]`),
		"older": post("O", "2024-01-01", `["go","a","c"]`),
	}

	folded := loadDocs(t, docs, LoadOptions{})
	if got := folded.Tags(); !reflect.DeepEqual(got, []string{"", "Go", "a", "b", "c"}) {
		t.Fatalf("folded tags = %v", got)
	}

	exact := loadDocs(t, docs, LoadOptions{TagMode: TagsExact})
	if got := exact.Tags(); !reflect.DeepEqual(got, []string{"", "Go", "a", "b", "c", "go"}) {
		t.Fatalf("exact tags = %v", got)
	}
}

func TestStore_TagsSortedByByteValue(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"p": post("P", "2024-01-01", `["Zeta","alpha","Beta"]`),
	}, LoadOptions{})
	got := s.Tags()
	if !sort.StringsAreSorted(got) {
		t.Fatalf("Tags not sorted: %v", got)
	}
	if !reflect.DeepEqual(got, []string{"Beta", "Zeta", "alpha"}) {
		t.Fatalf("Tags = %v", got)
	}
}

func TestStore_EmptyTagListedAndFilterable(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"blank": post("B", "2024-01-01", `["", "go"]`),
		"other": post("O", "2024-01-02", `["go"]`),
	}, LoadOptions{})
	if got := s.Tags(); !reflect.DeepEqual(got, []string{"", "go"}) {
		t.Fatalf("Tags = %v", got)
	}
	if got := ids(s.ByTag("")); !reflect.DeepEqual(got, []string{"blank"}) {
		t.Fatalf("ByTag(\"\") = %v", got)
	}
}

func TestStore_TagsDedup(t *testing.T) {
	s := loadDocs(t, map[string]string{
		"p1": post("P1", "2024-01-01", `["b","a"]`),
		"p2": post("P2", "2024-01-02", `["a","c"]`),
	}, LoadOptions{})
	if got := s.Tags(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Tags = %v", got)
	}
}

func TestPost_SummaryDropsBody(t *testing.T) {
	s := loadDocs(t, map[string]string{"p": post("P", "2024-01-01", `["t"]`)}, LoadOptions{})
	sum := s.All()[0]
	if sum.ID != "p" || sum.Title != "P" || sum.ReadingTime == "" {
		t.Fatalf("summary = %+v", sum)
	}
	sum.Tags[0] = "mutated"
	if got := s.All()[0].Tags[0]; got != "t" {
		t.Fatalf("summary tags leaked into store: %q", got)
	}
}
