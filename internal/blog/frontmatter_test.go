package blog

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseDocument_HeaderAndBody(t *testing.T) {
	raw := "---\ntitle: \"Hello\"\ndate: 2024-01-15\ntags: [\"a\",\"b\"]\n---\nBody text"
	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if got, ok := doc.Meta.String("title"); !ok || got != "Hello" {
		t.Fatalf("title = %q, %v", got, ok)
	}
	if got, ok := doc.Meta.String("date"); !ok || got != "2024-01-15" {
		t.Fatalf("date = %q, %v", got, ok)
	}
	tags, ok := doc.Meta.List("tags")
	if !ok || !reflect.DeepEqual(tags, []string{"a", "b"}) {
		t.Fatalf("tags = %v, %v", tags, ok)
	}
	if doc.Body != "Body text" {
		t.Fatalf("body = %q", doc.Body)
	}
}

func TestParseDocument_NoHeader(t *testing.T) {
	for _, raw := range []string{"", "Just text", "--- not a header\nstill body", "---\ntitle: x\nno closing line"} {
		doc, err := ParseDocument(raw)
		if err != nil {
			t.Fatalf("ParseDocument(%q): %v", raw, err)
		}
		if len(doc.Meta) != 0 {
			t.Errorf("ParseDocument(%q) meta = %v, want empty", raw, doc.Meta)
		}
		if doc.Meta == nil {
			t.Errorf("ParseDocument(%q) meta should be non-nil", raw)
		}
		if doc.Body != raw {
			t.Errorf("ParseDocument(%q) body = %q", raw, doc.Body)
		}
	}
}

func TestParseDocument_BodyKeptVerbatim(t *testing.T) {
	body := "First line\n\n---\n\nAfter a rule: still body\n"
	doc, err := ParseDocument("---\ntitle: T\n---\n" + body)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Body != body {
		t.Fatalf("body = %q, want %q", doc.Body, body)
	}
	if len(doc.Meta) != 1 {
		t.Fatalf("later --- lines must not be read as header: %v", doc.Meta)
	}
}

func TestParseDocument_DelimiterTrailingSpace(t *testing.T) {
	doc, err := ParseDocument("---  \ntitle: T\n---\t\nbody")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := doc.Meta.String("title"); got != "T" {
		t.Fatalf("title = %q", got)
	}
	if doc.Body != "body" {
		t.Fatalf("body = %q", doc.Body)
	}
}

func TestParseDocument_ValueCoercion(t *testing.T) {
	tests := []struct {
		name string
		line string
		key  string
		want Value
	}{
		{"plain", "title: Hello World", "title", StringValue("Hello World")},
		{"quoted", `title: "Hello"`, "title", StringValue("Hello")},
		{"quoted with inner quotes", `title: "say "hi""`, "title", StringValue(`say "hi"`)},
		{"lone quote", `title: "`, "title", StringValue("")},
		{"empty value", "title:", "title", StringValue("")},
		{"first colon splits", "url: http://example.com:8080/x", "url", StringValue("http://example.com:8080/x")},
		{"key trimmed", "  spaced key  :  v  ", "spaced key", StringValue("v")},
		{"string array", `tags: ["go", "ops"]`, "tags", ListValue([]string{"go", "ops"})},
		{"empty array", "tags: []", "tags", ListValue([]string{})},
		{"broken array", "tags: [go, ops]", "tags", StringValue("[go, ops]")},
		{"number array", "tags: [1, 2]", "tags", StringValue("[1, 2]")},
		{"null element", `tags: ["a", null]`, "tags", StringValue(`["a", null]`)},
		{"mixed elements", `tags: ["a", 1]`, "tags", StringValue(`["a", 1]`)},
		{"nested array", `tags: [["a"]]`, "tags", StringValue(`[["a"]]`)},
		{"unclosed bracket", "tags: [\"go\"", "tags", StringValue(`["go"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument("---\n" + tt.line + "\n---\n")
			if err != nil {
				t.Fatal(err)
			}
			got, ok := doc.Meta[tt.key]
			if !ok {
				t.Fatalf("key %q missing from %v", tt.key, doc.Meta)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDocument_LinesWithoutColonIgnored(t *testing.T) {
	doc, err := ParseDocument("---\njust words\ntitle: T\n\n---\nbody")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Meta) != 1 {
		t.Fatalf("meta = %v, want only title", doc.Meta)
	}
}

func TestParseDocument_LaterKeyWins(t *testing.T) {
	doc, err := ParseDocument("---\ntitle: one\ntitle: two\n---\n")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := doc.Meta.String("title"); got != "two" {
		t.Fatalf("title = %q", got)
	}
}

func TestParseDocument_InvalidUTF8(t *testing.T) {
	_, err := ParseDocument("---\ntitle: \xff\xfe\n---\nbody")
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("err = %v, want ErrInvalidEncoding", err)
	}
}

func TestMetadata_TypedAccessors(t *testing.T) {
	m := Metadata{
		"title": StringValue("T"),
		"tags":  ListValue([]string{"a"}),
	}
	if _, ok := m.String("tags"); ok {
		t.Fatal("String on a list should report !ok")
	}
	if _, ok := m.List("title"); ok {
		t.Fatal("List on a string should report !ok")
	}
	if _, ok := m.String("missing"); ok {
		t.Fatal("missing key should report !ok")
	}

	tags, _ := m.List("tags")
	tags[0] = "mutated"
	again, _ := m.List("tags")
	if again[0] != "a" {
		t.Fatal("List must return a copy")
	}
}

func TestMetadata_EncodeReadsBack(t *testing.T) {
	m := Metadata{
		"title":   StringValue("Ports: 80 and 443"),
		"date":    StringValue("2025-03-01"),
		"tags":    ListValue([]string{"go", "ops"}),
		"excerpt": StringValue("[not a list]"),
	}
	enc := m.Encode()
	want := "date: \"2025-03-01\"\nexcerpt: \"[not a list]\"\ntags: [\"go\",\"ops\"]\ntitle: \"Ports: 80 and 443\"\n"
	if enc != want {
		t.Fatalf("Encode() =\n%s\nwant\n%s", enc, want)
	}

	doc, err := ParseDocument("---\n" + enc + "---\nbody")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doc.Meta, m) {
		t.Fatalf("read back %v, want %v", doc.Meta, m)
	}
}
