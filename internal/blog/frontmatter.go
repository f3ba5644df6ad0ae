package blog

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tridenttech/trident-web/internal/xerrors"
)

// ErrInvalidEncoding is returned for documents that are not valid UTF-8.
var ErrInvalidEncoding = xerrors.New("blog: document is not valid UTF-8")

// Kind tags the type held by a Value.
type Kind int

const (
	KindString Kind = iota + 1
	KindList
)

// Value is a single header value: a string or a list of strings. An absent
// key is simply missing from Metadata.
type Value struct {
	kind Kind
	str  string
	list []string
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func ListValue(items []string) Value {
	return Value{kind: KindList, list: append([]string{}, items...)}
}

func (v Value) Kind() Kind { return v.kind }

// Str returns the string form, ok is false for lists.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// List returns a copy of the list form, ok is false for strings.
func (v Value) List() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// Metadata is the parsed header block. No schema is enforced here.
type Metadata map[string]Value

// String returns the value for key if present and a string.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.Str()
}

// List returns the value for key if present and a list.
func (m Metadata) List(key string) ([]string, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return v.List()
}

// Encode renders m back into header lines, keys sorted. Strings are always
// quoted and lists are written as JSON arrays, so ParseDocument reads the
// same values back.
func (m Metadata) Encode() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := m[k]
		b.WriteString(k)
		b.WriteString(": ")
		switch v.kind {
		case KindList:
			raw, _ := json.Marshal(v.list)
			b.Write(raw)
		default:
			b.WriteString(`"` + v.str + `"`)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Document is a parsed document: header values plus the body verbatim.
type Document struct {
	Meta Metadata
	Body string
}

// headerRE matches "---", the header lines, a closing "---" line and the rest.
var headerRE = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n(.*)$`)

// ParseDocument splits raw into header and body. A document without a
// header block is all body with empty metadata; that is not an error.
func ParseDocument(raw string) (Document, error) {
	if !utf8.ValidString(raw) {
		return Document{}, ErrInvalidEncoding
	}

	m := headerRE.FindStringSubmatch(raw)
	if m == nil {
		return Document{Meta: Metadata{}, Body: raw}, nil
	}
	return Document{Meta: parseHeader(m[1]), Body: m[2]}, nil
}

// parseHeader reads "key: value" lines, splitting on the first colon.
// Lines without a colon are ignored.
func parseHeader(block string) Metadata {
	meta := Metadata{}
	for _, line := range strings.Split(block, "\n") {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		meta[strings.TrimSpace(key)] = coerce(strings.TrimSpace(rest))
	}
	return meta
}

// coerce applies, first match wins: JSON string array, quoted string, plain string.
func coerce(v string) Value {
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		if items, ok := parseStringArray(v); ok {
			return ListValue(items)
		}
		return StringValue(v)
	}
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		if len(v) < 2 {
			return StringValue("")
		}
		return StringValue(v[1 : len(v)-1])
	}
	return StringValue(v)
}

// parseStringArray accepts only arrays whose elements are all JSON strings.
func parseStringArray(v string) ([]string, bool) {
	var raw []any
	if err := json.Unmarshal([]byte(v), &raw); err != nil {
		return nil, false
	}
	items := make([]string, len(raw))
	for i, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		items[i] = s
	}
	return items, true
}

// String is for debugging and test failure output.
func (v Value) String() string {
	switch v.kind {
	case KindList:
		return strconv.Quote(strings.Join(v.list, ",")) + "[list]"
	case KindString:
		return strconv.Quote(v.str)
	}
	return "<absent>"
}
